package uhf

import (
	"strings"
	"testing"
)

func TestDecodeWorkMode(t *testing.T) {
	data := []byte{0x03, 0x1E, 0x0A, 0x0F, 0x01, 0x1A, 0x02, 0x02, 0x04, 0x05, 0x06, 0x07}
	mode, err := DecodeWorkMode(data)
	if err != nil {
		t.Fatalf("DecodeWorkMode failed: %v", err)
	}
	if mode.WiegandMode.Format != Wiegand34Bits || mode.WiegandMode.BitOrder != LowBitFirst {
		t.Errorf("wiegand mode = %+v", mode.WiegandMode)
	}
	if mode.WiegandInterval != 0x1E || mode.WiegandPulseWidth != 0x0A || mode.WiegandPulseInterval != 0x0F {
		t.Errorf("wiegand timing = %d %d %d", mode.WiegandInterval, mode.WiegandPulseWidth, mode.WiegandPulseInterval)
	}
	if mode.InventoryMode != ActiveMode {
		t.Errorf("inventory mode = %v", mode.InventoryMode)
	}
	// 0x1A = 0b11010: protocol 6C, output RS232/485, beep on, byte addressing, RS485 on.
	want := WorkModeState{Protocol: Protocol18000_6C, Output: OutputRS232485, Beep: true, AddressType: AddressByte, RS485: true}
	if mode.State != want {
		t.Errorf("state = %+v, want %+v", mode.State, want)
	}
	if mode.MemoryBank != BankTID || mode.FirstAddress != 2 || mode.WordNumber != 4 {
		t.Errorf("bank/address/words = %v/%d/%d", mode.MemoryBank, mode.FirstAddress, mode.WordNumber)
	}
	if mode.SingleTagTime != 5 || mode.Accuracy != 6 || mode.OffsetTime != 7 {
		t.Errorf("tail = %d %d %d", mode.SingleTagTime, mode.Accuracy, mode.OffsetTime)
	}
}

func TestDecodeWorkModeBeepBitIsInverted(t *testing.T) {
	data := make([]byte, WorkModeSize)
	mode, err := DecodeWorkMode(data)
	if err != nil {
		t.Fatalf("DecodeWorkMode failed: %v", err)
	}
	if !mode.State.Beep {
		t.Error("bit2 clear should mean beep on")
	}
	data[5] = 0x04
	mode, _ = DecodeWorkMode(data)
	if mode.State.Beep {
		t.Error("bit2 set should mean beep off")
	}
}

func TestDecodeWorkModeTruncated(t *testing.T) {
	_, err := DecodeWorkMode(make([]byte, WorkModeSize-1))
	assertErrorIs(t, err, ErrTruncatedPayload)
	if ErrorKind(err) != KindFrame {
		t.Errorf("kind = %v, want frame", ErrorKind(err))
	}
}

func TestWorkModeEncode(t *testing.T) {
	data := []byte{0x03, 0x1E, 0x0A, 0x0F, 0x01, 0x1A, 0x02, 0x02, 0x04, 0x05, 0x06, 0x07}
	mode, err := DecodeWorkMode(data)
	if err != nil {
		t.Fatalf("DecodeWorkMode failed: %v", err)
	}
	encoded := mode.Encode()
	if len(encoded) != 6 {
		t.Fatalf("Encode() returned %d bytes, want 6", len(encoded))
	}
	assertBytesEqual(t, data[4:10], encoded)

	mode.InventoryMode = AnswerMode
	assertBytesEqual(t, []byte{0x00, 0x1A, 0x02, 0x02, 0x04, 0x05}, mode.Encode())
}

func TestWorkModeStateRoundTrip(t *testing.T) {
	for v := 0; v < 0x20; v++ {
		if got := decodeWorkModeState(byte(v)).Byte(); got != byte(v) {
			t.Errorf("state 0x%02X re-encoded as 0x%02X", v, got)
		}
	}
	for v := 0; v < 4; v++ {
		if got := decodeWiegandMode(byte(v)).Byte(); got != byte(v) {
			t.Errorf("wiegand 0x%02X re-encoded as 0x%02X", v, got)
		}
	}
}

func TestWorkModeString(t *testing.T) {
	mode, _ := DecodeWorkMode(make([]byte, WorkModeSize))
	s := mode.String()
	for _, want := range []string{"Inventory Work Mode: ANSWER MODE", "Memory Bank: PASSWORD", "beep=Enabled"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}
