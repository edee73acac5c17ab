package uhf

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKind(t *testing.T) {
	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindUnknown},
		{"plain", errors.New("boom"), KindUnknown},
		{"transport", &TransportError{Op: "read", Err: ErrReadTimeout}, KindTransport},
		{"wrapped sentinel transport", fmt.Errorf("x: %w", ErrWriteFailed), KindTransport},
		{"frame", newFrameError(ErrChecksumMismatch, nil, ""), KindFrame},
		{"frame sentinel", ErrUnexpectedOpcode, KindFrame},
		{"device", &DeviceStatusError{Opcode: CmdInventory, Status: StatusNoTag}, KindDevice},
		{"precondition", fmt.Errorf("%w: 31", ErrPowerOutOfRange), KindPrecondition},
		{"state", ErrNotConnected, KindState},
		{"connect wraps device", fmt.Errorf("%w: %w", ErrSetPowerFailed, &DeviceStatusError{Status: 0xFE}), KindDevice},
		{"connect wraps transport", fmt.Errorf("%w: %w", ErrSetWorkModeFailed, &TransportError{Op: "read", Err: ErrReadTimeout}), KindTransport},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ErrorKind(tc.err); got != tc.want {
				t.Errorf("ErrorKind(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}

func TestDeviceStatusErrorMessage(t *testing.T) {
	err := &DeviceStatusError{Opcode: CmdInventory, Status: StatusNoTag}
	want := "uhf: device status 0xFB for opcode 0x01 (no tag operable)"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	unknown := &DeviceStatusError{Opcode: CmdInventory, Status: 0x77}
	if unknown.Error() != "uhf: device status 0x77 for opcode 0x01 (unknown status)" {
		t.Errorf("Error() = %q", unknown.Error())
	}
}

func TestFrameErrorUnwrap(t *testing.T) {
	raw := []byte{0x01, 0x02}
	err := newFrameError(ErrLengthMismatch, raw, "declared %d", 9)
	raw[0] = 0xFF
	if !errors.Is(err, ErrLengthMismatch) {
		t.Error("FrameError does not unwrap to its sentinel")
	}
	assertBytesEqual(t, []byte{0x01, 0x02}, err.Raw)
	if err.Error() != "uhf: frame length mismatch: declared 9 [01 02]" {
		t.Errorf("Error() = %q", err.Error())
	}
}
