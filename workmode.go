package uhf

import (
	"fmt"
	"strings"
)

// InventoryWorkMode selects how inventory is triggered.
type InventoryWorkMode byte

const (
	AnswerMode      InventoryWorkMode = 0 // reader answers explicit inventory commands
	ActiveMode      InventoryWorkMode = 1 // reader free-runs and pushes frames
	TriggerModeLow  InventoryWorkMode = 2
	TriggerModeHigh InventoryWorkMode = 3
)

func (m InventoryWorkMode) String() string {
	switch m {
	case AnswerMode:
		return "ANSWER MODE"
	case ActiveMode:
		return "ACTIVE MODE"
	case TriggerModeLow:
		return "TRIGGER MODE LOW"
	case TriggerModeHigh:
		return "TRIGGER MODE HIGH"
	default:
		return fmt.Sprintf("MODE 0x%02X", byte(m))
	}
}

// MemoryBank selects a tag memory area, or in the work mode block the data
// an active-mode reader outputs.
type MemoryBank byte

const (
	BankPassword          MemoryBank = 0
	BankEPC               MemoryBank = 1
	BankTID               MemoryBank = 2
	BankUser              MemoryBank = 3
	BankInventoryMultiple MemoryBank = 4
	BankInventorySingle   MemoryBank = 5
	BankEASAlarm          MemoryBank = 6
)

func (b MemoryBank) String() string {
	switch b {
	case BankPassword:
		return "PASSWORD"
	case BankEPC:
		return "EPC"
	case BankTID:
		return "TID"
	case BankUser:
		return "USER"
	case BankInventoryMultiple:
		return "INVENTORY MULTIPLE"
	case BankInventorySingle:
		return "INVENTORY SINGLE"
	case BankEASAlarm:
		return "EAS ALARM"
	default:
		return fmt.Sprintf("BANK 0x%02X", byte(b))
	}
}

// OutputInterface selects where an active-mode reader sends tag data.
type OutputInterface byte

const (
	OutputWiegand  OutputInterface = 0
	OutputRS232485 OutputInterface = 1
	OutputSyris485 OutputInterface = 2
)

// ProtocolType is the air protocol the reader runs.
type ProtocolType byte

const (
	Protocol18000_6C ProtocolType = 0
	Protocol18000_6B ProtocolType = 1
)

// AddressType is the unit of the first-address field of the work mode.
type AddressType byte

const (
	AddressWord AddressType = 0
	AddressByte AddressType = 1
)

// WiegandFormat is the frame width of the wiegand output.
type WiegandFormat byte

const (
	Wiegand26Bits WiegandFormat = 0
	Wiegand34Bits WiegandFormat = 1
)

// WiegandBitOrder is the order bits leave the wiegand output.
type WiegandBitOrder byte

const (
	HighBitFirst WiegandBitOrder = 0
	LowBitFirst  WiegandBitOrder = 1
)

// WiegandMode is the bit-packed wiegand parameter byte.
type WiegandMode struct {
	Format   WiegandFormat
	BitOrder WiegandBitOrder
}

func decodeWiegandMode(v byte) WiegandMode {
	return WiegandMode{
		Format:   WiegandFormat(v & 0x01),
		BitOrder: WiegandBitOrder((v >> 1) & 0x01),
	}
}

// Byte packs the mode back into its wire form.
func (w WiegandMode) Byte() byte {
	return byte(w.Format&0x01) | byte(w.BitOrder&0x01)<<1
}

// WorkModeState is the bit-packed mode state byte.
//
//	bit0 protocol, bit1 output interface, bit2 beep (0 = on),
//	bit3 address type, bit4 RS485 enable
type WorkModeState struct {
	Protocol    ProtocolType
	Output      OutputInterface
	Beep        bool
	AddressType AddressType
	RS485       bool
}

func decodeWorkModeState(v byte) WorkModeState {
	return WorkModeState{
		Protocol:    ProtocolType(v & 0x01),
		Output:      OutputInterface((v >> 1) & 0x01),
		Beep:        v&0x04 == 0,
		AddressType: AddressType((v >> 3) & 0x01),
		RS485:       v&0x10 != 0,
	}
}

// Byte packs the state back into its wire form.
func (s WorkModeState) Byte() byte {
	var v byte
	v |= byte(s.Protocol & 0x01)
	v |= byte(s.Output&0x01) << 1
	if !s.Beep {
		v |= 0x04
	}
	v |= byte(s.AddressType&0x01) << 3
	if s.RS485 {
		v |= 0x10
	}
	return v
}

// WorkModeSize is the length of the GET_WORK_MODE response payload.
const WorkModeSize = 12

// WorkMode is the reader configuration block.
//
// GetWorkMode returns all twelve fields but SetWorkMode only accepts the six
// from InventoryMode through SingleTagTime. The wiegand fields, Accuracy and
// OffsetTime are read-only through this command pair.
type WorkMode struct {
	WiegandMode          WiegandMode
	WiegandInterval      byte
	WiegandPulseWidth    byte
	WiegandPulseInterval byte
	InventoryMode        InventoryWorkMode
	State                WorkModeState
	MemoryBank           MemoryBank
	FirstAddress         byte
	WordNumber           byte
	SingleTagTime        byte
	Accuracy             byte
	OffsetTime           byte
}

// DecodeWorkMode decodes the 12-byte GET_WORK_MODE payload.
func DecodeWorkMode(data []byte) (WorkMode, error) {
	if len(data) < WorkModeSize {
		return WorkMode{}, newFrameError(ErrTruncatedPayload, data, "work mode needs %d bytes, got %d", WorkModeSize, len(data))
	}
	return WorkMode{
		WiegandMode:          decodeWiegandMode(data[0]),
		WiegandInterval:      data[1],
		WiegandPulseWidth:    data[2],
		WiegandPulseInterval: data[3],
		InventoryMode:        InventoryWorkMode(data[4]),
		State:                decodeWorkModeState(data[5]),
		MemoryBank:           MemoryBank(data[6]),
		FirstAddress:         data[7],
		WordNumber:           data[8],
		SingleTagTime:        data[9],
		Accuracy:             data[10],
		OffsetTime:           data[11],
	}, nil
}

// Encode returns the 6-byte SET_WORK_MODE payload.
func (w WorkMode) Encode() []byte {
	return []byte{
		byte(w.InventoryMode),
		w.State.Byte(),
		byte(w.MemoryBank),
		w.FirstAddress,
		w.WordNumber,
		w.SingleTagTime,
	}
}

func (w WorkMode) String() string {
	beep, rs485 := "Disabled", "Disabled"
	if w.State.Beep {
		beep = "Enabled"
	}
	if w.State.RS485 {
		rs485 = "Enabled"
	}
	return strings.Join([]string{
		fmt.Sprintf("Wiegand Mode: format=%d bit_order=%d", w.WiegandMode.Format, w.WiegandMode.BitOrder),
		fmt.Sprintf("Wiegand Interval: %d", w.WiegandInterval),
		fmt.Sprintf("Wiegand Pulse Width: %d", w.WiegandPulseWidth),
		fmt.Sprintf("Wiegand Pulse Interval: %d", w.WiegandPulseInterval),
		fmt.Sprintf("Inventory Work Mode: %s", w.InventoryMode),
		fmt.Sprintf("Work Mode State: protocol=%d output=%d address_type=%d rs485=%s beep=%s",
			w.State.Protocol, w.State.Output, w.State.AddressType, rs485, beep),
		fmt.Sprintf("Memory Bank: %s", w.MemoryBank),
		fmt.Sprintf("First Address: %d", w.FirstAddress),
		fmt.Sprintf("Word Number: %d", w.WordNumber),
		fmt.Sprintf("Single Tag Time: %d", w.SingleTagTime),
		fmt.Sprintf("Accuracy: %d", w.Accuracy),
		fmt.Sprintf("Offset Time: %d", w.OffsetTime),
	}, "\n")
}
