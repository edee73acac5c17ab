package uhf

import "fmt"

// maxPayloadLen keeps the length byte (4 + payload) within a single byte.
const maxPayloadLen = 0xFF - 4

// Command is one request to the reader. It is immutable once built.
type Command struct {
	opcode  byte
	address byte
	payload []byte
}

// NewCommand builds a broadcast command with the given payload.
func NewCommand(opcode byte, payload ...byte) (Command, error) {
	return NewAddressedCommand(BroadcastAddress, opcode, payload)
}

// NewAddressedCommand builds a command for a specific reader address.
func NewAddressedCommand(address, opcode byte, payload []byte) (Command, error) {
	if len(payload) > maxPayloadLen {
		return Command{}, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLong, len(payload), maxPayloadLen)
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return Command{opcode: opcode, address: address, payload: cp}, nil
}

// Opcode returns the command code.
func (c Command) Opcode() byte { return c.opcode }

// Address returns the target reader address.
func (c Command) Address() byte { return c.address }

// Payload returns a copy of the command parameters.
func (c Command) Payload() []byte {
	cp := make([]byte, len(c.payload))
	copy(cp, c.payload)
	return cp
}

// Serialize returns the wire frame:
// Len(1) + Adr(1) + Cmd(1) + Data(n) + CRC_L(1) + CRC_H(1), with Len = n + 4.
func (c Command) Serialize() []byte {
	length := byte(len(c.payload) + 4)
	frame := make([]byte, 0, int(length)+1)
	frame = append(frame, length, c.address, c.opcode)
	frame = append(frame, c.payload...)
	lo, hi := Checksum(frame)
	return append(frame, lo, hi)
}

func (c Command) String() string {
	return fmt.Sprintf("cmd=0x%02X adr=0x%02X data=[%s]", c.opcode, c.address, HexReadable(c.payload, " "))
}
