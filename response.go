package uhf

import (
	"fmt"
	"strings"
)

// Response is a decoded, checksum-verified response frame.
type Response struct {
	Length   byte
	Address  byte
	Opcode   byte
	Status   byte // 0x00 on success, device-specific code otherwise
	Data     []byte
	Checksum [2]byte
	Raw      []byte
}

// OK reports whether the device returned StatusSuccess.
func (r *Response) OK() bool {
	return r.Status == StatusSuccess
}

// Err returns a *DeviceStatusError when the status byte is non-zero.
func (r *Response) Err() error {
	if r.Status == StatusSuccess {
		return nil
	}
	return &DeviceStatusError{Opcode: r.Opcode, Status: r.Status}
}

func (r *Response) String() string {
	var b strings.Builder
	b.WriteString(">>> START RESPONSE ================================\n")
	fmt.Fprintf(&b, "RESPONSE       >> %s\n", HexReadable(r.Raw, " "))
	fmt.Fprintf(&b, "READER ADDRESS >> %02X\n", r.Address)
	fmt.Fprintf(&b, "COMMAND        >> %02X\n", r.Opcode)
	fmt.Fprintf(&b, "STATUS         >> %02X\n", r.Status)
	if len(r.Data) > 0 {
		fmt.Fprintf(&b, "DATA           >> %s\n", HexReadable(r.Data, " "))
	}
	fmt.Fprintf(&b, "CHECKSUM       >> %s\n", HexReadable(r.Checksum[:], " "))
	b.WriteString(">>> END RESPONSE   ================================")
	return b.String()
}
