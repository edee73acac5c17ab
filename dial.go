package uhf

import (
	"fmt"
	"net"
	"strings"
	"time"

	serial "github.com/hootrhino/goserial"
)

// serialPollTimeout is the per-Read timeout handed to the serial driver.
// FrameTransporter enforces the whole-frame timeout on top of it.
const serialPollTimeout = 20 * time.Millisecond

// tcpScheme marks addresses served by a TCP serial server.
const tcpScheme = "tcp://"

// Dial opens a transport for address. "tcp://host:port" dials a serial
// server; anything else is treated as a local serial device (/dev/ttyUSB0, COM3).
func Dial(address string, baudRate int) (Transport, error) {
	return DialWithConfig(address, baudRate, DefaultFrameTransportConfig())
}

// DialWithConfig is Dial with explicit frame timing.
func DialWithConfig(address string, baudRate int, config FrameTransportConfig) (Transport, error) {
	var (
		t   *FrameTransporter
		err error
	)
	if strings.HasPrefix(address, tcpScheme) {
		t, err = DialTCP(strings.TrimPrefix(address, tcpScheme), config)
	} else {
		t, err = DialSerial(address, baudRate, config)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DialSerial opens a serial port at 8N1.
func DialSerial(device string, baudRate int, config FrameTransportConfig) (*FrameTransporter, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}
	port, err := serial.Open(&serial.Config{
		Address:  device,
		BaudRate: baudRate,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  serialPollTimeout,
	})
	if err != nil {
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("%w: %s: %v", ErrPortUnavailable, device, err)}
	}
	return NewFrameTransporter(port, device, config), nil
}

// DialTCP connects to a reader behind a TCP serial server.
func DialTCP(hostport string, config FrameTransportConfig) (*FrameTransporter, error) {
	timeout := config.ReadTimeout
	if timeout <= 0 {
		timeout = DefaultFrameTransportConfig().ReadTimeout
	}
	conn, err := net.DialTimeout("tcp", hostport, timeout)
	if err != nil {
		return nil, &TransportError{Op: "open", Err: fmt.Errorf("%w: %s: %v", ErrPortUnavailable, hostport, err)}
	}
	return NewFrameTransporter(conn, tcpScheme+hostport, config), nil
}
