// Copyright (C) 2024  wwhai
//
// This program is free software; you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation; either version 2 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License along
// with this program; if not, see <https://www.gnu.org/licenses/>.

package uhf

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can tell recoverable I/O trouble from
// corrupted frames, device refusals and programming mistakes.
type Kind int

const (
	KindUnknown Kind = iota
	KindTransport
	KindFrame
	KindDevice
	KindPrecondition
	KindState
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindFrame:
		return "frame"
	case KindDevice:
		return "device"
	case KindPrecondition:
		return "precondition"
	case KindState:
		return "state"
	default:
		return "unknown"
	}
}

// Transport errors.
var (
	ErrPortUnavailable = errors.New("uhf: port unavailable")
	ErrWriteFailed     = errors.New("uhf: write failed")
	ErrReadTimeout     = errors.New("uhf: read timeout")
	ErrTransportClosed = errors.New("uhf: transport closed")
)

// Frame errors.
var (
	ErrFrameTooShort      = errors.New("uhf: frame too short")
	ErrLengthMismatch     = errors.New("uhf: frame length mismatch")
	ErrChecksumMismatch   = errors.New("uhf: frame checksum mismatch")
	ErrTruncatedInventory = errors.New("uhf: truncated inventory payload")
	ErrTruncatedPayload   = errors.New("uhf: truncated response payload")
	ErrUnexpectedOpcode   = errors.New("uhf: unexpected response opcode")
)

// Precondition errors. These never reach the wire.
var (
	ErrPowerOutOfRange = errors.New("uhf: power level out of range (0..30)")
	ErrPayloadTooLong  = errors.New("uhf: command payload too long")
)

// Connect sequence and lifecycle errors.
var (
	ErrSetPowerFailed    = errors.New("uhf: set power failed")
	ErrSetWorkModeFailed = errors.New("uhf: set work mode failed")
	ErrNotConnected      = errors.New("uhf: reader not connected")
	ErrInvalidState      = errors.New("uhf: invalid scanner state")
	ErrStopTimeout       = errors.New("uhf: scan loop did not stop in time")
)

// FrameError reports a malformed or corrupted frame. The whole frame is
// discarded; Raw is kept only for diagnostics.
type FrameError struct {
	Err    error
	Raw    []byte
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%v [% X]", e.Err, e.Raw)
	}
	return fmt.Sprintf("%v: %s [% X]", e.Err, e.Detail, e.Raw)
}

func (e *FrameError) Unwrap() error { return e.Err }

func newFrameError(err error, raw []byte, format string, args ...interface{}) *FrameError {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return &FrameError{Err: err, Raw: cp, Detail: fmt.Sprintf(format, args...)}
}

// TransportError wraps a failure of the underlying port or connection.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("uhf: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DeviceStatusError is a well-formed response carrying a non-zero status byte.
// The status is reported verbatim.
type DeviceStatusError struct {
	Opcode byte
	Status byte
}

func (e *DeviceStatusError) Error() string {
	return fmt.Sprintf("uhf: device status 0x%02X for opcode 0x%02X (%s)",
		e.Status, e.Opcode, StatusText(e.Status))
}

// StatusText returns a short description for the documented status codes.
// Unknown codes are still surfaced by their hex value.
func StatusText(status byte) string {
	switch status {
	case StatusSuccess:
		return "success"
	case StatusInventoryComplete:
		return "inventory complete"
	case StatusInventoryTimeout:
		return "inventory scan time overflow"
	case StatusInventoryMoreData:
		return "more data pending"
	case StatusInventoryFlashFull:
		return "reader flash full"
	case 0x05:
		return "access password error"
	case 0x09:
		return "kill password error"
	case 0x0A:
		return "kill password is zero"
	case 0x0B:
		return "tag does not support command"
	case 0x0C:
		return "access password is zero"
	case 0x0D:
		return "tag protected, cannot set again"
	case 0x0E:
		return "tag unprotected, no need to reset"
	case 0x10:
		return "locked bytes, write fail"
	case 0x11:
		return "cannot lock"
	case 0x12:
		return "already locked, cannot lock again"
	case 0x13:
		return "parameter save fail"
	case 0x14:
		return "cannot adjust"
	case StatusAntennaError:
		return "antenna error"
	case StatusNoTag:
		return "no tag operable"
	case StatusTagError:
		return "tag returned error code"
	case StatusCommandError:
		return "command length or parameter error"
	case StatusCRCError:
		return "illegal command or crc error"
	default:
		return "unknown status"
	}
}

// ErrorKind classifies err. Wrapped errors are unwrapped.
func ErrorKind(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var frameErr *FrameError
	var statusErr *DeviceStatusError
	var transportErr *TransportError
	switch {
	case errors.As(err, &statusErr):
		return KindDevice
	case errors.As(err, &frameErr):
		return KindFrame
	case errors.As(err, &transportErr):
		return KindTransport
	}
	switch {
	case errors.Is(err, ErrFrameTooShort), errors.Is(err, ErrLengthMismatch),
		errors.Is(err, ErrChecksumMismatch), errors.Is(err, ErrTruncatedInventory),
		errors.Is(err, ErrTruncatedPayload), errors.Is(err, ErrUnexpectedOpcode):
		return KindFrame
	case errors.Is(err, ErrPortUnavailable), errors.Is(err, ErrWriteFailed),
		errors.Is(err, ErrReadTimeout), errors.Is(err, ErrTransportClosed):
		return KindTransport
	case errors.Is(err, ErrPowerOutOfRange), errors.Is(err, ErrPayloadTooLong):
		return KindPrecondition
	case errors.Is(err, ErrNotConnected), errors.Is(err, ErrInvalidState),
		errors.Is(err, ErrStopTimeout):
		return KindState
	}
	return KindUnknown
}
