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
	"io"
	"strings"
	"sync"
	"time"
)

// FrameTransporter reads and writes length-prefixed reader frames over any
// io.ReadWriteCloser: a serial port or a TCP connection to a serial server.
type FrameTransporter struct {
	port         io.ReadWriteCloser
	address      string
	readTimeout  time.Duration // whole-frame read timeout
	writeTimeout time.Duration
	interFrame   time.Duration // quiet time before each request
	flush        bool
	mu           sync.Mutex
	readBuffer   []byte
}

// FrameTransportConfig holds timing parameters for FrameTransporter.
type FrameTransportConfig struct {
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	InterFrameDelay time.Duration
	// FlushBeforeWrite discards stale input (e.g. a late answer to a request
	// that already timed out) before sending a new request.
	FlushBeforeWrite bool
}

// DefaultFrameTransportConfig returns default configuration.
func DefaultFrameTransportConfig() FrameTransportConfig {
	return FrameTransportConfig{
		ReadTimeout:      1 * time.Second,
		WriteTimeout:     1 * time.Second,
		InterFrameDelay:  2 * time.Millisecond,
		FlushBeforeWrite: true,
	}
}

// idleBackoff bounds the spin rate when the port returns no data without
// blocking.
const idleBackoff = 2 * time.Millisecond

type readDeadliner interface {
	SetReadDeadline(t time.Time) error
}

type writeDeadliner interface {
	SetWriteDeadline(t time.Time) error
}

// NewFrameTransporter wraps an already open port.
func NewFrameTransporter(port io.ReadWriteCloser, address string, config FrameTransportConfig) *FrameTransporter {
	if config.ReadTimeout <= 0 {
		config.ReadTimeout = DefaultFrameTransportConfig().ReadTimeout
	}
	return &FrameTransporter{
		port:         port,
		address:      address,
		readTimeout:  config.ReadTimeout,
		writeTimeout: config.WriteTimeout,
		interFrame:   config.InterFrameDelay,
		flush:        config.FlushBeforeWrite,
		readBuffer:   make([]byte, MaxFrameSize),
	}
}

// SetTimeout updates the frame read timeout.
func (t *FrameTransporter) SetTimeout(timeout time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.readTimeout = timeout
}

// RemoteAddr returns the port name or network address.
func (t *FrameTransporter) RemoteAddr() string {
	return t.address
}

// WriteRaw writes a complete frame.
func (t *FrameTransporter) WriteRaw(data []byte) error {
	if len(data) == 0 {
		return &TransportError{Op: "write", Err: fmt.Errorf("%w: empty frame", ErrWriteFailed)}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return &TransportError{Op: "write", Err: ErrTransportClosed}
	}

	if t.flush {
		t.drain()
	}
	if t.interFrame > 0 {
		time.Sleep(t.interFrame)
	}

	if c, ok := t.port.(writeDeadliner); ok && t.writeTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(t.writeTimeout))
		defer c.SetWriteDeadline(time.Time{})
	}
	written := 0
	for written < len(data) {
		n, err := t.port.Write(data[written:])
		if err != nil {
			return &TransportError{Op: "write", Err: fmt.Errorf("%w after %d bytes: %v", ErrWriteFailed, written, err)}
		}
		if n == 0 {
			return &TransportError{Op: "write", Err: fmt.Errorf("%w: port accepted 0 bytes", ErrWriteFailed)}
		}
		written += n
	}
	return nil
}

// ReadFrame reads one frame: the length byte first, then exactly Len more
// bytes. If the timeout elapses after part of a frame arrived, the partial
// bytes are returned so the codec can report the exact framing fault.
func (t *FrameTransporter) ReadFrame() ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil, &TransportError{Op: "read", Err: ErrTransportClosed}
	}

	deadline := time.Now().Add(t.readTimeout)
	if c, ok := t.port.(readDeadliner); ok {
		_ = c.SetReadDeadline(deadline)
		defer c.SetReadDeadline(time.Time{})
	}

	var frame []byte
	want := 1
	for len(frame) < want {
		if !time.Now().Before(deadline) {
			break
		}
		n, err := t.port.Read(t.readBuffer[:want-len(frame)])
		if n > 0 {
			if len(frame) == 0 {
				want = int(t.readBuffer[0]) + 1
			}
			frame = append(frame, t.readBuffer[:n]...)
			continue
		}
		if err != nil && !isTimeout(err) {
			return nil, &TransportError{Op: "read", Err: err}
		}
		time.Sleep(idleBackoff)
	}

	if len(frame) == 0 {
		return nil, &TransportError{Op: "read", Err: fmt.Errorf("%w after %v", ErrReadTimeout, t.readTimeout)}
	}
	return frame, nil
}

// drain discards whatever is waiting in the input buffer.
func (t *FrameTransporter) drain() {
	if c, ok := t.port.(readDeadliner); ok {
		_ = c.SetReadDeadline(time.Now().Add(idleBackoff))
		defer c.SetReadDeadline(time.Time{})
	}
	for discarded := 0; discarded < 4*MaxFrameSize; {
		n, err := t.port.Read(t.readBuffer)
		if n <= 0 || err != nil {
			return
		}
		discarded += n
	}
}

// Close closes the underlying port.
func (t *FrameTransporter) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.port == nil {
		return nil
	}
	err := t.port.Close()
	t.port = nil
	return err
}

// IsConnected returns true if the port is still open.
func (t *FrameTransporter) IsConnected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.port != nil
}

// isTimeout recognises the timeout errors of net.Conn and of serial drivers,
// which report "serial: timeout" as a plain error value.
func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
