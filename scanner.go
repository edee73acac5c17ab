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
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ScannerState is the connection state of a Scanner.
type ScannerState int

const (
	StateDisconnected ScannerState = iota
	StateIdle
	StateScanning
)

func (s ScannerState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	default:
		return fmt.Sprintf("ScannerState(%d)", int(s))
	}
}

// ScannerConfig holds connect and polling parameters.
type ScannerConfig struct {
	Power        int           // output power set on connect, 0..30
	BaudRate     int           // line speed handed to Dialer
	Interval     time.Duration // pause between poll cycles
	ErrorBackoff time.Duration // pause after a failed cycle
	StopGrace    time.Duration // how long StopScanning waits for the loop
	ReadTID      bool          // read the TID of every new tag
	TIDStart     byte          // first TID word
	TIDLength    byte          // TID words
	Password     AccessPassword
	// HandoffTimeout bounds how long a slow subscriber can hold up the loop.
	HandoffTimeout time.Duration
	Dialer         Dialer
}

// DefaultScannerConfig returns default configuration.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		Power:          MaxPower,
		BaudRate:       DefaultBaudRate,
		Interval:       100 * time.Millisecond,
		ErrorBackoff:   1 * time.Second,
		StopGrace:      2 * time.Second,
		ReadTID:        true,
		TIDStart:       2,
		TIDLength:      4,
		HandoffTimeout: DefaultHandoffTimeout,
		Dialer:         Dial,
	}
}

// Scanner connects to one reader, polls it for tags and publishes every tag
// the first time it is seen in a scanning session.
type Scanner struct {
	config ScannerConfig
	events *EventStream
	logger zerolog.Logger

	op sync.Mutex // serializes Connect, StartScanning, StopScanning and Disconnect

	mu      sync.Mutex // guards the fields below, never held across I/O
	state   ScannerState
	handler *ReaderHandler
	port    string
	seen    map[string]struct{}
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewScanner creates a disconnected Scanner. Zero fields of config fall back
// to DefaultScannerConfig.
func NewScanner(config ScannerConfig) *Scanner {
	def := DefaultScannerConfig()
	if config.BaudRate <= 0 {
		config.BaudRate = def.BaudRate
	}
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = def.ErrorBackoff
	}
	if config.StopGrace <= 0 {
		config.StopGrace = def.StopGrace
	}
	if config.HandoffTimeout <= 0 {
		config.HandoffTimeout = def.HandoffTimeout
	}
	if config.Dialer == nil {
		config.Dialer = def.Dialer
	}
	RegisterMetrics()
	return &Scanner{
		config: config,
		events: NewEventStream(config.HandoffTimeout),
		logger: zerolog.Nop(),
		seen:   make(map[string]struct{}),
	}
}

// SetLogger routes scanner and handler logs to w.
func (s *Scanner) SetLogger(w io.Writer) {
	s.SetZerolog(zerolog.New(w).With().Timestamp().Str("component", "uhf").Logger())
}

// SetZerolog installs an already configured logger.
func (s *Scanner) SetZerolog(l zerolog.Logger) {
	s.mu.Lock()
	s.logger = l
	handler := s.handler
	s.mu.Unlock()
	if handler != nil {
		handler.setZerolog(l)
	}
}

// Events returns the stream tag, status and error events are published on.
func (s *Scanner) Events() *EventStream {
	return s.events
}

// log returns a copy of the current logger taken under the lock.
func (s *Scanner) log() *zerolog.Logger {
	s.mu.Lock()
	l := s.logger
	s.mu.Unlock()
	return &l
}

// State returns the current state.
func (s *Scanner) State() ScannerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Port returns the connected port, or "" when disconnected.
func (s *Scanner) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Reader returns the handler of the open connection for one-shot commands.
// Calls through it are serialized with the poll loop.
func (s *Scanner) Reader() (*ReaderHandler, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.handler == nil {
		return nil, ErrNotConnected
	}
	return s.handler, nil
}

// Connect opens port, sets the output power and switches the reader to
// answer mode. Connecting while idle replaces the current connection.
// On failure the port is closed and the scanner stays disconnected.
func (s *Scanner) Connect(port string) error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	if s.state == StateScanning {
		s.mu.Unlock()
		return fmt.Errorf("%w: connect while scanning", ErrInvalidState)
	}
	old := s.handler
	s.handler = nil
	s.port = ""
	s.state = StateDisconnected
	logger := s.logger
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			logger.Warn().Err(err).Str("port", old.transport.RemoteAddr()).Msg("uhf: closing previous port")
		}
	}

	transport, err := s.config.Dialer(port, s.config.BaudRate)
	if err != nil {
		s.reportError(port, fmt.Errorf("connection failed: %w", err))
		return err
	}
	handler := NewReaderHandler(transport)
	handler.setZerolog(logger)

	if err := s.configure(handler); err != nil {
		_ = handler.Close()
		s.reportError(port, fmt.Errorf("connection failed: %w", err))
		return err
	}

	s.mu.Lock()
	s.handler = handler
	s.port = port
	s.state = StateIdle
	s.mu.Unlock()

	logger.Info().Str("port", port).Int("power", s.config.Power).Msg("uhf: reader connected")
	s.reportStatus(port, fmt.Sprintf("Connected to %s at %d baud", port, s.config.BaudRate))
	return nil
}

func (s *Scanner) configure(h *ReaderHandler) error {
	resp, err := h.SetPower(s.config.Power)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetPowerFailed, err)
	}

	mode, _, err := h.GetWorkMode()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetWorkModeFailed, err)
	}
	mode.InventoryMode = AnswerMode
	resp, err = h.SetWorkMode(*mode)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSetWorkModeFailed, err)
	}
	return nil
}

// StartScanning starts the poll loop. It clears the set of seen tags so every
// tag in the field is reported once more. Starting twice is a no-op.
func (s *Scanner) StartScanning() error {
	s.op.Lock()
	defer s.op.Unlock()

	s.mu.Lock()
	switch s.state {
	case StateDisconnected:
		s.mu.Unlock()
		return ErrNotConnected
	case StateScanning:
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	s.seen = make(map[string]struct{})
	s.state = StateScanning
	s.cancel = cancel
	s.done = done
	handler, port := s.handler, s.port
	s.mu.Unlock()

	go s.run(ctx, handler, port, done)
	s.reportStatus(port, "Ready to scan")
	return nil
}

// StopScanning stops the poll loop and leaves the port open. The loop is
// asked to stop and given StopGrace to finish its current cycle. If it does
// not, it is abandoned (it exits once its in-flight exchange returns) and
// ErrStopTimeout is returned; the scanner is idle either way.
func (s *Scanner) StopScanning() error {
	s.op.Lock()
	defer s.op.Unlock()
	return s.stopLocked()
}

func (s *Scanner) stopLocked() error {
	s.mu.Lock()
	if s.state != StateScanning {
		s.mu.Unlock()
		return nil
	}
	cancel, done, port := s.cancel, s.done, s.port
	s.cancel = nil
	s.done = nil
	s.state = StateIdle
	s.mu.Unlock()

	cancel()
	var err error
	select {
	case <-done:
	case <-time.After(s.config.StopGrace):
		err = fmt.Errorf("%w after %v", ErrStopTimeout, s.config.StopGrace)
		s.log().Warn().Str("port", port).Msg("uhf: scan loop abandoned")
	}
	s.reportStatus(port, "Scan stopped")
	return err
}

// Disconnect stops scanning if needed and closes the port.
func (s *Scanner) Disconnect() error {
	s.op.Lock()
	defer s.op.Unlock()

	stopErr := s.stopLocked()

	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return stopErr
	}
	handler, port := s.handler, s.port
	s.handler = nil
	s.port = ""
	s.seen = make(map[string]struct{})
	s.state = StateDisconnected
	s.mu.Unlock()

	if err := handler.Close(); err != nil {
		s.reportError(port, fmt.Errorf("disconnection failed: %w", err))
		return err
	}
	s.reportStatus(port, "Reader disconnected")
	return stopErr
}

// Forget removes a tag from the seen set so the next cycle reports it again.
func (s *Scanner) Forget(epc []byte) {
	s.ForgetHex(TagID(epc))
}

// ForgetHex is Forget keyed by the hex id (as returned by Tag.ID). Case and
// separators are ignored.
func (s *Scanner) ForgetHex(id string) {
	if epc, err := ParseTagID(id); err == nil {
		id = TagID(epc)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, id)
}

// Seen returns the number of distinct tags reported in this session.
func (s *Scanner) Seen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

func (s *Scanner) run(ctx context.Context, h *ReaderHandler, port string, done chan struct{}) {
	defer close(done)
	for {
		if ctx.Err() != nil {
			return
		}
		wait := s.config.Interval
		if err := s.pollOnce(ctx, h, port); err != nil {
			pollCycles.WithLabelValues("error").Inc()
			s.log().Error().Err(err).Str("kind", ErrorKind(err).String()).Str("port", port).Msg("uhf: scan cycle failed")
			s.reportError(port, fmt.Errorf("scan error: %w", err))
			wait = s.config.ErrorBackoff
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// pollOnce runs one inventory round and publishes the tags not seen before.
// A round the reader splits over several frames (status 0x03) is read to the
// end. Tags decoded before a failure are still published.
func (s *Scanner) pollOnce(ctx context.Context, h *ReaderHandler, port string) error {
	round, err := h.InventoryRound()
	var tags [][]byte
	for _, resp := range round {
		switch {
		case resp.Status == StatusNoTag:
		case resp.Status > StatusInventoryFlashFull:
			if err == nil {
				err = resp.Err()
			}
		default:
			batch, decodeErr := DecodeInventory(resp.Data)
			if decodeErr != nil {
				return decodeErr
			}
			tags = append(tags, batch...)
		}
	}
	if err == nil {
		if len(tags) == 0 {
			pollCycles.WithLabelValues("empty").Inc()
			return nil
		}
		pollCycles.WithLabelValues("ok").Inc()
	}

	for _, epc := range tags {
		if ctx.Err() != nil {
			return nil
		}
		if !s.markSeen(epc) {
			continue
		}
		tag := &Tag{EPC: epc}
		if s.config.ReadTID {
			tag.TID = s.readTID(h, epc)
		}
		s.log().Debug().Str("epc", tag.ID()).Str("tid", tag.TIDHex()).Msg("uhf: tag")
		tagsReported.Inc()
		s.events.Publish(Event{Type: EventTag, Tag: tag, Port: port})
	}
	return err
}

// markSeen reports whether epc is new in this session and records it.
func (s *Scanner) markSeen(epc []byte) bool {
	id := TagID(epc)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[id]; ok {
		return false
	}
	s.seen[id] = struct{}{}
	return true
}

// readTID is best effort: any failure yields an empty TID.
func (s *Scanner) readTID(h *ReaderHandler, epc []byte) []byte {
	resp, err := h.ReadMemory(epc, BankTID, s.config.TIDStart, s.config.TIDLength, s.config.Password)
	if err == nil {
		err = resp.Err()
	}
	if err != nil {
		s.log().Debug().Err(err).Str("epc", TagID(epc)).Msg("uhf: TID read failed")
		return nil
	}
	return resp.Data
}

func (s *Scanner) reportStatus(port, status string) {
	s.events.Publish(Event{Type: EventStatus, Status: status, Port: port})
}

func (s *Scanner) reportError(port string, err error) {
	s.events.Publish(Event{Type: EventError, Err: err, Port: port})
}
