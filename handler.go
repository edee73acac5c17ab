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
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ReaderHandler implements ReaderApi on top of a Transport. It holds no retry
// logic: one call is one request frame and one response frame.
type ReaderHandler struct {
	transport       Transport
	address         byte
	logger          zerolog.Logger
	mu              sync.Mutex // one exchange on the wire at a time
	lastStatusError *DeviceStatusError
}

// NewReaderHandler creates a handler talking to the broadcast address.
func NewReaderHandler(transport Transport) *ReaderHandler {
	return &ReaderHandler{
		transport: transport,
		address:   BroadcastAddress,
		logger:    zerolog.Nop(),
	}
}

// SetLogger routes debug and error logs to w.
func (h *ReaderHandler) SetLogger(w io.Writer) {
	h.setZerolog(zerolog.New(w).With().Timestamp().Str("component", "uhf").Logger())
}

// setZerolog shares an existing logger, used by Scanner.
func (h *ReaderHandler) setZerolog(l zerolog.Logger) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.logger = l
}

// SetAddress targets a specific reader address instead of broadcast. Call it
// before the handler is shared.
func (h *ReaderHandler) SetAddress(address byte) {
	h.address = address
}

// GetLastStatusError returns the last non-zero device status seen, or nil.
func (h *ReaderHandler) GetLastStatusError() *DeviceStatusError {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.lastStatusError
}

// Close closes the transport.
func (h *ReaderHandler) Close() error {
	return h.transport.Close()
}

// Exchange writes cmd and reads exactly one response frame.
// A non-zero status is not an error here; inspect Response.Err.
func (h *ReaderHandler) Exchange(cmd Command) (*Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.exchangeLocked(cmd)
}

func (h *ReaderHandler) exchangeLocked(cmd Command) (*Response, error) {
	start := time.Now()
	resp, err := h.exchange(cmd)
	recordExchange(cmd.Opcode(), err, time.Since(start))
	if err != nil {
		h.logger.Error().Err(err).Str("kind", ErrorKind(err).String()).
			Str("port", h.transport.RemoteAddr()).Msgf("uhf: exchange 0x%02X failed", cmd.Opcode())
		return nil, err
	}
	if statusErr, ok := resp.Err().(*DeviceStatusError); ok {
		h.lastStatusError = statusErr
		h.logger.Debug().Str("status", fmt.Sprintf("0x%02X", resp.Status)).
			Msgf("uhf: opcode 0x%02X returned %s", cmd.Opcode(), StatusText(resp.Status))
	}
	return resp, nil
}

func (h *ReaderHandler) exchange(cmd Command) (*Response, error) {
	request := cmd.Serialize()
	h.logger.Debug().Str("tx", HexReadable(request, " ")).Msg("uhf: send")
	if err := h.transport.WriteRaw(request); err != nil {
		return nil, err
	}
	return h.receive(cmd.Opcode())
}

// receive reads one response frame and checks it answers opcode.
func (h *ReaderHandler) receive(opcode byte) (*Response, error) {
	frame, err := h.transport.ReadFrame()
	if err != nil {
		return nil, err
	}
	h.logger.Debug().Str("rx", HexReadable(frame, " ")).Msg("uhf: receive")

	resp, err := ParseResponse(frame)
	if err != nil {
		return nil, err
	}
	if resp.Opcode != opcode {
		return nil, newFrameError(ErrUnexpectedOpcode, resp.Raw, "sent 0x%02X, got 0x%02X", opcode, resp.Opcode)
	}
	return resp, nil
}

func (h *ReaderHandler) send(opcode byte, payload []byte) (*Response, error) {
	cmd, err := NewAddressedCommand(h.address, opcode, payload)
	if err != nil {
		return nil, err
	}
	return h.Exchange(cmd)
}

// maxInventoryFrames bounds the frames read for one inventory round.
const maxInventoryFrames = 32

// wordLength is the EPC/data length in 16-bit words. Odd byte lengths are
// truncated, which is what the reader firmware expects to receive.
func wordLength(b []byte) byte {
	return byte(len(b) / 2)
}

// Inventory runs one answer-mode inventory and returns its first frame.
// Use InventoryRound when the reader may split the tags over several frames.
func (h *ReaderHandler) Inventory() (*Response, error) {
	return h.send(CmdInventory, nil)
}

// InventoryRound runs one inventory and keeps reading while the reader
// answers StatusInventoryMoreData, so every frame of the round is returned
// in order. If a follow-up frame fails, the frames read so far are returned
// together with the error.
func (h *ReaderHandler) InventoryRound() ([]*Response, error) {
	cmd, err := NewAddressedCommand(h.address, CmdInventory, nil)
	if err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	resp, err := h.exchangeLocked(cmd)
	if err != nil {
		return nil, err
	}
	round := []*Response{resp}
	for resp.Status == StatusInventoryMoreData {
		if len(round) >= maxInventoryFrames {
			return round, newFrameError(ErrTruncatedInventory, resp.Raw, "more than %d frames in one round", maxInventoryFrames)
		}
		start := time.Now()
		resp, err = h.receive(CmdInventory)
		recordExchange(CmdInventory, err, time.Since(start))
		if err != nil {
			h.logger.Error().Err(err).Str("kind", ErrorKind(err).String()).
				Str("port", h.transport.RemoteAddr()).Msg("uhf: inventory follow-up frame failed")
			return round, err
		}
		round = append(round, resp)
	}
	return round, nil
}

// InventoryTID runs an inventory that also returns a TID window of length
// words starting at startAddress.
func (h *ReaderHandler) InventoryTID(startAddress, length byte) (*Response, error) {
	return h.send(CmdInventory, []byte{startAddress, length})
}

// ReadMemory reads length words from bank starting at startAddress.
// Payload: ENum, EPC, Mem, WordPtr, Num, Pwd(4).
func (h *ReaderHandler) ReadMemory(epc []byte, bank MemoryBank, startAddress, length byte, pwd AccessPassword) (*Response, error) {
	payload := make([]byte, 0, len(epc)+8)
	payload = append(payload, wordLength(epc))
	payload = append(payload, epc...)
	payload = append(payload, byte(bank), startAddress, length)
	payload = append(payload, pwd[:]...)
	return h.send(CmdReadMemory, payload)
}

// WriteMemory writes data (whole words) to bank starting at startAddress.
// Payload: WNum, ENum, EPC, Mem, WordPtr, Data, Pwd(4).
func (h *ReaderHandler) WriteMemory(epc []byte, bank MemoryBank, startAddress byte, data []byte, pwd AccessPassword) (*Response, error) {
	payload := make([]byte, 0, len(epc)+len(data)+8)
	payload = append(payload, wordLength(data), wordLength(epc))
	payload = append(payload, epc...)
	payload = append(payload, byte(bank), startAddress)
	payload = append(payload, data...)
	payload = append(payload, pwd[:]...)
	return h.send(CmdWriteMemory, payload)
}

// WriteEPC writes a new EPC to the single tag in the field.
// Payload: ENum, Pwd(4), WEPC.
func (h *ReaderHandler) WriteEPC(epc []byte, pwd AccessPassword) (*Response, error) {
	payload := make([]byte, 0, len(epc)+5)
	payload = append(payload, wordLength(epc))
	payload = append(payload, pwd[:]...)
	payload = append(payload, epc...)
	return h.send(CmdWriteEPC, payload)
}

// Lock sets the protection of a tag area.
// Payload: ENum, EPC, Select, SetProtect, Pwd(4).
func (h *ReaderHandler) Lock(epc []byte, selector, protect byte, pwd AccessPassword) (*Response, error) {
	payload := make([]byte, 0, len(epc)+7)
	payload = append(payload, wordLength(epc))
	payload = append(payload, epc...)
	payload = append(payload, selector, protect)
	payload = append(payload, pwd[:]...)
	return h.send(CmdSetLock, payload)
}

// SetPower sets the output power. Levels outside 0..30 are rejected before
// anything is written to the port.
func (h *ReaderHandler) SetPower(level int) (*Response, error) {
	if level < 0 || level > MaxPower {
		return nil, fmt.Errorf("%w: %d", ErrPowerOutOfRange, level)
	}
	return h.send(CmdSetReaderPower, []byte{byte(level)})
}

// GetWorkMode reads the work mode block. A non-zero status is returned as a
// *DeviceStatusError together with the response.
func (h *ReaderHandler) GetWorkMode() (*WorkMode, *Response, error) {
	resp, err := h.send(CmdGetWorkMode, nil)
	if err != nil {
		return nil, nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, resp, err
	}
	mode, err := DecodeWorkMode(resp.Data)
	if err != nil {
		return nil, resp, err
	}
	return &mode, resp, nil
}

// SetWorkMode writes the six settable work mode fields.
func (h *ReaderHandler) SetWorkMode(mode WorkMode) (*Response, error) {
	return h.send(CmdSetWorkMode, mode.Encode())
}

// ReadActive reads the frames a reader in active mode pushes on its own and
// hands each one to fn. It returns when ctx is done, when fn returns an
// error or when the transport fails. Read timeouts mean nothing was pushed
// yet and are not errors. Frames that do not parse are logged and skipped.
// The handler is held for the whole call, so no command can be sent
// meanwhile.
func (h *ReaderHandler) ReadActive(ctx context.Context, fn func(*Response) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		frame, err := h.transport.ReadFrame()
		if errors.Is(err, ErrReadTimeout) {
			continue
		}
		if err != nil {
			h.logger.Error().Err(err).Str("port", h.transport.RemoteAddr()).Msg("uhf: active read failed")
			return err
		}
		h.logger.Debug().Str("rx", HexReadable(frame, " ")).Msg("uhf: receive")

		resp, err := ParseResponse(frame)
		if err != nil {
			h.logger.Warn().Err(err).Str("rx", HexReadable(frame, " ")).Msg("uhf: active frame dropped")
			continue
		}
		if err := fn(resp); err != nil {
			return err
		}
	}
}
