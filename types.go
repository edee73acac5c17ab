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
	"io"
)

// Command opcodes of the UHF reader protocol.
const (
	CmdInventory      byte = 0x01
	CmdReadMemory     byte = 0x02
	CmdWriteMemory    byte = 0x03
	CmdWriteEPC       byte = 0x04
	CmdSetLock        byte = 0x06
	CmdSetReaderPower byte = 0x2F
	CmdSetWorkMode    byte = 0x35
	CmdGetWorkMode    byte = 0x36
)

// Response status codes.
const (
	StatusSuccess            byte = 0x00
	StatusInventoryComplete  byte = 0x01
	StatusInventoryTimeout   byte = 0x02
	StatusInventoryMoreData  byte = 0x03
	StatusInventoryFlashFull byte = 0x04
	StatusAntennaError       byte = 0xF8
	StatusNoTag              byte = 0xFB
	StatusTagError           byte = 0xFC
	StatusCommandError       byte = 0xFE
	StatusCRCError           byte = 0xFF
)

const (
	// BroadcastAddress reaches any reader on the link.
	BroadcastAddress byte = 0xFF
	// DefaultBaudRate is the fixed line speed of the reader family.
	DefaultBaudRate = 57600
	// MaxPower is the highest accepted output power level.
	MaxPower = 30
)

// AccessPassword is the 32-bit tag access password, sent big-endian.
type AccessPassword [4]byte

// ReaderApi defines one call per reader command. Every command call writes a
// single request frame and reads a single response frame. ReadActive only
// reads, for readers switched to active mode.
type ReaderApi interface {
	SetLogger(io.Writer)                                                                                            // SetLogger sets the debug/error log sink
	Exchange(cmd Command) (*Response, error)                                                                        // Exchange sends any command and returns its response
	Inventory() (*Response, error)                                                                                  // Inventory runs one answer-mode inventory round
	InventoryTID(startAddress, length byte) (*Response, error)                                                      // InventoryTID runs inventory returning a TID window
	ReadMemory(epc []byte, bank MemoryBank, startAddress, length byte, pwd AccessPassword) (*Response, error)       // ReadMemory reads words from a tag memory bank
	WriteMemory(epc []byte, bank MemoryBank, startAddress byte, data []byte, pwd AccessPassword) (*Response, error) // WriteMemory writes words to a tag memory bank
	WriteEPC(epc []byte, pwd AccessPassword) (*Response, error)                                                     // WriteEPC writes a new EPC to the tag in the field
	Lock(epc []byte, selector, protect byte, pwd AccessPassword) (*Response, error)                                 // Lock sets a lock/protect state on a tag area
	SetPower(level int) (*Response, error)                                                                          // SetPower sets reader output power (0..30)
	GetWorkMode() (*WorkMode, *Response, error)                                                                     // GetWorkMode reads the reader work mode block
	SetWorkMode(mode WorkMode) (*Response, error)                                                                   // SetWorkMode writes the settable work mode fields
	ReadActive(ctx context.Context, fn func(*Response) error) error                                                 // ReadActive consumes frames pushed in active mode
	Close() error                                                                                                   // Close closes the transport
}
