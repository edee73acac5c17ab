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

// MinFrameSize is Len + Adr + Cmd + Status + CRC(2).
const MinFrameSize = 6

// MaxFrameSize is the largest frame a one-byte length can describe.
const MaxFrameSize = 0xFF + 1

// ParseResponse validates a response frame and decodes it.
//
// The declared length byte counts every byte after itself, so a complete frame
// is Len+1 bytes long. Bytes past the declared end are ignored.
func ParseResponse(frame []byte) (*Response, error) {
	if len(frame) < MinFrameSize {
		return nil, newFrameError(ErrFrameTooShort, frame, "%d bytes (minimum %d)", len(frame), MinFrameSize)
	}

	total := int(frame[0]) + 1
	if total > len(frame) {
		return nil, newFrameError(ErrLengthMismatch, frame, "declared %d bytes, got %d", total, len(frame))
	}
	if total < MinFrameSize {
		return nil, newFrameError(ErrFrameTooShort, frame, "declared length %d", frame[0])
	}

	raw := frame[:total]
	dataEnd := total - 2
	lo, hi := Checksum(raw[:dataEnd])
	if raw[dataEnd] != lo || raw[dataEnd+1] != hi {
		return nil, newFrameError(ErrChecksumMismatch, raw, "calculated=%02X%02X, received=%02X%02X",
			lo, hi, raw[dataEnd], raw[dataEnd+1])
	}

	data := make([]byte, dataEnd-4)
	copy(data, raw[4:dataEnd])
	cp := make([]byte, total)
	copy(cp, raw)

	return &Response{
		Length:   raw[0],
		Address:  raw[1],
		Opcode:   raw[2],
		Status:   raw[3],
		Data:     data,
		Checksum: [2]byte{raw[dataEnd], raw[dataEnd+1]},
		Raw:      cp,
	}, nil
}

// VerifyFrame reports whether frame is exactly one complete frame with a
// valid checksum.
func VerifyFrame(frame []byte) bool {
	if len(frame) < MinFrameSize {
		return false
	}
	if int(frame[0])+1 != len(frame) {
		return false
	}
	lo, hi := Checksum(frame[:len(frame)-2])
	return frame[len(frame)-2] == lo && frame[len(frame)-1] == hi
}
