// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrDecode is the sentinel matched by every DecodeError.
var ErrDecode = errors.New("decode error")

// DecodeError describes a datagram that could not be parsed as a frame.
type DecodeError struct {
	Reason string
	Data   []byte
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("visca: %s (% X)", e.Reason, e.Data)
}

// Is lets errors.Is match ErrDecode
func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// Decode parses one datagram into a frame.
// Short input, a length field that disagrees with the datagram size, and
// unknown payload types are reported as *DecodeError.
func Decode(data []byte) (Frame, error) {
	if len(data) < HeaderSize {
		return Frame{}, &DecodeError{
			Reason: fmt.Sprintf("short frame: %d bytes (header is %d)", len(data), HeaderSize),
			Data:   data,
		}
	}

	t := PayloadType(binary.BigEndian.Uint16(data[0:2]))
	if !t.Known() {
		return Frame{}, &DecodeError{Reason: fmt.Sprintf("unknown payload type 0x%04X", uint16(t)), Data: data}
	}

	length := int(binary.BigEndian.Uint16(data[2:4]))
	if length != len(data)-HeaderSize {
		return Frame{}, &DecodeError{
			Reason: fmt.Sprintf("length mismatch: header says %d, got %d", length, len(data)-HeaderSize),
			Data:   data,
		}
	}

	return NewFrame(t, data[HeaderSize:], binary.BigEndian.Uint32(data[4:8])), nil
}
