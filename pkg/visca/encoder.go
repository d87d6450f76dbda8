// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"encoding/binary"
	"fmt"
)

// Encode encodes a frame to wire format.
//
// Layout: payload type (2 bytes, big-endian), payload length (2 bytes,
// big-endian), sequence number (4 bytes, big-endian), payload.
func Encode(f Frame) ([]byte, error) {
	if len(f.Payload) > MaxPayloadSize {
		return nil, fmt.Errorf("payload too large: %d bytes (max %d)", len(f.Payload), MaxPayloadSize)
	}

	data := make([]byte, HeaderSize+len(f.Payload))
	binary.BigEndian.PutUint16(data[0:2], uint16(f.Type))
	binary.BigEndian.PutUint16(data[2:4], uint16(len(f.Payload)))
	binary.BigEndian.PutUint32(data[4:8], f.Sequence)
	copy(data[HeaderSize:], f.Payload)

	return data, nil
}

// MustEncode encodes a frame and panics on error.
// Use Encode for payloads that are not known to be small.
func MustEncode(f Frame) []byte {
	data, err := Encode(f)
	if err != nil {
		panic(fmt.Sprintf("visca: encode error: %v", err))
	}
	return data
}

// EncodeCommand is shorthand for encoding a TypeCommand frame.
func EncodeCommand(payload []byte, seq uint32) ([]byte, error) {
	return Encode(Frame{Type: TypeCommand, Payload: payload, Sequence: seq})
}
