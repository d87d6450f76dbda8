// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

// Package visca provides a Go implementation of the VISCA-over-IP camera control protocol.
//
// VISCA-over-IP wraps classic VISCA command payloads in an 8-byte header carrying
// the payload type, the payload length and a per-device sequence number. This
// package provides frame encoding/decoding, reply classification, typed command
// builders and the value mappers that turn angles and percentages into the
// protocol's 16-bit position fields.
package visca

// DefaultPort is the UDP port VISCA-over-IP cameras listen on.
const DefaultPort = 52381

// Frame layout
const (
	HeaderSize     = 8
	MaxPayloadSize = 0xFFFF
)

// PayloadType identifies the kind of frame carried in the header.
type PayloadType uint16

// Payload types
const (
	TypeCommand        PayloadType = 0x0100
	TypeInquiry        PayloadType = 0x0110
	TypeReply          PayloadType = 0x0111
	TypeDeviceSetting  PayloadType = 0x0120
	TypeControlCommand PayloadType = 0x0200
	TypeControlReply   PayloadType = 0x0201
)

// Known reports whether t is one of the payload types defined by the protocol.
func (t PayloadType) Known() bool {
	switch t {
	case TypeCommand, TypeInquiry, TypeReply, TypeDeviceSetting, TypeControlCommand, TypeControlReply:
		return true
	}
	return false
}

// Control command payloads (sent with TypeControlCommand)
const (
	ControlReset byte = 0x01
	ControlError byte = 0x0F
)

// VISCA message bytes
const (
	addrCamera1 = 0x81
	terminator  = 0xFF

	catCommand = 0x01
	catInquiry = 0x09
)

// ReplyKind classifies a reply payload by its second byte.
type ReplyKind int

// Reply kinds
const (
	ReplyUnknown ReplyKind = iota
	ReplyAck
	ReplyCompletion
	ReplyError
)

// VISCA error codes (third byte of an error reply)
const (
	ErrCodeMessageLength = 0x01
	ErrCodeSyntax        = 0x02
	ErrCodeBufferFull    = 0x03
	ErrCodeCanceled      = 0x04
	ErrCodeNoSocket      = 0x05
	ErrCodeNotExecutable = 0x41
)

// Focus mode values returned by the focus mode inquiry
const (
	FocusModeAuto   = 0x02
	FocusModeManual = 0x03
)

// Power values returned by the power inquiry
const (
	PowerOn      = 0x02
	PowerStandby = 0x03
)
