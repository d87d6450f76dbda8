// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

// Frame represents a VISCA-over-IP frame: header fields plus the VISCA payload.
type Frame struct {
	Type     PayloadType
	Payload  []byte
	Sequence uint32
}

// NewFrame creates a frame with a copy of payload.
func NewFrame(t PayloadType, payload []byte, seq uint32) Frame {
	p := make([]byte, len(payload))
	copy(p, payload)
	return Frame{Type: t, Payload: p, Sequence: seq}
}

// Acknowledges reports whether the frame is correlated with a frame sent with seq.
// Devices only echo the sequence reliably in its low byte, so only that byte is compared.
func (f Frame) Acknowledges(seq uint32) bool {
	return byte(f.Sequence) == byte(seq)
}

// Kind classifies the frame's payload (see ClassifyReply).
func (f Frame) Kind() ReplyKind {
	if f.Type == TypeControlReply {
		if len(f.Payload) > 0 && f.Payload[0] == ControlReset {
			return ReplyCompletion
		}
		return ReplyError
	}
	return ClassifyReply(f.Payload)
}

// IsReply returns true if the frame travels device → controller
func (f Frame) IsReply() bool {
	return f.Type == TypeReply || f.Type == TypeControlReply
}

// ClassifyReply classifies a VISCA reply payload such as "90 41 FF".
// The high nibble of the second byte carries the kind; the low nibble is the socket.
func ClassifyReply(payload []byte) ReplyKind {
	if len(payload) < 3 || payload[len(payload)-1] != terminator {
		return ReplyUnknown
	}
	switch payload[1] & 0xF0 {
	case 0x40:
		return ReplyAck
	case 0x50:
		return ReplyCompletion
	case 0x60:
		return ReplyError
	}
	return ReplyUnknown
}

// ErrorReason returns a description of the error code in an error reply payload.
func ErrorReason(payload []byte) string {
	if len(payload) < 3 {
		return "truncated error reply"
	}
	switch payload[2] {
	case ErrCodeMessageLength:
		return "message length error"
	case ErrCodeSyntax:
		return "syntax error"
	case ErrCodeBufferFull:
		return "command buffer full"
	case ErrCodeCanceled:
		return "command canceled"
	case ErrCodeNoSocket:
		return "no socket"
	case ErrCodeNotExecutable:
		return "command not executable"
	}
	return "unknown error"
}

// String returns the protocol name of the reply kind
func (k ReplyKind) String() string {
	switch k {
	case ReplyAck:
		return "ACK"
	case ReplyCompletion:
		return "COMPLETION"
	case ReplyError:
		return "ERROR"
	}
	return "UNKNOWN"
}
