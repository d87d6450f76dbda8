// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"fmt"
	"strings"
	"time"
)

// FormatFrame formats a frame into a human-readable string
func FormatFrame(f Frame, at time.Time) string {
	timestamp := at.Format("15:04:05.000")

	result := fmt.Sprintf("[%s] %s (0x%04X) seq=%d len=%d\n",
		timestamp, FormatPayloadType(f.Type), uint16(f.Type), f.Sequence, len(f.Payload))
	result += FormatPayload(f)

	return result
}

// FormatPayloadType returns the human-readable name for a payload type
func FormatPayloadType(t PayloadType) string {
	switch t {
	case TypeCommand:
		return "VISCA_COMMAND"
	case TypeInquiry:
		return "VISCA_INQUIRY"
	case TypeReply:
		return "VISCA_REPLY"
	case TypeDeviceSetting:
		return "VISCA_DEVICE_SETTING"
	case TypeControlCommand:
		return "CONTROL_COMMAND"
	case TypeControlReply:
		return "CONTROL_REPLY"
	default:
		return "UNKNOWN"
	}
}

// FormatPayload describes the payload based on the payload type
func FormatPayload(f Frame) string {
	switch f.Type {
	case TypeControlCommand:
		if len(f.Payload) == 1 && f.Payload[0] == ControlReset {
			return "  RESET (sequence number)\n"
		}

	case TypeControlReply:
		if len(f.Payload) == 1 && f.Payload[0] == ControlReset {
			return "  RESET acknowledged\n"
		}
		if len(f.Payload) >= 1 && f.Payload[0] == ControlError {
			return "  ERROR (sequence number or message)\n"
		}

	case TypeReply:
		kind := ClassifyReply(f.Payload)
		switch kind {
		case ReplyError:
			return fmt.Sprintf("  %s: %s  %s\n", kind, ErrorReason(f.Payload), hexBytes(f.Payload))
		case ReplyAck, ReplyCompletion:
			return fmt.Sprintf("  %s  %s\n", kind, hexBytes(f.Payload))
		}
	}

	return "  Payload: " + hexBytes(f.Payload) + "\n"
}

func hexBytes(b []byte) string {
	var sb strings.Builder
	for i, v := range b {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%02X", v)
	}
	return sb.String()
}
