// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import "fmt"

// Command builder functions return VISCA payloads ready to be wrapped in a
// Frame. Fields are typed and validated here, so a payload never carries an
// unfilled placeholder.

func command(body ...byte) []byte {
	p := make([]byte, 0, len(body)+3)
	p = append(p, addrCamera1, catCommand)
	p = append(p, body...)
	return append(p, terminator)
}

func inquiry(body ...byte) []byte {
	p := make([]byte, 0, len(body)+3)
	p = append(p, addrCamera1, catInquiry)
	p = append(p, body...)
	return append(p, terminator)
}

// Power

// NewPowerOn creates CAM_Power On.
func NewPowerOn() []byte { return command(0x04, 0x00, 0x02) }

// NewPowerOff creates CAM_Power Standby.
func NewPowerOff() []byte { return command(0x04, 0x00, 0x03) }

// NewInfoDisplayOff hides the on-screen information display.
func NewInfoDisplayOff() []byte { return command(0x7E, 0x01, 0x18, 0x03) }

// Memory presets

// MemoryPresetMax is the highest preset addressable by the one-nibble field.
const MemoryPresetMax = 0x0F

func memory(op byte, preset int) ([]byte, error) {
	if preset < 0 || preset > MemoryPresetMax {
		return nil, &RangeError{Field: "memory preset", Value: float64(preset), Min: 0, Max: MemoryPresetMax}
	}
	return command(0x04, 0x3F, op, byte(preset)), nil
}

// NewMemoryRecall creates CAM_Memory Recall for preset 0-15.
func NewMemoryRecall(preset int) ([]byte, error) { return memory(0x02, preset) }

// NewMemorySet creates CAM_Memory Set for preset 0-15.
func NewMemorySet(preset int) ([]byte, error) { return memory(0x01, preset) }

// Zoom

// ZoomDirection selects tele or wide for continuous zoom.
type ZoomDirection byte

// Zoom directions
const (
	ZoomTele ZoomDirection = 0x02
	ZoomWide ZoomDirection = 0x03
)

// NewZoomStop creates CAM_Zoom Stop.
func NewZoomStop() []byte { return command(0x04, 0x07, 0x00) }

// NewZoom creates CAM_Zoom Tele/Wide (standard speed).
func NewZoom(dir ZoomDirection) []byte { return command(0x04, 0x07, byte(dir)) }

// NewZoomVariable creates CAM_Zoom Tele/Wide (variable). Speed is clamped to 0-7.
func NewZoomVariable(dir ZoomDirection, speed float64) []byte {
	return command(0x04, 0x07, byte(dir)<<4|ClampDriveSpeed(speed))
}

// NewZoomDirect creates CAM_Zoom Direct.
func NewZoomDirect(pos WireValue) []byte {
	n := pos.Nibbles()
	return command(0x04, 0x47, n[0], n[1], n[2], n[3])
}

// NewZoomFocusDirect creates CAM_Zoom Direct with a focus position.
func NewZoomFocusDirect(zoom, focus WireValue) []byte {
	z, f := zoom.Nibbles(), focus.Nibbles()
	return command(0x04, 0x47, z[0], z[1], z[2], z[3], f[0], f[1], f[2], f[3])
}

// Focus

// FocusDirection selects far or near for continuous focus.
type FocusDirection byte

// Focus directions
const (
	FocusFar  FocusDirection = 0x02
	FocusNear FocusDirection = 0x03
)

// NewFocusStop creates CAM_Focus Stop.
func NewFocusStop() []byte { return command(0x04, 0x08, 0x00) }

// NewFocus creates CAM_Focus Far/Near (standard speed).
func NewFocus(dir FocusDirection) []byte { return command(0x04, 0x08, byte(dir)) }

// NewFocusVariable creates CAM_Focus Far/Near (variable). Speed is clamped to 0-7.
func NewFocusVariable(dir FocusDirection, speed float64) []byte {
	return command(0x04, 0x08, byte(dir)<<4|ClampDriveSpeed(speed))
}

// NewFocusDirect creates CAM_Focus Direct.
func NewFocusDirect(pos WireValue) []byte {
	n := pos.Nibbles()
	return command(0x04, 0x48, n[0], n[1], n[2], n[3])
}

// NewFocusAuto creates CAM_Focus Auto.
func NewFocusAuto() []byte { return command(0x04, 0x38, 0x02) }

// NewFocusManual creates CAM_Focus Manual.
func NewFocusManual() []byte { return command(0x04, 0x38, 0x03) }

// NewFocusOnePush creates CAM_Focus One Push Trigger.
func NewFocusOnePush() []byte { return command(0x04, 0x18, 0x01) }

// NewFocusInfinity creates CAM_Focus Infinity.
func NewFocusInfinity() []byte { return command(0x04, 0x18, 0x02) }

// Pan/tilt

// Direction is one of the eight pan/tilt drive directions.
// The two bytes are the pan and tilt direction fields.
type Direction [2]byte

// Pan/tilt directions
var (
	DirUp        = Direction{0x03, 0x01}
	DirDown      = Direction{0x03, 0x02}
	DirLeft      = Direction{0x01, 0x03}
	DirRight     = Direction{0x02, 0x03}
	DirUpLeft    = Direction{0x01, 0x01}
	DirUpRight   = Direction{0x02, 0x01}
	DirDownLeft  = Direction{0x01, 0x02}
	DirDownRight = Direction{0x02, 0x02}
	dirStop      = Direction{0x03, 0x03}
)

// StopSpeed is the speed byte pair carried by the dedicated pan/tilt stop command.
const StopSpeed = 0x15

// NewPanTiltDrive creates Pan-tiltDrive for a direction.
// Speeds are wire bytes as produced by SpeedDigits.
func NewPanTiltDrive(dir Direction, panSpeed, tiltSpeed byte) []byte {
	return command(0x06, 0x01, panSpeed, tiltSpeed, dir[0], dir[1])
}

// NewPanTiltStop creates the Pan-tiltDrive Stop command.
func NewPanTiltStop() []byte {
	return NewPanTiltDrive(dirStop, StopSpeed, StopSpeed)
}

// NewPanTiltAbsolute creates Pan-tiltDrive AbsolutePosition.
func NewPanTiltAbsolute(panSpeed, tiltSpeed byte, pan, tilt WireValue) []byte {
	p, t := pan.Nibbles(), tilt.Nibbles()
	return command(0x06, 0x02, panSpeed, tiltSpeed, p[0], p[1], p[2], p[3], t[0], t[1], t[2], t[3])
}

// NewPanTiltHome creates Pan-tiltDrive Home.
func NewPanTiltHome() []byte { return command(0x06, 0x04) }

// NewPanTiltReset creates Pan-tiltDrive Reset.
func NewPanTiltReset() []byte { return command(0x06, 0x05) }

// Tally

// TallyState is the tally lamp state.
type TallyState int

// Tally states
const (
	TallyOff TallyState = iota
	TallyOn
	TallyBlink
)

// NewTally creates the tally lamp command.
func NewTally(state TallyState) ([]byte, error) {
	var p byte
	switch state {
	case TallyOff:
		p = 0x03
	case TallyOn:
		p = 0x02
	case TallyBlink:
		p = 0x04
	default:
		return nil, fmt.Errorf("unknown tally state %d", state)
	}
	return command(0x7E, 0x01, 0x0A, 0x00, p), nil
}

// Inquiries

// NewFocusModeInquiry creates CAM_FocusModeInq. Reply: 90 50 0p FF (p=2 auto, 3 manual).
func NewFocusModeInquiry() []byte { return inquiry(0x04, 0x38) }

// NewPowerInquiry creates CAM_PowerInq. Reply: 90 50 0p FF (p=2 on, 3 standby).
func NewPowerInquiry() []byte { return inquiry(0x04, 0x00) }

// NewPanTiltPositionInquiry creates Pan-tiltPosInq. Reply: 90 50 0w 0w 0w 0w 0z 0z 0z 0z FF.
func NewPanTiltPositionInquiry() []byte { return inquiry(0x06, 0x12) }

// NewLensControlInquiry creates the block lens control inquiry.
func NewLensControlInquiry() []byte { return inquiry(0x7E, 0x7E, 0x00) }

// ParseInquiryByte returns the single value byte of a "90 50 0p FF" reply.
func ParseInquiryByte(reply []byte) (byte, error) {
	if ClassifyReply(reply) != ReplyCompletion || len(reply) != 4 {
		return 0, &DecodeError{Reason: "not a one-value inquiry reply", Data: reply}
	}
	return reply[2], nil
}

// ParsePanTiltPosition decodes a Pan-tiltPosInq reply into wire values.
func ParsePanTiltPosition(reply []byte) (pan, tilt WireValue, err error) {
	if ClassifyReply(reply) != ReplyCompletion || len(reply) != 11 {
		return 0, 0, &DecodeError{Reason: "not a pan/tilt position reply", Data: reply}
	}
	pan, _ = WireValueFromNibbles(reply[2:6])
	tilt, _ = WireValueFromNibbles(reply[6:10])
	return pan, tilt, nil
}

// Control

// NewResetPayload returns the control-command payload that clears the
// device's interface and resets its expected sequence number.
func NewResetPayload() []byte { return []byte{ControlReset} }
