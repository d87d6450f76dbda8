// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfRange is the sentinel matched by every RangeError.
var ErrOutOfRange = errors.New("value out of range")

// RangeError reports an argument outside the domain of a field.
type RangeError struct {
	Field string
	Value float64
	Min   float64
	Max   float64
}

// Error implements the error interface
func (e *RangeError) Error() string {
	return fmt.Sprintf("%s %g outside [%g, %g]", e.Field, e.Value, e.Min, e.Max)
}

// Is lets errors.Is match ErrOutOfRange
func (e *RangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// WireValue is a 16-bit position field as carried on the wire.
type WireValue uint16

// String renders the value as 4 uppercase hex digits
func (w WireValue) String() string {
	return fmt.Sprintf("%04X", uint16(w))
}

// Nibbles splits the value into the one-nibble-per-byte form used by
// position commands (0p 0q 0r 0s).
func (w WireValue) Nibbles() [4]byte {
	return [4]byte{
		byte(w>>12) & 0x0F,
		byte(w>>8) & 0x0F,
		byte(w>>4) & 0x0F,
		byte(w) & 0x0F,
	}
}

// WireValueFromNibbles is the inverse of WireValue.Nibbles.
// Only the low nibble of each byte is used.
func WireValueFromNibbles(n []byte) (WireValue, error) {
	if len(n) != 4 {
		return 0, fmt.Errorf("need 4 nibbles, got %d", len(n))
	}
	var v uint16
	for _, b := range n {
		v = v<<4 | uint16(b&0x0F)
	}
	return WireValue(v), nil
}

// Calibration is the affine mapping between a domain range (degrees,
// percent) and a 16-bit wire range. When WireMax < WireMin the wire range
// crosses zero and the span wraps modulo 2^16.
type Calibration struct {
	Field     string
	DomainMin float64
	DomainMax float64
	WireMin   uint16
	WireMax   uint16
}

// Reference calibrations (Birddog P200)
var (
	PanCalibration   = Calibration{Field: "pan", DomainMin: -175, DomainMax: 175, WireMin: 0xF92A, WireMax: 0x06D6}
	TiltCalibration  = Calibration{Field: "tilt", DomainMin: -30, DomainMax: 90, WireMin: 0xFE80, WireMax: 0x0480}
	ZoomCalibration  = Calibration{Field: "zoom", DomainMin: 0, DomainMax: 100, WireMin: 0x0000, WireMax: 0x4000}
	FocusCalibration = Calibration{Field: "focus", DomainMin: 0, DomainMax: 100, WireMin: 0x0000, WireMax: 0x4000}
)

// Calibrations groups the per-axis calibrations of one device.
type Calibrations struct {
	Pan   Calibration
	Tilt  Calibration
	Zoom  Calibration
	Focus Calibration
}

// DefaultCalibrations returns the reference calibrations.
func DefaultCalibrations() Calibrations {
	return Calibrations{Pan: PanCalibration, Tilt: TiltCalibration, Zoom: ZoomCalibration, Focus: FocusCalibration}
}

// WithDefaults fills every unset axis (empty domain) from the reference calibrations.
func (c Calibrations) WithDefaults() Calibrations {
	def := DefaultCalibrations()
	fill := func(have *Calibration, want Calibration) {
		if have.DomainMin == have.DomainMax {
			*have = want
		}
		if have.Field == "" {
			have.Field = want.Field
		}
	}
	fill(&c.Pan, def.Pan)
	fill(&c.Tilt, def.Tilt)
	fill(&c.Zoom, def.Zoom)
	fill(&c.Focus, def.Focus)
	return c
}

// Span returns the number of wire steps between WireMin and WireMax.
func (c Calibration) Span() uint16 {
	// uint16 arithmetic wraps, which is exactly the modulo 2^16 span
	return c.WireMax - c.WireMin
}

// Step returns the domain distance covered by one wire step.
func (c Calibration) Step() float64 {
	return (c.DomainMax - c.DomainMin) / float64(c.Span())
}

// Contains reports whether v lies in the domain range.
func (c Calibration) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= c.DomainMin && v <= c.DomainMax
}

// ToWire maps v onto the wire range. Values outside the domain fail with a
// *RangeError. Rounding is half away from zero.
func (c Calibration) ToWire(v float64) (WireValue, error) {
	if !c.Contains(v) {
		return 0, &RangeError{Field: c.Field, Value: v, Min: c.DomainMin, Max: c.DomainMax}
	}
	scaled := math.Round((v - c.DomainMin) * float64(c.Span()) / (c.DomainMax - c.DomainMin))
	return WireValue((uint32(c.WireMin) + uint32(scaled)) & 0xFFFF), nil
}

// FromWire maps a wire value back onto the domain.
func (c Calibration) FromWire(w WireValue) float64 {
	offset := uint16(w) - c.WireMin
	return c.DomainMin + float64(offset)*c.Step()
}

// PanToWire maps a pan angle in degrees with the reference calibration.
func PanToWire(deg float64) (WireValue, error) {
	return PanCalibration.ToWire(deg)
}

// TiltToWire maps a tilt angle in degrees with the reference calibration.
func TiltToWire(deg float64) (WireValue, error) {
	return TiltCalibration.ToWire(deg)
}

// ZoomToWire maps a zoom percentage with the reference calibration.
func ZoomToWire(percent float64) (WireValue, error) {
	return ZoomCalibration.ToWire(percent)
}

// FocusToWire maps a focus percentage with the reference calibration.
func FocusToWire(percent float64) (WireValue, error) {
	return FocusCalibration.ToWire(percent)
}

// Pan/tilt drive speed limits, in the decimal digits accepted by SpeedDigits
const (
	PanSpeedMax  = 18
	TiltSpeedMax = 17
)

// Zoom/focus variable speed limit
const DriveSpeedMax = 7

// SpeedDigits encodes a pan/tilt speed the way operator surfaces send it:
// the value is truncated to an integer and its two decimal digits become the
// two nibbles of the byte, so 18 is sent as 0x18.
func SpeedDigits(field string, v float64, max int) (byte, error) {
	if math.IsNaN(v) || v < 0 || int(v) > max {
		return 0, &RangeError{Field: field, Value: v, Min: 0, Max: float64(max)}
	}
	n := int(v)
	return byte((n/10)<<4 | n%10), nil
}

// ClampDriveSpeed truncates a zoom/focus speed to an integer in [0, 7].
func ClampDriveSpeed(v float64) byte {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > DriveSpeedMax {
		return DriveSpeedMax
	}
	return byte(v)
}
