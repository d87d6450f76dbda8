// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package visca

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalibration_Span(t *testing.T) {
	assert.Equal(t, uint16(3500), PanCalibration.Span())
	assert.Equal(t, uint16(1536), TiltCalibration.Span())
	assert.Equal(t, uint16(0x4000), ZoomCalibration.Span())
	assert.Equal(t, uint16(0x4000), FocusCalibration.Span())
}

func TestPanToWire(t *testing.T) {
	tests := []struct {
		deg  float64
		want WireValue
	}{
		{-175, 0xF92A},
		{175, 0x06D6},
		{0, 0x0000},
		{-0.1, 0xFFFF},
		{0.1, 0x0001},
	}

	for _, tt := range tests {
		got, err := PanToWire(tt.deg)
		require.NoError(t, err, "pan %g", tt.deg)
		assert.Equal(t, tt.want, got, "pan %g", tt.deg)
	}
}

func TestTiltToWire(t *testing.T) {
	tests := []struct {
		deg  float64
		want WireValue
	}{
		{-30, 0xFE80},
		{90, 0x0480},
		{0, 0x0000},
	}

	for _, tt := range tests {
		got, err := TiltToWire(tt.deg)
		require.NoError(t, err, "tilt %g", tt.deg)
		assert.Equal(t, tt.want, got, "tilt %g", tt.deg)
	}
}

func TestZoomFocusToWire(t *testing.T) {
	for _, fn := range []func(float64) (WireValue, error){ZoomToWire, FocusToWire} {
		got, err := fn(0)
		require.NoError(t, err)
		assert.Equal(t, WireValue(0x0000), got)

		got, err = fn(100)
		require.NoError(t, err)
		assert.Equal(t, WireValue(0x4000), got)

		got, err = fn(50)
		require.NoError(t, err)
		assert.Equal(t, WireValue(0x2000), got)
	}
}

func TestToWire_OutOfRange(t *testing.T) {
	tests := []struct {
		name string
		fn   func(float64) (WireValue, error)
		v    float64
	}{
		{"zoom below", ZoomToWire, -1},
		{"zoom above", ZoomToWire, 101},
		{"focus above", FocusToWire, 100.5},
		{"pan below", PanToWire, -175.01},
		{"pan above", PanToWire, 180},
		{"tilt below", TiltToWire, -31},
		{"tilt above", TiltToWire, 91},
		{"nan", ZoomToWire, math.NaN()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.fn(tt.v)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrOutOfRange))

			var re *RangeError
			require.True(t, errors.As(err, &re))
			assert.NotEmpty(t, re.Field)
		})
	}
}

func TestToWire_RoundsHalfAwayFromZero(t *testing.T) {
	// 25/8192 percent is exactly half a wire step above zero
	got, err := ZoomToWire(25.0 / 8192)
	require.NoError(t, err)
	assert.Equal(t, WireValue(0x0001), got)

	// and 3/2 steps rounds to 2, not to the even neighbour
	got, err = ZoomToWire(3 * 25.0 / 8192)
	require.NoError(t, err)
	assert.Equal(t, WireValue(0x0002), got)
}

func TestToWire_Pure(t *testing.T) {
	a, errA := PanToWire(42.5)
	b, errB := PanToWire(42.5)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestFromWire_Inverse(t *testing.T) {
	for _, c := range []Calibration{PanCalibration, TiltCalibration} {
		for v := c.DomainMin; v <= c.DomainMax; v += 0.37 {
			w, err := c.ToWire(v)
			require.NoError(t, err)
			assert.InDelta(t, v, c.FromWire(w), c.Step(), "%s %g -> %s", c.Field, v, w)
		}
	}
}

func TestWireValue_Nibbles(t *testing.T) {
	w := WireValue(0xF92A)
	assert.Equal(t, [4]byte{0x0F, 0x09, 0x02, 0x0A}, w.Nibbles())
	assert.Equal(t, "F92A", w.String())

	n := w.Nibbles()
	back, err := WireValueFromNibbles(n[:])
	require.NoError(t, err)
	assert.Equal(t, w, back)

	_, err = WireValueFromNibbles([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestSpeedDigits(t *testing.T) {
	tests := []struct {
		v    float64
		max  int
		want byte
	}{
		{0, PanSpeedMax, 0x00},
		{1, PanSpeedMax, 0x01},
		{9, PanSpeedMax, 0x09},
		{10, PanSpeedMax, 0x10},
		{18, PanSpeedMax, 0x18},
		{17, TiltSpeedMax, 0x17},
		{12.9, PanSpeedMax, 0x12},
	}

	for _, tt := range tests {
		got, err := SpeedDigits("speed", tt.v, tt.max)
		require.NoError(t, err, "speed %g", tt.v)
		assert.Equal(t, tt.want, got, "speed %g", tt.v)
	}
}

func TestSpeedDigits_OutOfRange(t *testing.T) {
	_, err := SpeedDigits("pan speed", 19, PanSpeedMax)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = SpeedDigits("tilt speed", 18, TiltSpeedMax)
	assert.ErrorIs(t, err, ErrOutOfRange)

	_, err = SpeedDigits("pan speed", -1, PanSpeedMax)
	assert.ErrorIs(t, err, ErrOutOfRange)
}

func TestClampDriveSpeed(t *testing.T) {
	assert.Equal(t, byte(0), ClampDriveSpeed(-3))
	assert.Equal(t, byte(0), ClampDriveSpeed(math.NaN()))
	assert.Equal(t, byte(4), ClampDriveSpeed(4.8))
	assert.Equal(t, byte(7), ClampDriveSpeed(7))
	assert.Equal(t, byte(7), ClampDriveSpeed(12))
}

func TestCalibrations_WithDefaults(t *testing.T) {
	var c Calibrations
	assert.Equal(t, DefaultCalibrations(), c.WithDefaults())

	custom := Calibrations{Pan: Calibration{DomainMin: -170, DomainMax: 170, WireMin: 0xF670, WireMax: 0x0990}}
	got := custom.WithDefaults()
	assert.Equal(t, "pan", got.Pan.Field)
	assert.Equal(t, -170.0, got.Pan.DomainMin)
	assert.Equal(t, TiltCalibration, got.Tilt)
}
