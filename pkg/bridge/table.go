// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package bridge

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Thermoquad/ptzbridge/pkg/visca"
)

// Category groups commands by the camera function they drive
type Category string

// Categories
const (
	CategoryPower    Category = "power"
	CategorySequence Category = "sequence"
	CategoryMemory   Category = "memory"
	CategoryZoom     Category = "zoom"
	CategoryFocus    Category = "focus"
	CategoryPanTilt  Category = "pantilt"
	CategoryTally    Category = "tally"
	CategorySpeed    Category = "speed"
)

// DefaultMovementSpeed is the pan/tilt speed used by single-argument
// directional commands until a speedNN button picks another one.
const DefaultMovementSpeed = 10

// Call carries what a builder needs for one device: the intent's arguments,
// that device's calibration and the current movement speed.
type Call struct {
	Args  []float64
	Cal   visca.Calibrations
	Speed int
}

// Arg returns argument i, or 0 when the message was shorter
func (c Call) Arg(i int) float64 {
	if i < len(c.Args) {
		return c.Args[i]
	}
	return 0
}

// Entry describes one command. Speed and Position list the indexes of the
// arguments that are speed digits and mapped positions. Build returns the
// payloads to send in order; an empty result sends nothing.
type Entry struct {
	Name     string
	Category Category
	MinArgs  int
	Speed    []int
	Position []int
	Build    func(c Call) ([][]byte, error)
}

func one(p []byte) ([][]byte, error) { return [][]byte{p}, nil }

// pressed reports whether a momentary button is held. Releasing it sends
// 0, which stops the axis.
func pressed(v float64) bool { return v > 0 }

var table = map[string]Entry{}

func register(e Entry) {
	table[e.Name] = e
}

func alias(name, of string) {
	e := table[of]
	e.Name = name
	table[name] = e
}

func init() {
	// Power
	register(Entry{Name: "camera_on", Category: CategoryPower, Build: func(Call) ([][]byte, error) {
		return one(visca.NewPowerOn())
	}})
	register(Entry{Name: "camera_off", Category: CategoryPower, Build: func(Call) ([][]byte, error) {
		return one(visca.NewPowerOff())
	}})
	alias("power_on", "camera_on")
	alias("power_off", "camera_off")

	// Sequence reset is handled by the dispatcher, it has no payload
	register(Entry{Name: "reset_sequence_number", Category: CategorySequence})

	// Memory presets act on press only
	register(Entry{Name: "memory_recall", Category: CategoryMemory, MinArgs: 1, Build: func(c Call) ([][]byte, error) {
		if !pressed(c.Arg(0)) {
			return nil, nil
		}
		recall, err := visca.NewMemoryRecall(int(c.Arg(0)))
		if err != nil {
			return nil, err
		}
		return [][]byte{visca.NewInfoDisplayOff(), recall}, nil
	}})
	register(Entry{Name: "memory_set", Category: CategoryMemory, MinArgs: 1, Build: func(c Call) ([][]byte, error) {
		if !pressed(c.Arg(0)) {
			return nil, nil
		}
		set, err := visca.NewMemorySet(int(c.Arg(0)))
		if err != nil {
			return nil, err
		}
		return one(set)
	}})

	// Zoom
	zoom := func(name string, dir visca.ZoomDirection, variable bool) {
		register(Entry{Name: name, Category: CategoryZoom, MinArgs: 1, Build: func(c Call) ([][]byte, error) {
			switch {
			case !pressed(c.Arg(0)):
				return one(visca.NewZoomStop())
			case variable:
				return one(visca.NewZoomVariable(dir, c.Arg(0)))
			default:
				return one(visca.NewZoom(dir))
			}
		}})
	}
	zoom("zoom_tele", visca.ZoomTele, false)
	zoom("zoom_wide", visca.ZoomWide, false)
	zoom("zoom_tele_variable", visca.ZoomTele, true)
	zoom("zoom_wide_variable", visca.ZoomWide, true)
	register(Entry{Name: "zoom_stop", Category: CategoryZoom, Build: func(Call) ([][]byte, error) {
		return one(visca.NewZoomStop())
	}})
	register(Entry{Name: "zoom_direct", Category: CategoryZoom, MinArgs: 1, Position: []int{0}, Build: func(c Call) ([][]byte, error) {
		pos, err := c.Cal.Zoom.ToWire(c.Arg(0))
		if err != nil {
			return nil, err
		}
		return one(visca.NewZoomDirect(pos))
	}})
	register(Entry{Name: "zoom_focus_direct", Category: CategoryZoom, MinArgs: 2, Position: []int{0, 1}, Build: func(c Call) ([][]byte, error) {
		z, err := c.Cal.Zoom.ToWire(c.Arg(0))
		if err != nil {
			return nil, err
		}
		f, err := c.Cal.Focus.ToWire(c.Arg(1))
		if err != nil {
			return nil, err
		}
		return one(visca.NewZoomFocusDirect(z, f))
	}})

	// Focus
	focus := func(name string, dir visca.FocusDirection, variable bool) {
		register(Entry{Name: name, Category: CategoryFocus, MinArgs: 1, Build: func(c Call) ([][]byte, error) {
			switch {
			case !pressed(c.Arg(0)):
				return one(visca.NewFocusStop())
			case variable:
				return one(visca.NewFocusVariable(dir, c.Arg(0)))
			default:
				return one(visca.NewFocus(dir))
			}
		}})
	}
	focus("focus_far", visca.FocusFar, false)
	focus("focus_near", visca.FocusNear, false)
	focus("focus_far_variable", visca.FocusFar, true)
	focus("focus_near_variable", visca.FocusNear, true)
	fixed := func(name string, cat Category, payload func() []byte) {
		register(Entry{Name: name, Category: cat, Build: func(Call) ([][]byte, error) {
			return one(payload())
		}})
	}
	fixed("focus_stop", CategoryFocus, visca.NewFocusStop)
	fixed("focus_auto", CategoryFocus, visca.NewFocusAuto)
	fixed("focus_manual", CategoryFocus, visca.NewFocusManual)
	fixed("focus_infinity", CategoryFocus, visca.NewFocusInfinity)
	fixed("focus_one_push", CategoryFocus, visca.NewFocusOnePush)
	register(Entry{Name: "focus_direct", Category: CategoryFocus, MinArgs: 1, Position: []int{0}, Build: func(c Call) ([][]byte, error) {
		pos, err := c.Cal.Focus.ToWire(c.Arg(0))
		if err != nil {
			return nil, err
		}
		return one(visca.NewFocusDirect(pos))
	}})

	// Pan/tilt
	directions := map[string]visca.Direction{
		"pan_up":         visca.DirUp,
		"pan_down":       visca.DirDown,
		"pan_left":       visca.DirLeft,
		"pan_right":      visca.DirRight,
		"pan_up_left":    visca.DirUpLeft,
		"pan_up_right":   visca.DirUpRight,
		"pan_down_left":  visca.DirDownLeft,
		"pan_down_right": visca.DirDownRight,
	}
	for name, dir := range directions {
		register(Entry{Name: name, Category: CategoryPanTilt, MinArgs: 1, Speed: []int{0, 1}, Build: func(c Call) ([][]byte, error) {
			ps, ts, err := driveSpeeds(c)
			if err != nil {
				return nil, err
			}
			if ps == 0 && ts == 0 {
				return one(visca.NewPanTiltStop())
			}
			return one(visca.NewPanTiltDrive(dir, ps, ts))
		}})
	}
	fixed("pan_stop", CategoryPanTilt, visca.NewPanTiltStop)
	fixed("pan_home", CategoryPanTilt, visca.NewPanTiltHome)
	fixed("pan_reset", CategoryPanTilt, visca.NewPanTiltReset)
	// A release carries only the two speeds
	register(Entry{Name: "pan_absolute_position", Category: CategoryPanTilt, MinArgs: 2, Speed: []int{0, 1}, Position: []int{2, 3}, Build: func(c Call) ([][]byte, error) {
		if !pressed(c.Arg(0)) || !pressed(c.Arg(1)) {
			return one(visca.NewPanTiltStop())
		}
		if len(c.Args) < 4 {
			return nil, fmt.Errorf("%w: pan_absolute_position needs 4 arguments, got %d", ErrDecode, len(c.Args))
		}
		ps, err := visca.SpeedDigits("pan_speed", c.Arg(0), visca.PanSpeedMax)
		if err != nil {
			return nil, err
		}
		ts, err := visca.SpeedDigits("tilt_speed", c.Arg(1), visca.TiltSpeedMax)
		if err != nil {
			return nil, err
		}
		pan, err := c.Cal.Pan.ToWire(c.Arg(2))
		if err != nil {
			return nil, err
		}
		tilt, err := c.Cal.Tilt.ToWire(c.Arg(3))
		if err != nil {
			return nil, err
		}
		return one(visca.NewPanTiltAbsolute(ps, ts, pan, tilt))
	}})

	// Tally
	register(Entry{Name: "tally", Category: CategoryTally, MinArgs: 1, Build: func(c Call) ([][]byte, error) {
		p, err := visca.NewTally(visca.TallyState(int(c.Arg(0))))
		if err != nil {
			return nil, err
		}
		return one(p)
	}})
}

// driveSpeeds returns the encoded pan and tilt speeds of a directional
// command. Two arguments are explicit speeds; a single argument is a button
// press driven at the movement speed. A stop is signalled by 0, 0.
func driveSpeeds(c Call) (pan, tilt byte, err error) {
	if len(c.Args) < 2 {
		if !pressed(c.Arg(0)) {
			return 0, 0, nil
		}
		pan, err = visca.SpeedDigits("pan_speed", float64(min(c.Speed, visca.PanSpeedMax)), visca.PanSpeedMax)
		if err != nil {
			return 0, 0, err
		}
		tilt, err = visca.SpeedDigits("tilt_speed", float64(min(c.Speed, visca.TiltSpeedMax)), visca.TiltSpeedMax)
		return pan, tilt, err
	}

	if !pressed(c.Arg(0)) && !pressed(c.Arg(1)) {
		return 0, 0, nil
	}
	if pan, err = visca.SpeedDigits("pan_speed", c.Arg(0), visca.PanSpeedMax); err != nil {
		return 0, 0, err
	}
	if tilt, err = visca.SpeedDigits("tilt_speed", c.Arg(1), visca.TiltSpeedMax); err != nil {
		return 0, 0, err
	}
	return pan, tilt, nil
}

// speedPrefix names the movement speed buttons, speed01 to speed18
const speedPrefix = "speed"

// Lookup returns the entry for a command name. speedNN names resolve to a
// speed entry whose Name is the full command.
func Lookup(name string) (Entry, bool) {
	if e, ok := table[name]; ok {
		return e, true
	}
	if _, ok := parseSpeed(name); ok {
		return Entry{Name: name, Category: CategorySpeed}, true
	}
	return Entry{}, false
}

// parseSpeed returns NN from speedNN
func parseSpeed(name string) (int, bool) {
	digits, ok := strings.CutPrefix(name, speedPrefix)
	if !ok || digits == "" {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 0 || strings.ContainsAny(digits, "+-") {
		return 0, false
	}
	return n, true
}

// Commands returns every fixed command entry sorted by category and name
func Commands() []Entry {
	out := make([]Entry, 0, len(table))
	for _, e := range table {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Name < out[j].Name
	})
	return out
}
