// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

import (
	"fmt"
)

// A ControlValue is a value of main group 2: a boolean with a control flag
// that determines whether the value takes priority.
type ControlValue struct {
	Control bool
	Value   bool
}

func (cv ControlValue) String() string {
	return fmt.Sprintf("control=%t value=%t", cv.Control, cv.Value)
}

// A ControlDimming is a value of main group 3: a direction flag plus a step
// code. Step code 0 is a break indication, 1..7 select the interval width.
type ControlDimming struct {
	Control  bool
	StepCode uint8
}

func (cd ControlDimming) String() string {
	return fmt.Sprintf("control=%t step=%d", cd.Control, cd.StepCode)
}

// A StatusMode is a value of datapoint type 6.020: five status bits and the
// active mode. Mode holds the raw 3-bit field; exactly one of the values 0,
// 2 and 4 is valid.
type StatusMode struct {
	A, B, C, D, E bool
	Mode          uint8
}

func (sm StatusMode) String() string {
	return fmt.Sprintf("status=%t,%t,%t,%t,%t mode=%d", sm.A, sm.B, sm.C, sm.D, sm.E, sm.Mode)
}

// A TimeOfDay is a value of main group 10. Day 0 means "no day", 1 is
// Monday through 7 for Sunday.
type TimeOfDay struct {
	Day     uint8
	Hour    uint8
	Minutes uint8
	Seconds uint8
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("day=%d %02d:%02d:%02d", t.Day, t.Hour, t.Minutes, t.Seconds)
}

// A Date is a value of main group 11. Years span 1990 through 2089.
type Date struct {
	Day   uint8
	Month uint8
	Year  uint16
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// An AccessData is a value of main group 15: a six-digit access code with
// status flags and a code index.
type AccessData struct {
	Code       uint32
	Error      bool
	Permission bool
	Direction  bool
	Encrypted  bool
	Index      uint8
}

func (ad AccessData) String() string {
	return fmt.Sprintf("code=%06d index=%d", ad.Code, ad.Index)
}

// A SceneControl is a value of main group 18: a scene number with a flag
// that selects between activating and learning the scene.
type SceneControl struct {
	Control bool
	Scene   uint8
}

func (sc SceneControl) String() string {
	return fmt.Sprintf("control=%t scene=%d", sc.Control, sc.Scene)
}
