// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

import (
	"fmt"
)

// Main group 1 encodes a boolean. The wire form is a single bit, carried
// either inline or as a byte with value 0 or 1.

func encodeBoolean(dp datapoint, value any) ([]byte, error) {
	b, ok := value.(bool)
	if !ok {
		return nil, typeError(dp, value, "bool")
	}

	if b {
		return []byte{1}, nil
	}

	return []byte{0}, nil
}

func decodeBoolean(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	if data[0] > 1 {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "boolean byte is neither 0 nor 1",
		}
	}

	return data[0] == 1, nil
}

// Main group 2 encodes a control bit and a value bit.

func encodeControlValue(dp datapoint, value any) ([]byte, error) {
	cv, ok := value.(ControlValue)
	if !ok {
		return nil, typeError(dp, value, "ControlValue")
	}

	var b byte

	if cv.Control {
		b |= 1 << 1
	}

	if cv.Value {
		b |= 1
	}

	return []byte{b}, nil
}

func decodeControlValue(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	if data[0] > 3 {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "bits above the control field are set",
		}
	}

	return ControlValue{
		Control: data[0]&2 != 0,
		Value:   data[0]&1 != 0,
	}, nil
}

// Main group 3 encodes a control bit and a 3-bit step code.

func encodeControlDimming(dp datapoint, value any) ([]byte, error) {
	cd, ok := value.(ControlDimming)
	if !ok {
		return nil, typeError(dp, value, "ControlDimming")
	}

	if cd.StepCode > 7 {
		return nil, &RangeError{DPT: dp.name, Value: cd.StepCode}
	}

	b := cd.StepCode

	if cd.Control {
		b |= 1 << 3
	}

	return []byte{b}, nil
}

func decodeControlDimming(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	if data[0] > 15 {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "bits above the control field are set",
		}
	}

	return ControlDimming{
		Control:  data[0]&8 != 0,
		StepCode: data[0] & 7,
	}, nil
}

// Datapoint type 6.020 encodes five status bits and a 3-bit mode field in
// which exactly one of three modes is active.

func validStatusModeField(mode uint8) bool {
	return mode == 0 || mode == 2 || mode == 4
}

func encodeStatusMode(dp datapoint, value any) ([]byte, error) {
	sm, ok := value.(StatusMode)
	if !ok {
		return nil, typeError(dp, value, "StatusMode")
	}

	if !validStatusModeField(sm.Mode) {
		return nil, &RangeError{DPT: dp.name, Value: sm.Mode}
	}

	b := sm.Mode & 7

	for i, set := range []bool{sm.E, sm.D, sm.C, sm.B, sm.A} {
		if set {
			b |= 1 << (3 + i)
		}
	}

	return []byte{b}, nil
}

func decodeStatusMode(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	mode := data[0] & 7

	if !validStatusModeField(mode) {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "mode field does not select a single mode",
		}
	}

	return StatusMode{
		A:    data[0]&(1<<7) != 0,
		B:    data[0]&(1<<6) != 0,
		C:    data[0]&(1<<5) != 0,
		D:    data[0]&(1<<4) != 0,
		E:    data[0]&(1<<3) != 0,
		Mode: mode,
	}, nil
}

// Main group 18 encodes a control bit and a 6-bit scene number.

func encodeSceneControl(dp datapoint, value any) ([]byte, error) {
	sc, ok := value.(SceneControl)
	if !ok {
		return nil, typeError(dp, value, "SceneControl")
	}

	if sc.Scene > 63 {
		return nil, &RangeError{DPT: dp.name, Value: sc.Scene}
	}

	b := sc.Scene

	if sc.Control {
		b |= 1 << 7
	}

	return []byte{b}, nil
}

func decodeSceneControl(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	if data[0]&(1<<6) != 0 {
		return nil, &DecodeError{
			DPT:         dp.name,
			Data:        data,
			Description: "reserved bit is set",
		}
	}

	return SceneControl{
		Control: data[0]&(1<<7) != 0,
		Scene:   data[0] & 63,
	}, nil
}

// typeError reports a value whose Go type does not match the datapoint
// type.
func typeError(dp datapoint, value any, want string) error {
	return &FormatError{
		DPT:         dp.name,
		Description: fmt.Sprintf("unexpected value type %T, want %s", value, want),
	}
}

// lengthError reports data of the wrong size.
func lengthError(dp datapoint, data []byte, want int) error {
	return &DecodeError{
		DPT:         dp.name,
		Data:        data,
		Description: fmt.Sprintf("need %d bytes, got %d", want, len(data)),
	}
}
