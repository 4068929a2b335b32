// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

import (
	"strconv"
)

// Parse converts a textual value into the Go value of the given datapoint
// type, ready to be passed to Encode. Booleans accept "true"/"false",
// "1"/"0" and "on"/"off"; numeric types use their decimal forms; character and string
// types take the text as-is.
func Parse(name string, value string) (any, error) {
	dp, err := parseDatapoint(name)
	if err != nil {
		return nil, err
	}

	formatErr := func() error {
		return &FormatError{
			DPT:         dp.name,
			Description: "cannot parse " + strconv.Quote(value),
		}
	}

	switch dp.main {
	case 1:
		switch value {
		case "true", "1", "on":
			return true, nil
		case "false", "0", "off":
			return false, nil
		}

		return nil, formatErr()

	case 4, 16:
		return value, nil

	case 5, 20:
		v, err := strconv.ParseUint(value, 10, 8)
		if err != nil {
			return nil, formatErr()
		}
		return uint8(v), nil

	case 6:
		v, err := strconv.ParseInt(value, 10, 8)
		if err != nil {
			return nil, formatErr()
		}
		return int8(v), nil

	case 7:
		v, err := strconv.ParseUint(value, 10, 16)
		if err != nil {
			return nil, formatErr()
		}
		return uint16(v), nil

	case 8:
		v, err := strconv.ParseInt(value, 10, 16)
		if err != nil {
			return nil, formatErr()
		}
		return int16(v), nil

	case 9:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, formatErr()
		}
		return v, nil

	case 12:
		v, err := strconv.ParseUint(value, 10, 32)
		if err != nil {
			return nil, formatErr()
		}
		return uint32(v), nil

	case 13:
		v, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return nil, formatErr()
		}
		return int32(v), nil

	case 14:
		v, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return nil, formatErr()
		}
		return float32(v), nil
	}

	return nil, &FormatError{
		DPT:         dp.name,
		Description: "datapoint type has no textual form",
	}
}
