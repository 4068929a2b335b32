// Licensed under the MIT license which can be found in the LICENSE file.

// Package dpt implements encoding and decoding of KNX datapoint values.
// Datapoint types are selected by descriptor strings such as "1.001" or
// "9.*"; the main group determines the value scheme, the subtype is only
// consulted where the encoding differs within a main group.
package dpt

import (
	"fmt"
	"strconv"
	"strings"
)

// A RangeError reports a value outside the allowed range of its datapoint
// type.
type RangeError struct {
	DPT   string
	Value any
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("dpt: value %v is out of range for datapoint type %s", e.Value, e.DPT)
}

// A FormatError reports a value that violates the character set or size
// constraints of its datapoint type, or a value of an unexpected Go type.
type FormatError struct {
	DPT         string
	Description string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("dpt: %s for datapoint type %s", e.Description, e.DPT)
}

// A DecodeError reports data that cannot be decoded as the requested
// datapoint type.
type DecodeError struct {
	DPT         string
	Data        []byte
	Description string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("dpt: cannot decode % x as datapoint type %s: %s", e.Data, e.DPT, e.Description)
}

// datapoint is a parsed descriptor. sub is -1 when the subtype is the "*"
// wildcard.
type datapoint struct {
	name string
	main int
	sub  int
}

func (dp datapoint) wildcard() bool {
	return dp.sub < 0
}

func parseDatapoint(name string) (datapoint, error) {
	dp := datapoint{name: name, sub: -1}

	mainStr, subStr, found := strings.Cut(name, ".")
	if !found {
		return dp, &DecodeError{DPT: name, Description: "no pattern matched datapoint type"}
	}

	main, err := strconv.Atoi(mainStr)
	if err != nil {
		return dp, &DecodeError{DPT: name, Description: "no pattern matched datapoint type"}
	}

	dp.main = main

	if subStr != "*" {
		sub, err := strconv.Atoi(subStr)
		if err != nil || sub < 0 {
			return dp, &DecodeError{DPT: name, Description: "no pattern matched datapoint type"}
		}

		dp.sub = sub
	}

	return dp, nil
}

// Encode converts a typed value into the wire form of the given datapoint
// type. The value has to match the Go type associated with the main group;
// see the package documentation of the individual types.
func Encode(name string, value any) ([]byte, error) {
	dp, err := parseDatapoint(name)
	if err != nil {
		return nil, err
	}

	switch dp.main {
	case 1:
		return encodeBoolean(dp, value)
	case 2:
		return encodeControlValue(dp, value)
	case 3:
		return encodeControlDimming(dp, value)
	case 4:
		return encodeChar(dp, value)
	case 5:
		return encodeUnsigned8(dp, value)
	case 6:
		if dp.sub == 20 {
			return encodeStatusMode(dp, value)
		}
		return encodeSigned8(dp, value)
	case 7:
		return encodeUnsigned16(dp, value)
	case 8:
		return encodeSigned16(dp, value)
	case 9:
		return encodeFloat16(dp, value)
	case 10:
		return encodeTimeOfDay(dp, value)
	case 11:
		return encodeDate(dp, value)
	case 12:
		return encodeUnsigned32(dp, value)
	case 13:
		return encodeSigned32(dp, value)
	case 14:
		return encodeFloat32(dp, value)
	case 15:
		return encodeAccessData(dp, value)
	case 16:
		return encodeString(dp, value)
	case 18:
		return encodeSceneControl(dp, value)
	case 20:
		return encodeUnsigned8(dp, value)
	}

	return nil, &DecodeError{DPT: name, Description: "no pattern matched datapoint type"}
}

// Decode converts wire data into the typed value of the given datapoint
// type.
func Decode(name string, data []byte) (any, error) {
	dp, err := parseDatapoint(name)
	if err != nil {
		return nil, err
	}

	switch dp.main {
	case 1:
		return decodeBoolean(dp, data)
	case 2:
		return decodeControlValue(dp, data)
	case 3:
		return decodeControlDimming(dp, data)
	case 4:
		return decodeChar(dp, data)
	case 5:
		return decodeUnsigned8(dp, data)
	case 6:
		if dp.sub == 20 {
			return decodeStatusMode(dp, data)
		}
		return decodeSigned8(dp, data)
	case 7:
		return decodeUnsigned16(dp, data)
	case 8:
		return decodeSigned16(dp, data)
	case 9:
		return decodeFloat16(dp, data)
	case 10:
		return decodeTimeOfDay(dp, data)
	case 11:
		return decodeDate(dp, data)
	case 12:
		return decodeUnsigned32(dp, data)
	case 13:
		return decodeSigned32(dp, data)
	case 14:
		return decodeFloat32(dp, data)
	case 15:
		return decodeAccessData(dp, data)
	case 16:
		return decodeString(dp, data)
	case 18:
		return decodeSceneControl(dp, data)
	case 20:
		return decodeUnsigned8(dp, data)
	}

	return nil, &DecodeError{DPT: name, Description: "no pattern matched datapoint type"}
}

// zeroPadded determines if the data represents the zero encoding that some
// senders transmit in place of the full-width value: a single zero byte, or
// no payload at all.
func zeroPadded(data []byte) bool {
	if len(data) == 0 {
		return true
	}

	return len(data) == 1 && data[0] == 0
}
