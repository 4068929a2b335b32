// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Main group 4 encodes a single character: datapoint type 4.001 is ASCII,
// 4.002 is Latin-1. Values surface as Go strings holding one character.

func encodeChar(dp datapoint, value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, typeError(dp, value, "string")
	}

	if utf8.RuneCountInString(s) != 1 {
		return nil, &FormatError{
			DPT:         dp.name,
			Description: "value is not a single character",
		}
	}

	data, err := charBytes(dp, s)
	if err != nil {
		return nil, err
	}

	return data, nil
}

func decodeChar(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	s, err := charString(dp, data)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// Main group 16 encodes a string of up to 14 bytes, zero-padded on the
// right: datapoint type 16.000 is ASCII, 16.001 is Latin-1. Values surface
// as UTF-8 strings.

const stringLen = 14

func encodeString(dp datapoint, value any) ([]byte, error) {
	s, ok := value.(string)
	if !ok {
		return nil, typeError(dp, value, "string")
	}

	data, err := charBytes(dp, s)
	if err != nil {
		return nil, err
	}

	if len(data) > stringLen {
		return nil, &FormatError{
			DPT:         dp.name,
			Description: fmt.Sprintf("string is %d bytes encoded, maximum is %d", len(data), stringLen),
		}
	}

	buffer := make([]byte, stringLen)
	copy(buffer, data)

	return buffer, nil
}

func decodeString(dp datapoint, data []byte) (any, error) {
	if zeroPadded(data) {
		return "", nil
	}

	if len(data) != stringLen {
		return nil, lengthError(dp, data, stringLen)
	}

	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}

	s, err := charString(dp, data)
	if err != nil {
		return nil, err
	}

	return s, nil
}

// latin1 reports whether the subtype uses the Latin-1 character set instead
// of ASCII. The wildcard subtype defaults to ASCII.
func latin1(dp datapoint) bool {
	switch dp.main {
	case 4:
		return dp.sub == 2
	case 16:
		return dp.sub == 1
	}

	return false
}

// charBytes converts a string into the character set of the datapoint type.
func charBytes(dp datapoint, s string) ([]byte, error) {
	if latin1(dp) {
		data, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(s))
		if err != nil {
			return nil, &FormatError{
				DPT:         dp.name,
				Description: fmt.Sprintf("string %q is not representable in Latin-1", s),
			}
		}

		return data, nil
	}

	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return nil, &FormatError{
				DPT:         dp.name,
				Description: fmt.Sprintf("string %q contains non-ASCII characters", s),
			}
		}
	}

	return []byte(s), nil
}

// charString converts wire bytes into a UTF-8 string according to the
// character set of the datapoint type.
func charString(dp datapoint, data []byte) (string, error) {
	if latin1(dp) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return "", &DecodeError{
				DPT:         dp.name,
				Data:        data,
				Description: "data is not valid Latin-1",
			}
		}

		return string(decoded), nil
	}

	for _, b := range data {
		if b > 0x7f {
			return "", &DecodeError{
				DPT:         dp.name,
				Data:        data,
				Description: "data contains non-ASCII bytes",
			}
		}
	}

	return string(data), nil
}
