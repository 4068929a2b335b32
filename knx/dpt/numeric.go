// Licensed under the MIT license which can be found in the LICENSE file.

package dpt

import (
	"encoding/binary"
)

// Main groups 5 and 20 encode an unsigned byte. Some senders transmit a
// 6-bit zero in place of the byte, which decodes to 0.

func encodeUnsigned8(dp datapoint, value any) ([]byte, error) {
	v, ok := value.(uint8)
	if !ok {
		return nil, typeError(dp, value, "uint8")
	}

	return []byte{v}, nil
}

func decodeUnsigned8(dp datapoint, data []byte) (any, error) {
	if zeroPadded(data) {
		return uint8(0), nil
	}

	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	return data[0], nil
}

// Main group 6 (except 6.020) encodes a signed byte.

func encodeSigned8(dp datapoint, value any) ([]byte, error) {
	v, ok := value.(int8)
	if !ok {
		return nil, typeError(dp, value, "int8")
	}

	return []byte{uint8(v)}, nil
}

func decodeSigned8(dp datapoint, data []byte) (any, error) {
	if len(data) != 1 {
		return nil, lengthError(dp, data, 1)
	}

	return int8(data[0]), nil
}

// Main group 7 encodes an unsigned 16-bit integer.

func encodeUnsigned16(dp datapoint, value any) ([]byte, error) {
	v, ok := value.(uint16)
	if !ok {
		return nil, typeError(dp, value, "uint16")
	}

	return binary.BigEndian.AppendUint16(nil, v), nil
}

func decodeUnsigned16(dp datapoint, data []byte) (any, error) {
	if len(data) != 2 {
		return nil, lengthError(dp, data, 2)
	}

	return binary.BigEndian.Uint16(data), nil
}

// Main group 8 encodes a signed 16-bit integer.

func encodeSigned16(dp datapoint, value any) ([]byte, error) {
	v, ok := value.(int16)
	if !ok {
		return nil, typeError(dp, value, "int16")
	}

	return binary.BigEndian.AppendUint16(nil, uint16(v)), nil
}

func decodeSigned16(dp datapoint, data []byte) (any, error) {
	if zeroPadded(data) {
		return int16(0), nil
	}

	if len(data) != 2 {
		return nil, lengthError(dp, data, 2)
	}

	return int16(binary.BigEndian.Uint16(data)), nil
}

// Main group 12 encodes an unsigned 32-bit integer.

func encodeUnsigned32(dp datapoint, value any) ([]byte, error) {
	v, ok := value.(uint32)
	if !ok {
		return nil, typeError(dp, value, "uint32")
	}

	return binary.BigEndian.AppendUint32(nil, v), nil
}

func decodeUnsigned32(dp datapoint, data []byte) (any, error) {
	if zeroPadded(data) {
		return uint32(0), nil
	}

	if len(data) != 4 {
		return nil, lengthError(dp, data, 4)
	}

	return binary.BigEndian.Uint32(data), nil
}

// Main group 13 encodes a signed 32-bit integer.

func encodeSigned32(dp datapoint, value any) ([]byte, error) {
	v, ok := value.(int32)
	if !ok {
		return nil, typeError(dp, value, "int32")
	}

	return binary.BigEndian.AppendUint32(nil, uint32(v)), nil
}

func decodeSigned32(dp datapoint, data []byte) (any, error) {
	if zeroPadded(data) {
		return int32(0), nil
	}

	if len(data) != 4 {
		return nil, lengthError(dp, data, 4)
	}

	return int32(binary.BigEndian.Uint32(data)), nil
}
