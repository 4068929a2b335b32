// Licensed under the MIT license which can be found in the LICENSE file.

package util

import (
	"errors"
	"fmt"
)

// ErrDataTooShort indicates that the given data is not long enough to unpack
// the requested item.
var ErrDataTooShort = errors.New("data is too short")

// Unpackable is implemented by structures that can be initialized from a
// buffer.
type Unpackable interface {
	// Unpack parses the given data in order to initialize the structure. It
	// returns the number of bytes consumed.
	Unpack(data []byte) (uint, error)
}

// Unpack reads a single item from the data and returns the number of bytes
// consumed. Integers are read in big endian order.
func Unpack(data []byte, target any) (uint, error) {
	switch target := target.(type) {
	case *uint8:
		if len(data) < 1 {
			return 0, ErrDataTooShort
		}

		*target = data[0]
		return 1, nil

	case *uint16:
		if len(data) < 2 {
			return 0, ErrDataTooShort
		}

		*target = uint16(data[0])<<8 | uint16(data[1])
		return 2, nil

	case *uint32:
		if len(data) < 4 {
			return 0, ErrDataTooShort
		}

		*target = uint32(data[0])<<24 | uint32(data[1])<<16 |
			uint32(data[2])<<8 | uint32(data[3])
		return 4, nil

	case *uint64:
		if len(data) < 8 {
			return 0, ErrDataTooShort
		}

		*target = uint64(data[0])<<56 | uint64(data[1])<<48 |
			uint64(data[2])<<40 | uint64(data[3])<<32 |
			uint64(data[4])<<24 | uint64(data[5])<<16 |
			uint64(data[6])<<8 | uint64(data[7])
		return 8, nil

	case []byte:
		if len(data) < len(target) {
			return 0, ErrDataTooShort
		}

		copy(target, data)
		return uint(len(target)), nil

	case Unpackable:
		return target.Unpack(data)
	}

	panic(fmt.Sprintf("Can't unpack type %T", target))
}

// UnpackSome reads multiple items from the data.
func UnpackSome(data []byte, targets ...any) (uint, error) {
	offset := uint(0)

	for _, target := range targets {
		n, err := Unpack(data[offset:], target)
		if err != nil {
			return offset, err
		}

		offset += n
	}

	return offset, nil
}
