// Licensed under the MIT license which can be found in the LICENSE file.

package cemi

import (
	"errors"
	"fmt"

	"github.com/LB-00/knx-tunnel/knx/util"
)

// MessageCode identifies the service a cEMI frame carries.
type MessageCode uint8

// These are usable message codes.
const (
	LDataReqCode MessageCode = 0x11
	LDataIndCode MessageCode = 0x29
	LDataConCode MessageCode = 0x2E
)

// String generates a readable name for the message code.
func (code MessageCode) String() string {
	switch code {
	case LDataReqCode:
		return "LData.req"
	case LDataIndCode:
		return "LData.ind"
	case LDataConCode:
		return "LData.con"
	}

	return fmt.Sprintf("MessageCode(%#02x)", uint8(code))
}

// ErrUnsupportedMessageCode indicates a cEMI frame whose message code this
// library does not speak.
var ErrUnsupportedMessageCode = errors.New("unsupported cEMI message code")

// Message is a cEMI frame payload.
type Message interface {
	util.Packable

	// MessageCode returns the code which identifies the message type.
	MessageCode() MessageCode
}

// Size returns the packed size of a message including its leading message
// code and additional-info length byte.
func Size(message Message) uint {
	return 2 + message.Size()
}

// Pack assembles the message with its message code and an empty
// additional-info segment. The buffer has to be at least Size(message) bytes
// long.
func Pack(buffer []byte, message Message) {
	buffer[0] = byte(message.MessageCode())
	buffer[1] = 0
	message.Pack(buffer[2:])
}

// Unpack parses the given data in order to extract a message. Additional
// information is skipped, not retained.
func Unpack(data []byte, message *Message) (uint, error) {
	var code, infoLen uint8

	n, err := util.UnpackSome(data, &code, &infoLen)
	if err != nil {
		return n, err
	}

	if uint(len(data)) < n+uint(infoLen) {
		return n, util.ErrDataTooShort
	}

	n += uint(infoLen)

	var target Unpackable

	switch MessageCode(code) {
	case LDataReqCode:
		target = &LDataReq{}
	case LDataIndCode:
		target = &LDataInd{}
	case LDataConCode:
		target = &LDataCon{}
	default:
		return n, fmt.Errorf("%w: %#02x", ErrUnsupportedMessageCode, code)
	}

	m, err := target.Unpack(data[n:])
	if err != nil {
		return n + m, err
	}

	*message = target.(Message)

	return n + m, nil
}

// Unpackable is both a message and unpackable.
type Unpackable interface {
	util.Unpackable

	// MessageCode returns the code which identifies the message type.
	MessageCode() MessageCode
}
