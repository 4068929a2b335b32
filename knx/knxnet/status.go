// Licensed under the MIT license which can be found in the LICENSE file.

package knxnet

import "fmt"

// ErrCode is a status code transmitted in KNXnet/IP response frames.
type ErrCode uint8

// These are known status codes.
const (
	// NoError indicates a successful operation.
	NoError ErrCode = 0x00

	// ErrHostProtocolType indicates an unsupported host protocol.
	ErrHostProtocolType ErrCode = 0x01

	// ErrVersionNotSupported indicates an unsupported KNXnet/IP protocol version.
	ErrVersionNotSupported ErrCode = 0x02

	// ErrSequenceNumber indicates that an out-of-order sequence number has
	// been received.
	ErrSequenceNumber ErrCode = 0x04

	// ErrConnectionID indicates that there is no active data connection with
	// the given ID.
	ErrConnectionID ErrCode = 0x21

	// ErrConnectionType indicates an unsupported connection type.
	ErrConnectionType ErrCode = 0x22

	// ErrConnectionOption indicates an unsupported connection option.
	ErrConnectionOption ErrCode = 0x23

	// ErrNoMoreConnections is returned by a tunnelling server when it cannot
	// accept more connections.
	ErrNoMoreConnections ErrCode = 0x24

	// ErrDataConnection indicates an error with a data connection.
	ErrDataConnection ErrCode = 0x26

	// ErrKNXConnection indicates an error with a KNX connection.
	ErrKNXConnection ErrCode = 0x27
)

var errCodeNames = map[ErrCode]string{
	NoError:                "NoError",
	ErrHostProtocolType:    "HostProtocolType",
	ErrVersionNotSupported: "VersionNotSupported",
	ErrSequenceNumber:      "SequenceNumber",
	ErrConnectionID:        "ConnectionID",
	ErrConnectionType:      "ConnectionType",
	ErrConnectionOption:    "ConnectionOption",
	ErrNoMoreConnections:   "NoMoreConnections",
	ErrDataConnection:      "DataConnection",
	ErrKNXConnection:       "KNXConnection",
}

// String generates a readable name for the status code.
func (code ErrCode) String() string {
	if name, ok := errCodeNames[code]; ok {
		return name
	}

	return fmt.Sprintf("ErrCode(%#02x)", uint8(code))
}

// ErrCodeByName resolves a status code from its readable name. The second
// return value is false if the name is unknown.
func ErrCodeByName(name string) (ErrCode, bool) {
	for code, n := range errCodeNames {
		if n == name {
			return code, true
		}
	}

	return 0, false
}

// IsError determines if the status code indicates a failure.
func (code ErrCode) IsError() bool {
	return code != NoError
}
