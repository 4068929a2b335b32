// Licensed under the MIT license which can be found in the LICENSE file.

package cemi

import (
	"fmt"

	"github.com/LB-00/knx-tunnel/knx/util"
)

// TPCI is the Transport Protocol Control Information.
type TPCI uint8

// These are usable TPCI values.
const (
	Connect    TPCI = 0
	Disconnect TPCI = 1
	Ack        TPCI = 2
	Nak        TPCI = 3
)

// APCI is the Application-layer Protocol Control Information. Only the top
// four bits of the ten-bit field are populated for the commands this library
// speaks; the low six bits are part of the application data.
type APCI uint16

// These are usable APCI values.
const (
	GroupValueRead     APCI = 0 << 6
	GroupValueResponse APCI = 1 << 6
	GroupValueWrite    APCI = 2 << 6
)

// IsGroupCommand determines if the APCI indicates a group command.
func (apci APCI) IsGroupCommand() bool {
	return (apci >> 6) < 3
}

// String generates a readable name for the APCI.
func (apci APCI) String() string {
	switch apci {
	case GroupValueRead:
		return "GroupValueRead"
	case GroupValueResponse:
		return "GroupValueResponse"
	case GroupValueWrite:
		return "GroupValueWrite"
	}

	return fmt.Sprintf("APCI(%#03x)", uint16(apci))
}

// An AppData contains application data in a transport unit. For commands
// whose payload fits six bits, Data holds a single byte carrying that value;
// larger payloads leave Data[0] zero and continue in Data[1:].
type AppData struct {
	Numbered  bool
	SeqNumber uint8
	Command   APCI
	Data      []byte
}

// Size retrieves the packed size.
func (app *AppData) Size() uint {
	dataLength := uint(len(app.Data))

	if dataLength > 255 {
		dataLength = 255
	} else if dataLength < 1 {
		dataLength = 1
	}

	return 2 + dataLength
}

// Pack into a transport data unit including its leading length byte.
func (app *AppData) Pack(buffer []byte) {
	dataLength := len(app.Data)

	if dataLength > 255 {
		dataLength = 255
	} else if dataLength < 1 {
		dataLength = 1
	}

	buffer[0] = byte(dataLength)
	buffer[1] = 0

	if app.Numbered {
		buffer[1] |= 1<<6 | (app.SeqNumber&15)<<2
	}

	// The lowest two bits of buffer[1] carry the highest two bits of the
	// ten-bit APCI.
	buffer[1] |= byte(app.Command>>8) & 3

	copy(buffer[2:], app.Data)

	// The upper two bits of the first data byte carry the remaining APCI
	// bits; the lower six bits belong to the application data.
	buffer[2] &= 63
	buffer[2] |= byte((app.Command>>6)&3) << 6
}

// A ControlData encodes control information in a transport unit.
type ControlData struct {
	Numbered  bool
	SeqNumber uint8
	Command   TPCI
}

// Size retrieves the packed size.
func (ControlData) Size() uint {
	return 2
}

// Pack into a transport data unit including its leading length byte.
func (control *ControlData) Pack(buffer []byte) {
	buffer[0] = 0
	buffer[1] = 1<<7 | uint8(control.Command&3)

	if control.Numbered {
		buffer[1] |= 1<<6 | (control.SeqNumber&15)<<2
	}
}

// A TransportUnit is responsible to transport data.
type TransportUnit interface {
	util.Packable
}

// unpackTransportUnit parses the given data in order to extract the transport
// unit that it encodes.
func unpackTransportUnit(data []byte, unit *TransportUnit) (uint, error) {
	if len(data) < 2 {
		return 0, util.ErrDataTooShort
	}

	// Control information has the highest bit set and carries no payload.
	if data[1]&(1<<7) != 0 {
		*unit = &ControlData{
			Numbered:  data[1]&(1<<6) != 0,
			SeqNumber: (data[1] >> 2) & 15,
			Command:   TPCI(data[1] & 3),
		}

		return 2, nil
	}

	dataLength := int(data[0])

	if dataLength < 1 || len(data) < dataLength+2 {
		return 0, util.ErrDataTooShort
	}

	app := &AppData{
		Numbered:  data[1]&(1<<6) != 0,
		SeqNumber: (data[1] >> 2) & 15,
		Command:   APCI(data[1]&3)<<8 | APCI(data[2]>>6)<<6,
		Data:      make([]byte, dataLength),
	}

	copy(app.Data, data[2:])
	app.Data[0] &= 63

	*unit = app

	return uint(dataLength) + 2, nil
}
