// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"errors"
	"fmt"

	"github.com/LB-00/knx-tunnel/knx/cemi"
)

// A GroupCommand determines the meaning of a group communication.
type GroupCommand uint8

// These are the supported group commands.
const (
	GroupRead     GroupCommand = 0
	GroupResponse GroupCommand = 1
	GroupWrite    GroupCommand = 2
)

// String generates a readable name for the group command.
func (cmd GroupCommand) String() string {
	switch cmd {
	case GroupRead:
		return "Read"
	case GroupResponse:
		return "Response"
	case GroupWrite:
		return "Write"
	}

	return fmt.Sprintf("GroupCommand(%d)", uint8(cmd))
}

// ParseGroupCommand parses a command name as accepted on command lines:
// "read", "response" or "write".
func ParseGroupCommand(name string) (GroupCommand, error) {
	switch name {
	case "read":
		return GroupRead, nil
	case "response":
		return GroupResponse, nil
	case "write":
		return GroupWrite, nil
	}

	return 0, fmt.Errorf("unknown group command %q", name)
}

// ErrNotGroupMessage indicates a telegram that does not carry group
// communication.
var ErrNotGroupMessage = errors.New("message does not carry a group command")

// A GroupEvent is a group communication on the bus. Data holds the
// datapoint payload; values of up to 6 bits travel as a single byte.
type GroupEvent struct {
	Command     GroupCommand
	Source      cemi.IndividualAddr
	Destination cemi.GroupAddr
	Data        []byte
}

func (ev GroupEvent) String() string {
	return fmt.Sprintf("%v %v->%v % x", ev.Command, ev.Source, ev.Destination, ev.Data)
}

// apci returns the application command for the event.
func (ev GroupEvent) apci() cemi.APCI {
	switch ev.Command {
	case GroupResponse:
		return cemi.GroupValueResponse
	case GroupWrite:
		return cemi.GroupValueWrite
	}

	return cemi.GroupValueRead
}

// OutboundGroupEvent converts the event into a telegram ready to be sent
// through the tunnel.
func OutboundGroupEvent(ev GroupEvent, source cemi.IndividualAddr) cemi.Message {
	app := &cemi.AppData{Command: ev.apci()}

	// A single byte below 64 fits into the APCI's low bits and is sent
	// inline. Larger payloads travel after a zero APCI octet.
	if len(ev.Data) == 1 && ev.Data[0] < 0x40 {
		app.Data = []byte{ev.Data[0]}
	} else if len(ev.Data) > 0 {
		app.Data = append([]byte{0}, ev.Data...)
	} else {
		app.Data = []byte{0}
	}

	return &cemi.LDataReq{
		LData: cemi.NewLData(source, ev.Destination, app),
	}
}

// InboundGroupEvent extracts a group event from a received telegram. It
// returns ErrNotGroupMessage for telegrams that are not indications or
// confirmations carrying a read, response or write.
func InboundGroupEvent(msg cemi.Message) (GroupEvent, error) {
	var ldata *cemi.LData

	switch msg := msg.(type) {
	case *cemi.LDataInd:
		ldata = &msg.LData
	case *cemi.LDataCon:
		ldata = &msg.LData
	default:
		return GroupEvent{}, ErrNotGroupMessage
	}

	app, ok := ldata.Data.(*cemi.AppData)
	if !ok {
		return GroupEvent{}, ErrNotGroupMessage
	}

	ev := GroupEvent{
		Source:      ldata.Source,
		Destination: ldata.Destination,
	}

	switch app.Command {
	case cemi.GroupValueRead:
		ev.Command = GroupRead
	case cemi.GroupValueResponse:
		ev.Command = GroupResponse
	case cemi.GroupValueWrite:
		ev.Command = GroupWrite
	default:
		return GroupEvent{}, ErrNotGroupMessage
	}

	// A TPDU of a single octet carries the value inline in the APCI's low
	// bits; otherwise the payload follows the APCI octet.
	if len(app.Data) <= 1 {
		ev.Data = []byte{firstByte(app.Data) & 0x3f}
	} else {
		ev.Data = app.Data[1:]
	}

	return ev, nil
}

func firstByte(data []byte) byte {
	if len(data) == 0 {
		return 0
	}

	return data[0]
}
