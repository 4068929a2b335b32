// Licensed under the MIT license which can be found in the LICENSE file.

package cemi

import (
	"github.com/LB-00/knx-tunnel/knx/util"
)

// ControlField1 contains frame format, repeat, broadcast, priority and
// acknowledge flags.
type ControlField1 uint8

// These are usable ControlField1 values.
const (
	Control1StdFrame       ControlField1 = 1 << 7
	Control1NoRepeat       ControlField1 = 1 << 5
	Control1NoSysBroadcast ControlField1 = 1 << 4
	Control1WantAck        ControlField1 = 1 << 1
	Control1HasError       ControlField1 = 1
)

// Control1Prio inserts the priority field.
func Control1Prio(prio Priority) ControlField1 {
	return ControlField1(prio&3) << 2
}

// Priority is the bus access priority of a frame.
type Priority uint8

// These are usable priorities.
const (
	PrioSystem Priority = 0
	PrioNormal Priority = 1
	PrioUrgent Priority = 2
	PrioLow    Priority = 3
)

// ControlField2 contains the destination address type, hop count and extended
// frame format.
type ControlField2 uint8

// Control2GroupAddr marks the destination as a group address.
const Control2GroupAddr ControlField2 = 1 << 7

// Control2Hops inserts the hop count.
func Control2Hops(hops uint8) ControlField2 {
	return ControlField2(hops&7) << 4
}

// An LData is a link-layer data frame addressed to a group.
type LData struct {
	Control1    ControlField1
	Control2    ControlField2
	Source      IndividualAddr
	Destination GroupAddr
	Data        TransportUnit
}

// NewLData constructs a group-addressed frame with the standard control
// fields: standard frame, no repetition, low priority, hop count 6.
func NewLData(src IndividualAddr, dest GroupAddr, data TransportUnit) LData {
	return LData{
		Control1:    Control1StdFrame | Control1NoRepeat | Control1NoSysBroadcast | Control1Prio(PrioLow),
		Control2:    Control2GroupAddr | Control2Hops(6),
		Source:      src,
		Destination: dest,
		Data:        data,
	}
}

// Size returns the packed size.
func (ldata *LData) Size() uint {
	return 4 + ldata.Destination.Size() + ldata.Data.Size()
}

// Pack assembles the frame in the given buffer.
func (ldata *LData) Pack(buffer []byte) {
	util.PackSome(
		buffer,
		uint8(ldata.Control1),
		uint8(ldata.Control2),
		uint16(ldata.Source),
		ldata.Destination,
		ldata.Data,
	)
}

// Unpack parses the given data in order to initialize the frame.
func (ldata *LData) Unpack(data []byte) (n uint, err error) {
	if n, err = util.UnpackSome(
		data,
		(*uint8)(&ldata.Control1),
		(*uint8)(&ldata.Control2),
		(*uint16)(&ldata.Source),
		&ldata.Destination,
	); err != nil {
		return
	}

	m, err := unpackTransportUnit(data[n:], &ldata.Data)
	n += m

	return n, err
}

// An LDataReq is a request to transmit a frame on the bus.
type LDataReq struct {
	LData
}

// MessageCode returns the message code for a L_Data.req.
func (LDataReq) MessageCode() MessageCode {
	return LDataReqCode
}

// An LDataInd indicates that a frame has been received from the bus.
type LDataInd struct {
	LData
}

// MessageCode returns the message code for a L_Data.ind.
func (LDataInd) MessageCode() MessageCode {
	return LDataIndCode
}

// An LDataCon confirms the transmission of a frame on the bus.
type LDataCon struct {
	LData
}

// MessageCode returns the message code for a L_Data.con.
func (LDataCon) MessageCode() MessageCode {
	return LDataConCode
}
