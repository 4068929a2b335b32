// Licensed under the MIT license which can be found in the LICENSE file.

package knxnet

import (
	"errors"
	"fmt"

	"github.com/LB-00/knx-tunnel/knx/cemi"
	"github.com/LB-00/knx-tunnel/knx/util"
)

// ConnType describes the type of connection a client requests from a server.
type ConnType uint8

const (
	// TunnelConnType is a connection that tunnels single KNX telegrams. It is
	// the only connection type this library speaks.
	TunnelConnType ConnType = 0x04
)

// String generates a readable name for the connection type.
func (ct ConnType) String() string {
	if ct == TunnelConnType {
		return "Tunnel"
	}

	return fmt.Sprintf("ConnType(%#02x)", uint8(ct))
}

// TunnelLayer identifies the KNX layer the tunnel operates on.
type TunnelLayer uint8

const (
	// TunnelLayerData establishes a data-link layer tunnel. Telegrams are
	// tunnelled as they appear on the bus.
	TunnelLayerData TunnelLayer = 0x02

	// TunnelLayerRaw establishes a raw tunnel.
	TunnelLayerRaw TunnelLayer = 0x04

	// TunnelLayerBusmon establishes a bus monitor tunnel.
	TunnelLayerBusmon TunnelLayer = 0x80
)

// String generates a readable name for the tunnel layer.
func (layer TunnelLayer) String() string {
	switch layer {
	case TunnelLayerData:
		return "DataLinkLayer"
	case TunnelLayerRaw:
		return "RawLayer"
	case TunnelLayerBusmon:
		return "BusMonitorLayer"
	}

	return fmt.Sprintf("TunnelLayer(%#02x)", uint8(layer))
}

// These errors occur while dealing with connection information blocks.
var (
	ErrInfoBlockLength       = errors.New("connection info block length is invalid")
	ErrUnexpectedConnType    = errors.New("unexpected connection type")
	ErrUnexpectedTunnelLayer = errors.New("unexpected tunnel layer")
)

// A ConnReq requests a connection to a server.
type ConnReq struct {
	Control HostInfo
	Tunnel  HostInfo
	Layer   TunnelLayer
}

// Service returns the service identifier for a Connection Request.
func (ConnReq) Service() ServiceID {
	return ConnReqService
}

// Size returns the packed size.
func (req ConnReq) Size() uint {
	return req.Control.Size() + req.Tunnel.Size() + 4
}

// Pack assembles the Connection Request structure in the given buffer.
func (req *ConnReq) Pack(buffer []byte) {
	util.PackSome(
		buffer,
		&req.Control,
		&req.Tunnel,
		byte(4),
		uint8(TunnelConnType),
		uint8(req.Layer),
		byte(0),
	)
}

// Unpack parses the given service payload in order to initialize the
// Connection Request structure.
func (req *ConnReq) Unpack(data []byte) (n uint, err error) {
	var length, connType, reserved uint8

	if n, err = util.UnpackSome(
		data,
		&req.Control,
		&req.Tunnel,
		&length, &connType, (*uint8)(&req.Layer), &reserved,
	); err != nil {
		return
	}

	if length != 4 {
		return n, ErrInfoBlockLength
	}

	if ConnType(connType) != TunnelConnType {
		return n, fmt.Errorf("%w: %v", ErrUnexpectedConnType, ConnType(connType))
	}

	if req.Layer != TunnelLayerData {
		return n, fmt.Errorf("%w: %v", ErrUnexpectedTunnelLayer, req.Layer)
	}

	return
}

// A ConnRes is a response to a Connection Request. On success it carries the
// server's data endpoint and the individual address the tunnel was assigned
// on the bus; on failure only the status is present.
type ConnRes struct {
	Channel uint8
	Status  ErrCode
	Data    HostInfo
	BusAddr cemi.IndividualAddr
}

// Service returns the service identifier for a Connection Response.
func (ConnRes) Service() ServiceID {
	return ConnResService
}

// Size returns the packed size.
func (res ConnRes) Size() uint {
	if res.Status.IsError() {
		return 2
	}

	return 2 + res.Data.Size() + 4
}

// Pack assembles the Connection Response structure in the given buffer.
func (res *ConnRes) Pack(buffer []byte) {
	if res.Status.IsError() {
		util.PackSome(buffer, res.Channel, uint8(res.Status))
		return
	}

	util.PackSome(
		buffer,
		res.Channel,
		uint8(res.Status),
		&res.Data,
		byte(4),
		uint8(TunnelConnType),
		res.BusAddr,
	)
}

// Unpack parses the given service payload in order to initialize the
// Connection Response structure.
func (res *ConnRes) Unpack(data []byte) (n uint, err error) {
	if n, err = util.UnpackSome(data, &res.Channel, (*uint8)(&res.Status)); err != nil {
		return
	}

	// Data endpoint and connection info are absent on error.
	if res.Status.IsError() {
		return
	}

	var length, connType uint8

	m, err := util.UnpackSome(
		data[n:], &res.Data, &length, &connType, &res.BusAddr,
	)
	n += m

	if err != nil {
		return n, err
	}

	if length != 4 {
		return n, ErrInfoBlockLength
	}

	if ConnType(connType) != TunnelConnType {
		return n, fmt.Errorf("%w: %v", ErrUnexpectedConnType, ConnType(connType))
	}

	return
}

// A ConnStateReq requests the state of a connection. Servers respond to it as
// long as the connection is alive, which makes it the heartbeat of the
// protocol.
type ConnStateReq struct {
	Channel uint8
	Control HostInfo
}

// Service returns the service identifier for a Connection State Request.
func (ConnStateReq) Service() ServiceID {
	return ConnStateReqService
}

// Size returns the packed size.
func (req ConnStateReq) Size() uint {
	return 2 + req.Control.Size()
}

// Pack assembles the Connection State Request structure in the given buffer.
func (req *ConnStateReq) Pack(buffer []byte) {
	util.PackSome(buffer, req.Channel, byte(0), &req.Control)
}

// Unpack parses the given service payload in order to initialize the
// Connection State Request structure.
func (req *ConnStateReq) Unpack(data []byte) (uint, error) {
	var reserved uint8

	return util.UnpackSome(data, &req.Channel, &reserved, &req.Control)
}

// A ConnStateRes is a response to a Connection State Request.
type ConnStateRes struct {
	Channel uint8
	Status  ErrCode
}

// Service returns the service identifier for a Connection State Response.
func (ConnStateRes) Service() ServiceID {
	return ConnStateResService
}

// Size returns the packed size.
func (ConnStateRes) Size() uint {
	return 2
}

// Pack assembles the Connection State Response structure in the given buffer.
func (res *ConnStateRes) Pack(buffer []byte) {
	util.PackSome(buffer, res.Channel, uint8(res.Status))
}

// Unpack parses the given service payload in order to initialize the
// Connection State Response structure.
func (res *ConnStateRes) Unpack(data []byte) (uint, error) {
	return util.UnpackSome(data, &res.Channel, (*uint8)(&res.Status))
}

// A DiscReq requests the termination of a connection. Both client and server
// may send it.
type DiscReq struct {
	Channel uint8
	Control HostInfo
}

// Service returns the service identifier for a Disconnect Request.
func (DiscReq) Service() ServiceID {
	return DiscReqService
}

// Size returns the packed size.
func (req DiscReq) Size() uint {
	return 2 + req.Control.Size()
}

// Pack assembles the Disconnect Request structure in the given buffer.
func (req *DiscReq) Pack(buffer []byte) {
	util.PackSome(buffer, req.Channel, byte(0), &req.Control)
}

// Unpack parses the given service payload in order to initialize the
// Disconnect Request structure.
func (req *DiscReq) Unpack(data []byte) (uint, error) {
	var reserved uint8

	return util.UnpackSome(data, &req.Channel, &reserved, &req.Control)
}

// A DiscRes is a response to a Disconnect Request.
type DiscRes struct {
	Channel uint8
	Status  ErrCode
}

// Service returns the service identifier for a Disconnect Response.
func (DiscRes) Service() ServiceID {
	return DiscResService
}

// Size returns the packed size.
func (DiscRes) Size() uint {
	return 2
}

// Pack assembles the Disconnect Response structure in the given buffer.
func (res *DiscRes) Pack(buffer []byte) {
	util.PackSome(buffer, res.Channel, uint8(res.Status))
}

// Unpack parses the given service payload in order to initialize the
// Disconnect Response structure.
func (res *DiscRes) Unpack(data []byte) (uint, error) {
	return util.UnpackSome(data, &res.Channel, (*uint8)(&res.Status))
}

// A TunnelReq transports a telegram over an established connection.
type TunnelReq struct {
	Channel   uint8
	SeqNumber uint8
	Payload   cemi.Message
}

// Service returns the service identifier for a Tunnel Request.
func (TunnelReq) Service() ServiceID {
	return TunnelReqService
}

// Size returns the packed size.
func (req TunnelReq) Size() uint {
	return 4 + cemi.Size(req.Payload)
}

// Pack assembles the Tunnel Request structure in the given buffer.
func (req *TunnelReq) Pack(buffer []byte) {
	util.PackSome(buffer, byte(4), req.Channel, req.SeqNumber, byte(0))
	cemi.Pack(buffer[4:], req.Payload)
}

// Unpack parses the given service payload in order to initialize the Tunnel
// Request structure.
func (req *TunnelReq) Unpack(data []byte) (n uint, err error) {
	var length, reserved uint8

	if n, err = util.UnpackSome(
		data, &length, &req.Channel, &req.SeqNumber, &reserved,
	); err != nil {
		return
	}

	if length != 4 {
		return n, ErrInfoBlockLength
	}

	m, err := cemi.Unpack(data[n:], &req.Payload)
	n += m

	return n, err
}

// A TunnelRes acknowledges a Tunnel Request.
type TunnelRes struct {
	Channel   uint8
	SeqNumber uint8
	Status    ErrCode
}

// Service returns the service identifier for a Tunnel Response.
func (TunnelRes) Service() ServiceID {
	return TunnelResService
}

// Size returns the packed size.
func (TunnelRes) Size() uint {
	return 4
}

// Pack assembles the Tunnel Response structure in the given buffer.
func (res *TunnelRes) Pack(buffer []byte) {
	util.PackSome(buffer, byte(4), res.Channel, res.SeqNumber, uint8(res.Status))
}

// Unpack parses the given service payload in order to initialize the Tunnel
// Response structure.
func (res *TunnelRes) Unpack(data []byte) (n uint, err error) {
	var length uint8

	if n, err = util.UnpackSome(
		data, &length, &res.Channel, &res.SeqNumber, (*uint8)(&res.Status),
	); err != nil {
		return
	}

	if length != 4 {
		return n, ErrInfoBlockLength
	}

	return
}
