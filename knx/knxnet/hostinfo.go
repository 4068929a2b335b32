// Licensed under the MIT license which can be found in the LICENSE file.

package knxnet

import (
	"errors"
	"fmt"
	"net"

	"github.com/LB-00/knx-tunnel/knx/util"
)

// Protocol specifies the host protocol of an endpoint.
type Protocol uint8

const (
	// UDP4 indicates a communication endpoint using UDP over IPv4. It is the
	// only host protocol this library speaks.
	UDP4 Protocol = 1

	// TCP4 indicates a communication endpoint using TCP over IPv4.
	TCP4 Protocol = 2
)

// String generates a readable name for the host protocol.
func (proto Protocol) String() string {
	switch proto {
	case UDP4:
		return "UDP4"
	case TCP4:
		return "TCP4"
	}

	return fmt.Sprintf("Protocol(%#02x)", uint8(proto))
}

// Address is an IPv4 address in network byte order.
type Address [4]byte

// String generates the dotted representation.
func (addr Address) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", addr[0], addr[1], addr[2], addr[3])
}

// Port is a UDP port number.
type Port uint16

// These errors occur while dealing with host information.
var (
	ErrHostInfoLength      = errors.New("host info structure length is invalid")
	ErrUnsupportedProtocol = errors.New("unsupported host protocol")
	ErrInvalidAddress      = errors.New("address is not an IPv4 address")
)

// HostInfo describes a communication endpoint.
type HostInfo struct {
	Protocol Protocol
	Address  Address
	Port     Port
}

// HostInfoFromAddress extracts endpoint information from the given address.
// Only UDP endpoints with IPv4 addresses are supported.
func HostInfoFromAddress(address net.Addr) (HostInfo, error) {
	udpAddr, ok := address.(*net.UDPAddr)
	if !ok {
		return HostInfo{}, fmt.Errorf("%w: %T", ErrUnsupportedProtocol, address)
	}

	hostinfo := HostInfo{
		Protocol: UDP4,
		Port:     Port(udpAddr.Port),
	}

	ip := udpAddr.IP.To4()
	if ip == nil {
		return HostInfo{}, fmt.Errorf("%w: %v", ErrInvalidAddress, udpAddr.IP)
	}

	copy(hostinfo.Address[:], ip)

	return hostinfo, nil
}

// UDPAddr converts the endpoint into a UDP address.
func (info HostInfo) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{
		IP:   net.IP(info.Address[:]),
		Port: int(info.Port),
	}
}

// Size returns the packed size.
func (HostInfo) Size() uint {
	return 8
}

// Pack assembles the host info structure in the given buffer.
func (info *HostInfo) Pack(buffer []byte) {
	util.PackSome(
		buffer,
		byte(8),
		uint8(info.Protocol),
		info.Address[:],
		uint16(info.Port),
	)
}

// Unpack parses the given data in order to initialize the structure. Only
// endpoints using UDP over IPv4 are accepted.
func (info *HostInfo) Unpack(data []byte) (n uint, err error) {
	var length uint8

	if n, err = util.UnpackSome(
		data, &length, (*uint8)(&info.Protocol), info.Address[:], (*uint16)(&info.Port),
	); err != nil {
		return
	}

	if length != 8 {
		return n, ErrHostInfoLength
	}

	if info.Protocol != UDP4 {
		return n, fmt.Errorf("%w: %v", ErrUnsupportedProtocol, info.Protocol)
	}

	return
}
