// Licensed under the MIT license which can be found in the LICENSE file.

package knxnet

import (
	"errors"
	"fmt"

	"github.com/LB-00/knx-tunnel/knx/util"
)

// ServiceID identifies the service that is contained in a KNXnet/IP frame.
type ServiceID uint16

// These are the supported services.
const (
	ConnReqService      ServiceID = 0x0205
	ConnResService      ServiceID = 0x0206
	ConnStateReqService ServiceID = 0x0207
	ConnStateResService ServiceID = 0x0208
	DiscReqService      ServiceID = 0x0209
	DiscResService      ServiceID = 0x020a
	TunnelReqService    ServiceID = 0x0420
	TunnelResService    ServiceID = 0x0421
)

// String generates a readable name for the service.
func (srv ServiceID) String() string {
	switch srv {
	case ConnReqService:
		return "ConnectionRequest"
	case ConnResService:
		return "ConnectionResponse"
	case ConnStateReqService:
		return "ConnectionStateRequest"
	case ConnStateResService:
		return "ConnectionStateResponse"
	case DiscReqService:
		return "DisconnectRequest"
	case DiscResService:
		return "DisconnectResponse"
	case TunnelReqService:
		return "TunnelRequest"
	case TunnelResService:
		return "TunnelResponse"
	}

	return fmt.Sprintf("ServiceID(%#04x)", uint16(srv))
}

// Service is the payload of a KNXnet/IP frame.
type Service interface {
	// Service returns the service identifier.
	Service() ServiceID
}

// ServicePackable combines Service and util.Packable.
type ServicePackable interface {
	util.Packable
	Service
}

// ServiceUnpackable combines Service and util.Unpackable.
type ServiceUnpackable interface {
	util.Unpackable
	Service
}

const (
	headerLen = 6
	protoVer  = 0x10
)

// These errors occur while dealing with the KNXnet/IP frame header.
var (
	ErrHeaderLength  = errors.New("header length is not 6")
	ErrHeaderVersion = errors.New("protocol version is not 0x10")
	ErrFrameTooShort = errors.New("frame is shorter than the length given in its header")
)

// ErrUnknownService is the base for errors caused by frames whose service
// this library does not speak. Callers are expected to log and carry on.
var ErrUnknownService = errors.New("unknown service identifier")

// Size returns the packed size of a frame carrying the given service.
func Size(service ServicePackable) uint {
	return headerLen + service.Size()
}

// Pack assembles a frame for the given service in the buffer. The buffer has
// to be at least Size(service) bytes long.
func Pack(buffer []byte, service ServicePackable) {
	util.PackSome(
		buffer,
		byte(headerLen),
		byte(protoVer),
		uint16(service.Service()),
		uint16(headerLen+service.Size()),
	)

	service.Pack(buffer[headerLen:])
}

// Unpack parses the given data in order to extract the service it contains.
func Unpack(data []byte, service *Service) (uint, error) {
	var headerSize, version uint8
	var srvID ServiceID
	var totalLen uint16

	n, err := util.UnpackSome(
		data, &headerSize, &version, (*uint16)(&srvID), &totalLen,
	)
	if err != nil {
		return n, err
	}

	if headerSize != headerLen {
		return n, ErrHeaderLength
	}

	if version != protoVer {
		return n, ErrHeaderVersion
	}

	if totalLen < headerLen {
		return n, fmt.Errorf("total length %d is shorter than the header", totalLen)
	}

	if uint(len(data)) < uint(totalLen) {
		return n, ErrFrameTooShort
	}

	var body ServiceUnpackable

	switch srvID {
	case ConnReqService:
		body = &ConnReq{}
	case ConnResService:
		body = &ConnRes{}
	case ConnStateReqService:
		body = &ConnStateReq{}
	case ConnStateResService:
		body = &ConnStateRes{}
	case DiscReqService:
		body = &DiscReq{}
	case DiscResService:
		body = &DiscRes{}
	case TunnelReqService:
		body = &TunnelReq{}
	case TunnelResService:
		body = &TunnelRes{}
	default:
		return n, fmt.Errorf("%w: %v", ErrUnknownService, srvID)
	}

	m, err := body.Unpack(data[n:totalLen])
	if err != nil {
		return n + m, err
	}

	*service = body

	return n + m, nil
}
