// Licensed under the MIT license which can be found in the LICENSE file.

package knxnet

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LB-00/knx-tunnel/knx/cemi"
)

func packService(t *testing.T, service ServicePackable) []byte {
	t.Helper()

	buffer := make([]byte, Size(service))
	Pack(buffer, service)

	return buffer
}

func TestPackConnReq(t *testing.T) {
	req := &ConnReq{
		Control: HostInfo{
			Protocol: UDP4,
			Address:  Address{10, 10, 42, 2},
			Port:     63134,
		},
		Tunnel: HostInfo{
			Protocol: UDP4,
			Address:  Address{192, 168, 10, 99},
			Port:     34512,
		},
		Layer: TunnelLayerData,
	}

	expected := []byte{
		0x06, 0x10, 0x02, 0x05, 0x00, 0x1a,
		0x08, 0x01, 0x0a, 0x0a, 0x2a, 0x02, 0xf6, 0x9e,
		0x08, 0x01, 0xc0, 0xa8, 0x0a, 0x63, 0x86, 0xd0,
		0x04, 0x04, 0x02, 0x00,
	}

	assert.Equal(t, expected, packService(t, req))
}

func TestServiceRoundTrips(t *testing.T) {
	hostInfo := HostInfo{
		Protocol: UDP4,
		Address:  Address{127, 0, 0, 1},
		Port:     3671,
	}

	services := []ServicePackable{
		&ConnReq{Control: hostInfo, Tunnel: hostInfo, Layer: TunnelLayerData},
		&ConnRes{Channel: 7, Status: NoError, Data: hostInfo, BusAddr: cemi.IndividualAddr(0x1103)},
		&ConnRes{Channel: 0, Status: ErrNoMoreConnections},
		&ConnStateReq{Channel: 7, Control: hostInfo},
		&ConnStateRes{Channel: 7, Status: NoError},
		&DiscReq{Channel: 7, Control: hostInfo},
		&DiscRes{Channel: 7, Status: NoError},
		&TunnelRes{Channel: 7, SeqNumber: 42, Status: NoError},
	}

	for _, service := range services {
		t.Run(service.Service().String(), func(t *testing.T) {
			buffer := packService(t, service)

			var parsed Service

			n, err := Unpack(buffer, &parsed)
			require.NoError(t, err)
			assert.Equal(t, uint(len(buffer)), n)
			assert.Equal(t, service, parsed)
		})
	}
}

func TestTunnelReqRoundTrip(t *testing.T) {
	req := &TunnelReq{
		Channel:   3,
		SeqNumber: 9,
		Payload: &cemi.LDataInd{
			LData: cemi.NewLData(
				cemi.IndividualAddr(0x1101),
				cemi.GroupAddr(0x0003),
				&cemi.AppData{Command: cemi.GroupValueWrite, Data: []byte{0x19}},
			),
		},
	}

	buffer := packService(t, req)

	var parsed Service

	n, err := Unpack(buffer, &parsed)
	require.NoError(t, err)
	assert.Equal(t, uint(len(buffer)), n)
	assert.Equal(t, req, parsed)
}

func TestUnpackHeaderErrors(t *testing.T) {
	valid := packService(t, &ConnStateRes{Channel: 1, Status: NoError})

	tests := []struct {
		name   string
		mutate func([]byte) []byte
		err    error
	}{
		{
			name:   "wrong header size",
			mutate: func(b []byte) []byte { b[0] = 5; return b },
			err:    ErrHeaderLength,
		},
		{
			name:   "wrong version",
			mutate: func(b []byte) []byte { b[1] = 0x20; return b },
			err:    ErrHeaderVersion,
		},
		{
			name:   "truncated frame",
			mutate: func(b []byte) []byte { return b[:len(b)-1] },
			err:    ErrFrameTooShort,
		},
		{
			name:   "unknown service",
			mutate: func(b []byte) []byte { b[2], b[3] = 0x07, 0x77; return b },
			err:    ErrUnknownService,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buffer := tt.mutate(append([]byte(nil), valid...))

			var parsed Service

			_, err := Unpack(buffer, &parsed)
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestConnResErrorOmitsEndpoint(t *testing.T) {
	res := &ConnRes{Channel: 0, Status: ErrNoMoreConnections}

	buffer := packService(t, res)
	assert.Len(t, buffer, 8)

	var parsed Service

	_, err := Unpack(buffer, &parsed)
	require.NoError(t, err)

	parsedRes, ok := parsed.(*ConnRes)
	require.True(t, ok)
	assert.Equal(t, ErrNoMoreConnections, parsedRes.Status)
}

func TestHostInfoRejectsUnknownProtocol(t *testing.T) {
	data := []byte{8, 0x02, 127, 0, 0, 1, 0x0e, 0x57}

	var info HostInfo

	_, err := info.Unpack(data)
	assert.ErrorIs(t, err, ErrUnsupportedProtocol)
}

func TestHostInfoRejectsBadLength(t *testing.T) {
	data := []byte{7, 0x01, 127, 0, 0, 1, 0x0e, 0x57}

	var info HostInfo

	_, err := info.Unpack(data)
	assert.ErrorIs(t, err, ErrHostInfoLength)
}

func TestHostInfoFromAddress(t *testing.T) {
	info, err := HostInfoFromAddress(&net.UDPAddr{
		IP:   net.IPv4(192, 168, 10, 99),
		Port: 34512,
	})
	require.NoError(t, err)

	assert.Equal(t, HostInfo{
		Protocol: UDP4,
		Address:  Address{192, 168, 10, 99},
		Port:     34512,
	}, info)

	_, err = HostInfoFromAddress(&net.TCPAddr{IP: net.IPv4(1, 2, 3, 4), Port: 80})
	assert.Error(t, err)
}

func TestConnReqRejectsWrongConnType(t *testing.T) {
	buffer := packService(t, &ConnReq{
		Control: HostInfo{Protocol: UDP4},
		Tunnel:  HostInfo{Protocol: UDP4},
		Layer:   TunnelLayerData,
	})

	// Flip the connection type inside the CRI.
	buffer[len(buffer)-3] = 0x03

	var parsed Service

	_, err := Unpack(buffer, &parsed)
	assert.ErrorIs(t, err, ErrUnexpectedConnType)
}

func TestErrCodeByName(t *testing.T) {
	code, ok := ErrCodeByName("NoMoreConnections")
	require.True(t, ok)
	assert.Equal(t, ErrNoMoreConnections, code)

	_, ok = ErrCodeByName("NotARealCode")
	assert.False(t, ok)
}
