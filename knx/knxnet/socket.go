// Licensed under the MIT license which can be found in the LICENSE file.

package knxnet

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/LB-00/knx-tunnel/knx/util"
)

// DefaultPort is the port a KNXnet/IP server listens on for control traffic.
const DefaultPort = 3671

// ErrSocketClosed indicates an operation on a closed socket.
var ErrSocketClosed = errors.New("socket is closed")

// Socket is a communication endpoint that speaks KNXnet/IP frames.
type Socket interface {
	// Send transmits a frame carrying the given service to the default
	// target of the socket.
	Send(service ServicePackable) error

	// SendTo transmits a frame carrying the given service to the given
	// address.
	SendTo(service ServicePackable, addr net.Addr) error

	// Inbound returns the channel on which received services are delivered.
	// The channel is closed when the socket shuts down.
	Inbound() <-chan Service

	// LocalAddr returns the bound local address.
	LocalAddr() net.Addr

	// Close shuts the socket down.
	Close() error
}

// UDPSocket is a UDP socket that encodes and decodes KNXnet/IP frames. Frames
// that cannot be decoded are logged and dropped; they never surface on the
// inbound channel.
type UDPSocket struct {
	conn    *net.UDPConn
	target  *net.UDPAddr
	inbound chan Service

	mu     sync.Mutex
	closed bool
}

// DialTunnelUDP creates a UDP socket bound to localAddr whose default target
// is serverAddr. Address format is "ip:port"; an empty localAddr binds an
// ephemeral port on all interfaces.
func DialTunnelUDP(localAddr, serverAddr string) (*UDPSocket, error) {
	target, err := net.ResolveUDPAddr("udp4", serverAddr)
	if err != nil {
		return nil, fmt.Errorf("resolve server address: %w", err)
	}

	sock, err := ListenTunnelUDP(localAddr)
	if err != nil {
		return nil, err
	}

	sock.target = target

	return sock, nil
}

// ListenTunnelUDP creates a UDP socket bound to localAddr without a default
// target. Use SendTo to address outbound frames.
func ListenTunnelUDP(localAddr string) (*UDPSocket, error) {
	var addr *net.UDPAddr

	if localAddr != "" {
		var err error

		addr, err = net.ResolveUDPAddr("udp4", localAddr)
		if err != nil {
			return nil, fmt.Errorf("resolve local address: %w", err)
		}
	}

	conn, err := net.ListenUDP("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("listen UDP: %w", err)
	}

	sock := &UDPSocket{
		conn:    conn,
		inbound: make(chan Service, 10),
	}

	go sock.serve()

	return sock, nil
}

// Send transmits a frame to the default target.
func (sock *UDPSocket) Send(service ServicePackable) error {
	if sock.target == nil {
		return errors.New("socket has no default target")
	}

	return sock.SendTo(service, sock.target)
}

// SendTo transmits a frame to the given address.
func (sock *UDPSocket) SendTo(service ServicePackable, addr net.Addr) error {
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnsupportedProtocol, addr)
	}

	sock.mu.Lock()
	defer sock.mu.Unlock()

	if sock.closed {
		return ErrSocketClosed
	}

	buffer := make([]byte, Size(service))
	Pack(buffer, service)

	util.Log(sock, "Sending %v to %v", service.Service(), udpAddr)

	n, err := sock.conn.WriteToUDP(buffer, udpAddr)
	if err != nil {
		return fmt.Errorf("write UDP: %w", err)
	}

	if n != len(buffer) {
		return fmt.Errorf("partial write: %d of %d bytes", n, len(buffer))
	}

	return nil
}

// Inbound returns the channel on which received services are delivered.
func (sock *UDPSocket) Inbound() <-chan Service {
	return sock.inbound
}

// LocalAddr returns the bound local address.
func (sock *UDPSocket) LocalAddr() net.Addr {
	return sock.conn.LocalAddr()
}

// Close shuts the socket down. The inbound channel is closed once the reader
// has terminated.
func (sock *UDPSocket) Close() error {
	sock.mu.Lock()
	defer sock.mu.Unlock()

	if sock.closed {
		return nil
	}

	sock.closed = true

	return sock.conn.Close()
}

// serve reads datagrams from the socket, decodes them and forwards them on
// the inbound channel.
func (sock *UDPSocket) serve() {
	defer close(sock.inbound)

	buffer := make([]byte, 1500)

	for {
		n, addr, err := sock.conn.ReadFromUDP(buffer)
		if err != nil {
			// Reads fail permanently once the socket has been closed.
			return
		}

		var service Service

		if _, err = Unpack(buffer[:n], &service); err != nil {
			util.Log(sock, "Dropping malformed datagram from %v: %v", addr, err)
			continue
		}

		select {
		case sock.inbound <- service:

		default:
			util.Log(sock, "Inbound queue is full, dropping %v", service.Service())
		}
	}
}
