// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LB-00/knx-tunnel/knx/cemi"
	"github.com/LB-00/knx-tunnel/knx/knxnet"
)

// fakeSocket records outbound services and lets the test inject inbound
// ones, standing in for the server side of the connection.
type fakeSocket struct {
	local   net.Addr
	inbound chan knxnet.Service
	sent    chan knxnet.ServicePackable

	mu     sync.Mutex
	closed bool
}

func newFakeSocket(port int) *fakeSocket {
	return &fakeSocket{
		local:   &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1), Port: port},
		inbound: make(chan knxnet.Service, 16),
		sent:    make(chan knxnet.ServicePackable, 64),
	}
}

func (s *fakeSocket) Send(service knxnet.ServicePackable) error {
	s.sent <- service
	return nil
}

func (s *fakeSocket) SendTo(service knxnet.ServicePackable, _ net.Addr) error {
	s.sent <- service
	return nil
}

func (s *fakeSocket) Inbound() <-chan knxnet.Service {
	return s.inbound
}

func (s *fakeSocket) LocalAddr() net.Addr {
	return s.local
}

func (s *fakeSocket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.inbound)
	}

	return nil
}

// serverSend injects an inbound service unless the socket has already shut
// down.
func (s *fakeSocket) serverSend(service knxnet.Service) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}

	s.inbound <- service

	return true
}

// recordingHandler forwards every callback onto a channel. Casts carrying a
// telegram are turned into sends.
type recordingHandler struct {
	initErr error
	backoff Backoff

	connects    chan struct{}
	disconnects chan DisconnectReason
	telegrams   chan cemi.Message
	acks        chan struct{}
}

func newRecordingHandler() *recordingHandler {
	return &recordingHandler{
		connects:    make(chan struct{}, 16),
		disconnects: make(chan DisconnectReason, 16),
		telegrams:   make(chan cemi.Message, 16),
		acks:        make(chan struct{}, 16),
	}
}

func (h *recordingHandler) Init() error {
	return h.initErr
}

func (h *recordingHandler) OnConnect() Action {
	h.connects <- struct{}{}
	return Action{}
}

func (h *recordingHandler) OnDisconnect(reason DisconnectReason) Backoff {
	h.disconnects <- reason
	return h.backoff
}

func (h *recordingHandler) OnTelegram(msg cemi.Message) Action {
	h.telegrams <- msg
	return Action{}
}

func (h *recordingHandler) OnTelegramAck() Action {
	h.acks <- struct{}{}
	return Action{}
}

func (h *recordingHandler) OnCast(msg any) Action {
	if msg, ok := msg.(cemi.Message); ok {
		return ActionSend(msg)
	}

	return Action{}
}

type callingHandler struct {
	*recordingHandler
}

func (h callingHandler) OnCall(req any) (any, Action) {
	return req, Action{}
}

func recv[T any](t *testing.T, ch <-chan knxnet.ServicePackable) T {
	t.Helper()

	select {
	case srv := <-ch:
		v, ok := srv.(T)
		require.True(t, ok, "unexpected service %T", srv)

		return v

	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for an outbound service")
		panic("unreachable")
	}
}

func expectSilence(t *testing.T, ch <-chan knxnet.ServicePackable, d time.Duration) {
	t.Helper()

	select {
	case srv := <-ch:
		t.Fatalf("unexpected outbound service %T", srv)
	case <-time.After(d):
	}
}

func await[T any](t *testing.T, ch <-chan T) T {
	t.Helper()

	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a handler callback")
		panic("unreachable")
	}
}

func newTestTunnel(t *testing.T, handler Handler, config TunnelConfig) (*Tunnel, *fakeSocket, *fakeSocket) {
	t.Helper()

	control := newFakeSocket(63134)
	data := newFakeSocket(34512)

	tunnel, err := newTunnel(handler, checkTunnelConfig(config), control, data)
	require.NoError(t, err)

	t.Cleanup(func() {
		stopTunnel(t, tunnel, control)
	})

	return tunnel, control, data
}

// stopTunnel shuts the tunnel down, playing the server side of a disconnect
// handshake if one is started.
func stopTunnel(t *testing.T, tunnel *Tunnel, control *fakeSocket) {
	t.Helper()

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		tunnel.Stop()
	}()

	for {
		select {
		case srv := <-control.sent:
			if req, ok := srv.(*knxnet.DiscReq); ok {
				control.serverSend(&knxnet.DiscRes{Channel: req.Channel, Status: knxnet.NoError})
			}

		case <-stopped:
			return

		case <-time.After(2 * time.Second):
			t.Fatal("tunnel did not stop")
		}
	}
}

// acceptConnect plays the server side of a successful connection setup.
func acceptConnect(t *testing.T, control *fakeSocket) {
	t.Helper()

	req := recv[*knxnet.ConnReq](t, control.sent)
	assert.Equal(t, knxnet.TunnelLayerData, req.Layer)

	control.serverSend(&knxnet.ConnRes{
		Channel: 1,
		Status:  knxnet.NoError,
		Data: knxnet.HostInfo{
			Protocol: knxnet.UDP4,
			Address:  knxnet.Address{127, 0, 0, 1},
			Port:     3672,
		},
		BusAddr: cemi.IndividualAddr(0x1103),
	})
}

func testTelegram(value byte) *cemi.LDataInd {
	return &cemi.LDataInd{
		LData: cemi.NewLData(
			cemi.IndividualAddr(0x1101),
			cemi.GroupAddr(3),
			&cemi.AppData{Command: cemi.GroupValueWrite, Data: []byte{value}},
		),
	}
}

func TestTunnelConnectHandshake(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	assert.Equal(t, cemi.IndividualAddr(0x1103), tunnel.BusAddr())

	snapshot := tunnel.Metrics().Snapshot()
	assert.True(t, snapshot.Connected)
	assert.EqualValues(t, 1, snapshot.ConnectAttempts)
	assert.EqualValues(t, 1, snapshot.Connects)
	assert.EqualValues(t, 0, snapshot.Reconnects)
}

func TestTunnelConnectRefused(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{})

	recv[*knxnet.ConnReq](t, control.sent)
	control.serverSend(&knxnet.ConnRes{Channel: 0, Status: knxnet.ErrNoMoreConnections})

	reason := await(t, handler.disconnects)
	assert.Equal(t, ConnectResponseError, reason.Cause)
	assert.Equal(t, knxnet.ErrNoMoreConnections, reason.Status)
	assert.False(t, reason.Timeout)

	<-tunnel.Done()
}

func TestTunnelConnectResponseTimeout(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{
		ConnectResponseTimeout: 20 * time.Millisecond,
	})

	recv[*knxnet.ConnReq](t, control.sent)

	reason := await(t, handler.disconnects)
	assert.Equal(t, ConnectResponseError, reason.Cause)
	assert.True(t, reason.Timeout)

	<-tunnel.Done()
}

func TestTunnelReconnectsAfterBackoff(t *testing.T) {
	handler := newRecordingHandler()
	handler.backoff = Backoff{Retry: true, After: 5 * time.Millisecond}

	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	recv[*knxnet.ConnReq](t, control.sent)
	control.serverSend(&knxnet.ConnRes{Channel: 0, Status: knxnet.ErrNoMoreConnections})
	await(t, handler.disconnects)

	acceptConnect(t, control)
	await(t, handler.connects)

	snapshot := tunnel.Metrics().Snapshot()
	assert.EqualValues(t, 2, snapshot.ConnectAttempts)
	assert.EqualValues(t, 1, snapshot.Connects)
	assert.EqualValues(t, 1, snapshot.Disconnects)
}

func TestTunnelDeliversTelegrams(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, data := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	data.serverSend(&knxnet.TunnelReq{Channel: 1, SeqNumber: 0, Payload: testTelegram(1)})

	await(t, handler.telegrams)

	ack := recv[*knxnet.TunnelRes](t, data.sent)
	assert.EqualValues(t, 0, ack.SeqNumber)
	assert.Equal(t, knxnet.NoError, ack.Status)

	assert.EqualValues(t, 1, tunnel.Metrics().Snapshot().TelegramsReceived)
}

func TestTunnelSuppressesDuplicates(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, data := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	req := &knxnet.TunnelReq{Channel: 1, SeqNumber: 0, Payload: testTelegram(1)}

	data.serverSend(req)
	await(t, handler.telegrams)
	recv[*knxnet.TunnelRes](t, data.sent)

	// A repeated sequence number means the ack was lost. It is acknowledged
	// again but not delivered again.
	data.serverSend(req)

	ack := recv[*knxnet.TunnelRes](t, data.sent)
	assert.EqualValues(t, 0, ack.SeqNumber)

	assert.Empty(t, handler.telegrams)

	snapshot := tunnel.Metrics().Snapshot()
	assert.EqualValues(t, 1, snapshot.TelegramsReceived)
	assert.EqualValues(t, 1, snapshot.DuplicatesSuppressed)
	assert.EqualValues(t, 2, snapshot.AcksSent)
}

func TestTunnelDropsOutOfOrder(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, data := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	data.serverSend(&knxnet.TunnelReq{Channel: 1, SeqNumber: 5, Payload: testTelegram(1)})

	expectSilence(t, data.sent, 50*time.Millisecond)
	assert.Empty(t, handler.telegrams)
	assert.EqualValues(t, 1, tunnel.Metrics().Snapshot().OutOfOrderDropped)
}

func TestTunnelSendFlow(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, data := newTestTunnel(t, handler, TunnelConfig{
		HeartbeatInterval:    time.Hour,
		TunnellingAckTimeout: 10 * time.Second,
	})

	acceptConnect(t, control)
	await(t, handler.connects)

	tunnel.Cast(cemi.Message(testTelegram(1)))

	req := recv[*knxnet.TunnelReq](t, data.sent)
	assert.EqualValues(t, 1, req.Channel)
	assert.EqualValues(t, 0, req.SeqNumber)

	// A second send while the first is unacknowledged is discarded.
	tunnel.Cast(cemi.Message(testTelegram(2)))
	expectSilence(t, data.sent, 50*time.Millisecond)

	data.serverSend(&knxnet.TunnelRes{Channel: 1, SeqNumber: 0, Status: knxnet.NoError})
	await(t, handler.acks)

	tunnel.Cast(cemi.Message(testTelegram(3)))

	req = recv[*knxnet.TunnelReq](t, data.sent)
	assert.EqualValues(t, 1, req.SeqNumber)

	snapshot := tunnel.Metrics().Snapshot()
	assert.EqualValues(t, 2, snapshot.TelegramsSent)
	assert.EqualValues(t, 1, snapshot.SendsDiscarded)
	assert.EqualValues(t, 1, snapshot.AcksReceived)
}

func TestTunnelResendsUnacknowledged(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, data := newTestTunnel(t, handler, TunnelConfig{
		HeartbeatInterval:    time.Hour,
		TunnellingAckTimeout: 20 * time.Millisecond,
	})

	acceptConnect(t, control)
	await(t, handler.connects)

	tunnel.Cast(cemi.Message(testTelegram(1)))

	for i := 0; i < 3; i++ {
		req := recv[*knxnet.TunnelReq](t, data.sent)
		assert.EqualValues(t, 0, req.SeqNumber, "send %d", i)
	}

	req := recv[*knxnet.DiscReq](t, control.sent)
	control.serverSend(&knxnet.DiscRes{Channel: req.Channel, Status: knxnet.NoError})

	reason := await(t, handler.disconnects)
	assert.Equal(t, TunnellingAckError, reason.Cause)
	assert.True(t, reason.Timeout)

	assert.EqualValues(t, 2, tunnel.Metrics().Snapshot().Retransmissions)

	<-tunnel.Done()
}

func TestTunnelHeartbeat(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{
		HeartbeatInterval:        20 * time.Millisecond,
		ConnStateResponseTimeout: 10 * time.Second,
	})

	acceptConnect(t, control)
	await(t, handler.connects)

	req := recv[*knxnet.ConnStateReq](t, control.sent)
	assert.EqualValues(t, 1, req.Channel)

	control.serverSend(&knxnet.ConnStateRes{Channel: 1, Status: knxnet.NoError})

	// The connection stays alive, so the probing repeats.
	recv[*knxnet.ConnStateReq](t, control.sent)
	control.serverSend(&knxnet.ConnStateRes{Channel: 1, Status: knxnet.NoError})

	snapshot := tunnel.Metrics().Snapshot()
	assert.GreaterOrEqual(t, snapshot.HeartbeatsSent, int64(2))
	assert.EqualValues(t, 0, snapshot.HeartbeatFailures)
}

func TestTunnelHeartbeatTimeoutDisconnects(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{
		HeartbeatInterval:        20 * time.Millisecond,
		ConnStateResponseTimeout: 20 * time.Millisecond,
	})

	acceptConnect(t, control)
	await(t, handler.connects)

	// Three unanswered probes tear the connection down.
	for i := 0; i < 3; i++ {
		recv[*knxnet.ConnStateReq](t, control.sent)
	}

	req := recv[*knxnet.DiscReq](t, control.sent)
	control.serverSend(&knxnet.DiscRes{Channel: req.Channel, Status: knxnet.NoError})

	reason := await(t, handler.disconnects)
	assert.Equal(t, ConnectionStateResponseError, reason.Cause)
	assert.True(t, reason.Timeout)

	snapshot := tunnel.Metrics().Snapshot()
	assert.EqualValues(t, 3, snapshot.HeartbeatsSent)
	assert.EqualValues(t, 3, snapshot.HeartbeatFailures)

	<-tunnel.Done()
}

func TestTunnelServerDisconnect(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	control.serverSend(&knxnet.DiscReq{Channel: 1})

	res := recv[*knxnet.DiscRes](t, control.sent)
	assert.EqualValues(t, 1, res.Channel)
	assert.Equal(t, knxnet.NoError, res.Status)

	reason := await(t, handler.disconnects)
	assert.Equal(t, DisconnectRequested, reason.Cause)

	<-tunnel.Done()
}

func TestTunnelStopSkipsDisconnectCallback(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	stopped := make(chan struct{})

	go func() {
		defer close(stopped)
		tunnel.Stop()
	}()

	req := recv[*knxnet.DiscReq](t, control.sent)
	control.serverSend(&knxnet.DiscRes{Channel: req.Channel, Status: knxnet.NoError})

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("tunnel did not stop")
	}

	assert.Empty(t, handler.disconnects)
	assert.False(t, tunnel.Metrics().Snapshot().Connected)
}

func TestTunnelCall(t *testing.T) {
	handler := callingHandler{newRecordingHandler()}
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	value, err := tunnel.Call(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "ping", value)
}

func TestTunnelCallUnsupported(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, _ := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	_, err := tunnel.Call(context.Background(), "ping")
	assert.ErrorIs(t, err, ErrCallUnsupported)
}

func TestTunnelInitError(t *testing.T) {
	handler := newRecordingHandler()
	handler.initErr = errors.New("boom")

	_, err := newTunnel(handler, checkTunnelConfig(TunnelConfig{}), newFakeSocket(1), newFakeSocket(2))
	assert.ErrorIs(t, err, handler.initErr)
}

func TestTunnelTransportLost(t *testing.T) {
	handler := newRecordingHandler()
	tunnel, control, data := newTestTunnel(t, handler, TunnelConfig{HeartbeatInterval: time.Hour})

	acceptConnect(t, control)
	await(t, handler.connects)

	data.Close()

	select {
	case <-tunnel.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("tunnel did not stop")
	}
}
