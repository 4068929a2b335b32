// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync/atomic"

	"github.com/LB-00/knx-tunnel/knx/cemi"
	"github.com/LB-00/knx-tunnel/knx/knxnet"
)

// These errors are returned from tunnel operations.
var (
	ErrTunnelStopped   = errors.New("tunnel has stopped")
	ErrCallUnsupported = errors.New("handler does not implement CallHandler")
)

// state is the connection state of a tunnel.
type state int

const (
	stateConnecting state = iota
	stateConnected
	stateHeartbeatWait
	stateDisconnecting
	stateBackoff
	stateStopped
)

// A mailboxMsg is a user-submitted message processed by the event loop.
type mailboxMsg struct {
	cast  any
	call  any
	reply chan callReply
	stop  bool
}

type callReply struct {
	value any
	err   error
}

// A Tunnel is a KNXnet/IP Tunnelling connection. It maintains the channel
// to the server, sends heartbeats, acknowledges inbound telegrams and
// reconnects with handler-controlled backoff. All handler callbacks run on
// the tunnel's event loop.
type Tunnel struct {
	handler Handler
	config  TunnelConfig
	logger  *slog.Logger
	metrics *Metrics

	control knxnet.Socket
	data    knxnet.Socket

	controlHost knxnet.HostInfo
	dataHost    knxnet.HostInfo

	timers  *timerSlots
	mailbox chan mailboxMsg
	done    chan struct{}

	busAddr atomic.Uint32

	// The fields below belong to the event loop goroutine.
	state            state
	channel          uint8
	serverData       net.Addr
	localSeq         uint8
	remoteSeq        uint8
	heartbeatFails   int
	ackFails         int
	pending          *knxnet.TunnelReq
	disconnectReason DisconnectReason
	everConnected    bool
	stopping         bool
}

// NewTunnel opens the control and data sockets, invokes the handler's Init
// and starts connecting. The returned tunnel runs until Stop is called, the
// handler returns ActionStop, or the handler declines a reconnection.
func NewTunnel(handler Handler, config TunnelConfig) (*Tunnel, error) {
	config = checkTunnelConfig(config)

	control, err := knxnet.DialTunnelUDP(config.localControlAddr(), config.serverControlAddr())
	if err != nil {
		return nil, fmt.Errorf("open control socket: %w", err)
	}

	data, err := knxnet.ListenTunnelUDP(config.localDataAddr())
	if err != nil {
		control.Close()
		return nil, fmt.Errorf("open data socket: %w", err)
	}

	tunnel, err := newTunnel(handler, config, control, data)
	if err != nil {
		control.Close()
		data.Close()
		return nil, err
	}

	return tunnel, nil
}

// newTunnel assembles a tunnel on top of existing sockets and starts its
// event loop.
func newTunnel(handler Handler, config TunnelConfig, control, data knxnet.Socket) (*Tunnel, error) {
	controlHost, err := knxnet.HostInfoFromAddress(control.LocalAddr())
	if err != nil {
		return nil, fmt.Errorf("control endpoint: %w", err)
	}

	dataHost, err := knxnet.HostInfoFromAddress(data.LocalAddr())
	if err != nil {
		return nil, fmt.Errorf("data endpoint: %w", err)
	}

	if err := handler.Init(); err != nil {
		return nil, fmt.Errorf("handler init: %w", err)
	}

	tunnel := &Tunnel{
		handler:     handler,
		config:      config,
		logger:      config.Logger,
		metrics:     NewMetrics(),
		control:     control,
		data:        data,
		controlHost: controlHost,
		dataHost:    dataHost,
		timers:      newTimerSlots(),
		mailbox:     make(chan mailboxMsg),
		done:        make(chan struct{}),
	}

	go tunnel.serve()

	return tunnel, nil
}

// Metrics returns the metrics of the tunnel.
func (t *Tunnel) Metrics() *Metrics {
	return t.metrics
}

// BusAddr returns the individual address the server assigned to this
// tunnel, or 0 before the first connection.
func (t *Tunnel) BusAddr() cemi.IndividualAddr {
	return cemi.IndividualAddr(t.busAddr.Load())
}

// Cast submits an asynchronous message to the handler's OnCast. It is
// dropped if the handler does not implement CastHandler or the tunnel has
// stopped.
func (t *Tunnel) Cast(msg any) {
	select {
	case t.mailbox <- mailboxMsg{cast: msg}:
	case <-t.done:
	}
}

// Call submits a request to the handler's OnCall and waits for the reply.
func (t *Tunnel) Call(ctx context.Context, req any) (any, error) {
	reply := make(chan callReply, 1)

	select {
	case t.mailbox <- mailboxMsg{call: req, reply: reply}:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrTunnelStopped
	}

	select {
	case res := <-reply:
		return res.value, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-t.done:
		return nil, ErrTunnelStopped
	}
}

// Stop shuts the tunnel down. An established channel is torn down with a
// disconnect handshake; OnDisconnect is not invoked. Stop returns once the
// event loop has terminated.
func (t *Tunnel) Stop() error {
	select {
	case t.mailbox <- mailboxMsg{stop: true}:
	case <-t.done:
	}

	<-t.done

	return nil
}

// Done returns a channel that is closed once the tunnel has terminated.
func (t *Tunnel) Done() <-chan struct{} {
	return t.done
}

// serve is the event loop. It owns all connection state; every event
// (inbound frames, timer firings, user messages) is processed sequentially.
func (t *Tunnel) serve() {
	defer close(t.done)
	defer t.data.Close()
	defer t.control.Close()

	t.connect()

	controlIn := t.control.Inbound()
	dataIn := t.data.Inbound()

	for t.state != stateStopped {
		select {
		case srv, ok := <-controlIn:
			if !ok {
				controlIn = nil
				t.transportLost()
				continue
			}

			t.handleService(srv)

		case srv, ok := <-dataIn:
			if !ok {
				dataIn = nil
				t.transportLost()
				continue
			}

			t.handleService(srv)

		case ev := <-t.timers.events:
			if t.timers.stale(ev) {
				continue
			}

			t.handleTimer(ev)

		case msg := <-t.mailbox:
			t.handleMailbox(msg)
		}
	}
}

// transportLost reacts to a socket shutting down underneath the tunnel.
func (t *Tunnel) transportLost() {
	if t.stopping {
		t.state = stateStopped
		return
	}

	t.logger.Error("transport closed unexpectedly, stopping")
	t.timers.cancelAll()
	t.state = stateStopped
}

// connect starts a connection attempt: reset the per-channel counters, send
// a connection request and await the response.
func (t *Tunnel) connect() {
	t.state = stateConnecting
	t.channel = 0
	t.localSeq = 0
	t.remoteSeq = 0
	t.heartbeatFails = 0
	t.ackFails = 0
	t.pending = nil

	req := &knxnet.ConnReq{
		Control: t.controlHost,
		Tunnel:  t.dataHost,
		Layer:   knxnet.TunnelLayerData,
	}

	t.metrics.ConnectAttempts.Inc()
	t.sendControl(req)
	t.timers.arm(connectResponseTimer, t.config.ConnectResponseTimeout)
}

// handleService dispatches one inbound frame.
func (t *Tunnel) handleService(srv knxnet.Service) {
	if p, ok := srv.(knxnet.ServicePackable); ok {
		t.metrics.BytesReceived.Add(int64(knxnet.Size(p)))
	}

	switch srv := srv.(type) {
	case *knxnet.ConnRes:
		t.handleConnRes(srv)
	case *knxnet.ConnStateRes:
		t.handleConnStateRes(srv)
	case *knxnet.DiscReq:
		t.handleDiscReq(srv)
	case *knxnet.DiscRes:
		t.handleDiscRes(srv)
	case *knxnet.TunnelReq:
		t.handleTunnelReq(srv)
	case *knxnet.TunnelRes:
		t.handleTunnelRes(srv)
	default:
		t.logger.Debug("ignoring unexpected service", "service", srv.Service())
	}
}

func (t *Tunnel) handleConnRes(res *knxnet.ConnRes) {
	if t.state != stateConnecting {
		t.logger.Debug("ignoring stale connection response")
		return
	}

	t.timers.cancel(connectResponseTimer)

	if res.Status.IsError() {
		t.logger.Warn("connection refused", "status", res.Status)
		t.lostConnection(DisconnectReason{Cause: ConnectResponseError, Status: res.Status})
		return
	}

	t.channel = res.Channel
	t.serverData = res.Data.UDPAddr()
	t.busAddr.Store(uint32(res.BusAddr))
	t.state = stateConnected

	t.metrics.Connects.Inc()
	t.metrics.Connected.Set(1)

	if t.everConnected {
		t.metrics.Reconnects.Inc()
	}
	t.everConnected = true

	t.logger.Info("connected",
		"channel", t.channel, "bus_addr", res.BusAddr, "data_endpoint", t.serverData)

	t.timers.arm(heartbeatTimer, t.config.HeartbeatInterval)
	t.act(t.handler.OnConnect())
}

// sendHeartbeat probes the connection with a connection state request. The
// failure count is incremented after each send so that a successful response
// resets it back to zero.
func (t *Tunnel) sendHeartbeat() {
	t.state = stateHeartbeatWait

	req := &knxnet.ConnStateReq{Channel: t.channel, Control: t.controlHost}

	t.metrics.HeartbeatsSent.Inc()
	t.sendControl(req)
	t.heartbeatFails++
	t.timers.arm(connStateResponseTimer, t.config.ConnStateResponseTimeout)
}

func (t *Tunnel) handleConnStateRes(res *knxnet.ConnStateRes) {
	if t.state != stateHeartbeatWait || res.Channel != t.channel {
		t.logger.Debug("ignoring stale connection state response")
		return
	}

	t.timers.cancel(connStateResponseTimer)

	if !res.Status.IsError() {
		t.heartbeatFails = 0
		t.state = stateConnected
		t.timers.arm(heartbeatTimer, t.config.HeartbeatInterval)
		return
	}

	t.metrics.HeartbeatFailures.Inc()
	t.logger.Warn("heartbeat failed", "status", res.Status, "failures", t.heartbeatFails)

	if t.heartbeatFails < 3 {
		t.sendHeartbeat()
		return
	}

	t.beginDisconnect(DisconnectReason{Cause: ConnectionStateResponseError, Status: res.Status})
}

func (t *Tunnel) handleDiscReq(req *knxnet.DiscReq) {
	if t.channel == 0 || req.Channel != t.channel {
		t.logger.Debug("ignoring disconnect request for unknown channel", "channel", req.Channel)
		return
	}

	t.logger.Info("server requested disconnect", "channel", req.Channel)

	t.timers.cancelAll()
	t.sendControl(&knxnet.DiscRes{Channel: req.Channel, Status: knxnet.NoError})

	if t.stopping {
		t.channel = 0
		t.metrics.Connected.Set(0)
		t.state = stateStopped
		return
	}

	t.lostConnection(DisconnectReason{Cause: DisconnectRequested})
}

func (t *Tunnel) handleDiscRes(res *knxnet.DiscRes) {
	if t.state != stateDisconnecting || res.Channel != t.channel {
		t.logger.Debug("ignoring unexpected disconnect response", "channel", res.Channel)
		return
	}

	t.timers.cancel(disconnectResponseTimer)
	t.finishDisconnect()
}

func (t *Tunnel) handleTunnelReq(req *knxnet.TunnelReq) {
	if t.state != stateConnected && t.state != stateHeartbeatWait {
		return
	}

	if req.Channel != t.channel {
		t.logger.Debug("ignoring tunnelling request for unknown channel", "channel", req.Channel)
		return
	}

	switch req.SeqNumber {
	case t.remoteSeq:
		t.metrics.TelegramsReceived.Inc()

		action := t.handler.OnTelegram(req.Payload)

		t.remoteSeq++
		t.sendAck(req.SeqNumber)
		t.act(action)

	case t.remoteSeq - 1:
		// The previous ack was lost; acknowledge again without delivering.
		t.metrics.DuplicatesSuppressed.Inc()
		t.sendAck(req.SeqNumber)

	default:
		t.metrics.OutOfOrderDropped.Inc()
		t.logger.Debug("dropping out-of-order tunnelling request",
			"seq", req.SeqNumber, "expected", t.remoteSeq)
	}
}

func (t *Tunnel) sendAck(seq uint8) {
	t.metrics.AcksSent.Inc()
	t.sendData(&knxnet.TunnelRes{Channel: t.channel, SeqNumber: seq, Status: knxnet.NoError})
}

func (t *Tunnel) handleTunnelRes(res *knxnet.TunnelRes) {
	if t.state != stateConnected && t.state != stateHeartbeatWait {
		return
	}

	if res.Channel != t.channel || t.pending == nil {
		t.logger.Debug("ignoring unexpected tunnelling ack", "channel", res.Channel)
		return
	}

	if res.Status.IsError() {
		t.logger.Warn("tunnelling request rejected", "status", res.Status)
		t.metrics.Retransmissions.Inc()
		t.sendData(t.pending)
		t.beginDisconnect(DisconnectReason{Cause: TunnellingAckError, Status: res.Status})
		return
	}

	if res.SeqNumber != t.localSeq {
		t.logger.Debug("ignoring stale tunnelling ack", "seq", res.SeqNumber)
		return
	}

	t.timers.cancel(ackTimer)
	t.localSeq++
	t.pending = nil
	t.ackFails = 0

	t.metrics.AcksReceived.Inc()
	t.act(t.handler.OnTelegramAck())
}

// sendTelegram transmits a telegram on the data channel. At most one
// telegram is in flight; further sends are discarded until the ack arrives.
func (t *Tunnel) sendTelegram(msg cemi.Message) {
	if t.state != stateConnected && t.state != stateHeartbeatWait {
		t.metrics.SendsDiscarded.Inc()
		t.logger.Warn("discarding telegram, not connected")
		return
	}

	if t.pending != nil {
		t.metrics.SendsDiscarded.Inc()
		t.logger.Warn("discarding telegram, a previous one is unacknowledged")
		return
	}

	req := &knxnet.TunnelReq{
		Channel:   t.channel,
		SeqNumber: t.localSeq,
		Payload:   msg,
	}

	t.pending = req
	t.metrics.TelegramsSent.Inc()
	t.sendData(req)
	t.timers.arm(ackTimer, t.config.TunnellingAckTimeout)
}

// handleTimer reacts to a non-stale timer firing.
func (t *Tunnel) handleTimer(ev timerEvent) {
	switch ev.id {
	case heartbeatTimer:
		if t.state == stateConnected {
			t.sendHeartbeat()
		}

	case connectResponseTimer:
		switch t.state {
		case stateBackoff:
			t.connect()

		case stateConnecting:
			t.logger.Warn("connection response timed out")
			t.lostConnection(DisconnectReason{Cause: ConnectResponseError, Timeout: true})
		}

	case connStateResponseTimer:
		if t.state != stateHeartbeatWait {
			return
		}

		t.metrics.HeartbeatFailures.Inc()
		t.logger.Warn("heartbeat timed out", "failures", t.heartbeatFails)

		if t.heartbeatFails < 3 {
			t.sendHeartbeat()
			return
		}

		t.beginDisconnect(DisconnectReason{Cause: ConnectionStateResponseError, Timeout: true})

	case disconnectResponseTimer:
		if t.state == stateDisconnecting {
			t.logger.Warn("disconnect response timed out")
			t.finishDisconnect()
		}

	case ackTimer:
		if t.pending == nil {
			return
		}

		t.metrics.Retransmissions.Inc()
		t.sendData(t.pending)

		if t.ackFails == 0 {
			t.ackFails = 1
			t.timers.arm(ackTimer, t.config.TunnellingAckTimeout)
			return
		}

		t.beginDisconnect(DisconnectReason{Cause: TunnellingAckError, Timeout: true})
	}
}

// handleMailbox processes a user-submitted message.
func (t *Tunnel) handleMailbox(msg mailboxMsg) {
	switch {
	case msg.stop:
		t.beginStop()

	case msg.reply != nil:
		handler, ok := t.handler.(CallHandler)
		if !ok {
			msg.reply <- callReply{err: ErrCallUnsupported}
			return
		}

		value, action := handler.OnCall(msg.call)
		msg.reply <- callReply{value: value}
		t.act(action)

	default:
		handler, ok := t.handler.(CastHandler)
		if !ok {
			t.logger.Debug("dropping cast, handler does not implement CastHandler")
			return
		}

		t.act(handler.OnCast(msg.cast))
	}
}

// act applies a handler-returned action.
func (t *Tunnel) act(action Action) {
	if action.stop {
		t.beginStop()
		return
	}

	if action.send != nil {
		t.sendTelegram(action.send)
	}
}

// beginDisconnect tears the channel down because of a protocol error. The
// reason is reported to the handler once the disconnect completes.
func (t *Tunnel) beginDisconnect(reason DisconnectReason) {
	t.disconnectReason = reason
	t.timers.cancelAll()
	t.state = stateDisconnecting

	t.sendControl(&knxnet.DiscReq{Channel: t.channel, Control: t.controlHost})
	t.timers.arm(disconnectResponseTimer, t.config.DisconnectResponseTimeout)
}

// beginStop shuts the tunnel down on user request. OnDisconnect is not
// invoked.
func (t *Tunnel) beginStop() {
	t.stopping = true

	switch t.state {
	case stateConnected, stateHeartbeatWait:
		t.timers.cancelAll()
		t.state = stateDisconnecting
		t.sendControl(&knxnet.DiscReq{Channel: t.channel, Control: t.controlHost})
		t.timers.arm(disconnectResponseTimer, t.config.DisconnectResponseTimeout)

	case stateDisconnecting:
		// The handshake in flight completes the stop.

	default:
		t.timers.cancelAll()
		t.state = stateStopped
	}
}

// finishDisconnect completes a disconnect handshake.
func (t *Tunnel) finishDisconnect() {
	if t.stopping {
		t.timers.cancelAll()
		t.channel = 0
		t.metrics.Connected.Set(0)
		t.state = stateStopped
		return
	}

	t.lostConnection(t.disconnectReason)
}

// lostConnection reports a lost connection to the handler and schedules the
// reconnection according to the returned backoff.
func (t *Tunnel) lostConnection(reason DisconnectReason) {
	t.timers.cancelAll()
	t.channel = 0
	t.pending = nil
	t.metrics.Connected.Set(0)
	t.metrics.Disconnects.Inc()

	t.logger.Info("disconnected", "reason", reason)

	backoff := t.handler.OnDisconnect(reason)

	if !backoff.Retry {
		t.state = stateStopped
		return
	}

	if backoff.After <= 0 {
		t.connect()
		return
	}

	t.state = stateBackoff
	t.timers.arm(connectResponseTimer, backoff.After)
}

// sendControl transmits a service on the control socket.
func (t *Tunnel) sendControl(srv knxnet.ServicePackable) {
	if err := t.control.Send(srv); err != nil {
		t.logger.Error("control send failed", "service", srv.Service(), "error", err)
		return
	}

	t.metrics.BytesSent.Add(int64(knxnet.Size(srv)))
}

// sendData transmits a service on the data socket to the server's data
// endpoint.
func (t *Tunnel) sendData(srv knxnet.ServicePackable) {
	if err := t.data.SendTo(srv, t.serverData); err != nil {
		t.logger.Error("data send failed", "service", srv.Service(), "error", err)
		return
	}

	t.metrics.BytesSent.Add(int64(knxnet.Size(srv)))
}
