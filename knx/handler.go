// Licensed under the MIT license which can be found in the LICENSE file.

// Package knx provides a client for KNXnet/IP Tunnelling. A Tunnel drives
// the connection lifecycle (connect, heartbeat, reconnect with backoff) and
// delivers bus telegrams to a user-supplied Handler. All handler callbacks
// run on the tunnel's event loop; they must return promptly.
package knx

import (
	"fmt"
	"time"

	"github.com/LB-00/knx-tunnel/knx/cemi"
	"github.com/LB-00/knx-tunnel/knx/knxnet"
)

// A Handler receives the events of a tunnel connection. Callbacks are
// invoked sequentially from a single goroutine.
type Handler interface {
	// Init is called once before the first connection attempt. A non-nil
	// error aborts the tunnel.
	Init() error

	// OnConnect is called each time a connection has been established,
	// including reconnections.
	OnConnect() Action

	// OnDisconnect is called when the connection has been lost or torn
	// down. The returned Backoff controls if and when the tunnel
	// reconnects.
	OnDisconnect(reason DisconnectReason) Backoff

	// OnTelegram is called for every telegram received from the bus, in
	// bus order, without duplicates.
	OnTelegram(msg cemi.Message) Action

	// OnTelegramAck is called when the server has acknowledged the
	// telegram most recently sent through ActionSend.
	OnTelegramAck() Action
}

// A CastHandler additionally receives asynchronous user messages submitted
// through Tunnel.Cast.
type CastHandler interface {
	OnCast(msg any) Action
}

// A CallHandler additionally answers synchronous user requests submitted
// through Tunnel.Call.
type CallHandler interface {
	OnCall(req any) (any, Action)
}

// An Action is returned from handler callbacks to instruct the tunnel. The
// zero value continues without side effects.
type Action struct {
	send cemi.Message
	stop bool
}

// ActionSend instructs the tunnel to transmit the given telegram. The
// telegram is discarded with a log notice while a previous one is still
// unacknowledged.
func ActionSend(msg cemi.Message) Action {
	return Action{send: msg}
}

// ActionStop instructs the tunnel to shut down permanently.
func ActionStop() Action {
	return Action{stop: true}
}

// A Backoff is returned from OnDisconnect. If Retry is set, the tunnel
// waits After before reconnecting; otherwise it stops permanently.
type Backoff struct {
	Retry bool
	After time.Duration
}

// A DisconnectCause classifies why a connection ended.
type DisconnectCause uint8

// These are the possible disconnect causes.
const (
	// ConnectResponseError: the connection attempt failed, either with an
	// error status or a connect response timeout.
	ConnectResponseError DisconnectCause = iota + 1

	// ConnectionStateResponseError: three heartbeats in a row failed.
	ConnectionStateResponseError

	// TunnellingAckError: a telegram was not acknowledged, either with an
	// error status or repeated ack timeouts.
	TunnellingAckError

	// DisconnectRequested: the server requested the disconnect.
	DisconnectRequested
)

// String generates a readable name for the disconnect cause.
func (c DisconnectCause) String() string {
	switch c {
	case ConnectResponseError:
		return "ConnectResponseError"
	case ConnectionStateResponseError:
		return "ConnectionStateResponseError"
	case TunnellingAckError:
		return "TunnellingAckError"
	case DisconnectRequested:
		return "DisconnectRequested"
	}

	return fmt.Sprintf("DisconnectCause(%d)", uint8(c))
}

// A DisconnectReason describes why a connection ended. Timeout is set when
// the cause was a missing response rather than an error status; otherwise
// Status carries the server's error code.
type DisconnectReason struct {
	Cause   DisconnectCause
	Status  knxnet.ErrCode
	Timeout bool
}

// String generates a readable description of the reason.
func (r DisconnectReason) String() string {
	if r.Timeout {
		return fmt.Sprintf("%v: timeout", r.Cause)
	}

	if r.Cause == DisconnectRequested {
		return r.Cause.String()
	}

	return fmt.Sprintf("%v: %v", r.Cause, r.Status)
}
