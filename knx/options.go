// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/LB-00/knx-tunnel/knx/knxnet"
)

// TunnelConfig configures a Tunnel. The zero value is usable; every field
// falls back to its default.
type TunnelConfig struct {
	// LocalIP is the address advertised to the server in HPAIs and used to
	// bind the local sockets.
	LocalIP string

	// ControlPort and DataPort are the local UDP ports. 0 binds an
	// ephemeral port.
	ControlPort uint16
	DataPort    uint16

	// ServerIP and ServerControlPort locate the server's control endpoint.
	// The data endpoint is learned during connection setup.
	ServerIP          string
	ServerControlPort uint16

	// HeartbeatInterval is the idle time before a connection state request
	// probes the connection.
	HeartbeatInterval time.Duration

	// Response timeouts per request kind.
	ConnectResponseTimeout    time.Duration
	ConnStateResponseTimeout  time.Duration
	DisconnectResponseTimeout time.Duration
	TunnellingAckTimeout      time.Duration

	// Logger receives structured logs of the connection lifecycle. Nil
	// discards them.
	Logger *slog.Logger
}

// These are the defaults applied by checkTunnelConfig.
const (
	DefaultHeartbeatInterval         = 60 * time.Second
	DefaultConnectResponseTimeout    = 10 * time.Second
	DefaultConnStateResponseTimeout  = 10 * time.Second
	DefaultDisconnectResponseTimeout = 5 * time.Second
	DefaultTunnellingAckTimeout      = time.Second
)

// checkTunnelConfig fills in defaults for unset fields.
func checkTunnelConfig(config TunnelConfig) TunnelConfig {
	if config.LocalIP == "" {
		config.LocalIP = "127.0.0.1"
	}

	if config.ServerIP == "" {
		config.ServerIP = "127.0.0.1"
	}

	if config.ServerControlPort == 0 {
		config.ServerControlPort = knxnet.DefaultPort
	}

	if config.HeartbeatInterval <= 0 {
		config.HeartbeatInterval = DefaultHeartbeatInterval
	}

	if config.ConnectResponseTimeout <= 0 {
		config.ConnectResponseTimeout = DefaultConnectResponseTimeout
	}

	if config.ConnStateResponseTimeout <= 0 {
		config.ConnStateResponseTimeout = DefaultConnStateResponseTimeout
	}

	if config.DisconnectResponseTimeout <= 0 {
		config.DisconnectResponseTimeout = DefaultDisconnectResponseTimeout
	}

	if config.TunnellingAckTimeout <= 0 {
		config.TunnellingAckTimeout = DefaultTunnellingAckTimeout
	}

	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return config
}

// localControlAddr returns the bind address of the control socket.
func (config *TunnelConfig) localControlAddr() string {
	return fmt.Sprintf("%s:%d", config.LocalIP, config.ControlPort)
}

// localDataAddr returns the bind address of the data socket.
func (config *TunnelConfig) localDataAddr() string {
	return fmt.Sprintf("%s:%d", config.LocalIP, config.DataPort)
}

// serverControlAddr returns the server's control endpoint.
func (config *TunnelConfig) serverControlAddr() string {
	return fmt.Sprintf("%s:%d", config.ServerIP, config.ServerControlPort)
}
