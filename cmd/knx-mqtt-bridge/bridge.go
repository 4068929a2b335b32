// Licensed under the MIT license which can be found in the LICENSE file.

package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/LB-00/knx-tunnel/knx"
	"github.com/LB-00/knx-tunnel/knx/cemi"
	"github.com/LB-00/knx-tunnel/knx/dpt"
)

// Bridge connects a KNX tunnel with an MQTT broker. Group telegrams for
// configured addresses are published to "<prefix>/<ga>"; payloads received
// on "<prefix>/<ga>/set" are encoded and written to the bus.
type Bridge struct {
	config *Config
	logger *slog.Logger

	mqtt   mqtt.Client
	tunnel *knx.Tunnel
}

// NewBridge creates a bridge for the given configuration.
func NewBridge(config *Config, logger *slog.Logger) *Bridge {
	return &Bridge{config: config, logger: logger}
}

// Start connects to the broker and opens the tunnel.
func (b *Bridge) Start() error {
	statusTopic := b.topic("bridge/status")

	opts := mqtt.NewClientOptions().
		AddBroker(b.config.MQTT.Broker).
		SetClientID(b.config.MQTT.ClientID).
		SetUsername(b.config.MQTT.Username).
		SetPassword(b.config.MQTT.Password).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetWill(statusTopic, "offline", 1, true).
		SetOnConnectHandler(b.onMQTTConnect).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			b.logger.Warn("mqtt connection lost", "error", err)
		})

	b.mqtt = mqtt.NewClient(opts)

	if token := b.mqtt.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect to broker: %w", token.Error())
	}

	tunnel, err := knx.NewTunnel(b, knx.TunnelConfig{
		LocalIP:           b.config.KNX.Local,
		ServerIP:          b.config.KNX.Server,
		ServerControlPort: b.config.KNX.ServerPort,
		Logger:            b.logger,
	})
	if err != nil {
		b.mqtt.Disconnect(250)
		return err
	}

	b.tunnel = tunnel

	return nil
}

// Stop tears down the tunnel and the broker connection.
func (b *Bridge) Stop() {
	if b.tunnel != nil {
		b.tunnel.Stop()
	}

	b.publish(b.topic("bridge/status"), "offline", true)
	b.mqtt.Disconnect(250)
}

// Done returns a channel that is closed when the tunnel has terminated.
func (b *Bridge) Done() <-chan struct{} {
	return b.tunnel.Done()
}

// onMQTTConnect announces the bridge and (re-)subscribes to the set topics.
// The paho client does not carry subscriptions across reconnects.
func (b *Bridge) onMQTTConnect(client mqtt.Client) {
	b.logger.Info("mqtt connected", "broker", b.config.MQTT.Broker)

	b.publish(b.topic("bridge/status"), "online", true)

	for addr := range b.config.Groups {
		topic := b.topic(addr.String() + "/set")

		if token := client.Subscribe(topic, 1, b.onSetMessage); token.Wait() && token.Error() != nil {
			b.logger.Error("subscribe failed", "topic", topic, "error", token.Error())
		}
	}
}

// onSetMessage encodes an MQTT payload and writes it to the bus.
func (b *Bridge) onSetMessage(_ mqtt.Client, msg mqtt.Message) {
	name := strings.TrimPrefix(msg.Topic(), b.config.MQTT.TopicPrefix+"/")
	name = strings.TrimSuffix(name, "/set")

	addr, err := cemi.ParseGroupAddr(name)
	if err != nil {
		b.logger.Warn("ignoring message on unexpected topic", "topic", msg.Topic())
		return
	}

	dptName, ok := b.config.Groups[addr]
	if !ok {
		b.logger.Warn("ignoring message for unconfigured group", "group", addr)
		return
	}

	value, err := dpt.Parse(dptName, string(msg.Payload()))
	if err != nil {
		b.logger.Warn("cannot parse payload", "group", addr, "payload", string(msg.Payload()), "error", err)
		return
	}

	data, err := dpt.Encode(dptName, value)
	if err != nil {
		b.logger.Warn("cannot encode payload", "group", addr, "error", err)
		return
	}

	b.tunnel.Cast(knx.OutboundGroupEvent(knx.GroupEvent{
		Command:     knx.GroupWrite,
		Destination: addr,
		Data:        data,
	}, b.tunnel.BusAddr()))
}

// Init implements knx.Handler.
func (b *Bridge) Init() error {
	return nil
}

// OnConnect implements knx.Handler.
func (b *Bridge) OnConnect() knx.Action {
	b.logger.Info("knx connected")
	return knx.Action{}
}

// OnDisconnect implements knx.Handler. The bridge always reconnects.
func (b *Bridge) OnDisconnect(reason knx.DisconnectReason) knx.Backoff {
	b.logger.Warn("knx connection lost, reconnecting", "reason", reason.String())

	return knx.Backoff{Retry: true, After: 2 * time.Second}
}

// OnTelegram implements knx.Handler. Configured group telegrams are decoded
// and published.
func (b *Bridge) OnTelegram(msg cemi.Message) knx.Action {
	ev, err := knx.InboundGroupEvent(msg)
	if err != nil || ev.Command == knx.GroupRead {
		return knx.Action{}
	}

	dptName, ok := b.config.Groups[ev.Destination]
	if !ok {
		return knx.Action{}
	}

	value, err := dpt.Decode(dptName, ev.Data)
	if err != nil {
		b.logger.Warn("cannot decode telegram", "group", ev.Destination, "error", err)
		return knx.Action{}
	}

	b.publish(b.topic(ev.Destination.String()), fmt.Sprint(value), true)

	return knx.Action{}
}

// OnTelegramAck implements knx.Handler.
func (b *Bridge) OnTelegramAck() knx.Action {
	return knx.Action{}
}

// OnCast implements knx.CastHandler. Telegrams submitted by the MQTT side
// are sent to the bus.
func (b *Bridge) OnCast(msg any) knx.Action {
	if msg, ok := msg.(cemi.Message); ok {
		return knx.ActionSend(msg)
	}

	return knx.Action{}
}

func (b *Bridge) topic(suffix string) string {
	return b.config.MQTT.TopicPrefix + "/" + suffix
}

// publish fires a message without waiting for completion.
func (b *Bridge) publish(topic, payload string, retained bool) {
	b.mqtt.Publish(topic, 1, retained, payload)
}
