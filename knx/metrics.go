// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"sync/atomic"
	"time"
)

// Counter is a thread-safe counter.
type Counter struct {
	value atomic.Int64
}

// Add adds a delta to the counter.
func (c *Counter) Add(delta int64) {
	c.value.Add(delta)
}

// Inc increments the counter by 1.
func (c *Counter) Inc() {
	c.Add(1)
}

// Value returns the current counter value.
func (c *Counter) Value() int64 {
	return c.value.Load()
}

// Gauge is a thread-safe gauge that can go up and down.
type Gauge struct {
	value atomic.Int64
}

// Set sets the gauge value.
func (g *Gauge) Set(value int64) {
	g.value.Store(value)
}

// Value returns the current gauge value.
func (g *Gauge) Value() int64 {
	return g.value.Load()
}

// Metrics holds the counters of a tunnel. All fields are safe for
// concurrent reads while the tunnel is running.
type Metrics struct {
	// Connection lifecycle.
	ConnectAttempts Counter
	Connects        Counter
	Reconnects      Counter
	Disconnects     Counter

	// Heartbeats.
	HeartbeatsSent    Counter
	HeartbeatFailures Counter

	// Telegram traffic.
	TelegramsSent     Counter
	TelegramsReceived Counter
	AcksSent          Counter
	AcksReceived      Counter

	// Delivery anomalies.
	Retransmissions      Counter
	DuplicatesSuppressed Counter
	OutOfOrderDropped    Counter
	SendsDiscarded       Counter

	// Raw traffic volume.
	BytesSent     Counter
	BytesReceived Counter

	// Connected is 1 while a channel is established.
	Connected Gauge

	startTime time.Time
}

// NewMetrics creates a new Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// Uptime returns the time since the metrics were created.
func (m *Metrics) Uptime() time.Duration {
	return time.Since(m.startTime)
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		Uptime: m.Uptime(),

		ConnectAttempts: m.ConnectAttempts.Value(),
		Connects:        m.Connects.Value(),
		Reconnects:      m.Reconnects.Value(),
		Disconnects:     m.Disconnects.Value(),

		HeartbeatsSent:    m.HeartbeatsSent.Value(),
		HeartbeatFailures: m.HeartbeatFailures.Value(),

		TelegramsSent:     m.TelegramsSent.Value(),
		TelegramsReceived: m.TelegramsReceived.Value(),
		AcksSent:          m.AcksSent.Value(),
		AcksReceived:      m.AcksReceived.Value(),

		Retransmissions:      m.Retransmissions.Value(),
		DuplicatesSuppressed: m.DuplicatesSuppressed.Value(),
		OutOfOrderDropped:    m.OutOfOrderDropped.Value(),
		SendsDiscarded:       m.SendsDiscarded.Value(),

		BytesSent:     m.BytesSent.Value(),
		BytesReceived: m.BytesReceived.Value(),

		Connected: m.Connected.Value() == 1,
	}
}

// MetricsSnapshot is a point-in-time snapshot of tunnel metrics.
type MetricsSnapshot struct {
	Uptime time.Duration

	ConnectAttempts int64
	Connects        int64
	Reconnects      int64
	Disconnects     int64

	HeartbeatsSent    int64
	HeartbeatFailures int64

	TelegramsSent     int64
	TelegramsReceived int64
	AcksSent          int64
	AcksReceived      int64

	Retransmissions      int64
	DuplicatesSuppressed int64
	OutOfOrderDropped    int64
	SendsDiscarded       int64

	BytesSent     int64
	BytesReceived int64

	Connected bool
}
