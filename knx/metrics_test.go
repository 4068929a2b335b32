// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCounterConcurrency(t *testing.T) {
	var counter Counter
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < 1000; j++ {
				counter.Inc()
			}
		}()
	}

	wg.Wait()
	assert.EqualValues(t, 10000, counter.Value())
}

func TestMetricsSnapshot(t *testing.T) {
	metrics := NewMetrics()

	metrics.Connects.Inc()
	metrics.TelegramsSent.Add(3)
	metrics.BytesSent.Add(120)
	metrics.Connected.Set(1)

	snapshot := metrics.Snapshot()

	assert.EqualValues(t, 1, snapshot.Connects)
	assert.EqualValues(t, 3, snapshot.TelegramsSent)
	assert.EqualValues(t, 120, snapshot.BytesSent)
	assert.True(t, snapshot.Connected)
	assert.GreaterOrEqual(t, snapshot.Uptime, time.Duration(0))

	metrics.Connected.Set(0)
	assert.False(t, metrics.Snapshot().Connected)
}
