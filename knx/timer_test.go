// Licensed under the MIT license which can be found in the LICENSE file.

package knx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func awaitTimer(t *testing.T, ts *timerSlots) timerEvent {
	t.Helper()

	select {
	case ev := <-ts.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a timer event")
		panic("unreachable")
	}
}

func TestTimerFires(t *testing.T) {
	ts := newTimerSlots()

	ts.arm(heartbeatTimer, time.Millisecond)

	ev := awaitTimer(t, ts)
	assert.Equal(t, heartbeatTimer, ev.id)
	assert.False(t, ts.stale(ev))
}

func TestCancelledTimerIsStale(t *testing.T) {
	ts := newTimerSlots()

	ts.arm(ackTimer, time.Millisecond)

	ev := awaitTimer(t, ts)

	ts.cancel(ackTimer)
	assert.True(t, ts.stale(ev))
}

func TestRearmingInvalidatesPreviousToken(t *testing.T) {
	ts := newTimerSlots()

	ts.arm(connectResponseTimer, time.Millisecond)

	first := awaitTimer(t, ts)

	ts.arm(connectResponseTimer, time.Millisecond)

	// The earlier firing no longer matches the slot's token.
	assert.True(t, ts.stale(first))

	second := awaitTimer(t, ts)
	assert.False(t, ts.stale(second))
}

func TestTimerSlotsAreIndependent(t *testing.T) {
	ts := newTimerSlots()

	ts.arm(heartbeatTimer, time.Millisecond)
	ts.arm(ackTimer, time.Hour)
	ts.cancel(ackTimer)

	ev := awaitTimer(t, ts)
	assert.Equal(t, heartbeatTimer, ev.id)
	assert.False(t, ts.stale(ev))
}
