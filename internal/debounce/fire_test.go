package debounce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFire_SupersededTimerIsIgnored(t *testing.T) {
	calls := 0
	d := New(time.Hour, func() { calls++ })
	defer d.Stop()

	d.Trigger()
	stale := d.gen
	d.Trigger()

	// A timer that started running just before the second Trigger stopped it.
	d.fire(stale)

	assert.Equal(t, 0, calls)
	assert.True(t, d.Pending(), "the newer call is still scheduled")

	d.fire(d.gen)
	assert.Equal(t, 1, calls)
	assert.False(t, d.Pending())
}
