package periodic

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTaskRunsAndStops(t *testing.T) {
	var ticks atomic.Int64
	task := NewTask("test", 10*time.Millisecond, func() { ticks.Add(1) }, nil)

	task.Start()
	time.Sleep(55 * time.Millisecond)
	task.Stop()

	after := ticks.Load()
	assert.Greater(t, after, int64(0))

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, ticks.Load())
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	var ticks atomic.Int64
	task := NewTask("test", 10*time.Millisecond, func() { ticks.Add(1) }, nil)

	task.Start()
	task.Start()
	task.Stop()
	task.Stop()

	assert.NotPanics(t, func() { task.Stop() })
}
