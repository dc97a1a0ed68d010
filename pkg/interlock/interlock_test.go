package interlock

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAcquireRelease_Balanced(t *testing.T) {
	l := New()
	assert.False(t, l.Held())

	l.Acquire("SENDER")
	assert.True(t, l.Held())

	inconsistent := l.Release("SENDER")
	assert.False(t, inconsistent)
	assert.False(t, l.Held())
	assert.Equal(t, 0, l.Count())
}

func TestConcurrentAcquisitionsByDifferentEngines(t *testing.T) {
	l := New()
	l.Acquire("SENDER")
	l.Acquire("RECEIVER")
	assert.True(t, l.Held())
	assert.Equal(t, 2, l.Count())

	l.Release("SENDER")
	assert.True(t, l.Held(), "RECEIVER still holds it")

	l.Release("RECEIVER")
	assert.False(t, l.Held())
}

func TestRelease_WithoutAcquire_IsInconsistentAndClamped(t *testing.T) {
	l := New()
	inconsistent := l.Release("SENDER")
	assert.True(t, inconsistent)
	assert.Equal(t, 0, l.Count())
	assert.False(t, l.Held())
}

func TestBalancedOverConcurrentRun(t *testing.T) {
	l := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Acquire("SENDER")
			l.Release("SENDER")
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, l.Count())
	assert.False(t, l.Held())
}
