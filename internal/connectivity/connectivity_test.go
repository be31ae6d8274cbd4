package connectivity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coxswain-app/shoreline/internal/connectivity"
)

func TestStaticMonitor_EdgeTriggered(t *testing.T) {
	t.Parallel()

	m := connectivity.NewStaticMonitor(false)
	require.False(t, m.IsOnline())

	fired := 0
	unsubscribe := m.OnBecameOnline(func() { fired++ })
	defer unsubscribe()

	m.SetOnline(true)
	assert.Equal(t, 1, fired, "expected the offline-to-online edge to fire")
	assert.True(t, m.IsOnline())

	// Already online; no edge.
	m.SetOnline(true)
	assert.Equal(t, 1, fired, "expected no callback without a transition")

	m.SetOnline(false)
	assert.Equal(t, 1, fired, "expected no callback on going offline")

	m.SetOnline(true)
	assert.Equal(t, 2, fired)
}

func TestStaticMonitor_Unsubscribe(t *testing.T) {
	t.Parallel()

	m := connectivity.NewStaticMonitor(false)

	fired := 0
	unsubscribe := m.OnBecameOnline(func() { fired++ })
	unsubscribe()

	m.SetOnline(true)
	assert.Zero(t, fired, "expected no callback after unsubscribing")
}

func TestStaticMonitor_MultipleListeners(t *testing.T) {
	t.Parallel()

	m := connectivity.NewStaticMonitor(false)

	var a, b int
	unsubA := m.OnBecameOnline(func() { a++ })
	defer unsubA()
	unsubB := m.OnBecameOnline(func() { b++ })

	m.SetOnline(true)
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)

	unsubB()
	m.SetOnline(false)
	m.SetOnline(true)
	assert.Equal(t, 2, a)
	assert.Equal(t, 1, b, "expected only the remaining listener to fire")
}
