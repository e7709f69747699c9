package server

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalConnectionLimiter(t *testing.T) {
	l := NewGlobalConnectionLimiter(2)

	assert.True(t, l.Acquire())
	assert.True(t, l.Acquire())
	assert.False(t, l.Acquire(), "at capacity")

	l.Release()
	assert.True(t, l.Acquire())
	assert.Equal(t, int64(2), l.Current())
}

func TestIPConnectionLimiter(t *testing.T) {
	l := NewIPConnectionLimiter(2)

	assert.True(t, l.Acquire("1.2.3.4"))
	assert.True(t, l.Acquire("1.2.3.4"))
	assert.False(t, l.Acquire("1.2.3.4"), "IP at its limit")
	assert.True(t, l.Acquire("5.6.7.8"), "other IPs unaffected")

	l.Release("1.2.3.4")
	assert.True(t, l.Acquire("1.2.3.4"))
	assert.Equal(t, 2, l.Count("1.2.3.4"))
}

func TestIPConnectionLimiter_ReleaseUnknownIP(t *testing.T) {
	l := NewIPConnectionLimiter(1)
	l.Release("9.9.9.9")
	assert.Zero(t, l.Count("9.9.9.9"))
}

func TestConnectionRateLimiter(t *testing.T) {
	l := NewConnectionRateLimiter(1.0, 2)

	assert.True(t, l.Allow("1.2.3.4"))
	assert.True(t, l.Allow("1.2.3.4"))
	assert.False(t, l.Allow("1.2.3.4"), "burst exhausted")
	assert.True(t, l.Allow("5.6.7.8"), "per-IP buckets are independent")
}

func TestConnectionLimits_Acquire(t *testing.T) {
	limits := NewConnectionLimits(10, 5, 100.0, 100)

	reason, ok := limits.Acquire("1.2.3.4")
	require.True(t, ok)
	assert.Empty(t, reason)
	assert.Equal(t, int64(1), limits.CurrentConnections())

	limits.Release("1.2.3.4")
	assert.Zero(t, limits.CurrentConnections())
}

func TestConnectionLimits_GlobalCap(t *testing.T) {
	limits := NewConnectionLimits(1, 5, 100.0, 100)

	_, ok := limits.Acquire("1.2.3.4")
	require.True(t, ok)

	reason, ok := limits.Acquire("5.6.7.8")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonGlobal, reason)
}

func TestConnectionLimits_PerIPCapReleasesGlobalSlot(t *testing.T) {
	limits := NewConnectionLimits(10, 1, 100.0, 100)

	_, ok := limits.Acquire("1.2.3.4")
	require.True(t, ok)

	reason, ok := limits.Acquire("1.2.3.4")
	require.False(t, ok)
	assert.Equal(t, LimitReasonPerIP, reason)

	// The rejected attempt must not leak a global slot.
	assert.Equal(t, int64(1), limits.CurrentConnections())
}

func TestConnectionLimits_RateLimit(t *testing.T) {
	limits := NewConnectionLimits(10, 5, 1.0, 1)

	_, ok := limits.Acquire("1.2.3.4")
	require.True(t, ok)

	reason, ok := limits.Acquire("1.2.3.4")
	assert.False(t, ok)
	assert.Equal(t, LimitReasonRate, reason)
}
