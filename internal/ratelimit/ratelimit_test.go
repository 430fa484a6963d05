package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowCapsBurstAttempts(t *testing.T) {
	l := New()
	ip := "203.0.113.7"

	allowed := 0
	for i := 0; i < burst+5; i++ {
		if l.Allow(ip) {
			allowed++
		}
	}
	assert.Equal(t, burst, allowed)
}

func TestAllowTracksIPsIndependently(t *testing.T) {
	l := New()
	for i := 0; i < burst; i++ {
		assert.True(t, l.Allow("10.0.0.1"))
	}
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"))
}
