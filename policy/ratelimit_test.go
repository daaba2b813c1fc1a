package policy_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corsair-io/corsair/policy"
)

func TestRateLimiter_AllowsBurstThenBlocks(t *testing.T) {
	rl := policy.NewRateLimiter(1, 2, time.Minute)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-a"))
	assert.False(t, rl.Allow("client-a"))
}

func TestRateLimiter_TracksClientsIndependently(t *testing.T) {
	rl := policy.NewRateLimiter(1, 1, time.Minute)

	assert.True(t, rl.Allow("client-a"))
	assert.True(t, rl.Allow("client-b"))
	assert.False(t, rl.Allow("client-a"))
}
