package signal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomRateLimiter(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rl := NewRoomRateLimiter(2, time.Second)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("c1"))
	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"))

	// other connections have their own budget
	assert.True(t, rl.Allow("c2"))

	now = now.Add(1500 * time.Millisecond)
	assert.True(t, rl.Allow("c1"))
}

func TestRoomRateLimiterForget(t *testing.T) {
	rl := NewRoomRateLimiter(1, time.Hour)
	assert.True(t, rl.Allow("c1"))
	assert.False(t, rl.Allow("c1"))

	rl.Forget("c1")
	assert.Empty(t, rl.history)
	assert.True(t, rl.Allow("c1"))
}
