package screen

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// observeScript stores ARGV[1] when it is greater than the stored value and
// returns the value in force afterwards.
var observeScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local seq = tonumber(ARGV[1])
if seq > current then
  redis.call('SET', KEYS[1], seq, 'PX', ARGV[2])
  return seq
end
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return current
`)

// Tracker remembers, per browser screen instance, the highest request
// sequence number seen. Requests travel through independent HTTP calls, so
// the bookkeeping lives in Redis.
type Tracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTracker builds a Tracker whose entries expire after ttl of inactivity.
func NewTracker(client *redis.Client, ttl time.Duration) *Tracker {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Tracker{client: client, ttl: ttl}
}

// Observe records seq for the screen and reports whether it is the latest.
func (t *Tracker) Observe(ctx context.Context, sessionID, screenID string, seq uint64) (bool, error) {
	latest, err := observeScript.Run(ctx, t.client, []string{t.key(sessionID, screenID)}, seq, t.ttl.Milliseconds()).Uint64()
	if err != nil {
		return false, fmt.Errorf("screen: observe: %w", err)
	}
	return latest == seq, nil
}

// IsLatest reports whether seq is still the highest sequence recorded.
func (t *Tracker) IsLatest(ctx context.Context, sessionID, screenID string, seq uint64) (bool, error) {
	latest, err := t.client.Get(ctx, t.key(sessionID, screenID)).Uint64()
	if err == redis.Nil {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("screen: latest: %w", err)
	}
	return latest <= seq, nil
}

func (t *Tracker) key(sessionID, screenID string) string {
	return "screen:" + sessionID + ":" + screenID
}
