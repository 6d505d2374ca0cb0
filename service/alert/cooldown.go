package alert

import (
	"sync"
	"time"
)

// Clock is the time source for cooldown decisions.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

func SystemClock() Clock {
	return systemClock{}
}

type Channel string

const (
	// ChannelGlobal gates every side effect, shared by all categories.
	ChannelGlobal Channel = "global"
	// ChannelMessaging additionally gates the messaging notification.
	ChannelMessaging Channel = "messaging"
)

// CooldownState remembers when each channel last fired.
type CooldownState struct {
	mu      sync.Mutex
	windows map[Channel]time.Duration
	last    map[Channel]time.Time
}

func NewCooldownState(windows map[Channel]time.Duration) *CooldownState {
	w := make(map[Channel]time.Duration, len(windows))
	for k, v := range windows {
		w[k] = v
	}
	return &CooldownState{
		windows: w,
		last:    map[Channel]time.Time{},
	}
}

// TryAcquire reports whether ch may fire at now and, if so, records now as
// its last-fired instant. A channel that never fired is always open.
func (c *CooldownState) TryAcquire(ch Channel, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, fired := c.last[ch]
	if fired && now.Sub(last) < c.windows[ch] {
		return false
	}
	c.last[ch] = now
	return true
}

// Open reports whether ch would accept a fire at now without recording it.
func (c *CooldownState) Open(ch Channel, now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	last, fired := c.last[ch]
	return !fired || now.Sub(last) >= c.windows[ch]
}

func (c *CooldownState) LastFired(ch Channel) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.last[ch]
	return t, ok
}
