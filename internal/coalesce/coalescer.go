package coalesce

import (
	"fmt"
	"sync"
	"time"
)

// Policy selects how a burst of identical triggers collapses into one fire.
type Policy int

const (
	// Throttle fires the first trigger immediately and drops the rest of
	// the window.
	Throttle Policy = iota
	// Debounce fires only the last trigger, once the window elapses with
	// no further calls.
	Debounce
)

func (p Policy) String() string {
	switch p {
	case Throttle:
		return "throttle"
	case Debounce:
		return "debounce"
	default:
		return fmt.Sprintf("policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration string into a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "throttle":
		return Throttle, nil
	case "debounce":
		return Debounce, nil
	default:
		return Throttle, fmt.Errorf("unknown coalescing policy %q", s)
	}
}

// Coalescer rate-limits user-triggered actions per key so that a burst of
// identical clicks issues at most one fire per window. Keys identify a
// logical action stream, e.g. "vote:<user>:<image>". Callers apply their
// synchronous side effects (the optimistic cache write) before triggering;
// only the fire function is coalesced.
type Coalescer struct {
	policy Policy
	window time.Duration

	mu   sync.Mutex
	keys map[string]*keyState
}

type keyState struct {
	until   time.Time   // throttle: end of the open window
	timer   *time.Timer // debounce: pending fire
	pending func()      // debounce: last trigger wins
}

// New creates a coalescer with the given policy and window
func New(policy Policy, window time.Duration) *Coalescer {
	return &Coalescer{
		policy: policy,
		window: window,
		keys:   make(map[string]*keyState),
	}
}

// Trigger registers one user action for the key. Under Throttle the function
// runs synchronously on the first trigger of a window and later triggers are
// dropped; under Debounce the last function is run on the coalescer's timer
// goroutine once the window elapses quietly.
func (c *Coalescer) Trigger(key string, fn func()) {
	switch c.policy {
	case Debounce:
		c.mu.Lock()
		ks := c.state(key)
		ks.pending = fn
		if ks.timer == nil {
			ks.timer = time.AfterFunc(c.window, func() { c.fire(key) })
		} else {
			ks.timer.Reset(c.window)
		}
		c.mu.Unlock()

	default: // Throttle
		c.mu.Lock()
		ks := c.state(key)
		now := time.Now()
		if now.Before(ks.until) {
			c.mu.Unlock()
			return
		}
		ks.until = now.Add(c.window)
		c.mu.Unlock()
		fn()
	}
}

// Flush runs the key's pending debounced fire immediately, if any. Used on
// shutdown so a trailing-edge mutation is not lost.
func (c *Coalescer) Flush(key string) {
	c.fire(key)
}

// FlushAll flushes every key with a pending fire
func (c *Coalescer) FlushAll() {
	c.mu.Lock()
	pending := make([]string, 0, len(c.keys))
	for key, ks := range c.keys {
		if ks.pending != nil {
			pending = append(pending, key)
		}
	}
	c.mu.Unlock()

	for _, key := range pending {
		c.fire(key)
	}
}

// Stop cancels all pending timers without firing them
func (c *Coalescer) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ks := range c.keys {
		if ks.timer != nil {
			ks.timer.Stop()
			ks.timer = nil
		}
		ks.pending = nil
	}
}

func (c *Coalescer) fire(key string) {
	c.mu.Lock()
	ks, ok := c.keys[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	fn := ks.pending
	ks.pending = nil
	if ks.timer != nil {
		ks.timer.Stop()
		ks.timer = nil
	}
	c.mu.Unlock()

	if fn != nil {
		fn()
	}
}

func (c *Coalescer) state(key string) *keyState {
	ks, ok := c.keys[key]
	if !ok {
		ks = &keyState{}
		c.keys[key] = ks
	}
	return ks
}
