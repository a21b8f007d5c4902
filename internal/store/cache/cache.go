// Package cache implements the Cache / Presence Store (spec §4.B) on top of
// patrickmn/go-cache, an in-process TTL map. All operations degrade to
// "unknown" on failure per spec §4.B so a cache outage never blocks
// signaling: callers fall back to room membership for presence and to
// allow-by-default for rate limiting.
package cache

import (
	"fmt"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Store is the Cache / Presence Store contract. Every method reports
// ok=false when the backend is unavailable so callers can apply the
// degrade-to-allow policy themselves.
type Store interface {
	Set(key string, value any, ttl time.Duration) bool
	Get(key string) (any, bool)
	Del(key string) bool
	DelByPattern(glob string) (int, bool)

	HSet(key, field string, value any) bool
	HDel(key, field string) bool
	HGetAll(key string) (map[string]any, bool)

	AddOnlineUser(meetingID, userID, socketID string) bool
	GetOnlineUsers(meetingID string) (map[string]string, bool)

	CheckRateLimit(key string, limit int, window time.Duration) (RateLimitResult, bool)

	// Available reports whether the backend is currently serving requests,
	// letting callers apply the "degrade to allow / fall back to room
	// membership" policy of spec §4.B without a failed call round-trip.
	Available() bool
}

type RateLimitResult struct {
	Allowed        bool
	Remaining      int
	ResetInSeconds int
}

const onlineTTL = time.Hour

// GoCache wraps go-cache. It exposes a SetDown switch purely for tests that
// need to exercise the degrade paths; production wiring never flips it.
type GoCache struct {
	c *gocache.Cache

	mu   sync.Mutex
	down bool

	rlMu sync.Mutex
	rl   map[string]*rateWindow
}

type rateWindow struct {
	count   int
	resetAt time.Time
}

func New() *GoCache {
	return &GoCache{
		c:  gocache.New(gocache.NoExpiration, 5*time.Minute),
		rl: make(map[string]*rateWindow),
	}
}

// SetDown flips the availability switch used by tests exercising degrade
// behavior. Not called from production wiring.
func (g *GoCache) SetDown(down bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.down = down
}

func (g *GoCache) Available() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.down
}

func (g *GoCache) Set(key string, value any, ttl time.Duration) bool {
	if !g.Available() {
		return false
	}
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	g.c.Set(key, value, ttl)
	return true
}

func (g *GoCache) Get(key string) (any, bool) {
	if !g.Available() {
		return nil, false
	}
	v, ok := g.c.Get(key)
	if !ok {
		return nil, false
	}
	return v, true
}

func (g *GoCache) Del(key string) bool {
	if !g.Available() {
		return false
	}
	g.c.Delete(key)
	return true
}

// DelByPattern matches keys with a simple "*"-glob (go-cache has no native
// pattern scan; the pack carries no Redis client, so this walks the
// in-process item set directly).
func (g *GoCache) DelByPattern(glob string) (int, bool) {
	if !g.Available() {
		return 0, false
	}
	n := 0
	for k := range g.c.Items() {
		if globMatch(glob, k) {
			g.c.Delete(k)
			n++
		}
	}
	return n, true
}

func globMatch(glob, s string) bool {
	if !strings.Contains(glob, "*") {
		return glob == s
	}
	parts := strings.Split(glob, "*")
	if !strings.HasPrefix(s, parts[0]) {
		return false
	}
	s = s[len(parts[0]):]
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		idx := strings.Index(s, p)
		if idx < 0 {
			return false
		}
		s = s[idx+len(p):]
	}
	return true
}

type hashValue = map[string]any

func (g *GoCache) HSet(key, field string, value any) bool {
	if !g.Available() {
		return false
	}
	raw, _ := g.c.Get(key)
	h, ok := raw.(hashValue)
	if !ok {
		h = make(hashValue)
	}
	h[field] = value
	g.c.Set(key, h, gocache.NoExpiration)
	return true
}

func (g *GoCache) HDel(key, field string) bool {
	if !g.Available() {
		return false
	}
	raw, ok := g.c.Get(key)
	if !ok {
		return true
	}
	h, ok := raw.(hashValue)
	if !ok {
		return true
	}
	delete(h, field)
	g.c.Set(key, h, gocache.NoExpiration)
	return true
}

func (g *GoCache) HGetAll(key string) (map[string]any, bool) {
	if !g.Available() {
		return nil, false
	}
	raw, ok := g.c.Get(key)
	if !ok {
		return map[string]any{}, true
	}
	h, ok := raw.(hashValue)
	if !ok {
		return map[string]any{}, true
	}
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, true
}

func onlineKey(meetingID string) string {
	return fmt.Sprintf("meeting:%s:online", meetingID)
}

// AddOnlineUser stores socketID under userID in the meeting's online hash
// and refreshes the whole hash's TTL, matching spec §4.B's "1-hour rolling
// TTL refresh on each write".
func (g *GoCache) AddOnlineUser(meetingID, userID, socketID string) bool {
	if !g.Available() {
		return false
	}
	key := onlineKey(meetingID)
	raw, _ := g.c.Get(key)
	h, ok := raw.(map[string]string)
	if !ok {
		h = make(map[string]string)
	}
	h[userID] = socketID
	g.c.Set(key, h, onlineTTL)
	return true
}

func (g *GoCache) GetOnlineUsers(meetingID string) (map[string]string, bool) {
	if !g.Available() {
		return nil, false
	}
	raw, ok := g.c.Get(onlineKey(meetingID))
	if !ok {
		return map[string]string{}, true
	}
	h, ok := raw.(map[string]string)
	if !ok {
		return map[string]string{}, true
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, true
}

// CheckRateLimit is an atomic fixed-window counter. The window resets
// lazily: an expired window is replaced on the next check rather than by a
// background sweep.
func (g *GoCache) CheckRateLimit(key string, limit int, window time.Duration) (RateLimitResult, bool) {
	if !g.Available() {
		return RateLimitResult{}, false
	}
	g.rlMu.Lock()
	defer g.rlMu.Unlock()

	now := time.Now()
	w, ok := g.rl[key]
	if !ok || now.After(w.resetAt) {
		w = &rateWindow{count: 0, resetAt: now.Add(window)}
		g.rl[key] = w
	}
	w.count++

	remaining := limit - w.count
	allowed := remaining >= 0
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:        allowed,
		Remaining:      remaining,
		ResetInSeconds: int(time.Until(w.resetAt).Seconds()),
	}, true
}
