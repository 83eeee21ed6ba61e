package rewards

import (
	"sync"
	"time"
)

// sessionGuard keeps at most one money-moving flow active per key. A second
// flow for the same key is rejected until the first releases, so a user
// cannot double-fire a claim while one is mid-broadcast.
type sessionGuard struct {
	active sync.Map
}

func newSessionGuard() *sessionGuard {
	return &sessionGuard{}
}

func (g *sessionGuard) acquire(key string) bool {
	_, loaded := g.active.LoadOrStore(key, time.Now())
	return !loaded
}

func (g *sessionGuard) release(key string) {
	g.active.Delete(key)
}

func (g *sessionGuard) held(key string) bool {
	_, ok := g.active.Load(key)
	return ok
}
