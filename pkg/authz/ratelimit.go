package authz

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/inzo-ai/core-contracts/pkg/identity"
)

// SubmissionLimiter throttles oracle submissions per actor address. It
// protects the assessment intake path from a runaway AI assessor; limits are
// operational, not part of the authorization contract.
type SubmissionLimiter struct {
	mu     sync.Mutex
	actors map[identity.Address]*actorLimiter
	rps    rate.Limit
	burst  int
}

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewSubmissionLimiter allows rps submissions per second with the given burst.
func NewSubmissionLimiter(rps float64, burst int) *SubmissionLimiter {
	return &SubmissionLimiter{
		actors: make(map[identity.Address]*actorLimiter),
		rps:    rate.Limit(rps),
		burst:  burst,
	}
}

// Allow reports whether the actor may submit now.
func (l *SubmissionLimiter) Allow(actor identity.Address) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.actors[actor]
	if !ok {
		a = &actorLimiter{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.actors[actor] = a
	}
	a.lastSeen = time.Now()
	return a.limiter.Allow()
}

// Prune drops actors idle for longer than maxIdle.
func (l *SubmissionLimiter) Prune(maxIdle time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for addr, a := range l.actors {
		if a.lastSeen.Before(cutoff) {
			delete(l.actors, addr)
		}
	}
}
