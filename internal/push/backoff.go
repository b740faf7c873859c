package push

import (
	"math"
	"math/rand/v2"
	"time"
)

// backoff computes capped exponential reconnect delays with jitter. The
// attempt counter resets once a connection has stayed up for stableAfter.
type backoff struct {
	base        time.Duration
	max         time.Duration
	maxAttempts int
	stableAfter time.Duration

	attempt     int
	connectedAt time.Time
}

func (b *backoff) exhausted() bool {
	return b.maxAttempts > 0 && b.attempt >= b.maxAttempts
}

func (b *backoff) markConnected() {
	b.connectedAt = time.Now()
}

func (b *backoff) next() time.Duration {
	if !b.connectedAt.IsZero() && time.Since(b.connectedAt) > b.stableAfter {
		b.attempt = 0
	}
	b.connectedAt = time.Time{}
	jitter := time.Duration(rand.Float64() * float64(b.base) * 0.5)
	delay := time.Duration(math.Min(
		float64(b.base)*math.Pow(2, float64(b.attempt))+float64(jitter),
		float64(b.max),
	))
	b.attempt++
	return delay
}
