package realtime

import (
	"math"
	"math/rand"
	"time"
)

const (
	reconnectBaseDelay   = time.Second
	reconnectMaxDelay    = 30 * time.Second
	maxReconnectAttempts = 10
)

// reconnector tracks backoff state across connection drops. The attempt
// counter resets after a connection that stayed up for over a minute.
type reconnector struct {
	attempt     int
	connectedAt time.Time
}

func newReconnector() *reconnector {
	return &reconnector{}
}

func (r *reconnector) markConnected() {
	if r.connectedAt.IsZero() {
		r.connectedAt = time.Now()
	}
	if time.Since(r.connectedAt) > time.Minute {
		r.attempt = 0
	}
}

func (r *reconnector) shouldReconnect() bool {
	return r.attempt < maxReconnectAttempts
}

func (r *reconnector) nextDelay() time.Duration {
	jitter := time.Duration(rand.Float64() * float64(reconnectBaseDelay) * 0.5)
	delay := time.Duration(math.Min(
		float64(reconnectBaseDelay)*math.Pow(2, float64(r.attempt))+float64(jitter),
		float64(reconnectMaxDelay),
	))
	r.attempt++
	r.connectedAt = time.Time{}
	return delay
}
