package netio

import (
	"time"

	"github.com/yhs0602/terrablade/internal/config"
)

// Backoff tracks reconnect attempts with exponential delay growth up to the
// configured ceiling. Not safe for concurrent use; one Backoff belongs to
// one reconnect loop.
type Backoff struct {
	cfg     config.NetworkConfig
	attempt int
}

func NewBackoff(cfg config.NetworkConfig) *Backoff {
	return &Backoff{cfg: cfg}
}

// Next returns the delay before the next attempt, or false when the attempt
// limit is exhausted. A limit of 0 means unlimited attempts.
func (b *Backoff) Next() (time.Duration, bool) {
	if b.cfg.ReconnectLimit > 0 && b.attempt >= b.cfg.ReconnectLimit {
		return 0, false
	}
	d := b.cfg.ReconnectBackoff.Std() << b.attempt
	if d > b.cfg.BackoffCeiling.Std() || d <= 0 {
		d = b.cfg.BackoffCeiling.Std()
	}
	b.attempt++
	return d, true
}

// Reset clears the attempt counter after a successful session.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempts reports how many attempts have been consumed.
func (b *Backoff) Attempts() int {
	return b.attempt
}
