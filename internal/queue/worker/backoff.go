package worker

import (
	"math"
	"math/rand/v2"
	"time"
)

// ExponentialBackoff doubles from 2s per attempt, capped at 5m, plus up to
// 250ms of jitter.
func ExponentialBackoff(attempt int) time.Duration {
	base := 2 * time.Second
	capDelay := 5 * time.Minute

	if attempt < 0 {
		attempt = 0
	}

	delay := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if delay > capDelay {
		delay = capDelay
	}

	return delay + time.Duration(rand.IntN(250))*time.Millisecond
}
