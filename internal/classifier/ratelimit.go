package classifier

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	minRateFloor   = 0.2
	maxRateCeiling = 10.0
	emaAlpha       = 0.2
	recoveryFactor = 1.1
	backoffFactor  = 0.5
)

// adaptiveLimiter throttles classifier requests, easing off as observed
// round-trip latency rises above targetRTT and recovering gradually as it
// falls back below, using an EMA-smoothed estimate of classifier
// round-trip latency.
type adaptiveLimiter struct {
	limiter     *rate.Limiter
	targetRTT   time.Duration
	mu          sync.RWMutex
	emaRTT      time.Duration
	currentRate float64
}

func newAdaptiveLimiter(initialRPS float64, targetRTT time.Duration) *adaptiveLimiter {
	clamped := clampRate(initialRPS)
	return &adaptiveLimiter{
		limiter:     rate.NewLimiter(rate.Limit(clamped), int(math.Ceil(clamped))+1),
		targetRTT:   targetRTT,
		currentRate: clamped,
		emaRTT:      targetRTT,
	}
}

func (a *adaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

func (a *adaptiveLimiter) ObserveRTT(rtt time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()

	newEMA := time.Duration(emaAlpha*float64(rtt) + (1-emaAlpha)*float64(a.emaRTT))
	a.emaRTT = newEMA

	ratio := float64(a.targetRTT) / float64(newEMA)

	var newRate float64
	if ratio < 1 {
		proposed := a.currentRate * ratio
		minRate := a.currentRate * backoffFactor
		if proposed < minRate {
			newRate = minRate
		} else {
			newRate = proposed
		}
	} else {
		newRate = a.currentRate * recoveryFactor
	}

	newRate = clampRate(newRate)
	if math.Abs(newRate-a.currentRate) > 0.01 {
		a.currentRate = newRate
		a.limiter.SetLimit(rate.Limit(newRate))
		a.limiter.SetBurst(int(math.Ceil(newRate)) + 1)
	}
}

func clampRate(rps float64) float64 {
	if rps < minRateFloor {
		return minRateFloor
	}
	if rps > maxRateCeiling {
		return maxRateCeiling
	}
	return rps
}
