package classifier

import (
	"testing"
	"time"
)

func TestNewAdaptiveLimiterClampsInitialRate(t *testing.T) {
	low := newAdaptiveLimiter(0.001, time.Second)
	if low.currentRate != minRateFloor {
		t.Fatalf("currentRate = %v, want floor %v", low.currentRate, minRateFloor)
	}

	high := newAdaptiveLimiter(1000, time.Second)
	if high.currentRate != maxRateCeiling {
		t.Fatalf("currentRate = %v, want ceiling %v", high.currentRate, maxRateCeiling)
	}
}

func TestObserveRTTBacksOffWhenSlow(t *testing.T) {
	a := newAdaptiveLimiter(5.0, 500*time.Millisecond)
	before := a.currentRate

	for i := 0; i < 5; i++ {
		a.ObserveRTT(2 * time.Second)
	}

	if a.currentRate >= before {
		t.Fatalf("currentRate = %v, want less than initial %v after sustained slow RTT", a.currentRate, before)
	}
}

func TestObserveRTTRecoversWhenFast(t *testing.T) {
	a := newAdaptiveLimiter(1.0, 500*time.Millisecond)
	a.ObserveRTT(2 * time.Second) // first push the rate down
	lowered := a.currentRate

	for i := 0; i < 10; i++ {
		a.ObserveRTT(10 * time.Millisecond)
	}

	if a.currentRate <= lowered {
		t.Fatalf("currentRate = %v, want greater than lowered %v after sustained fast RTT", a.currentRate, lowered)
	}
}

func TestClampRateBounds(t *testing.T) {
	if got := clampRate(-1); got != minRateFloor {
		t.Fatalf("clampRate(-1) = %v, want %v", got, minRateFloor)
	}
	if got := clampRate(1e9); got != maxRateCeiling {
		t.Fatalf("clampRate(1e9) = %v, want %v", got, maxRateCeiling)
	}
	if got := clampRate(3); got != 3 {
		t.Fatalf("clampRate(3) = %v, want 3", got)
	}
}
