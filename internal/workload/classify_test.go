package workload

import (
	"math"
	"testing"
)

func TestClassifyBoundaries(t *testing.T) {
	cases := []struct {
		pct  float64
		want Tier
	}{
		{89, TierBusy},
		{90, TierOverloaded},
		{69, TierNormal},
		{70, TierBusy},
		{39, TierIdle},
		{40, TierNormal},
		{0, TierIdle},
		{-5, TierIdle},
		{1000, TierOverloaded},
		{math.NaN(), TierIdle},
	}
	for _, tc := range cases {
		got := Classify(tc.pct)
		if got.Tier != tc.want {
			t.Fatalf("Classify(%v) = %s, want %s", tc.pct, got.Tier, tc.want)
		}
		if got.Label == "" {
			t.Fatalf("Classify(%v) returned empty label", tc.pct)
		}
	}
}

func TestCustomThresholds(t *testing.T) {
	th := Thresholds{Overloaded: 100, Busy: 80, Normal: 50}
	if got := th.Classify(95).Tier; got != TierBusy {
		t.Fatalf("expected busy, got %s", got)
	}
	if got := th.Classify(45).Tier; got != TierIdle {
		t.Fatalf("expected idle, got %s", got)
	}
}
