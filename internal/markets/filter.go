package markets

import (
	"time"

	"launch-radar/internal/domain"
)

// Policy decides whether a detected or listed asset is worth keeping.
// nowMillis is passed in so sweeps judge a whole batch against one clock.
type Policy interface {
	Accept(a *domain.Asset, nowMillis int64) bool
}

// FreshPairPolicy guards on-chain detections. Integrity checks only: a
// pool minutes old legitimately has zero volume and market cap, so market
// thresholds stay out of this path.
type FreshPairPolicy struct {
	// MaxAge bounds how old a launch may be, zero disables the check.
	MaxAge time.Duration
}

func (p FreshPairPolicy) Accept(a *domain.Asset, nowMillis int64) bool {
	if a == nil || a.Address == "" || a.Symbol == "" {
		return false
	}
	if p.MaxAge > 0 && a.LaunchedAt > 0 {
		if nowMillis-a.LaunchedAt > p.MaxAge.Milliseconds() {
			return false
		}
	}
	return true
}

// ListingPolicy guards externally-sourced listings with market thresholds.
// Zero-valued thresholds are disabled; an unknown launch time passes the
// age gate since there is nothing to judge.
type ListingPolicy struct {
	MinLiquidityUSD float64
	MinVolume24h    float64
	MaxAgeHours     int
}

func (p ListingPolicy) Accept(a *domain.Asset, nowMillis int64) bool {
	if a == nil || a.Address == "" || a.Symbol == "" {
		return false
	}
	if p.MinLiquidityUSD > 0 {
		var liq float64
		if a.LiquidityUSD != nil {
			liq = *a.LiquidityUSD
		}
		if liq < p.MinLiquidityUSD {
			return false
		}
	}
	if p.MinVolume24h > 0 && a.Volume24h < p.MinVolume24h {
		return false
	}
	if p.MaxAgeHours > 0 && a.LaunchedAt > 0 {
		maxAge := time.Duration(p.MaxAgeHours) * time.Hour
		if nowMillis-a.LaunchedAt > maxAge.Milliseconds() {
			return false
		}
	}
	return true
}

// Filter returns the assets the policy accepts, preserving order.
func Filter(assets []*domain.Asset, p Policy, nowMillis int64) []*domain.Asset {
	out := make([]*domain.Asset, 0, len(assets))
	for _, a := range assets {
		if p.Accept(a, nowMillis) {
			out = append(out, a)
		}
	}
	return out
}
