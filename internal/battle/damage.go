package battle

import (
	"time"

	"github.com/koyak/kombat_backend/internal/scoring"
)

// SpeedTier tags a turn with the latency band its generation call landed in
type SpeedTier string

const (
	SpeedTierBlazing  SpeedTier = "blazing"  // under 2s, x1.15
	SpeedTierQuick    SpeedTier = "quick"    // under 3s, x1.10
	SpeedTierSteady   SpeedTier = "steady"   // 3s to 5s, no bonus
	SpeedTierSluggish SpeedTier = "sluggish" // over 5s, x0.90
)

// SpeedTierFor maps a generation round-trip latency to its tier. Bands are
// strict: exactly 2000ms is quick, not blazing; exactly 5000ms is steady.
func SpeedTierFor(latency time.Duration) SpeedTier {
	ms := latency.Milliseconds()
	switch {
	case ms < 2000:
		return SpeedTierBlazing
	case ms < 3000:
		return SpeedTierQuick
	case ms > 5000:
		return SpeedTierSluggish
	default:
		return SpeedTierSteady
	}
}

// multiplierPct returns the tier's damage multiplier in hundredths
func (t SpeedTier) multiplierPct() int {
	switch t {
	case SpeedTierBlazing:
		return 115
	case SpeedTierQuick:
		return 110
	case SpeedTierSluggish:
		return 90
	default:
		return 100
	}
}

// ComputeDamage turns a judge verdict into applied damage.
//
// The repetition override short-circuits everything else. Otherwise the
// weighted base (specificity 30%, creativity 30%, accuracy 40%) is scaled by
// 0.60, capping a turn at 60 before the speed bonus, then multiplied by the
// latency tier. All arithmetic is integer so the floors are exact at tier
// boundaries. The result is never negative.
func ComputeDamage(score *scoring.RoastScore, latency time.Duration, isRepeat bool) int {
	if isRepeat {
		return 0
	}

	// base in tenths of a point: 0.3s + 0.3c + 0.4a
	baseTenths := 3*score.Specificity + 3*score.Creativity + 4*score.Accuracy
	if baseTenths < 0 {
		baseTenths = 0
	}

	// floor(base * 0.60)
	scaled := baseTenths * 6 / 100

	damage := scaled * SpeedTierFor(latency).multiplierPct() / 100
	if damage < 0 {
		damage = 0
	}
	return damage
}
