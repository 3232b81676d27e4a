package schools

import "chanceme-backend/services/admissions/store"

// Tier is a discrete selectivity band used to parameterize synthetic
// score generation.
type Tier int

const (
	TierElite Tier = iota
	TierHighlySelective
	TierSelective
	TierModerate
	TierAccessible
)

func (t Tier) String() string {
	switch t {
	case TierElite:
		return "elite"
	case TierHighlySelective:
		return "highly_selective"
	case TierSelective:
		return "selective"
	case TierModerate:
		return "moderate"
	default:
		return "accessible"
	}
}

// TierForRank derives a band from a selectivity rank.
func TierForRank(rank int64) Tier {
	switch {
	case rank <= 20:
		return TierElite
	case rank <= 40:
		return TierHighlySelective
	case rank <= 60:
		return TierSelective
	case rank <= 80:
		return TierModerate
	default:
		return TierAccessible
	}
}

// TierForAcceptanceRate derives a band from an acceptance rate in [0,1].
func TierForAcceptanceRate(rate float64) Tier {
	switch {
	case rate < 0.10:
		return TierElite
	case rate < 0.20:
		return TierHighlySelective
	case rate < 0.35:
		return TierSelective
	case rate < 0.55:
		return TierModerate
	default:
		return TierAccessible
	}
}

// TierFor prefers the acceptance rate when the school has one, since
// the rate defines the band; rank is the fallback signal.
func TierFor(school store.School) Tier {
	if school.AcceptanceRate.Valid {
		return TierForAcceptanceRate(school.AcceptanceRate.Float64)
	}
	if school.Rank.Valid {
		return TierForRank(school.Rank.Int64)
	}
	return TierAccessible
}
