// Package synth produces statistically plausible admission records for
// schools lacking real coverage. Score distributions are parameterized
// by the school's difficulty tier and skewed by the intended outcome.
package synth

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"chanceme-backend/services/admissions/records"
	"chanceme-backend/services/admissions/schools"
	"chanceme-backend/services/admissions/store"
)

// SourceTag marks every synthetic record so downstream consumers can
// tell them apart from organically extracted ones.
const SourceTag = "source:synthetic"

// MaxPoolRank bounds the candidate school pool to ranked schools.
const MaxPoolRank = 100

type scoreRange struct {
	gpaMin, gpaMax float64
	satMin, satMax int
}

var tierRanges = map[schools.Tier]scoreRange{
	schools.TierElite:           {3.85, 4.00, 1500, 1600},
	schools.TierHighlySelective: {3.70, 3.95, 1440, 1560},
	schools.TierSelective:       {3.50, 3.90, 1350, 1520},
	schools.TierModerate:        {3.30, 3.80, 1250, 1450},
	schools.TierAccessible:      {3.00, 3.70, 1100, 1400},
}

var majors = []string{
	"cs", "engineering", "premed", "business", "humanities", "stem",
}

// profile archetypes a synthetic applicant may carry on top of the
// major tag; the empty set is the most common profile
var archetypes = [][]string{
	{},
	{},
	{"international"},
	{"first-gen"},
	{"legacy"},
	{"athlete"},
	{"international", "first-gen"},
}

type Synthesizer struct {
	store    store.Store
	authorId int64
	rndm     *rand.Rand
}

// New builds a synthesizer around an injected pseudo-random source so
// runs are reproducible under test.
func New(st store.Store, authorId int64, rndm *rand.Rand) Synthesizer {
	return Synthesizer{store: st, authorId: authorId, rndm: rndm}
}

// weightedChoice returns an index into weights, picked proportionally.
func (s Synthesizer) weightedChoice(weights ...int) int {
	sum := 0
	for _, w := range weights {
		sum += w
	}
	value := s.rndm.Intn(sum)
	threshold := 0
	for i, w := range weights {
		threshold += w
		if value < threshold {
			return i
		}
	}
	return len(weights) - 1
}

func (s Synthesizer) uniform(min, max float64) float64 {
	return min + s.rndm.Float64()*(max-min)
}

// classifyOutcome combines score position within the tier range with
// weighted randomness: the upper band skews admitted, the lower band
// skews rejected, waitlist/deferral fill the middle.
func (s Synthesizer) classifyOutcome(bounds scoreRange, gpa float64, sat int) records.Outcome {
	gpaPos := (gpa - bounds.gpaMin) / (bounds.gpaMax - bounds.gpaMin)
	satPos := float64(sat-bounds.satMin) / float64(bounds.satMax-bounds.satMin)
	position := (gpaPos + satPos) / 2

	var choice int
	switch {
	case position >= 0.66:
		choice = s.weightedChoice(70, 10, 15, 5)
	case position >= 0.33:
		choice = s.weightedChoice(45, 25, 20, 10)
	default:
		choice = s.weightedChoice(20, 50, 20, 10)
	}

	return [...]records.Outcome{
		records.Admitted,
		records.Rejected,
		records.Waitlisted,
		records.Deferred,
	}[choice]
}

func (s Synthesizer) pickRound() records.Round {
	choice := s.weightedChoice(60, 15, 10, 5, 10)
	return [...]records.Round{
		records.RegularDecision,
		records.EarlyAction,
		records.EarlyDecision,
		records.EarlyDecision2,
		records.RestrictiveEA,
	}[choice]
}

// Synthesize creates up to count synthetic records and returns how
// many were actually inserted (dedup collisions don't count).
func (s Synthesizer) Synthesize(ctx context.Context, count int) (int, error) {
	pool, err := s.store.RankedSchools(ctx, MaxPoolRank)
	if err != nil {
		return 0, err
	}
	if len(pool) == 0 {
		slog.DebugContext(ctx, "no ranked schools to synthesize against")
		return 0, nil
	}

	created := 0
	now := time.Now()
	for i := 0; i < count; i++ {
		school := pool[s.rndm.Intn(len(pool))]
		bounds := tierRanges[schools.TierFor(school)]

		// small jitter beyond the base range, clamped back into the
		// record invariants
		gpa := s.uniform(bounds.gpaMin, bounds.gpaMax) + s.uniform(-0.03, 0.03)
		gpa = clampFloat(gpa, 0, 4.0)
		sat := int(s.uniform(float64(bounds.satMin), float64(bounds.satMax))) + s.rndm.Intn(21) - 10
		sat = clampInt(sat/10*10, records.SatMin, records.SatMax)

		candidate := records.Candidate{
			Outcome: s.classifyOutcome(bounds, gpa, sat),
			Round:   s.pickRound(),
			Year:    now.Year(),
			Gpa:     fmt.Sprintf("%.2f", gpa),
			Sat:     fmt.Sprintf("%d", sat),
		}
		candidate.AddTag(majors[s.rndm.Intn(len(majors))])
		for _, tag := range archetypes[s.rndm.Intn(len(archetypes))] {
			candidate.AddTag(tag)
		}
		candidate.AddTag(SourceTag)

		inserted, err := s.store.CreateRecord(ctx, store.Record{
			SchoolId:  school.Id,
			AuthorId:  s.authorId,
			Year:      candidate.Year,
			Round:     candidate.Round,
			Outcome:   candidate.Outcome,
			Gpa:       candidate.Gpa,
			Sat:       candidate.Sat,
			Tags:      candidate.Tags,
			Source:    "synthetic",
			Anonymous: true,
			CreatedAt: now.Unix(),
		})
		if err != nil {
			return created, err
		}
		if inserted {
			created++
		}
	}
	return created, nil
}

func clampFloat(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
