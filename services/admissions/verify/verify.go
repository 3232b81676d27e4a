// Package verify is the quality gate: every unverified record is
// normalized or rejected by deterministic rules, then marked verified
// exactly once. Re-running the gate over already-verified records is a
// no-op.
package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"time"

	"chanceme-backend/lib/textutil"
	"chanceme-backend/services/admissions/records"
	"chanceme-backend/services/admissions/store"

	_ "embed"
)

//go:embed blocklist.json
var blocklistData []byte

type blocklist struct {
	Tokens []string `json:"tokens"`
}

// noise patterns that mark a school name as an extraction artifact
var noisePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\d+[.)]`),
	regexp.MustCompile(`^[>"']`),
	regexp.MustCompile(`(\.\.\.|…)$`),
}

// ImplausibilityRank is the selectivity rank at or below which an
// admission claim gets cross-checked against its scores.
const ImplausibilityRank = 10

type Verifier struct {
	store  store.Store
	tokens map[string]bool
}

func New(st store.Store) (Verifier, error) {
	var list blocklist
	err := json.Unmarshal(blocklistData, &list)
	if err != nil {
		return Verifier{}, err
	}
	tokens := make(map[string]bool, len(list.Tokens))
	for _, token := range list.Tokens {
		tokens[textutil.NormalizeName(token)] = true
	}
	return Verifier{store: st, tokens: tokens}, nil
}

func (v Verifier) badSchoolName(name string) bool {
	normalized := textutil.NormalizeName(name)
	if len(normalized) < 3 {
		return true
	}
	if v.tokens[normalized] {
		return true
	}
	for _, pattern := range noisePatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}

// normalizeGpa applies the cleanup rescaling rules. It must run before
// the strict range rejection or fixable records get destroyed. The
// second return reports whether the field changed.
func normalizeGpa(gpa string) (string, bool) {
	if gpa == "" || gpa == "." {
		return gpa, false
	}
	value, err := strconv.ParseFloat(gpa, 64)
	if err != nil {
		return gpa, false
	}

	switch {
	case value > 100:
		// a misclassified SAT score, not a GPA on any scale
		return "", true
	case value > records.GpaMax:
		// percentile-scale GPA
		return fmt.Sprintf("%.2f", value/100*4), true
	case value > records.GpaVerifiedMax:
		// weighted 5.0-scale GPA
		return fmt.Sprintf("%.2f", value*4/5), true
	case value > 0 && value < 1:
		// likely decimal shift, ex. 0.39 for 3.9
		return fmt.Sprintf("%.2f", value*10), true
	}
	return gpa, false
}

func outOfRange(value string, min, max float64) bool {
	if value == "" {
		return false
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return true
	}
	return parsed < min || parsed > max
}

func parsedOrZero(value string) float64 {
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return parsed
}

// shouldDelete evaluates the deletion rules in their documented order.
func (v Verifier) shouldDelete(rec store.Record, school store.School) (string, bool) {
	if v.badSchoolName(school.Name) {
		return "bad school name", true
	}
	if rec.Gpa == "." {
		return "gpa artifact", true
	}
	if outOfRange(rec.Gpa, 0, records.GpaMax) {
		return "gpa out of range", true
	}
	if outOfRange(rec.Sat, records.SatMin, records.SatMax) {
		return "sat out of range", true
	}
	if outOfRange(rec.Act, records.ActMin, records.ActMax) {
		return "act out of range", true
	}

	// implausibility cross-check for highly selective schools
	if school.Rank.Valid && school.Rank.Int64 <= ImplausibilityRank &&
		rec.Outcome == records.Admitted {
		lowGpa := rec.Gpa != "" && parsedOrZero(rec.Gpa) < 2.5
		lowSat := rec.Sat != "" && parsedOrZero(rec.Sat) < 1100
		if lowGpa || lowSat {
			return "implausible admission", true
		}
	}

	return "", false
}

// VerifyAll runs the cleanup normalization pass and then the quality
// gate over every currently unverified record.
func (v Verifier) VerifyAll(ctx context.Context) (verified int, deleted int, err error) {
	unverified, err := v.store.UnverifiedRecords(ctx)
	if err != nil {
		return 0, 0, err
	}

	schoolCache := map[int64]store.School{}
	now := time.Now().Unix()

	for _, rec := range unverified {
		normalized, changed := normalizeGpa(rec.Gpa)
		if changed {
			rec.Gpa = normalized
			err := v.store.UpdateScores(ctx, rec.Id, rec.Gpa, rec.Sat)
			if err != nil {
				return verified, deleted, err
			}
		}

		school, ok := schoolCache[rec.SchoolId]
		if !ok {
			school, err = v.store.SchoolById(ctx, rec.SchoolId)
			if err != nil {
				return verified, deleted, err
			}
			schoolCache[rec.SchoolId] = school
		}

		reason, drop := v.shouldDelete(rec, school)
		if drop {
			slog.DebugContext(
				ctx, "rejecting record",
				"id", rec.Id,
				"school", school.Name,
				"reason", reason,
			)
			err := v.store.DeleteRecord(ctx, rec.Id)
			if err != nil {
				return verified, deleted, err
			}
			deleted++
			continue
		}

		err := v.store.MarkVerified(ctx, rec.Id, now)
		if err != nil {
			return verified, deleted, err
		}
		verified++
	}

	if verified > 0 || deleted > 0 {
		slog.InfoContext(ctx, "quality gate pass", "verified", verified, "deleted", deleted)
	}
	return verified, deleted, nil
}
