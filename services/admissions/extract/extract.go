// Package extract turns one unit of forum free text into candidate
// admission records. Extraction is a pure function of its input text:
// no I/O, no clock, no randomness.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"chanceme-backend/services/admissions/records"
	"chanceme-backend/services/admissions/schools"
)

const (
	// MinInputLength is the threshold below which an untitled input
	// unit (a comment) is considered low-signal noise and skipped
	// entirely. Titled posts always go through, titles carry signal
	// regardless of body length.
	MinInputLength = 80
	// ProximityWindow is the maximum character distance between a
	// school mention and an outcome keyword for them to be paired.
	ProximityWindow = 200
)

var (
	classOfRegex  = regexp.MustCompile(`class of (\d{4})`)
	bareYearRegex = regexp.MustCompile(`\b(20\d\d)\b`)
	gpaRegex      = regexp.MustCompile(`gpa\s*[:=]?\s*(\d{1,3}(?:\.\d{1,2})?)`)
	gpaSlashRegex = regexp.MustCompile(`(\d\.\d{1,2})\s*/\s*4`)
	satRegex      = regexp.MustCompile(`sat\s*[:=]?\s*(\d{3,4})`)
	actRegex      = regexp.MustCompile(`act\s*[:=]?\s*(\d{1,2})`)
	toeflRegex    = regexp.MustCompile(`toefl\s*[:=]?\s*(\d{2,3})`)
)

// outcome patterns in precedence order; the first one found inside the
// proximity window wins
var outcomePatterns = []struct {
	outcome records.Outcome
	regex   *regexp.Regexp
}{
	{records.Admitted, regexp.MustCompile(`\b(accepted|admitted|acceptance|got in(to)?)\b`)},
	{records.Rejected, regexp.MustCompile(`\b(rejected|denied|rejection)\b`)},
	{records.Waitlisted, regexp.MustCompile(`\b(waitlisted|waitlist|wl)\b`)},
	{records.Deferred, regexp.MustCompile(`\b(deferred|deferral)\b`)},
}

var (
	eaRegex  = regexp.MustCompile(`\bea\b|early action`)
	edRegex  = regexp.MustCompile(`\bed\b|\bed ?2\b|\bed ?ii\b|early decision`)
	ed2Regex = regexp.MustCompile(`\bed ?2\b|\bed ?ii\b|early decision (2|ii)`)
	reaRegex = regexp.MustCompile(`\brea\b|restrictive early action`)
)

type aliasPattern struct {
	canonical string
	regex     *regexp.Regexp
}

type Extractor struct {
	aliases []aliasPattern
}

// New compiles a whole-word pattern per alias once; longer aliases are
// tested first so fragments don't shadow them.
func New(table schools.AliasTable) Extractor {
	ordered := table.Aliases()
	aliases := make([]aliasPattern, 0, len(ordered))
	for _, alias := range ordered {
		aliases = append(aliases, aliasPattern{
			canonical: table[alias],
			regex:     regexp.MustCompile(`\b` + regexp.QuoteMeta(alias) + `\b`),
		})
	}
	return Extractor{aliases: aliases}
}

// Extract converts a post title+body (or a single comment, with an
// empty title) into zero or more candidate records. defaultYear fills
// in when the text carries no graduation year, the caller passes the
// current year so Extract itself stays deterministic.
func (e Extractor) Extract(title, body string, defaultYear int) []records.Candidate {
	buffer := strings.ToLower(strings.Trim(title+" "+body, " \n\t"))
	if title == "" && len(buffer) < MinInputLength {
		return nil
	}

	year := extractYear(buffer, defaultYear)
	gpa := extractGpa(buffer)
	sat := extractBounded(buffer, satRegex, records.SatMin, records.SatMax)
	act := extractBounded(buffer, actRegex, records.ActMin, records.ActMax)
	toefl := extractBounded(buffer, toeflRegex, records.ToeflMin, records.ToeflMax)
	tags := extractTags(buffer)
	round := extractRound(buffer)

	var out []records.Candidate
	seen := map[string]bool{}
	for _, alias := range e.aliases {
		match := alias.regex.FindStringIndex(buffer)
		if match == nil || seen[alias.canonical] {
			continue
		}

		outcome, ok := outcomeNear(buffer, match[0])
		if !ok {
			continue
		}
		seen[alias.canonical] = true

		candidate := records.Candidate{
			School:  alias.canonical,
			Outcome: outcome,
			Round:   round,
			Year:    year,
			Gpa:     gpa,
			Sat:     sat,
			Act:     act,
			Toefl:   toefl,
		}
		for _, tag := range tags {
			candidate.AddTag(tag)
		}
		out = append(out, candidate)
	}
	return out
}

// outcomeNear pairs a school mention with the first outcome keyword
// found within the proximity window. One outcome per school, first
// pattern wins.
func outcomeNear(buffer string, schoolPos int) (records.Outcome, bool) {
	for _, pattern := range outcomePatterns {
		for _, match := range pattern.regex.FindAllStringIndex(buffer, -1) {
			distance := match[0] - schoolPos
			if distance < 0 {
				distance = -distance
			}
			if distance <= ProximityWindow {
				return pattern.outcome, true
			}
		}
	}
	return "", false
}

func extractYear(buffer string, defaultYear int) int {
	groups := classOfRegex.FindStringSubmatch(buffer)
	if groups == nil {
		groups = bareYearRegex.FindStringSubmatch(buffer)
	}
	if groups != nil {
		year, err := strconv.Atoi(groups[1])
		if err == nil {
			return year
		}
	}
	return defaultYear
}

func extractGpa(buffer string) string {
	groups := gpaRegex.FindStringSubmatch(buffer)
	if groups != nil {
		return groups[1]
	}
	groups = gpaSlashRegex.FindStringSubmatch(buffer)
	if groups != nil {
		return groups[1]
	}
	return ""
}

func extractBounded(buffer string, pattern *regexp.Regexp, min, max int) string {
	groups := pattern.FindStringSubmatch(buffer)
	if groups == nil {
		return ""
	}
	value, err := strconv.Atoi(groups[1])
	if err != nil || value < min || value > max {
		return ""
	}
	return groups[1]
}

// extractRound tests round phrases in fixed precedence order. REA runs
// before EA because "restrictive early action" contains "early action";
// ED2 is a sub-form of the ED branch.
func extractRound(buffer string) records.Round {
	if reaRegex.MatchString(buffer) {
		return records.RestrictiveEA
	}
	if eaRegex.MatchString(buffer) {
		return records.EarlyAction
	}
	if edRegex.MatchString(buffer) {
		if ed2Regex.MatchString(buffer) {
			return records.EarlyDecision2
		}
		return records.EarlyDecision
	}
	return records.RegularDecision
}
