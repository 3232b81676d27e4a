package extract_test

import (
	"strings"
	"testing"

	"chanceme-backend/services/admissions/extract"
	"chanceme-backend/services/admissions/records"
	"chanceme-backend/services/admissions/schools"

	"github.com/stretchr/testify/require"
)

func newExtractor(t *testing.T) extract.Extractor {
	table, err := schools.LoadAliases()
	require.NoError(t, err)
	return extract.New(table)
}

func TestExtractResultPost(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract("GPA: 3.9 SAT: 1550. Accepted to MIT!", "", 2025)
	require.Len(t, candidates, 1)
	require.Equal(t, records.Candidate{
		School:  "Massachusetts Institute of Technology",
		Outcome: records.Admitted,
		Round:   records.RegularDecision,
		Year:    2025,
		Gpa:     "3.9",
		Sat:     "1550",
	}, candidates[0])
}

func TestExtractIsDeterministic(t *testing.T) {
	e := newExtractor(t)

	title := "Class of 2027 results: rejected from Stanford ED"
	body := "gpa 3.85 sat 1490, international applicant doing computer science"
	first := e.Extract(title, body, 2025)
	second := e.Extract(title, body, 2025)
	require.Equal(t, first, second)
	require.NotEmpty(t, first)
}

func TestShortCommentIsSkipped(t *testing.T) {
	e := newExtractor(t)

	require.Nil(t, e.Extract("", "accepted to mit", 2025))
}

func TestLongCommentIsExtracted(t *testing.T) {
	e := newExtractor(t)

	body := "congrats!! I went through the same thing last cycle and was also " +
		"accepted to mit with a 3.9, it really is possible"
	require.GreaterOrEqual(t, len(body), extract.MinInputLength)

	candidates := e.Extract("", body, 2025)
	require.Len(t, candidates, 1)
	require.Equal(t, "Massachusetts Institute of Technology", candidates[0].School)
	require.Equal(t, records.Admitted, candidates[0].Outcome)
}

func TestSchoolWithoutNearbyOutcomeIsDropped(t *testing.T) {
	e := newExtractor(t)

	// the outcome keyword sits far beyond the proximity window
	body := "stanford " + strings.Repeat("filler ", 40) + "rejected"
	candidates := e.Extract("application timeline question", body, 2025)
	require.Empty(t, candidates)
}

func TestSchoolMentionWithoutAnyOutcome(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"How hard are Harvard supplementals?",
		"working on my essays right now, any tips from people who applied before?",
		2025,
	)
	require.Empty(t, candidates)
}

func TestMultipleSchoolsOnePerCanonicalName(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"Decision day megapost",
		"accepted to harvard and also got into mit, what a day. Harvard was my dream school since forever.",
		2025,
	)
	require.Len(t, candidates, 2)
	names := []string{candidates[0].School, candidates[1].School}
	require.Contains(t, names, "Harvard University")
	require.Contains(t, names, "Massachusetts Institute of Technology")
}

func TestRoundPrecedence(t *testing.T) {
	e := newExtractor(t)

	for _, tt := range []struct {
		body  string
		round records.Round
	}{
		{"applied early action and early decision elsewhere, accepted to mit in the end", records.EarlyAction},
		{"early decision worked out, accepted to mit after months of stress and waiting", records.EarlyDecision},
		{"early decision 2 was my last shot and I was accepted to mit unbelievably", records.EarlyDecision2},
		{"restrictive early action round, accepted to mit and I still cannot believe it", records.RestrictiveEA},
		{"regular round decisions came out today and I was accepted to mit somehow!!", records.RegularDecision},
	} {
		candidates := e.Extract("results", tt.body, 2025)
		require.Len(t, candidates, 1, tt.body)
		require.Equal(t, tt.round, candidates[0].Round, tt.body)
	}
}

func TestClassOfYearWinsOverBareYear(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"class of 2027 results",
		"posting this in 2024: accepted to stanford, gpa 3.95 sat 1560",
		2025,
	)
	require.Len(t, candidates, 1)
	require.Equal(t, 2027, candidates[0].Year)
}

func TestDefaultYearFillsIn(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"finally got my decision back today",
		"accepted to stanford!!! gpa 3.95 sat 1560, so relieved after all this waiting",
		2026,
	)
	require.Len(t, candidates, 1)
	require.Equal(t, 2026, candidates[0].Year)
}

func TestSlashGpaFallback(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"my stats and results",
		"3.85/4 unweighted, sat 1520, act 34. waitlisted at ucla which honestly stings",
		2025,
	)
	require.Len(t, candidates, 1)
	require.Equal(t, "3.85", candidates[0].Gpa)
	require.Equal(t, "1520", candidates[0].Sat)
	require.Equal(t, "34", candidates[0].Act)
	require.Equal(t, records.Waitlisted, candidates[0].Outcome)
}

func TestOutOfBoundScoresAreDropped(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"results post",
		"sat 2250 (old scale), act 99 lol, toefl 119. rejected from harvard anyway",
		2025,
	)
	require.Len(t, candidates, 1)
	require.Empty(t, candidates[0].Sat)
	require.Empty(t, candidates[0].Act)
	require.Equal(t, "119", candidates[0].Toefl)
}

func TestBackgroundTags(t *testing.T) {
	e := newExtractor(t)

	candidates := e.Extract(
		"international first-gen results",
		"accepted to mit for computer science, recruited athlete too. gpa 3.9 sat 1550",
		2025,
	)
	require.Len(t, candidates, 1)
	require.ElementsMatch(
		t,
		[]string{"international", "first-gen", "athlete", "cs"},
		candidates[0].Tags,
	)
}
