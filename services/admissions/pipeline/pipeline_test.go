package pipeline_test

import (
	"context"
	"database/sql"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"chanceme-backend/lib/scrapers/forum"
	"chanceme-backend/lib/testutil"
	"chanceme-backend/services/admissions/db"
	"chanceme-backend/services/admissions/extract"
	"chanceme-backend/services/admissions/pipeline"
	"chanceme-backend/services/admissions/records"
	"chanceme-backend/services/admissions/schools"
	"chanceme-backend/services/admissions/store"
	"chanceme-backend/services/admissions/synth"
	"chanceme-backend/services/admissions/verify"

	"github.com/stretchr/testify/require"
)

const listingBody = `{
	"data": {
		"children": [
			{"data": {
				"id": "p1",
				"title": "Decisions are out, class of 2029!",
				"selftext": "accepted to mit!! gpa: 3.9 sat: 1550, I still cannot believe it",
				"subreddit": "test"
			}},
			{"data": {
				"id": "p2",
				"title": "How do I improve my essays?",
				"selftext": "junior here, looking for general advice on the writing process",
				"subreddit": "test"
			}}
		],
		"after": ""
	}
}`

const commentsBody = `[
	{"data": {"children": []}},
	{"data": {"children": [
		{"kind": "t1", "data": {
			"body": "honestly same boat, rejected from stanford with gpa 3.7 sat 1490, this cycle was brutal",
			"replies": ""
		}}
	]}}
]`

const searchBody = `{
	"data": {
		"children": [
			{"data": {
				"id": "s1",
				"title": "my final results",
				"selftext": "waitlisted at ucla with gpa 3.8 sat 1450, hoping the waitlist moves this year",
				"subreddit": "test"
			}}
		],
		"after": ""
	}
}`

func newSource(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/r/test/new.json":
			w.Write([]byte(listingBody))
		case strings.HasPrefix(r.URL.Path, "/r/test/comments/"):
			w.Write([]byte(commentsBody))
		case r.URL.Path == "/search.json":
			w.Write([]byte(searchBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func newPipeline(t *testing.T, opts pipeline.Options) (*pipeline.Pipeline, store.Store, *sql.DB) {
	result, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "admissions_pipeline",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	st := store.NewStore(result.DB)
	authorId, err := st.EnsurePipelineActor(context.Background())
	require.NoError(t, err)

	table, err := schools.LoadAliases()
	require.NoError(t, err)

	client, err := forum.NewClient(forum.ClientOptions{
		BaseUrl:   newSource(t).URL,
		BaseDelay: time.Millisecond,
	})
	require.NoError(t, err)

	verifier, err := verify.New(st)
	require.NoError(t, err)

	if opts.Sources == nil {
		opts.Sources = []string{"test"}
	}
	if opts.Keywords == nil {
		opts.Keywords = []string{"accepted"}
	}
	if opts.Sleep == nil {
		opts.Sleep = func(time.Duration) {}
	}

	p := pipeline.New(
		client,
		st,
		schools.NewResolver(st, table),
		extract.New(table),
		synth.New(st, authorId, rand.New(rand.NewSource(1))),
		verifier,
		authorId,
		opts,
	)
	return p, st, result.DB
}

func TestRunSingleCycle(t *testing.T) {
	p, st, _ := newPipeline(t, pipeline.Options{
		TargetRecords: 1,
		PagesPerCycle: 1,
	})

	stats := p.Run(context.Background())
	require.Equal(t, 1, stats.Rounds)
	require.Equal(t, 0, stats.Errors)

	// one record from the listing post, one from a comment tree, one
	// from the keyword search; the second search pass is a duplicate
	require.Equal(t, 3, stats.Fetched)
	// no ranked schools yet, nothing to synthesize against
	require.Equal(t, 0, stats.Synthesized)
	require.Equal(t, 3, stats.Verified)
	require.Equal(t, 0, stats.Deleted)

	ctx := context.Background()
	all, err := st.Records(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)

	bySchool := map[string]store.Record{}
	for _, rec := range all {
		school, err := st.SchoolById(ctx, rec.SchoolId)
		require.NoError(t, err)
		bySchool[school.Name] = rec
		require.True(t, rec.Verified)
		require.Equal(t, "scraped", rec.Source)
		require.True(t, rec.Anonymous)
	}

	mit := bySchool["Massachusetts Institute of Technology"]
	require.Equal(t, records.Admitted, mit.Outcome)
	require.Equal(t, "3.9", mit.Gpa)
	require.Equal(t, "1550", mit.Sat)
	require.Equal(t, 2029, mit.Year)

	stanford := bySchool["Stanford University"]
	require.Equal(t, records.Rejected, stanford.Outcome)
	require.Equal(t, "3.7", stanford.Gpa)

	ucla := bySchool["University of California, Los Angeles"]
	require.Equal(t, records.Waitlisted, ucla.Outcome)
	require.Equal(t, "1450", ucla.Sat)
}

func TestRunStopsAtTargetCount(t *testing.T) {
	p, st, _ := newPipeline(t, pipeline.Options{
		TargetRecords: 3,
		PagesPerCycle: 1,
	})

	stats := p.Run(context.Background())
	// cycle one reaches the target, no second cycle starts
	require.Equal(t, 1, stats.Rounds)

	count, err := st.CountRecords(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, count, int64(3))
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	p, _, _ := newPipeline(t, pipeline.Options{TargetRecords: 1000})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := p.Run(ctx)
	require.Equal(t, 0, stats.Rounds)
	require.Equal(t, 0, stats.Fetched)
}

func TestRunStopsOnTimeBudget(t *testing.T) {
	p, _, _ := newPipeline(t, pipeline.Options{
		TargetRecords: 1000,
		MaxDuration:   time.Nanosecond,
	})

	stats := p.Run(context.Background())
	require.Equal(t, 0, stats.Rounds)
}

func TestRunSurvivesFailingCountQuery(t *testing.T) {
	p, _, dbConn := newPipeline(t, pipeline.Options{
		TargetRecords: 1000,
		MaxDuration:   time.Millisecond * 20,
	})
	require.NoError(t, dbConn.Close())

	// counting fails every cycle, the run keeps retrying until the
	// time budget ends it instead of aborting on the first error
	stats := p.Run(context.Background())
	require.Equal(t, 0, stats.Rounds)
	require.Greater(t, stats.Errors, 0)
}

func TestRunWithoutListingSources(t *testing.T) {
	p, st, _ := newPipeline(t, pipeline.Options{
		Sources:       []string{},
		TargetRecords: 1,
		PagesPerCycle: 1,
	})

	// keyword searches alone still produce records
	stats := p.Run(context.Background())
	require.Equal(t, 1, stats.Rounds)
	require.Equal(t, 0, stats.Errors)
	require.Equal(t, 1, stats.Fetched)

	count, err := st.CountRecords(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRunSurvivesFailingSource(t *testing.T) {
	p, _, _ := newPipeline(t, pipeline.Options{
		Sources:       []string{"missing"},
		Keywords:      []string{"accepted"},
		TargetRecords: 1000,
		MaxDuration:   time.Millisecond * 50,
		PagesPerCycle: 1,
	})

	// the 404 source yields no records; the run still completes its
	// cycles and exits on the time budget without errors
	stats := p.Run(context.Background())
	require.GreaterOrEqual(t, stats.Rounds, 1)
	require.Equal(t, 0, stats.Errors)
}
