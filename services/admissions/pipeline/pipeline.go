// Package pipeline is the top-level ingestion loop: it rotates through
// listing sources and keyword searches, feeds fetched text through
// extraction and resolution, and runs the synthesizer and quality gate
// once per cycle against persisted state.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chanceme-backend/lib/htmlutil"
	"chanceme-backend/lib/scrapers/forum"
	"chanceme-backend/lib/telemetry"
	"chanceme-backend/services/admissions/extract"
	"chanceme-backend/services/admissions/schools"
	"chanceme-backend/services/admissions/store"
	"chanceme-backend/services/admissions/synth"
	"chanceme-backend/services/admissions/verify"
)

var meter = telemetry.Meter("admissions.pipeline")
var fetchedCounter, _ = meter.Int64Counter("records_fetched")
var synthesizedCounter, _ = meter.Int64Counter("records_synthesized")
var verifiedCounter, _ = meter.Int64Counter("records_verified")
var deletedCounter, _ = meter.Int64Counter("records_deleted")
var errorCounter, _ = meter.Int64Counter("cycle_errors")

type Options struct {
	// Sources are listing feeds walked round-robin, one per cycle.
	Sources []string
	// Keywords feed the search passes, two per cycle.
	Keywords []string
	// MaxDuration and TargetRecords are the two independent stop
	// conditions, checked once per cycle.
	MaxDuration   time.Duration
	TargetRecords int64

	CycleInterval time.Duration
	PagesPerCycle int
	PageSize      int
	// CommentPosts bounds how many posts per page get their comment
	// trees fetched, comment endpoints are the expensive part.
	CommentPosts int
	SearchLimit  int
	SearchWindow string
	SynthBatch   int

	// Sleep exists so tests don't wait out real cycle intervals.
	Sleep func(time.Duration)
}

func (o *Options) applyDefaults() {
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Hour
	}
	if o.TargetRecords <= 0 {
		o.TargetRecords = 100_000
	}
	if o.CycleInterval <= 0 {
		o.CycleInterval = 30 * time.Second
	}
	if o.PagesPerCycle <= 0 {
		o.PagesPerCycle = 3
	}
	if o.PageSize <= 0 {
		o.PageSize = 25
	}
	if o.CommentPosts <= 0 {
		o.CommentPosts = 5
	}
	if o.SearchLimit <= 0 {
		o.SearchLimit = 25
	}
	if o.SearchWindow == "" {
		o.SearchWindow = "week"
	}
	if o.SynthBatch <= 0 {
		o.SynthBatch = 20
	}
	if o.Sleep == nil {
		o.Sleep = time.Sleep
	}
}

// Stats accumulates the counters of one run. It is a value threaded
// through cycle calls, never shared state.
type Stats struct {
	Rounds      int
	Fetched     int
	Synthesized int
	Verified    int
	Deleted     int
	Errors      int
	StartedAt   time.Time
}

func (s Stats) Elapsed() time.Duration {
	return time.Since(s.StartedAt)
}

type Pipeline struct {
	client      *forum.Client
	store       store.Store
	resolver    schools.Resolver
	extractor   extract.Extractor
	synthesizer synth.Synthesizer
	verifier    verify.Verifier
	authorId    int64
	opts        Options

	sourceIdx  int
	keywordIdx int
}

func New(
	client *forum.Client,
	st store.Store,
	resolver schools.Resolver,
	extractor extract.Extractor,
	synthesizer synth.Synthesizer,
	verifier verify.Verifier,
	authorId int64,
	opts Options,
) *Pipeline {
	opts.applyDefaults()
	return &Pipeline{
		client:      client,
		store:       st,
		resolver:    resolver,
		extractor:   extractor,
		synthesizer: synthesizer,
		verifier:    verifier,
		authorId:    authorId,
		opts:        opts,
	}
}

// Run drives cycles until the context dies, the time budget runs out
// or the store reaches the target record count. A failed cycle bumps
// the error counter and the loop keeps going.
func (p *Pipeline) Run(ctx context.Context) Stats {
	stats := Stats{StartedAt: time.Now()}

	for {
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "run cancelled")
			return stats
		}
		if stats.Elapsed() >= p.opts.MaxDuration {
			slog.InfoContext(ctx, "time budget exhausted", "elapsed", stats.Elapsed())
			return stats
		}
		count, err := p.store.CountRecords(ctx)
		if err != nil {
			// transient store trouble is not fatal mid-run, try again
			// next cycle
			stats.Errors++
			errorCounter.Add(ctx, 1)
			slog.ErrorContext(ctx, "failed to count records", "err", err)
			p.opts.Sleep(p.opts.CycleInterval)
			continue
		}
		if count >= p.opts.TargetRecords {
			slog.InfoContext(ctx, "target record count reached", "count", count)
			return stats
		}

		stats.Rounds++
		next, err := p.safeCycle(ctx, stats)
		if err != nil {
			next.Errors++
			errorCounter.Add(ctx, 1)
			slog.ErrorContext(ctx, "cycle failed", "round", next.Rounds, "err", err)
		}
		stats = next

		slog.DebugContext(ctx, "cycle complete", "round", stats.Rounds)
		fmt.Println(RenderStats(stats))

		p.opts.Sleep(p.opts.CycleInterval)
	}
}

// safeCycle converts a panicking cycle into a counted error so one bad
// input can't kill the run.
func (p *Pipeline) safeCycle(ctx context.Context, stats Stats) (out Stats, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = stats
			err = fmt.Errorf("cycle panicked: %v", r)
		}
	}()
	return p.cycle(ctx, stats)
}

func (p *Pipeline) cycle(ctx context.Context, stats Stats) (Stats, error) {
	if len(p.opts.Sources) > 0 {
		source := p.opts.Sources[p.sourceIdx%len(p.opts.Sources)]
		p.sourceIdx++

		fetched, err := p.walkListing(ctx, source)
		stats.Fetched += fetched
		fetchedCounter.Add(ctx, int64(fetched))
		if err != nil {
			return stats, err
		}
	}

	for i := 0; i < 2 && len(p.opts.Keywords) > 0; i++ {
		keyword := p.opts.Keywords[p.keywordIdx%len(p.opts.Keywords)]
		p.keywordIdx++

		fetched, err := p.searchKeyword(ctx, keyword)
		stats.Fetched += fetched
		fetchedCounter.Add(ctx, int64(fetched))
		if err != nil {
			return stats, err
		}
	}

	synthesized, err := p.synthesizer.Synthesize(ctx, p.opts.SynthBatch)
	stats.Synthesized += synthesized
	synthesizedCounter.Add(ctx, int64(synthesized))
	if err != nil {
		return stats, err
	}

	verified, deleted, err := p.verifier.VerifyAll(ctx)
	stats.Verified += verified
	stats.Deleted += deleted
	verifiedCounter.Add(ctx, int64(verified))
	deletedCounter.Add(ctx, int64(deleted))
	if err != nil {
		return stats, err
	}

	return stats, nil
}

// walkListing pages through one source, extracting from every post and
// from the comment trees of the first few posts per page.
func (p *Pipeline) walkListing(ctx context.Context, source string) (int, error) {
	created := 0
	after := ""

	for page := 0; page < p.opts.PagesPerCycle; page++ {
		listing, err := p.client.Listing(ctx, source, after, p.opts.PageSize)
		if err != nil {
			return created, err
		}
		if listing == nil {
			// the source refused us, come back next cycle
			return created, nil
		}

		for i, post := range listing.Posts {
			n, err := p.ingestText(ctx, post.Title, post.Selftext)
			if err != nil {
				return created, err
			}
			created += n

			if i >= p.opts.CommentPosts {
				continue
			}
			comments, err := p.client.Comments(ctx, source, post.Id)
			if err != nil {
				return created, err
			}
			for _, comment := range comments {
				n, err := p.ingestText(ctx, "", comment)
				if err != nil {
					return created, err
				}
				created += n
			}
		}

		after = listing.After
		if after == "" {
			break
		}
	}
	return created, nil
}

func (p *Pipeline) searchKeyword(ctx context.Context, keyword string) (int, error) {
	posts, err := p.client.Search(ctx, keyword, p.opts.SearchLimit, p.opts.SearchWindow)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, post := range posts {
		n, err := p.ingestText(ctx, post.Title, post.Selftext)
		if err != nil {
			return created, err
		}
		created += n
	}
	return created, nil
}

// ingestText runs one unit of text through extraction and resolution
// and persists the surviving candidates. Duplicate inserts are an
// expected outcome and don't count as created.
func (p *Pipeline) ingestText(ctx context.Context, title, body string) (int, error) {
	now := time.Now()
	candidates := p.extractor.Extract(title, htmlutil.Flatten(body), now.Year())

	created := 0
	for _, candidate := range candidates {
		school, err := p.resolver.Resolve(ctx, candidate.School)
		if err != nil {
			return created, err
		}

		inserted, err := p.store.CreateRecord(ctx, store.Record{
			SchoolId:  school.Id,
			AuthorId:  p.authorId,
			Year:      candidate.Year,
			Round:     candidate.Round,
			Outcome:   candidate.Outcome,
			Gpa:       candidate.Gpa,
			Sat:       candidate.Sat,
			Act:       candidate.Act,
			Toefl:     candidate.Toefl,
			Tags:      candidate.Tags,
			Source:    "scraped",
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
