package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"chanceme-backend/lib/configutil"
	configsqlite "chanceme-backend/lib/configutil/sqlite"
	"chanceme-backend/lib/scrapers/forum"
	"chanceme-backend/lib/serviceutil"
	"chanceme-backend/lib/telemetry"
	"chanceme-backend/services/admissions/db"
	"chanceme-backend/services/admissions/extract"
	"chanceme-backend/services/admissions/pipeline"
	"chanceme-backend/services/admissions/schools"
	"chanceme-backend/services/admissions/store"
	"chanceme-backend/services/admissions/synth"
	"chanceme-backend/services/admissions/verify"

	"github.com/spf13/cobra"
)

type Config struct {
	Database configsqlite.Struct `json:"database"`

	SourceBaseUrl string   `json:"source_base_url"`
	Sources       []string `json:"sources"`
	Keywords      []string `json:"keywords"`

	CycleIntervalSeconds int `json:"cycle_interval_seconds"`
	PagesPerCycle        int `json:"pages_per_cycle"`
	SynthBatch           int `json:"synth_batch"`

	Notify pipeline.Notifier `json:"notify"`
}

var defaultSources = []string{
	"collegeresults",
	"ApplyingToCollege",
	"chanceme",
}

var defaultKeywords = []string{
	"accepted",
	"rejected",
	"admitted",
	"waitlisted",
	"decision thread",
	"college results",
}

var (
	flagHours   int
	flagTarget  int64
	flagConfig  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pipelined",
	Short: "Scrapes, synthesizes and verifies college admission records.",
	Run: func(cmd *cobra.Command, args []string) {
		run()
	},
}

func init() {
	rootCmd.Flags().IntVar(&flagHours, "hours", 12, "cap on run duration in hours")
	rootCmd.Flags().Int64Var(&flagTarget, "target", 100_000, "cap on total persisted record count")
	rootCmd.Flags().StringVar(&flagConfig, "config", "config.json5", "path to the pipeline config file")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
}

func run() {
	telemetry.InitSlog(flagVerbose)

	ctx := serviceutil.SignalContext()

	tel, err := telemetry.SetupFromEnv(ctx, "pipelined")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	if err == nil {
		defer tel.Shutdown(context.Background())
		telemetry.InstrumentPerfStats(ctx)
	}

	config, err := configutil.ReadConfig[Config](flagConfig)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if len(config.Sources) == 0 {
		config.Sources = defaultSources
	}
	if len(config.Keywords) == 0 {
		config.Keywords = defaultKeywords
	}

	// failure to reach the store at startup is the one fatal error of
	// this pipeline
	database, err := config.Database.OpenDB(db.Schema)
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	st := store.NewStore(database)

	authorId, err := st.EnsurePipelineActor(ctx)
	if err != nil {
		serviceutil.Fatal("failed to ensure pipeline actor", err)
	}

	table, err := schools.LoadAliases()
	if err != nil {
		serviceutil.Fatal("failed to load school alias table", err)
	}

	client, err := forum.NewClient(forum.ClientOptions{
		BaseUrl:   config.SourceBaseUrl,
		BaseDelay: time.Second,
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize forum client", err)
	}

	verifier, err := verify.New(st)
	if err != nil {
		serviceutil.Fatal("failed to initialize verifier", err)
	}

	rndm := rand.New(rand.NewSource(time.Now().UnixNano()))
	p := pipeline.New(
		client,
		st,
		schools.NewResolver(st, table),
		extract.New(table),
		synth.New(st, authorId, rndm),
		verifier,
		authorId,
		pipeline.Options{
			Sources:       config.Sources,
			Keywords:      config.Keywords,
			MaxDuration:   time.Duration(flagHours) * time.Hour,
			TargetRecords: flagTarget,
			CycleInterval: time.Duration(config.CycleIntervalSeconds) * time.Second,
			PagesPerCycle: config.PagesPerCycle,
			SynthBatch:    config.SynthBatch,
		},
	)

	stats := p.Run(ctx)
	fmt.Println(pipeline.RenderStats(stats))

	err = config.Notify.SendReport(stats)
	if err != nil {
		serviceutil.Fatal("failed to send completion report", err)
	}
}

func main() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
