package cli

import (
	"github.com/raphaelgruber/briefcast/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	ingestSample    bool
	ingestThreshold float64
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Fetch sources and record new stories without producing an episode",
	Long: `Fetch every configured source and store the stories that are not
already in Story Memory. No script, audio or feed is produced.

Examples:
  briefcast ingest
  briefcast ingest --sample`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestSample, "sample", false, "ingest built-in sample stories")
	ingestCmd.Flags().Float64VarP(&ingestThreshold, "threshold", "t", 0, "duplicate similarity threshold (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mem, err := newStoryMemory(ctx)
	if err != nil {
		return err
	}

	deps := pipeline.Deps{
		Sources: newSources(ingestSample),
		Memory:  mem,
		Metrics: collector,
		Logger:  logger,
	}
	if dbClient != nil {
		deps.Recorder = dbClient
	}

	threshold := cfg.DedupThreshold
	if ingestThreshold > 0 {
		threshold = ingestThreshold
	}

	res, err := pipeline.New(deps, pipeline.Options{Threshold: threshold}).Ingest(ctx)
	out := newPrinter()
	out.printResult(res)
	if verbose {
		out.printMetrics(collector.Snapshot())
	}
	return err
}
