package cli

import (
	"fmt"

	"github.com/raphaelgruber/briefcast/internal/models"
	"github.com/raphaelgruber/briefcast/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	runMode      string
	runThreshold float64
	runDryRun    bool
	runVoice     string
	runSample    bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Produce and publish a briefing episode",
	Long: `Run the full pipeline: fetch every source, drop stories already covered,
write the script, synthesize each segment, mix the episode and publish it.

With --dry-run the pipeline stops after writing the script and nothing is
stored in Story Memory.

Examples:
  briefcast run --mode morning
  briefcast run --mode afternoon --threshold 0.9
  briefcast run --dry-run --sample --ephemeral`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVarP(&runMode, "mode", "m", string(models.ModeMorning), "edition: morning or afternoon")
	runCmd.Flags().Float64VarP(&runThreshold, "threshold", "t", 0, "duplicate similarity threshold (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "stop after script generation without persisting")
	runCmd.Flags().StringVar(&runVoice, "voice", "", "voice id (default from config)")
	runCmd.Flags().BoolVar(&runSample, "sample", false, "use built-in sample stories instead of configured sources")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	mode, err := models.ParseMode(runMode)
	if err != nil {
		return err
	}
	if !runDryRun {
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	deps, err := pipelineDeps(ctx, newSources(runSample), runDryRun)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		Threshold: cfg.DedupThreshold,
		VoiceID:   cfg.VoiceID,
		WorkDir:   cfg.WorkDir,
		OutputDir: cfg.OutputDir,
		IntroPath: assetPath("intro.mp3"),
		OutroPath: assetPath("outro.mp3"),
		DryRun:    runDryRun,
	}
	if cmd.Flags().Changed("threshold") {
		if runThreshold <= 0 || runThreshold > 1 {
			return fmt.Errorf("threshold must be in (0,1], got %.2f", runThreshold)
		}
		opts.Threshold = runThreshold
	}
	if runVoice != "" {
		opts.VoiceID = runVoice
	}

	res, runErr := pipeline.New(deps, opts).Run(ctx, mode)

	out := newPrinter()
	out.printResult(res)
	if verbose {
		out.printMetrics(collector.Snapshot())
	}
	return runErr
}
