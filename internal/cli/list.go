package cli

import (
	"fmt"

	"github.com/raphaelgruber/briefcast/internal/models"
	"github.com/spf13/cobra"
)

var listLimit int

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored stories or past runs",
	Long: `List what briefcast remembers.

Subcommands:
  stories  Most recently stored stories (default)
  runs     Recent pipeline runs

Examples:
  briefcast list
  briefcast list --limit 20
  briefcast list runs`,
	RunE: runListStories,
}

var listStoriesCmd = &cobra.Command{
	Use:   "stories",
	Short: "List recently stored stories",
	RunE:  runListStories,
}

var listRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent pipeline runs",
	RunE:  runListRuns,
}

func init() {
	listCmd.PersistentFlags().IntVarP(&listLimit, "limit", "n", 20, "max results")

	listCmd.AddCommand(listStoriesCmd)
	listCmd.AddCommand(listRunsCmd)
}

func runListStories(cmd *cobra.Command, args []string) error {
	if err := requireDB(); err != nil {
		return err
	}
	ctx := cmd.Context()

	total, err := dbClient.QueryCountStories(ctx)
	if err != nil {
		return fmt.Errorf("count stories: %w", err)
	}
	stories, err := dbClient.QueryListStories(ctx, listLimit)
	if err != nil {
		return fmt.Errorf("list stories: %w", err)
	}

	out := newPrinter()
	if len(stories) == 0 {
		out.printf("Story Memory is empty.\n")
		return nil
	}

	out.printf("%s (%d of %d):\n\n", out.heading("Stories"), len(stories), total)
	for _, s := range stories {
		out.printf("- %s %s\n", s.Title, out.hint(s.Created.Format("2006-01-02 15:04")))
		if verbose {
			out.printf("  %s\n  %s\n", s.URL, s.SourceID)
		}
	}
	return nil
}

func runListRuns(cmd *cobra.Command, args []string) error {
	if err := requireDB(); err != nil {
		return err
	}

	runs, err := dbClient.QueryListRuns(cmd.Context(), listLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	out := newPrinter()
	if len(runs) == 0 {
		out.printf("No runs recorded.\n")
		return nil
	}

	out.printf("%s (%d):\n\n", out.heading("Runs"), len(runs))
	for _, r := range runs {
		out.printf("- %s %-9s %-18s ingested %d, unique %d, duplicates %d\n",
			r.Started.Format("2006-01-02 15:04"), modeLabel(r.Mode), r.Status, r.Ingested, r.Unique, r.Duplicates)
		if r.FeedURL != nil {
			out.printf("  %s\n", out.hint(*r.FeedURL))
		}
		if r.Error != nil {
			out.printf("  %s\n", out.style(out.theme.Error, false, *r.Error))
		}
	}
	return nil
}

func modeLabel(mode string) string {
	if mode == "" {
		return "ingest"
	}
	return models.Mode(mode).Title()
}
