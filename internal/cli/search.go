package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <text>",
	Short: "Find the stories in memory closest to a piece of text",
	Long: `Embed the text and list the nearest stored stories with their
cosine similarity. Useful for tuning the duplicate threshold.

Examples:
  briefcast search "lithium mining outlook"
  briefcast search "RBA rate decision" --limit 3`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "max results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if err := requireDB(); err != nil {
		return err
	}
	ctx := cmd.Context()

	mem, err := newStoryMemory(ctx)
	if err != nil {
		return err
	}

	matches, err := mem.Search(ctx, args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	out := newPrinter()
	if len(matches) == 0 {
		out.printf("No stories found.\n")
		return nil
	}

	out.printf("Found %d stories:\n\n", len(matches))
	for i, m := range matches {
		sim := m.Similarity()
		marker := ""
		if sim > cfg.DedupThreshold {
			marker = " " + out.style(out.theme.Warn, true, "duplicate")
		}
		out.printf("%d. %s %s%s\n", i+1, m.Story.Title, out.hint(fmt.Sprintf("(%.2f%%)", sim*100)), marker)
		out.printf("   %s\n", m.Story.URL)
		if verbose {
			out.printf("   %s\n", m.Story.ContentSummary)
		}
		out.printf("\n")
	}
	return nil
}
