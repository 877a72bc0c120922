package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/raphaelgruber/briefcast/internal/db"
	"github.com/raphaelgruber/briefcast/internal/models"
	"github.com/spf13/cobra"
)

var forgetForce bool

var forgetCmd = &cobra.Command{
	Use:   "forget <url>",
	Short: "Remove a story from Story Memory",
	Long: `Remove the story stored for a URL so it can be covered again.

Requires confirmation unless --force is used.

Examples:
  briefcast forget "https://www.fool.com.au/2025/01/01/asx-200-today/"
  briefcast forget "https://example.com/story" --force`,
	Args: cobra.ExactArgs(1),
	RunE: runForget,
}

func init() {
	forgetCmd.Flags().BoolVarP(&forgetForce, "force", "f", false, "skip confirmation")
}

func runForget(cmd *cobra.Command, args []string) error {
	if err := requireDB(); err != nil {
		return err
	}
	ctx := cmd.Context()
	id := models.StoryID(args[0])

	story, err := dbClient.QueryGetStory(ctx, id)
	if errors.Is(err, db.ErrNotFound) {
		return fmt.Errorf("story not found: %s", args[0])
	}
	if err != nil {
		return fmt.Errorf("get story: %w", err)
	}

	// Confirm deletion
	if !forgetForce {
		fmt.Printf("About to forget: %s (%s)\n", story.Title, id)
		fmt.Print("\nContinue? [y/N]: ")

		reader := bufio.NewReader(os.Stdin)
		response, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		response = strings.TrimSpace(strings.ToLower(response))

		if response != "y" && response != "yes" {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	deleted, err := dbClient.QueryDeleteStory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete story: %w", err)
	}
	if deleted == 0 {
		return fmt.Errorf("story not found or already deleted")
	}

	fmt.Printf("Forgot: %s\n", story.Title)
	return nil
}
