package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var summaryCmd = &cobra.Command{
	Use:   "summary <repository-url>",
	Short: "Summarizes the forks and top contributors of a repository",
	Long: `Lists every fork of a GitHub repository with the number of commits it carries,
sorted from the most to the least active, together with the repository's top contributors.`,
	Example: "  github-fork-stats summary https://github.com/facebook/react --max-forks 20",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		app, err := newApp(cmd, logger)
		if err != nil {
			return err
		}

		asJSON, _ := cmd.Flags().GetBool("json")
		details, _ := cmd.Flags().GetBool("details")
		maxForks, _ := cmd.Flags().GetInt("max-forks")
		if maxForks > 0 {
			opts := app.cfg.Options()
			opts.MaxForks = maxForks
			app.withOptions(opts)
		}

		ctx, cancel := commandContext(cmd)
		defer cancel()

		done := startSpinner("Fetching forks...")
		summary, err := app.assembler.WithForkDetails(details).GetRepoSummary(ctx, args[0], app.cfg.GitHubToken)
		done(err == nil)
		if err != nil {
			return fmt.Errorf("failed to summarize repository: %w", err)
		}

		if asJSON {
			return writeJSON(os.Stdout, summary)
		}
		renderSummary(os.Stdout, summary)
		if summary.ForksCount > len(summary.Forks) {
			pterm.Info.Printfln("Showing %d of %d forks.", len(summary.Forks), summary.ForksCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().Bool("json", false, "Print the summary as JSON")
	summaryCmd.Flags().Bool("details", false, "Fetch each fork's top contributor and lines added")
	summaryCmd.Flags().Int("max-forks", 0, "Resolve at most this many forks (overrides MAX_FORKS)")
}
