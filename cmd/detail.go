package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var detailCmd = &cobra.Command{
	Use:   "detail <owner> <repo>",
	Short: "Shows contributor stats and weekly commit activity of a repository",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		app, err := newApp(cmd, logger)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx, cancel := commandContext(cmd)
		defer cancel()

		done := startSpinner("Fetching contributor statistics...")
		detail, err := app.assembler.GetRepoDetail(ctx, args[0], args[1], app.cfg.GitHubToken)
		done(err == nil)
		if err != nil {
			return fmt.Errorf("failed to fetch repository details: %w", err)
		}

		if asJSON {
			return writeJSON(os.Stdout, detail)
		}
		if detail.StatsUnavailable {
			pterm.Warning.Println("GitHub is still computing contributor statistics for this repository. Try again in a minute.")
		}
		renderDetail(os.Stdout, detail)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detailCmd)
	detailCmd.Flags().Bool("json", false, "Print the details as JSON")
}
