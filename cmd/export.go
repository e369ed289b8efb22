package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <repository-url>",
	Short: "Exports the forks of a repository as CSV",
	Long: `Exports every fork of a GitHub repository as CSV with the columns
Repository, Total Commits, Top Contributor and Lines of Code Added.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger(cmd)
		app, err := newApp(cmd, logger)
		if err != nil {
			return err
		}
		output, _ := cmd.Flags().GetString("output")

		ctx, cancel := commandContext(cmd)
		defer cancel()

		done := startSpinner("Fetching fork details...")
		summary, err := app.assembler.WithForkDetails(true).GetRepoSummary(ctx, args[0], app.cfg.GitHubToken)
		done(err == nil)
		if err != nil {
			return fmt.Errorf("failed to export forks: %w", err)
		}

		var w io.Writer = os.Stdout
		if output != "" && output != "-" {
			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", output, err)
			}
			defer f.Close()
			w = f
		}
		if err := writeForkCSV(w, summary.Forks); err != nil {
			return fmt.Errorf("failed to write CSV: %w", err)
		}
		if w != os.Stdout {
			pterm.Success.Printfln("Exported %d forks to %s", len(summary.Forks), output)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "forks_export.csv", "CSV file to write (- for stdout)")
}
