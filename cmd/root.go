// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"context"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/pterm/pterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-fork-stats/internal/config"
	"github.com/naka-gawa/github-fork-stats/internal/gateway"
	"github.com/naka-gawa/github-fork-stats/internal/usecase"
)

var rootCmd = &cobra.Command{
	Use:   "github-fork-stats",
	Short: "A CLI tool to summarize the forks and contributors of a GitHub repository.",
	Long: `github-fork-stats summarizes a GitHub repository's forks (how many commits each
fork carries), its top contributors and its weekly commit activity.
Results can be printed as tables or JSON, exported as CSV, or served over HTTP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		stop()
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
	rootCmd.PersistentFlags().String("token", "", "GitHub access token (overrides GITHUB_ACCESS_TOKEN)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort the command after this long (0 means no limit)")
}

// app is what every command needs: configuration, a logger and the assembler.
type app struct {
	cfg       *config.Config
	logger    *logrus.Entry
	fetcher   gateway.Fetcher
	assembler *usecase.Assembler
}

// newLogger discards all logs unless --verbose is set.
func newLogger(cmd *cobra.Command) *logrus.Entry {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	if verbose {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logrus.DebugLevel)
	}
	return logrus.NewEntry(logger)
}

func newApp(cmd *cobra.Command, logger *logrus.Entry) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if token, _ := cmd.Flags().GetString("token"); token != "" {
		cfg.GitHubToken = token
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	githubGateway, err := gateway.NewGitHubGateway(cfg.Gateway(), logger)
	if err != nil {
		return nil, err
	}
	return &app{
		cfg:       cfg,
		logger:    logger,
		fetcher:   githubGateway,
		assembler: usecase.NewAssembler(githubGateway, logger, cfg.Options()),
	}, nil
}

// withOptions rebuilds the assembler with options changed by command flags.
func (a *app) withOptions(opts usecase.Options) {
	a.assembler = usecase.NewAssembler(a.fetcher, a.logger, opts)
}

// commandContext applies --timeout to the command's context.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout, _ := cmd.Flags().GetDuration("timeout"); timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

// startSpinner shows progress on stderr so stdout stays clean for piping.
func startSpinner(text string) func(success bool) {
	spinner, err := pterm.DefaultSpinner.WithWriter(os.Stderr).WithRemoveWhenDone(true).Start(text)
	if err != nil {
		return func(bool) {}
	}
	start := time.Now()
	return func(success bool) {
		if success {
			spinner.Success(text + " done in " + time.Since(start).Round(time.Millisecond).String())
			return
		}
		_ = spinner.Stop()
	}
}
