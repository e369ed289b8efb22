package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/naka-gawa/github-fork-stats/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves repository summaries and details over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// The server always logs; --verbose only lowers the level.
		logger := logrus.New()
		logger.SetOutput(os.Stderr)
		logger.SetFormatter(&logrus.JSONFormatter{})
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		entry := logrus.NewEntry(logger)

		app, err := newApp(cmd, entry)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return fmt.Errorf("invalid --addr %q: %w", addr, err)
			}
			app.cfg.APIHost, app.cfg.APIPort = host, port
		}

		gin.SetMode(gin.ReleaseMode)
		handler := api.NewHandler(app.assembler, app.assembler.WithForkDetails(true), entry)
		srv := &http.Server{
			Addr:              app.cfg.Addr(),
			Handler:           api.SetupRoutes(handler, entry, app.cfg.APIRequestTimeout),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx := cmd.Context()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		entry.WithField("addr", srv.Addr).Info("Starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		entry.Info("API server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address host:port (overrides API_HOST and API_PORT)")
}
