package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ppiankov/claimwatch/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve detection over HTTP",
	Long: `Serve exposes detection to the billing dashboard:

  GET  /healthz     liveness and version
  POST /v1/detect   evaluate a posted snapshot and return the report

Requests are rate limited per client IP (server.requests_per_minute).

Example:
  claimwatch serve
  claimwatch serve --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting claimwatch server",
		zap.String("version", Version),
		zap.String("addr", cfg.Server.Addr),
		zap.Int("requests_per_minute", cfg.Server.RequestsPerMinute),
	)

	return server.New(cfg, logger, Version).ListenAndServe(ctx)
}
