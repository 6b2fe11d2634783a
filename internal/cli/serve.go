package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/FranksOps/leadscout/internal/api"
	"github.com/FranksOps/leadscout/internal/webhook"
	"github.com/FranksOps/leadscout/pkg/httpclient"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the search API",
	Long: `Serve exposes the search over HTTP:

  POST /api/search     run a search, or forward it to the action's webhook
  GET  /api/leads      list stored leads (source, minScore, maxScore, search,
                       since, sortBy, sortOrder, page, pageSize)
  GET  /api/settings   read runtime settings
  PUT  /api/settings   set one setting ({"key": ..., "value": ...}); webhook_*
                       keys need "Authorization: Bearer <server.admin_token>"
  GET  /healthz
  GET  /metrics        Prometheus metrics`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	logger := newLogger(cfg.Log, verbose, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.HTTP.Timeout, MaxBodyBytes: cfg.HTTP.MaxBodyBytes})
	if err != nil {
		return err
	}

	srv := api.New(api.Deps{
		Pipeline:   a.pipeline,
		Forwarder:  webhook.NewForwarder(client, logger),
		Webhooks:   webhook.Resolver{Settings: a.settings, Fallback: cfg.Webhooks},
		Settings:   a.settings,
		Store:      a.store,
		RunTimeout: cfg.Server.RunTimeout,
		AdminToken: cfg.Server.AdminToken,
	}, logger)
	return srv.ListenAndServe(ctx, cfg.Server.Addr, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
}
