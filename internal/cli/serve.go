package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"

	"github.com/jackedney/bio-explorer/internal/gbif"
	"github.com/jackedney/bio-explorer/internal/httpapi"
	"github.com/jackedney/bio-explorer/internal/ratelimit"
	"github.com/jackedney/bio-explorer/internal/search"
)

var (
	serveAddr     string
	serveMaxConns int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the species search JSON API",
	Long: `Serve exposes species search over HTTP:

  GET /api/species/search?q=<name>          candidate taxa for a name
  GET /api/occurrences?taxon_key=<key>&cap= sampled points for a taxon
  GET /api/search?q=<name>&cap=             resolve and sample in one call
  GET /health
  GET /metrics                              Prometheus metrics

Example:
  bio-explorer serve
  bio-explorer serve --addr :9000 --max-conns 512`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	serveCmd.Flags().IntVar(&serveMaxConns, "max-conns", 0, "maximum concurrent connections (default from config)")
	addUpstreamFlags(serveCmd)
	addSamplingFlags(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("addr") {
		cfg.Server.Addr = serveAddr
	}
	if cmd.Flags().Changed("max-conns") {
		cfg.Server.MaxConns = serveMaxConns
	}

	// The upstream client lives for the whole process and is shared by every request
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	deps := &httpapi.Dependencies{
		Candidates:     gbif.NewResolver(client, cfg.Resolver.MinConfidence),
		Sampler:        gbif.NewSampler(client, cfg.Upstream, cfg.Sampling.Seed),
		Searcher:       search.New(cfg, client, slog.Default()),
		MaxCap:         cfg.Sampling.Cap,
		RequestTimeout: cfg.Server.RequestTimeout,
		Version:        version,
	}
	if cfg.Server.ClientRatePerSec > 0 {
		deps.ClientLimiter = ratelimit.NewLimiter(cfg.Server.ClientRatePerSec, cfg.Server.ClientBurst, cfg.Server.ClientIdleTimeout)
	}

	app := httpapi.NewApp(deps)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	if cfg.Server.MaxConns > 0 {
		ln = netutil.LimitListener(ln, cfg.Server.MaxConns)
	}

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting", "addr", ln.Addr().String(), "max_conns", cfg.Server.MaxConns)
		serveErr <- app.Listener(ln)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case sig := <-quit:
		slog.Info("shutdown signal received, draining connections...", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
	return nil
}
