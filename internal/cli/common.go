package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackedney/bio-explorer/internal/gbif"
	"github.com/jackedney/bio-explorer/internal/model"
)

// Flags shared by the commands that talk to the upstream service
var (
	outJSON       string
	timeout       time.Duration
	sampleCap     int
	seed          uint64
	minConfidence int
	userAgent     string
	httpProxy     string
	httpsProxy    string
)

func addUpstreamFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	cmd.Flags().StringVar(&httpProxy, "http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().StringVar(&httpsProxy, "https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().IntVar(&minConfidence, "min-confidence", 0, "report matches below this confidence as not found (0 accepts every match)")
}

func addSamplingFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&sampleCap, "cap", model.DefaultCap, "maximum number of points to return")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "sampling seed (0 picks a random seed)")
}

// commandConfig loads the layered config and applies the flags the user set
func commandConfig(cmd *cobra.Command) (*model.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("cap") {
		cfg.Sampling.Cap = sampleCap
	}
	if flags.Changed("seed") {
		cfg.Sampling.Seed = seed
	}
	if flags.Changed("min-confidence") {
		cfg.Resolver.MinConfidence = minConfidence
	}
	if flags.Changed("ua") {
		cfg.HTTP.UserAgent = userAgent
	}
	if flags.Changed("http-proxy") {
		cfg.HTTP.HTTPProxy = httpProxy
	}
	if flags.Changed("https-proxy") {
		cfg.HTTP.HTTPSProxy = httpsProxy
	}
	if flags.Changed("concurrency") {
		cfg.Concurrency.Workers = concurrency
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// commandContext is cancelled on SIGINT/SIGTERM or after d
func commandContext(d time.Duration) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if d <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	return ctx, func() {
		cancel()
		stop()
	}
}

func newClient(cfg *model.Config) (*gbif.Client, error) {
	client, err := gbif.NewClient(cfg, gbif.WithLogger(slog.Default()))
	if err != nil {
		return nil, fmt.Errorf("create upstream client: %w", err)
	}
	return client, nil
}

// writeJSON writes v as indented JSON to path, or to stdout when path is "" or "-"
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	data = append(data, '\n')

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", path)
	}
	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a species name into a safe file name
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-")
	if s == "" {
		s = "unnamed"
	}

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}
