package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackedney/bio-explorer/internal/search"
	"github.com/jackedney/bio-explorer/internal/worker"
)

var (
	concurrency  int
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Search many species names from a file in parallel",
	Long: `Batch searches multiple species names concurrently:
- Read names from input file (one per line, # for comments)
- Search names in parallel with configurable worker count
- Each search is independent; one failure does not affect the others
- Write one JSON result per name

Example:
  bio-explorer batch species.txt
  bio-explorer batch species.txt --concurrency 8 --output-dir ./maps
  bio-explorer batch species.txt --cap 2000 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of concurrent searches")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./bio-explorer-results", "output directory for results")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 30*time.Minute, "total timeout for batch processing")
	addUpstreamFlags(batchCmd)
	addSamplingFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Bio Explorer Batch Search\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Cap:          %d\n", cfg.Sampling.Cap)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	// One client shared by every worker; each search keeps its own state
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	p := search.New(cfg, client, slog.Default())
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers, cfg.Sampling.Cap)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	successCount := 0
	notFoundCount := 0
	failureCount := 0

	for _, r := range results {
		if r.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", r.Name, r.Error)
			continue
		}

		jsonPath := filepath.Join(outputDir, sanitizeFilename(r.Name)+".json")
		if err := writeJSON(jsonPath, r.Result); err != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", r.Name, err)
			continue
		}

		if !r.Result.Found {
			notFoundCount++
			fmt.Fprintf(os.Stderr, "- %s: no species found\n", r.Name)
			continue
		}

		successCount++
		fmt.Fprintf(os.Stderr, "✓ %s (key %d: %d of %d points)\n",
			r.Name, r.Result.Match.TaxonKey, r.Result.Returned, r.Result.Total)
	}

	// Summary
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d names\n", len(results))
	fmt.Fprintf(os.Stderr, "  Found:      %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Not found:  %d\n", notFoundCount)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	if failureCount > 0 {
		return fmt.Errorf("%d of %d searches failed", failureCount, len(results))
	}
	return nil
}
