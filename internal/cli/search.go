package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackedney/bio-explorer/internal/gbif"
	"github.com/jackedney/bio-explorer/internal/model"
	"github.com/jackedney/bio-explorer/internal/search"
)

var bestOnly bool

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <species name>",
	Short: "Resolve a species name and sample its occurrence points",
	Long: `Search resolves a free-text species name against the GBIF backbone
taxonomy and fetches a capped, quality-filtered sample of occurrence
coordinates for the matched taxon.

Output is JSON: {"query", "found", "match", "points", "total", "returned"}.
Points are [latitude, longitude] pairs.

Example:
  bio-explorer search Puma concolor
  bio-explorer search "Vulpes vulpes" --cap 2000 --json fox.json
  bio-explorer search "Bubo bubo" --seed 42`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match <species name>",
	Short: "List the taxa a species name resolves to",
	Long: `Match queries the name-match service and prints the best match plus any
alternatives it offers. Use --best to print only the single resolved match.

Example:
  bio-explorer match puma
  bio-explorer match "Puma concolor" --best`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMatch,
}

// occurrencesCmd represents the occurrences command
var occurrencesCmd = &cobra.Command{
	Use:   "occurrences <taxon key>",
	Short: "Sample occurrence points for a taxon key",
	Long: `Occurrences paginates the occurrence search for an already-resolved taxon
key and prints a capped sample of its coordinates.

Example:
  bio-explorer occurrences 2435099
  bio-explorer occurrences 2435099 --cap 500 --json puma.json`,
	Args: cobra.ExactArgs(1),
	RunE: runOccurrences,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(occurrencesCmd)

	for _, cmd := range []*cobra.Command{searchCmd, matchCmd, occurrencesCmd} {
		cmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (default: stdout)")
		cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall timeout (pagination against the upstream can be slow)")
		addUpstreamFlags(cmd)
	}
	addSamplingFlags(searchCmd)
	addSamplingFlags(occurrencesCmd)

	matchCmd.Flags().BoolVar(&bestOnly, "best", false, "print only the best match")
}

func runSearch(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	if verbose {
		fmt.Fprintf(os.Stderr, "Searching: %s\n", name)
		fmt.Fprintf(os.Stderr, "Cap:       %d\n", cfg.Sampling.Cap)
		fmt.Fprintf(os.Stderr, "Timeout:   %v\n", timeout)
		fmt.Fprintln(os.Stderr)
	}

	p := search.New(cfg, client, slog.Default())
	result, err := p.Search(ctx, name, cfg.Sampling.Cap)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if !result.Found {
		fmt.Fprintf(os.Stderr, "No species found for %q\n", name)
	} else if verbose {
		fmt.Fprintf(os.Stderr, "✓ Matched %s (key %d, %s, confidence %d)\n",
			result.Match.ScientificName, result.Match.TaxonKey, result.Match.MatchType, result.Match.Confidence)
		fmt.Fprintf(os.Stderr, "✓ Returned %d of %d occurrences\n", result.Returned, result.Total)
		fmt.Fprintln(os.Stderr)
	}

	return writeJSON(outJSON, result)
}

func runMatch(cmd *cobra.Command, args []string) error {
	name := strings.Join(args, " ")

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	resolver := gbif.NewResolver(client, cfg.Resolver.MinConfidence)

	if bestOnly {
		match, err := resolver.Resolve(ctx, name)
		if err != nil {
			return fmt.Errorf("match failed: %w", err)
		}
		if !match.Found() {
			fmt.Fprintf(os.Stderr, "No species found for %q\n", name)
		}
		return writeJSON(outJSON, match)
	}

	candidates, err := resolver.Candidates(ctx, name)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}
	if len(candidates) == 0 {
		fmt.Fprintf(os.Stderr, "No species found for %q\n", name)
	}

	return writeJSON(outJSON, map[string]any{"results": candidates})
}

func runOccurrences(cmd *cobra.Command, args []string) error {
	key, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || key < 0 {
		return fmt.Errorf("taxon key must be a non-negative integer, got %q", args[0])
	}

	cfg, err := commandConfig(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(timeout)
	defer cancel()

	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	sampler := gbif.NewSampler(client, cfg.Upstream, cfg.Sampling.Seed)
	result, err := sampler.Fetch(ctx, model.TaxonKey(key), cfg.Sampling.Cap)
	if err != nil {
		return fmt.Errorf("fetch occurrences: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Returned %d of %d occurrences\n", result.Returned, result.Total)
	}

	return writeJSON(outJSON, result)
}
