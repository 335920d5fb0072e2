// Package search wires name resolution and occurrence sampling into a single
// species search.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackedney/bio-explorer/internal/gbif"
	"github.com/jackedney/bio-explorer/internal/model"
)

// Resolver turns a species name into a taxon key
type Resolver interface {
	Resolve(ctx context.Context, name string) (model.SpeciesMatch, error)
}

// Sampler fetches a capped occurrence sample for a taxon
type Sampler interface {
	Fetch(ctx context.Context, key model.TaxonKey, maxPoints int) (model.OccurrenceResult, error)
}

// Result is the outcome of one species search. Match is nil when nothing matched.
type Result struct {
	Query string              `json:"query"`
	Found bool                `json:"found"`
	Match *model.SpeciesMatch `json:"match,omitempty"`
	model.OccurrenceResult
}

// Pipeline orchestrates resolve then fetch
type Pipeline struct {
	resolver Resolver
	sampler  Sampler
	cap      int
	logger   *slog.Logger
}

// NewPipeline creates a pipeline from its two stages. defaultCap applies when
// Search is called with a non-positive cap.
func NewPipeline(resolver Resolver, sampler Sampler, defaultCap int, logger *slog.Logger) *Pipeline {
	if defaultCap <= 0 {
		defaultCap = model.DefaultCap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver: resolver,
		sampler:  sampler,
		cap:      defaultCap,
		logger:   logger,
	}
}

// New builds the GBIF-backed pipeline on top of a shared client
func New(cfg *model.Config, client *gbif.Client, logger *slog.Logger) *Pipeline {
	return NewPipeline(
		gbif.NewResolver(client, cfg.Resolver.MinConfidence),
		gbif.NewSampler(client, cfg.Upstream, cfg.Sampling.Seed),
		cfg.Sampling.Cap,
		logger,
	)
}

// Search resolves name and, when it matched, samples occurrences of the resolved
// taxon. A name with no match yields Found=false and an empty point set.
func (p *Pipeline) Search(ctx context.Context, name string, maxPoints int) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: species name is required", gbif.ErrInvalidInput)
	}
	if maxPoints <= 0 {
		maxPoints = p.cap
	}

	// 1. Resolve the name once; the key is what gets queried from here on
	match, err := p.resolver.Resolve(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("resolve: %w", err)
	}

	if !match.Found() {
		p.logger.Info("no species found", "query", name)
		return &Result{
			Query:            name,
			Found:            false,
			OccurrenceResult: model.NewOccurrenceResult(nil, 0),
		}, nil
	}

	// 2. Sample occurrences for the resolved key
	occurrences, err := p.sampler.Fetch(ctx, match.TaxonKey, maxPoints)
	if err != nil {
		return nil, fmt.Errorf("fetch occurrences: %w", err)
	}

	p.logger.Info("search complete",
		"query", name, "taxon_key", match.TaxonKey, "match_type", match.MatchType,
		"returned", occurrences.Returned, "total", occurrences.Total)

	return &Result{
		Query:            name,
		Found:            true,
		Match:            &match,
		OccurrenceResult: occurrences,
	}, nil
}
