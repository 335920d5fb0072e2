package gbif

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackedney/bio-explorer/internal/model"
)

const speciesMatchEndpoint = "/species/match"

// matchResponse is the subset of /species/match the resolver reads
type matchResponse struct {
	UsageKey       *int64          `json:"usageKey"`
	ScientificName string          `json:"scientificName"`
	VernacularName string          `json:"vernacularName"`
	Rank           string          `json:"rank"`
	Confidence     int             `json:"confidence"`
	MatchType      model.MatchType `json:"matchType"`
	Alternatives   []matchResponse `json:"alternatives"`
}

func (m matchResponse) matched() bool {
	return m.UsageKey != nil && m.MatchType != "" && m.MatchType != model.MatchNone
}

func (m matchResponse) candidate() model.Candidate {
	return model.Candidate{
		Key:            model.TaxonKey(*m.UsageKey),
		ScientificName: m.ScientificName,
		CommonName:     m.VernacularName,
		Rank:           m.Rank,
		Confidence:     m.Confidence,
	}
}

// Resolver turns free-text species names into taxon keys
type Resolver struct {
	client        *Client
	minConfidence int
}

// NewResolver creates a resolver. minConfidence 0 treats every upstream match as authoritative.
func NewResolver(client *Client, minConfidence int) *Resolver {
	return &Resolver{
		client:        client,
		minConfidence: minConfidence,
	}
}

// Resolve returns the best match for name, or model.NotFound() when nothing matched.
// name must already be trimmed and non-empty.
func (r *Resolver) Resolve(ctx context.Context, name string) (model.SpeciesMatch, error) {
	resp, err := r.match(ctx, name)
	if err != nil {
		return model.SpeciesMatch{}, err
	}

	if !resp.matched() {
		return model.NotFound(), nil
	}
	if r.minConfidence > 0 && resp.Confidence < r.minConfidence {
		r.client.logger.Debug("match below confidence floor",
			"name", name, "confidence", resp.Confidence, "min", r.minConfidence)
		return model.NotFound(), nil
	}

	return model.SpeciesMatch{
		TaxonKey:       model.TaxonKey(*resp.UsageKey),
		Confidence:     resp.Confidence,
		MatchType:      resp.MatchType,
		ScientificName: resp.ScientificName,
		CommonName:     resp.VernacularName,
		Rank:           resp.Rank,
	}, nil
}

// Candidates lists the primary match followed by upstream alternatives.
// An empty slice means nothing matched.
func (r *Resolver) Candidates(ctx context.Context, name string) ([]model.Candidate, error) {
	resp, err := r.match(ctx, name)
	if err != nil {
		return nil, err
	}

	candidates := []model.Candidate{}
	if !resp.matched() {
		return candidates, nil
	}

	candidates = append(candidates, resp.candidate())
	for _, alt := range resp.Alternatives {
		if alt.UsageKey == nil {
			continue
		}
		candidates = append(candidates, alt.candidate())
	}

	return candidates, nil
}

func (r *Resolver) match(ctx context.Context, name string) (matchResponse, error) {
	if strings.TrimSpace(name) == "" {
		return matchResponse{}, fmt.Errorf("%w: species name is empty", ErrInvalidInput)
	}

	params := url.Values{}
	params.Set("name", name)
	params.Set("verbose", "true")

	var resp matchResponse
	if err := r.client.getJSON(ctx, speciesMatchEndpoint, params, &resp); err != nil {
		return matchResponse{}, fmt.Errorf("match %q: %w", name, err)
	}
	return resp, nil
}
