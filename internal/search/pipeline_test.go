package search

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/jackedney/bio-explorer/internal/gbif"
	"github.com/jackedney/bio-explorer/internal/model"
)

type mockResolver struct {
	match model.SpeciesMatch
	err   error
	names []string
}

func (m *mockResolver) Resolve(ctx context.Context, name string) (model.SpeciesMatch, error) {
	m.names = append(m.names, name)
	return m.match, m.err
}

type mockSampler struct {
	result model.OccurrenceResult
	err    error
	keys   []model.TaxonKey
	caps   []int
}

func (m *mockSampler) Fetch(ctx context.Context, key model.TaxonKey, maxPoints int) (model.OccurrenceResult, error) {
	m.keys = append(m.keys, key)
	m.caps = append(m.caps, maxPoints)
	return m.result, m.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSearch_Found(t *testing.T) {
	resolver := &mockResolver{match: model.SpeciesMatch{TaxonKey: 2435099, Confidence: 97, MatchType: model.MatchExact}}
	sampler := &mockSampler{result: model.NewOccurrenceResult(
		[]model.CoordinatePoint{{Lat: 1, Lng: 2}, {Lat: 3, Lng: 4}}, 847231)}
	p := NewPipeline(resolver, sampler, 0, quietLogger())

	result, err := p.Search(context.Background(), "  Puma concolor ", 0)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if len(resolver.names) != 1 || resolver.names[0] != "Puma concolor" {
		t.Errorf("Expected trimmed name to be resolved once, got %v", resolver.names)
	}
	if len(sampler.keys) != 1 || sampler.keys[0] != 2435099 {
		t.Errorf("Expected fetch for resolved key, got %v", sampler.keys)
	}
	if sampler.caps[0] != model.DefaultCap {
		t.Errorf("Expected default cap %d, got %d", model.DefaultCap, sampler.caps[0])
	}
	if !result.Found || result.Match == nil || result.Match.TaxonKey != 2435099 {
		t.Errorf("Unexpected match: %+v", result)
	}
	if result.Total != 847231 || result.Returned != 2 {
		t.Errorf("Unexpected counts: total=%d returned=%d", result.Total, result.Returned)
	}
}

func TestSearch_NotFoundSkipsFetch(t *testing.T) {
	resolver := &mockResolver{match: model.NotFound()}
	sampler := &mockSampler{}
	p := NewPipeline(resolver, sampler, 100, quietLogger())

	result, err := p.Search(context.Background(), "zzznotaspecies", 0)
	if err != nil {
		t.Fatalf("NotFound must not be an error, got %v", err)
	}
	if result.Found {
		t.Error("Expected Found=false")
	}
	if len(sampler.keys) != 0 {
		t.Error("Sampler must not be called when nothing matched")
	}
	if result.Points == nil || result.Returned != 0 || result.Total != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
}

func TestSearch_EmptyName(t *testing.T) {
	resolver := &mockResolver{}
	p := NewPipeline(resolver, &mockSampler{}, 0, quietLogger())

	for _, name := range []string{"", "   ", "\t\n"} {
		_, err := p.Search(context.Background(), name, 0)
		if !errors.Is(err, gbif.ErrInvalidInput) {
			t.Errorf("name %q: expected ErrInvalidInput, got %v", name, err)
		}
	}
	if len(resolver.names) != 0 {
		t.Error("Resolver must not be called for empty input")
	}
}

func TestSearch_ExplicitCap(t *testing.T) {
	resolver := &mockResolver{match: model.SpeciesMatch{TaxonKey: 5, MatchType: model.MatchFuzzy}}
	sampler := &mockSampler{result: model.NewOccurrenceResult(nil, 0)}
	p := NewPipeline(resolver, sampler, 0, quietLogger())

	if _, err := p.Search(context.Background(), "x", 250); err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if sampler.caps[0] != 250 {
		t.Errorf("Expected cap 250, got %d", sampler.caps[0])
	}
}

func TestSearch_PropagatesErrors(t *testing.T) {
	t.Run("resolve", func(t *testing.T) {
		resolver := &mockResolver{err: gbif.ErrUpstreamUnreachable}
		p := NewPipeline(resolver, &mockSampler{}, 0, quietLogger())

		_, err := p.Search(context.Background(), "puma", 0)
		if !errors.Is(err, gbif.ErrUpstreamUnreachable) {
			t.Errorf("Expected ErrUpstreamUnreachable, got %v", err)
		}
	})

	t.Run("fetch", func(t *testing.T) {
		resolver := &mockResolver{match: model.SpeciesMatch{TaxonKey: 5, MatchType: model.MatchExact}}
		sampler := &mockSampler{err: gbif.ErrUpstreamError}
		p := NewPipeline(resolver, sampler, 0, quietLogger())

		result, err := p.Search(context.Background(), "puma", 0)
		if !errors.Is(err, gbif.ErrUpstreamError) {
			t.Errorf("Expected ErrUpstreamError, got %v", err)
		}
		if result != nil {
			t.Error("No result may accompany a failed fetch")
		}
	})
}

func TestResult_JSONShape(t *testing.T) {
	result := &Result{
		Query:            "puma",
		Found:            true,
		Match:            &model.SpeciesMatch{TaxonKey: 1, MatchType: model.MatchExact},
		OccurrenceResult: model.NewOccurrenceResult([]model.CoordinatePoint{{Lat: 10.5, Lng: -20.25}}, 7),
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	s := string(data)
	for _, want := range []string{`"points":[[10.5,-20.25]]`, `"total":7`, `"returned":1`, `"found":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("Expected %s in %s", want, s)
		}
	}

	notFound, _ := json.Marshal(&Result{Query: "x", OccurrenceResult: model.NewOccurrenceResult(nil, 0)})
	if strings.Contains(string(notFound), `"match"`) {
		t.Errorf("NotFound result must omit match: %s", notFound)
	}
	if !strings.Contains(string(notFound), `"points":[]`) {
		t.Errorf("NotFound result must carry empty points: %s", notFound)
	}
}
