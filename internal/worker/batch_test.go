package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackedney/bio-explorer/internal/model"
	"github.com/jackedney/bio-explorer/internal/search"
)

// MockSearcher implements Searcher
type MockSearcher struct {
	FailNames map[string]bool

	mu   sync.Mutex
	caps []int
}

func (m *MockSearcher) Search(ctx context.Context, name string, maxPoints int) (*search.Result, error) {
	m.mu.Lock()
	m.caps = append(m.caps, maxPoints)
	m.mu.Unlock()

	time.Sleep(10 * time.Millisecond) // Simulate work
	if m.FailNames[name] {
		return nil, errors.New("search error")
	}
	match := model.SpeciesMatch{TaxonKey: model.TaxonKey(len(name)), MatchType: model.MatchExact}
	return &search.Result{
		Query:            name,
		Found:            true,
		Match:            &match,
		OccurrenceResult: model.NewOccurrenceResult([]model.CoordinatePoint{{Lat: 1, Lng: 1}}, 1),
	}, nil
}

func writeNamesFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "names.txt")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestBatchProcessor_ProcessNames(t *testing.T) {
	searcher := &MockSearcher{}
	processor := NewBatchProcessor(searcher, 2, 500)

	names := []string{"Puma concolor", "Vulpes vulpes", "Bubo bubo", "Lynx lynx", "Canis lupus"}
	results := processor.ProcessNames(context.Background(), names)

	if len(results) != len(names) {
		t.Fatalf("expected %d results, got %d", len(names), len(results))
	}

	for i, res := range results {
		if res.Name != names[i] {
			t.Errorf("expected results in input order: index %d is %q, want %q", i, res.Name, names[i])
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Name, res.Error)
		}
		if res.Result == nil || res.Result.Query != names[i] {
			t.Errorf("expected result for %s", names[i])
		}
	}

	for _, c := range searcher.caps {
		if c != 500 {
			t.Errorf("expected cap 500 to be forwarded, got %d", c)
		}
	}
}

func TestBatchProcessor_FailuresAreIsolated(t *testing.T) {
	searcher := &MockSearcher{FailNames: map[string]bool{"Bubo bubo": true}}
	processor := NewBatchProcessor(searcher, 3, 0)

	results := processor.ProcessNames(context.Background(), []string{"Puma concolor", "Bubo bubo", "Lynx lynx"})

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Error == nil {
		t.Error("expected error for Bubo bubo")
	}
	if results[1].Result != nil {
		t.Error("expected nil result on error")
	}
	if results[0].Error != nil || results[2].Error != nil {
		t.Error("one failed search must not fail the others")
	}
}

func TestBatchProcessor_ProcessNames_Empty(t *testing.T) {
	processor := NewBatchProcessor(&MockSearcher{}, 2, 0)

	results := processor.ProcessNames(context.Background(), []string{})
	if len(results) != 0 {
		t.Errorf("expected 0 results, got %d", len(results))
	}
}

func TestBatchProcessor_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	processor := NewBatchProcessor(&MockSearcher{}, 1, 0)
	names := []string{"a", "b", "c", "d"}
	results := processor.ProcessNames(ctx, names)

	if len(results) != len(names) {
		t.Fatalf("expected an entry per name, got %d", len(results))
	}
	for i, res := range results {
		if res == nil || res.Name != names[i] {
			t.Fatalf("missing entry for %s", names[i])
		}
	}
}

func TestReadNamesFromFile(t *testing.T) {
	path := writeNamesFile(t, `Puma concolor
# comment
  Vulpes   vulpes
   
puma concolor
Bubo bubo   `)

	names, err := ReadNamesFromFile(path)
	if err != nil {
		t.Fatalf("ReadNamesFromFile failed: %v", err)
	}

	expected := []string{"Puma concolor", "Vulpes vulpes", "Bubo bubo"}
	if len(names) != len(expected) {
		t.Fatalf("expected %d names, got %v", len(expected), names)
	}
	for i, name := range names {
		if name != expected[i] {
			t.Errorf("expected %q at index %d, got %q", expected[i], i, name)
		}
	}
}

func TestReadNamesFromFile_NonExistent(t *testing.T) {
	_, err := ReadNamesFromFile("non_existent_file.txt")
	if err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestSearchResult_GetError(t *testing.T) {
	r1 := &SearchResult{Name: "Puma concolor"}
	if r1.GetError() != nil {
		t.Errorf("expected nil error, got %v", r1.GetError())
	}

	expected := errors.New("search failed")
	r2 := &SearchResult{Name: "Puma concolor", Error: expected}
	if r2.GetError() != expected {
		t.Errorf("expected %v, got %v", expected, r2.GetError())
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := writeNamesFile(t, "Puma concolor\nVulpes vulpes\n# comment\n\nBubo bubo\n")

	processor := NewBatchProcessor(&MockSearcher{}, 2, 0)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Errorf("expected 3 results, got %d", len(results))
	}
}

func TestBatchProcessor_ProcessFile_NonExistent(t *testing.T) {
	processor := NewBatchProcessor(&MockSearcher{}, 2, 0)

	_, err := processor.ProcessFile(context.Background(), "no_such_file.txt")
	if err == nil || !strings.Contains(err.Error(), "read names") {
		t.Errorf("expected read names error, got %v", err)
	}
}

func TestBatchProcessor_ProcessFile_Empty(t *testing.T) {
	path := writeNamesFile(t, "")

	processor := NewBatchProcessor(&MockSearcher{}, 2, 0)

	results, err := processor.ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 results for empty file, got %d", len(results))
	}
}
