package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jackedney/bio-explorer/internal/search"
)

// Searcher runs one species search
type Searcher interface {
	Search(ctx context.Context, name string, maxPoints int) (*search.Result, error)
}

// SearchJob searches for a single species name
type SearchJob struct {
	Index    int
	Name     string
	Cap      int
	Searcher Searcher
}

// Execute executes the search job
func (j *SearchJob) Execute(ctx context.Context) Result {
	result, err := j.Searcher.Search(ctx, j.Name, j.Cap)
	if err != nil {
		return &SearchResult{
			Index: j.Index,
			Name:  j.Name,
			Error: err,
		}
	}
	return &SearchResult{
		Index:  j.Index,
		Name:   j.Name,
		Result: result,
	}
}

// SearchResult is the outcome of one batch entry
type SearchResult struct {
	Index  int
	Name   string
	Result *search.Result
	Error  error
}

// GetError returns the error from the search result
func (r *SearchResult) GetError() error {
	return r.Error
}

// BatchProcessor searches many species names concurrently. Each search is
// independent; one failure does not affect the others.
type BatchProcessor struct {
	searcher    Searcher
	concurrency int
	cap         int
}

// NewBatchProcessor creates a new batch processor. maxPoints <= 0 uses the searcher's default cap.
func NewBatchProcessor(searcher Searcher, concurrency, maxPoints int) *BatchProcessor {
	return &BatchProcessor{
		searcher:    searcher,
		concurrency: concurrency,
		cap:         maxPoints,
	}
}

// ProcessNames searches every name and returns results in input order
func (b *BatchProcessor) ProcessNames(ctx context.Context, names []string) []*SearchResult {
	if len(names) == 0 {
		return []*SearchResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for i, name := range names {
		pool.Submit(&SearchJob{
			Index:    i,
			Name:     name,
			Cap:      b.cap,
			Searcher: b.searcher,
		})
	}

	results := pool.Wait()

	searchResults := make([]*SearchResult, len(names))
	for _, result := range results {
		r := result.(*SearchResult)
		searchResults[r.Index] = r
	}

	// Jobs never picked up before cancellation still get an entry
	for i, r := range searchResults {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = context.Canceled
			}
			searchResults[i] = &SearchResult{Index: i, Name: names[i], Error: fmt.Errorf("not searched: %w", err)}
		}
	}

	return searchResults
}

// ProcessFile reads species names from a file and searches them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*SearchResult, error) {
	names, err := ReadNamesFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read names: %w", err)
	}

	return b.ProcessNames(ctx, names), nil
}

// ReadNamesFromFile reads species names from a file (one per line).
// Blank lines and # comments are skipped; repeated names are searched once.
func ReadNamesFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var names []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key := strings.ToLower(line)
		if !seen[key] {
			seen[key] = true
			names = append(names, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return names, nil
}
