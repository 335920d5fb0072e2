package gbif

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/jackedney/bio-explorer/internal/metrics"
	"github.com/jackedney/bio-explorer/internal/model"
)

const occurrenceSearchEndpoint = "/occurrence/search"

// occurrenceRecord keeps only what coordinate validation needs; every other
// upstream field is dropped at decode time.
type occurrenceRecord struct {
	DecimalLatitude     *float64 `json:"decimalLatitude"`
	DecimalLongitude    *float64 `json:"decimalLongitude"`
	HasCoordinate       *bool    `json:"hasCoordinate"`
	HasGeospatialIssues *bool    `json:"hasGeospatialIssues"`
}

type occurrencePage struct {
	Offset       int                `json:"offset"`
	Limit        int                `json:"limit"`
	EndOfRecords *bool              `json:"endOfRecords"`
	Count        int64              `json:"count"`
	Results      []occurrenceRecord `json:"results"`
}

// endOfData is true only when upstream explicitly says so
func (p occurrencePage) endOfData() bool {
	return p.EndOfRecords != nil && *p.EndOfRecords
}

// pointFromRecord applies coordinate validation independently of the upstream pre-filter
func pointFromRecord(rec occurrenceRecord) (model.CoordinatePoint, bool) {
	if rec.DecimalLatitude == nil || rec.DecimalLongitude == nil {
		return model.CoordinatePoint{}, false
	}
	if rec.HasCoordinate != nil && !*rec.HasCoordinate {
		return model.CoordinatePoint{}, false
	}
	if rec.HasGeospatialIssues != nil && *rec.HasGeospatialIssues {
		return model.CoordinatePoint{}, false
	}

	p := model.CoordinatePoint{Lat: *rec.DecimalLatitude, Lng: *rec.DecimalLongitude}
	if !p.Valid() {
		return model.CoordinatePoint{}, false
	}
	return p, true
}

// Sampler paginates occurrence search for a taxon and samples the valid points
type Sampler struct {
	client        *Client
	pageSize      int
	offsetCeiling int
	seed          uint64
	logger        *slog.Logger
}

// NewSampler creates a sampler. seed 0 draws a fresh random seed per Fetch.
func NewSampler(client *Client, upstream model.UpstreamConfig, seed uint64) *Sampler {
	pageSize := upstream.PageSize
	if pageSize <= 0 || pageSize > model.MaxPageSize {
		pageSize = model.MaxPageSize
	}
	ceiling := upstream.OffsetCeiling
	if ceiling <= 0 || ceiling > model.OffsetCeiling {
		ceiling = model.OffsetCeiling
	}

	return &Sampler{
		client:        client,
		pageSize:      pageSize,
		offsetCeiling: ceiling,
		seed:          seed,
		logger:        client.logger,
	}
}

// Fetch collects valid points for key until maxPoints points have been seen, upstream
// reports end of data, or the offset ceiling is reached, then returns a uniform
// sample of at most maxPoints points. Any page failure fails the whole fetch.
func (s *Sampler) Fetch(ctx context.Context, key model.TaxonKey, maxPoints int) (model.OccurrenceResult, error) {
	if maxPoints <= 0 {
		return model.OccurrenceResult{}, fmt.Errorf("%w: cap must be positive, got %d", ErrInvalidInput, maxPoints)
	}
	if key < 0 {
		return model.OccurrenceResult{}, fmt.Errorf("%w: taxon key must be non-negative, got %d", ErrInvalidInput, key)
	}

	reservoir := NewReservoir(maxPoints, newRand(s.seed))
	var (
		total    int64
		pages    int
		rejected int
	)

	for offset := 0; offset < s.offsetCeiling; offset += s.pageSize {
		limit := min(s.pageSize, s.offsetCeiling-offset)

		page, err := s.fetchPage(ctx, key, offset, limit)
		if err != nil {
			return model.OccurrenceResult{}, fmt.Errorf("taxon %d offset %d: %w", key, offset, err)
		}
		pages++
		metrics.PagesFetched.Inc()

		if pages == 1 {
			total = page.Count
		}

		for _, rec := range page.Results {
			p, ok := pointFromRecord(rec)
			if !ok {
				rejected++
				continue
			}
			reservoir.Add(p)
		}

		s.logger.Debug("fetched occurrence page",
			"taxon_key", key, "offset", offset, "records", len(page.Results),
			"accumulated", reservoir.Seen(), "end_of_records", page.endOfData())

		if reservoir.Seen() >= maxPoints || page.endOfData() {
			break
		}
		// Upstream reported no matches, or the next offset is past everything it has
		if total == 0 || int64(offset+limit) >= total {
			break
		}
	}

	metrics.RecordsRejected.Add(float64(rejected))
	result := model.NewOccurrenceResult(reservoir.Points(), total)
	metrics.PointsReturned.Observe(float64(result.Returned))

	s.logger.Info("fetched occurrences",
		"taxon_key", key, "pages", pages, "accumulated", reservoir.Seen(),
		"rejected", rejected, "returned", result.Returned, "total", total)

	return result, nil
}

func (s *Sampler) fetchPage(ctx context.Context, key model.TaxonKey, offset, limit int) (occurrencePage, error) {
	params := url.Values{}
	params.Set("taxonKey", strconv.FormatInt(int64(key), 10))
	params.Set("hasCoordinate", "true")
	params.Set("hasGeospatialIssue", "false")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("offset", strconv.Itoa(offset))

	var page occurrencePage
	if err := s.client.getJSON(ctx, occurrenceSearchEndpoint, params, &page); err != nil {
		return occurrencePage{}, err
	}
	return page, nil
}
