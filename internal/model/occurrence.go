package model

import (
	"encoding/json"
	"fmt"
)

// DefaultCap is the maximum number of points returned for a single search
const DefaultCap = 10_000

// TaxonKey is the stable numeric identifier of a taxon in the backbone taxonomy
type TaxonKey int64

// MatchType mirrors the upstream name-match classification
type MatchType string

const (
	MatchExact      MatchType = "EXACT"
	MatchFuzzy      MatchType = "FUZZY"
	MatchHigherRank MatchType = "HIGHERRANK"
	MatchNone       MatchType = "NONE"
)

// Candidate is one taxon offered by the name-match endpoint
type Candidate struct {
	Key            TaxonKey `json:"key"`
	ScientificName string   `json:"scientificName"`
	CommonName     string   `json:"commonName"`
	Rank           string   `json:"rank"`
	Confidence     int      `json:"confidence"`
}

// SpeciesMatch is the outcome of resolving a free-text name.
// A zero MatchType or MatchNone means nothing matched.
type SpeciesMatch struct {
	TaxonKey       TaxonKey  `json:"taxonKey"`
	Confidence     int       `json:"confidence"`
	MatchType      MatchType `json:"matchType"`
	ScientificName string    `json:"scientificName,omitempty"`
	CommonName     string    `json:"commonName,omitempty"`
	Rank           string    `json:"rank,omitempty"`
}

// NotFound returns the match value used when nothing matched
func NotFound() SpeciesMatch {
	return SpeciesMatch{MatchType: MatchNone}
}

// Found reports whether the match carries a usable taxon key
func (m SpeciesMatch) Found() bool {
	return m.MatchType != "" && m.MatchType != MatchNone
}

// CoordinatePoint is a validated (latitude, longitude) pair.
// It encodes as a two-element JSON array in latitude, longitude order.
type CoordinatePoint struct {
	Lat float64
	Lng float64
}

// MarshalJSON encodes the point as [lat, lng]
func (p CoordinatePoint) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Lat, p.Lng})
}

// UnmarshalJSON decodes a [lat, lng] pair
func (p *CoordinatePoint) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("coordinate pair must have 2 elements, got %d", len(pair))
	}
	p.Lat, p.Lng = pair[0], pair[1]
	return nil
}

// Valid reports whether both components lie within WGS 84 bounds
func (p CoordinatePoint) Valid() bool {
	return p.Lat >= -90 && p.Lat <= 90 && p.Lng >= -180 && p.Lng <= 180
}

// OccurrenceResult is the sampled set of points for a taxon.
// Total is the full upstream match count and may exceed Returned by any amount.
type OccurrenceResult struct {
	Points   []CoordinatePoint `json:"points"`
	Total    int64             `json:"total"`
	Returned int               `json:"returned"`
}

// NewOccurrenceResult assembles a result, keeping Returned in step with Points
func NewOccurrenceResult(points []CoordinatePoint, total int64) OccurrenceResult {
	if points == nil {
		points = []CoordinatePoint{}
	}
	return OccurrenceResult{
		Points:   points,
		Total:    total,
		Returned: len(points),
	}
}
