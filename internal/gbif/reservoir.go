package gbif

import (
	"math/rand/v2"

	"github.com/jackedney/bio-explorer/internal/model"
)

// Reservoir keeps a uniform random sample of at most capacity points from a
// stream of unknown length (Algorithm R). While no more than capacity points
// have been added it holds all of them in arrival order.
type Reservoir struct {
	capacity int
	seen     int
	points   []model.CoordinatePoint
	rng      *rand.Rand
}

// NewReservoir creates a reservoir drawing from rng
func NewReservoir(capacity int, rng *rand.Rand) *Reservoir {
	return &Reservoir{
		capacity: capacity,
		points:   make([]model.CoordinatePoint, 0, min(capacity, 4096)),
		rng:      rng,
	}
}

// Add offers p to the sample
func (r *Reservoir) Add(p model.CoordinatePoint) {
	r.seen++
	if len(r.points) < r.capacity {
		r.points = append(r.points, p)
		return
	}
	if j := r.rng.IntN(r.seen); j < r.capacity {
		r.points[j] = p
	}
}

// Seen is the number of points offered so far
func (r *Reservoir) Seen() int {
	return r.seen
}

// Points returns the current sample
func (r *Reservoir) Points() []model.CoordinatePoint {
	return r.points
}

// newRand returns a generator seeded with seed, or freshly seeded when seed is 0
func newRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
