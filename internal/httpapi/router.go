// Package httpapi is the thin HTTP layer over species search. It translates the
// upstream error taxonomy into status codes and nothing more.
package httpapi

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"

	"github.com/jackedney/bio-explorer/internal/metrics"
	"github.com/jackedney/bio-explorer/internal/model"
	"github.com/jackedney/bio-explorer/internal/ratelimit"
	"github.com/jackedney/bio-explorer/internal/search"
)

// CandidateFinder lists the taxa a name may refer to
type CandidateFinder interface {
	Candidates(ctx context.Context, name string) ([]model.Candidate, error)
}

// Searcher runs the combined resolve and fetch
type Searcher interface {
	Search(ctx context.Context, name string, maxPoints int) (*search.Result, error)
}

// Dependencies holds everything the handlers need
type Dependencies struct {
	Candidates CandidateFinder
	Sampler    search.Sampler
	Searcher   Searcher

	// ClientLimiter throttles requests per client IP; nil disables it
	ClientLimiter *ratelimit.Limiter

	// MaxCap bounds the cap query parameter and is the default when it is absent
	MaxCap         int
	RequestTimeout time.Duration
	Version        string
}

// NewApp creates a fiber app with all routes registered
func NewApp(deps *Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "bio-explorer",
		DisableStartupMessage: true,
		ErrorHandler:          ErrorHandler,
	})
	app.Use(recover.New())
	SetupRoutes(app, deps)
	return app
}

// SetupRoutes registers the API, health and metrics routes
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	if deps.MaxCap <= 0 {
		deps.MaxCap = model.DefaultCap
	}
	if deps.RequestTimeout <= 0 {
		deps.RequestTimeout = 2 * time.Minute
	}

	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	app.Get("/health", HealthHandler(deps))

	api := app.Group("/api")
	if deps.ClientLimiter != nil {
		api.Use(ClientRateLimitMiddleware(deps.ClientLimiter))
	}

	// Pagination against upstream can be slow; the timeout bounds the whole search
	api.Get("/species/search", timeout.NewWithContext(SpeciesSearchHandler(deps), deps.RequestTimeout))
	api.Get("/occurrences", timeout.NewWithContext(OccurrencesHandler(deps), deps.RequestTimeout))
	api.Get("/search", timeout.NewWithContext(SearchHandler(deps), deps.RequestTimeout))
}
