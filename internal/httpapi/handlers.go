package httpapi

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jackedney/bio-explorer/internal/model"
)

// SpeciesSearchHandler lists candidate taxa for ?q=
func SpeciesSearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q parameter required")
		}

		candidates, err := deps.Candidates.Candidates(c.UserContext(), q)
		if err != nil {
			return errFromSearch(c, err)
		}

		return c.JSON(fiber.Map{"results": candidates})
	}
}

// OccurrencesHandler samples occurrence points for ?taxon_key=
func OccurrencesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Query("taxon_key"))
		if raw == "" {
			return errBadRequest(c, "taxon_key parameter required")
		}
		key, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || key < 0 {
			return errBadRequest(c, "taxon_key must be an integer")
		}

		maxPoints, ok := parseCap(c, deps.MaxCap)
		if !ok {
			return errBadRequest(c, "cap must be a positive integer")
		}

		result, err := deps.Sampler.Fetch(c.UserContext(), model.TaxonKey(key), maxPoints)
		if err != nil {
			return errFromSearch(c, err)
		}

		return c.JSON(result)
	}
}

// SearchHandler resolves ?q= and samples occurrences of the match.
// No match is a 200 with found=false.
func SearchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q := strings.TrimSpace(c.Query("q"))
		if q == "" {
			return errBadRequest(c, "q parameter required")
		}

		maxPoints, ok := parseCap(c, deps.MaxCap)
		if !ok {
			return errBadRequest(c, "cap must be a positive integer")
		}

		result, err := deps.Searcher.Search(c.UserContext(), q, maxPoints)
		if err != nil {
			return errFromSearch(c, err)
		}

		return c.JSON(result)
	}
}

// parseCap reads ?cap=, defaulting to and never exceeding maxCap
func parseCap(c *fiber.Ctx, maxCap int) (int, bool) {
	raw := strings.TrimSpace(c.Query("cap"))
	if raw == "" {
		return maxCap, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return min(n, maxCap), true
}

// HealthHandler returns a basic liveness check
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": deps.Version,
		})
	}
}
