// internal/resolver/resolver.go
package resolver

import (
	"go.uber.org/zap"

	"mcp-plan-generator/internal/models"
)

// Resolver maps free-text exercise names onto catalog ids.
type Resolver struct {
	tiers  []Matcher
	logger *zap.Logger
}

func New(logger *zap.Logger, tiers ...Matcher) *Resolver {
	if len(tiers) == 0 {
		tiers = DefaultTiers
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{tiers: tiers, logger: logger}
}

// Resolve runs the tiers for a single name and reports which tier matched.
func (r *Resolver) Resolve(name string, catalog []models.CatalogExercise) (models.CatalogExercise, string, bool) {
	for _, m := range r.tiers {
		if hit, ok := m.Match(name, catalog); ok {
			return hit, m.Tier, true
		}
	}
	return models.CatalogExercise{}, "", false
}

// ResolveAll resolves every name or fails with a single
// *models.ExerciseResolutionFailedError naming all misses. A partial map is
// never returned.
func (r *Resolver) ResolveAll(names []string, catalog []models.CatalogExercise) (map[string]string, error) {
	ids := make(map[string]string, len(names))
	var unresolved []string

	for _, name := range names {
		if _, done := ids[name]; done {
			continue
		}
		hit, tier, ok := r.Resolve(name, catalog)
		if !ok {
			unresolved = append(unresolved, name)
			continue
		}
		if tier != "exact" {
			r.logger.Debug("resolved exercise name",
				zap.String("name", name),
				zap.String("catalog_name", hit.Name),
				zap.String("tier", tier))
		}
		ids[name] = hit.ID
	}

	if len(unresolved) > 0 {
		return nil, &models.ExerciseResolutionFailedError{
			Unresolved: unresolved,
			Catalog:    models.CatalogNames(catalog),
		}
	}
	return ids, nil
}
