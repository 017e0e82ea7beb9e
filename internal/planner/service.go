// internal/planner/service.go
package planner

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"mcp-plan-generator/internal/models"
	"mcp-plan-generator/internal/parser"
	"mcp-plan-generator/internal/resolver"
	"mcp-plan-generator/internal/sampling"
)

// Completer returns raw model output for a prompt.
type Completer interface {
	Complete(ctx context.Context, req sampling.CompletionRequest) (string, error)
}

// Store is the persistence the pipeline needs.
type Store interface {
	ListExercises(ctx context.Context) ([]models.CatalogExercise, error)
	SaveTrainingPlan(ctx context.Context, userID string, plan *models.GeneratedTrainingPlan, exerciseIDs map[string]string) (string, error)
	SaveNutritionPlan(ctx context.Context, userID string, day time.Time, plan *models.GeneratedNutritionPlan) (string, error)
}

// Service turns completions into stored plans:
// extract, validate, resolve (training only), persist. Every stage fails fast
// with a typed error from models and nothing is written on failure.
type Service struct {
	completer Completer
	store     Store
	resolver  *resolver.Resolver
	logger    *zap.Logger
}

func NewService(completer Completer, store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		completer: completer,
		store:     store,
		resolver:  resolver.New(logger.Named("resolver")),
		logger:    logger,
	}
}

// GenerateTrainingPlan asks the model for a plan and stores it as the user's
// new active plan.
func (s *Service) GenerateTrainingPlan(ctx context.Context, userID, userContext string) (string, error) {
	catalog, err := s.store.ListExercises(ctx)
	if err != nil {
		return "", err
	}

	text, err := s.completer.Complete(ctx, sampling.CompletionRequest{
		System: trainingSystemPrompt,
		Prompt: trainingPrompt(userContext, catalog),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get AI completion: %w", err)
	}
	return s.ingestTraining(ctx, userID, text, catalog)
}

// ImportTrainingPlan runs the pipeline on completion text produced elsewhere.
func (s *Service) ImportTrainingPlan(ctx context.Context, userID, raw string) (string, error) {
	catalog, err := s.store.ListExercises(ctx)
	if err != nil {
		return "", err
	}
	return s.ingestTraining(ctx, userID, raw, catalog)
}

// ingestTraining resolves against the catalog snapshot read for this request.
func (s *Service) ingestTraining(ctx context.Context, userID, text string, catalog []models.CatalogExercise) (string, error) {
	candidate, err := parser.ExtractJSON(text)
	if err != nil {
		return "", s.stageFailed("extract", userID, err)
	}

	plan, err := parser.ParseTrainingPlan(candidate)
	if err != nil {
		return "", s.stageFailed("validate", userID, err)
	}

	ids, err := s.resolver.ResolveAll(plan.ExerciseNames(), catalog)
	if err != nil {
		return "", s.stageFailed("resolve", userID, err)
	}

	planID, err := s.store.SaveTrainingPlan(ctx, userID, plan, ids)
	if err != nil {
		return "", s.stageFailed("persist", userID, err)
	}
	return planID, nil
}

// GenerateNutritionPlan asks the model for the plan of day and replaces any
// plan the user already has for that day.
func (s *Service) GenerateNutritionPlan(ctx context.Context, userID, userContext string, day time.Time) (string, error) {
	text, err := s.completer.Complete(ctx, sampling.CompletionRequest{
		System: nutritionSystemPrompt,
		Prompt: nutritionPrompt(userContext, day),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get AI completion: %w", err)
	}
	return s.ImportNutritionPlan(ctx, userID, day, text)
}

// ImportNutritionPlan runs the nutrition pipeline on completion text produced
// elsewhere.
func (s *Service) ImportNutritionPlan(ctx context.Context, userID string, day time.Time, raw string) (string, error) {
	candidate, err := parser.ExtractJSON(raw)
	if err != nil {
		return "", s.stageFailed("extract", userID, err)
	}

	plan, err := parser.ParseNutritionPlan(candidate)
	if err != nil {
		return "", s.stageFailed("validate", userID, err)
	}

	planID, err := s.store.SaveNutritionPlan(ctx, userID, day, plan)
	if err != nil {
		return "", s.stageFailed("persist", userID, err)
	}
	return planID, nil
}

func (s *Service) stageFailed(stage, userID string, err error) error {
	s.logger.Debug("pipeline stage failed",
		zap.String("stage", stage),
		zap.String("user_id", userID),
		zap.String("kind", string(models.KindOf(err))),
		zap.Error(err))
	return err
}
