// internal/server/tools.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"

	"mcp-plan-generator/internal/models"
)

type toolHandler func(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error)

type GenerateTrainingPlanParams struct {
	UserID  string `json:"user_id" description:"Owner of the plan"`
	Context string `json:"context,omitempty" description:"Goals, schedule, equipment and limitations of the athlete"`
}

type GenerateNutritionPlanParams struct {
	UserID  string `json:"user_id" description:"Owner of the plan"`
	Context string `json:"context,omitempty" description:"Goals, training schedule and food preferences"`
	Date    string `json:"date,omitempty" description:"Day of the plan (YYYY-MM-DD, defaults to today)"`
}

type ImportTrainingPlanParams struct {
	UserID     string `json:"user_id" description:"Owner of the plan"`
	Completion string `json:"completion" description:"Raw model output containing the plan JSON"`
}

type ImportNutritionPlanParams struct {
	UserID     string `json:"user_id" description:"Owner of the plan"`
	Date       string `json:"date,omitempty" description:"Day of the plan (YYYY-MM-DD, defaults to today)"`
	Completion string `json:"completion" description:"Raw model output containing the plan JSON"`
}

type UserParams struct {
	UserID string `json:"user_id" description:"Owner of the plans"`
}

type NutritionPlanParams struct {
	UserID string `json:"user_id" description:"Owner of the plan"`
	Date   string `json:"date,omitempty" description:"Day of the plan (YYYY-MM-DD, defaults to today)"`
}

// paramError marks bad tool arguments.
type paramError struct {
	msg string
}

func (e *paramError) Error() string { return e.msg }

func invalidParams(format string, args ...interface{}) error {
	return &paramError{msg: fmt.Sprintf(format, args...)}
}

// extractParams converts the request arguments into target.
func extractParams(req *protocol.CallToolRequest, target interface{}) error {
	jsonBytes, err := json.Marshal(req.Arguments)
	if err != nil {
		return invalidParams("failed to marshal arguments: %v", err)
	}
	if err := json.Unmarshal(jsonBytes, target); err != nil {
		return invalidParams("failed to unmarshal parameters: %v", err)
	}
	return nil
}

func requireUser(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", invalidParams("user_id is required")
	}
	return userID, nil
}

// parseDay reads a YYYY-MM-DD day; empty means today in UTC.
func (s *PlanServer) parseDay(date string) (time.Time, error) {
	if date == "" {
		now := s.now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	day, err := time.Parse(models.DayLayout, date)
	if err != nil {
		return time.Time{}, invalidParams("invalid date %q: want YYYY-MM-DD", date)
	}
	return day, nil
}

func (s *PlanServer) handleGenerateTrainingPlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GenerateTrainingPlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}

	planID, err := s.planner.GenerateTrainingPlan(ctx, userID, params.Context)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]string{"plan_id": planID})
}

func (s *PlanServer) handleImportTrainingPlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ImportTrainingPlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}
	if params.Completion == "" {
		return nil, invalidParams("completion is required")
	}

	planID, err := s.planner.ImportTrainingPlan(ctx, userID, params.Completion)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]string{"plan_id": planID})
}

func (s *PlanServer) handleGenerateNutritionPlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params GenerateNutritionPlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}
	day, err := s.parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	planID, err := s.planner.GenerateNutritionPlan(ctx, userID, params.Context, day)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]string{
		"plan_id": planID,
		"date":    day.Format(models.DayLayout),
	})
}

func (s *PlanServer) handleImportNutritionPlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params ImportNutritionPlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}
	day, err := s.parseDay(params.Date)
	if err != nil {
		return nil, err
	}
	if params.Completion == "" {
		return nil, invalidParams("completion is required")
	}

	planID, err := s.planner.ImportNutritionPlan(ctx, userID, day, params.Completion)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]string{
		"plan_id": planID,
		"date":    day.Format(models.DayLayout),
	})
}

func (s *PlanServer) handleGetActiveTrainingPlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UserParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}

	plan, err := s.reader.ActiveTrainingPlan(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]interface{}{"plan": plan})
}

func (s *PlanServer) handleListTrainingPlans(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params UserParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}

	plans, err := s.reader.TrainingPlans(ctx, userID)
	if err != nil {
		return nil, err
	}
	if plans == nil {
		plans = []models.TrainingPlan{}
	}
	return s.createJSONResponse(map[string]interface{}{"plans": plans})
}

func (s *PlanServer) handleGetNutritionPlan(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	var params NutritionPlanParams
	if err := extractParams(req, &params); err != nil {
		return nil, err
	}
	userID, err := requireUser(params.UserID)
	if err != nil {
		return nil, err
	}
	day, err := s.parseDay(params.Date)
	if err != nil {
		return nil, err
	}

	plan, err := s.reader.NutritionPlanFor(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	return s.createJSONResponse(map[string]interface{}{"plan": plan})
}

func (s *PlanServer) handleListExercises(ctx context.Context, req *protocol.CallToolRequest) (*protocol.CallToolResult, error) {
	catalog, err := s.reader.ListExercises(ctx)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		catalog = []models.CatalogExercise{}
	}
	return s.createJSONResponse(map[string]interface{}{"exercises": catalog})
}

func (s *PlanServer) registerTools() map[string]toolHandler {
	return map[string]toolHandler{
		"generate_training_plan":   s.handleGenerateTrainingPlan,
		"import_training_plan":     s.handleImportTrainingPlan,
		"generate_nutrition_plan":  s.handleGenerateNutritionPlan,
		"import_nutrition_plan":    s.handleImportNutritionPlan,
		"get_active_training_plan": s.handleGetActiveTrainingPlan,
		"list_training_plans":      s.handleListTrainingPlans,
		"get_nutrition_plan":       s.handleGetNutritionPlan,
		"list_exercises":           s.handleListExercises,
	}
}

func toolNames(tools map[string]toolHandler) []string {
	names := make([]string, 0, len(tools))
	for name := range tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
