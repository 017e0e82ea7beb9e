package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"mcp-plan-generator/internal/models"
	"mcp-plan-generator/internal/sampling"
	"mcp-plan-generator/internal/storage"
)

type fakePlanner struct {
	err     error
	userID  string
	day     time.Time
	raw     string
	context string
}

func (f *fakePlanner) GenerateTrainingPlan(ctx context.Context, userID, userContext string) (string, error) {
	f.userID, f.context = userID, userContext
	return "plan-1", f.err
}

func (f *fakePlanner) ImportTrainingPlan(ctx context.Context, userID, raw string) (string, error) {
	f.userID, f.raw = userID, raw
	return "plan-2", f.err
}

func (f *fakePlanner) GenerateNutritionPlan(ctx context.Context, userID, userContext string, day time.Time) (string, error) {
	f.userID, f.context, f.day = userID, userContext, day
	return "nutrition-1", f.err
}

func (f *fakePlanner) ImportNutritionPlan(ctx context.Context, userID string, day time.Time, raw string) (string, error) {
	f.userID, f.day, f.raw = userID, day, raw
	return "nutrition-2", f.err
}

func newTestServer(t *testing.T, planner *fakePlanner) (*PlanServer, *storage.SQLStorage) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := storage.NewSQLStorage(storage.DriverSQLite, filepath.Join(t.TempDir(), "plans.db"), nil)
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	srv := NewPlanServer(Config{Host: "127.0.0.1", Port: 0}, planner, store, nil)
	srv.now = func() time.Time { return time.Date(2026, 3, 5, 22, 30, 0, 0, time.UTC) }
	return srv, store
}

func callTool(t *testing.T, srv *PlanServer, name string, args map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{"name": name, "arguments": args})
	if err != nil {
		t.Fatalf("failed to marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// resultText decodes the text content of a tool result into target.
func resultText(t *testing.T, rec *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	var result struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to decode result %s: %v", rec.Body.String(), err)
	}
	if len(result.Content) != 1 || result.Content[0].Type != "text" {
		t.Fatalf("unexpected result content: %s", rec.Body.String())
	}
	if err := json.Unmarshal([]byte(result.Content[0].Text), target); err != nil {
		t.Fatalf("failed to decode result text: %v", err)
	}
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) (string, string) {
	t.Helper()
	var body struct {
		Error string `json:"error"`
		Kind  string `json:"kind"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode error body %s: %v", rec.Body.String(), err)
	}
	return body.Error, body.Kind
}

func TestGenerateTrainingPlanTool(t *testing.T) {
	planner := &fakePlanner{}
	srv, _ := newTestServer(t, planner)

	rec := callTool(t, srv, "generate_training_plan", map[string]interface{}{"user_id": " u1 ", "context": "3x pro Woche"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	resultText(t, rec, &out)
	if out["plan_id"] != "plan-1" {
		t.Fatalf("unexpected result %v", out)
	}
	if planner.userID != "u1" || planner.context != "3x pro Woche" {
		t.Fatalf("planner got %q / %q", planner.userID, planner.context)
	}
}

func TestNutritionToolDefaultsToToday(t *testing.T) {
	planner := &fakePlanner{}
	srv, _ := newTestServer(t, planner)

	rec := callTool(t, srv, "generate_nutrition_plan", map[string]interface{}{"user_id": "u1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	resultText(t, rec, &out)
	if out["date"] != "2026-03-05" || !planner.day.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected today's date, got %v / %v", out, planner.day)
	}

	rec = callTool(t, srv, "import_nutrition_plan", map[string]interface{}{
		"user_id": "u1", "date": "2026-04-01", "completion": "{}",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if planner.day.Format(models.DayLayout) != "2026-04-01" || planner.raw != "{}" {
		t.Fatalf("unexpected planner input %v %q", planner.day, planner.raw)
	}
}

func TestToolErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"no json", &models.NoJSONFoundError{Excerpt: "nope"}, http.StatusUnprocessableEntity, "no_json_found"},
		{"malformed", &models.MalformedJSONError{Err: errors.New("unexpected end")}, http.StatusUnprocessableEntity, "malformed_json"},
		{"schema", &models.SchemaValidationError{Path: "einheiten", Reason: "must not be empty"}, http.StatusUnprocessableEntity, "schema_validation"},
		{"resolution", &models.ExerciseResolutionFailedError{Unresolved: []string{"Flugrolle"}}, http.StatusUnprocessableEntity, "exercise_resolution_failed"},
		{"persistence", &models.PersistenceError{Op: "insert training plan", Err: errors.New("disk full")}, http.StatusInternalServerError, "persistence"},
		{"completion", &sampling.CompletionError{Status: 503, Transient: true, Err: errors.New("busy")}, http.StatusBadGateway, "completion_failed"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "internal"},
	}

	for _, tc := range cases {
		srv, _ := newTestServer(t, &fakePlanner{err: tc.err})
		rec := callTool(t, srv, "generate_training_plan", map[string]interface{}{"user_id": "u1"})
		if rec.Code != tc.wantStatus {
			t.Fatalf("%s: expected status %d, got %d", tc.name, tc.wantStatus, rec.Code)
		}
		msg, kind := errorBody(t, rec)
		if kind != tc.wantKind || msg != tc.err.Error() {
			t.Fatalf("%s: unexpected body %q / %q", tc.name, msg, kind)
		}
	}
}

func TestToolParamErrors(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlanner{})

	cases := []struct {
		tool string
		args map[string]interface{}
	}{
		{"generate_training_plan", map[string]interface{}{}},
		{"generate_training_plan", map[string]interface{}{"user_id": 42}},
		{"import_training_plan", map[string]interface{}{"user_id": "u1"}},
		{"generate_nutrition_plan", map[string]interface{}{"user_id": "u1", "date": "05.03.2026"}},
		{"get_nutrition_plan", map[string]interface{}{"user_id": ""}},
	}
	for _, tc := range cases {
		rec := callTool(t, srv, tc.tool, tc.args)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s %v: expected 400, got %d: %s", tc.tool, tc.args, rec.Code, rec.Body.String())
		}
		if _, kind := errorBody(t, rec); kind != "invalid_params" {
			t.Fatalf("%s: unexpected kind %q", tc.tool, kind)
		}
	}
}

func TestUnknownToolAndBadJSON(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlanner{})

	rec := callTool(t, srv, "log_meal", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString("{"))
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestReadTools(t *testing.T) {
	srv, store := newTestServer(t, &fakePlanner{})
	ctx := context.Background()

	if _, err := store.UpsertExercises(ctx, []models.CatalogExercise{{ID: "ex-knie", Name: "Kniebeuge"}}); err != nil {
		t.Fatalf("failed to seed catalog: %v", err)
	}
	plan := &models.GeneratedTrainingPlan{
		Name: "Plan A",
		Einheiten: []models.GeneratedEinheit{{
			Name: "Tag 1", Wochentag: 1, Typ: "kraft",
			Uebungen: []models.GeneratedUebung{{UebungName: "Kniebeuge", Saetze: 3, Wiederholungen: "8-12",
				RIR: 2, PauseSekunden: 120, Tempo: "3-1-2-0"}},
		}},
	}
	planID, err := store.SaveTrainingPlan(ctx, "u1", plan, map[string]string{"Kniebeuge": "ex-knie"})
	if err != nil {
		t.Fatalf("failed to save plan: %v", err)
	}

	rec := callTool(t, srv, "get_active_training_plan", map[string]interface{}{"user_id": "u1"})
	var active struct {
		Plan *models.TrainingPlan `json:"plan"`
	}
	resultText(t, rec, &active)
	if active.Plan == nil || active.Plan.ID != planID || len(active.Plan.Einheiten) != 1 ||
		active.Plan.Einheiten[0].Exercises[0].ExerciseName != "Kniebeuge" {
		t.Fatalf("unexpected active plan %+v", active.Plan)
	}

	rec = callTool(t, srv, "list_training_plans", map[string]interface{}{"user_id": "u2"})
	var list struct {
		Plans []models.TrainingPlan `json:"plans"`
	}
	resultText(t, rec, &list)
	if list.Plans == nil || len(list.Plans) != 0 {
		t.Fatalf("expected empty list for unknown user, got %+v", list.Plans)
	}

	rec = callTool(t, srv, "get_nutrition_plan", map[string]interface{}{"user_id": "u1", "date": "2026-03-05"})
	var nutrition struct {
		Plan *models.NutritionPlan `json:"plan"`
	}
	resultText(t, rec, &nutrition)
	if nutrition.Plan != nil {
		t.Fatalf("expected no nutrition plan, got %+v", nutrition.Plan)
	}

	rec = callTool(t, srv, "list_exercises", nil)
	var catalog struct {
		Exercises []models.CatalogExercise `json:"exercises"`
	}
	resultText(t, rec, &catalog)
	if len(catalog.Exercises) != 1 || catalog.Exercises[0].ID != "ex-knie" {
		t.Fatalf("unexpected catalog %+v", catalog.Exercises)
	}
}

func TestHealthAndToolList(t *testing.T) {
	srv, _ := newTestServer(t, &fakePlanner{})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected healthy server, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tools", nil))
	var out struct {
		Tools []string `json:"tools"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("failed to decode tool list: %v", err)
	}
	if len(out.Tools) != 8 || out.Tools[0] != "generate_nutrition_plan" {
		t.Fatalf("unexpected tools %v", out.Tools)
	}
}
