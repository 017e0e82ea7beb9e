// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThinkInAIXYZ/go-mcp/protocol"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"mcp-plan-generator/internal/models"
	"mcp-plan-generator/internal/sampling"
)

type Config struct {
	Host string
	Port int
}

// Planner runs the generation pipeline.
type Planner interface {
	GenerateTrainingPlan(ctx context.Context, userID, userContext string) (string, error)
	ImportTrainingPlan(ctx context.Context, userID, raw string) (string, error)
	GenerateNutritionPlan(ctx context.Context, userID, userContext string, day time.Time) (string, error)
	ImportNutritionPlan(ctx context.Context, userID string, day time.Time, raw string) (string, error)
}

// Reader serves the read-only tools.
type Reader interface {
	Ping(ctx context.Context) error
	ListExercises(ctx context.Context) ([]models.CatalogExercise, error)
	ActiveTrainingPlan(ctx context.Context, userID string) (*models.TrainingPlan, error)
	TrainingPlans(ctx context.Context, userID string) ([]models.TrainingPlan, error)
	NutritionPlanFor(ctx context.Context, userID string, day time.Time) (*models.NutritionPlan, error)
}

var serverInfo = protocol.Implementation{
	Name:    "plan-generator",
	Version: "1.0.0",
}

type PlanServer struct {
	httpServer *http.Server
	planner    Planner
	reader     Reader
	tools      map[string]toolHandler
	logger     *zap.Logger
	now        func() time.Time
}

func NewPlanServer(cfg Config, planner Planner, reader Reader, logger *zap.Logger) *PlanServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &PlanServer{
		planner: planner,
		reader:  reader,
		logger:  logger,
		now:     time.Now,
	}
	s.tools = s.registerTools()

	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger(), s.corsMiddleware())
	router.POST("/", s.handleToolCall)
	router.OPTIONS("/", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	router.GET("/tools", s.handleListTools)
	router.GET("/healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		// Generation waits on the model, including one retried completion.
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *PlanServer) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *PlanServer) Start() error {
	s.logger.Info("starting plan generator server",
		zap.String("addr", s.httpServer.Addr),
		zap.String("version", serverInfo.Version))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *PlanServer) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *PlanServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *PlanServer) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Next()
	}
}

func (s *PlanServer) handleToolCall(c *gin.Context) {
	var request protocol.CallToolRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		abortWithError(c, http.StatusBadRequest, "invalid_request", fmt.Sprintf("Invalid JSON: %v", err))
		return
	}

	handler, ok := s.tools[request.Name]
	if !ok {
		abortWithError(c, http.StatusNotFound, "unknown_tool", fmt.Sprintf("Unknown tool: %s", request.Name))
		return
	}

	result, err := handler(c.Request.Context(), &request)
	if err != nil {
		status, kind := classify(err)
		fields := []zap.Field{
			zap.String("tool", request.Name),
			zap.String("kind", kind),
			zap.Int("status", status),
			zap.Error(err),
		}
		if status >= http.StatusInternalServerError {
			s.logger.Error("tool call failed", fields...)
		} else {
			s.logger.Warn("tool call rejected", fields...)
		}
		abortWithError(c, status, kind, err.Error())
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *PlanServer) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"server": serverInfo,
		"tools":  toolNames(s.tools),
	})
}

func (s *PlanServer) handleHealth(c *gin.Context) {
	if err := s.reader.Ping(c.Request.Context()); err != nil {
		abortWithError(c, http.StatusServiceUnavailable, "unavailable", err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func abortWithError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "kind": kind})
}

// classify maps pipeline errors to an HTTP status and a stable kind string.
func classify(err error) (int, string) {
	var pErr *paramError
	if errors.As(err, &pErr) {
		return http.StatusBadRequest, "invalid_params"
	}
	var cErr *sampling.CompletionError
	if errors.As(err, &cErr) {
		return http.StatusBadGateway, "completion_failed"
	}

	kind := models.KindOf(err)
	switch kind {
	case models.KindNoJSONFound, models.KindMalformedJSON, models.KindSchemaValidation, models.KindExerciseResolutionFailed:
		return http.StatusUnprocessableEntity, string(kind)
	case models.KindPersistence:
		return http.StatusInternalServerError, string(kind)
	}
	return http.StatusInternalServerError, "internal"
}

func (s *PlanServer) createJSONResponse(data interface{}) (*protocol.CallToolResult, error) {
	jsonBytes, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}

	return &protocol.CallToolResult{
		Content: []protocol.Content{
			protocol.TextContent{
				Type: "text",
				Text: string(jsonBytes),
			},
		},
	}, nil
}
