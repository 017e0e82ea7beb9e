// cmd/plan-generator/serve.go
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"mcp-plan-generator/internal/planner"
	"mcp-plan-generator/internal/sampling"
	"mcp-plan-generator/internal/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(a *app) *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&host, "host", "0.0.0.0", "Host address")
	cmd.Flags().IntVar(&port, "port", 8011, "Port for HTTP transport")
	return cmd
}

func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := a.openStorage()
	if err != nil {
		return err
	}
	defer store.Close()

	client := sampling.NewClient(sampling.Options{
		ProxyURL:    a.cfg.Sampling.ProxyURL,
		APIKey:      a.cfg.Sampling.APIKey,
		Model:       a.cfg.Sampling.Model,
		Timeout:     a.cfg.Sampling.Timeout,
		MaxAttempts: a.cfg.Sampling.MaxAttempts,
		MaxTokens:   a.cfg.Sampling.MaxTokens,
		Temperature: a.cfg.Sampling.Temperature,
	}, a.logger.Named("sampling"))

	svc := planner.NewService(client, store, a.logger.Named("planner"))
	if !a.cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := server.NewPlanServer(server.Config{
		Host: a.cfg.Server.Host,
		Port: a.cfg.Server.Port,
	}, svc, store, a.logger.Named("server"))

	if a.cfg.Nutrition.RetentionDays > 0 {
		job, err := startRetention(store, a.cfg.Nutrition.RetentionSchedule, a.cfg.Nutrition.RetentionDays, a.logger.Named("retention"))
		if err != nil {
			return err
		}
		defer job.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Stop(shutdownCtx)
	})
	return g.Wait()
}

// purger is the part of the store the retention job needs.
type purger interface {
	PurgeNutritionPlansBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// startRetention schedules the deletion of nutrition plans older than days.
func startRetention(store purger, schedule string, days int, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	err := c.AddFunc(schedule, func() {
		purgeOnce(context.Background(), store, time.Now(), days, log)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}
	c.Start()
	log.Info("nutrition retention scheduled", zap.String("schedule", schedule), zap.Int("days", days))
	return c, nil
}

func purgeOnce(ctx context.Context, store purger, now time.Time, days int, log *zap.Logger) {
	cutoff := retentionCutoff(now, days)
	if _, err := store.PurgeNutritionPlansBefore(ctx, cutoff); err != nil {
		log.Error("nutrition retention failed", zap.Error(err))
	}
}

// retentionCutoff is the first day that is kept.
func retentionCutoff(now time.Time, days int) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -days)
}
