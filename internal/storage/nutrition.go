// internal/storage/nutrition.go
package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-plan-generator/internal/models"
)

// SaveNutritionPlan replaces whatever plan the user has for day with the
// generated one. Delete and insert share one transaction.
func (s *SQLStorage) SaveNutritionPlan(ctx context.Context, userID string, day time.Time, plan *models.GeneratedNutritionPlan) (string, error) {
	date := day.Format(models.DayLayout)

	deleteMeals := s.rebind(`
        DELETE FROM meals
        WHERE plan_id IN (SELECT id FROM nutrition_plans WHERE user_id = ? AND plan_date = ?)
    `)
	deletePlans := s.rebind(`DELETE FROM nutrition_plans WHERE user_id = ? AND plan_date = ?`)
	insertPlan := s.rebind(`
        INSERT INTO nutrition_plans (id, user_id, plan_date, kalorien, protein_g, kohlenhydrate_g,
                                     fett_g, leucin_g, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	insertMeal := s.rebind(`
        INSERT INTO meals (id, plan_id, name, uhrzeit, kalorien, protein_g, kohlenhydrate_g, fett_g,
                           leucin_g, rezept, ist_post_workout, sort_index)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)

	var planID string
	err := s.inTxRetryConflict(ctx, "save nutrition plan", func(tx *sql.Tx) error {
		planID = uuid.NewString()

		if _, err := tx.ExecContext(ctx, deleteMeals, userID, date); err != nil {
			return &models.PersistenceError{Op: "delete previous meals", Err: err}
		}
		if _, err := tx.ExecContext(ctx, deletePlans, userID, date); err != nil {
			return &models.PersistenceError{Op: "delete previous nutrition plan", Err: err}
		}

		if _, err := tx.ExecContext(ctx, insertPlan,
			planID, userID, date, plan.Kalorien, plan.ProteinG, plan.KohlenhydrateG,
			plan.FettG, plan.LeucinG, formatTime(s.now())); err != nil {
			return &models.PersistenceError{Op: "insert nutrition plan", Err: err}
		}

		for i, m := range plan.Mahlzeiten {
			if _, err := tx.ExecContext(ctx, insertMeal,
				uuid.NewString(), planID, m.Name, m.Uhrzeit, m.Kalorien, m.ProteinG,
				m.KohlenhydrateG, m.FettG, nullFloat(m.LeucinG), nullString(m.Rezept),
				m.IstPostWorkout, i); err != nil {
				return &models.PersistenceError{Op: "insert meal " + m.Name, Err: err}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("nutrition plan saved",
		zap.String("user_id", userID),
		zap.String("date", date),
		zap.String("plan_id", planID),
		zap.Int("mahlzeiten", len(plan.Mahlzeiten)))
	return planID, nil
}

// NutritionPlanFor returns the user's plan for day with meals in stored
// order, or nil when there is none.
func (s *SQLStorage) NutritionPlanFor(ctx context.Context, userID string, day time.Time) (*models.NutritionPlan, error) {
	date := day.Format(models.DayLayout)

	plan := &models.NutritionPlan{}
	var createdStr string
	err := s.db.QueryRowContext(ctx, s.rebind(`
        SELECT id, user_id, plan_date, kalorien, protein_g, kohlenhydrate_g, fett_g, leucin_g, created_at
        FROM nutrition_plans
        WHERE user_id = ? AND plan_date = ?
    `), userID, date).Scan(&plan.ID, &plan.UserID, &plan.Date, &plan.Kalorien, &plan.ProteinG,
		&plan.KohlenhydrateG, &plan.FettG, &plan.LeucinG, &createdStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "query nutrition plan", Err: err}
	}
	if plan.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, &models.PersistenceError{Op: "read nutrition plan", Err: err}
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(`
        SELECT id, plan_id, name, uhrzeit, kalorien, protein_g, kohlenhydrate_g, fett_g,
               leucin_g, rezept, ist_post_workout, sort_index
        FROM meals
        WHERE plan_id = ?
        ORDER BY sort_index
    `), plan.ID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "query meals", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m      models.Meal
			leucin sql.NullFloat64
			rezept sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.PlanID, &m.Name, &m.Uhrzeit, &m.Kalorien, &m.ProteinG,
			&m.KohlenhydrateG, &m.FettG, &leucin, &rezept, &m.IstPostWorkout, &m.SortIndex); err != nil {
			return nil, &models.PersistenceError{Op: "scan meal", Err: err}
		}
		m.LeucinG = floatPtr(leucin)
		m.Rezept = stringPtr(rezept)
		plan.Mahlzeiten = append(plan.Mahlzeiten, m)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "read meals", Err: err}
	}
	return plan, nil
}

// CountNutritionPlans reports how many plans the user has for day.
func (s *SQLStorage) CountNutritionPlans(ctx context.Context, userID string, day time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM nutrition_plans WHERE user_id = ? AND plan_date = ?`),
		userID, day.Format(models.DayLayout)).Scan(&n)
	if err != nil {
		return 0, &models.PersistenceError{Op: "count nutrition plans", Err: err}
	}
	return n, nil
}

// PurgeNutritionPlansBefore removes plans, with their meals, whose day lies
// before cutoff.
func (s *SQLStorage) PurgeNutritionPlansBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	date := cutoff.Format(models.DayLayout)

	var purged int64
	err := s.inTx(ctx, "purge nutrition plans", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.rebind(`
            DELETE FROM meals
            WHERE plan_id IN (SELECT id FROM nutrition_plans WHERE plan_date < ?)
        `), date); err != nil {
			return &models.PersistenceError{Op: "purge meals", Err: err}
		}
		res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM nutrition_plans WHERE plan_date < ?`), date)
		if err != nil {
			return &models.PersistenceError{Op: "purge nutrition plans", Err: err}
		}
		purged, err = res.RowsAffected()
		if err != nil {
			return &models.PersistenceError{Op: "count purged nutrition plans", Err: err}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	if purged > 0 {
		s.logger.Info("purged nutrition plans", zap.String("before", date), zap.Int64("count", purged))
	}
	return purged, nil
}
