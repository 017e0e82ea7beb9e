// internal/storage/training.go
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-plan-generator/internal/models"
)

// SaveTrainingPlan supersedes the user's active plan with the generated one.
// Deactivation and creation share one transaction: on any failure nothing is
// written and the previous plan stays active. exerciseIDs maps every
// uebungName of the plan to its catalog id.
func (s *SQLStorage) SaveTrainingPlan(ctx context.Context, userID string, plan *models.GeneratedTrainingPlan, exerciseIDs map[string]string) (string, error) {
	deactivate := s.rebind(`UPDATE training_plans SET active = ? WHERE user_id = ? AND active = ?`)
	insertPlan := s.rebind(`
        INSERT INTO training_plans (id, user_id, name, week_number, active, deload, start_date, end_date, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)
	insertEinheit := s.rebind(`
        INSERT INTO einheiten (id, plan_id, name, wochentag, typ, aufwaermen, cooldown, sort_index)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `)
	insertExercise := s.rebind(`
        INSERT INTO plan_exercises (id, einheit_id, exercise_id, saetze, wiederholungen, gewicht,
                                    rir, pause_sekunden, tempo, notizen, sort_index)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `)

	var planID string
	err := s.inTxRetryConflict(ctx, "save training plan", func(tx *sql.Tx) error {
		planID = uuid.NewString()
		now := s.now().UTC()
		end := now.AddDate(0, 0, s.planDays)

		res, err := tx.ExecContext(ctx, deactivate, false, userID, true)
		if err != nil {
			return &models.PersistenceError{Op: "deactivate previous training plans", Err: err}
		}
		if n, err := res.RowsAffected(); err == nil && n > 0 {
			s.logger.Debug("deactivated training plans", zap.String("user_id", userID), zap.Int64("count", n))
		}

		if _, err := tx.ExecContext(ctx, insertPlan,
			planID, userID, plan.Name, 1, true, false,
			formatTime(now), formatTime(end), formatTime(now)); err != nil {
			return &models.PersistenceError{Op: "insert training plan", Err: err}
		}

		for i, e := range plan.Einheiten {
			einheitID := uuid.NewString()
			if _, err := tx.ExecContext(ctx, insertEinheit,
				einheitID, planID, e.Name, e.Wochentag, e.Typ, e.Aufwaermen, e.Cooldown, i); err != nil {
				return &models.PersistenceError{Op: "insert einheit " + e.Name, Err: err}
			}

			for j, u := range e.Uebungen {
				exerciseID, ok := exerciseIDs[u.UebungName]
				if !ok {
					return s.unresolvedError(ctx, tx, plan, exerciseIDs)
				}
				if _, err := tx.ExecContext(ctx, insertExercise,
					uuid.NewString(), einheitID, exerciseID, u.Saetze, u.Wiederholungen,
					nullFloat(u.Gewicht), u.RIR, u.PauseSekunden, u.Tempo, nullString(u.Notizen), j); err != nil {
					return &models.PersistenceError{Op: "insert plan exercise " + u.UebungName, Err: err}
				}
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.Info("training plan saved",
		zap.String("user_id", userID),
		zap.String("plan_id", planID),
		zap.Int("einheiten", len(plan.Einheiten)))
	return planID, nil
}

func (s *SQLStorage) unresolvedError(ctx context.Context, tx *sql.Tx, plan *models.GeneratedTrainingPlan, exerciseIDs map[string]string) error {
	var missing []string
	for _, name := range plan.ExerciseNames() {
		if _, ok := exerciseIDs[name]; !ok {
			missing = append(missing, name)
		}
	}
	catalog, err := s.catalogNamesTx(ctx, tx)
	if err != nil {
		return &models.PersistenceError{Op: "read exercise catalog", Err: err}
	}
	return &models.ExerciseResolutionFailedError{Unresolved: missing, Catalog: catalog}
}

const trainingPlanColumns = `id, user_id, name, week_number, active, deload, start_date, end_date, created_at`

// ActiveTrainingPlan returns the user's active plan with its Einheiten and
// exercises in stored order, or nil when the user has none.
func (s *SQLStorage) ActiveTrainingPlan(ctx context.Context, userID string) (*models.TrainingPlan, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
        SELECT `+trainingPlanColumns+`
        FROM training_plans
        WHERE user_id = ? AND active = ?
    `), userID, true)

	plan, err := scanTrainingPlan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, &models.PersistenceError{Op: "query active training plan", Err: err}
	}

	if err := s.loadEinheiten(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// TrainingPlans lists every plan of the user, newest first, without children.
func (s *SQLStorage) TrainingPlans(ctx context.Context, userID string) ([]models.TrainingPlan, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
        SELECT `+trainingPlanColumns+`
        FROM training_plans
        WHERE user_id = ?
        ORDER BY created_at DESC
    `), userID)
	if err != nil {
		return nil, &models.PersistenceError{Op: "query training plans", Err: err}
	}
	defer rows.Close()

	var plans []models.TrainingPlan
	for rows.Next() {
		plan, err := scanTrainingPlan(rows)
		if err != nil {
			return nil, &models.PersistenceError{Op: "scan training plan", Err: err}
		}
		plans = append(plans, *plan)
	}
	if err := rows.Err(); err != nil {
		return nil, &models.PersistenceError{Op: "read training plans", Err: err}
	}
	return plans, nil
}

// CountActiveTrainingPlans reports how many plans of the user are active.
func (s *SQLStorage) CountActiveTrainingPlans(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT COUNT(*) FROM training_plans WHERE user_id = ? AND active = ?`), userID, true).Scan(&n)
	if err != nil {
		return 0, &models.PersistenceError{Op: "count active training plans", Err: err}
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrainingPlan(row rowScanner) (*models.TrainingPlan, error) {
	plan := &models.TrainingPlan{}
	var startStr, endStr, createdStr string
	if err := row.Scan(&plan.ID, &plan.UserID, &plan.Name, &plan.WeekNumber,
		&plan.Active, &plan.Deload, &startStr, &endStr, &createdStr); err != nil {
		return nil, err
	}

	var err error
	if plan.StartDate, err = parseTime(startStr); err != nil {
		return nil, err
	}
	if plan.EndDate, err = parseTime(endStr); err != nil {
		return nil, err
	}
	if plan.CreatedAt, err = parseTime(createdStr); err != nil {
		return nil, err
	}
	return plan, nil
}

// loadEinheiten reads units and exercises with one query each; rows are fully
// drained before the next query so a single-connection pool never blocks.
func (s *SQLStorage) loadEinheiten(ctx context.Context, plan *models.TrainingPlan) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
        SELECT id, plan_id, name, wochentag, typ, aufwaermen, cooldown, sort_index
        FROM einheiten
        WHERE plan_id = ?
        ORDER BY sort_index
    `), plan.ID)
	if err != nil {
		return &models.PersistenceError{Op: "query einheiten", Err: err}
	}

	var einheiten []models.Einheit
	for rows.Next() {
		var e models.Einheit
		if err := rows.Scan(&e.ID, &e.PlanID, &e.Name, &e.Wochentag, &e.Typ,
			&e.Aufwaermen, &e.Cooldown, &e.SortIndex); err != nil {
			rows.Close()
			return &models.PersistenceError{Op: "scan einheit", Err: err}
		}
		einheiten = append(einheiten, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return &models.PersistenceError{Op: "read einheiten", Err: err}
	}

	index := make(map[string]int, len(einheiten))
	for i, e := range einheiten {
		index[e.ID] = i
	}

	rows, err = s.db.QueryContext(ctx, s.rebind(`
        SELECT pe.id, pe.einheit_id, pe.exercise_id, e.name, pe.saetze, pe.wiederholungen,
               pe.gewicht, pe.rir, pe.pause_sekunden, pe.tempo, pe.notizen, pe.sort_index
        FROM plan_exercises pe
        JOIN einheiten u ON u.id = pe.einheit_id
        JOIN exercises e ON e.id = pe.exercise_id
        WHERE u.plan_id = ?
        ORDER BY u.sort_index, pe.sort_index
    `), plan.ID)
	if err != nil {
		return &models.PersistenceError{Op: "query plan exercises", Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var (
			pe      models.PlanExercise
			gewicht sql.NullFloat64
			notizen sql.NullString
		)
		if err := rows.Scan(&pe.ID, &pe.EinheitID, &pe.ExerciseID, &pe.ExerciseName,
			&pe.Saetze, &pe.Wiederholungen, &gewicht, &pe.RIR, &pe.PauseSekunden,
			&pe.Tempo, &notizen, &pe.SortIndex); err != nil {
			return &models.PersistenceError{Op: "scan plan exercise", Err: err}
		}
		pe.Gewicht = floatPtr(gewicht)
		pe.Notizen = stringPtr(notizen)
		if i, ok := index[pe.EinheitID]; ok {
			einheiten[i].Exercises = append(einheiten[i].Exercises, pe)
		}
	}
	if err := rows.Err(); err != nil {
		return &models.PersistenceError{Op: "read plan exercises", Err: err}
	}

	plan.Einheiten = einheiten
	return nil
}
