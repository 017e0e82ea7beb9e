// internal/models/training.go
package models

import (
	"time"
)

// Defaults applied by the validator to optional exercise fields.
const (
	DefaultRIR           = 2
	DefaultPauseSekunden = 120
	DefaultTempo         = "3-1-2-0"
)

// GeneratedTrainingPlan is the validated, fully defaulted shape of a
// completion's training plan. It lives for a single request.
type GeneratedTrainingPlan struct {
	Name      string             `json:"name"`
	Einheiten []GeneratedEinheit `json:"einheiten"`
}

type GeneratedEinheit struct {
	Name       string            `json:"name"`
	Wochentag  int               `json:"wochentag"`
	Typ        string            `json:"typ"`
	Aufwaermen string            `json:"aufwaermen"`
	Cooldown   string            `json:"cooldown"`
	Uebungen   []GeneratedUebung `json:"uebungen"`
}

type GeneratedUebung struct {
	UebungName     string   `json:"uebungName"`
	Saetze         int      `json:"saetze"`
	Wiederholungen string   `json:"wiederholungen"`
	Gewicht        *float64 `json:"gewicht"`
	RIR            int      `json:"rir"`
	PauseSekunden  int      `json:"pauseSekunden"`
	Tempo          string   `json:"tempo"`
	Notizen        *string  `json:"notizen"`
}

// ExerciseNames returns the distinct exercise names referenced by the plan in
// order of first appearance.
func (p *GeneratedTrainingPlan) ExerciseNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, e := range p.Einheiten {
		for _, u := range e.Uebungen {
			if _, ok := seen[u.UebungName]; ok {
				continue
			}
			seen[u.UebungName] = struct{}{}
			names = append(names, u.UebungName)
		}
	}
	return names
}

// TrainingPlan is a persisted plan. Superseded plans stay with Active=false.
type TrainingPlan struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Name       string    `json:"name"`
	WeekNumber int       `json:"week_number"`
	Active     bool      `json:"active"`
	Deload     bool      `json:"deload"`
	StartDate  time.Time `json:"start_date"`
	EndDate    time.Time `json:"end_date"`
	CreatedAt  time.Time `json:"created_at"`
	Einheiten  []Einheit `json:"einheiten,omitempty"`
}

type Einheit struct {
	ID         string         `json:"id"`
	PlanID     string         `json:"plan_id"`
	Name       string         `json:"name"`
	Wochentag  int            `json:"wochentag"`
	Typ        string         `json:"typ"`
	Aufwaermen string         `json:"aufwaermen"`
	Cooldown   string         `json:"cooldown"`
	SortIndex  int            `json:"sort_index"`
	Exercises  []PlanExercise `json:"uebungen"`
}

type PlanExercise struct {
	ID             string   `json:"id"`
	EinheitID      string   `json:"einheit_id"`
	ExerciseID     string   `json:"exercise_id"`
	ExerciseName   string   `json:"exercise_name"`
	Saetze         int      `json:"saetze"`
	Wiederholungen string   `json:"wiederholungen"`
	Gewicht        *float64 `json:"gewicht"`
	RIR            int      `json:"rir"`
	PauseSekunden  int      `json:"pause_sekunden"`
	Tempo          string   `json:"tempo"`
	Notizen        *string  `json:"notizen"`
	SortIndex      int      `json:"sort_index"`
}
