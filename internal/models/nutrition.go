// internal/models/nutrition.go
package models

import (
	"time"
)

// DayLayout is the calendar-day key a nutrition plan is stored under.
const DayLayout = "2006-01-02"

type GeneratedNutritionPlan struct {
	Kalorien       float64         `json:"kalorien"`
	ProteinG       float64         `json:"proteinG"`
	KohlenhydrateG float64         `json:"kohlenhydrateG"`
	FettG          float64         `json:"fettG"`
	LeucinG        float64         `json:"leucinG"`
	Mahlzeiten     []GeneratedMeal `json:"mahlzeiten"`
}

type GeneratedMeal struct {
	Name           string   `json:"name"`
	Uhrzeit        string   `json:"uhrzeit"`
	Kalorien       float64  `json:"kalorien"`
	ProteinG       float64  `json:"proteinG"`
	KohlenhydrateG float64  `json:"kohlenhydrateG"`
	FettG          float64  `json:"fettG"`
	LeucinG        *float64 `json:"leucinG"`
	Rezept         *string  `json:"rezept"`
	IstPostWorkout bool     `json:"istPostWorkout"`
}

// NutritionPlan is the single persisted plan of a user for one calendar day.
type NutritionPlan struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id"`
	Date           string    `json:"date"`
	Kalorien       float64   `json:"kalorien"`
	ProteinG       float64   `json:"protein_g"`
	KohlenhydrateG float64   `json:"kohlenhydrate_g"`
	FettG          float64   `json:"fett_g"`
	LeucinG        float64   `json:"leucin_g"`
	CreatedAt      time.Time `json:"created_at"`
	Mahlzeiten     []Meal    `json:"mahlzeiten"`
}

type Meal struct {
	ID             string   `json:"id"`
	PlanID         string   `json:"plan_id"`
	Name           string   `json:"name"`
	Uhrzeit        string   `json:"uhrzeit"`
	Kalorien       float64  `json:"kalorien"`
	ProteinG       float64  `json:"protein_g"`
	KohlenhydrateG float64  `json:"kohlenhydrate_g"`
	FettG          float64  `json:"fett_g"`
	LeucinG        *float64 `json:"leucin_g"`
	Rezept         *string  `json:"rezept"`
	IstPostWorkout bool     `json:"ist_post_workout"`
	SortIndex      int      `json:"sort_index"`
}
