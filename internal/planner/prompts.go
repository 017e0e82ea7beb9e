// internal/planner/prompts.go
package planner

import (
	"fmt"
	"strings"
	"time"

	"mcp-plan-generator/internal/models"
)

const trainingSystemPrompt = `You are an experienced strength coach writing periodized training plans.

IMPORTANT: Always respond with valid JSON in this exact format:
{
  "name": "plan name",
  "einheiten": [
    {
      "name": "session name",
      "wochentag": [0-6, 0 = Sunday],
      "typ": "kraft|hypertrophie|ausdauer|mobilitaet",
      "aufwaermen": "warm-up description",
      "cooldown": "cool-down description",
      "uebungen": [
        {
          "uebungName": "exercise name from the catalog",
          "saetze": [integer >= 1],
          "wiederholungen": "rep range, e.g. 8-12",
          "gewicht": [number in kg or null],
          "rir": [reps in reserve, integer],
          "pauseSekunden": [rest in seconds, integer],
          "tempo": "eccentric-pause-concentric-pause, e.g. 3-1-2-0",
          "notizen": "coaching notes or null"
        }
      ]
    }
  ]
}

Only use exercise names from the catalog you are given. Do not add prose outside the JSON.`

const nutritionSystemPrompt = `You are a sports nutritionist planning a single day of meals.

IMPORTANT: Always respond with valid JSON in this exact format:
{
  "kalorien": [number],
  "proteinG": [number],
  "kohlenhydrateG": [number],
  "fettG": [number],
  "leucinG": [number],
  "mahlzeiten": [
    {
      "name": "meal name",
      "uhrzeit": "HH:MM",
      "kalorien": [number],
      "proteinG": [number],
      "kohlenhydrateG": [number],
      "fettG": [number],
      "leucinG": [number or null],
      "rezept": "short recipe or null",
      "istPostWorkout": [true/false]
    }
  ]
}

The meal macros should add up to the daily totals. Do not add prose outside the JSON.`

func trainingPrompt(userContext string, catalog []models.CatalogExercise) string {
	var b strings.Builder
	b.WriteString("Create a training plan for this athlete:\n")
	b.WriteString(strings.TrimSpace(userContext))
	b.WriteString("\n\nExercise catalog:\n")
	for _, name := range models.CatalogNames(catalog) {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}

func nutritionPrompt(userContext string, day time.Time) string {
	return fmt.Sprintf("Create the nutrition plan for %s (%s) for this athlete:\n%s",
		day.Format(models.DayLayout), day.Weekday(), strings.TrimSpace(userContext))
}
