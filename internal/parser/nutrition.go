// internal/parser/nutrition.go
package parser

import (
	"github.com/tidwall/gjson"

	"mcp-plan-generator/internal/models"
)

// ParseNutritionPlan decodes and validates an extracted nutrition plan.
func ParseNutritionPlan(candidate string) (*models.GeneratedNutritionPlan, error) {
	root, err := parseObject(candidate)
	if err != nil {
		return nil, err
	}

	var plan models.GeneratedNutritionPlan
	if plan.Kalorien, err = requireNumber(root, "", "kalorien"); err != nil {
		return nil, err
	}
	if plan.ProteinG, err = requireNumber(root, "", "proteinG"); err != nil {
		return nil, err
	}
	if plan.KohlenhydrateG, err = requireNumber(root, "", "kohlenhydrateG"); err != nil {
		return nil, err
	}
	if plan.FettG, err = requireNumber(root, "", "fettG"); err != nil {
		return nil, err
	}
	if plan.LeucinG, err = requireNumber(root, "", "leucinG"); err != nil {
		return nil, err
	}

	items, err := requireArray(root, "", "mahlzeiten")
	if err != nil {
		return nil, err
	}
	plan.Mahlzeiten = make([]models.GeneratedMeal, 0, len(items))
	for i, item := range items {
		meal, err := parseMeal(item, element("mahlzeiten", i, item))
		if err != nil {
			return nil, err
		}
		plan.Mahlzeiten = append(plan.Mahlzeiten, *meal)
	}
	return &plan, nil
}

func parseMeal(item gjson.Result, path string) (*models.GeneratedMeal, error) {
	if err := requireObject(item, path); err != nil {
		return nil, err
	}

	var (
		m   models.GeneratedMeal
		err error
	)
	if m.Name, err = requireString(item, path, "name"); err != nil {
		return nil, err
	}
	if m.Uhrzeit, err = optionalString(item, path, "uhrzeit", ""); err != nil {
		return nil, err
	}
	if m.Kalorien, err = requireNumber(item, path, "kalorien"); err != nil {
		return nil, err
	}
	if m.ProteinG, err = requireNumber(item, path, "proteinG"); err != nil {
		return nil, err
	}
	if m.KohlenhydrateG, err = requireNumber(item, path, "kohlenhydrateG"); err != nil {
		return nil, err
	}
	if m.FettG, err = requireNumber(item, path, "fettG"); err != nil {
		return nil, err
	}
	if m.LeucinG, err = nullableAmount(item, path, "leucinG"); err != nil {
		return nil, err
	}
	if m.Rezept, err = nullableString(item, path, "rezept"); err != nil {
		return nil, err
	}
	if m.IstPostWorkout, err = requireBool(item, path, "istPostWorkout"); err != nil {
		return nil, err
	}
	return &m, nil
}
