// internal/parser/training.go
package parser

import (
	"math"

	"github.com/tidwall/gjson"

	"mcp-plan-generator/internal/models"
)

// ParseTrainingPlan decodes and validates an extracted training plan. The
// first violation is returned as a *models.SchemaValidationError; optional
// fields come back defaulted.
func ParseTrainingPlan(candidate string) (*models.GeneratedTrainingPlan, error) {
	root, err := parseObject(candidate)
	if err != nil {
		return nil, err
	}

	name, err := requireString(root, "", "name")
	if err != nil {
		return nil, err
	}
	items, err := requireArray(root, "", "einheiten")
	if err != nil {
		return nil, err
	}

	plan := &models.GeneratedTrainingPlan{
		Name:      name,
		Einheiten: make([]models.GeneratedEinheit, 0, len(items)),
	}
	for i, item := range items {
		einheit, err := parseEinheit(item, element("einheiten", i, item))
		if err != nil {
			return nil, err
		}
		plan.Einheiten = append(plan.Einheiten, *einheit)
	}
	return plan, nil
}

func parseEinheit(item gjson.Result, path string) (*models.GeneratedEinheit, error) {
	if err := requireObject(item, path); err != nil {
		return nil, err
	}

	var (
		e   models.GeneratedEinheit
		err error
	)
	if e.Name, err = requireString(item, path, "name"); err != nil {
		return nil, err
	}
	if e.Wochentag, err = requireInt(item, path, "wochentag", 0, 6); err != nil {
		return nil, err
	}
	if e.Typ, err = requireString(item, path, "typ"); err != nil {
		return nil, err
	}
	if e.Aufwaermen, err = optionalString(item, path, "aufwaermen", ""); err != nil {
		return nil, err
	}
	if e.Cooldown, err = optionalString(item, path, "cooldown", ""); err != nil {
		return nil, err
	}

	uebungen, err := requireArray(item, path, "uebungen")
	if err != nil {
		return nil, err
	}
	e.Uebungen = make([]models.GeneratedUebung, 0, len(uebungen))
	for i, raw := range uebungen {
		u, err := parseUebung(raw, element(join(path, "uebungen"), i, raw))
		if err != nil {
			return nil, err
		}
		e.Uebungen = append(e.Uebungen, *u)
	}
	return &e, nil
}

func parseUebung(item gjson.Result, path string) (*models.GeneratedUebung, error) {
	if err := requireObject(item, path); err != nil {
		return nil, err
	}

	var (
		u   models.GeneratedUebung
		err error
	)
	if u.UebungName, err = requireString(item, path, "uebungName"); err != nil {
		return nil, err
	}
	if u.Saetze, err = requireInt(item, path, "saetze", 1, math.MaxInt32); err != nil {
		return nil, err
	}
	if u.Wiederholungen, err = requireString(item, path, "wiederholungen"); err != nil {
		return nil, err
	}
	if u.Gewicht, err = nullableNumber(item, path, "gewicht"); err != nil {
		return nil, err
	}
	if u.RIR, err = optionalInt(item, path, "rir", models.DefaultRIR, 0); err != nil {
		return nil, err
	}
	if u.PauseSekunden, err = optionalInt(item, path, "pauseSekunden", models.DefaultPauseSekunden, 0); err != nil {
		return nil, err
	}
	if u.Tempo, err = optionalString(item, path, "tempo", models.DefaultTempo); err != nil {
		return nil, err
	}
	if u.Tempo == "" {
		u.Tempo = models.DefaultTempo
	}
	if u.Notizen, err = nullableString(item, path, "notizen"); err != nil {
		return nil, err
	}
	return &u, nil
}
