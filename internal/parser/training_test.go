package parser

import (
	"errors"
	"strings"
	"testing"

	"mcp-plan-generator/internal/models"
)

func TestParseTrainingPlanAppliesDefaults(t *testing.T) {
	plan, err := ParseTrainingPlan(samplePlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Name != "Plan A" || len(plan.Einheiten) != 1 {
		t.Fatalf("unexpected plan: %+v", plan)
	}
	e := plan.Einheiten[0]
	if e.Name != "Tag 1" || e.Wochentag != 1 || e.Typ != "kraft" {
		t.Fatalf("unexpected einheit: %+v", e)
	}
	if e.Aufwaermen != "" || e.Cooldown != "" {
		t.Fatalf("expected empty warmup/cooldown, got %q/%q", e.Aufwaermen, e.Cooldown)
	}
	if len(e.Uebungen) != 1 {
		t.Fatalf("expected one exercise, got %d", len(e.Uebungen))
	}
	u := e.Uebungen[0]
	if u.UebungName != "Kniebeuge" || u.Saetze != 3 || u.Wiederholungen != "8-12" {
		t.Fatalf("unexpected exercise: %+v", u)
	}
	if u.RIR != 2 || u.PauseSekunden != 120 || u.Tempo != "3-1-2-0" {
		t.Fatalf("defaults not applied: rir=%d pause=%d tempo=%q", u.RIR, u.PauseSekunden, u.Tempo)
	}
	if u.Gewicht != nil || u.Notizen != nil {
		t.Fatalf("expected nil weight and notes, got %v %v", u.Gewicht, u.Notizen)
	}
}

func TestParseTrainingPlanKeepsExplicitValues(t *testing.T) {
	in := `{"name":"Push","einheiten":[{"name":"Brust","wochentag":0,"typ":"kraft",
		"aufwaermen":"5 min Rudern","cooldown":"Dehnen","uebungen":[
		{"uebungName":"Bankdrücken","saetze":4,"wiederholungen":"6-8","gewicht":80.5,
		 "rir":1,"pauseSekunden":180,"tempo":"2-0-1-0","notizen":"Schulterblätter fixieren"},
		{"uebungName":"Dips","saetze":3,"wiederholungen":"10","gewicht":null,"notizen":null},
		{"uebungName":"Klimmzug","saetze":3,"wiederholungen":"6","gewicht":-15}]}]}`
	plan, err := ParseTrainingPlan(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	e := plan.Einheiten[0]
	if e.Aufwaermen != "5 min Rudern" || e.Cooldown != "Dehnen" {
		t.Fatalf("unexpected warmup/cooldown: %+v", e)
	}
	u := e.Uebungen[0]
	if u.Gewicht == nil || *u.Gewicht != 80.5 || u.RIR != 1 || u.PauseSekunden != 180 || u.Tempo != "2-0-1-0" {
		t.Fatalf("explicit values lost: %+v", u)
	}
	if u.Notizen == nil || *u.Notizen != "Schulterblätter fixieren" {
		t.Fatalf("notes lost: %v", u.Notizen)
	}
	d := e.Uebungen[1]
	if d.Gewicht != nil || d.Notizen != nil || d.RIR != 2 {
		t.Fatalf("null fields should default: %+v", d)
	}
	if k := e.Uebungen[2]; k.Gewicht == nil || *k.Gewicht != -15 {
		t.Fatalf("assisted load lost: %+v", k)
	}
}

func TestParseTrainingPlanRejects(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		wantPath string
	}{
		{"missing name", `{"einheiten":[]}`, "name"},
		{"empty name", `{"name":"  ","einheiten":[]}`, "name"},
		{"empty einheiten", `{"name":"P","einheiten":[]}`, "einheiten"},
		{"einheiten not array", `{"name":"P","einheiten":{}}`, "einheiten"},
		{
			"empty uebungen",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":1,"typ":"kraft","uebungen":[]}]}`,
			`einheiten[0] ("Tag 1").uebungen`,
		},
		{
			"wochentag 7",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":7,"typ":"kraft","uebungen":[{"uebungName":"X","saetze":1,"wiederholungen":"5"}]}]}`,
			`einheiten[0] ("Tag 1").wochentag`,
		},
		{
			"wochentag -1",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":-1,"typ":"kraft","uebungen":[{"uebungName":"X","saetze":1,"wiederholungen":"5"}]}]}`,
			`einheiten[0] ("Tag 1").wochentag`,
		},
		{
			"wochentag fractional",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":1.5,"typ":"kraft","uebungen":[{"uebungName":"X","saetze":1,"wiederholungen":"5"}]}]}`,
			`einheiten[0] ("Tag 1").wochentag`,
		},
		{
			"zero sets",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":1,"typ":"kraft","uebungen":[{"uebungName":"Kniebeuge","saetze":0,"wiederholungen":"5"}]}]}`,
			`einheiten[0] ("Tag 1").uebungen[0] ("Kniebeuge").saetze`,
		},
		{
			"reps as number",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":1,"typ":"kraft","uebungen":[{"uebungName":"Kniebeuge","saetze":3,"wiederholungen":8}]}]}`,
			`einheiten[0] ("Tag 1").uebungen[0] ("Kniebeuge").wiederholungen`,
		},
		{
			"weight as string",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":1,"typ":"kraft","uebungen":[{"uebungName":"Kniebeuge","saetze":3,"wiederholungen":"8","gewicht":"80kg"}]}]}`,
			`einheiten[0] ("Tag 1").uebungen[0] ("Kniebeuge").gewicht`,
		},
		{
			"einheit without name",
			`{"name":"P","einheiten":[{"wochentag":1,"typ":"kraft","uebungen":[]}]}`,
			`einheiten[0].name`,
		},
		{
			"second einheit broken",
			`{"name":"P","einheiten":[{"name":"A","wochentag":1,"typ":"kraft","uebungen":[{"uebungName":"X","saetze":1,"wiederholungen":"5"}]},{"name":"B","wochentag":2,"uebungen":[]}]}`,
			`einheiten[1] ("B").typ`,
		},
		{
			"repeated key",
			`{"name":"P","einheiten":[{"name":"Tag 1","wochentag":1,"wochentag":7,"typ":"kraft","uebungen":[{"uebungName":"X","saetze":1,"wiederholungen":"5"}]}]}`,
			`einheiten[0].wochentag`,
		},
		{"top level array", `[1,2]`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTrainingPlan(tc.in)
			var schemaErr *models.SchemaValidationError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaValidationError, got %v", err)
			}
			if schemaErr.Path != tc.wantPath {
				t.Fatalf("path = %q, want %q (%v)", schemaErr.Path, tc.wantPath, err)
			}
		})
	}
}

func TestParseTrainingPlanMalformed(t *testing.T) {
	_, err := ParseTrainingPlan(`{"name": "Plan A", "einheiten": [}`)
	var malformed *models.MalformedJSONError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedJSONError, got %v", err)
	}
	if !strings.Contains(err.Error(), "invalid character") {
		t.Fatalf("expected decoder message, got %q", err.Error())
	}
}
