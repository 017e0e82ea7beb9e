package parser

import (
	"errors"
	"strings"
	"testing"
	"time"

	"mcp-plan-generator/internal/models"
)

const samplePlan = `{"name":"Plan A","einheiten":[{"name":"Tag 1","wochentag":1,"typ":"kraft","uebungen":[{"uebungName":"Kniebeuge","saetze":3,"wiederholungen":"8-12"}]}]}`

func TestExtractJSONFencedMatchesUnfenced(t *testing.T) {
	inputs := []string{
		"```json\n" + samplePlan + "\n```",
		"```\n" + samplePlan + "\n```",
		"Here is your plan:\n```json\n" + samplePlan + "\n```\nGood luck!",
		samplePlan,
	}
	want, err := ExtractJSON(samplePlan)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, in := range inputs {
		got, err := ExtractJSON(in)
		if err != nil {
			t.Fatalf("ExtractJSON(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ExtractJSON(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestExtractJSONBraceBalanced(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "trailing prose with braces",
			in:   `Plan: {"a":1} -- note: use {curly} notation later}`,
			want: `{"a":1}`,
		},
		{
			name: "braces inside strings",
			in:   `ok {"a":"x}y{","b":{"c":"\"}"}} done`,
			want: `{"a":"x}y{","b":{"c":"\"}"}}`,
		},
		{
			name: "stray brace before the object",
			in:   `Format {like this} then {"name":"Plan"}`,
			want: `{"name":"Plan"}`,
		},
		{
			name: "two objects picks the first valid",
			in:   `{"first":true} and {"second":true}`,
			want: `{"first":true}`,
		},
		{
			name: "fence with other language is skipped",
			in:   "```go\nfunc main() {}\n```\n" + `{"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "quoted prose around a brace",
			in:   `He said "use {x}" then {"a":1}`,
			want: `{"a":1}`,
		},
		{
			name: "nested object before a syntax error",
			in:   `{"k":{"ok":true} x}`,
			want: `{"ok":true}`,
		},
		{
			name: "nested object holding the syntax error",
			in:   `{"a":[{"b":1]}} then {"c":2}`,
			want: `{"c":2}`,
		},
		{
			name: "braces inside a rejected string",
			in:   `{"s":"{\"a\":1}" oops} {"b":2}`,
			want: `{"b":2}`,
		},
		{
			name: "single line fence",
			in:   "```json {\"a\":1}```",
			want: `{"a":1}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ExtractJSON(tc.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("got %q, want %q", got, tc.want)
			}
		})
	}
}

func TestExtractJSONTruncatedObjectIsReturnedForDecoding(t *testing.T) {
	in := `Sure! {"name":"Plan A","einheiten":[`
	got, err := ExtractJSON(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != `{"name":"Plan A","einheiten":[` {
		t.Fatalf("got %q", got)
	}
	_, err = ParseTrainingPlan(got)
	var malformed *models.MalformedJSONError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected MalformedJSONError, got %v", err)
	}
}

func TestExtractJSONLongBraceRuns(t *testing.T) {
	const n = 200000
	cases := []struct {
		name     string
		in       string
		want     string
		balanced bool
	}{
		{"unclosed", "Plan: " + strings.Repeat("{", n), strings.Repeat("{", n), false},
		{"nested invalid", strings.Repeat("{", n) + strings.Repeat("}", n), strings.Repeat("{", n) + strings.Repeat("}", n), true},
		{"unclosed then object", strings.Repeat("{", n) + `{"a":1}`, `{"a":1}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			start := time.Now()
			got, balanced := findObject(tc.in)
			if elapsed := time.Since(start); elapsed > 2*time.Second {
				t.Fatalf("scan took %s", elapsed)
			}
			if balanced != tc.balanced || got != tc.want {
				t.Fatalf("got %d bytes (balanced %v), want %d bytes (balanced %v)", len(got), balanced, len(tc.want), tc.balanced)
			}
		})
	}
}

func TestExtractJSONNoCandidate(t *testing.T) {
	long := strings.Repeat("Ich kann leider keinen Plan erstellen. ", 20)
	_, err := ExtractJSON(long)
	var notFound *models.NoJSONFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NoJSONFoundError, got %v", err)
	}
	if !strings.HasSuffix(notFound.Excerpt, excerptEllipse) {
		t.Fatalf("expected truncated excerpt, got %q", notFound.Excerpt)
	}
	if len([]rune(notFound.Excerpt)) != excerptRunes+1 {
		t.Fatalf("excerpt has %d runes", len([]rune(notFound.Excerpt)))
	}
}
