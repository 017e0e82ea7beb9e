// internal/parser/extract.go
package parser

import (
	"encoding/json"
	"errors"
	"strings"
	"unicode/utf8"

	"mcp-plan-generator/internal/models"
)

const (
	fence          = "```"
	excerptRunes   = 200
	excerptEllipse = "…"
)

// ExtractJSON isolates the JSON object embedded in completion text.
//
// Fenced blocks tagged json (or untagged) are tried first, in order of
// appearance; otherwise the text outside fences of other languages is
// scanned. Within a region the scan starts at each '{' and stops where brace
// depth returns to zero, ignoring braces inside JSON strings. The first
// balanced candidate that is valid JSON wins, then the first balanced one at
// all. An object that never closes (truncated output) is returned from its
// '{' to the end so the decoder can report it as malformed.
func ExtractJSON(text string) (string, error) {
	blocks, remainder := fencedBlocks(text)
	for _, block := range blocks {
		if candidate, balanced := findObject(block); balanced {
			return candidate, nil
		}
	}

	if candidate, _ := findObject(remainder); candidate != "" {
		return candidate, nil
	}

	return "", &models.NoJSONFoundError{Excerpt: excerpt(text)}
}

// fencedBlocks returns the interiors of ``` blocks whose info string is empty
// or "json", and the text with fenced blocks of other languages cut out.
func fencedBlocks(text string) ([]string, string) {
	var (
		blocks    []string
		remainder strings.Builder
	)
	rest := text
	for {
		open := strings.Index(rest, fence)
		if open == -1 {
			remainder.WriteString(rest)
			return blocks, remainder.String()
		}
		end := strings.Index(rest[open+len(fence):], fence)
		if end == -1 {
			remainder.WriteString(rest)
			return blocks, remainder.String()
		}
		body := rest[open+len(fence) : open+len(fence)+end]
		block := rest[open : open+len(fence)+end+len(fence)]
		remainder.WriteString(rest[:open])
		rest = rest[open+len(fence)+end+len(fence):]

		info, interior := "", body
		if nl := strings.IndexByte(body, '\n'); nl != -1 {
			info, interior = strings.TrimSpace(body[:nl]), body[nl+1:]
			if strings.HasPrefix(info, "{") {
				info, interior = "", body
			}
		} else if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
			interior = body[4:]
		}
		if info != "" && !strings.EqualFold(info, "json") {
			continue
		}
		remainder.WriteString(block)
		blocks = append(blocks, strings.TrimSpace(interior))
	}
}

// findObject returns the preferred object candidate in s and whether it is
// brace-balanced. It returns "" when s holds no '{'.
//
// Candidates are tried by start position. Once a candidate fails to decode,
// objects nested in its cleanly decoded prefix are settled without decoding
// again: one that closes before the error is complete, one that spans it
// holds the same error.
func findObject(s string) (string, bool) {
	first := strings.IndexByte(s, '{')
	if first == -1 {
		return "", false
	}

	ends := matchBraces(s, first)
	data := []byte(s)
	fallback := ""
	errAt, state := -1, outside
	for i := first; i < len(s); i++ {
		c := s[i]
		before := state
		inPrefix := i < errAt
		if inPrefix {
			state = state.next(c)
		}
		if c != '{' {
			continue
		}
		end, ok := ends[i]
		if !ok {
			continue
		}
		candidate := data[i : end+1]
		if inPrefix && before == outside {
			if end < errAt && json.Valid(candidate) {
				return string(candidate), true
			}
			continue
		}

		var raw json.RawMessage
		err := json.Unmarshal(candidate, &raw)
		if err == nil {
			return string(candidate), true
		}
		if fallback == "" {
			fallback = string(candidate)
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) && i+int(syntaxErr.Offset)-1 > errAt {
			errAt, state = i+int(syntaxErr.Offset)-1, outside
		}
	}

	if fallback != "" {
		return fallback, true
	}
	return s[first:], false
}

// scanState is the string context of a brace scan.
type scanState int

const (
	outside scanState = iota
	inString
	escaped
)

func (st scanState) next(c byte) scanState {
	switch st {
	case inString:
		switch c {
		case '\\':
			return escaped
		case '"':
			return outside
		}
		return inString
	case escaped:
		return inString
	}
	if c == '"' {
		return inString
	}
	return outside
}

// braceTrack follows one string context through the text. Every '{' seen
// outside a string on the track is a scan start sharing that context.
type braceTrack struct {
	state scanState
	open  *openers
}

// openers holds unmatched '{' positions. A merged node keeps what each
// merged track still had open in below; a '}' closes the innermost '{' of
// every start that reaches the node.
type openers struct {
	stack []int
	below []*openers
}

func (o *openers) empty() bool {
	return len(o.stack) == 0 && len(o.below) == 0
}

func (o *openers) close(i int, ends map[int]int) {
	if n := len(o.stack); n > 0 {
		ends[o.stack[n-1]] = i
		o.stack = o.stack[:n-1]
		return
	}
	kept := o.below[:0]
	for _, b := range o.below {
		b.close(i, ends)
		if !b.empty() {
			kept = append(kept, b)
		}
	}
	o.below = kept
	if len(o.below) == 1 {
		*o = *o.below[0]
	}
}

func joinOpeners(a, b *openers) *openers {
	switch {
	case a.empty():
		return b
	case b.empty():
		return a
	}
	return &openers{below: []*openers{a, b}}
}

// matchBraces maps every '{' at or after from to the '}' where a
// string-aware scan starting at that '{' returns to depth zero, in one pass
// over s. Starts that never close are absent. Scans that agree on the string
// context share a track, so at most one track per context is alive.
func matchBraces(s string, from int) map[int]int {
	ends := make(map[int]int)
	var tracks []*braceTrack
	for i := from; i < len(s); i++ {
		c := s[i]
		if c == '{' && !hasOutside(tracks) {
			tracks = append(tracks, &braceTrack{state: outside, open: &openers{}})
		}
		for _, t := range tracks {
			if t.state == outside {
				switch c {
				case '{':
					t.open.stack = append(t.open.stack, i)
				case '}':
					t.open.close(i, ends)
				}
			}
			t.state = t.state.next(c)
		}
		tracks = mergeTracks(tracks)
	}
	return ends
}

func hasOutside(tracks []*braceTrack) bool {
	for _, t := range tracks {
		if t.state == outside {
			return true
		}
	}
	return false
}

// mergeTracks joins tracks whose string context now agrees; from here on
// they read every brace the same way.
func mergeTracks(tracks []*braceTrack) []*braceTrack {
	if len(tracks) < 2 {
		return tracks
	}
	merged := tracks[:0]
	for _, t := range tracks {
		var into *braceTrack
		for _, m := range merged {
			if m.state == t.state {
				into = m
				break
			}
		}
		if into == nil {
			merged = append(merged, t)
			continue
		}
		into.open = joinOpeners(into.open, t.open)
	}
	return merged
}

func excerpt(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= excerptRunes {
		return text
	}
	runes := []rune(text)
	return string(runes[:excerptRunes]) + excerptEllipse
}
