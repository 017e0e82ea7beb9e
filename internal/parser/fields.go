// internal/parser/fields.go
package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"

	"mcp-plan-generator/internal/models"
)

// parseObject checks candidate is a single JSON value and that it is an object.
// gjson reads the first of repeated keys, so objects with a repeated key are
// rejected rather than read differently from a last-wins decoder.
func parseObject(candidate string) (gjson.Result, error) {
	var raw json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &raw); err != nil {
		return gjson.Result{}, &models.MalformedJSONError{Err: err}
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return gjson.Result{}, invalid("", "expected a JSON object at the top level")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := uniqueKeys(dec, ""); err != nil {
		var schemaErr *models.SchemaValidationError
		if errors.As(err, &schemaErr) {
			return gjson.Result{}, err
		}
		return gjson.Result{}, &models.MalformedJSONError{Err: err}
	}
	return root, nil
}

// uniqueKeys consumes one value from dec and fails on the first object that
// names a key twice.
func uniqueKeys(dec *json.Decoder, path string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch delim {
	case '{':
		seen := make(map[string]bool)
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return err
			}
			key, _ := tok.(string)
			if seen[key] {
				return invalid(join(path, key), "duplicate key")
			}
			seen[key] = true
			if err := uniqueKeys(dec, join(path, key)); err != nil {
				return err
			}
		}
	case '[':
		for i := 0; dec.More(); i++ {
			if err := uniqueKeys(dec, fmt.Sprintf("%s[%d]", path, i)); err != nil {
				return err
			}
		}
	}
	_, err = dec.Token()
	return err
}

func invalid(path, reason string, args ...interface{}) error {
	return &models.SchemaValidationError{Path: path, Reason: fmt.Sprintf(reason, args...)}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// element names the i-th entry of an array and, when it carries a usable
// name, adds it as a human-readable label.
func element(path string, i int, item gjson.Result) string {
	p := fmt.Sprintf("%s[%d]", path, i)
	if name := item.Get("name"); name.Type == gjson.String && strings.TrimSpace(name.Str) != "" {
		return fmt.Sprintf("%s (%q)", p, strings.TrimSpace(name.Str))
	}
	if name := item.Get("uebungName"); name.Type == gjson.String && strings.TrimSpace(name.Str) != "" {
		return fmt.Sprintf("%s (%q)", p, strings.TrimSpace(name.Str))
	}
	return p
}

// absent reports whether an optional field may take its default.
func absent(v gjson.Result) bool {
	return !v.Exists() || v.Type == gjson.Null
}

func requireString(obj gjson.Result, path, key string) (string, error) {
	v := obj.Get(key)
	if absent(v) {
		return "", invalid(join(path, key), "required string is missing")
	}
	if v.Type != gjson.String {
		return "", invalid(join(path, key), "expected a string, got %s", v.Type)
	}
	s := strings.TrimSpace(v.Str)
	if s == "" {
		return "", invalid(join(path, key), "must not be empty")
	}
	return s, nil
}

func optionalString(obj gjson.Result, path, key, def string) (string, error) {
	v := obj.Get(key)
	if absent(v) {
		return def, nil
	}
	if v.Type != gjson.String {
		return "", invalid(join(path, key), "expected a string, got %s", v.Type)
	}
	return v.Str, nil
}

func nullableString(obj gjson.Result, path, key string) (*string, error) {
	v := obj.Get(key)
	if absent(v) {
		return nil, nil
	}
	if v.Type != gjson.String {
		return nil, invalid(join(path, key), "expected a string or null, got %s", v.Type)
	}
	s := v.Str
	return &s, nil
}

func asInt(v gjson.Result) (int, bool) {
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		return 0, false
	}
	if v.Num > math.MaxInt32 || v.Num < math.MinInt32 {
		return 0, false
	}
	return int(v.Num), true
}

func requireInt(obj gjson.Result, path, key string, min, max int) (int, error) {
	v := obj.Get(key)
	if absent(v) {
		return 0, invalid(join(path, key), "required integer is missing")
	}
	n, ok := asInt(v)
	if !ok {
		return 0, invalid(join(path, key), "expected an integer, got %s", v.Raw)
	}
	if n < min || n > max {
		return 0, invalid(join(path, key), "%d is out of range [%d, %d]", n, min, max)
	}
	return n, nil
}

func optionalInt(obj gjson.Result, path, key string, def, min int) (int, error) {
	v := obj.Get(key)
	if absent(v) {
		return def, nil
	}
	n, ok := asInt(v)
	if !ok {
		return 0, invalid(join(path, key), "expected an integer, got %s", v.Raw)
	}
	if n < min {
		return 0, invalid(join(path, key), "%d must be >= %d", n, min)
	}
	return n, nil
}

func requireNumber(obj gjson.Result, path, key string) (float64, error) {
	v := obj.Get(key)
	if absent(v) {
		return 0, invalid(join(path, key), "required number is missing")
	}
	if v.Type != gjson.Number {
		return 0, invalid(join(path, key), "expected a number, got %s", v.Raw)
	}
	if v.Num < 0 {
		return 0, invalid(join(path, key), "%v must not be negative", v.Num)
	}
	return v.Num, nil
}

// nullableNumber accepts any number; a negative load is an assisted lift.
func nullableNumber(obj gjson.Result, path, key string) (*float64, error) {
	v := obj.Get(key)
	if absent(v) {
		return nil, nil
	}
	if v.Type != gjson.Number {
		return nil, invalid(join(path, key), "expected a number or null, got %s", v.Raw)
	}
	n := v.Num
	return &n, nil
}

func nullableAmount(obj gjson.Result, path, key string) (*float64, error) {
	n, err := nullableNumber(obj, path, key)
	if err != nil || n == nil {
		return n, err
	}
	if *n < 0 {
		return nil, invalid(join(path, key), "%v must not be negative", *n)
	}
	return n, nil
}

func requireBool(obj gjson.Result, path, key string) (bool, error) {
	v := obj.Get(key)
	if absent(v) {
		return false, invalid(join(path, key), "required boolean is missing")
	}
	if !v.IsBool() {
		return false, invalid(join(path, key), "expected a boolean, got %s", v.Raw)
	}
	return v.Bool(), nil
}

// requireArray returns the elements of a required, non-empty array.
func requireArray(obj gjson.Result, path, key string) ([]gjson.Result, error) {
	v := obj.Get(key)
	if absent(v) {
		return nil, invalid(join(path, key), "required array is missing")
	}
	if !v.IsArray() {
		return nil, invalid(join(path, key), "expected an array, got %s", v.Type)
	}
	items := v.Array()
	if len(items) == 0 {
		return nil, invalid(join(path, key), "must contain at least one entry")
	}
	return items, nil
}

func requireObject(item gjson.Result, path string) error {
	if !item.IsObject() {
		return invalid(path, "expected an object, got %s", item.Type)
	}
	return nil
}
