// internal/models/errors.go
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind names a failure class of the generation pipeline.
type ErrorKind string

const (
	KindNoJSONFound              ErrorKind = "no_json_found"
	KindMalformedJSON            ErrorKind = "malformed_json"
	KindSchemaValidation         ErrorKind = "schema_validation"
	KindExerciseResolutionFailed ErrorKind = "exercise_resolution_failed"
	KindPersistence              ErrorKind = "persistence"
	KindUnknown                  ErrorKind = "unknown"
)

// NoJSONFoundError means the completion text held no JSON object candidate.
type NoJSONFoundError struct {
	Excerpt string
}

func (e *NoJSONFoundError) Error() string {
	return fmt.Sprintf("no JSON object found in completion: %q", e.Excerpt)
}

// MalformedJSONError wraps the decoder error for a candidate that is not JSON.
type MalformedJSONError struct {
	Err error
}

func (e *MalformedJSONError) Error() string {
	return fmt.Sprintf("malformed JSON: %v", e.Err)
}

func (e *MalformedJSONError) Unwrap() error { return e.Err }

// SchemaValidationError is the first structural violation found. Path
// identifies the failing entity, e.g. einheiten[0] "Tag 1".uebungen[2].saetze.
type SchemaValidationError struct {
	Path   string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Path == "" {
		return "schema validation failed: " + e.Reason
	}
	return fmt.Sprintf("schema validation failed at %s: %s", e.Path, e.Reason)
}

// ExerciseResolutionFailedError lists every name that matched no catalog
// entry, together with the catalog it was resolved against.
type ExerciseResolutionFailedError struct {
	Unresolved []string
	Catalog    []string
}

func (e *ExerciseResolutionFailedError) Error() string {
	return fmt.Sprintf("could not resolve exercises [%s] against catalog [%s]",
		strings.Join(e.Unresolved, ", "), strings.Join(e.Catalog, ", "))
}

// PersistenceError wraps a storage or transaction failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// KindOf classifies err by the first taxonomy error found in its chain.
func KindOf(err error) ErrorKind {
	var (
		noJSON     *NoJSONFoundError
		malformed  *MalformedJSONError
		schema     *SchemaValidationError
		resolution *ExerciseResolutionFailedError
		persist    *PersistenceError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &noJSON):
		return KindNoJSONFound
	case errors.As(err, &malformed):
		return KindMalformedJSON
	case errors.As(err, &schema):
		return KindSchemaValidation
	case errors.As(err, &resolution):
		return KindExerciseResolutionFailed
	case errors.As(err, &persist):
		return KindPersistence
	default:
		return KindUnknown
	}
}
