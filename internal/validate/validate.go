// internal/validate/validate.go
//
// Field validation for hearing answers. Every check is a pure function
// of the question definition, the candidate value, and the full answer
// map; the same inputs always produce the same error set. Validation
// failures are ordinary values, never Go errors — refusing a step is
// expected control flow, not an exceptional condition.

package validate

import (
	"strings"

	"specsmith/internal/catalog"
)

// Code classifies a validation failure.
type Code string

const (
	CodeRequired   Code = "REQUIRED"
	CodeLength     Code = "LENGTH"
	CodeChoice     Code = "CHOICE"
	CodeDependency Code = "DEPENDENCY"
)

// FieldError is one field-scoped validation failure. MessageKey is an
// i18n bundle key; the presentation layer resolves it.
type FieldError struct {
	Field      string `json:"field"`
	Code       Code   `json:"code"`
	MessageKey string `json:"messageKey"`
}

// Blocking reports whether the error blocks a step transition. All four
// validation codes block; PII findings never appear here.
func (e FieldError) Blocking() bool {
	switch e.Code {
	case CodeRequired, CodeLength, CodeChoice, CodeDependency:
		return true
	default:
		return false
	}
}

// HasBlocking reports whether any error in the slice blocks a transition.
func HasBlocking(errs []FieldError) bool {
	for _, e := range errs {
		if e.Blocking() {
			return true
		}
	}
	return false
}

// Visible evaluates a question's visibility predicate against the
// current answers. Questions without a predicate are always visible.
func Visible(q catalog.QuestionDefinition, answers map[string]catalog.Answer) bool {
	if q.VisibleWhen == nil {
		return true
	}
	ans, ok := answers[q.VisibleWhen.Question]
	if !ok || ans.IsEmpty() {
		return false
	}
	for _, got := range ans.Values() {
		for _, want := range q.VisibleWhen.Equals {
			if got == want {
				return true
			}
		}
	}
	return false
}

// Validate checks one answer against its question definition. A question
// that is not currently visible is not applicable and yields no errors,
// regardless of required-ness.
func Validate(q catalog.QuestionDefinition, value catalog.Answer, answers map[string]catalog.Answer) []FieldError {
	if !Visible(q, answers) {
		return nil
	}

	var errs []FieldError

	if value.IsEmpty() {
		if q.Required {
			errs = append(errs, FieldError{Field: q.ID, Code: CodeRequired, MessageKey: "error.required"})
		}
		// Length/choice checks are meaningless on an empty value, but a
		// missing prerequisite is still worth reporting.
		return append(errs, dependencyErrors(q, answers)...)
	}

	if value.Kind == catalog.AnswerText && (q.MinLength > 0 || q.MaxLength > 0) {
		n := len([]rune(strings.TrimSpace(value.Text)))
		if (q.MinLength > 0 && n < q.MinLength) || (q.MaxLength > 0 && n > q.MaxLength) {
			errs = append(errs, FieldError{Field: q.ID, Code: CodeLength, MessageKey: "error.length"})
		}
	}

	if q.IsChoice() {
		for _, v := range value.Values() {
			if !q.HasOption(v) {
				errs = append(errs, FieldError{Field: q.ID, Code: CodeChoice, MessageKey: "error.choice"})
				break
			}
		}
	}

	return append(errs, dependencyErrors(q, answers)...)
}

func dependencyErrors(q catalog.QuestionDefinition, answers map[string]catalog.Answer) []FieldError {
	var errs []FieldError
	for _, dep := range q.DependsOn {
		ans, ok := answers[dep]
		if !ok || ans.IsEmpty() {
			errs = append(errs, FieldError{Field: q.ID, Code: CodeDependency, MessageKey: "error.dependency"})
			break
		}
	}
	return errs
}
