// internal/wizard/session.go
//
// Session is the snapshot form of a wizard in progress. Snapshots are
// value-copied out of the machine so subscribers and the persistence
// layer never observe in-place mutation.

package wizard

import (
	"errors"
	"fmt"
	"time"

	"specsmith/internal/catalog"
	"specsmith/internal/validate"
)

// ErrInvariant marks an internal consistency violation: a programming
// defect, not a user error. Callers should surface it loudly instead of
// coercing state.
var ErrInvariant = errors.New("wizard: invariant violation")

// Session is one user's pass through the 15 questions.
type Session struct {
	ID               string                           `json:"id"`
	CurrentStep      int                              `json:"currentStep"`
	CurrentLayer     int                              `json:"currentLayer"`
	Answers          map[string]catalog.Answer        `json:"answers"`
	StartedAt        time.Time                        `json:"startedAt"`
	LastModified     time.Time                        `json:"lastModified"`
	IsComplete       bool                             `json:"isComplete"`
	ValidationErrors map[string][]validate.FieldError `json:"validationErrors,omitempty"`
	PIIWarnings      map[string]validate.PIIReport    `json:"piiWarnings,omitempty"`
}

// CheckInvariants verifies the step/layer pairing and step range. A
// failure here signals corrupted or mis-constructed state.
func (s Session) CheckInvariants() error {
	derived, err := catalog.DeriveLayer(s.CurrentStep)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if s.CurrentLayer != derived {
		return fmt.Errorf("%w: step %d derives layer %d but session holds layer %d",
			ErrInvariant, s.CurrentStep, derived, s.CurrentLayer)
	}
	return nil
}

// AnsweredCount returns how many questions carry a non-empty answer.
func (s Session) AnsweredCount() int {
	n := 0
	for _, a := range s.Answers {
		if !a.IsEmpty() {
			n++
		}
	}
	return n
}

// clone deep-copies the session so snapshots are independent of the
// machine's working state.
func (s Session) clone() Session {
	out := s
	out.Answers = make(map[string]catalog.Answer, len(s.Answers))
	for k, v := range s.Answers {
		cp := v
		if v.List != nil {
			cp.List = append([]string(nil), v.List...)
		}
		out.Answers[k] = cp
	}
	if s.ValidationErrors != nil {
		out.ValidationErrors = make(map[string][]validate.FieldError, len(s.ValidationErrors))
		for k, v := range s.ValidationErrors {
			out.ValidationErrors[k] = append([]validate.FieldError(nil), v...)
		}
	}
	if s.PIIWarnings != nil {
		out.PIIWarnings = make(map[string]validate.PIIReport, len(s.PIIWarnings))
		for k, v := range s.PIIWarnings {
			cp := v
			if v.Categories != nil {
				cp.Categories = append([]string(nil), v.Categories...)
			}
			out.PIIWarnings[k] = cp
		}
	}
	return out
}
