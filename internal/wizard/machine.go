// internal/wizard/machine.go
//
// The wizard state machine. All mutation goes through the operations
// here; each one revalidates what it needs, refuses with a structured
// result when it must, and hands an immutable snapshot to subscribers.
// Refusals are expected control flow — only invariant violations are
// reported as errors.

package wizard

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"specsmith/internal/catalog"
	"specsmith/internal/validate"
)

// Reason explains why an operation refused to act.
type Reason string

const (
	ReasonValidation Reason = "validation"   // blocking field errors on the current step
	ReasonAtFirst    Reason = "at_first"     // retreat from step 1
	ReasonAtLast     Reason = "at_last"      // advance from step 15
	ReasonOutOfRange Reason = "out_of_range" // goTo outside [1,15]
	ReasonFinalized  Reason = "finalized"    // session already completed
)

// StepResult reports the outcome of a navigation operation.
type StepResult struct {
	Moved  bool
	Step   int
	Layer  int
	Reason Reason
	Errors []validate.FieldError
}

// CompleteResult reports the outcome of the finalize operation.
type CompleteResult struct {
	Completed bool
	Reason    Reason
	Errors    map[string][]validate.FieldError
}

// Machine drives one wizard session. Construct with New, mutate through
// the operations, observe through Subscribe/Snapshot.
type Machine struct {
	mu      sync.Mutex
	catalog *catalog.Catalog
	session Session
	now     func() time.Time
	newID   func() string
	subs    []func(Session)
}

// Option customizes a Machine during construction.
type Option func(*Machine)

// WithClock overrides the clock, mainly for tests.
func WithClock(clock func() time.Time) Option {
	return func(m *Machine) {
		m.now = clock
	}
}

// WithIDGenerator overrides session id generation, mainly for tests.
func WithIDGenerator(gen func() string) Option {
	return func(m *Machine) {
		m.newID = gen
	}
}

// New creates a machine holding a fresh session at step 1.
func New(cat *catalog.Catalog, opts ...Option) *Machine {
	m := &Machine{
		catalog: cat,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(m)
	}
	m.session = m.freshSession()
	return m
}

// Restore creates a machine resuming a previously saved session.
func Restore(cat *catalog.Catalog, session Session, opts ...Option) (*Machine, error) {
	if err := session.CheckInvariants(); err != nil {
		return nil, err
	}
	m := New(cat, opts...)
	m.session = session.clone()
	if m.session.Answers == nil {
		m.session.Answers = map[string]catalog.Answer{}
	}
	return m, nil
}

func (m *Machine) freshSession() Session {
	now := m.now()
	return Session{
		ID:           m.newID(),
		CurrentStep:  1,
		CurrentLayer: 1,
		Answers:      map[string]catalog.Answer{},
		StartedAt:    now,
		LastModified: now,
	}
}

// Subscribe registers a callback invoked with a snapshot after every
// mutation, in dispatch order. Used by the TUI and the auto-saver.
func (m *Machine) Subscribe(fn func(Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Snapshot returns an independent copy of the current session.
func (m *Machine) Snapshot() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.clone()
}

// notify must be called with the mutex held; it snapshots once and fans
// the copy out to all subscribers.
func (m *Machine) notify() {
	snap := m.session.clone()
	for _, fn := range m.subs {
		fn(snap)
	}
}

// SetAnswer records a value for a question and revalidates that field
// against the full answer map. Unknown question ids are rejected.
func (m *Machine) SetAnswer(questionID string, value catalog.Answer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	q, ok := m.catalog.ByID(questionID)
	if !ok {
		return fmt.Errorf("wizard: unknown question id %q", questionID)
	}
	if m.session.IsComplete {
		return fmt.Errorf("wizard: session %s is already finalized", m.session.ID)
	}
	m.session.Answers[questionID] = value
	m.session.LastModified = m.now()
	m.revalidateField(q)
	m.notify()
	return nil
}

// revalidateField refreshes the error and PII maps for one question.
// Caller holds the mutex.
func (m *Machine) revalidateField(q catalog.QuestionDefinition) {
	value := m.session.Answers[q.ID]
	errs := validate.Validate(q, value, m.session.Answers)
	if len(errs) == 0 {
		delete(m.session.ValidationErrors, q.ID)
	} else {
		if m.session.ValidationErrors == nil {
			m.session.ValidationErrors = map[string][]validate.FieldError{}
		}
		m.session.ValidationErrors[q.ID] = errs
	}
	report := validate.ScanAnswer(value)
	if !report.HasPII {
		delete(m.session.PIIWarnings, q.ID)
	} else {
		if m.session.PIIWarnings == nil {
			m.session.PIIWarnings = map[string]validate.PIIReport{}
		}
		m.session.PIIWarnings[q.ID] = report
	}
}

// Advance validates the current step's question and moves forward one
// step. Blocking errors refuse the transition; step 15 never advances.
func (m *Machine) Advance() StepResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.IsComplete {
		return m.refusal(ReasonFinalized, nil)
	}
	q, err := m.catalog.Question(m.session.CurrentStep)
	if err != nil {
		// Step out of catalog range can only mean corrupted state.
		panic(fmt.Sprintf("wizard: current step %d has no question: %v", m.session.CurrentStep, err))
	}
	errs := validate.Validate(q, m.session.Answers[q.ID], m.session.Answers)
	if validate.HasBlocking(errs) {
		if m.session.ValidationErrors == nil {
			m.session.ValidationErrors = map[string][]validate.FieldError{}
		}
		m.session.ValidationErrors[q.ID] = errs
		m.notify()
		return m.refusal(ReasonValidation, errs)
	}
	delete(m.session.ValidationErrors, q.ID)
	if m.session.CurrentStep >= catalog.TotalQuestions {
		return m.refusal(ReasonAtLast, nil)
	}
	return m.moveTo(m.session.CurrentStep + 1)
}

// Retreat moves back one step without validating. No-op at step 1.
func (m *Machine) Retreat() StepResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.IsComplete {
		return m.refusal(ReasonFinalized, nil)
	}
	if m.session.CurrentStep <= 1 {
		return m.refusal(ReasonAtFirst, nil)
	}
	return m.moveTo(m.session.CurrentStep - 1)
}

// GoTo jumps to an arbitrary step in [1,15] without validating the
// steps in between.
func (m *Machine) GoTo(step int) StepResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.IsComplete {
		return m.refusal(ReasonFinalized, nil)
	}
	if step < 1 || step > catalog.TotalQuestions {
		return m.refusal(ReasonOutOfRange, nil)
	}
	return m.moveTo(step)
}

// moveTo recomputes the layer and notifies. Caller holds the mutex and
// has range-checked step.
func (m *Machine) moveTo(step int) StepResult {
	layer, err := catalog.DeriveLayer(step)
	if err != nil {
		panic(fmt.Sprintf("wizard: %v", err))
	}
	m.session.CurrentStep = step
	m.session.CurrentLayer = layer
	m.session.LastModified = m.now()
	m.notify()
	return StepResult{Moved: true, Step: step, Layer: layer}
}

func (m *Machine) refusal(reason Reason, errs []validate.FieldError) StepResult {
	return StepResult{
		Moved:  false,
		Step:   m.session.CurrentStep,
		Layer:  m.session.CurrentLayer,
		Reason: reason,
		Errors: errs,
	}
}

// Complete validates every question against the full answer map. With no
// blocking errors it finalizes the session; afterwards no operation
// mutates it and auto-save stops.
func (m *Machine) Complete() CompleteResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session.IsComplete {
		return CompleteResult{Completed: true}
	}
	all := map[string][]validate.FieldError{}
	blocking := false
	for _, q := range m.catalog.All() {
		errs := validate.Validate(q, m.session.Answers[q.ID], m.session.Answers)
		if len(errs) > 0 {
			all[q.ID] = errs
			if validate.HasBlocking(errs) {
				blocking = true
			}
		}
	}
	if blocking {
		m.session.ValidationErrors = all
		m.notify()
		return CompleteResult{Completed: false, Reason: ReasonValidation, Errors: all}
	}
	m.session.ValidationErrors = nil
	m.session.IsComplete = true
	m.session.LastModified = m.now()
	m.notify()
	return CompleteResult{Completed: true}
}

// Reset discards the current session and starts a fresh one under a new
// id. The old draft is the caller's to delete.
func (m *Machine) Reset() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = m.freshSession()
	m.notify()
	return m.session.clone()
}
