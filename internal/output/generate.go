// internal/output/generate.go
//
// Renders a completed hearing session into the three artifact surfaces:
// a one-line command string, a structured record, and a Markdown
// document. Generation is a pure function of the answer map; only the
// document's timestamp footer varies between runs.

package output

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"specsmith/internal/catalog"
	"specsmith/internal/wizard"
)

const (
	// CompletenessFloor is the minimum number of answered questions
	// before generation is allowed.
	CompletenessFloor = 12

	// Budget bounds the wall-clock time one generation may take.
	// Overruns are reported, never silently swallowed.
	Budget = 5 * time.Second

	summaryMinLen = 50
	summaryMaxLen = 500
)

// ErrNotFinalized is returned when the session was never completed.
var ErrNotFinalized = errors.New("output: session is not finalized")

// IncompleteError reports how far a session is from the completeness
// floor.
type IncompleteError struct {
	Answered int
	Missing  int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("output: %d of %d required answers present, %d more needed",
		e.Answered, CompletenessFloor, e.Missing)
}

// StructuredData is the fixed-shape record grouping the answers.
type StructuredData struct {
	Purpose struct {
		Problem         string `json:"problem"`
		Goal            string `json:"goal"`
		Background      string `json:"background,omitempty"`
		SuccessCriteria string `json:"successCriteria"`
	} `json:"purpose"`
	Stakeholders struct {
		Primary   []string `json:"primary"`
		Count     string   `json:"count"`
		Frequency string   `json:"frequency"`
	} `json:"stakeholders"`
	CurrentState struct {
		Process    string   `json:"process"`
		PainPoints string   `json:"painPoints"`
		Tools      []string `json:"tools"`
	} `json:"currentState"`
	TechnicalRequirements struct {
		IntegrationNeeded  bool     `json:"integrationNeeded"`
		IntegrationTargets []string `json:"integrationTargets,omitempty"`
		Constraints        string   `json:"constraints,omitempty"`
		Deadline           string   `json:"deadline"`
	} `json:"technicalRequirements"`
	Priorities []string `json:"priorities"`
}

// Artifact is the generated triple. Derived, never persisted or reused
// across sessions.
type Artifact struct {
	SummaryText       string         `json:"summaryText"`
	StructuredData    StructuredData `json:"structuredData"`
	FormattedDocument string         `json:"formattedDocument"`
	GeneratedAt       time.Time      `json:"generatedAt"`
	TimedOut          bool           `json:"timedOut,omitempty"`
}

// Generator renders artifacts from completed sessions.
type Generator struct {
	catalog *catalog.Catalog
	logger  *zap.Logger
	now     func() time.Time
}

// GeneratorOption customizes a Generator.
type GeneratorOption func(*Generator)

// WithClock overrides the clock used for the timestamp footer and the
// budget measurement.
func WithClock(clock func() time.Time) GeneratorOption {
	return func(g *Generator) {
		g.now = clock
	}
}

// NewGenerator builds a generator over the question catalog.
func NewGenerator(cat *catalog.Catalog, logger *zap.Logger, opts ...GeneratorOption) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Generator{catalog: cat, logger: logger, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate renders the artifact triple from a finalized session. The
// context carries the caller's cancellation; the fixed Budget is
// measured here and an overrun flags the artifact rather than
// truncating it.
func (g *Generator) Generate(ctx context.Context, session wizard.Session) (Artifact, error) {
	if !session.IsComplete {
		return Artifact{}, ErrNotFinalized
	}
	if answered := session.AnsweredCount(); answered < CompletenessFloor {
		return Artifact{}, &IncompleteError{Answered: answered, Missing: CompletenessFloor - answered}
	}
	if err := ctx.Err(); err != nil {
		return Artifact{}, fmt.Errorf("output: generation canceled: %w", err)
	}

	started := g.now()
	vars := g.templateVars(session)

	artifact := Artifact{
		SummaryText:    clampSummary(expand(summaryTemplate, vars, g.logger)),
		StructuredData: g.structured(session),
		GeneratedAt:    started,
	}
	vars["generated_at"] = started.UTC().Format(time.RFC3339)
	artifact.FormattedDocument = expand(documentTemplate, vars, g.logger)

	if elapsed := g.now().Sub(started); elapsed > Budget {
		artifact.TimedOut = true
		g.logger.Warn("output generation exceeded budget",
			zap.Duration("elapsed", elapsed),
			zap.Duration("budget", Budget),
			zap.String("sessionId", session.ID))
	}
	return artifact, nil
}

// templateVars renders every answer to a string keyed by question id,
// walking the catalog so the result is order-independent of the map.
func (g *Generator) templateVars(session wizard.Session) map[string]string {
	vars := make(map[string]string, catalog.TotalQuestions+2)
	for _, q := range g.catalog.All() {
		vars[q.ID] = strings.TrimSpace(session.Answers[q.ID].String())
	}
	// Derived placeholders used by the templates.
	if vars["integration_needed"] == "yes" && vars["integration_targets"] != "" {
		vars["integrations"] = vars["integration_targets"]
	} else if vars["integration_needed"] == "no" {
		vars["integrations"] = "none"
	} else {
		vars["integrations"] = "unspecified"
	}
	if vars["background"] == "" {
		vars["background"] = "(none provided)"
	}
	if vars["constraints"] == "" {
		vars["constraints"] = "(none stated)"
	}
	return vars
}

func (g *Generator) structured(session wizard.Session) StructuredData {
	get := func(id string) catalog.Answer { return session.Answers[id] }

	var data StructuredData
	data.Purpose.Problem = get("purpose").String()
	data.Purpose.Goal = get("goal").String()
	data.Purpose.Background = get("background").String()
	data.Purpose.SuccessCriteria = get("success_criteria").String()
	data.Stakeholders.Primary = SplitList(get("departments").String())
	data.Stakeholders.Count = get("stakeholder_count").String()
	data.Stakeholders.Frequency = get("frequency").String()
	data.CurrentState.Process = get("current_process").String()
	data.CurrentState.PainPoints = get("pain_points").String()
	data.CurrentState.Tools = SplitList(get("current_tools").String())
	data.TechnicalRequirements.IntegrationNeeded = get("integration_needed").String() == "yes"
	if data.TechnicalRequirements.IntegrationNeeded {
		data.TechnicalRequirements.IntegrationTargets = SplitList(get("integration_targets").String())
	}
	data.TechnicalRequirements.Constraints = get("constraints").String()
	data.TechnicalRequirements.Deadline = get("deadline").String()
	data.Priorities = get("priorities").Values()
	return data
}

var listSeparators = regexp.MustCompile(`[,、]`)

// SplitList breaks a free-text enumeration on the common delimiters:
// ASCII comma and the Japanese ideographic comma.
func SplitList(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	parts := listSeparators.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`\{[a-z_]+\}`)

// expand substitutes {id} markers. If markers survive substitution the
// template set and catalog have diverged; the raw template is returned
// so nothing half-rendered reaches the user.
func expand(template string, vars map[string]string, logger *zap.Logger) string {
	var unresolved string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(marker string) string {
		key := marker[1 : len(marker)-1]
		if v, ok := vars[key]; ok {
			return v
		}
		unresolved = marker
		return marker
	})
	if unresolved != "" {
		logger.Error("template has unresolved placeholder, returning raw template",
			zap.String("placeholder", unresolved))
		return template
	}
	return out
}

// clampSummary enforces the summary length window: pad when too short,
// truncate with an ellipsis marker when too long.
func clampSummary(s string) string {
	runes := []rune(s)
	if len(runes) < summaryMinLen {
		return s + summaryPad
	}
	if len(runes) > summaryMaxLen {
		return string(runes[:summaryMaxLen-1]) + "…"
	}
	return s
}
