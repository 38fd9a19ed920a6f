// internal/catalog/catalog.go
//
// The question catalog is the fixed set of 15 hearing questions, grouped
// into 3 layers of 5. It is authored in questions.yaml, compiled into the
// binary, and validated structurally at load time. Nothing mutates it
// after Load returns.

package catalog

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var questionsYAML []byte

const (
	// TotalQuestions is the fixed size of the catalog.
	TotalQuestions = 15
	// LayerCount is the number of thematic layers.
	LayerCount = 3
	// QuestionsPerLayer is the fixed size of each layer.
	QuestionsPerLayer = 5
)

// QuestionType identifies how a question is asked and answered.
type QuestionType string

const (
	TypeShortText    QuestionType = "short_text"
	TypeLongText     QuestionType = "long_text"
	TypeSingleChoice QuestionType = "single_choice"
	TypeMultiChoice  QuestionType = "multi_choice"
)

// Text holds the localized strings for one label or help entry.
type Text struct {
	EN string `yaml:"en"`
	JA string `yaml:"ja"`
}

// VisibleWhen gates a question on a prior answer. A question whose
// predicate evaluates false is treated as not applicable.
type VisibleWhen struct {
	Question string   `yaml:"question"`
	Equals   []string `yaml:"equals"`
}

// QuestionDefinition describes one catalog entry. Definitions are
// read-only for the lifetime of the process.
type QuestionDefinition struct {
	ID          string       `yaml:"id"`
	Step        int          `yaml:"step"`
	Layer       int          `yaml:"layer"`
	Type        QuestionType `yaml:"type"`
	Required    bool         `yaml:"required"`
	MinLength   int          `yaml:"min_length"`
	MaxLength   int          `yaml:"max_length"`
	Options     []string     `yaml:"options"`
	DependsOn   []string     `yaml:"depends_on"`
	VisibleWhen *VisibleWhen `yaml:"visible_when"`
	Label       Text         `yaml:"label"`
	Help        Text         `yaml:"help"`
}

// HasOption reports whether v is one of the question's declared options.
func (q QuestionDefinition) HasOption(v string) bool {
	for _, opt := range q.Options {
		if opt == v {
			return true
		}
	}
	return false
}

// IsChoice reports whether the question is answered from a fixed option set.
func (q QuestionDefinition) IsChoice() bool {
	return q.Type == TypeSingleChoice || q.Type == TypeMultiChoice
}

// Catalog is the validated, ordered question set.
type Catalog struct {
	questions []QuestionDefinition
	byID      map[string]int
}

type catalogFile struct {
	Version   int                  `yaml:"version"`
	Questions []QuestionDefinition `yaml:"questions"`
}

// Load parses the embedded catalog and enforces its structural
// invariants. A catalog that is not exactly 3 layers of 5 questions is a
// build defect, so Load fails rather than coercing.
func Load() (*Catalog, error) {
	return Parse(questionsYAML)
}

// Parse decodes and validates catalog YAML. Exposed for tests.
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("catalog: decode questions: %w", err)
	}
	c := &Catalog{
		questions: file.Questions,
		byID:      make(map[string]int, len(file.Questions)),
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if len(c.questions) != TotalQuestions {
		return fmt.Errorf("catalog: expected %d questions, got %d", TotalQuestions, len(c.questions))
	}
	perLayer := make(map[int]int, LayerCount)
	for i, q := range c.questions {
		step := i + 1
		if q.ID == "" {
			return fmt.Errorf("catalog: question at step %d has no id", step)
		}
		if _, dup := c.byID[q.ID]; dup {
			return fmt.Errorf("catalog: duplicate question id %q", q.ID)
		}
		c.byID[q.ID] = i
		if q.Step != step {
			return fmt.Errorf("catalog: question %q declares step %d, expected %d", q.ID, q.Step, step)
		}
		derived, err := DeriveLayer(q.Step)
		if err != nil {
			return fmt.Errorf("catalog: question %q: %w", q.ID, err)
		}
		if q.Layer != derived {
			return fmt.Errorf("catalog: question %q declares layer %d, step %d derives layer %d", q.ID, q.Layer, q.Step, derived)
		}
		perLayer[q.Layer]++
		switch q.Type {
		case TypeShortText, TypeLongText:
			if len(q.Options) > 0 {
				return fmt.Errorf("catalog: text question %q declares options", q.ID)
			}
		case TypeSingleChoice, TypeMultiChoice:
			if len(q.Options) < 2 {
				return fmt.Errorf("catalog: choice question %q needs at least 2 options, got %d", q.ID, len(q.Options))
			}
		default:
			return fmt.Errorf("catalog: question %q has unknown type %q", q.ID, q.Type)
		}
		if q.MinLength < 0 || q.MaxLength < 0 {
			return fmt.Errorf("catalog: question %q has negative length bound", q.ID)
		}
		if q.MaxLength > 0 && q.MinLength > q.MaxLength {
			return fmt.Errorf("catalog: question %q min_length %d exceeds max_length %d", q.ID, q.MinLength, q.MaxLength)
		}
	}
	for layer := 1; layer <= LayerCount; layer++ {
		if perLayer[layer] != QuestionsPerLayer {
			return fmt.Errorf("catalog: layer %d has %d questions, expected %d", layer, perLayer[layer], QuestionsPerLayer)
		}
	}
	// Cross-references are only valid against earlier questions.
	for _, q := range c.questions {
		for _, dep := range q.DependsOn {
			idx, ok := c.byID[dep]
			if !ok {
				return fmt.Errorf("catalog: question %q depends on unknown id %q", q.ID, dep)
			}
			if idx+1 >= q.Step {
				return fmt.Errorf("catalog: question %q depends on %q which does not precede it", q.ID, dep)
			}
		}
		if q.VisibleWhen != nil {
			idx, ok := c.byID[q.VisibleWhen.Question]
			if !ok {
				return fmt.Errorf("catalog: question %q visibility references unknown id %q", q.ID, q.VisibleWhen.Question)
			}
			if idx+1 >= q.Step {
				return fmt.Errorf("catalog: question %q visibility references %q which does not precede it", q.ID, q.VisibleWhen.Question)
			}
			if len(q.VisibleWhen.Equals) == 0 {
				return fmt.Errorf("catalog: question %q visibility has no expected values", q.ID)
			}
		}
	}
	return nil
}

// Question returns the definition bound to a step in [1,15].
func (c *Catalog) Question(step int) (QuestionDefinition, error) {
	if step < 1 || step > len(c.questions) {
		return QuestionDefinition{}, fmt.Errorf("catalog: step %d out of range [1,%d]", step, len(c.questions))
	}
	return c.questions[step-1], nil
}

// ByID returns the definition for a question id.
func (c *Catalog) ByID(id string) (QuestionDefinition, bool) {
	idx, ok := c.byID[id]
	if !ok {
		return QuestionDefinition{}, false
	}
	return c.questions[idx], true
}

// All returns the full ordered question list. Callers must not mutate it.
func (c *Catalog) All() []QuestionDefinition {
	return c.questions
}

// DeriveLayer maps a step to its layer: 1-5 to layer 1, 6-10 to layer 2,
// 11-15 to layer 3. Any state holding a different pairing is invalid.
func DeriveLayer(step int) (int, error) {
	if step < 1 || step > TotalQuestions {
		return 0, fmt.Errorf("catalog: step %d out of range [1,%d]", step, TotalQuestions)
	}
	return (step-1)/QuestionsPerLayer + 1, nil
}
