package catalog

import (
	"strconv"
	"strings"
)

// AnswerKind tags the dynamic type of an answer value.
type AnswerKind string

const (
	AnswerText   AnswerKind = "text"
	AnswerList   AnswerKind = "list"
	AnswerNumber AnswerKind = "number"
	AnswerBool   AnswerKind = "bool"
)

// Answer is one recorded answer value. The tagged form keeps JSON
// round-trips lossless regardless of question type.
type Answer struct {
	Kind   AnswerKind `json:"kind"`
	Text   string     `json:"text,omitempty"`
	List   []string   `json:"list,omitempty"`
	Number float64    `json:"number,omitempty"`
	Bool   bool       `json:"bool,omitempty"`
}

// TextAnswer wraps a free-text or single-choice value.
func TextAnswer(s string) Answer {
	return Answer{Kind: AnswerText, Text: s}
}

// ListAnswer wraps a multi-choice or list value.
func ListAnswer(values ...string) Answer {
	return Answer{Kind: AnswerList, List: values}
}

// NumberAnswer wraps a numeric value.
func NumberAnswer(n float64) Answer {
	return Answer{Kind: AnswerNumber, Number: n}
}

// BoolAnswer wraps a yes/no value.
func BoolAnswer(b bool) Answer {
	return Answer{Kind: AnswerBool, Bool: b}
}

// IsEmpty reports whether the answer counts as unanswered: blank text
// after trimming, an empty list, or a zero-value tag.
func (a Answer) IsEmpty() bool {
	switch a.Kind {
	case AnswerText:
		return strings.TrimSpace(a.Text) == ""
	case AnswerList:
		for _, v := range a.List {
			if strings.TrimSpace(v) != "" {
				return false
			}
		}
		return true
	case AnswerNumber, AnswerBool:
		return false
	default:
		return true
	}
}

// Values flattens the answer to the strings it contributes to choice
// membership checks: the text itself, or each list element.
func (a Answer) Values() []string {
	switch a.Kind {
	case AnswerText:
		if strings.TrimSpace(a.Text) == "" {
			return nil
		}
		return []string{a.Text}
	case AnswerList:
		out := make([]string, 0, len(a.List))
		for _, v := range a.List {
			if strings.TrimSpace(v) != "" {
				out = append(out, v)
			}
		}
		return out
	default:
		return nil
	}
}

// String renders the answer for display and interpolation.
func (a Answer) String() string {
	switch a.Kind {
	case AnswerText:
		return a.Text
	case AnswerList:
		return strings.Join(a.List, ", ")
	case AnswerNumber:
		return strconv.FormatFloat(a.Number, 'f', -1, 64)
	case AnswerBool:
		if a.Bool {
			return "yes"
		}
		return "no"
	default:
		return ""
	}
}
