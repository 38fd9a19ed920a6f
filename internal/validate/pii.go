// internal/validate/pii.go
//
// Best-effort personal-information scan over free-text answers. Findings
// warn the user and flag the field; they never block submission.

package validate

import (
	"regexp"

	"specsmith/internal/catalog"
)

// PII categories reported by DetectPII.
const (
	CategoryEmail      = "email"
	CategoryPhone      = "phone"
	CategoryPostalCode = "postal_code"
	CategoryCardNumber = "card_number"
	CategoryIdentifier = "identifier"
)

// confidencePerMatch is the heuristic weight of one pattern match. The
// value is inherited from earlier UI thresholds, not derived.
const confidencePerMatch = 0.3

var piiPatterns = []struct {
	category string
	re       *regexp.Regexp
}{
	{CategoryEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{CategoryPhone, regexp.MustCompile(`(\+?\d{1,3}[-\s]?)?\(?\d{2,4}\)?[-\s]?\d{2,4}[-\s]?\d{3,4}`)},
	{CategoryPostalCode, regexp.MustCompile(`\b\d{3}-\d{4}\b`)},
	{CategoryCardNumber, regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)},
	{CategoryIdentifier, regexp.MustCompile(`\b\d{4}-\d{2}-\d{4}\b`)},
}

// PIIReport is the result of scanning one text value.
type PIIReport struct {
	HasPII     bool     `json:"hasPII"`
	Categories []string `json:"categories,omitempty"`
	Confidence float64  `json:"confidence"`
}

// DetectPII scans text for personal-information patterns and reports the
// matched categories with a confidence proportional to the match count,
// capped at 1.0.
func DetectPII(text string) PIIReport {
	if text == "" {
		return PIIReport{}
	}
	var report PIIReport
	matches := 0
	for _, p := range piiPatterns {
		found := p.re.FindAllString(text, -1)
		if len(found) == 0 {
			continue
		}
		matches += len(found)
		report.Categories = append(report.Categories, p.category)
	}
	if matches == 0 {
		return PIIReport{}
	}
	report.HasPII = true
	report.Confidence = float64(matches) * confidencePerMatch
	if report.Confidence > 1.0 {
		report.Confidence = 1.0
	}
	return report
}

// ScanAnswer applies DetectPII to the text carried by an answer value.
// Non-text answers never carry PII findings.
func ScanAnswer(value catalog.Answer) PIIReport {
	switch value.Kind {
	case catalog.AnswerText:
		return DetectPII(value.Text)
	case catalog.AnswerList:
		var merged PIIReport
		matchWeight := 0.0
		seen := map[string]bool{}
		for _, v := range value.List {
			r := DetectPII(v)
			if !r.HasPII {
				continue
			}
			merged.HasPII = true
			matchWeight += r.Confidence
			for _, c := range r.Categories {
				if !seen[c] {
					seen[c] = true
					merged.Categories = append(merged.Categories, c)
				}
			}
		}
		if merged.HasPII {
			merged.Confidence = matchWeight
			if merged.Confidence > 1.0 {
				merged.Confidence = 1.0
			}
		}
		return merged
	default:
		return PIIReport{}
	}
}
