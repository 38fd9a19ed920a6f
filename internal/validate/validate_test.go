package validate

import (
	"testing"

	"specsmith/internal/catalog"
)

func textQuestion(id string, required bool, minLen, maxLen int) catalog.QuestionDefinition {
	return catalog.QuestionDefinition{
		ID: id, Type: catalog.TypeShortText,
		Required: required, MinLength: minLen, MaxLength: maxLen,
	}
}

func TestRequiredCheck(t *testing.T) {
	q := textQuestion("purpose", true, 0, 0)
	errs := Validate(q, catalog.TextAnswer("   "), nil)
	if len(errs) != 1 || errs[0].Code != CodeRequired {
		t.Fatalf("expected single REQUIRED error, got %+v", errs)
	}
	if !errs[0].Blocking() {
		t.Fatal("REQUIRED must block")
	}

	optional := textQuestion("background", false, 0, 0)
	if errs := Validate(optional, catalog.Answer{}, nil); len(errs) != 0 {
		t.Fatalf("optional empty answer should validate, got %+v", errs)
	}
}

func TestLengthCheck(t *testing.T) {
	q := textQuestion("departments", true, 5, 10)
	if errs := Validate(q, catalog.TextAnswer("okay len"), nil); len(errs) != 0 {
		t.Fatalf("in-range value should validate, got %+v", errs)
	}
	if errs := Validate(q, catalog.TextAnswer("shrt"), nil); len(errs) != 1 || errs[0].Code != CodeLength {
		t.Fatalf("expected LENGTH for short value, got %+v", errs)
	}
	if errs := Validate(q, catalog.TextAnswer("way too long for this"), nil); len(errs) != 1 || errs[0].Code != CodeLength {
		t.Fatalf("expected LENGTH for long value, got %+v", errs)
	}
	// Trimmed length is what counts.
	if errs := Validate(q, catalog.TextAnswer("  okay len  "), nil); len(errs) != 0 {
		t.Fatalf("surrounding whitespace should not count, got %+v", errs)
	}
}

func TestChoiceCheck(t *testing.T) {
	q := catalog.QuestionDefinition{
		ID: "frequency", Type: catalog.TypeSingleChoice,
		Required: true, Options: []string{"daily", "weekly"},
	}
	if errs := Validate(q, catalog.TextAnswer("daily"), nil); len(errs) != 0 {
		t.Fatalf("member value should validate, got %+v", errs)
	}
	if errs := Validate(q, catalog.TextAnswer("yearly"), nil); len(errs) != 1 || errs[0].Code != CodeChoice {
		t.Fatalf("expected CHOICE for non-member, got %+v", errs)
	}

	multi := catalog.QuestionDefinition{
		ID: "priorities", Type: catalog.TypeMultiChoice,
		Required: true, Options: []string{"speed", "cost"},
	}
	if errs := Validate(multi, catalog.ListAnswer("speed", "fame"), nil); len(errs) != 1 || errs[0].Code != CodeChoice {
		t.Fatalf("expected CHOICE for partial non-member list, got %+v", errs)
	}
}

func TestDependencyCheck(t *testing.T) {
	q := catalog.QuestionDefinition{
		ID: "integration_targets", Type: catalog.TypeShortText,
		Required: true, DependsOn: []string{"integration_needed"},
	}
	answers := map[string]catalog.Answer{}
	errs := Validate(q, catalog.TextAnswer("CRM"), answers)
	if len(errs) != 1 || errs[0].Code != CodeDependency {
		t.Fatalf("expected DEPENDENCY with unanswered prerequisite, got %+v", errs)
	}
	answers["integration_needed"] = catalog.TextAnswer("yes")
	if errs := Validate(q, catalog.TextAnswer("CRM"), answers); len(errs) != 0 {
		t.Fatalf("satisfied prerequisite should validate, got %+v", errs)
	}
}

func TestVisibilityOverridesRequired(t *testing.T) {
	q := catalog.QuestionDefinition{
		ID: "integration_targets", Type: catalog.TypeShortText, Required: true,
		VisibleWhen: &catalog.VisibleWhen{Question: "integration_needed", Equals: []string{"yes"}},
	}
	answers := map[string]catalog.Answer{
		"integration_needed": catalog.TextAnswer("no"),
	}
	if errs := Validate(q, catalog.Answer{}, answers); len(errs) != 0 {
		t.Fatalf("hidden question must yield no errors, got %+v", errs)
	}
	if Visible(q, answers) {
		t.Fatal("question should be hidden when predicate is false")
	}
	answers["integration_needed"] = catalog.TextAnswer("yes")
	if !Visible(q, answers) {
		t.Fatal("question should be visible when predicate holds")
	}
	if errs := Validate(q, catalog.Answer{}, answers); len(errs) == 0 {
		t.Fatal("visible required question with no answer must fail")
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	q := textQuestion("purpose", true, 5, 0)
	answers := map[string]catalog.Answer{"other": catalog.TextAnswer("x")}
	first := Validate(q, catalog.TextAnswer("ab"), answers)
	second := Validate(q, catalog.TextAnswer("ab"), answers)
	if len(first) != len(second) {
		t.Fatalf("same input produced different error counts: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("same input produced different errors: %+v vs %+v", first[i], second[i])
		}
	}
}
