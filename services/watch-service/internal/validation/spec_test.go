package validation

import "testing"

func TestBuildRules(t *testing.T) {
	six := 6.0
	rules, perr := BuildRules([]RuleSpec{
		{Type: "not_null", Column: "EMPLOYEE_ID"},
		{Type: "MAX_AT_MOST", Threshold: &six},
		{Name: "salary floor", Type: "min_at_least", Column: "SALARY", Threshold: &six},
	})
	if perr != nil {
		t.Fatalf("unexpected error: %v", perr)
	}
	if len(rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(rules))
	}
	if rules[0].Name() != "not_null(EMPLOYEE_ID)" || rules[1].Name() != "max_at_most(*, 6)" || rules[2].Name() != "salary floor" {
		t.Fatalf("unexpected names %s %s %s", rules[0].Name(), rules[1].Name(), rules[2].Name())
	}
}

func TestBuildRulesCollectsAllProblems(t *testing.T) {
	_, perr := BuildRules([]RuleSpec{
		{Type: "not_null"},
		{Type: "max_at_most", Column: "AGE"},
		{Type: "regex", Column: "NAME"},
		{Type: "not_null", Column: "bad column;"},
	})
	if perr == nil {
		t.Fatalf("expected parse error")
	}
	if perr.Code != "RULE_SCHEMA_INVALID" || len(perr.Details) != 4 {
		t.Fatalf("unexpected error %#v", perr)
	}
	if perr.Details[3].Field != "rules[3].column" {
		t.Fatalf("unexpected field %s", perr.Details[3].Field)
	}
}

func TestDefaultRuleSpecs(t *testing.T) {
	rules, perr := BuildRules(DefaultRuleSpecs())
	if perr != nil || len(rules) != 1 {
		t.Fatalf("unexpected default suite %v %v", rules, perr)
	}
}
