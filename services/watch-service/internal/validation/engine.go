// Package validation applies declarative data-quality rules to a fetched
// QueryResult and reports a per-rule outcome.
package validation

import dbconnector "datawatch"

type RuleResult struct {
	Rule   string `json:"rule"`
	Column string `json:"column,omitempty"`
	Passed bool   `json:"passed"`
	// TargetMissing marks a rule whose column is absent from the result.
	TargetMissing bool   `json:"targetMissing,omitempty"`
	Detail        string `json:"detail,omitempty"`
}

func (r RuleResult) missing() RuleResult {
	r.Passed = false
	r.TargetMissing = true
	r.Detail = "column " + r.Column + " not found"
	return r
}

type Report struct {
	Success bool         `json:"success"`
	Results []RuleResult `json:"results"`
}

// Failed returns the failing rule results in declaration order.
func (r Report) Failed() []RuleResult {
	out := []RuleResult{}
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Validate evaluates rules in order. A result with no rows passes every rule,
// including rules whose column is missing.
func Validate(result *dbconnector.QueryResult, rules []Rule) Report {
	report := Report{Success: true, Results: make([]RuleResult, 0, len(rules))}
	for _, rule := range rules {
		var res RuleResult
		if result == nil || result.Empty() {
			res = RuleResult{Rule: rule.Name(), Passed: true, Detail: "no rows"}
		} else {
			res = rule.Evaluate(result)
		}
		report.Success = report.Success && res.Passed
		report.Results = append(report.Results, res)
	}
	return report
}
