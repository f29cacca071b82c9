package validation

import (
	"fmt"
	"strings"

	"datawatch/services/watch-service/internal/security"
)

const (
	TypeNotNull    = "not_null"
	TypeMaxAtMost  = "max_at_most"
	TypeMinAtLeast = "min_at_least"
)

// RuleSpec is the YAML declaration of one rule.
type RuleSpec struct {
	Name      string   `yaml:"name" json:"name"`
	Type      string   `yaml:"type" json:"type"`
	Column    string   `yaml:"column" json:"column"`
	Threshold *float64 `yaml:"threshold" json:"threshold"`
}

type ErrorDetail struct {
	Field   string `json:"field"`
	Problem string `json:"problem"`
	Hint    string `json:"hint"`
}

type ParseError struct {
	Code    string        `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details"`
}

func (e *ParseError) Error() string {
	parts := make([]string, 0, len(e.Details))
	for _, d := range e.Details {
		parts = append(parts, d.Field+" "+d.Problem)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, strings.Join(parts, "; "))
}

// DefaultRuleSpecs is the employee suite: EMPLOYEE_ID must never be null.
func DefaultRuleSpecs() []RuleSpec {
	return []RuleSpec{{Type: TypeNotNull, Column: "EMPLOYEE_ID"}}
}

// BuildRules checks every declaration and returns the rules in order, or all
// problems at once.
func BuildRules(specs []RuleSpec) ([]Rule, *ParseError) {
	var details []ErrorDetail
	rules := make([]Rule, 0, len(specs))
	for i, spec := range specs {
		field := fmt.Sprintf("rules[%d]", i)
		if spec.Column != "" && !security.IsSafeIdentifier(spec.Column) {
			details = append(details, ErrorDetail{Field: field + ".column", Problem: "invalid", Hint: "Use alphanumeric identifiers"})
			continue
		}
		switch strings.ToLower(strings.TrimSpace(spec.Type)) {
		case TypeNotNull:
			if spec.Column == "" {
				details = append(details, ErrorDetail{Field: field + ".column", Problem: "missing", Hint: "not_null needs a column"})
				continue
			}
			rules = append(rules, NotNull{RuleName: spec.Name, Column: spec.Column})
		case TypeMaxAtMost:
			if spec.Threshold == nil {
				details = append(details, ErrorDetail{Field: field + ".threshold", Problem: "missing", Hint: "Example: threshold: 6"})
				continue
			}
			rules = append(rules, MaxAtMost{RuleName: spec.Name, Column: spec.Column, Threshold: *spec.Threshold})
		case TypeMinAtLeast:
			if spec.Threshold == nil {
				details = append(details, ErrorDetail{Field: field + ".threshold", Problem: "missing", Hint: "Example: threshold: 0"})
				continue
			}
			rules = append(rules, MinAtLeast{RuleName: spec.Name, Column: spec.Column, Threshold: *spec.Threshold})
		default:
			details = append(details, ErrorDetail{Field: field + ".type", Problem: "unsupported", Hint: "Use not_null, max_at_most, or min_at_least"})
		}
	}
	if len(details) > 0 {
		return nil, &ParseError{Code: "RULE_SCHEMA_INVALID", Message: "rule set failed validation", Details: details}
	}
	return rules, nil
}
