package validation

import (
	"fmt"
	"strconv"

	dbconnector "datawatch"
)

// Rule is a named predicate over a QueryResult. Implementations must not
// panic on a missing column; they report it as a failed result.
type Rule interface {
	Name() string
	Evaluate(result *dbconnector.QueryResult) RuleResult
}

type NotNull struct {
	RuleName string
	Column   string
}

func (r NotNull) Name() string {
	if r.RuleName != "" {
		return r.RuleName
	}
	return "not_null(" + r.Column + ")"
}

func (r NotNull) Evaluate(result *dbconnector.QueryResult) RuleResult {
	out := RuleResult{Rule: r.Name(), Column: r.Column}
	col, ok := result.Column(r.Column)
	if !ok {
		return out.missing()
	}
	nulls := 0
	for _, v := range col.Values {
		if v.IsNull() {
			nulls++
		}
	}
	if nulls > 0 {
		out.Detail = fmt.Sprintf("%d of %d values are null", nulls, len(col.Values))
		return out
	}
	out.Passed = true
	return out
}

// MaxAtMost requires every value of Column, or of every numeric column when
// Column is empty, to be <= Threshold.
type MaxAtMost struct {
	RuleName  string
	Column    string
	Threshold float64
}

func (r MaxAtMost) Name() string {
	if r.RuleName != "" {
		return r.RuleName
	}
	return "max_at_most(" + columnLabel(r.Column) + ", " + formatFloat(r.Threshold) + ")"
}

func (r MaxAtMost) Evaluate(result *dbconnector.QueryResult) RuleResult {
	return evaluateBound(result, r.Name(), r.Column, func(v float64) bool { return v <= r.Threshold }, "> "+formatFloat(r.Threshold))
}

type MinAtLeast struct {
	RuleName  string
	Column    string
	Threshold float64
}

func (r MinAtLeast) Name() string {
	if r.RuleName != "" {
		return r.RuleName
	}
	return "min_at_least(" + columnLabel(r.Column) + ", " + formatFloat(r.Threshold) + ")"
}

func (r MinAtLeast) Evaluate(result *dbconnector.QueryResult) RuleResult {
	return evaluateBound(result, r.Name(), r.Column, func(v float64) bool { return v >= r.Threshold }, "< "+formatFloat(r.Threshold))
}

func evaluateBound(result *dbconnector.QueryResult, name, column string, ok func(float64) bool, violation string) RuleResult {
	out := RuleResult{Rule: name, Column: column}
	var columns []dbconnector.Column
	if column == "" {
		columns = result.NumericColumns()
	} else {
		col, found := result.Column(column)
		if !found {
			return out.missing()
		}
		columns = []dbconnector.Column{col}
	}
	bad := 0
	for _, col := range columns {
		for _, v := range col.Values {
			switch v.Kind {
			case dbconnector.KindText:
				out.Detail = fmt.Sprintf("column %q is not numeric", col.Name)
				return out
			case dbconnector.KindNumber:
				if !ok(v.Num) {
					bad++
				}
			}
		}
	}
	if bad > 0 {
		out.Detail = fmt.Sprintf("%d values %s", bad, violation)
		return out
	}
	out.Passed = true
	return out
}

func columnLabel(column string) string {
	if column == "" {
		return "*"
	}
	return column
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
