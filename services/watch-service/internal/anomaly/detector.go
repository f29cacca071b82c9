package anomaly

import (
	"fmt"
	"strconv"

	dbconnector "datawatch"
)

const DefaultThreshold = 6.0

const (
	StatusOK           = "OK"
	StatusViolation    = "VIOLATION"
	StatusInsufficient = "INSUFFICIENT_DATA"
)

type Result struct {
	Hit       bool    `json:"hit"`
	Status    string  `json:"status"`
	Max       float64 `json:"max,omitempty"`
	Column    string  `json:"column,omitempty"`
	LimitExpr string  `json:"limitExpr"`
	// Message is the alert text and the ledger's dedup key, so it depends on
	// the threshold only and never on the observed values.
	Message string `json:"message,omitempty"`
}

// Check raises an anomaly when the maximum over every numeric column is
// strictly greater than threshold.
func Check(result *dbconnector.QueryResult, threshold float64) Result {
	out := Result{Status: StatusInsufficient, LimitExpr: "> " + formatThreshold(threshold)}
	if result == nil || result.Empty() {
		return out
	}
	found := false
	for _, col := range result.NumericColumns() {
		for _, v := range col.Values {
			if v.Kind != dbconnector.KindNumber {
				continue
			}
			if !found || v.Num > out.Max {
				out.Max = v.Num
				out.Column = col.Name
				found = true
			}
		}
	}
	if !found {
		return out
	}
	out.Hit = out.Max > threshold
	out.Status = statusFromHit(out.Hit)
	if out.Hit {
		out.Message = Message(threshold)
	}
	return out
}

func Message(threshold float64) string {
	return fmt.Sprintf("One or more numeric columns have values greater than %s.", formatThreshold(threshold))
}

func statusFromHit(hit bool) string {
	if hit {
		return StatusViolation
	}
	return StatusOK
}

func formatThreshold(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
