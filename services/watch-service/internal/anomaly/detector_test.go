package anomaly

import (
	"testing"

	dbconnector "datawatch"
)

func result(t *testing.T, cols ...dbconnector.Column) *dbconnector.QueryResult {
	t.Helper()
	res, err := dbconnector.NewQueryResult(cols)
	if err != nil {
		t.Fatalf("build result: %v", err)
	}
	return res
}

func numbers(vals ...float64) dbconnector.Column {
	col := dbconnector.Column{Name: "VALUE"}
	for _, v := range vals {
		col.Values = append(col.Values, dbconnector.Number(v))
	}
	return col
}

func TestCheckAboveThreshold(t *testing.T) {
	res := Check(result(t, numbers(1, 2, 7)), DefaultThreshold)
	if !res.Hit || res.Status != StatusViolation {
		t.Fatalf("expected anomaly, got %#v", res)
	}
	if res.Max != 7 || res.Column != "VALUE" {
		t.Fatalf("unexpected max %v in %s", res.Max, res.Column)
	}
	if res.Message != "One or more numeric columns have values greater than 6." {
		t.Fatalf("unexpected message %q", res.Message)
	}
}

func TestCheckAtThresholdIsNotAnomaly(t *testing.T) {
	res := Check(result(t, numbers(1, 2, 6)), DefaultThreshold)
	if res.Hit || res.Status != StatusOK || res.Message != "" {
		t.Fatalf("6 must not exceed 6, got %#v", res)
	}
}

func TestCheckNoNumericColumns(t *testing.T) {
	text := dbconnector.Column{Name: "NAME", Values: []dbconnector.Value{dbconnector.Text("999"), dbconnector.Null()}}
	res := Check(result(t, text), DefaultThreshold)
	if res.Hit || res.Status != StatusInsufficient {
		t.Fatalf("expected no anomaly without numeric columns, got %#v", res)
	}
}

func TestCheckEmptyResult(t *testing.T) {
	res := Check(result(t, dbconnector.Column{Name: "VALUE", Values: []dbconnector.Value{}}), DefaultThreshold)
	if res.Hit {
		t.Fatalf("expected no anomaly for zero rows")
	}
	if Check(nil, DefaultThreshold).Hit {
		t.Fatalf("expected no anomaly for nil result")
	}
}

func TestCheckAcrossColumnsIgnoresNulls(t *testing.T) {
	a := dbconnector.Column{Name: "A", Values: []dbconnector.Value{dbconnector.Number(-3), dbconnector.Null()}}
	b := dbconnector.Column{Name: "B", Values: []dbconnector.Value{dbconnector.Number(2), dbconnector.Number(9.5)}}
	res := Check(result(t, a, b), DefaultThreshold)
	if !res.Hit || res.Column != "B" || res.Max != 9.5 {
		t.Fatalf("unexpected result %#v", res)
	}
}

func TestMessageIsStable(t *testing.T) {
	if Message(6) != Message(6.0) {
		t.Fatalf("message must be identical across cycles")
	}
	if Message(6) == Message(7) {
		t.Fatalf("different thresholds need different messages")
	}
}
