package presentation

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pterm/pterm"

	dbconnector "datawatch"
)

func sampleResult(t *testing.T) *dbconnector.QueryResult {
	t.Helper()
	res, err := dbconnector.NewQueryResult([]dbconnector.Column{
		{Name: "EMPLOYEE_ID", Values: []dbconnector.Value{dbconnector.Number(1), dbconnector.Number(2)}},
		{Name: "NAME", Values: []dbconnector.Value{dbconnector.Text("Ada"), dbconnector.Null()}},
	})
	if err != nil {
		t.Fatalf("build result: %v", err)
	}
	return res
}

func TestDisplayEmitsOrderedEvents(t *testing.T) {
	buf := NewBuffer(10)
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	d := NewDisplay("s1", buf)
	d.Now = func() time.Time { return now }

	d.ShowTitle("Data Anomaly Detection")
	d.ShowTable(sampleResult(t))
	d.ShowError("Error running query: boom")

	events := buf.Since(0)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Level != LevelTitle || events[0].Seq != 1 || events[0].Session != "s1" || !events[0].At.Equal(now) {
		t.Fatalf("unexpected first event %#v", events[0])
	}
	table := events[1]
	if strings.Join(table.Columns, ",") != "EMPLOYEE_ID,NAME" {
		t.Fatalf("unexpected columns %v", table.Columns)
	}
	if len(table.Rows) != 2 || table.Rows[0][1] != "Ada" || table.Rows[1][1] != "NULL" {
		t.Fatalf("unexpected rows %v", table.Rows)
	}
	if got := buf.Since(2); len(got) != 1 || got[0].Level != LevelError {
		t.Fatalf("Since(2) = %#v", got)
	}
}

func TestBufferIsCapped(t *testing.T) {
	buf := NewBuffer(3)
	d := NewDisplay("s", buf)
	for i := 0; i < 5; i++ {
		d.ShowText("line")
	}
	events := buf.Since(0)
	if buf.Len() != 3 || events[0].Seq != 3 || events[2].Seq != 5 {
		t.Fatalf("expected newest three events, got %#v", events)
	}
}

func TestConsoleRendersText(t *testing.T) {
	pterm.DisableStyling()
	defer pterm.EnableStyling()

	var out bytes.Buffer
	d := NewDisplay("s", NewConsole(&out))
	d.ShowSuccess("Query executed successfully!")
	d.ShowText("Results (2 rows):")
	d.ShowTable(sampleResult(t))
	d.ShowWarning("Alert: too high")

	got := out.String()
	for _, want := range []string{"Query executed successfully!", "Results (2 rows):", "EMPLOYEE_ID", "Ada", "Alert: too high"} {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}
}

func TestLogSinkLevels(t *testing.T) {
	var out bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&out, &slog.HandlerOptions{Level: slog.LevelDebug}))
	d := NewDisplay("s", LogSink{Logger: logger})
	d.ShowError("broken")
	d.ShowTable(sampleResult(t))

	got := out.String()
	if !strings.Contains(got, `"level":"ERROR"`) || !strings.Contains(got, `"text":"broken"`) {
		t.Fatalf("missing error entry: %s", got)
	}
	if !strings.Contains(got, `"rows":2`) {
		t.Fatalf("missing table shape: %s", got)
	}
}

type recordingPublisher struct {
	subjects []string
	err      error
}

func (r *recordingPublisher) Publish(subject string, payload any) error {
	r.subjects = append(r.subjects, subject)
	return r.err
}

func TestFanoutAndNATSSink(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("no responders")}
	buf := NewBuffer(5)
	d := NewDisplay("s", Fanout{buf, nil, NATSSink{Publisher: pub, Subject: "datawatch.session.s"}})
	d.ShowInfo("Alert already sent for this issue.")

	if buf.Len() != 1 {
		t.Fatalf("buffer did not receive event")
	}
	if len(pub.subjects) != 1 || pub.subjects[0] != "datawatch.session.s" {
		t.Fatalf("unexpected publishes %v", pub.subjects)
	}
}
