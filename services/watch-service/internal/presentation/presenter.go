// Package presentation turns watcher output into display events and routes
// them to one or more sinks (terminal, log, in-memory buffer, NATS).
package presentation

import (
	"sync/atomic"
	"time"

	dbconnector "datawatch"
)

type Level string

const (
	LevelTitle   Level = "title"
	LevelText    Level = "text"
	LevelTable   Level = "table"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelInfo    Level = "info"
)

type Event struct {
	Seq     uint64     `json:"seq"`
	Session string     `json:"session,omitempty"`
	Level   Level      `json:"level"`
	Text    string     `json:"text,omitempty"`
	Columns []string   `json:"columns,omitempty"`
	Rows    [][]string `json:"rows,omitempty"`
	At      time.Time  `json:"at"`
}

// Presenter is what the refresh loop writes to. Implementations must be
// safe for use from one goroutine at a time per session.
type Presenter interface {
	ShowTitle(text string)
	ShowText(text string)
	ShowTable(result *dbconnector.QueryResult)
	ShowSuccess(text string)
	ShowWarning(text string)
	ShowError(text string)
	ShowInfo(text string)
}

type Sink interface {
	Publish(evt Event)
}

// Display implements Presenter on top of a Sink.
type Display struct {
	Session string
	Sink    Sink
	Now     func() time.Time

	seq atomic.Uint64
}

func NewDisplay(session string, sink Sink) *Display {
	return &Display{Session: session, Sink: sink, Now: time.Now}
}

func (d *Display) ShowTitle(text string)   { d.emit(Event{Level: LevelTitle, Text: text}) }
func (d *Display) ShowText(text string)    { d.emit(Event{Level: LevelText, Text: text}) }
func (d *Display) ShowSuccess(text string) { d.emit(Event{Level: LevelSuccess, Text: text}) }
func (d *Display) ShowWarning(text string) { d.emit(Event{Level: LevelWarning, Text: text}) }
func (d *Display) ShowError(text string)   { d.emit(Event{Level: LevelError, Text: text}) }
func (d *Display) ShowInfo(text string)    { d.emit(Event{Level: LevelInfo, Text: text}) }

func (d *Display) ShowTable(result *dbconnector.QueryResult) {
	columns, rows := tableData(result)
	d.emit(Event{Level: LevelTable, Columns: columns, Rows: rows})
}

func (d *Display) emit(evt Event) {
	if d.Sink == nil {
		return
	}
	evt.Seq = d.seq.Add(1)
	evt.Session = d.Session
	if d.Now != nil {
		evt.At = d.Now().UTC()
	} else {
		evt.At = time.Now().UTC()
	}
	d.Sink.Publish(evt)
}

func tableData(result *dbconnector.QueryResult) ([]string, [][]string) {
	if result == nil {
		return []string{}, [][]string{}
	}
	rows := make([][]string, result.RowCount())
	for i := range rows {
		cells := result.Row(i)
		row := make([]string, len(cells))
		for c, v := range cells {
			row[c] = v.String()
		}
		rows[i] = row
	}
	return result.ColumnNames(), rows
}
