package presentation

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/pterm/pterm"
)

// Console renders events for a terminal using pterm.
type Console struct {
	Out io.Writer

	mu sync.Mutex
}

func NewConsole(out io.Writer) *Console {
	if out == nil {
		out = os.Stdout
	}
	return &Console{Out: out}
}

func (c *Console) Publish(evt Event) {
	text := Render(evt)
	if text == "" {
		return
	}
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = io.WriteString(c.Out, text)
}

func Render(evt Event) string {
	switch evt.Level {
	case LevelTitle:
		return pterm.DefaultHeader.Sprint(evt.Text)
	case LevelTable:
		return renderTable(evt.Columns, evt.Rows)
	case LevelSuccess:
		return pterm.Success.Sprint(evt.Text)
	case LevelWarning:
		return pterm.Warning.Sprint(evt.Text)
	case LevelError:
		return pterm.Error.Sprint(evt.Text)
	case LevelInfo:
		return pterm.Info.Sprint(evt.Text)
	default:
		return evt.Text
	}
}

func renderTable(columns []string, rows [][]string) string {
	if len(columns) == 0 {
		return ""
	}
	data := make(pterm.TableData, 0, len(rows)+1)
	data = append(data, columns)
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return strings.Join(columns, " | ")
	}
	return out
}
