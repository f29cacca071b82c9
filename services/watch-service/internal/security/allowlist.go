package security

import "strings"

type Allowlist struct {
	Tables []string
}

// AllowsTable matches case-insensitively; an empty list allows everything.
func (a Allowlist) AllowsTable(table string) bool {
	if len(a.Tables) == 0 {
		return true
	}
	for _, t := range a.Tables {
		if strings.EqualFold(t, table) {
			return true
		}
	}
	return false
}
