// Package inputval cleans user-entered text before it is stored.
// Contact and workspace fields are plain text; any markup that arrives
// is stripped, not escaped, so stored values render the same everywhere.
package inputval

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Clean strips all markup and surrounding whitespace from a
// single-line field.
func Clean(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}

// CleanMultiline strips markup from a free-text field, preserving
// interior line breaks.
func CleanMultiline(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(strict.Sanitize(line), " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
