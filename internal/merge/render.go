package merge

import (
	"strings"
)

// BatchSeparator ends each action in a rendered script. It is a SQL comment
// so the script also runs under psql.
const BatchSeparator = "-- pgmerge:batch"

// RenderScript renders actions in order, each under a header comment and
// followed by BatchSeparator.
func RenderScript(actions []Action) string {
	var b strings.Builder
	for i, a := range actions {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString("-- ")
		b.WriteString(a.String())
		b.WriteString("\n")
		for _, cmd := range a.Commands() {
			b.WriteString(strings.TrimRight(cmd, "; \n"))
			b.WriteString(";\n")
		}
		b.WriteString(BatchSeparator)
		b.WriteString("\n")
	}
	return b.String()
}
