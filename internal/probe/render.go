package probe

import (
	"fmt"
	"io"
	"strings"
)

// WriteText renders a profile as the aligned text block the CLI and the
// web UI both print.
func WriteText(w io.Writer, p *TableProfile) {
	fmt.Fprintf(w, "== %s: %d rows, %d blank, %d duplicate ==\n",
		p.Table, p.Rows, p.BlankRows, p.DuplicateRows)
	for _, c := range p.Columns {
		fmt.Fprintf(w, "  %-24s %-8s non-empty=%-6d empty=%-6d distinct=%-6d %s\n",
			c.Name, c.Suggested, c.NonEmpty, c.Empty, c.Distinct, strings.Join(c.Samples, ", "))
	}
	fmt.Fprintln(w)
}
