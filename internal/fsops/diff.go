package fsops

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// maxPreviewLines bounds confirmation prompts for very large edits.
const maxPreviewLines = 200

// DiffPreview renders a line-oriented diff between prior and next
// content for confirmation prompts. Unchanged runs collapse to a count
// and the whole preview is truncated past maxPreviewLines.
func DiffPreview(prior, next []byte) string {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(string(prior), string(next))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder
	emitted := 0
	for _, d := range diffs {
		prefix := " "
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			prefix = "+"
		case diffmatchpatch.DiffDelete:
			prefix = "-"
		case diffmatchpatch.DiffEqual:
			n := strings.Count(d.Text, "\n")
			if n > 2 {
				fmt.Fprintf(&sb, "  ... %d unchanged lines ...\n", n)
				continue
			}
		}
		for _, line := range strings.Split(strings.TrimSuffix(d.Text, "\n"), "\n") {
			if emitted >= maxPreviewLines {
				sb.WriteString("  ... preview truncated ...\n")
				return sb.String()
			}
			sb.WriteString(prefix)
			sb.WriteString(" ")
			sb.WriteString(line)
			sb.WriteString("\n")
			emitted++
		}
	}
	return sb.String()
}
