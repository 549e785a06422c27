package setupfile

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineStats counts raw text lines added, removed and changed between two
// setup exports. Comment and ordering edits show up here even when the
// parsed parameters are identical.
type LineStats struct {
	Added   int `json:"added"   yaml:"added"`
	Removed int `json:"removed" yaml:"removed"`
	Changed int `json:"changed" yaml:"changed"`
}

// CompareLines diffs baseline and candidate line by line.
func CompareLines(baseline, candidate string) LineStats {
	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(baseline, candidate)
	diffs := dmp.DiffMainRunes(src, dst, false)
	diffs = dmp.DiffCharsToLines(diffs, lines)

	var stats LineStats

	pending := 0

	for _, edit := range diffs {
		n := countLines(edit.Text)

		switch edit.Type {
		case diffmatchpatch.DiffEqual:
			stats.Removed += pending
			pending = 0
		case diffmatchpatch.DiffDelete:
			pending += n
		case diffmatchpatch.DiffInsert:
			if pending > n {
				stats.Changed += n
				stats.Removed += pending - n
			} else {
				stats.Changed += pending
				stats.Added += n - pending
			}

			pending = 0
		}
	}

	stats.Removed += pending

	return stats
}

func countLines(text string) int {
	if text == "" {
		return 0
	}

	n := strings.Count(text, "\n")
	if text[len(text)-1] != '\n' {
		n++
	}

	return n
}
