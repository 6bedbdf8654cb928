// Package merge3 performs line-oriented three-way text merges, the textual
// merge engine spec.md §6 names as an external collaborator and §4.7 step 6
// invokes for the MERGE log command.
//
// The approach mirrors the teacher's internal/merge package at the
// technique level — three inputs (base, mine, theirs), deterministic
// resolution where only one side changed a region, and an explicit conflict
// marker where both sides changed the same region differently — applied
// here to lines of text instead of struct fields.
package merge3

import (
	"bytes"
	"fmt"
)

// Result carries the merged text plus whether any hunk required conflict
// markers.
type Result struct {
	Text       []byte
	Conflicted bool
}

// Merge performs a three-way merge of base/mine/theirs, producing
// "<<<<<<< mineLabel" / "=======" / ">>>>>>> theirsLabel" conflict markers
// around any region both sides changed differently.
func Merge(base, mine, theirs []byte, mineLabel, theirsLabel string) Result {
	baseLines, baseNL := splitLines(base)
	mineLines, _ := splitLines(mine)
	theirsLines, _ := splitLines(theirs)

	mh := lcsDiff(baseLines, mineLines)
	th := lcsDiff(baseLines, theirsLines)

	var out []string
	conflicted := false

	mi, ti := 0, 0
	pos := 0
	for pos < len(baseLines) || mi < len(mh) || ti < len(th) {
		nextM := len(baseLines)
		if mi < len(mh) {
			nextM = mh[mi].baseStart
		}
		nextT := len(baseLines)
		if ti < len(th) {
			nextT = th[ti].baseStart
		}
		bound := min(nextM, nextT)
		if pos < bound {
			out = append(out, baseLines[pos:bound]...)
			pos = bound
			continue
		}
		if mi >= len(mh) && ti >= len(th) {
			break
		}

		// A hunk joins the region when it starts at the region's start or
		// inside it; one that merely touches the region's end is a separate,
		// non-overlapping change.
		regionStart := pos
		end := pos
		var mineChunk, theirsChunk []string
		touchedMine, touchedTheirs := false, false
		for {
			advanced := false
			if mi < len(mh) && (mh[mi].baseStart < end || mh[mi].baseStart == regionStart) {
				if mh[mi].baseEnd > end {
					end = mh[mi].baseEnd
				}
				mineChunk = append(mineChunk, mh[mi].lines...)
				touchedMine = true
				mi++
				advanced = true
			}
			if ti < len(th) && (th[ti].baseStart < end || th[ti].baseStart == regionStart) {
				if th[ti].baseEnd > end {
					end = th[ti].baseEnd
				}
				theirsChunk = append(theirsChunk, th[ti].lines...)
				touchedTheirs = true
				ti++
				advanced = true
			}
			if !advanced {
				break
			}
		}
		pos = end

		switch {
		case touchedMine && touchedTheirs:
			if linesEqual(mineChunk, theirsChunk) {
				out = append(out, mineChunk...)
			} else {
				conflicted = true
				out = append(out, fmt.Sprintf("<<<<<<< %s", mineLabel))
				out = append(out, mineChunk...)
				out = append(out, "=======")
				out = append(out, theirsChunk...)
				out = append(out, fmt.Sprintf(">>>>>>> %s", theirsLabel))
			}
		case touchedMine:
			out = append(out, mineChunk...)
		case touchedTheirs:
			out = append(out, theirsChunk...)
		}
	}

	return Result{Text: joinLines(out, baseNL), Conflicted: conflicted}
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// splitLines splits data into lines without trailing '\n', reporting
// whether the original data ended with a newline so joinLines can restore
// it symmetrically.
func splitLines(data []byte) ([]string, bool) {
	if len(data) == 0 {
		return nil, false
	}
	trailingNL := data[len(data)-1] == '\n'
	text := data
	if trailingNL {
		text = data[:len(data)-1]
	}
	parts := bytes.Split(text, []byte("\n"))
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = string(p)
	}
	return out, trailingNL
}

func joinLines(lines []string, trailingNL bool) []byte {
	joined := []byte(joinStrings(lines, "\n"))
	if trailingNL && len(lines) > 0 {
		joined = append(joined, '\n')
	}
	return joined
}

func joinStrings(ss []string, sep string) string {
	var buf bytes.Buffer
	for i, s := range ss {
		if i > 0 {
			buf.WriteString(sep)
		}
		buf.WriteString(s)
	}
	return buf.String()
}
