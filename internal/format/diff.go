package format

import (
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/jensroland/git-lineage/internal/hunk"
)

// MaxHunkRows caps how many rows of a single hunk are drawn.
const MaxHunkRows = 40

// minSideBySide is the narrowest terminal the two-column view is used on.
const minSideBySide = 60

// FormatHunk renders a hunk header followed by its lines, side by side when
// width allows and as a unified listing otherwise.
func FormatHunk(h hunk.Hunk, width int) string {
	header := fmt.Sprintf("%s@@ -%d,%d +%d,%d @@%s", Cyan, h.OldStart, h.OldCount, h.NewStart, h.NewCount, Reset)
	if h.Section != "" {
		header += " " + Dim + h.Section + Reset
	}
	if width < minSideBySide {
		return header + "\n" + unified(h)
	}

	var oldLines, newLines []string
	for _, l := range h.Lines {
		switch l.Kind {
		case hunk.Context:
			oldLines = append(oldLines, l.Text)
			newLines = append(newLines, l.Text)
		case hunk.Removed:
			oldLines = append(oldLines, l.Text)
		case hunk.Added:
			newLines = append(newLines, l.Text)
		}
	}
	return header + "\n" + SideBySide(strings.Join(oldLines, "\n"), strings.Join(newLines, "\n"), width)
}

func unified(h hunk.Hunk) string {
	var out []string
	for i, l := range h.Lines {
		if i == MaxHunkRows {
			out = append(out, fmt.Sprintf("  %s… %d more lines not shown%s", Dim, len(h.Lines)-MaxHunkRows, Reset))
			break
		}
		text := strings.ReplaceAll(l.Text, "\t", "    ")
		switch l.Kind {
		case hunk.Added:
			out = append(out, Green+"+"+text+Reset)
		case hunk.Removed:
			out = append(out, Red+"-"+text+Reset)
		default:
			out = append(out, Dim+" "+text+Reset)
		}
	}
	return strings.Join(out, "\n")
}

type diffRow struct {
	tag   string // "equal", "delete", "insert", "replace"
	left  *string
	right *string
}

// SideBySide renders a line-level diff of oldText and newText in two boxed
// columns filling width.
func SideBySide(oldText, newText string, width int) string {
	colW := (width - 7) / 2
	if colW < 20 {
		colW = 20
	}

	rows := lineRows(expandTabs(oldText), expandTabs(newText))
	totalRows := len(rows)
	truncated := totalRows > MaxHunkRows
	if truncated {
		rows = rows[:MaxHunkRows]
	}

	var output []string

	lblL := "─ Before "
	lblR := "─ After "
	output = append(output, fmt.Sprintf("┌%s%s┬%s%s┐",
		lblL, strings.Repeat("─", colW+2-runeLen(lblL)),
		lblR, strings.Repeat("─", colW+2-runeLen(lblR))))

	blank := strings.Repeat(" ", colW)
	for _, r := range rows {
		left, right := blank, blank
		if r.left != nil {
			left = padOrTrunc(*r.left, colW)
		}
		if r.right != nil {
			right = padOrTrunc(*r.right, colW)
		}

		switch r.tag {
		case "equal":
			left, right = Dim+left+Reset, Dim+right+Reset
		default:
			if r.left != nil {
				left = Red + left + Reset
			}
			if r.right != nil {
				right = Green + right + Reset
			}
		}
		output = append(output, fmt.Sprintf("│ %s │ %s │", left, right))
	}

	output = append(output, fmt.Sprintf("└%s┴%s┘",
		strings.Repeat("─", colW+2), strings.Repeat("─", colW+2)))

	if truncated {
		output = append(output, fmt.Sprintf("  %s… %d more lines not shown%s",
			Dim, totalRows-MaxHunkRows, Reset))
	}
	return strings.Join(output, "\n")
}

// lineRows pairs up old and new lines using a line-mode diff. Runs of
// deletions followed by insertions are zipped into "replace" rows.
func lineRows(oldLines, newLines []string) []diffRow {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(joinLines(oldLines), joinLines(newLines))
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var rows []diffRow
	var oldBuf, newBuf []string
	flush := func() {
		n := max(len(oldBuf), len(newBuf))
		for i := 0; i < n; i++ {
			var o, nw *string
			if i < len(oldBuf) {
				o = &oldBuf[i]
			}
			if i < len(newBuf) {
				nw = &newBuf[i]
			}
			tag := "replace"
			if o == nil {
				tag = "insert"
			} else if nw == nil {
				tag = "delete"
			}
			rows = append(rows, diffRow{tag: tag, left: o, right: nw})
		}
		oldBuf, newBuf = nil, nil
	}

	for _, d := range diffs {
		chunk := splitLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			for i := range chunk {
				rows = append(rows, diffRow{tag: "equal", left: &chunk[i], right: &chunk[i]})
			}
		case diffmatchpatch.DiffDelete:
			oldBuf = append(oldBuf, chunk...)
		case diffmatchpatch.DiffInsert:
			newBuf = append(newBuf, chunk...)
		}
	}
	flush()
	return rows
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

func splitLines(text string) []string {
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return []string{""}
	}
	return strings.Split(text, "\n")
}

func expandTabs(text string) []string {
	if text == "" {
		return nil
	}
	expanded := strings.ReplaceAll(text, "\t", "    ")
	return strings.Split(expanded, "\n")
}

func padOrTrunc(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
