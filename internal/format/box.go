package format

import (
	"strings"
)

// minBoxInner is the narrowest body column a box will shrink to.
const minBoxInner = 30

// Box frames a record body. title is set into the top border and footer into
// the bottom one; either is dropped when it does not fit the width.
func Box(body, title, footer string, width int) string {
	inner := max(width-4, minBoxInner)

	var rows []string
	for _, para := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		rows = append(rows, wrapParagraph(para, inner)...)
	}

	out := make([]string, 0, len(rows)+2)
	out = append(out, "┌"+border(title, inner+2)+"┐")
	for _, r := range rows {
		out = append(out, "│ "+padOrTrunc(r, inner)+" │")
	}
	out = append(out, "└"+border(footer, inner+2)+"┘")
	return strings.Join(out, "\n")
}

// border is a horizontal rule of n runes with label inset after one dash.
func border(label string, n int) string {
	if label == "" {
		return strings.Repeat("─", n)
	}
	lbl := "─ " + label + " "
	if pad := n - runeLen(lbl); pad >= 0 {
		return lbl + strings.Repeat("─", pad)
	}
	return strings.Repeat("─", n)
}

// wrapParagraph word-wraps one line of a record body. Quote markers ("> ")
// repeat on every continuation row; list markers ("- ", "* ") become a
// hanging indent. Words longer than width get a row of their own.
func wrapParagraph(para string, width int) []string {
	if strings.TrimSpace(para) == "" {
		return []string{""}
	}

	first, cont, rest := splitMarker(para)
	words := strings.Fields(rest)
	avail := max(width-runeLen(first), 1)

	var rows []string
	prefix := first
	line := ""
	for _, w := range words {
		switch {
		case line == "":
			line = w
		case runeLen(line)+1+runeLen(w) <= avail:
			line += " " + w
		default:
			rows = append(rows, prefix+line)
			prefix, line = cont, w
		}
	}
	return append(rows, prefix+line)
}

// splitMarker separates a leading indent plus quote or list marker from the
// text, returning the first-row prefix and the continuation prefix.
func splitMarker(para string) (first, cont, rest string) {
	trimmed := strings.TrimLeft(para, " ")
	indent := para[:len(para)-len(trimmed)]

	quote := ""
	for strings.HasPrefix(trimmed, ">") {
		quote += ">"
		trimmed = strings.TrimPrefix(trimmed[1:], " ")
	}
	if quote != "" {
		first = indent + quote + " "
		return first, first, trimmed
	}

	for _, m := range []string{"- ", "* "} {
		if strings.HasPrefix(trimmed, m) {
			return indent + m, indent + strings.Repeat(" ", len(m)), trimmed[len(m):]
		}
	}
	return indent, indent, trimmed
}
