// Package hunk parses unified diffs into hunks and selects the hunks that
// touch a line range.
package hunk

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind classifies a line inside a hunk.
type Kind int

const (
	Context Kind = iota
	Added
	Removed
)

func (k Kind) String() string {
	switch k {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "context"
	}
}

// Marker returns the unified-diff prefix for k.
func (k Kind) Marker() byte {
	switch k {
	case Added:
		return '+'
	case Removed:
		return '-'
	default:
		return ' '
	}
}

// MarshalText encodes k by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "context":
		*k = Context
	case "added":
		*k = Added
	case "removed":
		*k = Removed
	default:
		return fmt.Errorf("unknown line kind %q", b)
	}
	return nil
}

// Line is one content line of a hunk, without its marker. Removed lines carry
// the preceding new-side line number in NewLine; added lines have OldLine 0.
type Line struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Text    string `json:"text" yaml:"text"`
	OldLine int    `json:"old_line,omitempty" yaml:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty" yaml:"new_line,omitempty"`
}

// Hunk is a contiguous block of a unified diff.
type Hunk struct {
	OldStart int    `json:"old_start" yaml:"old_start"`
	OldCount int    `json:"old_count" yaml:"old_count"`
	NewStart int    `json:"new_start" yaml:"new_start"`
	NewCount int    `json:"new_count" yaml:"new_count"`
	Header   string `json:"header" yaml:"header"`
	Section  string `json:"section,omitempty" yaml:"section,omitempty"`
	Lines    []Line `json:"lines" yaml:"lines"`
}

// NewEnd returns the last post-change line covered, NewStart-1 when the hunk
// has no new-side lines.
func (h Hunk) NewEnd() int {
	return h.NewStart + h.NewCount - 1
}

// Counts returns how many lines were added and removed.
func (h Hunk) Counts() (added, removed int) {
	for _, l := range h.Lines {
		switch l.Kind {
		case Added:
			added++
		case Removed:
			removed++
		}
	}
	return added, removed
}

// String renders the hunk back to unified diff text.
func (h Hunk) String() string {
	var b strings.Builder
	b.WriteString(h.Header)
	for _, l := range h.Lines {
		b.WriteByte('\n')
		b.WriteByte(l.Kind.Marker())
		b.WriteString(l.Text)
	}
	return b.String()
}

// Match: @@ -42,10 +42,15 @@ function name
var headerRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(.*)$`)

// ParseHeader parses a hunk header line. Missing counts default to 1.
func ParseHeader(line string) (Hunk, bool) {
	m := headerRegex.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, false
	}

	num := func(s string, def int) int {
		if s == "" {
			return def
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return def
		}
		return n
	}

	return Hunk{
		OldStart: num(m[1], 0),
		OldCount: num(m[2], 1),
		NewStart: num(m[3], 0),
		NewCount: num(m[4], 1),
		Header:   line,
		Section:  strings.TrimSpace(m[5]),
	}, true
}

// Parse extracts every hunk from a unified diff, ordered by NewStart.
//
// A hunk body ends once its old and new counts are consumed; anything after
// that up to the next header (file headers, "\ No newline" markers) is
// ignored. Inside a body, lines with an unknown leading character are
// skipped. Text is kept byte for byte.
func Parse(diff string) []Hunk {
	var hunks []Hunk
	var cur *Hunk
	var oldLeft, newLeft, oldLine, newLine int

	flush := func() {
		if cur != nil {
			hunks = append(hunks, *cur)
			cur = nil
		}
	}

	for _, raw := range strings.Split(diff, "\n") {
		if h, ok := ParseHeader(raw); ok {
			flush()
			cur = &h
			oldLeft, newLeft = h.OldCount, h.NewCount
			oldLine, newLine = h.OldStart, h.NewStart
			continue
		}
		if cur == nil || (oldLeft <= 0 && newLeft <= 0) || raw == "" {
			continue
		}

		switch raw[0] {
		case '+':
			cur.Lines = append(cur.Lines, Line{Kind: Added, Text: raw[1:], NewLine: newLine})
			newLine++
			newLeft--
		case '-':
			cur.Lines = append(cur.Lines, Line{Kind: Removed, Text: raw[1:], OldLine: oldLine, NewLine: newLine - 1})
			oldLine++
			oldLeft--
		case ' ':
			cur.Lines = append(cur.Lines, Line{Kind: Context, Text: raw[1:], OldLine: oldLine, NewLine: newLine})
			oldLine++
			newLine++
			oldLeft--
			newLeft--
		}
	}
	flush()

	sort.SliceStable(hunks, func(i, j int) bool { return hunks[i].NewStart < hunks[j].NewStart })
	return hunks
}
