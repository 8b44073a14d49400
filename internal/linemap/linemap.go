package linemap

import (
	"errors"

	"github.com/jensroland/git-lineage/internal/git"
	"github.com/jensroland/git-lineage/internal/lineset"
)

// Unattributed marks a line with no committed history.
const Unattributed = ""

// ErrNoHistory is returned when no line in the range has committed history.
var ErrNoHistory = errors.New("no committed history for the selected lines")

// Map is a dense line -> commit index over a fixed Range. Slot i holds the
// commit owning line rng.Start+i.
type Map struct {
	rng     lineset.Range
	commits []string
	orig    []int
	unique  []string
	paths   map[string]string
}

// FromPorcelain parses raw `git blame --porcelain` output and builds a Map.
func FromPorcelain(out []byte, rng lineset.Range) (*Map, error) {
	return Build(git.ParsePorcelainBlame(out), rng)
}

// Build maps every line of rng to the commit that last touched it. Lines
// with no entry, or with uncommitted content, map to Unattributed. Entries
// outside rng are ignored.
func Build(entries []git.BlameEntry, rng lineset.Range) (*Map, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}

	m := &Map{
		rng:     rng,
		commits: make([]string, rng.Len()),
		orig:    make([]int, rng.Len()),
		paths:   make(map[string]string),
	}
	for _, e := range entries {
		if !rng.Contains(e.Line) || e.IsUncommitted() {
			continue
		}
		m.commits[e.Line-rng.Start] = e.SHA
		m.orig[e.Line-rng.Start] = e.OrigLine
		if e.Filename != "" {
			m.paths[e.SHA] = e.Filename
		}
	}

	// first-seen order by ascending line
	seen := make(map[string]bool)
	for _, sha := range m.commits {
		if sha == Unattributed || seen[sha] {
			continue
		}
		seen[sha] = true
		m.unique = append(m.unique, sha)
	}

	if len(m.unique) == 0 {
		return nil, ErrNoHistory
	}
	return m, nil
}

// Path returns the file's path in commit sha as blame reported it, or "".
func (m *Map) Path(sha string) string {
	return m.paths[sha]
}

// Range returns the range the map covers.
func (m *Map) Range() lineset.Range {
	return m.rng
}

// Len returns the number of lines mapped; always Range().Len().
func (m *Map) Len() int {
	return len(m.commits)
}

// Commit returns the commit owning line. ok is false for lines outside the
// range; an in-range line with no history returns Unattributed, true.
func (m *Map) Commit(line int) (sha string, ok bool) {
	if !m.rng.Contains(line) {
		return "", false
	}
	return m.commits[line-m.rng.Start], true
}

// Unique returns the distinct commits in first-seen order.
func (m *Map) Unique() []string {
	return append([]string(nil), m.unique...)
}

// Lines returns the current line numbers owned by sha.
func (m *Map) Lines(sha string) lineset.LineSet {
	var lines []int
	for i, c := range m.commits {
		if c == sha && c != Unattributed {
			lines = append(lines, m.rng.Start+i)
		}
	}
	return lineset.New(lines...)
}

// OrigLines returns the line numbers sha's lines had in sha's own version of
// the file.
func (m *Map) OrigLines(sha string) lineset.LineSet {
	var lines []int
	for i, c := range m.commits {
		if c == sha && c != Unattributed && m.orig[i] > 0 {
			lines = append(lines, m.orig[i])
		}
	}
	return lineset.New(lines...)
}

// Unattributed returns the lines that have no committed history.
func (m *Map) Unattributed() lineset.LineSet {
	var lines []int
	for i, c := range m.commits {
		if c == Unattributed {
			lines = append(lines, m.rng.Start+i)
		}
	}
	return lineset.New(lines...)
}
