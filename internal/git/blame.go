package git

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/jensroland/git-lineage/internal/lineset"
)

// BlameEntry holds parsed git blame data for a single line.
type BlameEntry struct {
	SHA      string // 40-char commit SHA (0000... for uncommitted)
	Line     int    // 1-based line number in current file
	OrigLine int    // 1-based line number in the original commit
	Filename string // path of the file in the commit that wrote the line
}

// IsUncommitted returns true if the blame entry is for uncommitted content.
func (e BlameEntry) IsUncommitted() bool {
	return strings.TrimLeft(e.SHA, "0") == ""
}

// BlameRange runs git blame -L start,end on a file and returns the raw
// porcelain output. Only the requested lines are blamed.
func (r *Repo) BlameRange(ctx context.Context, file string, rng lineset.Range) ([]byte, error) {
	if err := rng.Validate(); err != nil {
		return nil, err
	}
	// no textconv: line numbers must be those of the file on disk
	out, err := r.Git(ctx, withLiteralPaths("blame", "--porcelain", "--no-textconv",
		"-L", fmt.Sprintf("%d,%d", rng.Start, rng.End), "--", file)...)
	if err != nil {
		return nil, fmt.Errorf("git blame -L %d,%d %s: %w", rng.Start, rng.End, file, err)
	}
	return out, nil
}

// ParsePorcelainBlame parses git blame --porcelain output into entries
// ordered by final line number.
//
// Porcelain format:
//
//	<40-byte SHA> <orig-line> <final-line> [<num-lines>]
//	header lines...
//	\t<actual line content>
//
// Commit headers (author, summary, filename, ...) are only emitted the first
// time a SHA appears, so the filename is tracked per SHA.
func ParsePorcelainBlame(out []byte) []BlameEntry {
	byLine := make(map[int]BlameEntry)
	filenames := make(map[string]string)

	var currentSHA string
	for _, line := range strings.Split(string(out), "\n") {
		if line == "" || strings.HasPrefix(line, "\t") {
			continue
		}

		if name, ok := strings.CutPrefix(line, "filename "); ok {
			if currentSHA != "" {
				filenames[currentSHA] = UnquotePath(name)
			}
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 3 || !isHexSHA(fields[0]) {
			// author, committer, summary, previous, boundary, ...
			continue
		}

		origLine, err1 := strconv.Atoi(fields[1])
		finalLine, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || finalLine <= 0 {
			continue
		}
		currentSHA = fields[0]
		byLine[finalLine] = BlameEntry{
			SHA:      currentSHA,
			Line:     finalLine,
			OrigLine: origLine,
		}
	}

	entries := make([]BlameEntry, 0, len(byLine))
	for _, e := range byLine {
		e.Filename = filenames[e.SHA]
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Line < entries[j].Line })
	return entries
}

func isHexSHA(s string) bool {
	if len(s) != 40 && len(s) != 64 {
		return false
	}
	for _, c := range s {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return false
		}
	}
	return true
}
