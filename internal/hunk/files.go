package hunk

import (
	"strings"

	"github.com/jensroland/git-lineage/internal/git"
)

// FileSection is the slice of a multi-file diff that belongs to one file.
type FileSection struct {
	OldPath string
	NewPath string
	Text    string
}

// Path returns the post-change path, or the old one for deletions.
func (f FileSection) Path() string {
	if f.NewPath != "" && f.NewPath != "/dev/null" {
		return f.NewPath
	}
	return f.OldPath
}

// SplitFiles splits git diff output at each "diff --git" line. Paths come
// from the "---"/"+++" headers when present, else from the diff line.
func SplitFiles(diff string) []FileSection {
	var sections []FileSection
	var cur *FileSection
	var body []string

	flush := func() {
		if cur != nil {
			cur.Text = strings.Join(body, "\n")
			sections = append(sections, *cur)
		}
		cur, body = nil, nil
	}

	inHunk := false
	for _, line := range strings.Split(diff, "\n") {
		if strings.HasPrefix(line, "diff --git ") {
			flush()
			oldPath, newPath := parseDiffLine(line)
			cur = &FileSection{OldPath: oldPath, NewPath: newPath}
			body = append(body, line)
			inHunk = false
			continue
		}
		if cur == nil {
			continue
		}
		body = append(body, line)

		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if inHunk {
			continue
		}
		switch {
		case strings.HasPrefix(line, "--- "):
			if p := stripPrefix(line[4:], "a/"); p != "" {
				cur.OldPath = p
			}
		case strings.HasPrefix(line, "+++ "):
			if p := stripPrefix(line[4:], "b/"); p != "" {
				cur.NewPath = p
			}
		case strings.HasPrefix(line, "rename from "):
			cur.OldPath = git.UnquotePath(strings.TrimPrefix(line, "rename from "))
		case strings.HasPrefix(line, "rename to "):
			cur.NewPath = git.UnquotePath(strings.TrimPrefix(line, "rename to "))
		}
	}
	flush()
	return sections
}

// parseDiffLine reads "diff --git a/x b/y", where either path may be
// C-quoted. Unquoted paths with spaces are ambiguous here; the ---/+++
// headers override them.
func parseDiffLine(line string) (string, string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	if strings.HasPrefix(rest, "\"") || strings.HasSuffix(rest, "\"") {
		oldTok, newTok, ok := splitQuotedPair(rest)
		if !ok {
			return "", ""
		}
		return strings.TrimPrefix(git.UnquotePath(oldTok), "a/"), strings.TrimPrefix(git.UnquotePath(newTok), "b/")
	}
	idx := strings.Index(rest, " b/")
	if idx < 0 {
		return "", ""
	}
	return strings.TrimPrefix(rest[:idx], "a/"), rest[idx+3:]
}

// splitQuotedPair splits two space-separated path tokens, each either plain
// or a quoted string with backslash escapes.
func splitQuotedPair(s string) (first, second string, ok bool) {
	if strings.HasPrefix(s, "\"") {
		end := closingQuote(s)
		if end < 0 || end+1 >= len(s) || s[end+1] != ' ' {
			return "", "", false
		}
		return s[:end+1], s[end+2:], true
	}
	// plain first path, quoted second
	idx := strings.Index(s, " \"")
	if idx < 0 {
		return "", "", false
	}
	return s[:idx], s[idx+1:], true
}

// closingQuote returns the index of the quote ending the string that opens
// s[0], or -1.
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

func stripPrefix(p, prefix string) string {
	p = git.UnquotePath(strings.TrimSuffix(p, "\t"))
	if p == "/dev/null" {
		return p
	}
	return strings.TrimPrefix(p, prefix)
}
