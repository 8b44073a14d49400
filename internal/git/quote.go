package git

import "strconv"

// UnquotePath undoes git's C-style quoting of a path ("dir/caf\303\251.go").
// Unquoted or malformed input is returned as is.
func UnquotePath(p string) string {
	if len(p) < 2 || p[0] != '"' || p[len(p)-1] != '"' {
		return p
	}
	if s, err := strconv.Unquote(p); err == nil {
		return s
	}
	return p
}

// literalPathArgs precede commands whose output names paths, so non-ASCII
// names come back verbatim instead of octal-escaped.
var literalPathArgs = []string{"-c", "core.quotePath=false"}

func withLiteralPaths(args ...string) []string {
	return append(append([]string(nil), literalPathArgs...), args...)
}
