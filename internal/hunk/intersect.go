package hunk

import "github.com/jensroland/git-lineage/internal/lineset"

// Relevant reports whether h touches the selection. Either test admits the
// hunk: its new-side range overlaps target, or one of the affected lines
// falls inside it. A pure deletion has no new-side lines, so the affected
// test uses the two surviving lines around the deletion point instead.
func (h Hunk) Relevant(target lineset.Range, affected lineset.LineSet) bool {
	start, end := h.NewStart, h.NewEnd()
	if target.Overlaps(start, end) {
		return true
	}
	if h.NewCount == 0 {
		end = start + 1
	}
	return affected.Overlaps(start, end)
}

// Intersect returns the relevant hunks in file order.
func Intersect(hunks []Hunk, target lineset.Range, affected lineset.LineSet) []Hunk {
	var out []Hunk
	for _, h := range hunks {
		if h.Relevant(target, affected) {
			out = append(out, h)
		}
	}
	return out
}
