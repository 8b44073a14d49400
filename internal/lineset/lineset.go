package lineset

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// LineSet is a set of 1-based line numbers held as sorted, disjoint,
// non-adjacent spans. Its text form is the compact "5,7-8,12" notation.
// The zero value is the empty set.
type LineSet struct {
	spans []Range
}

// New builds a set from individual line numbers. Non-positive numbers are
// ignored; the argument slice is not modified.
func New(lines ...int) LineSet {
	sorted := slices.Clone(lines)
	slices.Sort(sorted)

	var b builder
	for _, n := range sorted {
		if n > 0 {
			b.add(Range{Start: n, End: n})
		}
	}
	return b.set()
}

// FromRange is the set [start, end]; empty unless 1 <= start <= end.
func FromRange(start, end int) LineSet {
	if start <= 0 || end < start {
		return LineSet{}
	}
	return LineSet{spans: []Range{{Start: start, End: end}}}
}

// FromString parses compact notation: "5", "5-7", "5,7-8,12". Parts may be
// unordered or overlapping.
func FromString(s string) (LineSet, error) {
	var spans []Range
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		r, err := parseSpan(part)
		if err != nil {
			return LineSet{}, err
		}
		spans = append(spans, r)
	}
	return fromSpans(spans), nil
}

func parseSpan(part string) (Range, error) {
	lo, hi, isSpan := strings.Cut(part, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		if isSpan {
			return Range{}, fmt.Errorf("invalid range start %q: %w", lo, err)
		}
		return Range{}, fmt.Errorf("invalid line number %q: %w", part, err)
	}
	end := start
	if isSpan {
		if end, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return Range{}, fmt.Errorf("invalid range end %q: %w", hi, err)
		}
	}
	if start < 1 || end < start {
		return Range{}, fmt.Errorf("invalid range %d-%d", start, end)
	}
	return Range{Start: start, End: end}, nil
}

// fromSpans normalises arbitrary valid spans.
func fromSpans(spans []Range) LineSet {
	sort.Slice(spans, func(i, j int) bool { return spans[i].Start < spans[j].Start })
	var b builder
	for _, r := range spans {
		b.add(r)
	}
	return b.set()
}

// builder coalesces spans fed in ascending Start order.
type builder struct {
	spans []Range
}

func (b *builder) add(r Range) {
	if n := len(b.spans); n > 0 && r.Start <= b.spans[n-1].End+1 {
		b.spans[n-1].End = max(b.spans[n-1].End, r.End)
		return
	}
	b.spans = append(b.spans, r)
}

func (b *builder) set() LineSet {
	return LineSet{spans: b.spans}
}

// Union returns every line in ls or other.
func (ls LineSet) Union(other LineSet) LineSet {
	all := make([]Range, 0, len(ls.spans)+len(other.spans))
	all = append(all, ls.spans...)
	all = append(all, other.spans...)
	return fromSpans(all)
}

// Spans returns the maximal contiguous runs in ascending order.
func (ls LineSet) Spans() []Range {
	return slices.Clone(ls.spans)
}

func (ls LineSet) String() string {
	parts := make([]string, len(ls.spans))
	for i, r := range ls.spans {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

func (ls LineSet) IsEmpty() bool {
	return len(ls.spans) == 0
}

// Lines expands the set into ascending line numbers; nil when empty.
func (ls LineSet) Lines() []int {
	if ls.IsEmpty() {
		return nil
	}
	out := make([]int, 0, ls.Len())
	for _, r := range ls.spans {
		for n := r.Start; n <= r.End; n++ {
			out = append(out, n)
		}
	}
	return out
}

func (ls LineSet) Len() int {
	n := 0
	for _, r := range ls.spans {
		n += r.Len()
	}
	return n
}

// Min is the smallest line, or 0 for the empty set.
func (ls LineSet) Min() int {
	if ls.IsEmpty() {
		return 0
	}
	return ls.spans[0].Start
}

// Max is the largest line, or 0 for the empty set.
func (ls LineSet) Max() int {
	if ls.IsEmpty() {
		return 0
	}
	return ls.spans[len(ls.spans)-1].End
}

// Bounds returns the smallest Range covering the set.
func (ls LineSet) Bounds() (Range, bool) {
	if ls.IsEmpty() {
		return Range{}, false
	}
	return Range{Start: ls.Min(), End: ls.Max()}, true
}

func (ls LineSet) Contains(line int) bool {
	return ls.Overlaps(line, line)
}

// Overlaps reports whether any line in [start, end] is in the set.
func (ls LineSet) Overlaps(start, end int) bool {
	if end < start {
		return false
	}
	// first span ending at or after start
	i := sort.Search(len(ls.spans), func(i int) bool { return ls.spans[i].End >= start })
	return i < len(ls.spans) && ls.spans[i].Start <= end
}

// MarshalJSON writes the compact notation, or null for the empty set.
func (ls LineSet) MarshalJSON() ([]byte, error) {
	if ls.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(ls.String())
}

// UnmarshalJSON accepts the compact notation or null.
func (ls *LineSet) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*ls = LineSet{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("line set must be a string like \"5,7-8\": %s", data)
	}
	parsed, err := FromString(s)
	if err != nil {
		return err
	}
	*ls = parsed
	return nil
}

// MarshalYAML mirrors MarshalJSON: the compact notation, or null for the
// empty set.
func (ls LineSet) MarshalYAML() (interface{}, error) {
	if ls.IsEmpty() {
		return nil, nil
	}
	return ls.String(), nil
}

// UnmarshalYAML accepts the compact notation, a bare line number, or null.
func (ls *LineSet) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line set must be a string like \"5,7-8\" (line %d)", value.Line)
	}
	if value.Tag == "!!null" {
		*ls = LineSet{}
		return nil
	}
	parsed, err := FromString(value.Value)
	if err != nil {
		return err
	}
	*ls = parsed
	return nil
}
