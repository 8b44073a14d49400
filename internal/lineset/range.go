package lineset

import (
	"fmt"
	"strconv"
	"strings"
)

// Range is a 1-based inclusive span of lines, Start <= End.
type Range struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// NewRange returns a validated Range.
func NewRange(start, end int) (Range, error) {
	r := Range{Start: start, End: end}
	return r, r.Validate()
}

// ParseRange accepts "42", "10,20", "10:20" or "10-20".
func ParseRange(s string) (Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Range{}, fmt.Errorf("empty line range")
	}

	sep := strings.IndexAny(s, ",:-")
	if sep < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return Range{}, fmt.Errorf("invalid line number %q: %w", s, err)
		}
		return NewRange(n, n)
	}

	start, err := strconv.Atoi(strings.TrimSpace(s[:sep]))
	if err != nil {
		return Range{}, fmt.Errorf("invalid range start %q: %w", s[:sep], err)
	}
	end, err := strconv.Atoi(strings.TrimSpace(s[sep+1:]))
	if err != nil {
		return Range{}, fmt.Errorf("invalid range end %q: %w", s[sep+1:], err)
	}
	return NewRange(start, end)
}

// Validate checks the 1-based inclusive invariant.
func (r Range) Validate() error {
	if r.Start < 1 {
		return fmt.Errorf("invalid line range %s: lines are 1-based", r)
	}
	if r.End < r.Start {
		return fmt.Errorf("invalid line range %s: end before start", r)
	}
	return nil
}

// Len is the number of lines covered.
func (r Range) Len() int {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Contains reports whether line falls inside the range.
func (r Range) Contains(line int) bool {
	return line >= r.Start && line <= r.End
}

// Overlaps reports whether [start, end] shares at least one line with r.
func (r Range) Overlaps(start, end int) bool {
	return end >= r.Start && start <= r.End
}

// Lines expands the range into a LineSet.
func (r Range) Lines() LineSet {
	return FromRange(r.Start, r.End)
}

func (r Range) String() string {
	if r.Start == r.End {
		return strconv.Itoa(r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}
