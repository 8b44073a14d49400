// Package timeline interleaves commit analyses with external records such as
// review comments or issue notes.
package timeline

import (
	"sort"
	"time"

	"github.com/jensroland/git-lineage/internal/lineage"
	"github.com/jensroland/git-lineage/internal/lineset"
)

// Record is a note made outside git that refers to a file or commit.
type Record struct {
	ID        string          `json:"id" yaml:"id"`
	Kind      string          `json:"kind" yaml:"kind"`
	Author    string          `json:"author,omitempty" yaml:"author,omitempty"`
	Title     string          `json:"title,omitempty" yaml:"title,omitempty"`
	Body      string          `json:"body,omitempty" yaml:"body,omitempty"`
	URL       string          `json:"url,omitempty" yaml:"url,omitempty"`
	File      string          `json:"file,omitempty" yaml:"file,omitempty"`
	Lines     lineset.LineSet `json:"lines" yaml:"lines"`
	Commit    string          `json:"commit,omitempty" yaml:"commit,omitempty"`
	CreatedAt time.Time       `json:"created_at" yaml:"created_at"`
}

// Entry is one timeline item. Exactly one of Analysis and Record is set.
type Entry struct {
	Time     time.Time               `json:"time" yaml:"time"`
	Analysis *lineage.CommitAnalysis `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Record   *Record                 `json:"record,omitempty" yaml:"record,omitempty"`
}

// IsCommit reports whether the entry wraps a commit analysis.
func (e Entry) IsCommit() bool {
	return e.Analysis != nil
}

// Merge returns analyses and records as one list ordered by time, oldest
// first. On equal times commits come before records, and each side keeps its
// input order.
func Merge(analyses []lineage.CommitAnalysis, records []Record) []Entry {
	entries := make([]Entry, 0, len(analyses)+len(records))
	for i := range analyses {
		a := &analyses[i]
		entries = append(entries, Entry{Time: a.Commit.AuthoredDate, Analysis: a})
	}
	for i := range records {
		r := &records[i]
		entries = append(entries, Entry{Time: r.CreatedAt, Record: r})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Time.Equal(entries[j].Time) {
			return entries[i].Time.Before(entries[j].Time)
		}
		return entries[i].IsCommit() && !entries[j].IsCommit()
	})
	return entries
}
