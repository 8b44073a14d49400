package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jensroland/git-lineage/internal/lineage"
	"github.com/jensroland/git-lineage/internal/resolve"
	"github.com/jensroland/git-lineage/internal/timeline"
)

// Options controls terminal rendering.
type Options struct {
	Verbose bool      // show resolution traces and record sources
	Width   int       // terminal width; 0 means TermWidth()
	Now     time.Time // reference for relative dates; zero means time.Now()
}

func (o Options) width() int {
	if o.Width > 0 {
		return o.Width
	}
	return TermWidth()
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now()
	}
	return o.Now
}

// when renders "2024-03-04 (3 months ago)".
func when(t time.Time, now time.Time) string {
	if t.IsZero() {
		return "?"
	}
	return fmt.Sprintf("%s (%s)", t.Format("2006-01-02"), humanize.RelTime(t, now, "ago", "from now"))
}

// FormatReport renders every analysis of a report, in report order.
func FormatReport(r *lineage.Report, opts Options) string {
	parts := []string{reportHeader(r)}
	for _, a := range r.Commits {
		parts = append(parts, FormatAnalysis(a, r.Path, opts))
	}
	return strings.Join(parts, "\n\n")
}

func reportHeader(r *lineage.Report) string {
	noun := "commits"
	if len(r.Commits) == 1 {
		noun = "commit"
	}
	header := fmt.Sprintf("%s%s%s %sL%s%s  %d %s", Bold, r.Path, Reset, Dim, r.Range, Reset, len(r.Commits), noun)
	if !r.Unattributed.IsEmpty() {
		header += fmt.Sprintf("\n%sL%s not committed yet%s", Yellow, r.Unattributed, Reset)
	}
	return header
}

// FormatAnalysis renders one commit: a header line, the selected lines,
// then its relevant hunks or a marker explaining why there are none.
// path is the file as the user named it.
func FormatAnalysis(a lineage.CommitAnalysis, path string, opts Options) string {
	c := a.Commit
	header := Dim + c.ShortID() + Reset + " " + Cyan + when(c.AuthoredDate, opts.now()) + Reset
	if c.Author != "" {
		header += " " + Blue + c.Author + Reset
	}
	if c.Subject != "" {
		header += "  " + Bold + c.Subject + Reset
	}
	parts := []string{header}

	lines := fmt.Sprintf("  %sLines:%s L%s", Magenta, Reset, a.AffectedLines)
	if a.PathUsed != "" && a.PathUsed != path {
		lines += fmt.Sprintf(" %s(then %s)%s", Dim, a.PathUsed, Reset)
	}
	parts = append(parts, lines)

	switch a.Status {
	case lineage.StatusNoDiff:
		parts = append(parts, fmt.Sprintf("  %s[no change found]%s %stried %s%s",
			Yellow, Reset, Dim, tierList(a.Trace), Reset))
	case lineage.StatusFailed:
		parts = append(parts, fmt.Sprintf("  %s[failed]%s %s", Red, Reset, a.Error))
	default:
		switch a.Coordinates {
		case lineage.Origin:
			parts = append(parts, fmt.Sprintf("  %smatched at L%s in that commit%s", Dim, a.OrigLines, Reset))
		case lineage.WholeDiff:
			parts = append(parts, fmt.Sprintf("  %sno hunk lines up with the selection; showing the whole change%s", Dim, Reset))
		}
		if a.Error != "" {
			parts = append(parts, fmt.Sprintf("  %sWarning:%s %s", Yellow, Reset, a.Error))
		}
		for _, h := range a.RelevantHunks {
			parts = append(parts, FormatHunk(h, opts.width()))
		}
	}

	if opts.Verbose {
		parts = append(parts, formatTrace(a.Trace)...)
	}
	return strings.Join(parts, "\n")
}

func tierList(t resolve.Trace) string {
	var names []string
	for _, tier := range t.Tiers() {
		names = append(names, string(tier))
	}
	return strings.Join(names, ", ")
}

func formatTrace(t resolve.Trace) []string {
	var out []string
	for _, at := range t.Attempts {
		line := fmt.Sprintf("  %sTrace:   %-8s %s  hunks=%d", Dim, at.Tier, at.Path, at.Hunks)
		if at.Err != "" {
			line += "  error=" + at.Err
		}
		out = append(out, line+Reset)
	}
	if t.Ambiguous {
		out = append(out, fmt.Sprintf("  %sTrace:   ambiguous basename, candidates %s%s",
			Dim, strings.Join(t.Candidates, ", "), Reset))
	}
	return out
}

// FormatRecord renders an external record. The body is boxed with the title
// and URL in its borders.
func FormatRecord(r timeline.Record, opts Options) string {
	header := Magenta + orDefault(r.Kind, "record") + Reset + " " + Cyan + when(r.CreatedAt, opts.now()) + Reset
	if r.Author != "" {
		header += " " + Blue + r.Author + Reset
	}
	parts := []string{header}

	if r.File != "" {
		loc := r.File
		if !r.Lines.IsEmpty() {
			loc += " L" + r.Lines.String()
		}
		parts = append(parts, fmt.Sprintf("  %s%s%s", Dim, loc, Reset))
	}
	if opts.Verbose && r.Commit != "" {
		parts = append(parts, fmt.Sprintf("  %sCommit:  %s%s", Dim, r.Commit, Reset))
	}

	if strings.TrimSpace(r.Body) == "" {
		if r.Title != "" {
			parts[0] += "  " + Bold + r.Title + Reset
		}
		if r.URL != "" {
			parts = append(parts, fmt.Sprintf("  %s%s%s", Dim, r.URL, Reset))
		}
		return strings.Join(parts, "\n")
	}

	w := opts.width()
	parts = append(parts, Box(r.Body, r.Title, r.URL, w))
	if r.URL != "" && runeLen(r.URL)+3 > max(w-4, minBoxInner)+2 {
		// too long for the border
		parts = append(parts, fmt.Sprintf("  %s%s%s", Dim, r.URL, Reset))
	}
	return strings.Join(parts, "\n")
}

// FormatTimeline renders the report header, then merged entries oldest first.
func FormatTimeline(r *lineage.Report, entries []timeline.Entry, opts Options) string {
	parts := []string{reportHeader(r)}
	for _, e := range entries {
		if e.IsCommit() {
			parts = append(parts, FormatAnalysis(*e.Analysis, r.Path, opts))
		} else {
			parts = append(parts, FormatRecord(*e.Record, opts))
		}
	}
	return strings.Join(parts, "\n\n")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
