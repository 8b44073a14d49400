package index

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jensroland/git-lineage/internal/lineset"
	"github.com/jensroland/git-lineage/internal/timeline"
)

// minCommitPrefix is the shortest abbreviated SHA a record may use.
const minCommitPrefix = 7

// Query selects records for one analysis.
type Query struct {
	File    string
	Range   lineset.Range
	Commits []string
}

// RecordsFor returns records that mention q.File (and, when they carry line
// numbers, overlap q.Range) or that reference one of q.Commits by full or
// abbreviated SHA. Results are ordered by creation time.
func RecordsFor(ctx context.Context, db *sql.DB, q Query) ([]timeline.Record, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, kind, author, title, body, url, file, changed_lines,
		       commit_sha, created_at
		FROM records
		WHERE file = ? OR commit_sha <> ''
		ORDER BY created_at, rowid
	`, q.File)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []timeline.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		if matchesCommit(rec.Commit, q.Commits) || matchesFile(rec, q) {
			out = append(out, rec)
		}
	}
	return out, rows.Err()
}

func matchesFile(rec timeline.Record, q Query) bool {
	if rec.File != q.File {
		return false
	}
	if rec.Lines.IsEmpty() {
		return true
	}
	return rec.Lines.Overlaps(q.Range.Start, q.Range.End)
}

func matchesCommit(ref string, commits []string) bool {
	if len(ref) < minCommitPrefix {
		return false
	}
	ref = strings.ToLower(ref)
	for _, c := range commits {
		if strings.HasPrefix(c, ref) {
			return true
		}
	}
	return false
}

func scanRecord(rows *sql.Rows) (timeline.Record, error) {
	var rec timeline.Record
	var kind, author, title, body, url, file, lines, commit sql.NullString
	var created string
	if err := rows.Scan(&rec.ID, &kind, &author, &title, &body, &url, &file, &lines, &commit, &created); err != nil {
		return rec, err
	}
	rec.Kind = kind.String
	rec.Author = author.String
	rec.Title = title.String
	rec.Body = body.String
	rec.URL = url.String
	rec.File = file.String
	rec.Commit = commit.String
	rec.Lines, _ = lineset.FromString(lines.String)
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return rec, nil
}
