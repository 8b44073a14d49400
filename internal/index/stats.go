package index

import (
	"context"
	"database/sql"
	"time"
)

// Count is a value with the number of records carrying it.
type Count struct {
	Name  string `json:"name" yaml:"name"`
	Count int    `json:"count" yaml:"count"`
}

// Stats summarises the index.
type Stats struct {
	Records       int        `json:"total_records" yaml:"total_records"`
	Files         int        `json:"files" yaml:"files"`
	Authors       int        `json:"authors" yaml:"authors"`
	Sources       int        `json:"sources" yaml:"sources"`
	FirstRecord   string     `json:"first_record,omitempty" yaml:"first_record,omitempty"`
	LastRecord    string     `json:"last_record,omitempty" yaml:"last_record,omitempty"`
	TopFiles      []Count    `json:"top_files" yaml:"top_files"`
	TopKinds      []Count    `json:"top_kinds" yaml:"top_kinds"`
	CachedCommits int        `json:"cached_commits" yaml:"cached_commits"`
	LastIngest    *time.Time `json:"last_ingest,omitempty" yaml:"last_ingest,omitempty"`
}

// CollectStats gathers Stats from db.
func CollectStats(ctx context.Context, db *sql.DB) (*Stats, error) {
	s := &Stats{}
	var first, last sql.NullString

	for _, q := range []struct {
		query string
		dest  any
	}{
		{"SELECT COUNT(*) FROM records", &s.Records},
		{"SELECT COUNT(DISTINCT file) FROM records WHERE file <> ''", &s.Files},
		{"SELECT COUNT(DISTINCT author) FROM records WHERE author <> ''", &s.Authors},
		{"SELECT COUNT(DISTINCT source_file) FROM records", &s.Sources},
		{"SELECT MIN(created_at) FROM records", &first},
		{"SELECT MAX(created_at) FROM records", &last},
		{"SELECT COUNT(*) FROM commits", &s.CachedCommits},
	} {
		if err := db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, err
		}
	}
	s.FirstRecord, s.LastRecord = first.String, last.String

	var err error
	if s.TopFiles, err = topCounts(ctx, db, "file"); err != nil {
		return nil, err
	}
	if s.TopKinds, err = topCounts(ctx, db, "kind"); err != nil {
		return nil, err
	}

	if v, ok, err := getMeta(ctx, db, metaIngestedAt); err != nil {
		return nil, err
	} else if ok {
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			s.LastIngest = &t
		}
	}
	return s, nil
}

// topCounts returns the five most common non-empty values of column.
// column is always a constant from this package.
func topCounts(ctx context.Context, db *sql.DB, column string) ([]Count, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+column+", COUNT(*) AS cnt FROM records WHERE "+column+" <> '' GROUP BY "+column+" ORDER BY cnt DESC, "+column+" LIMIT 5")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Count
	for rows.Next() {
		var c Count
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
