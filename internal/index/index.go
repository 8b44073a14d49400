// Package index is the SQLite store behind the CLI: external records ingested
// from .lineage/records/*.jsonl, and a cache of commit metadata.
package index

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/jensroland/git-lineage/internal/logging"
	"github.com/jensroland/git-lineage/internal/project"
	"github.com/jensroland/git-lineage/internal/timeline"
)

const (
	metaIngestedAt = "records_ingested_at"
	metaFileCount  = "records_file_count"
)

const schema = `
	CREATE TABLE IF NOT EXISTS records (
		id TEXT NOT NULL,
		kind TEXT,
		author TEXT,
		title TEXT,
		body TEXT,
		url TEXT,
		file TEXT,
		changed_lines TEXT,
		line_start INTEGER,
		line_end INTEGER,
		commit_sha TEXT,
		created_at TEXT NOT NULL,
		source_file TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_records_file ON records(file);
	CREATE INDEX IF NOT EXISTS idx_records_commit ON records(commit_sha);
	CREATE INDEX IF NOT EXISTS idx_records_created ON records(created_at);

	CREATE TABLE IF NOT EXISTS commits (
		sha TEXT PRIMARY KEY,
		author TEXT,
		author_email TEXT,
		authored_date TEXT NOT NULL,
		subject TEXT
	);

	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
`

// Open opens (creating if needed) the index at paths.IndexDB and re-ingests
// records when forceRebuild is set or the records directory changed since
// the last ingest.
func Open(ctx context.Context, paths project.Paths, forceRebuild bool, log logrus.FieldLogger) (*sql.DB, error) {
	if log == nil {
		log = logging.Discard()
	}
	if err := os.MkdirAll(paths.CacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := sql.Open("sqlite", paths.IndexDB)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// One connection serialises writers from concurrent commit workers.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	stale, err := IsStale(ctx, db, paths)
	if err != nil {
		db.Close()
		return nil, err
	}
	if forceRebuild || stale {
		n, files, err := Rebuild(ctx, db, paths, log)
		if err != nil {
			db.Close()
			return nil, err
		}
		log.WithFields(logrus.Fields{"records": n, "files": files}).Info("record index rebuilt")
	}
	return db, nil
}

// IsStale reports whether the records directory has changed since the last
// ingest: a JSONL file is newer, or files were added or removed.
func IsStale(ctx context.Context, db *sql.DB, paths project.Paths) (bool, error) {
	ingested, ok, err := getMeta(ctx, db, metaIngestedAt)
	if err != nil {
		return false, err
	}
	files := recordFiles(paths.RecordsDir)
	if !ok {
		return len(files) > 0, nil
	}

	last, err := time.Parse(time.RFC3339Nano, ingested)
	if err != nil {
		return true, nil
	}
	if count, _, _ := getMeta(ctx, db, metaFileCount); count != strconv.Itoa(len(files)) {
		return true, nil
	}
	for _, f := range files {
		info, err := os.Stat(f)
		if err != nil {
			continue
		}
		if info.ModTime().After(last) {
			return true, nil
		}
	}
	return false, nil
}

// Rebuild replaces the records table with the contents of every JSONL file
// in paths.RecordsDir. Unparseable lines are skipped. The commit cache is
// left alone.
func Rebuild(ctx context.Context, db *sql.DB, paths project.Paths, log logrus.FieldLogger) (records, files int, err error) {
	if log == nil {
		log = logging.Discard()
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM records"); err != nil {
		return 0, 0, fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO records
		(id, kind, author, title, body, url, file, changed_lines,
		 line_start, line_end, commit_sha, created_at, source_file)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return 0, 0, err
	}
	defer stmt.Close()

	// Stamp before reading so a file written mid-ingest is picked up next time.
	started := time.Now()
	jsonl := recordFiles(paths.RecordsDir)
	for _, path := range jsonl {
		f, err := os.Open(path)
		if err != nil {
			log.WithError(err).WithField("file", path).Warn("skipping unreadable record file")
			continue
		}
		files++
		source := filepath.Base(path)

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		lineNo := 0
		for scanner.Scan() {
			lineNo++
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}

			var rec timeline.Record
			if err := json.Unmarshal([]byte(line), &rec); err != nil {
				log.WithFields(logrus.Fields{"file": source, "line": lineNo}).Debug("skipping malformed record")
				continue
			}
			if rec.ID == "" {
				rec.ID = fmt.Sprintf("%s:%d", source, lineNo)
			}

			var lineStart, lineEnd *int
			if b, ok := rec.Lines.Bounds(); ok {
				lineStart, lineEnd = &b.Start, &b.End
			}
			if _, err := stmt.ExecContext(ctx,
				rec.ID, rec.Kind, rec.Author, rec.Title, rec.Body, rec.URL, rec.File,
				rec.Lines.String(), lineStart, lineEnd, rec.Commit,
				rec.CreatedAt.UTC().Format(time.RFC3339Nano), source,
			); err != nil {
				f.Close()
				return 0, 0, fmt.Errorf("insert record %s: %w", rec.ID, err)
			}
			records++
		}
		f.Close()
	}

	if err := setMeta(ctx, tx, metaIngestedAt, started.UTC().Format(time.RFC3339Nano)); err != nil {
		return 0, 0, err
	}
	if err := setMeta(ctx, tx, metaFileCount, strconv.Itoa(len(jsonl))); err != nil {
		return 0, 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return records, files, nil
}

// recordFiles lists *.jsonl under dir, sorted by name for deterministic
// ingest order.
func recordFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".jsonl") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func setMeta(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx, "INSERT OR REPLACE INTO meta (key, value) VALUES (?, ?)", key, value)
	return err
}

func getMeta(ctx context.Context, db *sql.DB, key string) (string, bool, error) {
	var v string
	err := db.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
