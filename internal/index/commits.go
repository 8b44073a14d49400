package index

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jensroland/git-lineage/internal/git"
	"github.com/jensroland/git-lineage/internal/logging"
)

// MetaFetcher is where cache misses are looked up; usually *git.Repo.
type MetaFetcher interface {
	CommitMeta(ctx context.Context, sha string) (git.CommitMeta, error)
}

// CommitCache stores commit metadata by SHA. Metadata never changes for a
// given SHA, so entries are never invalidated.
type CommitCache struct {
	db   *sql.DB
	next MetaFetcher
	log  logrus.FieldLogger
}

// NewCommitCache returns a cache over db that falls through to next.
func NewCommitCache(db *sql.DB, next MetaFetcher, log logrus.FieldLogger) *CommitCache {
	if log == nil {
		log = logging.Discard()
	}
	return &CommitCache{db: db, next: next, log: log}
}

// CommitMeta returns cached metadata, fetching and storing it on a miss.
// A failed cache read or write is logged and never fails the lookup.
func (c *CommitCache) CommitMeta(ctx context.Context, sha string) (git.CommitMeta, error) {
	meta, ok, err := c.Get(ctx, sha)
	if err != nil {
		c.log.WithError(err).Warn("commit cache read failed")
	}
	if ok {
		return meta, nil
	}

	meta, err = c.next.CommitMeta(ctx, sha)
	if err != nil {
		return git.CommitMeta{}, err
	}
	if err := c.Put(ctx, meta); err != nil {
		c.log.WithError(err).Warn("commit cache write failed")
	}
	return meta, nil
}

// Get looks sha up without falling through.
func (c *CommitCache) Get(ctx context.Context, sha string) (git.CommitMeta, bool, error) {
	var m git.CommitMeta
	var author, email, subject sql.NullString
	var date string
	err := c.db.QueryRowContext(ctx,
		"SELECT sha, author, author_email, authored_date, subject FROM commits WHERE sha = ?", sha,
	).Scan(&m.ID, &author, &email, &date, &subject)
	if err == sql.ErrNoRows {
		return git.CommitMeta{}, false, nil
	}
	if err != nil {
		return git.CommitMeta{}, false, err
	}

	m.AuthoredDate, err = time.Parse(time.RFC3339, date)
	if err != nil {
		return git.CommitMeta{}, false, fmt.Errorf("cached date for %s: %w", sha, err)
	}
	m.Author, m.AuthorEmail, m.Subject = author.String, email.String, subject.String
	return m, true, nil
}

// Put stores meta, replacing any existing row.
func (c *CommitCache) Put(ctx context.Context, meta git.CommitMeta) error {
	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO commits (sha, author, author_email, authored_date, subject)
		VALUES (?, ?, ?, ?, ?)
	`, meta.ID, meta.Author, meta.AuthorEmail, meta.AuthoredDate.Format(time.RFC3339), meta.Subject)
	return err
}
