package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
)

// EmptyTreeSHA is the object id of the empty tree, used as the "parent" of a
// root commit.
const EmptyTreeSHA = "4b825dc642cb6eb9a060e54bf8d69288fbee4904"

// CommitMeta is the metadata needed to describe a commit.
type CommitMeta struct {
	ID           string    `json:"id" yaml:"id"`
	Author       string    `json:"author" yaml:"author"`
	AuthorEmail  string    `json:"author_email,omitempty" yaml:"author_email,omitempty"`
	AuthoredDate time.Time `json:"authored_date" yaml:"authored_date"`
	Subject      string    `json:"subject" yaml:"subject"`
}

// ShortID returns the abbreviated commit id.
func (m CommitMeta) ShortID() string {
	if len(m.ID) > 8 {
		return m.ID[:8]
	}
	return m.ID
}

// CommitMeta fetches author, date and subject for sha.
func (r *Repo) CommitMeta(ctx context.Context, sha string) (CommitMeta, error) {
	out, err := r.Git(ctx, "show", "-s", "--no-color", "--no-decorate", "--format=fuller", sha)
	if err != nil {
		return CommitMeta{}, err
	}
	return ParseCommitHeader(string(out))
}

// ParseCommitHeader parses `git show -s --format=fuller` output.
func ParseCommitHeader(text string) (CommitMeta, error) {
	hdr, err := gitdiff.ParsePatchHeader(text)
	if err != nil {
		return CommitMeta{}, fmt.Errorf("parse commit header: %w", err)
	}
	if hdr.SHA == "" {
		return CommitMeta{}, fmt.Errorf("parse commit header: missing commit id")
	}

	meta := CommitMeta{
		ID:           hdr.SHA,
		AuthoredDate: hdr.AuthorDate,
		Subject:      hdr.Title,
	}
	if hdr.Author != nil {
		meta.Author = hdr.Author.Name
		meta.AuthorEmail = hdr.Author.Email
	}
	return meta, nil
}

// DiffAtCommit returns the patch sha introduced to a single path, as stored:
// external diff drivers and textconv filters are off.
func (r *Repo) DiffAtCommit(ctx context.Context, sha, path string) (string, error) {
	out, err := r.Git(ctx, withLiteralPaths("show", "--format=", "--no-color", "--no-ext-diff", "--no-textconv", sha, "--", path)...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// ChangedFiles lists every path sha modified, in git's order.
func (r *Repo) ChangedFiles(ctx context.Context, sha string) ([]string, error) {
	out, err := r.Git(ctx, "show", "--format=", "--name-only", "-z", "--no-color", sha)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, name := range strings.Split(string(out), "\x00") {
		// -z leaves names unquoted; only the separator newline can precede one
		if name = strings.TrimLeft(name, "\n"); name != "" {
			files = append(files, name)
		}
	}
	return files, nil
}

// FirstParent returns the first parent of sha, or EmptyTreeSHA for a root commit.
func (r *Repo) FirstParent(ctx context.Context, sha string) (string, error) {
	out, err := r.Git(ctx, "rev-list", "--parents", "-n", "1", sha)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(string(out))
	if len(fields) < 2 {
		return EmptyTreeSHA, nil
	}
	return fields[1], nil
}

// ParentDiff diffs sha against its first parent, restricted to pathspec.
func (r *Repo) ParentDiff(ctx context.Context, sha, pathspec string) (string, error) {
	parent, err := r.FirstParent(ctx, sha)
	if err != nil {
		return "", err
	}
	out, err := r.Git(ctx, withLiteralPaths("diff", "--no-color", "--no-ext-diff", "--no-textconv", parent, sha, "--", pathspec)...)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// BasenamePathspec matches files called name in any directory. Glob
// metacharacters in name match only themselves.
func BasenamePathspec(name string) string {
	var b strings.Builder
	b.WriteString(":(glob)**/")
	for _, c := range name {
		if strings.ContainsRune(`*?[]\`, c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
