package git

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotARepository is returned when the root has no git metadata.
var ErrNotARepository = errors.New("not a git repository")

// UntrackedFileError reports a path that exists on disk but is not in the index.
type UntrackedFileError struct {
	Path string
}

func (e *UntrackedFileError) Error() string {
	return fmt.Sprintf("%s is not tracked by git", e.Path)
}

// FileNotFoundError reports a path that does not exist in the working tree.
type FileNotFoundError struct {
	Path string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("%s does not exist", e.Path)
}

// ToolError wraps a failed or timed-out git invocation.
type ToolError struct {
	Args     []string
	Stderr   string
	TimedOut bool
	Err      error
}

func (e *ToolError) Error() string {
	cmd := "git " + strings.Join(e.Args, " ")
	if e.TimedOut {
		return fmt.Sprintf("%s: timed out", cmd)
	}
	if e.Stderr != "" {
		return fmt.Sprintf("%s: %s", cmd, e.Stderr)
	}
	return fmt.Sprintf("%s: %v", cmd, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// IsRequestError reports whether err should abort a whole analysis rather
// than degrade a single commit.
func IsRequestError(err error) bool {
	var untracked *UntrackedFileError
	var missing *FileNotFoundError
	return errors.Is(err, ErrNotARepository) ||
		errors.As(err, &untracked) ||
		errors.As(err, &missing)
}
