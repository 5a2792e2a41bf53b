package gitrepo

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	godiff "github.com/sourcegraph/go-diff/diff"
)

// FileDiff is the unified diff of a single file.
type FileDiff struct {
	Path      string
	Text      string
	Additions int
	Deletions int
}

func (r *Repository) Diff(from, to string) ([]FileDiff, error) {
	fromCommit, err := r.repo.CommitObject(plumbing.NewHash(from))
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", from, err)
	}
	toCommit, err := r.repo.CommitObject(plumbing.NewHash(to))
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", to, err)
	}
	patch, err := fromCommit.Patch(toCommit)
	if err != nil {
		return nil, fmt.Errorf("diff %s..%s: %w", from, to, err)
	}
	return SplitUnified(patch.String())
}

// SplitUnified splits a multi-file unified diff into per-file diffs, in the
// order the files appear.
func SplitUnified(text string) ([]FileDiff, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	fds, err := godiff.ParseMultiFileDiff([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("parse diff: %w", err)
	}
	out := make([]FileDiff, 0, len(fds))
	for _, fd := range fds {
		printed, err := godiff.PrintFileDiff(fd)
		if err != nil {
			return nil, fmt.Errorf("print diff for %s: %w", fd.NewName, err)
		}
		add, del := countChanges(fd)
		out = append(out, FileDiff{
			Path:      diffPath(fd),
			Text:      string(printed),
			Additions: add,
			Deletions: del,
		})
	}
	return out, nil
}

func diffPath(fd *godiff.FileDiff) string {
	name := fd.NewName
	if name == "" || name == "/dev/null" {
		name = fd.OrigName
	}
	name = strings.TrimPrefix(name, "b/")
	return strings.TrimPrefix(name, "a/")
}

func countChanges(fd *godiff.FileDiff) (add, del int) {
	for _, h := range fd.Hunks {
		for _, line := range bytes.Split(h.Body, []byte("\n")) {
			if len(line) == 0 {
				continue
			}
			switch line[0] {
			case '+':
				add++
			case '-':
				del++
			}
		}
	}
	return add, del
}
