package git

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	gitc "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// backupTimestampFormat keeps branch names sortable and free of characters
// git refuses in ref names.
const backupTimestampFormat = "20060102150405"

var (
	ErrNotARepository = errors.New("not a git repository")
	ErrDirtyWorktree  = errors.New("uncommitted changes detected, commit or stash them before updating")
	ErrNoCommits      = errors.New("repository has no commits")
)

type Repository struct {
	repo *gitc.Repository
}

// OpenRepository opens the git repository containing dir, searching parent
// directories for the .git folder.
func OpenRepository(dir string) (*Repository, error) {
	repo, err := gitc.PlainOpenWithOptions(dir, &gitc.PlainOpenOptions{
		DetectDotGit: true,
	})
	if errors.Is(err, gitc.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotARepository, dir)
	} else if err != nil {
		return nil, fmt.Errorf("git: %w", err)
	}

	return &Repository{repo: repo}, nil
}

func (r *Repository) HeadHash() (string, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", ErrNoCommits
	} else if err != nil {
		return "", fmt.Errorf("git: %w", err)
	}

	return head.Hash().String(), nil
}

// HeadBranch returns the short name of the checked out branch, or an empty
// string when HEAD is detached.
func (r *Repository) HeadBranch() (string, error) {
	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", ErrNoCommits
	} else if err != nil {
		return "", fmt.Errorf("git: %w", err)
	}

	if !head.Name().IsBranch() {
		return "", nil
	}
	return head.Name().Short(), nil
}

// DirtyFiles lists modified, staged and untracked paths, sorted.
func (r *Repository) DirtyFiles() ([]string, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("git: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("git: failed to read status: %w", err)
	}

	var files []string
	for path, s := range status {
		if s.Staging == gitc.Unmodified && s.Worktree == gitc.Unmodified {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)

	return files, nil
}

// CheckClean fails with ErrDirtyWorktree when the worktree has uncommitted or
// untracked changes.
func (r *Repository) CheckClean() error {
	files, err := r.DirtyFiles()
	if err != nil {
		return err
	}

	if len(files) > 0 {
		return fmt.Errorf("%w (%s)", ErrDirtyWorktree, strings.Join(files, ", "))
	}
	return nil
}

// BackupBranchName returns <prefix>/<UTC timestamp>.
func BackupBranchName(prefix string, now time.Time) string {
	return prefix + "/" + now.UTC().Format(backupTimestampFormat)
}

// ValidateBackupPrefix rejects prefixes that cannot start a branch name.
func ValidateBackupPrefix(prefix string) error {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" || strings.ContainsAny(prefix, " ~^:?*[\\") || strings.Contains(prefix, "..") {
		return fmt.Errorf("invalid backup branch prefix %q", prefix)
	}
	return nil
}

// CreateBackupBranch points a new branch named after prefix and now at HEAD.
// The checked out branch does not change. The worktree must be clean.
func (r *Repository) CreateBackupBranch(prefix string, now time.Time) (string, error) {
	if err := r.CheckClean(); err != nil {
		return "", err
	}

	head, err := r.repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", ErrNoCommits
	} else if err != nil {
		return "", fmt.Errorf("git: %w", err)
	}

	prefix = strings.Trim(prefix, "/")
	if err := ValidateBackupPrefix(prefix); err != nil {
		return "", err
	}

	name := BackupBranchName(prefix, now)
	refName := plumbing.NewBranchReferenceName(name)

	if _, err := r.repo.Reference(refName, false); err == nil {
		return "", fmt.Errorf("branch %s already exists", name)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(refName, head.Hash())); err != nil {
		return "", fmt.Errorf("failed to create backup branch: %w", err)
	}

	return name, nil
}

// Branches lists local branch names starting with prefix, sorted.
func (r *Repository) Branches(prefix string) ([]string, error) {
	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("git: %w", err)
	}
	defer iter.Close()

	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if name := ref.Name().Short(); strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("git: %w", err)
	}
	sort.Strings(names)

	return names, nil
}
