package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gitc "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// initTestRepo creates a temporary git repository with an initial commit on "main".
func initTestRepo(t *testing.T) (*Repository, string) {
	t.Helper()

	dir := t.TempDir()

	repo, err := gitc.PlainInitWithOptions(dir, &gitc.PlainInitOptions{
		InitOptions: gitc.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName("main"),
		},
	})
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# test"), 0o644))

	_, err = wt.Add("README.md")
	require.NoError(t, err)

	_, err = wt.Commit("initial commit", &gitc.CommitOptions{
		Author: &object.Signature{
			Name:  "test",
			Email: "test@test.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return &Repository{repo: repo}, dir
}

var backupTime = time.Date(2026, 1, 2, 3, 4, 5, 678_000_000, time.UTC)

func TestOpenRepository_NotARepository(t *testing.T) {
	t.Parallel()

	_, err := OpenRepository(t.TempDir())
	assert.ErrorIs(t, err, ErrNotARepository)
}

func TestOpenRepository_Subdirectory(t *testing.T) {
	t.Parallel()

	_, dir := initTestRepo(t)
	sub := filepath.Join(dir, "src", "nested")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	r, err := OpenRepository(sub)
	require.NoError(t, err)

	branch, err := r.HeadBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)
}

func TestHeadBranch_DetachedHEAD(t *testing.T) {
	t.Parallel()

	r, _ := initTestRepo(t)

	head, err := r.repo.Head()
	require.NoError(t, err)

	wt, err := r.repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&gitc.CheckoutOptions{Hash: head.Hash()}))

	branch, err := r.HeadBranch()
	require.NoError(t, err)
	assert.Empty(t, branch)
}

func TestCheckClean(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(t *testing.T, dir string)
		wantErr bool
	}{
		{
			name:   "clean worktree",
			mutate: func(t *testing.T, dir string) {},
		},
		{
			name: "modified tracked file",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# changed"), 0o644))
			},
			wantErr: true,
		},
		{
			name: "untracked file",
			mutate: func(t *testing.T, dir string) {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r, dir := initTestRepo(t)
			tt.mutate(t, dir)

			err := r.CheckClean()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrDirtyWorktree)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBackupBranchName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "template-backup/20260102030405", BackupBranchName("template-backup", backupTime))

	local := backupTime.In(time.FixedZone("UTC+5", 5*60*60))
	assert.Equal(t, "template-backup/20260102030405", BackupBranchName("template-backup", local))
}

func TestCreateBackupBranch(t *testing.T) {
	t.Parallel()

	r, _ := initTestRepo(t)

	name, err := r.CreateBackupBranch("template-backup", backupTime)
	require.NoError(t, err)
	assert.Equal(t, "template-backup/20260102030405", name)

	// HEAD stays on the original branch.
	branch, err := r.HeadBranch()
	require.NoError(t, err)
	assert.Equal(t, "main", branch)

	head, err := r.HeadHash()
	require.NoError(t, err)
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), false)
	require.NoError(t, err)
	assert.Equal(t, head, ref.Hash().String())

	branches, err := r.Branches("template-backup/")
	require.NoError(t, err)
	assert.Equal(t, []string{name}, branches)

	_, err = r.CreateBackupBranch("template-backup", backupTime)
	assert.ErrorContains(t, err, "already exists")
}

func TestCreateBackupBranch_DirtyWorktree(t *testing.T) {
	t.Parallel()

	r, dir := initTestRepo(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("# changed"), 0o644))

	_, err := r.CreateBackupBranch("template-backup", backupTime)
	assert.ErrorIs(t, err, ErrDirtyWorktree)

	branches, err := r.Branches("template-backup/")
	require.NoError(t, err)
	assert.Empty(t, branches)
}

func TestCreateBackupBranch_InvalidPrefix(t *testing.T) {
	t.Parallel()

	r, _ := initTestRepo(t)

	for _, prefix := range []string{"", "/", "has space", "a..b"} {
		_, err := r.CreateBackupBranch(prefix, backupTime)
		assert.Error(t, err, prefix)
	}
}

func TestValidateBackupPrefix(t *testing.T) {
	t.Parallel()

	for _, prefix := range []string{"backup/template", "/backup/", "pre-sync"} {
		assert.NoError(t, ValidateBackupPrefix(prefix), prefix)
	}
	for _, prefix := range []string{"", "/", "has space", "a..b", "what?", "x~1"} {
		assert.ErrorContains(t, ValidateBackupPrefix(prefix), "invalid backup branch prefix", prefix)
	}
}

func TestCreateBackupBranch_NoCommits(t *testing.T) {
	t.Parallel()

	repo, err := gitc.PlainInit(t.TempDir(), false)
	require.NoError(t, err)

	r := &Repository{repo: repo}
	_, err = r.CreateBackupBranch("template-backup", backupTime)
	assert.ErrorIs(t, err, ErrNoCommits)
}
