package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/pkg/merge"
)

var ErrPathOutsideRoot = errors.New("path escapes the project root")

// Resolver materialises one side of a three-way comparison. A missing
// artifact resolves to merge.Absent(); every other failure is an error.
type Resolver interface {
	Resolve(ctx context.Context, path string) (merge.Snapshot, error)
}

// ContentSource fetches file bodies from a template repository at a ref.
// *github.Client implements it.
type ContentSource interface {
	FileContent(ctx context.Context, path, ref string) (string, error)
}

type RemoteResolver struct {
	source ContentSource
	ref    string
}

// NewRemoteResolver resolves paths against the template at ref. An empty ref
// means the side does not exist, so every path resolves as absent.
func NewRemoteResolver(source ContentSource, ref string) *RemoteResolver {
	return &RemoteResolver{source: source, ref: ref}
}

func (r *RemoteResolver) Resolve(ctx context.Context, p string) (merge.Snapshot, error) {
	if r.ref == "" {
		return merge.Absent(), nil
	}

	content, err := r.source.FileContent(ctx, p, r.ref)
	if errors.Is(err, github.ErrNotFound) {
		return merge.Absent(), nil
	} else if err != nil {
		return merge.Snapshot{}, err
	}

	return merge.Present(content), nil
}

type LocalResolver struct {
	root string
}

// NewLocalResolver resolves slash separated paths relative to root.
func NewLocalResolver(root string) *LocalResolver {
	return &LocalResolver{root: root}
}

func (r *LocalResolver) Resolve(ctx context.Context, p string) (merge.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return merge.Snapshot{}, err
	}

	full, err := r.path(p)
	if err != nil {
		return merge.Snapshot{}, err
	}

	data, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return merge.Absent(), nil
	} else if err != nil {
		return merge.Snapshot{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	return merge.Present(string(data)), nil
}

func (r *LocalResolver) path(p string) (string, error) {
	local := filepath.FromSlash(p)
	if !filepath.IsLocal(local) {
		return "", fmt.Errorf("%w: %q", ErrPathOutsideRoot, p)
	}

	return filepath.Join(r.root, local), nil
}
