package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/gobwas/glob"
	"github.com/samber/lo"
)

// CompilePatterns compiles slash separated glob patterns. `*` and `?` stay
// within one path segment, `**` crosses segments.
func CompilePatterns(patterns []string) ([]glob.Glob, error) {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", p, err)
		}
		globs = append(globs, g)
	}
	return globs, nil
}

func matchesAny(globs []glob.Glob, path string) bool {
	return lo.SomeBy(globs, func(g glob.Glob) bool {
		return g.Match(path)
	})
}

// FilterPaths keeps the paths matching at least one pattern. With no patterns
// every path is kept.
func FilterPaths(paths, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return paths, nil
	}

	globs, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	return lo.Filter(paths, func(p string, _ int) bool {
		return matchesAny(globs, p)
	}), nil
}

// DetectUserAdditions lists files under localDir matching any pattern that
// the template tree does not contain. Paths are slash separated, relative to
// localDir and sorted. The .git directory is never scanned and directories
// that cannot be read are skipped.
func DetectUserAdditions(ctx context.Context, tree []string, localDir string, patterns []string) ([]string, error) {
	globs, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	inTemplate := lo.Associate(tree, func(p string) (string, struct{}) {
		return p, struct{}{}
	})

	additions := []string{}
	err = filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return walkError(path, localDir, d, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if !matchesAny(globs, rel) {
			return nil
		}
		if _, ok := inTemplate[rel]; !ok {
			additions = append(additions, rel)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", localDir, err)
	}

	sort.Strings(additions)
	return additions, nil
}

// walkError decides how the additions scan treats a failed entry. Unreadable
// directories below root are skipped; an unreadable file only drops itself.
func walkError(path, root string, d fs.DirEntry, err error) error {
	if !errors.Is(err, fs.ErrPermission) || path == root {
		return err
	}
	if d != nil && d.IsDir() {
		return fs.SkipDir
	}
	return nil
}
