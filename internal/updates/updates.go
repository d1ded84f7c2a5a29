package updates

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/templatesync/templatesync/internal/cache"
	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/env"
	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/version"
)

const DefaultCacheDuration = time.Hour

// Source lists the releases and tags of a template repository.
// *github.Client implements it.
type Source interface {
	Repository() string
	ListReleases(ctx context.Context) ([]github.Release, error)
	ListTags(ctx context.Context) ([]github.Tag, error)
}

type releaseCache struct {
	Releases []github.Release `json:"releases"`
}

type tagCache struct {
	Tags []github.Tag `json:"tags"`
}

type options struct {
	cacheDir string
	duration time.Duration
}

type Option func(*options)

// WithCacheDir overrides the default ~/.templatesync/cache location.
func WithCacheDir(dir string) Option {
	return func(o *options) {
		o.cacheDir = dir
	}
}

func WithCacheDuration(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.duration = d
		}
	}
}

func newOptions(opts []Option) options {
	o := options{duration: DefaultCacheDuration}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Releases returns the releases of the template repository, cached per
// repository for the cache duration.
func Releases(ctx context.Context, src Source, opts ...Option) ([]github.Release, error) {
	o := newOptions(opts)

	c, err := cache.NewFileCache[releaseCache](cache.CacheSettings{
		Key:       src.Repository(),
		Namespace: "template-releases",
		Duration:  o.duration,
		Dir:       o.cacheDir,
	})
	if err != nil {
		return nil, err
	}

	cached, err := cache.GetOrLoad(c, func() (*releaseCache, error) {
		releases, err := src.ListReleases(ctx)
		if err != nil {
			return nil, err
		}
		return &releaseCache{Releases: releases}, nil
	})
	if err != nil {
		return nil, err
	}

	return cached.Releases, nil
}

// Tags returns the tags of the template repository, cached like Releases.
func Tags(ctx context.Context, src Source, opts ...Option) ([]github.Tag, error) {
	o := newOptions(opts)

	c, err := cache.NewFileCache[tagCache](cache.CacheSettings{
		Key:       src.Repository(),
		Namespace: "template-tags",
		Duration:  o.duration,
		Dir:       o.cacheDir,
	})
	if err != nil {
		return nil, err
	}

	cached, err := cache.GetOrLoad(c, func() (*tagCache, error) {
		tags, err := src.ListTags(ctx)
		if err != nil {
			return nil, err
		}
		return &tagCache{Tags: tags}, nil
	})
	if err != nil {
		return nil, err
	}

	return cached.Tags, nil
}

// LatestTag returns the latest version tag of the template repository.
func LatestTag(ctx context.Context, src Source, opts ...Option) (string, bool, error) {
	tags, err := Tags(ctx, src, opts...)
	if err != nil {
		return "", false, err
	}

	latest, ok := version.FindLatest(lo.Map(tags, func(t github.Tag, _ int) string {
		return t.Name
	}))
	return latest, ok, nil
}

// LatestStableRelease returns the highest stable release, or nil when the
// repository has none.
func LatestStableRelease(ctx context.Context, src Source, opts ...Option) (*github.Release, error) {
	releases, err := Releases(ctx, src, opts...)
	if err != nil {
		return nil, err
	}

	stable := lo.Filter(releases, func(r github.Release, _ int) bool {
		return version.IsStableRelease(r.TagName, r.Draft, r.Prerelease)
	})
	if len(stable) == 0 {
		return nil, nil
	}

	latest := lo.MaxBy(stable, func(a, b github.Release) bool {
		return version.Compare(a.TagName, b.TagName) > 0
	})
	return &latest, nil
}

// GetNewerRelease returns the latest stable release if it is newer than
// current, and nil otherwise.
func GetNewerRelease(ctx context.Context, src Source, current string, opts ...Option) (*github.Release, error) {
	latest, err := LatestStableRelease(ctx, src, opts...)
	if err != nil || latest == nil {
		return nil, err
	}

	if current != "" && version.Compare(latest.TagName, current) <= 0 {
		return nil, nil
	}

	return latest, nil
}

// NotifyNewerRelease logs a notice when the template has a release newer than
// current. Failures are only logged since the check is advisory.
func NotifyNewerRelease(ctx context.Context, src Source, current string, opts ...Option) {
	if env.IsUpdateCheckDisabled() {
		return
	}

	logger := log.From(ctx)

	newer, err := GetNewerRelease(ctx, src, current, opts...)
	if err != nil {
		logger.WithStyle(styles.DimmedItalic).Printf("Could not check for template updates: %s\n", err.Error())
		return
	}
	if newer == nil {
		return
	}

	msg := fmt.Sprintf("A newer template release is available for %s: %s → %s", src.Repository(), displayVersion(current), newer.TagName)
	logger.WithInteractiveOnly().Println(styles.RenderWarningMessage(
		"Template update available",
		fmt.Sprintf("%s → %s", displayVersion(current), newer.TagName),
		"Run `templatesync plan --to "+newer.TagName+"` to preview the changes.",
	))
	if env.IsGithubAction() {
		logger.Warn(msg)
	}
}

func displayVersion(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}
