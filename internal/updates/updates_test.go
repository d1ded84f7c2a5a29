package updates

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/internal/log"
)

type fakeSource struct {
	releases     []github.Release
	tags         []github.Tag
	err          error
	releaseCalls int
	tagCalls     int
}

func (f *fakeSource) Repository() string { return "acme/starter" }

func (f *fakeSource) ListReleases(ctx context.Context) ([]github.Release, error) {
	f.releaseCalls++
	return f.releases, f.err
}

func (f *fakeSource) ListTags(ctx context.Context) ([]github.Tag, error) {
	f.tagCalls++
	return f.tags, f.err
}

func TestGetNewerRelease(t *testing.T) {
	t.Parallel()

	releases := []github.Release{
		{TagName: "v1.2.0"},
		{TagName: "v1.10.0"},
		{TagName: "v2.0.0-rc.1"},
		{TagName: "v3.0.0", Draft: true},
		{TagName: "v1.11.0", Prerelease: true},
		{TagName: "nightly"},
	}

	tests := []struct {
		name     string
		releases []github.Release
		current  string
		want     string
	}{
		{name: "newer release available", releases: releases, current: "v1.2.0", want: "v1.10.0"},
		{name: "up to date", releases: releases, current: "v1.10.0", want: ""},
		{name: "ahead of latest release", releases: releases, current: "v1.12.0", want: ""},
		{name: "no current version", releases: releases, current: "", want: "v1.10.0"},
		{name: "no stable releases", releases: []github.Release{{TagName: "v1.0.0-beta"}}, current: "v0.1.0", want: ""},
		{name: "no releases", releases: nil, current: "v0.1.0", want: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := &fakeSource{releases: tt.releases}
			got, err := GetNewerRelease(context.Background(), src, tt.current, WithCacheDir(t.TempDir()))
			require.NoError(t, err)

			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.TagName)
		})
	}
}

func TestReleases_Cached(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	src := &fakeSource{releases: []github.Release{{TagName: "v1.0.0", PublishedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}}}

	for i := 0; i < 3; i++ {
		releases, err := Releases(context.Background(), src, WithCacheDir(dir), WithCacheDuration(time.Hour))
		require.NoError(t, err)
		require.Len(t, releases, 1)
		assert.Equal(t, "v1.0.0", releases[0].TagName)
	}
	assert.Equal(t, 1, src.releaseCalls)
}

func TestLatestTag(t *testing.T) {
	t.Parallel()

	src := &fakeSource{tags: []github.Tag{{Name: "v1.9.0"}, {Name: "v1.10.0"}, {Name: "latest"}}}
	dir := t.TempDir()

	latest, ok, err := LatestTag(context.Background(), src, WithCacheDir(dir))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v1.10.0", latest)

	_, _, err = LatestTag(context.Background(), src, WithCacheDir(dir))
	require.NoError(t, err)
	assert.Equal(t, 1, src.tagCalls)

	_, ok, err = LatestTag(context.Background(), &fakeSource{}, WithCacheDir(t.TempDir()))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReleases_ErrorNotCached(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	boom := errors.New("boom")
	src := &fakeSource{err: boom}

	_, err := Releases(context.Background(), src, WithCacheDir(dir))
	assert.ErrorIs(t, err, boom)

	src.err = nil
	src.releases = []github.Release{{TagName: "v1.0.0"}}
	releases, err := Releases(context.Background(), src, WithCacheDir(dir))
	require.NoError(t, err)
	assert.Len(t, releases, 1)
	assert.Equal(t, 2, src.releaseCalls)
}

func TestNotifyNewerRelease_GithubAction(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("TEMPLATESYNC_NO_UPDATE_CHECK", "")

	var buf bytes.Buffer
	ctx := log.With(context.Background(), log.New().WithWriter(&buf))

	src := &fakeSource{releases: []github.Release{{TagName: "v2.0.0"}}}
	NotifyNewerRelease(ctx, src, "v1.0.0", WithCacheDir(t.TempDir()))

	assert.Contains(t, buf.String(), "::warning")
	assert.Contains(t, buf.String(), "v1.0.0 → v2.0.0")
}

func TestNotifyNewerRelease_Disabled(t *testing.T) {
	t.Setenv("GITHUB_ACTIONS", "true")
	t.Setenv("TEMPLATESYNC_NO_UPDATE_CHECK", "true")

	var buf bytes.Buffer
	ctx := log.With(context.Background(), log.New().WithWriter(&buf))

	src := &fakeSource{releases: []github.Release{{TagName: "v2.0.0"}}}
	NotifyNewerRelease(ctx, src, "v1.0.0", WithCacheDir(t.TempDir()))

	assert.Empty(t, buf.String())
	assert.Zero(t, src.releaseCalls)
}
