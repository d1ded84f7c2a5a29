package version_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/templatesync/templatesync/internal/version"
)

func TestCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "1.0.0", 0},
		{"v1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.10.0", "1.9.0", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.0", "1.0.0", 0},
		{"1.0", "1.0.1", -1},
		{"1.0.0-alpha", "1.0.0-beta", -1},
		{"1.0.0-rc.2", "1.0.0-rc.10", -1},
		{"1.0.0-alpha", "1.0.0", 1},
		{"V3.1.0", "v3.1.0", 0},
		{"1.007.0", "1.7.0", 0},
		{"100000000000000000000", "v10", 1},
		{"1.100000000000000000000", "1.99999999999999999999", 1},
		{"2v-rc", "100000000000000000000", -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.a+"_vs_"+tt.b, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, version.Compare(tt.a, tt.b))
		})
	}
}

func TestCompare_TotalPreorder(t *testing.T) {
	t.Parallel()

	versions := []string{
		"1.0.0", "v1.0.0", "1.0", "1.0.1", "1.2.0", "1.10.0", "2.0.0", "2.0.0-rc.1",
		"2.0.0-beta", "abc", "0.0.1", "1.0.0-alpha.1", "1.0.0-alpha.beta", "10", "",
		"v10", "2v-rc", "100000000000000000000", "1.100000000000000000000.0", "99999999999999999999",
		"1.0.0-rc.18446744073709551616", "1.0.0-rc.x",
	}

	for _, a := range versions {
		assert.Equal(t, 0, version.Compare(a, a), "reflexive: %q", a)

		for _, b := range versions {
			ab := version.Compare(a, b)
			ba := version.Compare(b, a)
			assert.Equal(t, -ab, ba, "antisymmetric: %q %q", a, b)

			for _, c := range versions {
				if ab <= 0 && version.Compare(b, c) <= 0 {
					assert.LessOrEqual(t, version.Compare(a, c), 0, "transitive: %q <= %q <= %q", a, b, c)
				}
			}
		}
	}
}

func TestFindLatest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		tags   []string
		want   string
		wantOK bool
	}{
		{
			name:   "picks highest semver",
			tags:   []string{"1.2.0", "2.0.0", "1.9.9", "abc"},
			want:   "2.0.0",
			wantOK: true,
		},
		{
			name:   "v prefixed tags",
			tags:   []string{"v0.9.0", "v0.10.0", "v0.2.0"},
			want:   "v0.10.0",
			wantOK: true,
		},
		{
			name:   "only non-semver tags returns first",
			tags:   []string{"abc", "latest"},
			want:   "abc",
			wantOK: true,
		},
		{
			name: "no tags",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := version.FindLatest(tt.tags)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsStableRelease(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		tag        string
		draft      bool
		prerelease bool
		want       bool
	}{
		{name: "stable release", tag: "v1.2.3", want: true},
		{name: "pre-release suffix", tag: "v1.2.3-rc.1"},
		{name: "marked pre-release", tag: "v1.2.3", prerelease: true},
		{name: "draft", tag: "v1.2.3", draft: true},
		{name: "invalid tag", tag: "not-a-version"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, version.IsStableRelease(tt.tag, tt.draft, tt.prerelease))
		})
	}
}
