package version

import (
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"
)

var (
	prefixPattern = regexp.MustCompile(`^[vV]`)
	semverLike    = regexp.MustCompile(`^v?\d+\.\d+\.\d+`)
	separators    = regexp.MustCompile(`[.-]`)
)

// segment is either a run of digits, kept as a string without leading zeros
// so arbitrarily long numbers still order correctly, or free-form text.
type segment struct {
	str     string
	numeric bool
}

func (s segment) String() string {
	return s.str
}

func compareDigits(a, b string) int {
	if len(a) != len(b) {
		if len(a) < len(b) {
			return -1
		}
		return 1
	}
	return strings.Compare(a, b)
}

// Identifier is a parsed version string: dot or dash separated segments that
// are either numeric or free-form strings.
type Identifier struct {
	raw      string
	segments []segment
}

func Parse(v string) Identifier {
	trimmed := prefixPattern.ReplaceAllString(v, "")
	parts := separators.Split(trimmed, -1)

	segments := make([]segment, 0, len(parts))
	for _, p := range parts {
		if digits, ok := leadingDigits(p); ok {
			segments = append(segments, segment{str: digits, numeric: true})
		} else {
			segments = append(segments, segment{str: p})
		}
	}

	return Identifier{raw: v, segments: segments}
}

func (i Identifier) String() string {
	return i.raw
}

// Compare orders two identifiers, returning -1, 0 or 1. Numeric segments
// compare numerically, anything else compares as strings, and missing trailing
// segments count as 0.
func (i Identifier) Compare(other Identifier) int {
	n := max(len(i.segments), len(other.segments))

	zero := segment{str: "0", numeric: true}
	for idx := 0; idx < n; idx++ {
		a, b := zero, zero
		if idx < len(i.segments) {
			a = i.segments[idx]
		}
		if idx < len(other.segments) {
			b = other.segments[idx]
		}

		if a.numeric && b.numeric {
			if c := compareDigits(a.str, b.str); c != 0 {
				return c
			}
			continue
		}

		if c := strings.Compare(a.String(), b.String()); c != 0 {
			return c
		}
	}

	return 0
}

// Compare parses and compares two version strings.
func Compare(a, b string) int {
	return Parse(a).Compare(Parse(b))
}

// FindLatest picks the highest semver-like tag ("1.2.3" or "v1.2.3"). Tags
// that don't look like versions are ignored unless nothing else is available,
// in which case the first tag is returned.
func FindLatest(tags []string) (string, bool) {
	if len(tags) == 0 {
		return "", false
	}

	latest := ""
	found := false
	for _, tag := range tags {
		if !semverLike.MatchString(tag) {
			continue
		}
		if !found || Compare(tag, latest) > 0 {
			latest = tag
			found = true
		}
	}

	if !found {
		return tags[0], true
	}

	return latest, true
}

// IsStableRelease reports whether a release is suitable as an update target:
// published, not flagged as a pre-release, and carrying a plain version tag.
func IsStableRelease(tag string, draft, prerelease bool) bool {
	if draft || prerelease {
		return false
	}

	v, err := goversion.NewVersion(tag)
	if err != nil {
		return false
	}

	return v.Prerelease() == ""
}

// leadingDigits reads the digits a segment starts with, so "3rc1" compares
// as 3. Leading zeros are dropped.
func leadingDigits(s string) (string, bool) {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return "", false
	}

	digits := strings.TrimLeft(s[:end], "0")
	if digits == "" {
		digits = "0"
	}
	return digits, true
}
