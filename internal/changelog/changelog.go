package changelog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/templatesync/templatesync/internal/version"
)

var (
	headerPattern     = regexp.MustCompile(`(?m)^## \[([^\]]+)\]`)
	unreleasedPattern = regexp.MustCompile(`(?m)^## \[Unreleased\]`)
	prefixPattern     = regexp.MustCompile(`^[vV]`)
)

var ErrVersionNotFound = errors.New("version not found in changelog")

var sectionEmojis = map[string]string{
	"added":            "✨",
	"features":         "✨",
	"changed":          "🔧",
	"fixed":            "🐛",
	"bug fixes":        "🐛",
	"fixes":            "🐛",
	"deprecated":       "⚠️",
	"deprecation":      "⚠️",
	"removed":          "🗑️",
	"security":         "🔒",
	"documentation":    "📚",
	"breaking changes": "💥",
}

// Excerpt returns the part of a keep-a-changelog style document describing
// the changes after from up to and including to. The excerpt starts at the
// "## [to]" heading and stops before the first later heading that is from or
// older than from. With an empty from it stops at the first heading older
// than to. When to has no heading the [Unreleased] section is returned.
func Excerpt(doc, from, to string) (string, error) {
	target := trimPrefix(to)
	lower := trimPrefix(from)
	if lower == "" {
		lower = target
	}

	start, end := -1, len(doc)
	for _, m := range headerPattern.FindAllStringSubmatchIndex(doc, -1) {
		v := doc[m[2]:m[3]]

		if start < 0 {
			if v == target {
				start = m[0]
			}
			continue
		}

		if v == lower || version.Compare(v, lower) < 0 {
			end = m[0]
			break
		}
	}

	if start >= 0 {
		return strings.TrimSpace(doc[start:end]), nil
	}

	if unreleased, ok := Unreleased(doc); ok {
		return unreleased, nil
	}

	return "", fmt.Errorf("%w: %s", ErrVersionNotFound, to)
}

// Unreleased returns the [Unreleased] section up to the next version heading.
func Unreleased(doc string) (string, bool) {
	loc := unreleasedPattern.FindStringIndex(doc)
	if loc == nil {
		return "", false
	}

	end := len(doc)
	if next := headerPattern.FindStringIndex(doc[loc[1]:]); next != nil {
		end = loc[1] + next[0]
	}

	return strings.TrimSpace(doc[loc[0]:end]), true
}

// Versions lists the version labels of every "## [x]" heading in order.
func Versions(doc string) []string {
	var versions []string
	for _, m := range headerPattern.FindAllStringSubmatch(doc, -1) {
		versions = append(versions, m[1])
	}
	return versions
}

// Decorate prefixes known "### " section headings with an emoji and separates
// consecutive sections with a rule, for terminal rendering.
func Decorate(body string) string {
	lines := strings.Split(body, "\n")
	var result []string

	foundFirstSection := false
	for _, line := range lines {
		if strings.HasPrefix(line, "## ") {
			foundFirstSection = false
		}

		if strings.HasPrefix(line, "### ") {
			title := strings.TrimSpace(strings.TrimPrefix(line, "### "))
			if emoji, exists := sectionEmojis[strings.ToLower(title)]; exists {
				line = "### " + emoji + " " + title
			}

			if foundFirstSection {
				result = append(result, "", "---", "")
			}
			foundFirstSection = true
		}
		result = append(result, line)
	}

	return strings.Join(result, "\n")
}

func trimPrefix(v string) string {
	return prefixPattern.ReplaceAllString(strings.TrimSpace(v), "")
}
