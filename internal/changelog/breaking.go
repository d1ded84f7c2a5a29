package changelog

import (
	"regexp"
	"strings"
)

type BreakingKind string

const (
	BreakingMarker  BreakingKind = "breaking-marker"
	BreakingSection BreakingKind = "breaking-section"
	RemovedItem     BreakingKind = "removed-item"
)

type BreakingChange struct {
	Version           string       `json:"version" yaml:"version"`
	Description       string       `json:"description" yaml:"description"`
	MigrationGuidance string       `json:"migrationGuidance,omitempty" yaml:"migrationGuidance,omitempty"`
	Kind              BreakingKind `json:"type" yaml:"type"`
}

var (
	leadingHeaderPattern = regexp.MustCompile(`^## \[([^\]]+)\]`)
	breakingPattern      = regexp.MustCompile(`(?i)\*\*BREAKING\*\*:[ \t]*([^\n]+)`)
	subsectionPattern    = regexp.MustCompile(`(?m)^###\s+`)
	bulletPattern        = regexp.MustCompile(`^\s*[-*]\s+`)
	migrationPattern     = regexp.MustCompile(`(?i)\n[ \t]*(?:[-*][ \t]+)?Migrat(?:e|ion):[ \t]*`)
	indentedPattern      = regexp.MustCompile(`\n[ \t]{2,}\S`)
	itemBoundaryPattern  = regexp.MustCompile(`\n[-*]|\n\n`)
)

// DetectBreakingChanges scans a changelog excerpt for breaking changes:
// "**BREAKING**:" markers anywhere, items under "### Breaking Changes" and
// items under "### Removed". The version is taken from the excerpt's leading
// heading, falling back to fallbackVersion.
func DetectBreakingChanges(excerpt, fallbackVersion string) []BreakingChange {
	v := trimPrefix(fallbackVersion)
	if m := leadingHeaderPattern.FindStringSubmatch(excerpt); m != nil {
		v = m[1]
	}

	changes := []BreakingChange{}

	for _, m := range breakingPattern.FindAllStringSubmatchIndex(excerpt, -1) {
		changes = append(changes, BreakingChange{
			Version:           v,
			Description:       strings.TrimSpace(excerpt[m[2]:m[3]]),
			MigrationGuidance: migrationGuidance(cutItem(excerpt[m[0]:])),
			Kind:              BreakingMarker,
		})
	}

	sections := subsectionPattern.Split(excerpt, -1)
	for _, s := range []struct {
		title string
		kind  BreakingKind
	}{
		{"Breaking Changes", BreakingSection},
		{"Removed", RemovedItem},
	} {
		body, ok := findSection(sections, s.title)
		if !ok {
			continue
		}

		for _, item := range listItems(body) {
			description, _, _ := strings.Cut(bulletPattern.ReplaceAllString(item, ""), "\n")
			changes = append(changes, BreakingChange{
				Version:           v,
				Description:       strings.TrimSpace(description),
				MigrationGuidance: migrationGuidance(item),
				Kind:              s.kind,
			})
		}
	}

	return changes
}

// findSection returns the body of the first "### " section whose title starts
// with title, without the title line.
func findSection(sections []string, title string) (string, bool) {
	for _, s := range sections[1:] {
		if strings.HasPrefix(strings.TrimSpace(s), title) {
			_, body, _ := strings.Cut(s, "\n")
			return body, true
		}
	}
	return "", false
}

// listItems groups a markdown list into items. Continuation lines belong to
// the current item and a blank line ends it.
func listItems(section string) []string {
	var items []string
	var current strings.Builder

	flush := func() {
		if item := strings.TrimSpace(current.String()); item != "" {
			items = append(items, item)
		}
		current.Reset()
	}

	for _, line := range strings.Split(section, "\n") {
		switch {
		case bulletPattern.MatchString(line) && !isIndented(line):
			flush()
			current.WriteString(line)
		case current.Len() > 0 && strings.TrimSpace(line) != "":
			current.WriteString("\n" + line)
		case strings.TrimSpace(line) == "":
			flush()
		}
	}
	flush()

	return items
}

func isIndented(line string) bool {
	return strings.HasPrefix(line, "  ") || strings.HasPrefix(line, "\t")
}

// cutItem trims text at the end of the list item or paragraph it starts.
func cutItem(text string) string {
	if loc := itemBoundaryPattern.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	return text
}

// migrationGuidance looks for an explicit "Migration:" or "Migrate:" line, or
// failing that indented text following the first line.
func migrationGuidance(item string) string {
	if loc := migrationPattern.FindStringIndex(item); loc != nil {
		return strings.TrimSpace(cutItem(item[loc[1]:]))
	}

	if loc := indentedPattern.FindStringIndex(item); loc != nil {
		return strings.TrimSpace(cutItem(item[loc[1]-1:]))
	}

	return ""
}
