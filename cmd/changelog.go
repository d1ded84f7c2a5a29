package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/templatesync/templatesync/internal/changelog"
	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/env"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/markdown"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
	"github.com/templatesync/templatesync/internal/utils"
)

const defaultChangelogPath = "CHANGELOG.md"

type changelogFlags struct {
	From   string `json:"from"`
	To     string `json:"to"`
	File   string `json:"file"`
	Path   string `json:"path"`
	Output string `json:"output"`
}

var changelogSourceFlags = []flag.Flag{
	flag.StringFlag{
		Name:        "from",
		Shorthand:   "f",
		Description: "the template version the project is currently on",
	},
	flag.StringFlag{
		Name:        "to",
		Shorthand:   "t",
		Description: "the template version to update to, defaults to the latest version tag",
	},
	flag.StringFlag{
		Name:                       "file",
		Description:                "read the changelog from a local file instead of the template repository",
		AutocompleteFileExtensions: []string{"md"},
	},
	flag.StringFlag{
		Name:         "path",
		Description:  "path of the changelog in the template repository",
		DefaultValue: defaultChangelogPath,
	},
	outputFlag,
}

var changelogCmd = &model.ExecutableCommand[changelogFlags]{
	Usage: "changelog",
	Short: "Show the template changelog between two versions",
	Long: `Prints the part of the template's keep-a-changelog style CHANGELOG.md that covers
the versions after --from up to and including --to. When --to has no heading of its own the
[Unreleased] section is shown.`,
	Run:   runChangelog,
	Flags: changelogSourceFlags,
}

var breakingCmd = &model.ExecutableCommand[changelogFlags]{
	Usage: "breaking",
	Short: "List breaking changes in the template changelog between two versions",
	Long: `Scans the changelog excerpt between --from and --to for "**BREAKING**:" markers,
"### Breaking Changes" items and "### Removed" items, including any migration guidance.`,
	Run:   runBreaking,
	Flags: changelogSourceFlags,
}

func runChangelog(ctx context.Context, flags changelogFlags) error {
	excerpt, to, err := loadChangelogExcerpt(ctx, flags)
	if err != nil {
		return err
	}

	value := map[string]string{"from": flags.From, "to": to, "excerpt": excerpt}

	return log.PrintValue(stdout, log.Format(flags.Output), value, func() string {
		return renderChangelog(excerpt, utils.IsInteractive() && !env.IsGithubAction() && !env.IsDocsRuntime())
	})
}

func renderChangelog(excerpt string, styled bool) string {
	if !styled {
		return excerpt
	}

	rendered, err := markdown.Render(changelog.Decorate(excerpt), styles.TerminalWidth())
	if err != nil {
		return excerpt
	}

	return rendered
}

func runBreaking(ctx context.Context, flags changelogFlags) error {
	excerpt, to, err := loadChangelogExcerpt(ctx, flags)
	if err != nil {
		return err
	}

	changes := changelog.DetectBreakingChanges(excerpt, to)

	return log.PrintValue(stdout, log.Format(flags.Output), changes, func() string {
		return renderBreakingChanges(changes)
	})
}

func renderBreakingChanges(changes []changelog.BreakingChange) string {
	if len(changes) == 0 {
		return styles.Success.Render("No breaking changes.")
	}

	var sb strings.Builder
	for i, c := range changes {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(styles.Warning.Render(fmt.Sprintf("[%s] %s", c.Version, c.Description)))
		sb.WriteString(styles.Dimmed.Render(fmt.Sprintf(" (%s)", c.Kind)))
		if c.MigrationGuidance != "" {
			sb.WriteString("\n  Migration: " + c.MigrationGuidance)
		}
	}

	return sb.String()
}

// loadChangelogExcerpt reads the changelog from --file or the template
// repository at the target version and cuts the from..to excerpt.
func loadChangelogExcerpt(ctx context.Context, flags changelogFlags) (string, string, error) {
	to := flags.To

	var doc string
	if flags.File != "" {
		content, err := utils.ReadFileToString(flags.File)
		if err != nil {
			return "", "", fmt.Errorf("failed to read changelog: %w", err)
		}
		doc = content
	} else {
		if err := requireRepository(); err != nil {
			return "", "", err
		}

		client, err := newTemplateClient()
		if err != nil {
			return "", "", err
		}
		defer logRateLimit(ctx, client)

		to, err = resolveTargetRef(ctx, client, to)
		if err != nil {
			return "", "", err
		}

		path := flags.Path
		if path == "" {
			path = defaultChangelogPath
		}

		doc, err = client.FileContent(ctx, path, to)
		if err != nil {
			return "", "", err
		}
	}

	if to == "" {
		latest, ok := lo.Find(changelog.Versions(doc), func(v string) bool {
			return !strings.EqualFold(v, "unreleased")
		})
		if !ok {
			return "", "", fmt.Errorf("changelog has no version headings, pass --to")
		}
		to = latest
	}

	excerpt, err := changelog.Excerpt(doc, flags.From, to)
	if err != nil {
		return "", "", err
	}

	return excerpt, to, nil
}
