package cmd

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/samber/lo"

	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/markdown"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
	"github.com/templatesync/templatesync/internal/updates"
	"github.com/templatesync/templatesync/internal/version"
)

type tagsFlags struct {
	Latest bool   `json:"latest"`
	Output string `json:"output"`
}

var tagsCmd = &model.ExecutableCommand[tagsFlags]{
	Usage:              "tags",
	Short:              "List the version tags of the template repository",
	Run:                runTags,
	RequiresRepository: true,
	Flags: []flag.Flag{
		flag.BooleanFlag{
			Name:        "latest",
			Description: "only print the highest semantic version tag",
		},
		outputFlag,
	},
}

func runTags(ctx context.Context, flags tagsFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	format := log.Format(flags.Output)

	if flags.Latest {
		latest, ok, err := updates.LatestTag(ctx, client, cacheOptions()...)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("template %s has no version tags", client.Repository())
		}
		return log.PrintValue(stdout, format, map[string]string{"latest": latest}, func() string { return latest })
	}

	tags, err := updates.Tags(ctx, client, cacheOptions()...)
	if err != nil {
		return err
	}

	return log.PrintArray(stdout, format, sortTags(tags), func(t github.Tag) string {
		return fmt.Sprintf("%s\t%s", t.Name, shortSHA(t.SHA))
	})
}

// sortTags orders tags from the highest version to the lowest.
func sortTags(tags []github.Tag) []github.Tag {
	sorted := slices.Clone(tags)
	slices.SortStableFunc(sorted, func(a, b github.Tag) int {
		return version.Compare(b.Name, a.Name)
	})
	return sorted
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}

type releasesFlags struct {
	Stable bool   `json:"stable"`
	Output string `json:"output"`
}

var releasesCmd = &model.ExecutableCommand[releasesFlags]{
	Usage:              "releases",
	Short:              "List the releases of the template repository",
	Run:                runReleases,
	RequiresRepository: true,
	Flags: []flag.Flag{
		flag.BooleanFlag{
			Name:        "stable",
			Description: "hide drafts, prereleases and releases whose tag is not a stable version",
		},
		outputFlag,
	},
}

func runReleases(ctx context.Context, flags releasesFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	releases, err := updates.Releases(ctx, client, cacheOptions()...)
	if err != nil {
		return err
	}

	if flags.Stable {
		releases = lo.Filter(releases, func(r github.Release, _ int) bool {
			return version.IsStableRelease(r.TagName, r.Draft, r.Prerelease)
		})
	}

	return log.PrintValue(stdout, log.Format(flags.Output), releases, func() string {
		return renderReleases(releases)
	})
}

func renderReleases(releases []github.Release) string {
	if len(releases) == 0 {
		return "No releases found."
	}

	rows := [][]string{{"Tag", "Name", "Published", "Status"}}
	for _, r := range releases {
		published := "-"
		if !r.PublishedAt.IsZero() {
			published = humanize.Time(r.PublishedAt)
		}
		rows = append(rows, []string{r.TagName, r.Name, published, releaseStatus(r)})
	}

	return strings.TrimSpace(markdown.CreateMarkdownTable(rows))
}

func releaseStatus(r github.Release) string {
	switch {
	case r.Draft:
		return "draft"
	case r.Prerelease:
		return "prerelease"
	case version.IsStableRelease(r.TagName, r.Draft, r.Prerelease):
		return "stable"
	default:
		return "unversioned"
	}
}

type fileFlags struct {
	Path string `json:"path"`
	Ref  string `json:"ref"`
}

var fileCmd = &model.ExecutableCommand[fileFlags]{
	Usage:              "file",
	Short:              "Print a file from the template repository",
	Run:                runFile,
	RequiresRepository: true,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:        "path",
			Shorthand:   "p",
			Description: "repository relative path of the file",
			Required:    true,
		},
		flag.StringFlag{
			Name:        "ref",
			Shorthand:   "r",
			Description: "tag or branch to read from, defaults to the latest version tag",
		},
	},
}

func runFile(ctx context.Context, flags fileFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	ref, err := resolveTargetRef(ctx, client, flags.Ref)
	if err != nil {
		return err
	}

	content, err := client.FileContent(ctx, flags.Path, ref)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(stdout, content)
	return err
}

type treeFlags struct {
	Ref    string `json:"ref"`
	Output string `json:"output"`
}

var treeCmd = &model.ExecutableCommand[treeFlags]{
	Usage:              "tree",
	Short:              "List every file of the template repository at a ref",
	Run:                runTree,
	RequiresRepository: true,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:        "ref",
			Shorthand:   "r",
			Description: "tag or branch to list, defaults to the latest version tag",
		},
		outputFlag,
	},
}

func runTree(ctx context.Context, flags treeFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	ref, err := resolveTargetRef(ctx, client, flags.Ref)
	if err != nil {
		return err
	}

	paths, err := client.FileTree(ctx, ref)
	if err != nil {
		return err
	}

	return log.PrintArray(stdout, log.Format(flags.Output), paths, func(p string) string { return p })
}
