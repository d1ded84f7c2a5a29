package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/config"
	"github.com/templatesync/templatesync/internal/git"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
	"github.com/templatesync/templatesync/internal/sync"
	"github.com/templatesync/templatesync/internal/updates"
	"github.com/templatesync/templatesync/internal/utils"
)

type detectAdditionsFlags struct {
	Ref      string   `json:"ref"`
	Dir      string   `json:"dir"`
	Patterns []string `json:"patterns"`
	Output   string   `json:"output"`
}

var detectAdditionsCmd = &model.ExecutableCommand[detectAdditionsFlags]{
	Usage: "detect-additions",
	Short: "List local files in template managed locations that the template does not have",
	Long: `Walks --dir and reports every file matching one of --patterns that is missing from the
template at --ref. Patterns are globs on slash separated paths: * and ? stay within a path
segment and ** spans segments.`,
	Run:                runDetectAdditions,
	RequiresRepository: true,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:        "ref",
			Shorthand:   "r",
			Description: "template version to compare against, defaults to the latest version tag",
		},
		dirFlag,
		flag.StringSliceFlag{
			Name:        "patterns",
			Description: "glob patterns of the locations to scan",
			Required:    true,
			Validate:    validatePatterns,
		},
		outputFlag,
	},
}

func runDetectAdditions(ctx context.Context, flags detectAdditionsFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	ref, err := resolveTargetRef(ctx, client, flags.Ref)
	if err != nil {
		return err
	}

	tree, err := client.FileTree(ctx, ref)
	if err != nil {
		return err
	}

	additions, err := sync.DetectUserAdditions(ctx, tree, utils.SanitizeFilePath(flags.Dir), flags.Patterns)
	if err != nil {
		return err
	}

	format := log.Format(flags.Output)
	if format == log.FormatText && len(additions) == 0 {
		_, err := fmt.Fprintln(stdout, styles.Success.Render("No local additions found."))
		return err
	}

	return log.PrintArray(stdout, format, additions, func(p string) string { return p })
}

type backupFlags struct {
	Prefix string `json:"prefix"`
	Dir    string `json:"dir"`
}

var backupCmd = &model.ExecutableCommand[backupFlags]{
	Usage: "backup",
	Short: "Create a backup branch of the current commit before updating",
	Long: `Creates <prefix>/<UTC timestamp> pointing at HEAD without switching to it. The worktree
must be clean so the branch captures everything that an update could overwrite.`,
	Run: runBackup,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:        "prefix",
			Description: "branch name prefix, defaults to the configured backup prefix",
			Validate:    git.ValidateBackupPrefix,
		},
		dirFlag,
	},
}

func runBackup(ctx context.Context, flags backupFlags) error {
	logger := log.From(ctx)

	prefix := flags.Prefix
	if prefix == "" {
		prefix = config.GetBackupPrefix()
	}

	repo, err := git.OpenRepository(utils.SanitizeFilePath(flags.Dir))
	if err != nil {
		return err
	}

	branch, err := repo.CreateBackupBranch(prefix, time.Now())
	if err != nil {
		return err
	}

	head, err := repo.HeadHash()
	if err != nil {
		return err
	}

	logger.Successf("Created backup branch %s at %s", branch, shortSHA(head))
	_, err = fmt.Fprintln(stdout, branch)
	return err
}

type checkFlags struct {
	Current string `json:"current"`
	Output  string `json:"output"`
}

type checkResult struct {
	Repository string `json:"repository" yaml:"repository"`
	Current    string `json:"current" yaml:"current"`
	Latest     string `json:"latest,omitempty" yaml:"latest,omitempty"`
	UpToDate   bool   `json:"upToDate" yaml:"upToDate"`
}

var checkCmd = &model.ExecutableCommand[checkFlags]{
	Usage:              "check",
	Short:              "Check whether the template has a newer stable release",
	Run:                runCheck,
	RequiresRepository: true,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:        "current",
			Shorthand:   "c",
			Description: "the template version the project is on",
		},
		outputFlag,
	},
}

func runCheck(ctx context.Context, flags checkFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	newer, err := updates.GetNewerRelease(ctx, client, flags.Current, cacheOptions()...)
	if err != nil {
		return err
	}

	result := checkResult{Repository: client.Repository(), Current: flags.Current, UpToDate: newer == nil}
	if newer != nil {
		result.Latest = newer.TagName
	}

	return log.PrintValue(stdout, log.Format(flags.Output), result, func() string {
		return renderCheck(result)
	})
}

func renderCheck(r checkResult) string {
	if r.UpToDate {
		return styles.RenderSuccessMessage("Template is up to date", fmt.Sprintf("%s has no newer stable release", r.Repository))
	}

	current := r.Current
	next := "templatesync plan --to " + r.Latest
	if current == "" {
		current = "(none)"
	} else {
		next = "templatesync plan --from " + r.Current + " --to " + r.Latest
	}

	return styles.RenderWarningMessage(
		"Template update available",
		fmt.Sprintf("%s: %s → %s", r.Repository, current, r.Latest),
		"Run `"+next+"` to preview the changes.",
	)
}
