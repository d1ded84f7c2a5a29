package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/templatesync/templatesync/internal/changelog"
	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/env"
	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/markdown"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
	"github.com/templatesync/templatesync/internal/sync"
	"github.com/templatesync/templatesync/internal/textdiff"
	"github.com/templatesync/templatesync/internal/updates"
	"github.com/templatesync/templatesync/internal/utils"
	"github.com/templatesync/templatesync/pkg/merge"
)

type diffFlags struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Path    string `json:"path"`
	Dir     string `json:"dir"`
	Verbose bool   `json:"verbose"`
	Output  string `json:"output"`
}

var diffCmd = &model.ExecutableCommand[diffFlags]{
	Usage: "diff",
	Short: "Decide how a single file should be updated from the template",
	Long: `Compares one file across the template at --from (the base the project was created from),
the local copy under --dir and the template at --to, and prints the resulting decision.
With --verbose the difference between the local copy and the target template version is shown.`,
	Run:                runDiff,
	RequiresRepository: true,
	Flags: []flag.Flag{
		fromFlag,
		toFlag,
		flag.StringFlag{
			Name:        "path",
			Shorthand:   "p",
			Description: "repository relative path of the file",
			Required:    true,
		},
		dirFlag,
		flag.BooleanFlag{
			Name:        "verbose",
			Shorthand:   "v",
			Description: "show a unified diff of the local file against the target template version",
		},
		outputFlag,
	},
}

var (
	fromFlag = flag.StringFlag{
		Name:        "from",
		Shorthand:   "f",
		Description: "the template version the project was created from or last synced to, empty for a first sync",
	}
	toFlag = flag.StringFlag{
		Name:        "to",
		Shorthand:   "t",
		Description: "the template version to update to, defaults to the latest version tag",
	}
	dirFlag = flag.StringFlag{
		Name:         "dir",
		Shorthand:    "d",
		Description:  "the project directory",
		DefaultValue: ".",
	}
)

type diffResult struct {
	Path     string         `json:"path" yaml:"path"`
	From     string         `json:"from" yaml:"from"`
	To       string         `json:"to" yaml:"to"`
	Decision merge.Decision `json:"decision" yaml:"decision"`
	Stats    textdiff.Stats `json:"stats" yaml:"stats"`
	Diff     string         `json:"diff,omitempty" yaml:"diff,omitempty"`
}

func runDiff(ctx context.Context, flags diffFlags) error {
	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	to, err := resolveTargetRef(ctx, client, flags.To)
	if err != nil {
		return err
	}

	triple, err := sync.ThreeWay(ctx, newResolvers(client, flags.From, to, flags.Dir), flags.Path)
	if err != nil {
		return err
	}

	result := diffResult{
		Path:     flags.Path,
		From:     flags.From,
		To:       to,
		Decision: triple.Decide(),
		Stats:    textdiff.ComputeStats(textdiff.Lines(triple.Ours.Content, triple.Theirs.Content)),
	}
	if flags.Verbose {
		result.Diff = textdiff.Unified(triple.Ours.Content, triple.Theirs.Content, flags.Path)
	}

	return log.PrintValue(stdout, log.Format(flags.Output), result, func() string {
		return renderDiff(result)
	})
}

func renderDiff(result diffResult) string {
	action := string(result.Decision.Action())

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s %s %s",
		styles.ActionStyle(action).Render(strings.ToUpper(action)),
		result.Path,
		styles.Dimmed.Render(fmt.Sprintf("(%s, %s)", result.Decision.Reason(), result.Stats)),
	))

	if result.Diff != "" {
		sb.WriteString("\n\n")
		sb.WriteString(colorizeDiff(result.Diff))
	}

	return sb.String()
}

func colorizeDiff(diff string) string {
	lines := strings.Split(strings.TrimSuffix(diff, "\n"), "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = styles.MakeBold(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = styles.Info.Render(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = styles.Success.Render(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = styles.Error.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func newResolvers(client *github.Client, from, to, dir string) sync.Resolvers {
	return sync.Resolvers{
		Base:   sync.NewRemoteResolver(client, from),
		Ours:   sync.NewLocalResolver(utils.SanitizeFilePath(dir)),
		Theirs: sync.NewRemoteResolver(client, to),
	}
}

type planFlags struct {
	From           string   `json:"from"`
	To             string   `json:"to"`
	Dir            string   `json:"dir"`
	Paths          []string `json:"paths"`
	Patterns       []string `json:"patterns"`
	Concurrency    int      `json:"concurrency"`
	FailOnConflict bool     `json:"fail-on-conflict"`
	Output         string   `json:"output"`
}

var minConcurrency = 1

var planCmd = &model.ExecutableCommand[planFlags]{
	Usage: "plan",
	Short: "Plan a template update for every file of the project",
	Long: `Decides, for every file of the template at --from and --to (or only --paths), whether the
local copy should be replaced, kept, skipped or flagged as a conflict. Nothing is written.
Inside GitHub Actions the plan is also added to the job summary.`,
	Run:                runPlan,
	RequiresRepository: true,
	Flags: []flag.Flag{
		fromFlag,
		toFlag,
		dirFlag,
		flag.StringSliceFlag{
			Name:        "paths",
			Description: "only plan these repository relative paths",
		},
		flag.StringSliceFlag{
			Name:        "patterns",
			Description: "only plan paths matching one of these glob patterns",
			Validate:    validatePatterns,
		},
		flag.IntFlag{
			Name:         "concurrency",
			Description:  "number of files resolved in parallel",
			DefaultValue: 8,
			Minimum:      &minConcurrency,
		},
		flag.BooleanFlag{
			Name:        "fail-on-conflict",
			Description: "exit with an error when any file has conflicting changes",
		},
		outputFlag,
	},
}

func runPlan(ctx context.Context, flags planFlags) error {
	logger := log.From(ctx)

	client, err := newTemplateClient()
	if err != nil {
		return err
	}
	defer logRateLimit(ctx, client)

	to, err := resolveTargetRef(ctx, client, flags.To)
	if err != nil {
		return err
	}

	paths, err := planPaths(ctx, client, flags.From, to, flags.Paths, flags.Patterns)
	if err != nil {
		return err
	}

	if len(paths) == 0 {
		logger.Infof("No template files to plan at %s", to)
	}

	plan, planErr := sync.BuildPlan(ctx, newResolvers(client, flags.From, to, flags.Dir), paths, sync.WithConcurrency(flags.Concurrency))

	if err := log.PrintValue(stdout, log.Format(flags.Output), plan, func() string {
		return renderPlan(plan)
	}); err != nil {
		return err
	}

	if env.IsGithubAction() {
		github.GenerateSyncSummary(ctx, github.SyncSummary{
			Repository: client.Repository(),
			From:       flags.From,
			To:         to,
			Rows:       planRows(plan),
			Breaking:   breakingDescriptions(ctx, client, flags.From, to),
		})
	}

	updates.NotifyNewerRelease(ctx, client, to, cacheOptions()...)

	if planErr != nil {
		return fmt.Errorf("some files could not be planned: %w", planErr)
	}

	if flags.FailOnConflict && plan.HasConflicts() {
		conflicts := plan.Filter(merge.ActionConflict)
		logger.WithInteractiveOnly().Println(styles.RenderErrorMessage(
			"Conflicting changes",
			lo.Map(conflicts, func(f sync.FileDecision, _ int) string { return f.Path })...,
		))
		return fmt.Errorf("%d files have conflicting local and template changes", len(conflicts))
	}

	if len(plan.Files) > 0 {
		logger.WithInteractiveOnly().Println(styles.Dimmed.Render(summarizeCounts(plan)))
	}

	return nil
}

// planPaths returns the explicit paths, or every file of the template at to
// and from, narrowed to the patterns.
func planPaths(ctx context.Context, client *github.Client, from, to string, explicit, patterns []string) ([]string, error) {
	paths := explicit
	if len(paths) == 0 {
		tree, err := client.FileTree(ctx, to)
		if err != nil {
			return nil, err
		}
		paths = tree

		if from != "" {
			baseTree, err := client.FileTree(ctx, from)
			if err != nil {
				return nil, err
			}
			paths = lo.Union(paths, baseTree)
		}
	}

	return sync.FilterPaths(paths, patterns)
}

func renderPlan(plan *sync.Plan) string {
	if len(plan.Files) == 0 {
		return "No files to sync."
	}

	rows := [][]string{{"Path", "Decision", "Reason"}}
	for _, f := range plan.Files {
		rows = append(rows, []string{f.Path, strings.ToUpper(string(f.Decision.Action())), f.Decision.Reason()})
	}

	return strings.TrimSpace(markdown.CreateMarkdownTable(rows))
}

func summarizeCounts(plan *sync.Plan) string {
	counts := plan.Counts()
	parts := lo.FilterMap([]merge.Action{merge.ActionReplace, merge.ActionKeep, merge.ActionConflict, merge.ActionSkip}, func(a merge.Action, _ int) (string, bool) {
		return fmt.Sprintf("%d %s", counts[a], a), counts[a] > 0
	})
	return strings.Join(parts, ", ")
}

func planRows(plan *sync.Plan) []github.PlanRow {
	return lo.Map(plan.Files, func(f sync.FileDecision, _ int) github.PlanRow {
		return github.PlanRow{Path: f.Path, Decision: string(f.Decision.Action()), Reason: f.Decision.Reason()}
	})
}

// breakingDescriptions is best effort: a template without a changelog has no
// breaking changes to report.
func breakingDescriptions(ctx context.Context, client *github.Client, from, to string) []string {
	doc, err := client.FileContent(ctx, defaultChangelogPath, to)
	if err != nil {
		return nil
	}

	excerpt, err := changelog.Excerpt(doc, from, to)
	if err != nil {
		return nil
	}

	return lo.Map(changelog.DetectBreakingChanges(excerpt, to), func(c changelog.BreakingChange, _ int) string {
		return fmt.Sprintf("[%s] %s", c.Version, c.Description)
	})
}
