package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/markers"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
	"github.com/templatesync/templatesync/internal/sync"
	"github.com/templatesync/templatesync/internal/utils"
	"github.com/templatesync/templatesync/pkg/merge"
)

type markersFlags struct {
	Local    string `json:"local"`
	Template string `json:"template"`
	Ref      string `json:"ref"`
	Path     string `json:"path"`
	Write    bool   `json:"write"`
	Check    bool   `json:"check"`
	Output   string `json:"output"`
}

var markersCmd = &model.ExecutableCommand[markersFlags]{
	Usage: "markers",
	Short: "Update the template managed sections of a document",
	Long: `Sections wrapped in <!-- template-section-start: name --> and <!-- template-section-end: name -->
comments belong to the template. This command replaces changed sections with the template's copy,
marks sections the template dropped as deprecated and appends sections the template added.
Everything outside the markers is left untouched.`,
	Run: runMarkers,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:                       "local",
			Shorthand:                  "l",
			Description:                "the local document to update",
			Required:                   true,
			AutocompleteFileExtensions: []string{"md"},
		},
		flag.StringFlag{
			Name:                       "template",
			Description:                "read the template document from a local file",
			AutocompleteFileExtensions: []string{"md"},
		},
		flag.StringFlag{
			Name:        "ref",
			Shorthand:   "r",
			Description: "template version to read the document from, defaults to the latest version tag",
		},
		flag.StringFlag{
			Name:        "path",
			Shorthand:   "p",
			Description: "path of the document in the template repository, defaults to --local",
		},
		flag.BooleanFlag{
			Name:        "write",
			Shorthand:   "w",
			Description: "write the updated document back to --local",
		},
		flag.BooleanFlag{
			Name:        "check",
			Description: "exit with an error when any section is out of date",
		},
		outputFlag,
	},
}

func runMarkers(ctx context.Context, flags markersFlags) error {
	logger := log.From(ctx)

	local, err := utils.ReadFileToString(flags.Local)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", flags.Local, err)
	}

	template, templateName, err := loadTemplateDocument(ctx, flags)
	if err != nil {
		return err
	}

	result := markers.Update(local, template)

	reportDiagnostics(logger.WithAssociatedFile(flags.Local), result.LocalDiagnostics)
	reportDiagnostics(logger.WithAssociatedFile(templateName), result.TemplateDiagnostics)

	github.GenerateDiagnosticsSummary(ctx, github.DiagnosticsSummary{
		File:   flags.Local,
		Errors: diagnosticErrors(result.LocalDiagnostics),
	})

	if flags.Write && result.Changes.HasChanges() {
		if err := utils.WriteFile(flags.Local, []byte(result.Content)); err != nil {
			return fmt.Errorf("failed to write %s: %w", flags.Local, err)
		}
	}

	if err := log.PrintValue(stdout, log.Format(flags.Output), result.Changes, func() string {
		return renderSectionChanges(result.Changes)
	}); err != nil {
		return err
	}

	if flags.Check && result.Changes.HasChanges() {
		return fmt.Errorf("template sections in %s are out of date", flags.Local)
	}

	return nil
}

func loadTemplateDocument(ctx context.Context, flags markersFlags) (string, string, error) {
	if flags.Template != "" {
		content, err := utils.ReadFileToString(flags.Template)
		if err != nil {
			return "", "", fmt.Errorf("failed to read %s: %w", flags.Template, err)
		}
		return content, flags.Template, nil
	}

	if err := requireRepository(); err != nil {
		return "", "", err
	}

	client, err := newTemplateClient()
	if err != nil {
		return "", "", err
	}
	defer logRateLimit(ctx, client)

	ref, err := resolveTargetRef(ctx, client, flags.Ref)
	if err != nil {
		return "", "", err
	}

	path := flags.Path
	if path == "" {
		path = utils.ToSlash(flags.Local)
	}

	content, err := client.FileContent(ctx, path, ref)
	if err != nil {
		return "", "", err
	}

	return content, path, nil
}

func reportDiagnostics(logger log.Logger, diagnostics []markers.Diagnostic) {
	for _, d := range diagnostics {
		logger.Warn("", zap.Error(d))
	}
}

func diagnosticErrors(diagnostics []markers.Diagnostic) []error {
	return lo.Map(diagnostics, func(d markers.Diagnostic, _ int) error { return d })
}

func renderSectionChanges(c markers.Changes) string {
	if !c.HasChanges() && len(c.Blocked) == 0 {
		return styles.Success.Render(fmt.Sprintf("All template sections are up to date (%d preserved).", len(c.Preserved)))
	}

	var lines []string
	appendGroup := func(label, action string, names []string) {
		for _, name := range names {
			lines = append(lines, fmt.Sprintf("%s %s", styles.ActionStyle(action).Render(label), name))
		}
	}
	appendGroup("UPDATED   ", "updated", c.Updated)
	appendGroup("ADDED     ", "added", c.Added)
	appendGroup("DEPRECATED", "removed", c.Deprecated)
	for _, name := range c.Blocked {
		lines = append(lines, styles.Warning.Render(fmt.Sprintf("BLOCKED    %s (fix the stray start marker first)", name)))
	}
	if len(c.Preserved) > 0 {
		lines = append(lines, styles.Dimmed.Render(fmt.Sprintf("%d sections preserved", len(c.Preserved))))
	}

	return strings.Join(lines, "\n")
}

type mergePkgFlags struct {
	Base   string `json:"base"`
	Ours   string `json:"ours"`
	Theirs string `json:"theirs"`
	From   string `json:"from"`
	To     string `json:"to"`
	Path   string `json:"path"`
	Write  bool   `json:"write"`
	Output string `json:"output"`
}

const defaultManifestPath = "package.json"

var mergePkgCmd = &model.ExecutableCommand[mergePkgFlags]{
	Usage: "merge-pkg",
	Short: "Three-way merge the dependencies of package.json",
	Long: `Merges the dependencies and devDependencies sections of the local package.json (--ours) with
the template's copy at --from (base) and --to (theirs). --base and --theirs read local files
instead. Every other field of the local manifest is kept as is.`,
	Run: runMergePkg,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:                       "base",
			Description:                "local file holding the base manifest",
			AutocompleteFileExtensions: []string{"json"},
		},
		flag.StringFlag{
			Name:                       "ours",
			Description:                "the local manifest",
			DefaultValue:               defaultManifestPath,
			AutocompleteFileExtensions: []string{"json"},
		},
		flag.StringFlag{
			Name:                       "theirs",
			Description:                "local file holding the target template manifest",
			AutocompleteFileExtensions: []string{"json"},
		},
		fromFlag,
		toFlag,
		flag.StringFlag{
			Name:         "path",
			Description:  "path of the manifest in the template repository",
			DefaultValue: defaultManifestPath,
		},
		flag.BooleanFlag{
			Name:        "write",
			Shorthand:   "w",
			Description: "write the merged manifest back to --ours",
		},
		outputFlag,
	},
}

type mergePkgResult struct {
	Changes   merge.ManifestChanges    `json:"changes" yaml:"changes"`
	Conflicts []merge.DependencyChange `json:"conflicts" yaml:"conflicts"`
}

func runMergePkg(ctx context.Context, flags mergePkgFlags) error {
	logger := log.From(ctx)

	if !utils.FileExists(flags.Ours) {
		return fmt.Errorf("%s not found, pass --ours with the path of the local manifest", flags.Ours)
	}

	oursContent, err := utils.ReadFileToString(flags.Ours)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", flags.Ours, err)
	}
	ours, err := merge.ParseManifest([]byte(oursContent))
	if err != nil {
		return fmt.Errorf("%s: %w", flags.Ours, err)
	}

	base, theirs, err := loadTemplateManifests(ctx, flags)
	if err != nil {
		return err
	}

	result, err := merge.MergeManifests(base, ours, theirs)
	if err != nil {
		return err
	}

	if flags.Write {
		data, err := result.Merged.MarshalIndent()
		if err != nil {
			return err
		}
		if err := utils.WriteFile(flags.Ours, data); err != nil {
			return fmt.Errorf("failed to write %s: %w", flags.Ours, err)
		}
	}

	out := mergePkgResult{Changes: result.Changes, Conflicts: result.Conflicts}
	if err := log.PrintValue(stdout, log.Format(flags.Output), out, func() string {
		return renderDependencyChanges(out)
	}); err != nil {
		return err
	}

	if len(result.Conflicts) > 0 {
		logger.Warnf("%d dependencies changed both locally and in the template, the local versions were kept", len(result.Conflicts))
	}

	return nil
}

// loadTemplateManifests reads base and theirs from local files when given and
// otherwise from the template. A manifest missing from the template is empty.
func loadTemplateManifests(ctx context.Context, flags mergePkgFlags) (*merge.Manifest, *merge.Manifest, error) {
	var client *github.Client
	if flags.Base == "" || flags.Theirs == "" {
		if err := requireRepository(); err != nil {
			return nil, nil, err
		}

		c, err := newTemplateClient()
		if err != nil {
			return nil, nil, err
		}
		defer logRateLimit(ctx, c)
		client = c
	}

	load := func(file, ref string) (*merge.Manifest, error) {
		if file != "" {
			content, err := utils.ReadFileToString(file)
			if err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", file, err)
			}
			return parseManifestSnapshot(merge.Present(content), file)
		}

		snapshot, err := sync.NewRemoteResolver(client, ref).Resolve(ctx, flags.Path)
		if err != nil {
			return nil, err
		}
		return parseManifestSnapshot(snapshot, flags.Path+"@"+ref)
	}

	base, err := load(flags.Base, flags.From)
	if err != nil {
		return nil, nil, err
	}

	to := flags.To
	if flags.Theirs == "" {
		to, err = resolveTargetRef(ctx, client, to)
		if err != nil {
			return nil, nil, err
		}
	}

	theirs, err := load(flags.Theirs, to)
	if err != nil {
		return nil, nil, err
	}

	return base, theirs, nil
}

func parseManifestSnapshot(s merge.Snapshot, name string) (*merge.Manifest, error) {
	if !s.Present || strings.TrimSpace(s.Content) == "" {
		return merge.NewManifest(), nil
	}

	m, err := merge.ParseManifest([]byte(s.Content))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return m, nil
}

func renderDependencyChanges(r mergePkgResult) string {
	var lines []string
	for _, group := range []struct {
		section string
		changes []merge.DependencyChange
	}{
		{merge.SectionDependencies, r.Changes.Dependencies},
		{merge.SectionDevDependencies, r.Changes.DevDependencies},
	} {
		changed := lo.Filter(group.changes, func(c merge.DependencyChange, _ int) bool {
			return c.Action != merge.ChangeKept
		})
		if len(changed) == 0 {
			continue
		}

		lines = append(lines, styles.MakeBold(group.section))
		for _, c := range changed {
			lines = append(lines, fmt.Sprintf("  %s %s %s",
				styles.ActionStyle(string(c.Action)).Render(strings.ToUpper(string(c.Action))),
				c.Name,
				styles.Dimmed.Render(describeVersions(c)),
			))
		}
	}

	if len(lines) == 0 {
		return styles.Success.Render("Dependencies are already up to date.")
	}

	return strings.Join(lines, "\n")
}

func describeVersions(c merge.DependencyChange) string {
	switch {
	case c.From != "" && c.To != "":
		return fmt.Sprintf("%s → %s", c.From, c.To)
	case c.To != "":
		return c.To
	default:
		return c.From
	}
}
