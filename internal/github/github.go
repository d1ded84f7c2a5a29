package github

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/sethvargo/go-githubactions"

	"github.com/templatesync/templatesync/internal/env"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/markdown"
)

// PlanRow is one file of a sync plan as shown in the step summary.
type PlanRow struct {
	Path     string
	Decision string
	Reason   string
}

type SyncSummary struct {
	Repository string
	From       string
	To         string
	Rows       []PlanRow
	Breaking   []string
}

type DiagnosticsSummary struct {
	File   string
	Errors []error
}

func GenerateSyncSummary(ctx context.Context, summary SyncSummary) {
	defer func() {
		if r := recover(); r != nil {
			if env.IsGithubDebugMode() {
				fmt.Printf("::debug::%v\n", r)
			}
		}
	}()

	if !env.IsGithubAction() {
		return
	}

	githubactions.AddStepSummary(RenderSyncSummary(summary))
}

func RenderSyncSummary(summary SyncSummary) string {
	md := fmt.Sprintf("# Template Sync Summary\n\n`%s` %s → %s", summary.Repository, orNone(summary.From), summary.To)

	if len(summary.Breaking) > 0 {
		md += "\n\n## :warning: Breaking Changes\n"
		for _, b := range summary.Breaking {
			md += "\n- " + b
		}
	}

	if len(summary.Rows) == 0 {
		return md + "\n\nNo files to sync."
	}

	contents := [][]string{{"File", "Decision", "Reason"}}
	for _, row := range summary.Rows {
		contents = append(contents, []string{row.Path, strings.ToUpper(row.Decision), row.Reason})
	}

	return md + "\n\n" + markdown.CreateMarkdownTable(contents)
}

func GenerateDiagnosticsSummary(ctx context.Context, summary DiagnosticsSummary) {
	defer func() {
		if r := recover(); r != nil {
			if env.IsGithubDebugMode() {
				fmt.Printf("::debug::%v\n", r)
			}
		}
	}()

	if !env.IsGithubAction() {
		return
	}

	githubactions.AddStepSummary(RenderDiagnosticsSummary(summary))
}

func RenderDiagnosticsSummary(summary DiagnosticsSummary) string {
	md := "# Template Section Diagnostics"
	if summary.File != "" {
		md += fmt.Sprintf("\n\n`%s`", summary.File)
	}

	if len(summary.Errors) == 0 {
		return md + "\n\n:white_check_mark: No problems found."
	}

	errs := slices.Clone(summary.Errors)
	SortErrors(errs)

	contents := [][]string{{"Line", "Error"}}
	for _, err := range errs {
		line := ""
		var lineErr log.LineError
		if errors.As(err, &lineErr) {
			line = strconv.Itoa(lineErr.LineNumber())
		}
		contents = append(contents, []string{line, err.Error()})
	}

	return md + "\n\n" + markdown.CreateMarkdownTable(contents)
}

// SortErrors orders errors carrying a line number by line, ahead of errors
// without one. The sort is stable.
func SortErrors(errs []error) {
	slices.SortStableFunc(errs, func(i, j error) int {
		var iErr, jErr log.LineError
		iOK := errors.As(i, &iErr)
		jOK := errors.As(j, &jErr)

		switch {
		case iOK && jOK:
			return iErr.LineNumber() - jErr.LineNumber()
		case iOK:
			return -1
		case jOK:
			return 1
		default:
			return 0
		}
	})
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
