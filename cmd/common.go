package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/config"
	"github.com/templatesync/templatesync/internal/github"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
	"github.com/templatesync/templatesync/internal/sync"
	"github.com/templatesync/templatesync/internal/updates"
)

// stdout receives command results. Logs go through the context logger.
var stdout io.Writer = os.Stdout

var outputFlag = flag.EnumFlag{
	Name:          "output",
	Shorthand:     "o",
	Description:   "output format",
	AllowedValues: log.Formats,
	DefaultValue:  string(log.FormatText),
}

func newTemplateClient() (*github.Client, error) {
	return github.NewClientFromConfig(config.GetRepository())
}

func validatePatterns(patterns []string) error {
	_, err := sync.CompilePatterns(patterns)
	return err
}

func requireRepository() error {
	if config.GetRepository() == "" {
		return model.ErrNoRepository
	}
	return nil
}

func cacheOptions() []updates.Option {
	return []updates.Option{updates.WithCacheDuration(config.GetCacheTTL())}
}

// resolveTargetRef returns ref, or the newest semver tag of the template when
// ref is empty.
func resolveTargetRef(ctx context.Context, src updates.Source, ref string) (string, error) {
	if ref != "" {
		return ref, nil
	}

	latest, ok, err := updates.LatestTag(ctx, src, cacheOptions()...)
	if err != nil {
		return "", fmt.Errorf("failed to find the latest template tag: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("template %s has no version tags, pass a ref explicitly", src.Repository())
	}

	log.From(ctx).WithStyle(styles.DimmedItalic).Printf("Using latest template tag %s\n", latest)

	return latest, nil
}

func logRateLimit(ctx context.Context, client *github.Client) {
	rate, ok := client.LastRate()
	if !ok || rate.Remaining > rate.Limit/10 {
		return
	}

	log.From(ctx).Warnf("GitHub API rate limit is low: %d of %d requests remaining", rate.Remaining, rate.Limit)
}
