package cmd

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/config"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/model"
	"github.com/templatesync/templatesync/internal/model/flag"
)

type configureFlags struct {
	Repository string `json:"repository"`
}

var configureCmd = &model.ExecutableCommand[configureFlags]{
	Usage: "configure",
	Short: "Configure the template repository this project follows",
	Long: `Stores the template repository (owner/repo) in ~/.templatesync/config.yaml.
Without --repository the current settings are printed.`,
	Run: runConfigure,
	Flags: []flag.Flag{
		flag.StringFlag{
			Name:        "repository",
			Description: "the template repository, e.g. acme/starter",
			Validate:    config.ValidateRepository,
		},
	},
}

func runConfigure(ctx context.Context, flags configureFlags) error {
	logger := log.From(ctx)

	if flags.Repository == "" {
		repository := config.GetRepository()
		if repository == "" {
			repository = "(not configured)"
		}

		logger.Println(styles.MakeSection("Template settings", fmt.Sprintf(
			"Repository:   %s\nGitHub token: %s\nConfig file:  %s",
			repository,
			tokenState(config.GetGithubToken()),
			filepath.Join(config.Dir(), "config.yaml"),
		), styles.Colors.Blue))
		return nil
	}

	if err := config.SetRepository(flags.Repository); err != nil {
		return err
	}

	logger.Successf("Template repository set to %s", flags.Repository)
	return nil
}

func tokenState(token string) string {
	if token == "" {
		return "not set (unauthenticated requests are rate limited)"
	}
	return "set"
}
