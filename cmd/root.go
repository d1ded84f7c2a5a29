package cmd

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/templatesync/templatesync/internal/charm/styles"
	"github.com/templatesync/templatesync/internal/config"
	"github.com/templatesync/templatesync/internal/log"
	"github.com/templatesync/templatesync/internal/model"
)

var rootCmd = &cobra.Command{
	Use:   "templatesync",
	Short: "Keep a project in sync with the template repository it was created from",
	Long: `templatesync compares a project against newer releases of its template repository and decides, file by file, what can be updated safely:
	- Plans three-way updates (template base, local copy, new template release)
	- Merges package.json dependencies and marker-delimited documentation sections
	- Extracts changelog excerpts and breaking changes between template versions
	- Detects files added locally that the template does not know about
	- Creates backup branches before an update is applied
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var l = log.New().WithLevel(log.LevelInfo)

func init() {
	// We want our commands to be sorted in defined order, not alphabetically
	cobra.EnableCommandSorting = false
	if err := config.Load(); err != nil {
		l.Error("", zap.Error(err))
		os.Exit(1)
	}
}

func Init() {
	rootCmd.PersistentFlags().String("logLevel", string(log.LevelInfo), fmt.Sprintf("the log level (available options: [%s])", strings.Join(log.Levels, ", ")))
	rootCmd.PersistentFlags().String("repo", "", "the template repository (owner/repo), overrides the configured repository")

	addCommand(rootCmd, configureCmd)
	addCommand(rootCmd, tagsCmd)
	addCommand(rootCmd, releasesCmd)
	addCommand(rootCmd, fileCmd)
	addCommand(rootCmd, treeCmd)
	addCommand(rootCmd, changelogCmd)
	addCommand(rootCmd, breakingCmd)
	addCommand(rootCmd, diffCmd)
	addCommand(rootCmd, planCmd)
	addCommand(rootCmd, markersCmd)
	addCommand(rootCmd, mergePkgCmd)
	addCommand(rootCmd, detectAdditionsCmd)
	addCommand(rootCmd, backupCmd)
	addCommand(rootCmd, checkCmd)
}

func addCommand(cmd *cobra.Command, command model.Command) {
	c, err := command.Init()
	if err != nil {
		l.Error("", zap.Error(err))
		os.Exit(1)
	}
	cmd.AddCommand(c)
}

func CmdForTest(version string) *cobra.Command {
	setupRootCmd(version)

	return rootCmd
}

func Execute(version string) {
	setupRootCmd(version)

	if err := rootCmd.Execute(); err != nil {
		l.Error("", zap.Error(err))
		l.WithInteractiveOnly().PrintfStyled(styles.DimmedItalic, "Run '%s --help' for usage.\n", rootCmd.CommandPath())
		os.Exit(1)
	}
}

func setupRootCmd(version string) {
	rootCmd.Version = version
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if err := setLogLevel(cmd); err != nil {
			return err
		}

		return setRepository(cmd)
	}

	Init()
}

func setLogLevel(cmd *cobra.Command) error {
	logLevel, err := cmd.Flags().GetString("logLevel")
	if err != nil {
		return err
	}
	if !slices.Contains(log.Levels, logLevel) {
		return fmt.Errorf("log level must be one of: %s", strings.Join(log.Levels, ", "))
	}

	l = l.WithLevel(log.Level(logLevel))
	ctx := log.With(cmd.Context(), l)
	cmd.SetContext(ctx)

	return nil
}

func setRepository(cmd *cobra.Command) error {
	repo, err := cmd.Flags().GetString("repo")
	if err != nil || repo == "" {
		return nil
	}

	return config.OverrideRepository(repo)
}
