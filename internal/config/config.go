package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/templatesync/templatesync/internal/env"
	"github.com/templatesync/templatesync/internal/locks"
)

var (
	vCfg   = newViper()
	cfgDir string
)

const (
	repositoryKey   = "repository"
	githubTokenKey  = "github_token"
	httpTimeoutKey  = "http_timeout_seconds"
	cacheTTLKey     = "cache_ttl_seconds"
	backupPrefixKey = "backup_prefix"
)

var repositoryPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+/[a-zA-Z0-9_.-]+$`)

var ErrInvalidRepository = errors.New("invalid repository, expected owner/repo")

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TEMPLATESYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(httpTimeoutKey, 30)
	v.SetDefault(cacheTTLKey, 3600)
	v.SetDefault(backupPrefixKey, "template-backup")

	return v
}

// Load reads ~/.templatesync/config.yaml. A missing file is not an error.
func Load() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return err
	}

	return LoadFrom(filepath.Join(home, ".templatesync"))
}

// LoadFrom reads config.yaml from dir, replacing any previously loaded
// configuration.
func LoadFrom(dir string) error {
	cfgDir = dir
	vCfg = newViper()

	vCfg.SetConfigName("config")
	vCfg.SetConfigType("yaml")
	vCfg.AddConfigPath(cfgDir)

	if err := vCfg.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	return nil
}

func Dir() string {
	return cfgDir
}

// GetRepository returns the configured template repository (owner/repo).
func GetRepository() string {
	return vCfg.GetString(repositoryKey)
}

func SetRepository(repository string) error {
	if err := ValidateRepository(repository); err != nil {
		return err
	}

	vCfg.Set(repositoryKey, repository)
	return save()
}

// OverrideRepository sets the repository for this process only.
func OverrideRepository(repository string) error {
	if err := ValidateRepository(repository); err != nil {
		return err
	}

	vCfg.Set(repositoryKey, repository)
	return nil
}

// GetGithubToken prefers GITHUB_TOKEN over the configured token.
func GetGithubToken() string {
	if token := env.GithubToken(); token != "" {
		return token
	}

	return vCfg.GetString(githubTokenKey)
}

func GetHTTPTimeout() time.Duration {
	return time.Duration(vCfg.GetInt(httpTimeoutKey)) * time.Second
}

func GetCacheTTL() time.Duration {
	return time.Duration(vCfg.GetInt(cacheTTLKey)) * time.Second
}

func GetBackupPrefix() string {
	return vCfg.GetString(backupPrefixKey)
}

func ValidateRepository(repository string) error {
	if !repositoryPattern.MatchString(repository) {
		return fmt.Errorf("%w: %q", ErrInvalidRepository, repository)
	}
	return nil
}

// SplitRepository validates and splits owner/repo.
func SplitRepository(repository string) (string, string, error) {
	if err := ValidateRepository(repository); err != nil {
		return "", "", err
	}

	owner, repo, _ := strings.Cut(repository, "/")
	return owner, repo, nil
}

func save() error {
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		return err
	}

	return locks.WithLock(context.Background(), filepath.Join(cfgDir, "config.yaml"), write)
}

func write() error {
	if err := vCfg.WriteConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return err
		}

		if err := vCfg.SafeWriteConfig(); err != nil {
			return err
		}
	}

	return nil
}
