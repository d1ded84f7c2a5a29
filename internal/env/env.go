package env

import "os"

// Returns true if the CLI_RUNTIME environment variable is set to "docs".
// This environment variable is used to determine when website documentation
// is being rendered to prevent unexpected CLI formatting characters.
func IsDocsRuntime() bool {
	return os.Getenv("CLI_RUNTIME") == "docs"
}

func IsGithubAction() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

func IsGithubDebugMode() bool {
	return os.Getenv("RUNNER_DEBUG") == "true"
}

// GithubToken is the token GitHub Actions and most CI systems expose.
func GithubToken() string {
	return os.Getenv("GITHUB_TOKEN")
}

// IsUpdateCheckDisabled reports whether the newer template release check
// should be skipped.
func IsUpdateCheckDisabled() bool {
	return os.Getenv("TEMPLATESYNC_NO_UPDATE_CHECK") == "true"
}
