// Package constants defines global constants used throughout glidepath.
// It includes version information, paths, and stage identifiers.
package constants

var version = "0.0.0-development" // Updated by CI/CD pipeline at build time

// GetVersion returns the current version of glidepath.
func GetVersion() *string {
	return &version
}

// ProjectName is the name of the CLI tool.
const ProjectName = "glidepath"

// ConfigDirName is the name of the configuration directory in the user's home directory.
const ConfigDirName = ".glidepath"

// ConfigFileName is the name of the global configuration file.
const ConfigFileName = "config.yaml"

// ConfigDirPath returns the full path to the global configuration directory.
func ConfigDirPath(homeDir string) string {
	return homeDir + "/" + ConfigDirName
}

// ConfigFilePath returns the full path to the global configuration file.
func ConfigFilePath(homeDir string) string {
	return ConfigDirPath(homeDir) + "/" + ConfigFileName
}

// Environment represents the runtime environment of the process.
type Environment string

const (
	// CLI is an interactive terminal invocation.
	CLI Environment = "cli"
	// CI is a non-interactive invocation (pipelines, automation).
	CI Environment = "ci"
)

// ConfirmPhrase is the phrase a user must type before destroying stateful resources.
const ConfirmPhrase = "destroy"

// ConfirmPhraseProduction is the stricter phrase required for production-like
// environments.
const ConfirmPhraseProduction = "destroy-production-data"
