// Package branding provides compile-time identity values for the CLI.
//
// The values live in branding.yaml next to this file and are baked into the
// binary with //go:embed.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	GoModule     string `yaml:"go_module"`
	GitHubRepo   string `yaml:"github_repo"`
	YAMLFilename string `yaml:"yaml_filename"`
	JSONFilename string `yaml:"json_filename"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:      "composer-yaml",
			DisplayName:  "Composer YAML",
			Description:  "Keeps composer.yaml and composer.json in sync",
			HomeDir:      ".composer-yaml",
			EnvPrefix:    "COMPOSER_YAML",
			GoModule:     "github.com/empaphy/composer-yaml",
			GitHubRepo:   "empaphy/composer-yaml",
			YAMLFilename: "composer.yaml",
			JSONFilename: "composer.json",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "composer-yaml").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name.
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".composer-yaml").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "COMPOSER_YAML").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path. Not consumed at runtime.
func GoModule() string { load(); return defaults.GoModule }

// GitHubRepo returns the "owner/repo" string.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// YAMLFilename returns the default YAML manifest file name.
func YAMLFilename() string { load(); return defaults.YAMLFilename }

// JSONFilename returns the default JSON manifest file name the host reads.
func JSONFilename() string { load(); return defaults.JSONFilename }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("RETRIES") → "COMPOSER_YAML_RETRIES".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
