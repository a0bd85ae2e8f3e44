package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/empaphy/composer-yaml/internal/branding"
	"github.com/empaphy/composer-yaml/internal/errors"
	"github.com/empaphy/composer-yaml/internal/manifest"
	"github.com/empaphy/composer-yaml/internal/retry"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Setting keys.
const (
	KeyRetries       = "retries"
	KeyRetryDelay    = "retry_delay"
	KeyCompare       = "compare"
	KeyYAMLIndent    = "yaml_indent"
	KeyYAMLInline    = "yaml_inline"
	KeyJSONIndent    = "json_indent"
	KeyWatchDebounce = "watch_debounce"
)

// Keys lists every recognised setting in display order.
var Keys = []string{
	KeyRetries,
	KeyRetryDelay,
	KeyCompare,
	KeyYAMLIndent,
	KeyYAMLInline,
	KeyJSONIndent,
	KeyWatchDebounce,
}

// Dir returns the path to the config directory (~/.composer-yaml/).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return filepath.Join(home, branding.HomeDir())
}

// FilePath returns the full path to the config file (~/.composer-yaml/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

func setDefaults() {
	viper.SetDefault(KeyRetries, 3)
	viper.SetDefault(KeyRetryDelay, "500ms")
	viper.SetDefault(KeyCompare, manifest.CompareStrict)
	viper.SetDefault(KeyYAMLIndent, 4)
	viper.SetDefault(KeyYAMLInline, 2)
	viper.SetDefault(KeyJSONIndent, 4)
	viper.SetDefault(KeyWatchDebounce, "250ms")
}

// Load initializes Viper to read from the config file and environment.
// A missing config file is fine; an unreadable or malformed one is a
// CONFIGURATION_ERROR.
func Load() error {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()
	setDefaults()

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err == nil || stderrors.As(err, &notFound) || stderrors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return errors.Wrap(errors.ErrCodeConfiguration, err, "reading %s", FilePath())
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set validates and writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if !slices.Contains(Keys, key) {
		return errors.New(errors.ErrCodeConfiguration, "unknown config key %q (known keys: %v)", key, Keys)
	}

	previous := viper.Get(key)
	viper.Set(key, value)
	if _, err := Current(); err != nil {
		viper.Set(key, previous)
		return err
	}

	if err := EnsureDir(); err != nil {
		return err
	}

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Settings is the validated view of the configuration.
type Settings struct {
	Retries       int
	RetryDelay    time.Duration
	Compare       string
	YAMLIndent    int
	YAMLInline    int
	JSONIndent    int
	WatchDebounce time.Duration
}

// Current resolves the loaded configuration into Settings. Values that do
// not parse or are out of range are a CONFIGURATION_ERROR.
func Current() (Settings, error) {
	var (
		s   Settings
		err error
	)
	if s.Retries, err = intSetting(KeyRetries); err != nil {
		return s, err
	}
	if s.RetryDelay, err = durationSetting(KeyRetryDelay); err != nil {
		return s, err
	}
	if s.YAMLIndent, err = intSetting(KeyYAMLIndent); err != nil {
		return s, err
	}
	if s.YAMLInline, err = intSetting(KeyYAMLInline); err != nil {
		return s, err
	}
	if s.JSONIndent, err = intSetting(KeyJSONIndent); err != nil {
		return s, err
	}
	if s.WatchDebounce, err = durationSetting(KeyWatchDebounce); err != nil {
		return s, err
	}
	s.Compare = viper.GetString(KeyCompare)
	return s, s.Validate()
}

func intSetting(key string) (int, error) {
	n, err := cast.ToIntE(viper.Get(key))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeConfiguration, err, "%s must be an integer", key)
	}
	return n, nil
}

func durationSetting(key string) (time.Duration, error) {
	d, err := cast.ToDurationE(viper.Get(key))
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeConfiguration, err, "%s must be a duration such as 500ms", key)
	}
	return d, nil
}

// Validate checks every field against its allowed range.
func (s Settings) Validate() error {
	switch {
	case s.Retries < 1:
		return errors.New(errors.ErrCodeConfiguration, "%s must be at least 1, got %d", KeyRetries, s.Retries)
	case s.RetryDelay < 0:
		return errors.New(errors.ErrCodeConfiguration, "%s must not be negative, got %s", KeyRetryDelay, s.RetryDelay)
	case s.YAMLIndent < 2 || s.YAMLIndent > 9:
		return errors.New(errors.ErrCodeConfiguration, "%s must be between 2 and 9, got %d", KeyYAMLIndent, s.YAMLIndent)
	case s.YAMLInline < 0:
		return errors.New(errors.ErrCodeConfiguration, "%s must not be negative, got %d", KeyYAMLInline, s.YAMLInline)
	case s.JSONIndent < 1 || s.JSONIndent > 16:
		return errors.New(errors.ErrCodeConfiguration, "%s must be between 1 and 16, got %d", KeyJSONIndent, s.JSONIndent)
	case s.WatchDebounce < 0:
		return errors.New(errors.ErrCodeConfiguration, "%s must not be negative, got %s", KeyWatchDebounce, s.WatchDebounce)
	}
	_, err := manifest.ComparatorFor(s.Compare)
	return err
}

// Comparator returns the equality selected by the compare setting.
func (s Settings) Comparator() manifest.Comparator {
	c, err := manifest.ComparatorFor(s.Compare)
	if err != nil {
		return manifest.Equal
	}
	return c
}

// RetryPolicy returns the write retry policy.
func (s Settings) RetryPolicy() retry.Policy {
	return retry.Fixed(s.Retries, s.RetryDelay)
}

// YAMLOptions returns the YAML serialization options.
func (s Settings) YAMLOptions() manifest.YAMLOptions {
	return manifest.YAMLOptions{Indent: s.YAMLIndent, Inline: s.YAMLInline}
}

// JSONOptions returns the JSON serialization options.
func (s Settings) JSONOptions() manifest.JSONOptions {
	return manifest.JSONOptions{Indent: s.JSONIndent}
}
