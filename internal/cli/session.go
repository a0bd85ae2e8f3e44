package cli

import (
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/empaphy/composer-yaml/internal/branding"
	"github.com/empaphy/composer-yaml/internal/config"
	"github.com/empaphy/composer-yaml/internal/durable"
	"github.com/empaphy/composer-yaml/internal/host"
	"github.com/empaphy/composer-yaml/internal/manifest"
	"github.com/empaphy/composer-yaml/internal/reconcile"
	"github.com/empaphy/composer-yaml/internal/remote"
)

// session bundles everything one command invocation needs. It is built
// fresh per command; nothing is cached between runs.
type session struct {
	logger   *log.Logger
	settings config.Settings
	host     *host.Composer
	writer   *durable.Writer
	fetcher  *remote.HTTPFetcher
}

func newSession(cmd *cobra.Command) (*session, error) {
	logger := loggerFromContext(cmd.Context())

	settings, err := config.Current()
	if err != nil {
		return nil, err
	}

	dir := workingDir
	if dir == "" {
		dir = "."
	}

	fetchOpts := []remote.Option{
		remote.WithRetry(settings.RetryPolicy()),
		remote.WithLogger(logger),
		remote.WithUserAgent(branding.CLIName() + "/" + buildVersion),
	}
	if token := os.Getenv(branding.EnvVar("TOKEN")); token != "" {
		fetchOpts = append(fetchOpts, remote.WithToken(token))
	}

	return &session{
		logger:   logger,
		settings: settings,
		host:     host.NewComposer(host.WithWorkingDir(dir), host.WithLogger(logger)),
		writer: durable.New(
			durable.WithAttempts(settings.Retries),
			durable.WithDelay(settings.RetryDelay),
			durable.WithLogger(logger),
		),
		fetcher: remote.New(fetchOpts...),
	}, nil
}

func (s *session) fileOptions() []manifest.FileOption {
	return []manifest.FileOption{
		manifest.WithWriter(s.writer),
		manifest.WithFetcher(s.fetcher),
		manifest.WithLogger(s.logger),
		manifest.WithYAMLOptions(s.settings.YAMLOptions()),
		manifest.WithJSONOptions(s.settings.JSONOptions()),
	}
}

// open binds a user-supplied path to a manifest file. Relative local paths
// are taken from the working directory.
func (s *session) open(path string) (*manifest.File, error) {
	if !manifest.IsRemote(path) && !filepath.IsAbs(path) && workingDir != "" {
		path = filepath.Join(workingDir, path)
	}
	return manifest.NewFile(path, s.fileOptions()...)
}

// reconciler pairs the YAML and JSON manifests of the current project.
func (s *session) reconciler() (*reconcile.Reconciler, error) {
	yamlFile, err := manifest.NewFile(s.host.YAMLManifestPath(), s.fileOptions()...)
	if err != nil {
		return nil, err
	}
	jsonFile, err := manifest.NewFile(s.host.ManifestPath(), s.fileOptions()...)
	if err != nil {
		return nil, err
	}
	return reconcile.New(yamlFile, jsonFile,
		reconcile.WithComparator(s.settings.Comparator()),
		reconcile.WithLogger(s.logger),
	), nil
}
