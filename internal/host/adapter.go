package host

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/empaphy/composer-yaml/internal/branding"
	"github.com/empaphy/composer-yaml/internal/errors"
	"github.com/empaphy/composer-yaml/internal/manifest"
)

// EnvManifest is the host's variable naming its JSON manifest.
const EnvManifest = "COMPOSER"

// EnvYAMLManifest names the variable that overrides the YAML manifest path.
func EnvYAMLManifest() string {
	return branding.EnvPrefix()
}

// Adapter is what the reconciler needs from the host.
type Adapter interface {
	// ManifestPath returns the path of the JSON manifest the host reads.
	ManifestPath() string
	// Reload rebuilds the host configuration from the manifest at path.
	Reload(ctx context.Context, path string) (*Composite, error)
}

// Composer adapts the Composer dependency manager.
type Composer struct {
	workDir string
	getenv  func(string) string
	fs      afero.Fs
	logger  *log.Logger
}

var _ Adapter = (*Composer)(nil)

// Option configures a Composer adapter.
type Option func(*Composer)

// WithWorkingDir resolves relative manifest paths against dir.
func WithWorkingDir(dir string) Option {
	return func(c *Composer) {
		c.workDir = dir
	}
}

// WithEnv replaces the environment lookup (useful for testing).
func WithEnv(getenv func(string) string) Option {
	return func(c *Composer) {
		c.getenv = getenv
	}
}

// WithFS sets the filesystem manifests are read from.
func WithFS(fs afero.Fs) Option {
	return func(c *Composer) {
		c.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Composer) {
		c.logger = l
	}
}

// NewComposer creates a Composer adapter rooted at the current directory.
func NewComposer(opts ...Option) *Composer {
	c := &Composer{
		workDir: ".",
		getenv:  os.Getenv,
		fs:      afero.NewOsFs(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ManifestPath returns $COMPOSER, or composer.json in the working directory.
func (c *Composer) ManifestPath() string {
	path := strings.TrimSpace(c.getenv(EnvManifest))
	if path == "" {
		path = branding.JSONFilename()
	}
	return c.resolve(path)
}

// YAMLManifestPath returns the YAML manifest path: the override variable
// when set, else the path derived from ManifestPath.
func (c *Composer) YAMLManifestPath() string {
	override := strings.TrimSpace(c.getenv(EnvYAMLManifest()))
	if override != "" && !manifest.IsRemote(override) {
		override = c.resolve(override)
	}
	return YAMLPath(c.ManifestPath(), override)
}

// Reload decodes the manifest at path into a Composite.
func (c *Composer) Reload(ctx context.Context, path string) (*Composite, error) {
	f, err := manifest.NewFile(path, manifest.WithFS(c.fs), manifest.WithLogger(c.logger))
	if err != nil {
		return nil, err
	}
	v, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	if manifest.IsNoContent(v) {
		return nil, errors.New(errors.ErrCodeEmptyManifest, "%s is empty", path)
	}
	m, ok := v.(*manifest.Map)
	if !ok {
		return nil, errors.New(errors.ErrCodeInvalidManifest, "%s: manifest root must be a mapping", path)
	}

	comp := newComposite(path, m)
	if raw, ok := m.Get("version"); ok && comp.version == nil {
		c.logger.Warn("Ignoring unparseable package version", "path", path, "version", raw)
	}
	c.logger.Debug("Reloaded configuration", "package", comp.String())
	return comp, nil
}

func (c *Composer) resolve(path string) string {
	if filepath.IsAbs(path) || c.workDir == "" {
		return path
	}
	return filepath.Join(c.workDir, path)
}

// YAMLPath returns override when it is non-blank; otherwise jsonPath with
// its extension replaced by ".yaml".
func YAMLPath(jsonPath, override string) string {
	if o := strings.TrimSpace(override); o != "" {
		return o
	}
	return strings.TrimSuffix(jsonPath, filepath.Ext(jsonPath)) + ".yaml"
}
