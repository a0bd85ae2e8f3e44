// Package reconcile keeps a YAML manifest and its JSON counterpart in sync
// across the host's lifecycle. The YAML file is authoritative while the
// plugin is active; on deactivation the JSON file is copied back when the
// two have drifted apart.
package reconcile

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/empaphy/composer-yaml/internal/manifest"
)

// State is the position of a reconciliation in its two-step flow.
type State int

const (
	// Uninitialized means no transition has run yet.
	Uninitialized State = iota
	// Seeded means the YAML file was created from the JSON file.
	Seeded
	// Synced means both files describe the same manifest.
	Synced
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Seeded:
		return "seeded"
	case Synced:
		return "synced"
	default:
		return "unknown"
	}
}

// Result reports what a reconciliation did.
type Result struct {
	State State
	// Seeded is true when the YAML file did not exist and was created.
	Seeded bool
	// JSONBytes and YAMLBytes count the bytes physically written to each
	// file; zero means the file already held the right content.
	JSONBytes int
	YAMLBytes int
}

// Reconciler owns the two manifest files for one lifecycle invocation.
type Reconciler struct {
	yaml    *manifest.File
	json    *manifest.File
	compare manifest.Comparator
	logger  *log.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithComparator sets the equality used by Deactivate.
func WithComparator(c manifest.Comparator) Option {
	return func(r *Reconciler) {
		if c != nil {
			r.compare = c
		}
	}
}

// WithLogger sets the logger for transition messages.
func WithLogger(l *log.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Reconciler for the given YAML and JSON files.
func New(yaml, json *manifest.File, opts ...Option) *Reconciler {
	r := &Reconciler{
		yaml:    yaml,
		json:    json,
		compare: manifest.Equal,
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// YAML returns the authoritative manifest file.
func (r *Reconciler) YAML() *manifest.File { return r.yaml }

// JSON returns the host manifest file.
func (r *Reconciler) JSON() *manifest.File { return r.json }

// Activate seeds the YAML file from the JSON file when it is missing, then
// regenerates the JSON file from the YAML file.
func (r *Reconciler) Activate(ctx context.Context) (*Result, error) {
	res := &Result{State: Uninitialized}

	if !r.yaml.IsRemote() && !r.yaml.Exists() {
		r.logger.Info("Seeding manifest", "from", r.json.Path(), "to", r.yaml.Path())
		n, err := r.yaml.Import(ctx, r.json)
		if err != nil {
			return res, err
		}
		res.Seeded = true
		res.YAMLBytes = n
		res.State = Seeded
	} else {
		r.warnIfJSONNewer()
	}

	n, err := r.Sync(ctx)
	if err != nil {
		return res, err
	}
	res.JSONBytes = n
	res.State = Synced
	return res, nil
}

// Sync regenerates the JSON file from the YAML file and returns the number
// of bytes written.
func (r *Reconciler) Sync(ctx context.Context) (int, error) {
	n, err := r.json.Import(ctx, r.yaml)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		r.logger.Debug("Regenerated manifest", "path", r.json.Path(), "bytes", n)
	} else {
		r.logger.Debug("Manifest up to date", "path", r.json.Path())
	}
	return n, nil
}

// Deactivate writes the JSON content back to the YAML file when the two
// differ under the configured comparator. A missing YAML file always
// differs. Remote YAML manifests are read-only and left alone.
func (r *Reconciler) Deactivate(ctx context.Context) (*Result, error) {
	res := &Result{State: Uninitialized}
	if r.yaml.IsRemote() {
		r.logger.Debug("Skipping remote manifest", "path", r.yaml.Path())
		return res, nil
	}

	jsonValue, err := r.json.Read(ctx)
	if err != nil {
		return res, err
	}

	if r.yaml.Exists() {
		yamlValue, err := r.yaml.Read(ctx)
		if err != nil {
			return res, err
		}
		if r.compare(jsonValue, yamlValue) {
			r.logger.Debug("Manifests agree", "yaml", r.yaml.Path(), "json", r.json.Path())
			res.State = Synced
			return res, nil
		}
	}

	r.logger.Info("Updating manifest", "from", r.json.Path(), "to", r.yaml.Path())
	n, err := r.yaml.Write(ctx, jsonValue)
	if err != nil {
		return res, err
	}
	res.YAMLBytes = n
	res.State = Synced
	return res, nil
}

// warnIfJSONNewer flags JSON-side edits that the coming regeneration will
// overwrite.
func (r *Reconciler) warnIfJSONNewer() {
	if r.yaml.IsRemote() || !r.json.Exists() {
		return
	}
	yamlTime, err := r.yaml.ModTime()
	if err != nil {
		return
	}
	jsonTime, err := r.json.ModTime()
	if err != nil {
		return
	}
	if jsonTime.After(yamlTime) {
		r.logger.Warn("JSON manifest is newer than YAML manifest; its changes will be overwritten",
			"json", r.json.Path(), "yaml", r.yaml.Path())
	}
}
