package host

import (
	"fmt"
	"maps"

	"github.com/Masterminds/semver/v3"

	"github.com/empaphy/composer-yaml/internal/manifest"
)

// defaultType is the package type the host assumes when none is declared.
const defaultType = "library"

// Composite is a read-only snapshot of the host configuration derived
// from one manifest. Accessors return copies.
type Composite struct {
	path       string
	name       string
	typ        string
	version    *semver.Version
	require    map[string]string
	requireDev map[string]string
	config     *manifest.Map
	autoload   *manifest.Map
}

func newComposite(path string, m *manifest.Map) *Composite {
	c := &Composite{
		path:       path,
		name:       stringField(m, "name"),
		typ:        stringField(m, "type"),
		require:    links(m, "require"),
		requireDev: links(m, "require-dev"),
		config:     mapField(m, "config"),
		autoload:   mapField(m, "autoload"),
	}
	if c.typ == "" {
		c.typ = defaultType
	}
	if s := stringField(m, "version"); s != "" {
		if v, err := manifest.ParseVersion(s); err == nil {
			c.version = v
		}
	}
	return c
}

// Path returns the manifest the snapshot was built from.
func (c *Composite) Path() string { return c.path }

// Name returns the package name, empty for root projects without one.
func (c *Composite) Name() string { return c.name }

// Type returns the package type.
func (c *Composite) Type() string { return c.typ }

// Version returns the declared version or nil.
func (c *Composite) Version() *semver.Version { return c.version }

// Require returns the runtime requirements.
func (c *Composite) Require() map[string]string { return maps.Clone(c.require) }

// RequireDev returns the development requirements.
func (c *Composite) RequireDev() map[string]string { return maps.Clone(c.requireDev) }

// Config returns a copy of the config section.
func (c *Composite) Config() *manifest.Map { return cloneMap(c.config) }

// Autoload returns a copy of the autoload section.
func (c *Composite) Autoload() *manifest.Map { return cloneMap(c.autoload) }

func (c *Composite) String() string {
	name := c.name
	if name == "" {
		name = "__root__"
	}
	if c.version != nil {
		return fmt.Sprintf("%s (%s) %s", name, c.typ, c.version)
	}
	return fmt.Sprintf("%s (%s)", name, c.typ)
}

func stringField(m *manifest.Map, key string) string {
	v, _ := m.Get(key)
	s, _ := v.(string)
	return s
}

func mapField(m *manifest.Map, key string) *manifest.Map {
	v, _ := m.Get(key)
	sub, ok := v.(*manifest.Map)
	if !ok {
		return manifest.NewMap()
	}
	return cloneMap(sub)
}

func links(m *manifest.Map, key string) map[string]string {
	out := make(map[string]string)
	v, _ := m.Get(key)
	sub, ok := v.(*manifest.Map)
	if !ok {
		return out
	}
	for _, pkg := range sub.Keys() {
		c, _ := sub.Get(pkg)
		if s, ok := c.(string); ok {
			out[pkg] = s
		}
	}
	return out
}

func cloneMap(m *manifest.Map) *manifest.Map {
	out := manifest.NewMap()
	for _, k := range m.Keys() {
		v, _ := m.Get(k)
		out.Set(k, cloneValue(v))
	}
	return out
}

func cloneValue(v manifest.Value) manifest.Value {
	switch t := v.(type) {
	case *manifest.Map:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = cloneValue(e)
		}
		return out
	default:
		return v
	}
}
