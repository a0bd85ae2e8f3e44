//go:build integration

package integration_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/empaphy/composer-yaml/internal/durable"
	"github.com/empaphy/composer-yaml/internal/host"
	"github.com/empaphy/composer-yaml/internal/manifest"
	"github.com/empaphy/composer-yaml/internal/reconcile"
	"github.com/empaphy/composer-yaml/internal/remote"
	"github.com/empaphy/composer-yaml/internal/retry"
)

// testEnv holds paths to an isolated project.
type testEnv struct {
	ProjectDir string
	Host       *host.Composer
	Logger     *log.Logger
}

// setupTestEnv creates a project directory and clears the manifest
// variables so the real environment cannot leak in. The env vars are
// restored after the test.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	t.Setenv("COMPOSER", "")
	t.Setenv("COMPOSER_YAML", "")

	dir := t.TempDir()
	logger := log.New(os.Stderr)
	logger.SetLevel(log.WarnLevel)

	return &testEnv{
		ProjectDir: dir,
		Host:       host.NewComposer(host.WithWorkingDir(dir), host.WithLogger(logger)),
		Logger:     logger,
	}
}

// reconciler builds a reconciler the way one lifecycle invocation does.
func (env *testEnv) reconciler(t *testing.T, opts ...reconcile.Option) *reconcile.Reconciler {
	t.Helper()

	w := durable.New(durable.WithDelay(10*time.Millisecond), durable.WithLogger(env.Logger))
	f := remote.New(remote.WithRetry(retry.Fixed(2, 10*time.Millisecond)), remote.WithLogger(env.Logger))

	yamlFile, err := manifest.NewFile(env.Host.YAMLManifestPath(),
		manifest.WithWriter(w), manifest.WithFetcher(f), manifest.WithLogger(env.Logger))
	if err != nil {
		t.Fatalf("NewFile(yaml): %v", err)
	}
	jsonFile, err := manifest.NewFile(env.Host.ManifestPath(),
		manifest.WithWriter(w), manifest.WithLogger(env.Logger))
	if err != nil {
		t.Fatalf("NewFile(json): %v", err)
	}

	opts = append([]reconcile.Option{reconcile.WithLogger(env.Logger)}, opts...)
	return reconcile.New(yamlFile, jsonFile, opts...)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}

func assertFileExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected %s to exist: %v", path, err)
		return
	}
	if info.IsDir() {
		t.Errorf("expected %s to be a file, got directory", path)
	}
}

func assertFileNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected %s to not exist", path)
	}
}

// decode reads path and returns its top-level mapping.
func decode(t *testing.T, path string) *manifest.Map {
	t.Helper()
	v, err := manifest.Decode(manifest.FormatFor(path), []byte(readFile(t, path)))
	if err != nil {
		t.Fatalf("decoding %s: %v", path, err)
	}
	m, ok := v.(*manifest.Map)
	if !ok {
		t.Fatalf("%s root is %T, want mapping", path, v)
	}
	return m
}
