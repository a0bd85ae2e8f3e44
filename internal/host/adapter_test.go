package host

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/empaphy/composer-yaml/internal/errors"
)

func envMap(vars map[string]string) func(string) string {
	return func(key string) string { return vars[key] }
}

func TestYAMLPath(t *testing.T) {
	tests := []struct {
		name     string
		jsonPath string
		override string
		want     string
	}{
		{"default", "composer.json", "", "composer.yaml"},
		{"nested", filepath.Join("app", "composer.json"), "", filepath.Join("app", "composer.yaml")},
		{"custom base name", "acme.json", "", "acme.yaml"},
		{"no extension", "manifest", "", "manifest.yaml"},
		{"override", "composer.json", "config/composer.yml", "config/composer.yml"},
		{"blank override", "composer.json", "   ", "composer.yaml"},
		{"remote override", "composer.json", "https://example.com/composer.yaml", "https://example.com/composer.yaml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := YAMLPath(tt.jsonPath, tt.override); got != tt.want {
				t.Errorf("YAMLPath(%q, %q) = %q, want %q", tt.jsonPath, tt.override, got, tt.want)
			}
		})
	}
}

func TestComposer_ManifestPaths(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		wantJSON string
		wantYAML string
	}{
		{
			name:     "defaults",
			wantJSON: filepath.Join("/work", "composer.json"),
			wantYAML: filepath.Join("/work", "composer.yaml"),
		},
		{
			name:     "host override",
			env:      map[string]string{"COMPOSER": "other.json"},
			wantJSON: filepath.Join("/work", "other.json"),
			wantYAML: filepath.Join("/work", "other.yaml"),
		},
		{
			name:     "yaml override",
			env:      map[string]string{"COMPOSER_YAML": " src.yml "},
			wantJSON: filepath.Join("/work", "composer.json"),
			wantYAML: filepath.Join("/work", "src.yml"),
		},
		{
			name:     "absolute paths",
			env:      map[string]string{"COMPOSER": "/etc/app/composer.json", "COMPOSER_YAML": "/srv/composer.yaml"},
			wantJSON: "/etc/app/composer.json",
			wantYAML: "/srv/composer.yaml",
		},
		{
			name:     "remote yaml",
			env:      map[string]string{"COMPOSER_YAML": "https://example.com/composer.yaml"},
			wantJSON: filepath.Join("/work", "composer.json"),
			wantYAML: "https://example.com/composer.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposer(WithWorkingDir("/work"), WithEnv(envMap(tt.env)))
			if got := c.ManifestPath(); got != tt.wantJSON {
				t.Errorf("ManifestPath() = %q, want %q", got, tt.wantJSON)
			}
			if got := c.YAMLManifestPath(); got != tt.wantYAML {
				t.Errorf("YAMLManifestPath() = %q, want %q", got, tt.wantYAML)
			}
		})
	}
}

func TestComposer_ManifestPathFromProcessEnv(t *testing.T) {
	t.Setenv("COMPOSER", "from-env.json")
	c := NewComposer(WithWorkingDir("/work"))
	if got := c.ManifestPath(); got != filepath.Join("/work", "from-env.json") {
		t.Errorf("ManifestPath() = %q", got)
	}
}

func TestComposer_Reload(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `{
    "name": "acme/app",
    "version": "2.1.0",
    "require": {"php": ">=8.1", "acme/lib": "^1.0"},
    "require-dev": {"phpunit/phpunit": "^10.0"},
    "autoload": {"psr-4": {"Acme\\App\\": "src/"}},
    "config": {"sort-packages": true}
}`
	if err := afero.WriteFile(fs, "/work/composer.json", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewComposer(WithFS(fs), WithLogger(log.New(io.Discard)))
	comp, err := c.Reload(context.Background(), "/work/composer.json")
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if comp.Name() != "acme/app" {
		t.Errorf("Name() = %q", comp.Name())
	}
	if comp.Type() != "library" {
		t.Errorf("Type() = %q, want default library", comp.Type())
	}
	if comp.Version() == nil || comp.Version().String() != "2.1.0" {
		t.Errorf("Version() = %v, want 2.1.0", comp.Version())
	}
	if comp.Require()["acme/lib"] != "^1.0" || len(comp.Require()) != 2 {
		t.Errorf("Require() = %v", comp.Require())
	}
	if comp.RequireDev()["phpunit/phpunit"] != "^10.0" {
		t.Errorf("RequireDev() = %v", comp.RequireDev())
	}
	if v, _ := comp.Config().Get("sort-packages"); v != true {
		t.Errorf("Config().sort-packages = %v", v)
	}
	if comp.Autoload().Len() != 1 {
		t.Errorf("Autoload() = %v", comp.Autoload().Keys())
	}
	if comp.String() != "acme/app (library) 2.1.0" {
		t.Errorf("String() = %q", comp.String())
	}
	if comp.Path() != "/work/composer.json" {
		t.Errorf("Path() = %q", comp.Path())
	}
}

func TestComposite_IsImmutable(t *testing.T) {
	fs := afero.NewMemMapFs()
	content := `{"name": "acme/app", "require": {"php": ">=8.1"}, "config": {"platform": {"php": "8.1.0"}}}`
	if err := afero.WriteFile(fs, "/composer.json", []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	comp, err := NewComposer(WithFS(fs), WithLogger(log.New(io.Discard))).Reload(context.Background(), "/composer.json")
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	comp.Require()["php"] = "*"
	cfg := comp.Config()
	cfg.Set("platform", "tampered")

	if comp.Require()["php"] != ">=8.1" {
		t.Error("Require() exposed internal state")
	}
	if v, _ := comp.Config().Get("platform"); v == "tampered" {
		t.Error("Config() exposed internal state")
	}
}

func TestComposer_ReloadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errors.Code
	}{
		{"empty", "", errors.ErrCodeEmptyManifest},
		{"sequence root", `["a"]`, errors.ErrCodeInvalidManifest},
		{"malformed", `{"name":`, errors.ErrCodeParse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			if err := afero.WriteFile(fs, "/composer.json", []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := NewComposer(WithFS(fs), WithLogger(log.New(io.Discard))).Reload(context.Background(), "/composer.json")
			if !errors.Is(err, tt.code) {
				t.Errorf("error = %v, want %s", err, tt.code)
			}
		})
	}

	_, err := NewComposer(WithFS(afero.NewMemMapFs()), WithLogger(log.New(io.Discard))).Reload(context.Background(), "/missing.json")
	if !errors.Is(err, errors.ErrCodeRead) {
		t.Errorf("missing file error = %v, want READ_ERROR", err)
	}
}

func TestComposite_UnparseableVersion(t *testing.T) {
	fs := afero.NewMemMapFs()
	if err := afero.WriteFile(fs, "/composer.json", []byte(`{"type": "project", "version": "banana"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	comp, err := NewComposer(WithFS(fs), WithLogger(log.New(io.Discard))).Reload(context.Background(), "/composer.json")
	if err != nil {
		t.Fatalf("Reload error: %v", err)
	}
	if comp.Version() != nil {
		t.Errorf("Version() = %v, want nil", comp.Version())
	}
	if comp.String() != "__root__ (project)" {
		t.Errorf("String() = %q", comp.String())
	}
}
