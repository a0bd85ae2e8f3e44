package manifest

import (
	"context"
	"regexp"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/empaphy/composer-yaml/internal/durable"
	"github.com/empaphy/composer-yaml/internal/errors"
)

// Fetcher retrieves the content of a remote manifest.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

var remotePattern = regexp.MustCompile(`(?i)^https?://`)

// IsRemote reports whether path is an http or https URL.
func IsRemote(path string) bool {
	return remotePattern.MatchString(path)
}

// File is one on-disk (or remote, read-only) representation of the manifest.
type File struct {
	path     string
	format   Format
	fs       afero.Fs
	fetcher  Fetcher
	writer   *durable.Writer
	logger   *log.Logger
	yamlOpts YAMLOptions
	jsonOpts JSONOptions
}

// FileOption configures a File.
type FileOption func(*File)

// WithFS sets the filesystem the file lives on.
func WithFS(fs afero.Fs) FileOption {
	return func(f *File) {
		f.fs = fs
	}
}

// WithFetcher sets the fetcher used for http and https paths.
func WithFetcher(fetcher Fetcher) FileOption {
	return func(f *File) {
		f.fetcher = fetcher
	}
}

// WithWriter sets the durable writer used by Write.
func WithWriter(w *durable.Writer) FileOption {
	return func(f *File) {
		f.writer = w
	}
}

// WithLogger sets the logger for debug output.
func WithLogger(l *log.Logger) FileOption {
	return func(f *File) {
		f.logger = l
	}
}

// WithFormat overrides the format detected from the file extension.
func WithFormat(format Format) FileOption {
	return func(f *File) {
		f.format = format
	}
}

// WithYAMLOptions sets the YAML serialization options.
func WithYAMLOptions(opts YAMLOptions) FileOption {
	return func(f *File) {
		f.yamlOpts = opts
	}
}

// WithJSONOptions sets the JSON serialization options.
func WithJSONOptions(opts JSONOptions) FileOption {
	return func(f *File) {
		f.jsonOpts = opts
	}
}

// NewFile binds path to a manifest format. A remote path without a fetcher
// is rejected with a CONFIGURATION_ERROR.
func NewFile(path string, opts ...FileOption) (*File, error) {
	f := &File{
		path:     path,
		format:   FormatFor(path),
		yamlOpts: DefaultYAMLOptions(),
		jsonOpts: DefaultJSONOptions(),
	}
	for _, opt := range opts {
		opt(f)
	}

	if f.fetcher == nil && IsRemote(path) {
		return nil, errors.New(errors.ErrCodeConfiguration, "http urls require a fetcher: %s", path)
	}

	if f.logger == nil {
		f.logger = log.Default()
	}
	if f.fs == nil {
		if f.writer != nil {
			f.fs = f.writer.FS()
		} else {
			f.fs = afero.NewOsFs()
		}
	}
	if f.writer == nil {
		f.writer = durable.New(durable.WithFS(f.fs), durable.WithLogger(f.logger))
	}
	return f, nil
}

// Path returns the location of the file.
func (f *File) Path() string {
	return f.path
}

// Format returns the serialization format of the file.
func (f *File) Format() Format {
	return f.format
}

// IsRemote reports whether the file is fetched over http(s).
func (f *File) IsRemote() bool {
	return IsRemote(f.path)
}

// Exists reports whether the file is present as a regular file.
// Remote files never exist in this sense.
func (f *File) Exists() bool {
	if f.IsRemote() {
		return false
	}
	info, err := f.fs.Stat(f.path)
	return err == nil && info.Mode().IsRegular()
}

// ModTime returns the last modification time of a local file.
func (f *File) ModTime() (time.Time, error) {
	info, err := f.fs.Stat(f.path)
	if err != nil {
		return time.Time{}, errors.Wrap(errors.ErrCodeRead, err, "could not stat %s", f.path)
	}
	return info.ModTime(), nil
}

// Read loads and decodes the file. Empty content yields NoContent.
func (f *File) Read(ctx context.Context) (Value, error) {
	var (
		data []byte
		err  error
	)
	if f.IsRemote() {
		f.logger.Debug("Downloading " + f.path)
		data, err = f.fetcher.Fetch(ctx, f.path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRead, err, "could not fetch %s", f.path)
		}
	} else {
		f.logger.Debug("Reading " + f.path)
		data, err = afero.ReadFile(f.fs, f.path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeRead, err, "could not read %s", f.path)
		}
	}

	v, err := Decode(f.format, data)
	if err != nil {
		return nil, errors.Annotate(err, "parsing %s", f.path)
	}
	return v, nil
}

// Write encodes v and stores it through the durable writer, skipping the
// write when the file already holds the same bytes. It returns the number of
// bytes written.
func (f *File) Write(ctx context.Context, v Value) (int, error) {
	if f.IsRemote() {
		return 0, errors.New(errors.ErrCodeConfiguration, "cannot write remote manifest %s", f.path)
	}
	if IsNoContent(v) {
		return 0, errors.New(errors.ErrCodeEmptyManifest, "refusing to write empty manifest to %s", f.path)
	}

	norm, err := normalize(v)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidManifest, err, "writing %s", f.path)
	}
	switch norm.(type) {
	case *Map, []any:
	default:
		return 0, errors.New(errors.ErrCodeInvalidManifest,
			"manifest root must be a mapping or sequence, got %s (writing %s)", kindOf(norm), f.path)
	}

	data, err := Encode(f.format, norm, f.yamlOpts, f.jsonOpts)
	if err != nil {
		return 0, errors.Annotate(err, "writing %s", f.path)
	}
	return f.writer.WriteIfChanged(ctx, f.path, data)
}

// Import reads src and writes its content to this file.
func (f *File) Import(ctx context.Context, src *File) (int, error) {
	v, err := src.Read(ctx)
	if err != nil {
		return 0, err
	}
	return f.Write(ctx, v)
}

// Validate reads the file and checks it against the manifest schema.
func (f *File) Validate(ctx context.Context) (*ValidationResult, error) {
	v, err := f.Read(ctx)
	if err != nil {
		return nil, err
	}
	return Validate(v)
}
