package durable

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"

	"github.com/empaphy/composer-yaml/internal/errors"
	"github.com/empaphy/composer-yaml/internal/retry"
)

const (
	// DefaultAttempts is the number of write attempts before giving up.
	DefaultAttempts = 3
	// DefaultDelay is the pause between two write attempts.
	DefaultDelay = 500 * time.Millisecond

	dirMode  os.FileMode = 0777
	fileMode os.FileMode = 0666
)

// Writer performs change-detecting writes with bounded retries.
type Writer struct {
	fs     afero.Fs
	policy retry.Policy
	logger *log.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithFS sets the filesystem to write to (useful for testing).
func WithFS(fs afero.Fs) Option {
	return func(w *Writer) {
		w.fs = fs
	}
}

// WithAttempts sets the maximum number of write attempts.
func WithAttempts(n int) Option {
	return func(w *Writer) {
		w.policy.Attempts = n
	}
}

// WithDelay sets the fixed delay between write attempts.
func WithDelay(d time.Duration) Option {
	return func(w *Writer) {
		w.policy.Delay = d
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *log.Logger) Option {
	return func(w *Writer) {
		w.logger = l
	}
}

// New creates a Writer on the OS filesystem with the default retry budget.
func New(opts ...Option) *Writer {
	w := &Writer{
		fs:     afero.NewOsFs(),
		policy: retry.Fixed(DefaultAttempts, DefaultDelay),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = log.Default()
	}
	return w
}

// FS returns the filesystem the writer operates on.
func (w *Writer) FS() afero.Fs {
	return w.fs
}

// EnsureDir creates the parent directory of path when it is missing.
// An existing non-directory entry at that location is a DIRECTORY_ERROR.
func (w *Writer) EnsureDir(path string) error {
	dir := filepath.Dir(path)

	info, err := w.fs.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New(errors.ErrCodeDirectory, "%s exists and is not a directory", dir)
		}
		return nil
	}

	if mkErr := w.fs.MkdirAll(dir, dirMode); mkErr != nil {
		if info, statErr := w.fs.Stat(dir); statErr == nil && info.IsDir() {
			return nil
		}
		return errors.Wrap(errors.ErrCodeDirectory, mkErr, "directory %s does not exist and could not be created", dir)
	}
	return nil
}

// WriteIfChanged writes data to path unless the file already holds exactly
// those bytes. It returns the number of bytes written, which is zero for the
// no-op case. Failed writes are retried; the last failure is returned as a
// WRITE_ERROR.
func (w *Writer) WriteIfChanged(ctx context.Context, path string, data []byte) (int, error) {
	if err := w.EnsureDir(path); err != nil {
		return 0, err
	}

	var written int
	err := retry.Do(ctx, w.policy, func() error {
		n, err := w.putIfModified(path, data)
		if err != nil {
			w.logger.Debug("Write failed", "path", path, "err", err)
			return err
		}
		written = n
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeWrite, err, "writing %s", path)
	}

	if written == 0 {
		w.logger.Debug("Unchanged " + path)
	} else {
		w.logger.Debug("Writing "+path, "bytes", written)
	}
	return written, nil
}

// putIfModified compares the current file content with data and writes only
// when they differ. An unreadable or missing file counts as different.
func (w *Writer) putIfModified(path string, data []byte) (int, error) {
	current, err := afero.ReadFile(w.fs, path)
	if err == nil && len(current) > 0 && bytes.Equal(current, data) {
		return 0, nil
	}

	if err := afero.WriteFile(w.fs, path, data, fileMode); err != nil {
		return 0, err
	}
	return len(data), nil
}
