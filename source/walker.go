package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/codemine/core"
)

// DefaultMaxFileSize skips files larger than 1 MiB.
const DefaultMaxFileSize = 1 << 20

// Walker collects source files under a directory.
type Walker struct {
	extensions  map[string]struct{}
	maxFileSize int64
	logger      *slog.Logger
}

// WalkerOption configures a Walker.
type WalkerOption func(*Walker)

// WithExtensions limits the walk to files with these extensions
// (".go", ".py", ...). Matching ignores case.
func WithExtensions(exts []string) WalkerOption {
	return func(w *Walker) {
		w.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			w.extensions[ext] = struct{}{}
		}
	}
}

// WithMaxFileSize skips files larger than n bytes. Zero disables the limit.
func WithMaxFileSize(n int64) WalkerOption {
	return func(w *Walker) {
		w.maxFileSize = n
	}
}

// WithWalkerLogger sets the logger.
func WithWalkerLogger(logger *slog.Logger) WalkerOption {
	return func(w *Walker) {
		w.logger = logger
	}
}

// NewWalker creates a Walker for core.SourceExtensions.
func NewWalker(opts ...WalkerOption) *Walker {
	w := &Walker{maxFileSize: DefaultMaxFileSize, logger: slog.Default()}
	WithExtensions(core.SourceExtensions)(w)
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "source")
	return w
}

// Walk returns the source files under root, sorted by path. Paths are
// relative to root with forward slashes. Hidden directories are skipped;
// unreadable, oversized and non-UTF-8 files are skipped with a warning.
func (w *Walker) Walk(ctx context.Context, root string) ([]core.SourceFile, error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	var files []core.SourceFile
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			w.logger.Warn("skipping unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !w.accepts(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		file, ok := w.read(path, rel, d)
		if ok {
			files = append(files, file)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		w.logger.Warn("no source files found", "root", root)
	}
	return files, nil
}

func (w *Walker) accepts(name string) bool {
	_, ok := w.extensions[strings.ToLower(filepath.Ext(name))]
	return ok
}

func (w *Walker) read(path, rel string, d fs.DirEntry) (core.SourceFile, bool) {
	if w.maxFileSize > 0 {
		if info, err := d.Info(); err == nil && info.Size() > w.maxFileSize {
			w.logger.Warn("skipping large file", "path", rel, "size", info.Size())
			return core.SourceFile{}, false
		}
	}

	b, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("skipping unreadable file", "path", rel, "err", err)
		return core.SourceFile{}, false
	}
	if !utf8.Valid(b) {
		w.logger.Warn("skipping non UTF-8 file", "path", rel)
		return core.SourceFile{}, false
	}

	return core.SourceFile{
		Path:     rel,
		Language: core.LanguageFromPath(rel),
		Text:     string(b),
	}, true
}

// readmeNames are tried in order by ReadReadme.
var readmeNames = []string{"README.md", "README.rst", "README.txt", "README"}

// ReadReadme returns the text of the repository's README, or "" when there
// is none.
func ReadReadme(root string) (string, error) {
	for _, name := range readmeNames {
		b, err := os.ReadFile(filepath.Join(root, name))
		if err == nil {
			return string(b), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
	}
	return "", nil
}
