package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultImageCacheSize = 256

// ImageResolver maps the image names of a record to files inside one
// directory. Resolved paths are cached.
type ImageResolver struct {
	dir   string
	cache *lru.Cache[string, string]
}

// NewImageResolver builds a resolver for dir. size <= 0 selects a default
// cache size.
func NewImageResolver(dir string, size int) (*ImageResolver, error) {
	if size <= 0 {
		size = defaultImageCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}
	return &ImageResolver{dir: dir, cache: cache}, nil
}

// Dir returns the image directory.
func (r *ImageResolver) Dir() string {
	return r.dir
}

// Resolve returns absolute paths for the names that exist, in input order.
// Missing or unsafe names are skipped. It fails with *PermissionError when
// the directory cannot be read and with ErrNoImages when nothing resolves.
func (r *ImageResolver) Resolve(names []string) ([]string, error) {
	if r.dir == "" {
		return nil, &PermissionError{Err: errors.New("no image folder selected")}
	}
	info, err := os.Stat(r.dir)
	if err != nil {
		return nil, &PermissionError{Path: r.dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &PermissionError{Path: r.dir, Err: errors.New("not a directory")}
	}

	var out []string
	for _, name := range names {
		path, ok := r.lookup(name)
		if !ok {
			continue
		}
		out = append(out, path)
	}
	if len(out) == 0 {
		return nil, ErrNoImages
	}
	return out, nil
}

func (r *ImageResolver) lookup(name string) (string, bool) {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		slog.Warn("skipping image with path components", slog.String("image", name))
		return "", false
	}
	if path, ok := r.cache.Get(name); ok {
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
		r.cache.Remove(name)
	}

	path, err := filepath.Abs(filepath.Join(r.dir, name))
	if err != nil {
		slog.Warn("resolve image path", slog.String("image", name), slog.Any("error", err))
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		slog.Warn("image not found", slog.String("image", name), slog.String("dir", r.dir))
		return "", false
	}
	r.cache.Add(name, path)
	return path, true
}
