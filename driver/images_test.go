package driver

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestImageResolverResolve(t *testing.T) {
	dir := imageDir(t, "a.jpg", "b.png")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	r, err := NewImageResolver(dir, 4)
	if err != nil {
		t.Fatalf("NewImageResolver: %v", err)
	}

	got, err := r.Resolve([]string{"b.png", "missing.jpg", "../a.jpg", "sub", "a.jpg"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	var names []string
	for _, p := range got {
		if !filepath.IsAbs(p) {
			t.Errorf("path %q is not absolute", p)
		}
		names = append(names, filepath.Base(p))
	}
	if diff := cmp.Diff([]string{"b.png", "a.jpg"}, names); diff != "" {
		t.Errorf("resolved mismatch (-want +got):\n%s", diff)
	}
	if r.cache.Len() != 2 {
		t.Errorf("cache len = %d, want 2", r.cache.Len())
	}
}

func TestImageResolverDropsStaleCacheEntries(t *testing.T) {
	dir := imageDir(t, "a.jpg", "b.jpg")
	r, err := NewImageResolver(dir, 4)
	if err != nil {
		t.Fatalf("NewImageResolver: %v", err)
	}
	if _, err := r.Resolve([]string{"a.jpg"}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "a.jpg")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	got, err := r.Resolve([]string{"a.jpg", "b.jpg"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "b.jpg" {
		t.Errorf("got %v, want only b.jpg", got)
	}
	if _, ok := r.cache.Get("a.jpg"); ok {
		t.Error("stale entry still cached")
	}
}

func TestImageResolverErrors(t *testing.T) {
	t.Run("no directory configured", func(t *testing.T) {
		r, _ := NewImageResolver("", 0)
		var perm *PermissionError
		if _, err := r.Resolve([]string{"a.jpg"}); !errors.As(err, &perm) {
			t.Fatalf("expected *PermissionError, got %v", err)
		}
	})

	t.Run("path is a file", func(t *testing.T) {
		dir := imageDir(t, "a.jpg")
		r, _ := NewImageResolver(filepath.Join(dir, "a.jpg"), 0)
		var perm *PermissionError
		if _, err := r.Resolve([]string{"a.jpg"}); !errors.As(err, &perm) {
			t.Fatalf("expected *PermissionError, got %v", err)
		}
	})

	t.Run("nothing resolves", func(t *testing.T) {
		r, _ := NewImageResolver(imageDir(t), 0)
		if _, err := r.Resolve([]string{"a.jpg", ""}); !errors.Is(err, ErrNoImages) {
			t.Fatalf("expected ErrNoImages, got %v", err)
		}
	})
}
