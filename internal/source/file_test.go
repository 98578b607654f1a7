package source

import (
	"context"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/spf13/afero"
)

func newMemFS(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fsys, name, []byte(content), 0644); err != nil {
			t.Fatalf("WriteFile(%s) error = %v", name, err)
		}
	}
	return fsys
}

func TestFileOpener_Open(t *testing.T) {
	t.Parallel()
	fsys := newMemFS(t, map[string]string{"/case/host1.body": "0|/a|1|r|0|0|1|1|1|1|1\n"})
	o := NewFileOpener(fsys, strings.NewReader("from stdin"))
	ctx := context.Background()

	rc, err := o.Open(ctx, "/case/host1.body")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "0|/a|1|r|0|0|1|1|1|1|1\n" {
		t.Errorf("Open() read %q", data)
	}

	if _, err := o.Open(ctx, "/case/missing.body"); err == nil {
		t.Error("Open() expected error for missing file")
	}
	if _, err := o.Open(ctx, "/case"); err == nil {
		t.Error("Open() expected error for directory")
	}

	for _, name := range []string{"-", ""} {
		rc, err := o.Open(ctx, name)
		if err != nil {
			t.Fatalf("Open(%q) error = %v", name, err)
		}
		data, _ := io.ReadAll(rc)
		if string(data) != "from stdin" {
			t.Errorf("Open(%q) read %q, want stdin", name, data)
		}
	}
}

func TestFileOpener_Expand(t *testing.T) {
	t.Parallel()
	fsys := newMemFS(t, map[string]string{
		"/case/b.body":       "",
		"/case/a.body":       "",
		"/case/a.body.md5":   "",
		"/case/sub/c.body":   "",
		"/case/raw/skip.txt": "",
	})
	o := NewFileOpener(fsys, nil)
	ctx := context.Background()

	t.Run("directory", func(t *testing.T) {
		got, err := o.Expand(ctx, "/case", NewExcludeMatcher([]string{"*.md5", "raw/*"}))
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		want := []string{"/case/a.body", "/case/b.body", "/case/sub/c.body"}
		if !slices.Equal(got, want) {
			t.Errorf("Expand() = %v, want %v", got, want)
		}
	})

	t.Run("file", func(t *testing.T) {
		got, err := o.Expand(ctx, "/case/a.body.md5", NewExcludeMatcher([]string{"*.md5"}))
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if !slices.Equal(got, []string{"/case/a.body.md5"}) {
			t.Errorf("Expand() = %v, explicitly named files are never excluded", got)
		}
	})

	t.Run("stdin", func(t *testing.T) {
		got, err := o.Expand(ctx, "-", nil)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if !slices.Equal(got, []string{Stdin}) {
			t.Errorf("Expand() = %v", got)
		}
	})

	t.Run("missing", func(t *testing.T) {
		if _, err := o.Expand(ctx, "/nope", nil); err == nil {
			t.Error("Expand() expected error for missing path")
		}
	})
}
