package source

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"
)

// Stdin is the input name that reads standard input.
const Stdin = "-"

// FileOpener opens body files from a filesystem. The zero value is not
// usable; construct with NewFileOpener.
type FileOpener struct {
	fs    afero.Fs
	stdin io.Reader
}

var _ Opener = (*FileOpener)(nil)

// NewFileOpener creates a FileOpener on fsys. Passing nil uses the operating
// system filesystem.
func NewFileOpener(fsys afero.Fs, stdin io.Reader) *FileOpener {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	if stdin == nil {
		stdin = os.Stdin
	}
	return &FileOpener{fs: fsys, stdin: stdin}
}

// Open opens name for reading. "-" and "" read standard input.
func (o *FileOpener) Open(_ context.Context, name string) (io.ReadCloser, error) {
	if name == Stdin || name == "" {
		return io.NopCloser(o.stdin), nil
	}

	info, err := o.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", name)
	}

	f, err := o.fs.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", name, err)
	}
	return f, nil
}

// Expand returns name itself when it is a file or standard input, and the
// sorted regular files beneath it when it is a directory. Excluded files are
// skipped and excluded directories are not descended into.
func (o *FileOpener) Expand(_ context.Context, name string, exclude *ExcludeMatcher) ([]string, error) {
	if name == Stdin || name == "" {
		return []string{Stdin}, nil
	}

	info, err := o.fs.Stat(name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}
	if !info.IsDir() {
		return []string{name}, nil
	}

	var paths []string
	err = afero.Walk(o.fs, name, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(name, p)
		if err != nil {
			return fmt.Errorf("relative path of %s: %w", p, err)
		}
		rel = filepath.ToSlash(rel)
		if fi.IsDir() {
			if exclude.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !fi.Mode().IsRegular() || exclude.SkipFile(rel) {
			return nil
		}
		paths = append(paths, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory: %w", err)
	}

	sort.Strings(paths)
	return paths, nil
}
