package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const tempPrefix = ".tactica-tmp-"

var errBadName = errors.New("storage: invalid document name")

// FS implements Provider on a local directory.
type FS struct {
	root string
	now  func() time.Time
}

// NewFS opens root, which must be an existing directory.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("storage: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("storage: root is not a directory: %s", abs)
	}
	return &FS{root: abs, now: time.Now}, nil
}

// Root returns the absolute storage root.
func (f *FS) Root() string { return f.root }

// resolve maps a document name onto a file under the root.
func (f *FS) resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		name == "." || name == ".." || strings.HasPrefix(name, tempPrefix) {
		return "", fmt.Errorf("%w: %q", errBadName, name)
	}
	return filepath.Join(f.root, name), nil
}

func (f *FS) List(ext string) ([]FileInfo, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("storage: list: %w", err)
	}
	out := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, FileInfo{Name: name, Size: info.Size(), UpdatedAt: info.ModTime()})
	}
	return out, nil
}

func (f *FS) Read(name string) ([]byte, error) {
	p, err := f.resolve(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", name, err)
	}
	return data, nil
}

// Write goes through a synced temp file and a rename, so readers and the
// directory watcher never observe a half-written document.
func (f *FS) Write(name string, content []byte) (err error) {
	p, err := f.resolve(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.root, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", name, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync %s: %w", name, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: close %s: %w", name, err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("storage: replace %s: %w", name, err)
	}
	return nil
}

// Trash keeps every deleted revision by suffixing a UTC timestamp.
func (f *FS) Trash(name string) (string, error) {
	p, err := f.resolve(name)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("storage: trash %s: %w", name, err)
	}
	dir := filepath.Join(f.root, TrashDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create trash: %w", err)
	}
	ext := filepath.Ext(name)
	trashed := strings.TrimSuffix(name, ext) + "." + f.now().UTC().Format("20060102T150405.000000000") + ext
	if err := os.Rename(p, filepath.Join(dir, trashed)); err != nil {
		return "", fmt.Errorf("storage: trash %s: %w", name, err)
	}
	return trashed, nil
}
