// Package fsutil holds billy filesystem helpers shared by the writers.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"

	billy "github.com/go-git/go-billy/v5"
)

// WriteFileAtomic writes data to name: content goes to a temp file in the
// same directory first, then is renamed over the destination. Missing parent
// directories are created.
func WriteFileAtomic(bfs billy.Filesystem, name string, data []byte) error {
	dir := path.Dir(name)
	if err := bfs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := bfs.TempFile(dir, ".syncgen-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = bfs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = bfs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("close temp: %w", err)
	}

	if err := bfs.Rename(tmpName, name); err != nil {
		_ = bfs.Remove(tmpName) // best-effort cleanup
		return fmt.Errorf("rename temp to %s: %w", name, err)
	}
	return nil
}

// Exists reports whether name exists. Errors other than not-exist count as existing
// so callers never overwrite something they could not inspect.
func Exists(bfs billy.Basic, name string) bool {
	_, err := bfs.Stat(name)
	if err == nil {
		return true
	}
	return !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err)
}
