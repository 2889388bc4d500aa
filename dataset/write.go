package dataset

import (
	"bufio"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/YuminosukeSato/musicmap/pkg/errors"
)

// WriteCSV writes t as UTF-8 comma-delimited text with a header row,
// replacing any existing file at path. The data goes to a temporary file in
// the same directory which is then renamed over path, so readers never see
// a partially written table. A replaced file keeps its permission bits; a
// new one is created 0644. Concurrent writers are serialized through an
// advisory lock on path + ".lock", which stays on disk after the write.
func WriteCSV(t *Table, path string) (err error) {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return errors.NewIOError("lock", path, err)
	}
	defer func() {
		_ = lock.Unlock()
	}()

	mode := os.FileMode(0o644)
	if fi, statErr := os.Stat(path); statErr == nil {
		mode = fi.Mode().Perm()
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.NewIOError("create", path, err)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	if err = t.df.WriteCSV(w); err != nil {
		_ = tmp.Close()
		return errors.NewIOError("write", path, err)
	}
	if err = w.Flush(); err != nil {
		_ = tmp.Close()
		return errors.NewIOError("write", path, err)
	}
	if err = tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return errors.NewIOError("chmod", path, err)
	}
	if err = tmp.Close(); err != nil {
		return errors.NewIOError("close", path, err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.NewIOError("rename", path, err)
	}
	return nil
}
