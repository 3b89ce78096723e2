package logstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// storage resolves and opens files rooted at a single base directory, the
// pattern every segment, index, and metadata file in a partition shares.
type storage struct {
	baseDir string
}

func newStorage(baseDir string) (*storage, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("logstore: create base dir %s: %w", baseDir, err)
	}
	return &storage{baseDir: baseDir}, nil
}

// openFile opens (creating if absent) a read/append file under baseDir,
// reporting whether it already existed.
func (s *storage) openFile(name string) (existed bool, path string, f *os.File, err error) {
	path = filepath.Join(s.baseDir, name)
	existed, f, err = openFileAt(path)
	return existed, path, f, err
}

func openFileAt(path string) (existed bool, f *os.File, err error) {
	if _, statErr := os.Stat(path); statErr == nil {
		existed = true
	}
	f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return existed, nil, fmt.Errorf("logstore: open %s: %w", path, err)
	}
	return existed, f, nil
}

// scanEntries lists the base directory's immediate children.
func (s *storage) scanEntries() ([]os.DirEntry, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("logstore: scan %s: %w", s.baseDir, err)
	}
	return entries, nil
}
