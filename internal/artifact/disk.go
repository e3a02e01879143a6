// Package artifact stores rendered PDFs on disk, one file per invoice id.
// Artifacts are written once and never deleted; email delivery failures do
// not roll them back.
package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned for ids with no stored artifact.
var ErrNotFound = errors.New("artifact not found")

// DiskStore keeps <id>.pdf files under a single directory.
type DiskStore struct {
	dir string
}

func NewDiskStore(dir string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir %q: %w", dir, err)
	}
	return &DiskStore{dir: dir}, nil
}

// Save writes the artifact atomically: temp file then rename, so a reader
// never observes a partial PDF.
func (s *DiskStore) Save(id string, pdf []byte) error {
	if err := checkID(id); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, id+".*.tmp")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(pdf); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path(id))
}

// Load returns the stored bytes for id, or ErrNotFound.
func (s *DiskStore) Load(id string) ([]byte, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (s *DiskStore) path(id string) string {
	return filepath.Join(s.dir, id+".pdf")
}

// checkID rejects ids that could escape the artifact directory. Ids are
// generated by us, but the retrieval endpoint passes them straight from the
// URL.
func checkID(id string) error {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return ErrNotFound
	}
	return nil
}
