// Package storage holds project deliverable files on the local filesystem,
// one file per project, last writer wins.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRef points at a stored deliverable.
type FileRef struct {
	Name string
	Path string
	Size int64
}

// LocalStore keeps one directory per project under a base directory.
type LocalStore struct {
	dir string
}

func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// PathFor returns the destination path for a project's deliverable. The
// filename is flattened to its base name so uploads cannot escape the store.
func (s *LocalStore) PathFor(projectID uint, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return filepath.Join(s.dir, fmt.Sprintf("%d", projectID), name)
}

// Prepare makes room for a project's deliverable, removing any previous file.
func (s *LocalStore) Prepare(projectID uint) error {
	projectDir := filepath.Join(s.dir, fmt.Sprintf("%d", projectID))
	if err := os.RemoveAll(projectDir); err != nil {
		return fmt.Errorf("failed to clear previous upload: %w", err)
	}
	return os.MkdirAll(projectDir, 0o755)
}

// Retrieve returns the stored deliverable for a project, if any.
func (s *LocalStore) Retrieve(projectID uint) (*FileRef, error) {
	projectDir := filepath.Join(s.dir, fmt.Sprintf("%d", projectID))
	entries, err := os.ReadDir(projectDir)
	if err != nil || len(entries) == 0 {
		return nil, os.ErrNotExist
	}
	info, err := entries[0].Info()
	if err != nil {
		return nil, err
	}
	return &FileRef{
		Name: entries[0].Name(),
		Path: filepath.Join(projectDir, entries[0].Name()),
		Size: info.Size(),
	}, nil
}

// Remove deletes a project's deliverable directory.
func (s *LocalStore) Remove(projectID uint) error {
	return os.RemoveAll(filepath.Join(s.dir, fmt.Sprintf("%d", projectID)))
}
