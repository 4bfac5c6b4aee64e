// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

package processor

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mocks/mock_file_store.go -package mocks . FileStore

type FileStore interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

type OSFileStore struct{}

func NewOSFileStore() *OSFileStore {
	return &OSFileStore{}
}

func (s *OSFileStore) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile replaces path through a sibling temp file and a rename, so a
// reader never observes a half written file. The existing mode is kept.
func (s *OSFileStore) WriteFile(path string, data []byte) error {
	mode := os.FileMode(0o644)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}

	tmp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.%s.tmp", filepath.Base(path), uuid.NewString()))
	if err := os.WriteFile(tmp, data, mode); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Chmod(tmp, mode); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to set file mode: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}

	return nil
}
