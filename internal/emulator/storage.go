package emulator

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// FileStore keeps uploaded document bytes on the local filesystem under
// sharded uuid paths. The locator it hands out is an opaque bucket-prefixed
// path matching the shape of the real service's storage references.
type FileStore struct {
	basePath string
	bucket   string
}

// NewFileStore creates the store rooted at basePath, creating it if needed.
func NewFileStore(basePath, bucket string) (*FileStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &FileStore{
		basePath: basePath,
		bucket:   bucket,
	}, nil
}

// Save writes the document bytes and returns the on-disk path, the opaque
// locator exposed on the wire, and the byte count.
func (s *FileStore) Save(filename string, data io.Reader) (string, string, int64, error) {
	fileID := uuid.New().String()
	ext := filepath.Ext(filename)
	storagePath := filepath.Join(fileID[:2], fileID[2:4], fileID+ext)
	fullPath := filepath.Join(s.basePath, storagePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", "", 0, fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	size, err := io.Copy(file, data)
	if err != nil {
		os.Remove(fullPath)
		return "", "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	locator := s.bucket + "/" + filepath.ToSlash(storagePath)
	return storagePath, locator, size, nil
}

// Delete removes stored bytes. Missing files are not an error.
func (s *FileStore) Delete(storagePath string) error {
	fullPath := filepath.Join(s.basePath, storagePath)
	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Available verifies the storage directory is writable.
func (s *FileStore) Available() error {
	probe := filepath.Join(s.basePath, ".probe")
	if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
		return fmt.Errorf("storage not writable: %w", err)
	}
	return os.Remove(probe)
}
