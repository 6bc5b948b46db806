package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore stores uploaded files and issues stable public URLs.
type BlobStore interface {
	Upload(name string, r io.Reader) (string, error)
	Delete(publicURL string) error
}

// LocalStore is a disk-backed BlobStore. Files are content-addressed so
// re-uploading identical bytes yields the same URL.
type LocalStore struct {
	dir     string
	baseURL string
}

// NewLocalStore creates the upload directory if needed.
func NewLocalStore(dir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Dir returns the root directory files are served from.
func (s *LocalStore) Dir() string {
	return s.dir
}

// Upload writes the blob under a content hash and returns its public URL.
func (s *LocalStore) Upload(name string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}

	sum := sha256.Sum256(data)
	ext := filepath.Ext(name)
	filename := hex.EncodeToString(sum[:16]) + ext

	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0o644); err != nil {
			return "", fmt.Errorf("write upload: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return "", fmt.Errorf("finalize upload: %w", err)
		}
	}

	return s.baseURL + "/files/" + filename, nil
}

// Delete removes a previously uploaded blob by its public URL.
func (s *LocalStore) Delete(publicURL string) error {
	idx := strings.LastIndex(publicURL, "/files/")
	if idx < 0 {
		return fmt.Errorf("not a managed url: %s", publicURL)
	}
	filename := publicURL[idx+len("/files/"):]
	if filename == "" || strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		return fmt.Errorf("invalid blob name: %s", filename)
	}
	err := os.Remove(filepath.Join(s.dir, filename))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
