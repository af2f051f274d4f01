// Package storage persists uploaded documents on the local filesystem and
// computes the content hashes used for duplicate detection.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/billingx/billing-extractor/internal/common"
)

// Store abstracts document persistence so the pipeline can run against any
// backing medium.
type Store interface {
	Save(data []byte, fileName string) (string, error)
	Read(path string) ([]byte, error)
	Delete(path string) (bool, error)
	Exists(path string) bool
}

type localStore struct {
	dir    string
	logger *slog.Logger
}

// NewLocalStore creates the upload directory if missing and returns a Store
// writing into it.
func NewLocalStore(dir string, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir %q: %w", dir, err)
	}
	return &localStore{dir: dir, logger: logger}, nil
}

// Save writes data under a fresh uuid-prefixed name so concurrent uploads of
// same-named files never collide.
func (s *localStore) Save(data []byte, fileName string) (string, error) {
	name := fmt.Sprintf("%s%s", uuid.New().String(), strings.ToLower(filepath.Ext(fileName)))
	path := filepath.Join(s.dir, name)

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write file %q: %w", path, err)
	}
	s.logger.Debug("storage.save", "file", fileName, "path", path, "size_bytes", len(data))
	return path, nil
}

func (s *localStore) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("read file %q: %w", path, err)
	}
	return data, nil
}

func (s *localStore) Delete(path string) (bool, error) {
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("delete file %q: %w", path, err)
	}
	s.logger.Debug("storage.delete", "path", path)
	return true, nil
}

func (s *localStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// HashBytes returns the lowercase hex SHA-256 of the content.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashReader hashes a seekable stream and rewinds it so callers can still
// read the content afterwards.
func HashReader(r io.ReadSeeker) (string, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("seek start: %w", err)
	}
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("hash stream: %w", err)
	}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind stream: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
