package ops

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/kifu/internal/errors"
)

// Materializer writes remote content to a local path exactly once.
type Materializer struct {
	fetcher Fetcher
}

// NewMaterializer creates a Materializer.
func NewMaterializer(fetcher Fetcher) *Materializer {
	return &Materializer{fetcher: fetcher}
}

// Materialize downloads url to path unless a non-empty file is already there.
// It returns true only when a new file was written. A failed fetch leaves no
// file behind and returns false with the fetch error.
func (m *Materializer) Materialize(ctx context.Context, url, path string) (bool, error) {
	if exists, err := nonEmptyFile(path); err != nil {
		return false, err
	} else if exists {
		return false, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return false, errors.NewInternal(fmt.Errorf("failed to create output directory: %w", err))
	}

	body, err := m.fetcher.Fetch(ctx, url)
	if err != nil {
		return false, err
	}

	if err := writeAtomic(path, body); err != nil {
		return false, err
	}
	return true, nil
}

// nonEmptyFile reports whether path holds a regular file with content.
// Symlinks are refused outright.
func nonEmptyFile(path string) (bool, error) {
	info, err := os.Lstat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.NewInternal(err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return false, errors.NewInvalidRequest(fmt.Sprintf("path is a symlink: %s", path))
	}
	return info.Size() > 0, nil
}

// writeAtomic writes data to a temp file next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	randBytes := make([]byte, 8)
	if _, err := rand.Read(randBytes); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := path + "." + hex.EncodeToString(randBytes) + ".tmp"

	file, err := openFileNoFollow(tempPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to create temp file: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	if _, err := file.Write(data); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Sync(); err != nil {
		return errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to close temp file: %w", err))
	}
	file = nil

	if err := os.Rename(tempPath, path); err != nil {
		return errors.NewInternal(fmt.Errorf("failed to finalize %s: %w", path, err))
	}

	success = true
	return nil
}
