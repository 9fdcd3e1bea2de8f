package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/marmos91/wirecache/internal/bytesize"
	"github.com/marmos91/wirecache/internal/logger"
)

// FileSnapshotter stores a namespace snapshot as a single flat file.
// Saves go through a temp file and rename so a crash mid-write never
// leaves a truncated snapshot behind.
type FileSnapshotter struct {
	path string

	// MaxLoadSize bounds the snapshot size Load accepts. Zero means
	// unlimited. Protects startup from a corrupt or swapped file.
	MaxLoadSize bytesize.ByteSize
}

// NewFileSnapshotter creates a snapshotter writing to path. The parent
// directory must exist.
func NewFileSnapshotter(path string) *FileSnapshotter {
	return &FileSnapshotter{path: path}
}

// Save writes data to the snapshot file atomically.
func (f *FileSnapshotter) Save(_ context.Context, data []byte) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	logger.Debug("Snapshot written",
		"path", f.path,
		"size", bytesize.ByteSize(len(data)).String())
	return nil
}

// Load reads the snapshot file. A missing file is ErrNoSnapshot.
func (f *FileSnapshotter) Load(_ context.Context) ([]byte, error) {
	info, err := os.Stat(f.path)
	if os.IsNotExist(err) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	if f.MaxLoadSize > 0 && uint64(info.Size()) > f.MaxLoadSize.Uint64() {
		return nil, fmt.Errorf("snapshot %s is %s, above limit %s",
			f.path, bytesize.ByteSize(info.Size()), f.MaxLoadSize)
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return data, nil
}
