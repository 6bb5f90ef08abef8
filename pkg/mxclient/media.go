// Copyright 2024-2026 Aiku AI

package mxclient

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aiku/mxconsole/pkg/handler"
)

// MediaCache is a directory of downloaded media files.
type MediaCache struct {
	Dir string
}

var _ handler.MediaCache = (*MediaCache)(nil)

// Size returns the total size of the regular files under the cache
// directory. A missing directory is empty.
func (m *MediaCache) Size() (int64, error) {
	if m == nil || m.Dir == "" {
		return 0, nil
	}
	var total int64
	err := filepath.WalkDir(m.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) && path == m.Dir {
				return filepath.SkipDir
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk media cache: %w", err)
	}
	return total, nil
}
