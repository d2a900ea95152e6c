package sqlite

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/internal/paths"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// DatasetInfo describes one store present in the data directory.
type DatasetInfo struct {
	Identity types.Identity `json:"uuid"`
	Path     string         `json:"path"`
	Size     int64          `json:"size"`
	Modified time.Time      `json:"modified"`
}

// Path resolves id to its store file. Tokens that are not identities fail
// with ErrDatasetNotFound.
func (s *Store) Path(id types.Identity) (string, error) {
	parsed, err := types.ParseIdentity(string(id))
	if err != nil {
		return "", fmt.Errorf("%w: %q", types.ErrDatasetNotFound, id)
	}
	return paths.StorePath(s.dataDir, parsed), nil
}

// Exists reports whether a store is present for id.
func (s *Store) Exists(id types.Identity) bool {
	path, err := s.Path(id)
	if err != nil {
		return false
	}
	return checkPresent(path) == nil
}

// List returns every store in the data directory ordered by modification
// time, oldest first. Build files and foreign files are skipped.
func (s *Store) List() ([]DatasetInfo, error) {
	entries, err := os.ReadDir(s.dataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read data dir: %v", types.ErrStorageUnavailable, err)
	}

	var out []DatasetInfo
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		id, ok := paths.IdentityFromFileName(e.Name())
		if !ok {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Removed between ReadDir and Info.
			continue
		}
		out = append(out, DatasetInfo{
			Identity: id,
			Path:     paths.StorePath(s.dataDir, id),
			Size:     info.Size(),
			Modified: info.ModTime(),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Modified.Before(out[j].Modified)
	})
	return out, nil
}

// Remove deletes the store for id. Reserved identities cannot be removed.
func (s *Store) Remove(id types.Identity) error {
	path, err := s.Path(id)
	if err != nil {
		return err
	}
	parsed, _ := types.ParseIdentity(string(id))
	if s.cfg.IsReserved(parsed) {
		return fmt.Errorf("%w: %s", types.ErrReservedDataset, parsed)
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", types.ErrDatasetNotFound, parsed)
		}
		return fmt.Errorf("%w: remove %s: %v", types.ErrStorageUnavailable, parsed, err)
	}
	s.logger.Info("dataset removed", zap.String("identity", parsed.String()))
	return nil
}
