// Package sqlite provides the public factory for the SQLite dataset store.
// Implementation details stay in internal/sqlite.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/internal/sqlite"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// NewStore validates cfg, creates the data directory if needed, and returns a
// store rooted there. A nil logger disables logging.
//
// Example:
//
//	store, err := sqlite.NewStore(types.DefaultConfig(".sheetsql-data"), nil)
//	if err != nil {
//	    return err
//	}
//	id, err := store.Ingest(ctx, file, "people.csv")
func NewStore(cfg types.Config, logger *zap.Logger) (types.DatasetStore, error) {
	store, err := sqlite.NewStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	return store, nil
}
