// Package sqlite implements the dataset store: one SQLite file per dataset
// identity, materialized from a parsed upload and queried through a
// connection scoped to a single call.
//
// The data directory is the registry. A dataset is present exactly when its
// {identity}.sqlite file exists, and every operation resolves the identity to
// that file anew.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// driverName is the database/sql driver registered by modernc.org/sqlite.
const driverName = "sqlite"

// Store implements types.DatasetStore over a flat directory of SQLite files.
// A Store holds no open handles between calls and is safe for concurrent use.
type Store struct {
	cfg     types.Config
	dataDir string
	logger  *zap.Logger

	// afterOpen, when set, runs once a store handle is live. Tests use it to
	// race deletions against open handles.
	afterOpen func(path string)
}

// NewStore validates cfg and creates the data directory if needed.
// A nil logger disables logging.
func NewStore(cfg types.Config, logger *zap.Logger) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dataDir, err := filepath.Abs(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve data dir: %v", types.ErrStorageUnavailable, err)
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create data dir: %v", types.ErrStorageUnavailable, err)
	}

	return &Store{
		cfg:     cfg,
		dataDir: dataDir,
		logger:  logger.Named("store"),
	}, nil
}

// DataDir returns the absolute data directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// dsn builds a URI that opens path read-write without ever creating it.
// A store removed before the open therefore fails instead of reappearing empty.
func (s *Store) dsn(path string) string {
	busy := s.cfg.BusyTimeout
	if busy <= 0 {
		busy = types.DefaultBusyTimeout
	}
	u := url.URL{Path: path}
	return fmt.Sprintf("file:%s?mode=rw&_pragma=busy_timeout(%d)", u.EscapedPath(), busy.Milliseconds())
}

// handle is a database bound to one store file for the duration of one call.
type handle struct {
	db   *sqlx.DB
	conn *sqlx.Conn
}

// close releases the connection and the database. Safe on every exit path.
func (h *handle) close() {
	if h.conn != nil {
		_ = h.conn.Close()
	}
	if h.db != nil {
		_ = h.db.Close()
	}
}

// open acquires a single connection to the store at path. A store that is
// missing, or that vanishes while the connection is being established, is
// reported as ErrDatasetNotFound.
func (s *Store) open(ctx context.Context, path string) (*handle, error) {
	if err := checkPresent(path); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driverName, s.dsn(path))
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", types.ErrStorageUnavailable, filepath.Base(path), err)
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Connx(ctx)
	if err != nil {
		_ = db.Close()
		if presentErr := checkPresent(path); presentErr != nil {
			return nil, presentErr
		}
		return nil, fmt.Errorf("%w: connect %s: %v", types.ErrStorageUnavailable, filepath.Base(path), err)
	}

	h := &handle{db: db, conn: conn}
	if s.afterOpen != nil {
		s.afterOpen(path)
	}
	return h, nil
}

// checkPresent returns ErrDatasetNotFound unless path is an existing file.
func checkPresent(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", types.ErrDatasetNotFound, filepath.Base(path))
		}
		return fmt.Errorf("%w: stat %s: %v", types.ErrStorageUnavailable, filepath.Base(path), err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: %s", types.ErrDatasetNotFound, filepath.Base(path))
	}
	return nil
}

// withTimeout applies the configured query timeout, if any.
func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout > 0 {
		return context.WithTimeout(ctx, s.cfg.QueryTimeout)
	}
	return context.WithCancel(ctx)
}

// since returns the elapsed time as a zap field.
func since(start time.Time) zap.Field {
	return zap.Duration("elapsed", time.Since(start))
}
