package sqlite

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/internal/ingest"
	"github.com/mesh-intelligence/sheetsql/internal/paths"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Ingest parses the upload named filename and materializes it as a new dataset.
func (s *Store) Ingest(ctx context.Context, r io.Reader, filename string) (types.Identity, error) {
	ext, err := ingest.CheckExtension(filename)
	if err != nil {
		return "", err
	}
	ds, err := ingest.ParseReader(r, ext)
	if err != nil {
		return "", err
	}
	return s.Materialize(ctx, ds)
}

// Materialize mints a new identity and loads ds into a fresh store for it.
//
// The store is built under a hidden temporary name and renamed into place
// only after every row is committed, so other components never observe a
// partially loaded dataset. On failure the identity is discarded and the
// temporary file is removed.
func (s *Store) Materialize(ctx context.Context, ds *ingest.Dataset) (types.Identity, error) {
	if ds == nil || len(ds.Columns) == 0 {
		return "", fmt.Errorf("%w: dataset has no columns", types.ErrLoadFailed)
	}
	start := time.Now()
	id := types.NewIdentity()

	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: create data dir: %v", types.ErrStorageUnavailable, err)
	}
	tmp, err := os.CreateTemp(s.dataDir, paths.BuildPattern(id))
	if err != nil {
		return "", fmt.Errorf("%w: create store: %v", types.ErrStorageUnavailable, err)
	}
	tmpPath := tmp.Name()
	if err := tmp.Close(); err != nil {
		removeBuild(tmpPath)
		return "", fmt.Errorf("%w: create store: %v", types.ErrStorageUnavailable, err)
	}

	committed := false
	defer func() {
		if !committed {
			removeBuild(tmpPath)
		}
	}()

	db, err := sqlx.Open(driverName, s.dsn(tmpPath))
	if err != nil {
		return "", fmt.Errorf("%w: open store: %v", types.ErrStorageUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return "", fmt.Errorf("%w: open store: %v", types.ErrStorageUnavailable, err)
	}

	if err := load(ctx, db, ds); err != nil {
		_ = db.Close()
		s.logger.Warn("load failed", zap.String("identity", id.String()), zap.Error(err))
		return "", fmt.Errorf("%w: %v", types.ErrLoadFailed, err)
	}
	if err := db.Close(); err != nil {
		return "", fmt.Errorf("%w: close store: %v", types.ErrStorageUnavailable, err)
	}

	if err := os.Rename(tmpPath, paths.StorePath(s.dataDir, id)); err != nil {
		return "", fmt.Errorf("%w: publish store: %v", types.ErrStorageUnavailable, err)
	}
	committed = true

	s.logger.Info("dataset materialized",
		zap.String("identity", id.String()),
		zap.Int("columns", len(ds.Columns)),
		zap.Int("rows", len(ds.Rows)),
		since(start))
	return id, nil
}

// load creates the data table and inserts every row in one transaction.
func load(ctx context.Context, db *sqlx.DB, ds *ingest.Dataset) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, createTableSQL(ds.Columns)); err != nil {
		return fmt.Errorf("creating %s: %w", types.TableName, err)
	}

	stmt, err := tx.PreparexContext(ctx, insertSQL(ds.Columns))
	if err != nil {
		return fmt.Errorf("preparing insert for %s: %w", types.TableName, err)
	}
	defer stmt.Close()

	args := make([]any, len(ds.Columns))
	for i, row := range ds.Rows {
		if len(row) != len(ds.Columns) {
			return fmt.Errorf("row %d has %d values, table has %d columns", i+1, len(row), len(ds.Columns))
		}
		for j, v := range row {
			args[j] = v
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("inserting row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing load transaction: %w", err)
	}
	return nil
}

// createTableSQL declares one TEXT column per name. Names are used verbatim
// inside double quotes; ingest has already stripped embedded quotes.
func createTableSQL(columns []string) string {
	defs := make([]string, len(columns))
	for i, c := range columns {
		defs[i] = `"` + c + `" TEXT`
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", types.TableName, strings.Join(defs, ", "))
}

// insertSQL returns a positional INSERT covering every column.
func insertSQL(columns []string) string {
	names := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		names[i] = `"` + c + `"`
		placeholders[i] = "?"
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		types.TableName, strings.Join(names, ", "), strings.Join(placeholders, ", "))
}

// removeBuild deletes an unpublished store and any journal SQLite left behind.
func removeBuild(path string) {
	_ = os.Remove(path)
	_ = os.Remove(path + "-journal")
}
