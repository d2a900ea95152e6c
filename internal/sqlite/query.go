package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	msqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Execute runs statement against the dataset id and returns its full result.
//
// The statement is handed to SQLite unmodified. Reads, writes and schema
// changes are all permitted: each dataset lives in its own file, which is the
// only isolation boundary. A statement without a result set returns no
// columns and no rows.
func (s *Store) Execute(ctx context.Context, id types.Identity, statement string) (*types.Result, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	h, err := s.open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer h.close()

	start := time.Now()
	rows, err := h.conn.QueryxContext(ctx, statement)
	if err != nil {
		return nil, s.execError(ctx, id, statement, err)
	}
	defer rows.Close()

	result, err := collect(rows)
	if err != nil {
		return nil, s.execError(ctx, id, statement, err)
	}

	s.logger.Debug("statement executed",
		zap.String("identity", id.String()),
		zap.Int("columns", len(result.Columns)),
		zap.Int("rows", len(result.Rows)),
		since(start))
	return result, nil
}

// collect materializes every remaining row. Byte slices become strings so
// results encode as text.
func collect(rows *sqlx.Rows) (*types.Result, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	result := &types.Result{
		Columns: append([]string{}, columns...),
		Rows:    [][]any{},
	}
	for rows.Next() {
		values, err := rows.SliceScan()
		if err != nil {
			return nil, err
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		result.Rows = append(result.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// execError classifies a failed execution. Only diagnostics about the
// statement itself become a QueryError; an expired deadline, a cancelled
// call and a store locked past the busy timeout are reported separately.
func (s *Store) execError(ctx context.Context, id types.Identity, statement string, err error) error {
	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		s.logger.Warn("statement timed out",
			zap.String("identity", id.String()),
			zap.Duration("timeout", s.cfg.QueryTimeout))
		return fmt.Errorf("%w after %s", types.ErrQueryTimeout, s.cfg.QueryTimeout)
	case ctx.Err() != nil:
		return ctx.Err()
	case isBusy(err):
		s.logger.Warn("store busy", zap.String("identity", id.String()), zap.Error(err))
		return fmt.Errorf("%w: %s is locked: %v", types.ErrStorageUnavailable, id, err)
	}

	s.logger.Debug("statement rejected",
		zap.String("identity", id.String()),
		zap.Error(err))
	return &types.QueryError{Statement: statement, Err: err}
}

// isBusy reports whether err is SQLite giving up on a lock.
func isBusy(err error) bool {
	var se *msqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}
