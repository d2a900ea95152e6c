package types

import (
	"context"
	"errors"
	"io"
)

// DatasetStore materializes tabular files into identity-addressed SQLite stores
// and answers queries against them.
type DatasetStore interface {
	// Ingest parses the named file and materializes it as a new dataset.
	// The extension of filename selects the parser.
	Ingest(ctx context.Context, r io.Reader, filename string) (Identity, error)

	// Execute runs statement against the dataset unmodified.
	// Returns ErrDatasetNotFound if no store exists for id and a *QueryError
	// (matching ErrQueryRejected) if the engine rejects the statement.
	Execute(ctx context.Context, id Identity, statement string) (*Result, error)

	// DescribeSchema renders every table of the dataset with its CREATE
	// statement and up to three example rows. A store without tables yields
	// an empty summary and no error.
	DescribeSchema(ctx context.Context, id Identity) (string, error)

	// Exists reports whether a store is present for id.
	Exists(id Identity) bool
}

// Ingest errors.
var (
	ErrUnsupportedExtension = errors.New("only .csv and .xlsx files are allowed")
	ErrMalformedInput       = errors.New("malformed input")
	ErrEmptyOrHeaderless    = errors.New("file is empty or missing headers")
)

// Storage errors.
var (
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrLoadFailed         = errors.New("load failed")
	ErrDatasetNotFound    = errors.New("dataset not found")
	ErrReservedDataset    = errors.New("dataset is reserved")
)

// Query errors.
var (
	ErrQueryRejected  = errors.New("query rejected")
	ErrQueryTimeout   = errors.New("query timed out")
	ErrSchemaNotFound = errors.New("no schema found")
)
