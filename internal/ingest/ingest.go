// Package ingest parses uploaded CSV and XLSX files into a uniform tabular
// structure: one sanitized header and rows of text cells, all the same width.
//
// No type inference is performed. Numeric and date-looking cells stay strings
// so that CSV and XLSX uploads load identically.
package ingest

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Supported file extensions.
const (
	ExtCSV  = ".csv"
	ExtXLSX = ".xlsx"
)

// Dataset is a parsed file ready to be materialized.
type Dataset struct {
	Columns []string
	Rows    [][]string
}

// CheckExtension returns the lower-cased extension of filename, or
// ErrUnsupportedExtension if it is neither .csv nor .xlsx.
func CheckExtension(filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ExtCSV, ExtXLSX:
		return ext, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnsupportedExtension, ext)
	}
}

// Parse converts raw file bytes with the declared extension into a Dataset.
func Parse(data []byte, ext string) (*Dataset, error) {
	var (
		records [][]string
		err     error
	)
	switch strings.ToLower(ext) {
	case ExtCSV:
		records, err = readCSV(data)
	case ExtXLSX:
		records, err = readXLSX(data)
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnsupportedExtension, ext)
	}
	if err != nil {
		return nil, err
	}
	return build(records)
}

// ParseReader reads r fully and parses it as Parse does.
func ParseReader(r io.Reader, ext string) (*Dataset, error) {
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("%w: reading upload: %w", types.ErrMalformedInput, err)
	}
	return Parse(buf.Bytes(), ext)
}

// SanitizeColumn removes embedded double quotes and trims surrounding
// whitespace. Applying it twice yields the same name.
func SanitizeColumn(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, `"`, ""))
}

// build turns raw records into a Dataset. The first record is the header.
func build(records [][]string) (*Dataset, error) {
	if len(records) == 0 {
		return nil, types.ErrEmptyOrHeaderless
	}
	header := records[0]
	if len(header) == 0 {
		return nil, types.ErrEmptyOrHeaderless
	}
	if len(records) == 1 {
		return nil, fmt.Errorf("%w: no data rows", types.ErrEmptyOrHeaderless)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = SanitizeColumn(h)
		if columns[i] == "" {
			columns[i] = fmt.Sprintf("Unnamed: %d", i)
		}
	}

	rows := make([][]string, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) > len(columns) {
			return nil, fmt.Errorf("%w: expected %d fields in line %d, saw %d",
				types.ErrMalformedInput, len(columns), i+2, len(rec))
		}
		row := make([]string, len(columns))
		copy(row, rec)
		rows = append(rows, row)
	}

	return &Dataset{Columns: columns, Rows: rows}, nil
}
