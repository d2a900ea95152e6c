package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// readCSV decodes data to UTF-8 and returns every non-blank record.
func readCSV(data []byte) ([][]string, error) {
	// BOMOverride strips a UTF-8 BOM and transcodes UTF-16 input that carries
	// one; anything else must already be valid UTF-8.
	decoder := unicode.BOMOverride(encoding.UTF8Validator)
	text, _, err := transform.Bytes(decoder, data)
	if err != nil {
		return nil, fmt.Errorf("%w: decoding: %v", types.ErrMalformedInput, err)
	}
	if !utf8.Valid(text) {
		return nil, fmt.Errorf("%w: file is not valid UTF-8", types.ErrMalformedInput)
	}
	if len(bytes.TrimSpace(text)) == 0 {
		return nil, types.ErrEmptyOrHeaderless
	}

	reader := csv.NewReader(bytes.NewReader(text))
	reader.FieldsPerRecord = -1
	// A stray quote inside an unquoted field is kept as text.
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrMalformedInput, err)
		}
		if isBlank(record) {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

// isBlank reports whether a record holds a single empty field, which is how
// encoding/csv reports a line of whitespace.
func isBlank(record []string) bool {
	return len(record) == 1 && strings.TrimSpace(record[0]) == ""
}
