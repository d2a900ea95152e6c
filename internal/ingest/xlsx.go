package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// readXLSX returns the non-empty rows of the first sheet of the workbook.
// Cells are read with their display formatting, as text.
func readXLSX(data []byte) ([][]string, error) {
	if len(data) == 0 {
		return nil, types.ErrEmptyOrHeaderless
	}

	file, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: opening workbook: %v", types.ErrMalformedInput, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, types.ErrEmptyOrHeaderless
	}

	rows, err := file.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: reading sheet %q: %v", types.ErrMalformedInput, sheets[0], err)
	}

	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		records = append(records, row)
	}
	return records, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
