package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// exampleRows is the number of sample rows rendered per table.
const exampleRows = 3

// catalogEntry is one table as recorded in sqlite_master.
type catalogEntry struct {
	Name string         `db:"name"`
	SQL  sql.NullString `db:"sql"`
}

// DescribeSchema renders every table in the dataset: its name, its original
// CREATE statement, and up to three example rows. A store without tables
// yields an empty summary; deciding whether that is an error is left to the
// caller.
func (s *Store) DescribeSchema(ctx context.Context, id types.Identity) (string, error) {
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	h, err := s.open(ctx, path)
	if err != nil {
		return "", err
	}
	defer h.close()

	var tables []catalogEntry
	if err := h.conn.SelectContext(ctx, &tables, "SELECT name, sql FROM sqlite_master WHERE type='table'"); err != nil {
		return "", fmt.Errorf("%w: reading catalog: %v", types.ErrStorageUnavailable, err)
	}

	var lines []string
	for _, t := range tables {
		lines = append(lines, "Table: "+t.Name)
		lines = append(lines, "CREATE statement: "+t.SQL.String+"\n")

		samples, err := h.sample(ctx, t.Name)
		if err != nil {
			return "", fmt.Errorf("%w: sampling %s: %v", types.ErrStorageUnavailable, t.Name, err)
		}
		if len(samples) > 0 {
			lines = append(lines, "Example rows:")
			for _, row := range samples {
				lines = append(lines, formatRow(row))
			}
		}
		lines = append(lines, "")
	}

	s.logger.Debug("schema described",
		zap.String("identity", id.String()),
		zap.Int("tables", len(tables)))
	return strings.Join(lines, "\n"), nil
}

// sample returns up to exampleRows rows of table.
func (h *handle) sample(ctx context.Context, table string) ([][]any, error) {
	query := fmt.Sprintf("SELECT * FROM %s LIMIT %d", quoteIdent(table), exampleRows)
	rows, err := h.conn.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result, err := collect(rows)
	if err != nil {
		return nil, err
	}
	return result.Rows, nil
}

// quoteIdent quotes a catalog name for use as an SQL identifier.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// formatRow renders a row as a tuple literal, e.g. ('alice', '30').
// NULL renders as None and numbers are left unquoted.
func formatRow(row []any) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = formatValue(v)
	}
	if len(parts) == 1 {
		return "(" + parts[0] + ",)"
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "None"
	case string:
		return quoteText(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	case bool:
		if val {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(val)
	}
}

// quoteText renders s as a quoted literal. Single quotes are preferred;
// double quotes are used when s contains a single quote and no double quote.
func quoteText(s string) string {
	quote := '\''
	if strings.ContainsRune(s, '\'') && !strings.ContainsRune(s, '"') {
		quote = '"'
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteRune(quote)
	for _, r := range s {
		switch {
		case r == quote || r == '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20 || r == 0x7f:
			fmt.Fprintf(&b, `\x%02x`, r)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteRune(quote)
	return b.String()
}
