package sqlite

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap/zaptest"

	"github.com/mesh-intelligence/sheetsql/internal/ingest"
	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(types.DefaultConfig(t.TempDir()), zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func ingestCSV(t *testing.T, s *Store, csv string) types.Identity {
	t.Helper()
	id, err := s.Ingest(context.Background(), strings.NewReader(csv), "a.csv")
	require.NoError(t, err)
	return id
}

func TestNewStore(t *testing.T) {
	t.Run("creates the data directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "data")
		s, err := NewStore(types.DefaultConfig(dir), nil)
		require.NoError(t, err)

		info, err := os.Stat(s.DataDir())
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		_, err := NewStore(types.DefaultConfig(""), nil)
		assert.True(t, errors.Is(err, types.ErrDataDirEmpty))
	})

	t.Run("data dir blocked by a file", func(t *testing.T) {
		file := filepath.Join(t.TempDir(), "blocked")
		require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

		_, err := NewStore(types.DefaultConfig(filepath.Join(file, "data")), nil)
		assert.True(t, errors.Is(err, types.ErrStorageUnavailable), "got %v", err)
	})
}

func TestIngestAndQueryScenario(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\n")

	res, err := s.Execute(context.Background(), id, "SELECT name, age FROM data_table")
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, res.Columns)
	assert.Equal(t, [][]any{{"alice", "30"}}, res.Rows)
}

func TestMaterializeRoundTrip(t *testing.T) {
	s := newTestStore(t)

	const n = 250
	ds := &ingest.Dataset{Columns: []string{"idx", "value"}}
	for i := 0; i < n; i++ {
		ds.Rows = append(ds.Rows, []string{fmt.Sprint(i), fmt.Sprintf("%0.2f", float64(i)/3)})
	}

	id, err := s.Materialize(context.Background(), ds)
	require.NoError(t, err)
	assert.True(t, s.Exists(id))

	res, err := s.Execute(context.Background(), id, "SELECT * FROM data_table")
	require.NoError(t, err)
	require.Len(t, res.Rows, n)
	for i, row := range res.Rows {
		require.Equal(t, []any{ds.Rows[i][0], ds.Rows[i][1]}, row, "row %d", i)
		for _, v := range row {
			_, isText := v.(string)
			assert.True(t, isText, "value %v stored as %T", v, v)
		}
	}
}

func TestMaterializeMintsFreshIdentities(t *testing.T) {
	s := newTestStore(t)
	a := ingestCSV(t, s, "x\n1\n")
	b := ingestCSV(t, s, "x\n1\n")
	assert.NotEqual(t, a, b)
}

func TestMaterializeLeavesOnlyTheStore(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "x\n1\n")

	entries, err := os.ReadDir(s.DataDir())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id.FileName(), entries[0].Name())
}

func TestMaterializeLoadFailures(t *testing.T) {
	tests := []struct {
		name string
		ds   *ingest.Dataset
	}{
		{"duplicate column names", &ingest.Dataset{Columns: []string{"a", "a"}, Rows: [][]string{{"1", "2"}}}},
		{"row arity mismatch", &ingest.Dataset{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}}},
		{"no columns", &ingest.Dataset{}},
		{"nil dataset", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			id, err := s.Materialize(context.Background(), tt.ds)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrLoadFailed), "got %v", err)
			assert.Empty(t, id)

			entries, err := os.ReadDir(s.DataDir())
			require.NoError(t, err)
			assert.Empty(t, entries, "failed loads must not leave files behind")
		})
	}
}

func TestIngestRejectsBadInput(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		data     string
		wantErr  error
	}{
		{"unsupported extension", "a.txt", "a\n1\n", types.ErrUnsupportedExtension},
		{"empty csv", "a.csv", "", types.ErrEmptyOrHeaderless},
		{"malformed csv", "a.csv", "a,b\n1,2,3\n", types.ErrMalformedInput},
		{"corrupt xlsx", "a.xlsx", "not a workbook", types.ErrMalformedInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			_, err := s.Ingest(context.Background(), strings.NewReader(tt.data), tt.filename)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)

			list, err := s.List()
			require.NoError(t, err)
			assert.Empty(t, list)
		})
	}
}

func TestSchemaMatchesSanitizedHeader(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{` "city" `, "population"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"Oslo", 709000}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	tests := []struct {
		name     string
		filename string
		data     []byte
		want     []string
	}{
		{"csv", "cities.csv", []byte("\" city \",\"population\"\nOslo,709000\n"), []string{"city", "population"}},
		{"xlsx", "cities.xlsx", buf.Bytes(), []string{"city", "population"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(t)
			id, err := s.Ingest(context.Background(), strings.NewReader(string(tt.data)), tt.filename)
			require.NoError(t, err)

			summary, err := s.DescribeSchema(context.Background(), id)
			require.NoError(t, err)
			assert.Equal(t, 1, strings.Count(summary, "Table: "))
			assert.Contains(t, summary, "Table: data_table")

			res, err := s.Execute(context.Background(), id, "SELECT name, type FROM pragma_table_info('data_table')")
			require.NoError(t, err)
			var names []string
			for _, row := range res.Rows {
				names = append(names, row[0].(string))
				assert.Equal(t, "TEXT", row[1])
			}
			assert.Equal(t, tt.want, names)
		})
	}
}

func TestDescribeSchemaGolden(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\nbob,25\ncarol,41\ndave,19\n")

	_, err := s.Execute(context.Background(), id, "UPDATE data_table SET age = NULL WHERE name = 'carol'")
	require.NoError(t, err)

	summary, err := s.DescribeSchema(context.Background(), id)
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "schema_summary", []byte(summary))
}

func TestFormatRow(t *testing.T) {
	tests := []struct {
		name string
		row  []any
		want string
	}{
		{"plain text", []any{"alice", "30"}, `('alice', '30')`},
		{"single value", []any{"x"}, `('x',)`},
		{"apostrophe", []any{"O'Brien"}, `("O'Brien",)`},
		{"double quote", []any{`say "hi"`}, `('say "hi"',)`},
		{"both quotes", []any{`it's "x"`}, `('it\'s "x"',)`},
		{"backslash", []any{`C:\tmp`}, `('C:\\tmp',)`},
		{"control characters", []any{"a\tb\nc"}, `('a\tb\nc',)`},
		{"null and numbers", []any{nil, int64(7), 1.5}, `(None, 7, 1.5)`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatRow(tt.row))
		})
	}
}

func TestDescribeSchemaQuotesApostrophes(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name\nO'Brien\n")

	summary, err := s.DescribeSchema(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, summary, `("O'Brien",)`)
}

func TestDescribeSchemaEnumeratesEveryTable(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "x\n1\n")

	_, err := s.Execute(context.Background(), id, "CREATE TABLE notes (body TEXT)")
	require.NoError(t, err)

	summary, err := s.DescribeSchema(context.Background(), id)
	require.NoError(t, err)
	assert.Contains(t, summary, "Table: data_table")
	assert.Contains(t, summary, "Table: notes\nCREATE statement: CREATE TABLE notes (body TEXT)\n\n")
	assert.NotContains(t, summary, "Table: notes\nCREATE statement: CREATE TABLE notes (body TEXT)\n\nExample rows:")
}

func TestDescribeSchemaEmptyStore(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "x\n1\n")

	_, err := s.Execute(context.Background(), id, "DROP TABLE data_table")
	require.NoError(t, err)

	summary, err := s.DescribeSchema(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, summary)
}

func TestUnknownIdentity(t *testing.T) {
	s := newTestStore(t)

	for _, id := range []types.Identity{types.NewIdentity(), "not-a-uuid", "../escape", ""} {
		t.Run(string(id), func(t *testing.T) {
			_, err := s.Execute(context.Background(), id, "SELECT 1")
			assert.True(t, errors.Is(err, types.ErrDatasetNotFound), "execute: %v", err)

			_, err = s.DescribeSchema(context.Background(), id)
			assert.True(t, errors.Is(err, types.ErrDatasetNotFound), "describe: %v", err)

			assert.False(t, s.Exists(id))
		})
	}

	entries, err := os.ReadDir(s.DataDir())
	require.NoError(t, err)
	assert.Empty(t, entries, "lookups must never create stores")
}

func TestExecuteRejectedQuery(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\n")

	tests := []struct {
		name      string
		statement string
		contains  string
	}{
		{"syntax error", "SELEC * FROM data_table", "syntax error"},
		{"unknown table", "SELECT * FROM nope", "no such table"},
		{"unknown column", "SELECT height FROM data_table", "no such column"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Execute(context.Background(), id, tt.statement)
			require.Error(t, err)
			assert.True(t, errors.Is(err, types.ErrQueryRejected), "got %v", err)
			assert.False(t, errors.Is(err, types.ErrDatasetNotFound))
			assert.Contains(t, err.Error(), tt.contains)

			var qe *types.QueryError
			require.True(t, errors.As(err, &qe))
			assert.Equal(t, tt.statement, qe.Statement)
		})
	}
}

func TestExecuteTimeout(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	cfg.QueryTimeout = 50 * time.Millisecond
	s, err := NewStore(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	id := ingestCSV(t, s, "n\n1\n")

	runaway := "WITH RECURSIVE c(x) AS (SELECT 1 UNION ALL SELECT x + 1 FROM c) SELECT count(*) FROM c"
	_, err = s.Execute(context.Background(), id, runaway)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrQueryTimeout), "got %v", err)
	assert.False(t, errors.Is(err, types.ErrQueryRejected), "a timeout is not an engine rejection")

	// The store is still usable afterwards.
	result, err := s.Execute(context.Background(), id, "SELECT n FROM data_table")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"1"}}, result.Rows)
}

func TestExecuteCancelled(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "n\n1\n")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Execute(ctx, id, "SELECT n FROM data_table")
	require.Error(t, err)
	assert.False(t, errors.Is(err, types.ErrQueryRejected))
}

func TestExecuteLockedStore(t *testing.T) {
	cfg := types.DefaultConfig(t.TempDir())
	cfg.BusyTimeout = 50 * time.Millisecond
	s, err := NewStore(cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	id := ingestCSV(t, s, "n\n1\n")

	path, err := s.Path(id)
	require.NoError(t, err)
	ctx := context.Background()
	holder, err := s.open(ctx, path)
	require.NoError(t, err)
	defer holder.close()
	_, err = holder.conn.ExecContext(ctx, "BEGIN EXCLUSIVE")
	require.NoError(t, err)
	defer func() { _, _ = holder.conn.ExecContext(ctx, "ROLLBACK") }()

	_, err = s.Execute(ctx, id, "SELECT n FROM data_table")
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrStorageUnavailable), "got %v", err)
	assert.False(t, errors.Is(err, types.ErrQueryRejected), "lock contention is not an engine rejection")
}

func TestExecuteAllowsWrites(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\n")

	res, err := s.Execute(context.Background(), id, "INSERT INTO data_table VALUES ('bob', '25')")
	require.NoError(t, err)
	assert.Empty(t, res.Columns)
	assert.Empty(t, res.Rows)

	res, err = s.Execute(context.Background(), id, "SELECT count(*) AS n FROM data_table")
	require.NoError(t, err)
	assert.Equal(t, []string{"n"}, res.Columns)
	assert.Equal(t, [][]any{{int64(2)}}, res.Rows)
}

func TestExecuteComparesTextStoredNumbers(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\nbob,25\n")

	res, err := s.Execute(context.Background(), id, "SELECT name FROM data_table WHERE age > 25")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"alice"}}, res.Rows)
}

func TestExecuteHandleOutlivesDeletion(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\n")

	// Delete the store after the handle is live, as a concurrent sweep would.
	s.afterOpen = func(path string) {
		require.NoError(t, os.Remove(path))
	}
	res, err := s.Execute(context.Background(), id, "SELECT name, age FROM data_table")
	require.NoError(t, err)
	assert.Equal(t, [][]any{{"alice", "30"}}, res.Rows)

	s.afterOpen = nil
	_, err = s.Execute(context.Background(), id, "SELECT name, age FROM data_table")
	assert.True(t, errors.Is(err, types.ErrDatasetNotFound), "got %v", err)

	_, err = s.DescribeSchema(context.Background(), id)
	assert.True(t, errors.Is(err, types.ErrDatasetNotFound), "got %v", err)
	assert.False(t, s.Exists(id))
}

func TestConcurrentReaders(t *testing.T) {
	s := newTestStore(t)
	id := ingestCSV(t, s, "name,age\nalice,30\nbob,25\n")

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := s.Execute(context.Background(), id, "SELECT * FROM data_table")
			if err != nil {
				errs <- err
				return
			}
			if len(res.Rows) != 2 {
				errs <- fmt.Errorf("got %d rows", len(res.Rows))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestListAndRemove(t *testing.T) {
	s := newTestStore(t)
	a := ingestCSV(t, s, "x\n1\n")
	b := ingestCSV(t, s, "x\n2\n")

	// Foreign files are not datasets.
	require.NoError(t, os.WriteFile(filepath.Join(s.DataDir(), "readme.txt"), []byte("hi"), 0o644))

	list, err := s.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	ids := []types.Identity{list[0].Identity, list[1].Identity}
	assert.ElementsMatch(t, []types.Identity{a, b}, ids)

	require.NoError(t, s.Remove(a))
	assert.False(t, s.Exists(a))
	assert.True(t, errors.Is(s.Remove(a), types.ErrDatasetNotFound))

	list, err = s.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, b, list[0].Identity)
}

func TestRemoveReserved(t *testing.T) {
	s := newTestStore(t)
	path, err := s.Path(types.DefaultReservedIdentity)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	err = s.Remove(types.DefaultReservedIdentity)
	assert.True(t, errors.Is(err, types.ErrReservedDataset), "got %v", err)
	assert.True(t, s.Exists(types.DefaultReservedIdentity))
}
