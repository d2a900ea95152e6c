package types

// Result is the fully materialized outcome of a statement.
// Columns is empty for statements that produce no result set.
type Result struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"results"`
}

// QueryError reports a statement the engine refused. Its message is the
// engine's diagnostic verbatim.
type QueryError struct {
	Statement string
	Err       error
}

func (e *QueryError) Error() string {
	return e.Err.Error()
}

// Unwrap exposes both ErrQueryRejected and the engine error.
func (e *QueryError) Unwrap() []error {
	return []error{ErrQueryRejected, e.Err}
}
