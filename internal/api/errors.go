package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// Error codes returned in the "code" field of an error body.
const (
	CodeBadRequest           = "bad_request"
	CodeUploadTooLarge       = "upload_too_large"
	CodeUnsupportedExtension = "unsupported_extension"
	CodeMalformedInput       = "malformed_input"
	CodeEmptyOrHeaderless    = "empty_or_headerless"
	CodeQueryRejected        = "query_rejected"
	CodeQueryTimeout         = "query_timeout"
	CodeDatasetNotFound      = "dataset_not_found"
	CodeSchemaNotFound       = "schema_not_found"
	CodeLoadFailed           = "load_failed"
	CodeStorageUnavailable   = "storage_unavailable"
	CodeInternal             = "internal"
)

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errBadRequest marks request-shape problems detected by the handlers.
var errBadRequest = errors.New("bad request")

// errorKinds is checked in order; the first match wins.
var errorKinds = []struct {
	err    error
	status int
	code   string
}{
	{errBadRequest, http.StatusBadRequest, CodeBadRequest},
	{types.ErrUnsupportedExtension, http.StatusBadRequest, CodeUnsupportedExtension},
	{types.ErrMalformedInput, http.StatusBadRequest, CodeMalformedInput},
	{types.ErrEmptyOrHeaderless, http.StatusBadRequest, CodeEmptyOrHeaderless},
	{types.ErrQueryRejected, http.StatusBadRequest, CodeQueryRejected},
	{types.ErrQueryTimeout, http.StatusGatewayTimeout, CodeQueryTimeout},
	{types.ErrDatasetNotFound, http.StatusNotFound, CodeDatasetNotFound},
	{types.ErrSchemaNotFound, http.StatusNotFound, CodeSchemaNotFound},
	{types.ErrLoadFailed, http.StatusUnprocessableEntity, CodeLoadFailed},
	{types.ErrStorageUnavailable, http.StatusServiceUnavailable, CodeStorageUnavailable},
}

// classify maps err to its HTTP status and error code.
func classify(err error) (int, string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, CodeUploadTooLarge
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return k.status, k.code
		}
	}
	return http.StatusInternalServerError, CodeInternal
}

// message is the text placed in the error body. Rejected statements carry
// the engine's diagnostic unchanged.
func message(err error) string {
	var qe *types.QueryError
	if errors.As(err, &qe) {
		return qe.Error()
	}
	return err.Error()
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	fields := []zap.Field{
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("code", code),
		zap.Error(err),
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", fields...)
	} else {
		s.logger.Warn("request failed", fields...)
	}
	writeJSON(w, status, errorBody{Error: message(err), Code: code})
}
