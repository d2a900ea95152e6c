package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/sheetsql/pkg/types"
)

// uploadField is the multipart field holding the file.
const uploadField = "file"

type uploadResponse struct {
	UUID types.Identity `json:"uuid"`
}

type executeRequest struct {
	UUID  string `json:"uuid"`
	Query string `json:"query"`
}

type schemaResponse struct {
	Schema string `json:"schema"`
}

// handleUpload streams the multipart body and materializes the file part.
// The upload is held in memory only; nothing is written besides the store.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)

	mr, err := r.MultipartReader()
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			s.writeError(w, r, fmt.Errorf("%w: no file uploaded", errBadRequest))
			return
		}
		if err != nil {
			s.writeError(w, r, uploadError(err))
			return
		}
		if part.FormName() != uploadField || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		filename := part.FileName()
		id, err := s.store.Ingest(r.Context(), part, filename)
		_ = part.Close()
		if err != nil {
			s.writeError(w, r, uploadError(err))
			return
		}
		s.logger.Info("upload materialized",
			zap.String("identity", id.String()),
			zap.String("filename", filename))
		writeJSON(w, http.StatusOK, uploadResponse{UUID: id})
		return
	}
}

// uploadError keeps store errors as they are and treats stream failures as
// a bad request unless the size limit was hit.
func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			return err
		}
	}
	return fmt.Errorf("%w: read upload: %v", errBadRequest, err)
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode request: %v", errBadRequest, err))
		return
	}
	if strings.TrimSpace(req.UUID) == "" || strings.TrimSpace(req.Query) == "" {
		s.writeError(w, r, fmt.Errorf("%w: missing uuid or query", errBadRequest))
		return
	}

	result, err := s.store.Execute(r.Context(), types.Identity(req.UUID), req.Query)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	id := types.Identity(chi.URLParam(r, "uuid"))

	summary, err := s.store.DescribeSchema(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if summary == "" {
		s.writeError(w, r, fmt.Errorf("%w: %s", types.ErrSchemaNotFound, id))
		return
	}
	writeJSON(w, http.StatusOK, schemaResponse{Schema: summary})
}
