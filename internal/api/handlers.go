package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"forest-predictor/internal/ml"

	"github.com/rs/zerolog/log"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

type predictRequest struct {
	Features *[]float64 `json:"features"`
	Context  string     `json:"context"`
}

type batchRecord struct {
	Features *[]float64 `json:"features"`
}

type batchRequest struct {
	Records *[]batchRecord `json:"records"`
}

type healthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:      "healthy",
		ModelLoaded: s.predictor.Ready(),
	})
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	// Readiness comes before any body validation.
	if !s.predictor.Ready() {
		s.writeError(w, r, ml.ErrNotInitialized)
		return
	}

	var req predictRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	if req.Features == nil {
		s.writeError(w, r, ml.NewMissingField("predict", "features", "request"))
		return
	}

	result, err := s.predictor.Predict(*req.Features, req.Context)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleBatchPredict(w http.ResponseWriter, r *http.Request) {
	if !s.predictor.Ready() {
		s.writeError(w, r, ml.ErrNotInitialized)
		return
	}

	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeBadRequest(w, r, err)
		return
	}
	if req.Records == nil {
		s.writeError(w, r, ml.NewMissingField("batch_predict", "records", "request"))
		return
	}

	records := make([][]float64, len(*req.Records))
	for i, rec := range *req.Records {
		if rec.Features == nil {
			s.writeError(w, r, ml.NewMissingField("batch_predict", "features", fmt.Sprintf("record %d", i)))
			return
		}
		records[i] = *rec.Features
	}

	result, err := s.predictor.BatchPredict(records)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	info, err := s.predictor.Info()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// statusFor maps an error kind onto the HTTP status reported to clients.
func statusFor(kind ml.ErrorKind) int {
	switch kind {
	case ml.MissingField, ml.InvalidShape:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := ml.KindOf(err)
	status := statusFor(kind)

	evt := log.Warn()
	if status >= http.StatusInternalServerError {
		evt = log.Error()
	}
	evt.Err(err).
		Str("request_id", r.Header.Get(headerRequestID)).
		Str("path", r.URL.Path).
		Str("kind", kind.String()).
		Int("status", status).
		Msg("request failed")

	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, r *http.Request, err error) {
	log.Warn().Err(err).
		Str("request_id", r.Header.Get(headerRequestID)).
		Str("path", r.URL.Path).
		Msg("malformed request body")
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// writeJSON encodes v before committing status. Encode failures answer 500.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Int("status", status).Msg("failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(errorResponse{Error: fmt.Sprintf("failed to encode response: %v", err)})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
