package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	errfmt "github.com/robinvdvleuten/stockcard/errors"
	"github.com/robinvdvleuten/stockcard/stockcard"
	"github.com/robinvdvleuten/stockcard/store"
)

// maxBodySize limits request bodies for entry edits.
const maxBodySize = 1 << 20

// writeJSONResponse writes a JSON response to the http.ResponseWriter.
// If encoding fails, it writes an error response.
func writeJSONResponse(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, data)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// ErrorResponse is the body of every failed API request.
type ErrorResponse struct {
	Errors []errfmt.ErrorJSON `json:"errors"`
}

// writeError maps err to a status code and writes it as an ErrorResponse.
// Unexpected errors are logged.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	writeJSON(w, status, ErrorResponse{
		Errors: errfmt.NewJSONFormatter().FormatAllToSlice(errfmt.Unwrap(err)),
	})
}

func statusFor(err error) int {
	var (
		cardNotFound   *store.CardNotFoundError
		entryNotFound  *stockcard.EntryNotFoundError
		sourceNotFound *stockcard.SourceNotFoundError
		insufficient   *stockcard.InsufficientQuantityError
		duplicate      *stockcard.DuplicateEntryError
		invalid        *stockcard.InvalidQuantityError
		persistence    *stockcard.PersistenceError
		badRequest     *requestError
	)

	switch {
	case errors.As(err, &cardNotFound), errors.As(err, &entryNotFound), errors.As(err, &sourceNotFound):
		return http.StatusNotFound
	case errors.As(err, &insufficient):
		return http.StatusUnprocessableEntity
	case errors.As(err, &duplicate):
		return http.StatusConflict
	case errors.As(err, &invalid), errors.As(err, &badRequest):
		return http.StatusBadRequest
	case errors.As(err, &persistence):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// requestError is returned for malformed requests.
type requestError struct {
	Message string
}

func (e *requestError) Error() string {
	return e.Message
}

// decodeJSON reads the request body into v. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &requestError{Message: fmt.Sprintf("invalid request body: %v", err)}
	}
	return nil
}
