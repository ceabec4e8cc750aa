package web

import (
	"fmt"
	"net/http"

	"github.com/robinvdvleuten/stockcard/export"
)

// handleExport returns a handler that downloads the card, including unsaved
// changes, in the given format.
func (s *Server) handleExport(format export.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.session(w, r)
		if !ok {
			return
		}

		card := session.Snapshot()
		data, err := export.Render(card, format)
		if err != nil {
			s.writeError(w, r, err)
			return
		}

		w.Header().Set("Content-Type", format.ContentType())
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", format.Filename(card)))
		_, _ = w.Write(data)
	}
}

// handleUpload handles POST /api/stockcards/{id}/uploads/{format}, storing
// the rendered card in object storage.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if s.uploader == nil {
		http.Error(w, "Uploads are not configured", http.StatusNotImplemented)
		return
	}

	format, err := export.ParseFormat(r.PathValue("format"))
	if err != nil {
		s.writeError(w, r, &requestError{Message: err.Error()})
		return
	}

	session, ok := s.session(w, r)
	if !ok {
		return
	}

	key, err := s.uploader.Upload(r.Context(), session.Snapshot(), format)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.logger.Info("export uploaded", "card", r.PathValue("id"), "key", key)
	writeJSON(w, http.StatusCreated, map[string]string{"key": key})
}
