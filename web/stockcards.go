package web

import (
	"errors"
	"net/http"

	"github.com/robinvdvleuten/stockcard/editor"
	errfmt "github.com/robinvdvleuten/stockcard/errors"
	"github.com/robinvdvleuten/stockcard/stockcard"
)

// CardSummary is one row of the stock card list.
type CardSummary struct {
	ID          string `json:"id"`
	StockNumber string `json:"stockNumber"`
	Description string `json:"description,omitempty"`
	Unit        string `json:"unit,omitempty"`
	Entries     int    `json:"entries"`
	Dirty       bool   `json:"dirty"`
}

// CardResponse is a stock card as currently edited, with its totals.
type CardResponse struct {
	stockcard.StockCard
	Totals stockcard.Totals `json:"totals"`
	Dirty  bool             `json:"dirty"`
}

// AllocationResponse is returned after a successful allocation.
type AllocationResponse struct {
	StockCard CardResponse    `json:"stockCard"`
	Entry     stockcard.Entry `json:"entry"`
	ReportID  string          `json:"reportId"`
	FirstUse  bool            `json:"firstUse"`
	Summary   string          `json:"summary"`
}

type allocateRequest struct {
	ReportID string `json:"reportId"`
}

type removeEntriesRequest struct {
	IDs []string `json:"ids"`
}

type removeEntriesResponse struct {
	Removed   int          `json:"removed"`
	StockCard CardResponse `json:"stockCard"`
}

type verifyResponse struct {
	OK     bool `json:"ok"`
	Errors any  `json:"errors,omitempty"`
}

func cardResponse(session *editor.Session) CardResponse {
	card := session.Snapshot()
	if card.Entries == nil {
		card.Entries = []stockcard.Entry{}
	}
	if card.Balances == nil {
		card.Balances = stockcard.Balances{}
	}
	return CardResponse{StockCard: card, Totals: card.Totals(), Dirty: session.Dirty()}
}

// session returns the editing session of the card named in the path. On
// failure the error has been written.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*editor.Session, bool) {
	session, err := s.registry.Open(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return nil, false
	}
	return session, true
}

// handleListCards handles GET /api/stockcards. Cards with an open session
// are listed as edited.
func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.backend.Cards(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	summaries := make([]CardSummary, 0, len(cards))
	for _, card := range cards {
		dirty := false
		if session, ok := s.registry.Lookup(card.ID); ok {
			card = session.Snapshot()
			dirty = session.Dirty()
		}
		summaries = append(summaries, CardSummary{
			ID:          card.ID,
			StockNumber: card.StockNumber,
			Description: card.Description,
			Unit:        card.Unit,
			Entries:     len(card.Entries),
			Dirty:       dirty,
		})
	}

	writeJSONResponse(w, map[string]any{"stockCards": summaries})
}

func (s *Server) handleGetCard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSONResponse(w, cardResponse(session))
}

// handleSaveCard handles PUT /api/stockcards/{id}. A failed save keeps the
// edited state so the client can retry.
func (s *Server) handleSaveCard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}
	if err := session.Save(r.Context()); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONResponse(w, cardResponse(session))
}

func (s *Server) handleVerifyCard(w http.ResponseWriter, r *http.Request) {
	session, ok := s.session(w, r)
	if !ok {
		return
	}

	err := session.Verify(r.Context())
	var verrs *stockcard.VerificationErrors
	switch {
	case err == nil:
		writeJSONResponse(w, verifyResponse{OK: true})
	case errors.As(err, &verrs):
		writeJSONResponse(w, verifyResponse{Errors: errfmt.NewJSONFormatter().FormatAllToSlice(verrs.Errors)})
	default:
		s.writeError(w, r, err)
	}
}

// handleDiscardSession handles DELETE /api/stockcards/{id}/session, dropping
// unsaved changes.
func (s *Server) handleDiscardSession(w http.ResponseWriter, r *http.Request) {
	s.registry.Discard(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var entry stockcard.Entry
	if err := decodeJSON(w, r, &entry); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, ok := s.session(w, r)
	if !ok {
		return
	}
	added, err := session.AddEntry(entry)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var patch stockcard.EntryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, ok := s.session(w, r)
	if !ok {
		return
	}
	updated, err := session.UpdateEntry(r.PathValue("entryID"), patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSONResponse(w, updated)
}

// handleRemoveEntries handles DELETE /api/stockcards/{id}/entries. Balances
// are not touched.
func (s *Server) handleRemoveEntries(w http.ResponseWriter, r *http.Request) {
	var req removeEntriesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	session, ok := s.session(w, r)
	if !ok {
		return
	}
	removed := session.RemoveEntries(req.IDs)
	writeJSONResponse(w, removeEntriesResponse{Removed: removed, StockCard: cardResponse(session)})
}

// handleAllocate handles POST /api/stockcards/{id}/entries/{entryID}/source,
// sourcing the entry from the inventory report in the body.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ReportID == "" {
		s.writeError(w, r, &requestError{Message: "reportId is required"})
		return
	}

	session, ok := s.session(w, r)
	if !ok {
		return
	}

	delta, err := session.Allocate(r.Context(), r.PathValue("entryID"), req.ReportID)
	s.metrics.allocations.WithLabelValues(allocationOutcome(err)).Inc()
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSONResponse(w, AllocationResponse{
		StockCard: cardResponse(session),
		Entry:     delta.Entry,
		ReportID:  delta.ReportID,
		FirstUse:  delta.FirstUse,
		Summary:   delta.String(),
	})
}

func allocationOutcome(err error) string {
	var (
		sourceNotFound *stockcard.SourceNotFoundError
		insufficient   *stockcard.InsufficientQuantityError
		entryNotFound  *stockcard.EntryNotFoundError
	)
	switch {
	case err == nil:
		return "allocated"
	case errors.As(err, &sourceNotFound):
		return "source_not_found"
	case errors.As(err, &insufficient):
		return "insufficient_quantity"
	case errors.As(err, &entryNotFound):
		return "entry_not_found"
	}
	return "error"
}
