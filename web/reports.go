package web

import (
	"net/http"
	"time"

	"github.com/robinvdvleuten/stockcard/stockcard"
)

// ReportOption is an inventory report that can source entries of a stock
// number, as offered by the report picker.
type ReportOption struct {
	ID                 string                        `json:"id"`
	AccountabilityDate time.Time                     `json:"accountabilityDate"`
	Item               stockcard.InventoryReportItem `json:"item"`
}

// handleInventoryReports handles GET /api/inventory-reports?stockNumber=.
// Reports are ordered by accountability date.
func (s *Server) handleInventoryReports(w http.ResponseWriter, r *http.Request) {
	stockNumber := r.URL.Query().Get("stockNumber")
	if stockNumber == "" {
		s.writeError(w, r, &requestError{Message: "stockNumber is required"})
		return
	}

	reports, err := s.backend.InventoryReports(r.Context(), stockNumber)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	options := make([]ReportOption, 0, len(reports))
	for _, report := range reports {
		items := stockcard.ItemsFromReports([]stockcard.InventoryReport{report}, report.ID, stockNumber)
		if len(items) == 0 {
			continue
		}
		options = append(options, ReportOption{
			ID:                 report.ID,
			AccountabilityDate: report.AccountabilityDate,
			Item:               items[0],
		})
	}

	writeJSONResponse(w, map[string]any{"inventoryReports": options})
}
