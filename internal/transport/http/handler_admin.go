package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"cabwatch/internal/command"
	"cabwatch/internal/roster"
	"cabwatch/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type VisitLister interface {
	ListVisits(ctx context.Context, locationID string, limit int) ([]store.Visit, error)
}

type AdminHandlers struct {
	svc     *command.Service
	visits  VisitLister
	timeout time.Duration
}

// NewAdminHandlers builds the operator handlers. visits may be nil when no
// archive is configured.
func NewAdminHandlers(svc *command.Service, visits VisitLister) *AdminHandlers {
	return &AdminHandlers{svc: svc, visits: visits, timeout: 30 * time.Second}
}

func (h *AdminHandlers) AddCab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Credential string `json:"credential"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		metricAdminActionTotal.Add(1)
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		defer cancel()
		index, err := h.svc.AddCab(ctx, chi.URLParam(r, "location_id"), body.Credential)
		switch {
		case errors.Is(err, command.ErrSeedFailed):
			writeJSON(w, http.StatusAccepted, map[string]any{"ok": true, "index": index, "seeded": false})
			return
		case err != nil:
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"ok": true, "index": index, "seeded": true})
	}
}

func (h *AdminHandlers) RemoveCab() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, err := strconv.Atoi(chi.URLParam(r, "index"))
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_index")
			return
		}
		metricAdminActionTotal.Add(1)
		if err := h.svc.RemoveCab(chi.URLParam(r, "location_id"), index); err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) AddVisiblePlayer() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		metricAdminActionTotal.Add(1)
		if err := h.svc.AddVisiblePlayer(body.Code); err != nil {
			h.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (h *AdminHandlers) ReportDaily() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		metricAdminActionTotal.Add(1)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "locations": h.svc.ReportDaily()})
	}
}

func (h *AdminHandlers) Visits() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.visits == nil {
			WriteHTTPError(w, http.StatusNotFound, "archive_disabled")
			return
		}
		items, err := h.visits.ListVisits(r.Context(), chi.URLParam(r, "location_id"), parseLimit(r, 50, 500))
		if err != nil {
			log.Error().Err(err).Msg("list visits failed")
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *AdminHandlers) writeError(w http.ResponseWriter, err error) {
	metricAdminActionErrors.Add(1)
	switch {
	case errors.Is(err, roster.ErrLocationNotFound):
		WriteHTTPError(w, http.StatusNotFound, "location_not_found")
	case errors.Is(err, roster.ErrCabIndex):
		WriteHTTPError(w, http.StatusNotFound, "cab_index_out_of_range")
	case errors.Is(err, command.ErrMissingArgument):
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
	default:
		log.Error().Err(err).Msg("admin action failed")
		WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
	}
}
