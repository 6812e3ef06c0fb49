package httptransport

import (
	"errors"
	"net/http"

	"cabwatch/internal/command"
	"cabwatch/internal/roster"
	"cabwatch/internal/scheduler"

	"github.com/go-chi/chi/v5"
)

type CycleSource interface {
	LastCycle() scheduler.CycleReport
}

type LocationHandlers struct {
	svc    *command.Service
	cycles CycleSource
}

func NewLocationHandlers(svc *command.Service, cycles CycleSource) *LocationHandlers {
	return &LocationHandlers{svc: svc, cycles: cycles}
}

type locationView struct {
	ID       string `json:"id"`
	TimeZone string `json:"time_zone"`
	Cabs     int    `json:"cabs"`
	Today    int    `json:"players_today"`
}

func (h *LocationHandlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		body := map[string]any{"ok": true, "locations": len(h.svc.Registry().Locations())}
		if h.cycles != nil {
			last := h.cycles.LastCycle()
			body["last_cycle_id"] = last.ID
			body["last_cycle_aborted"] = last.Aborted
		}
		writeJSON(w, http.StatusOK, body)
	}
}

func (h *LocationHandlers) List() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		reg := h.svc.Registry()
		locs := reg.Locations()
		items := make([]locationView, 0, len(locs))
		reg.View(func() {
			for _, loc := range locs {
				items = append(items, locationView{
					ID:       loc.ID,
					TimeZone: loc.TimeZone,
					Cabs:     len(loc.Cabs),
					Today:    loc.Ledger.Len(),
				})
			}
		})
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *LocationHandlers) Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := h.svc.Status(chi.URLParam(r, "location_id"))
		if errors.Is(err, roster.ErrLocationNotFound) {
			WriteHTTPError(w, http.StatusNotFound, "location_not_found")
			return
		}
		if err != nil {
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": status})
	}
}
