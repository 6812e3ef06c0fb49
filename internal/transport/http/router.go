package httptransport

import (
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"cabwatch/internal/command"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Service     *command.Service
	Cycles      CycleSource
	Visits      VisitLister
	AdminAPIKey string
}

func NewRouter(d Deps) *chi.Mux {
	locations := NewLocationHandlers(d.Service, d.Cycles)
	admin := NewAdminHandlers(d.Service, d.Visits)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", locations.Health())

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Get("/locations", locations.List())
		r.Get("/locations/{location_id}/status", locations.Status())

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(d.AdminAPIKey))
			r.Post("/locations/{location_id}/cabs", admin.AddCab())
			r.Delete("/locations/{location_id}/cabs/{index}", admin.RemoveCab())
			r.Get("/locations/{location_id}/visits", admin.Visits())
			r.Post("/visible-players", admin.AddVisiblePlayer())
			r.Post("/reports/daily", admin.ReportDaily())
			r.Get("/debug/vars", expvar.Handler().ServeHTTP)
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("%s %s; ", rt.Method, rt.Path))
	}
	log.Debug().Int("count", len(routes)).Str("routes", strings.TrimSuffix(b.String(), "; ")).Msg("registered routes")
}
