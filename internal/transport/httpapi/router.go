// Package httpapi is the chi HTTP surface of the discovery service.
// The acting user arrives in the X-User-ID header; authentication happens upstream.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/discovery/internal/app"
)

// UserHeader carries the authenticated user id.
const UserHeader = "X-User-ID"

type Handler struct {
	appCtx *app.AppContext
}

// NewRouter returns every route, /metrics included.
func NewRouter(appCtx *app.AppContext) http.Handler {
	h := &Handler{appCtx: appCtx}
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: appCtx.Config.HTTP.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", UserHeader},
		MaxAge:         300,
	}))
	r.Use(requestLogger(appCtx.Logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/profiles", func(r chi.Router) {
		r.Use(requireUser)
		if d := appCtx.Config.HTTP.RequestTimeout; d > 0 {
			r.Use(chimiddleware.Timeout(d))
		}

		r.Get("/", h.searchProfiles)
		r.Patch("/", h.updateProfile)
		r.Get("/matched", h.listMatches)
		r.Get("/likes", h.listLikes)
		r.Get("/liked-you", h.listLikedYou)
		r.Get("/liked-you/count", h.countLikedYou)
		r.Get("/blocks", h.listBlocks)
		r.Get("/reports", h.listReports)
		r.Get("/visits", h.listVisits)

		r.Route("/{user_id}", func(r chi.Router) {
			r.Get("/", h.getProfile)
			r.Post("/like", h.like)
			r.Delete("/like", h.unlike)
			r.Post("/block", h.block)
			r.Delete("/block", h.unblock)
			r.Post("/report", h.report)
			r.Post("/visits", h.recordVisit)
		})
	})

	return r
}
