package http

import (
	"net/http"
	"time"

	obsmw "keypears/internal/observability/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter mounts the RPC surface under /api plus the discovery document
// and operational endpoints. Procedures are verbs, not resources, so
// everything under /api is POST.
func NewRouter(svc Services, publicAPIURL string) *chi.Mux {
	h := &handler{svc: svc, apiURL: publicAPIURL}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(httprate.LimitByIP(300, time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", SessionTokenHeader, "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(obsmw.WithRequestAndTrace)

	r.Get("/.well-known/keypears.json", h.discovery)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Post("/checkNameAvailability", h.checkNameAvailability)
		r.Post("/registerVault", h.registerVault)
		r.Post("/login", h.login)
		// logout deletes by token and succeeds whether or not the session
		// still exists, so it must not sit behind session validation.
		r.Post("/logout", h.logout)
		r.Post("/getPowChallenge", h.getPowChallenge)

		// Federation-facing: callers are other servers or remote clients,
		// authenticated by proof-of-work and key ownership rather than a
		// session.
		r.Post("/getCounterpartyEngagementKey", h.getCounterpartyEngagementKey)
		r.Post("/verifyEngagementKeyOwnership", h.verifyEngagementKeyOwnership)
		r.Post("/sendMessage", h.sendMessage)

		r.Group(func(r chi.Router) {
			r.Use(h.requireSession)
			r.Post("/getEngagementKeyForSending", h.getEngagementKeyForSending)
			r.Post("/getDerivationPrivKey", h.getDerivationPrivKey)
			r.Post("/getChannels", h.getChannels)
			r.Post("/getChannelMessages", h.getChannelMessages)
			r.Post("/updateChannelMinDifficulty", h.updateChannelMinDifficulty)
			r.Post("/markMessagesRead", h.markMessagesRead)
		})
	})

	return r
}
