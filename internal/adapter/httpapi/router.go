package httpapi

import (
	"net/http"
	"strings"

	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/logger"
	"github.com/Abdurahmanit/GroupProject/property-service/internal/platform/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig carries what the router needs beyond the handler.
type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
	// UploadsPrefix and Uploads serve locally stored images. Uploads may be nil.
	UploadsPrefix string
	Uploads       http.Handler
	Metrics       *metrics.MetricsManager
}

func NewRouter(h *ListingHandler, cfg RouterConfig, log *logger.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, Instrument(log, cfg.Metrics), middleware.Recoverer)
	r.Use(cors.Handler(corsOptions(cfg.AllowedOrigins)))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}
	if cfg.Uploads != nil && cfg.UploadsPrefix != "" {
		prefix := "/" + strings.Trim(cfg.UploadsPrefix, "/")
		r.Mount(prefix, http.StripPrefix(prefix+"/", cfg.Uploads))
	}

	auth := Authenticate(cfg.JWTSecret, log)
	r.Route("/api/properties", func(r chi.Router) {
		r.Get("/", h.HandleSearchListings)
		// static segments must be registered alongside /{id}; chi prefers them
		r.With(auth).Get("/all", h.HandleAllListings)
		r.With(auth).Get("/my-listings", h.HandleMyListings)
		r.Get("/{id}", h.HandleGetListing)

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Post("/", h.HandleCreateListing)
			r.Put("/{id}", h.HandleUpdateListing)
			r.Delete("/{id}", h.HandleDeleteListing)
			r.Patch("/{id}/toggle-availability", h.HandleToggleAvailability)
		})
	})
	return r
}

func corsOptions(origins []string) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		opts.AllowedOrigins = []string{"*"}
		opts.AllowCredentials = false
	}
	return opts
}
