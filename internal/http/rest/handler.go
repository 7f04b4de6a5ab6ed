package rest

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/soundvault/soundvault/internal/cache"
	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/downloader"
	"github.com/soundvault/soundvault/internal/logctx"
	"github.com/soundvault/soundvault/internal/player"
)

// Handler is the presentation-facing API: catalog browsing, download
// requests, live progress and playback.
type Handler struct {
	username string
	password string

	assets   catalog.AssetReadRepository
	writer   catalog.AssetWriteRepository
	manager  *downloader.Manager
	index    *cache.Index
	resolver *player.Resolver
	player   player.Player
}

func NewHandler(
	username, password string,
	assets catalog.AssetReadRepository,
	writer catalog.AssetWriteRepository,
	manager *downloader.Manager,
	index *cache.Index,
	resolver *player.Resolver,
	audioPlayer player.Player,
) *Handler {
	return &Handler{
		username: username,
		password: password,
		assets:   assets,
		writer:   writer,
		manager:  manager,
		index:    index,
		resolver: resolver,
		player:   audioPlayer,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	if h.username != "" {
		r.Use(h.basicAuthMiddleware)
	}

	r.Get("/assets", h.ListAssets)
	r.Post("/assets", h.AddAsset)
	r.Get("/assets/{id}", h.GetAsset)
	r.Delete("/assets/{id}", h.RemoveAsset)

	r.Post("/assets/{id}/download", h.RequestDownload)
	r.Delete("/assets/{id}/download", h.CancelDownload)
	r.Post("/assets/{id}/play", h.PlayAsset)
	r.Post("/player/stop", h.StopPlayback)

	r.Get("/downloads", h.ListDownloads)
	r.Post("/downloads/prefetch", h.Prefetch)
	r.Get("/events", h.StreamEvents)

	r.Delete("/cache", h.ClearCache)

	return r
}

func (h *Handler) basicAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok ||
			subtle.ConstantTimeCompare([]byte(user), []byte(h.username)) != 1 ||
			subtle.ConstantTimeCompare([]byte(pass), []byte(h.password)) != 1 {
			w.Header().Set("WWW-Authenticate", `Basic realm="soundvault"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)

			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if payload == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to encode response", "err", err)
	}
}
