package rest

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/downloader"
	"github.com/soundvault/soundvault/internal/logctx"
	"github.com/soundvault/soundvault/internal/transfer"
)

// DownloadResponse describes a transfer or a cache short-circuit.
type DownloadResponse struct {
	Reference string  `json:"reference"`
	Outcome   string  `json:"outcome,omitempty"`
	State     string  `json:"state,omitempty"`
	Progress  float64 `json:"progress"`
	LocalPath string  `json:"localPath,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func snapshotResponse(snap transfer.Snapshot) DownloadResponse {
	resp := DownloadResponse{
		Reference: snap.Reference.String(),
		State:     string(snap.State),
		Progress:  snap.Progress,
		LocalPath: snap.ResultPath,
	}

	if snap.Err != nil {
		resp.Error = snap.Err.Error()
	}

	return resp
}

func (h *Handler) RequestDownload(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.lookupAsset(w, r)
	if !ok {
		return
	}

	t, outcome := h.manager.Request(r.Context(), asset.Reference)

	if outcome == downloader.OutcomeAlreadyCached {
		respondJSON(w, r, http.StatusOK, DownloadResponse{
			Reference: asset.Reference.String(),
			Outcome:   string(outcome),
			Progress:  1,
			LocalPath: h.index.LocalPath(asset.Reference),
		})

		return
	}

	resp := snapshotResponse(t.Snapshot())
	resp.Outcome = string(outcome)

	respondJSON(w, r, http.StatusAccepted, resp)
}

func (h *Handler) CancelDownload(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.lookupAsset(w, r)
	if !ok {
		return
	}

	// Idempotent: cancelling a reference with no live transfer is fine.
	h.manager.Cancel(asset.Reference)

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListDownloads(w http.ResponseWriter, r *http.Request) {
	active := h.manager.Active()

	responses := make([]DownloadResponse, 0, len(active))
	for _, snap := range active {
		responses = append(responses, snapshotResponse(snap))
	}

	respondJSON(w, r, http.StatusOK, responses)
}

// PrefetchRequest selects the references to prefetch.
type PrefetchRequest struct {
	Category string `json:"category"`
}

// Prefetch downloads every asset in a category and waits for the batch to
// settle.
func (h *Handler) Prefetch(w http.ResponseWriter, r *http.Request) {
	logger := logctx.LoggerFromContext(r.Context())

	var req PrefetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	assets, err := h.assets.GetAssetsByCategory(r.Context(), req.Category)
	if err != nil {
		logger.Error("failed to list assets for prefetch", "category", req.Category, "err", err)
		http.Error(w, "failed to list assets", http.StatusInternalServerError)

		return
	}

	refs := make([]catalog.Reference, 0, len(assets))
	for _, asset := range assets {
		refs = append(refs, asset.Reference)
	}

	fetched, err := h.manager.Prefetch(r.Context(), refs)
	if err != nil {
		logger.Error("prefetch finished with errors", "category", req.Category, "err", err)
		http.Error(w, "prefetch failed", http.StatusBadGateway)

		return
	}

	respondJSON(w, r, http.StatusOK, map[string]int{"requested": len(refs), "fetched": fetched})
}

func (h *Handler) PlayAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.lookupAsset(w, r)
	if !ok {
		return
	}

	src := h.resolver.Resolve(r.Context(), asset.Reference)

	// Playback outlives the request; only an explicit stop ends it.
	if err := h.player.Play(context.WithoutCancel(r.Context()), src); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to start playback", "err", err)
		http.Error(w, "failed to start playback", http.StatusInternalServerError)

		return
	}

	respondJSON(w, r, http.StatusOK, map[string]any{"uri": src.URI, "local": src.Local})
}

func (h *Handler) StopPlayback(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Stop(); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to stop playback", "err", err)
		http.Error(w, "failed to stop playback", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ClearCache(w http.ResponseWriter, r *http.Request) {
	if err := h.index.Clear(r.Context()); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to clear cache", "err", err)
		http.Error(w, "failed to clear cache", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}
