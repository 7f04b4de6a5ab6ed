package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/soundvault/soundvault/internal/catalog"
	"github.com/soundvault/soundvault/internal/logctx"
)

// AssetResponse is one catalog entry plus its cache status.
type AssetResponse struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Filename  string `json:"filename"`
	Category  string `json:"category"`
	Reference string `json:"reference"`
	Cached    bool   `json:"cached"`
	LocalPath string `json:"localPath,omitempty"`
}

// AssetRequest is the payload for adding a catalog entry.
type AssetRequest struct {
	Title     string `json:"title"`
	Category  string `json:"category"`
	Reference string `json:"reference"`
}

func (h *Handler) assetResponse(asset catalog.Asset) AssetResponse {
	resp := AssetResponse{
		ID:        asset.ID,
		Title:     asset.Title,
		Filename:  asset.Filename,
		Category:  asset.Category,
		Reference: asset.Reference.String(),
	}

	if cached, err := h.index.Exists(asset.Reference); err == nil && cached {
		resp.Cached = true
		resp.LocalPath = h.index.LocalPath(asset.Reference)
	}

	return resp
}

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	var (
		assets []catalog.Asset
		err    error
	)

	if category := r.URL.Query().Get("category"); category != "" {
		assets, err = h.assets.GetAssetsByCategory(r.Context(), category)
	} else {
		assets, err = h.assets.GetAssets(r.Context())
	}

	if err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to list assets", "err", err)
		http.Error(w, "failed to list assets", http.StatusInternalServerError)

		return
	}

	responses := make([]AssetResponse, 0, len(assets))
	for _, asset := range assets {
		responses = append(responses, h.assetResponse(asset))
	}

	respondJSON(w, r, http.StatusOK, responses)
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	asset, ok := h.lookupAsset(w, r)
	if !ok {
		return
	}

	respondJSON(w, r, http.StatusOK, h.assetResponse(*asset))
}

func (h *Handler) AddAsset(w http.ResponseWriter, r *http.Request) {
	var req AssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)

		return
	}

	if req.Reference == "" || req.Title == "" {
		http.Error(w, "title and reference are required", http.StatusBadRequest)

		return
	}

	asset := &catalog.Asset{
		Title:     req.Title,
		Category:  req.Category,
		Reference: catalog.Reference(req.Reference),
	}

	if err := h.writer.AddAsset(r.Context(), asset); err != nil {
		logctx.LoggerFromContext(r.Context()).Error("failed to add asset", "err", err)
		http.Error(w, "failed to add asset", http.StatusInternalServerError)

		return
	}

	respondJSON(w, r, http.StatusCreated, h.assetResponse(*asset))
}

func (h *Handler) RemoveAsset(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)

		return
	}

	if err := h.writer.RemoveAsset(r.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrAssetNotFound) {
			http.Error(w, "asset not found", http.StatusNotFound)

			return
		}

		logctx.LoggerFromContext(r.Context()).Error("failed to remove asset", "err", err)
		http.Error(w, "failed to remove asset", http.StatusInternalServerError)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// lookupAsset resolves the {id} URL param to a catalog asset, writing the
// error response itself when the lookup fails.
func (h *Handler) lookupAsset(w http.ResponseWriter, r *http.Request) (*catalog.Asset, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid asset id", http.StatusBadRequest)

		return nil, false
	}

	asset, err := h.assets.GetAsset(r.Context(), id)
	if err != nil {
		if errors.Is(err, catalog.ErrAssetNotFound) {
			http.Error(w, "asset not found", http.StatusNotFound)

			return nil, false
		}

		logctx.LoggerFromContext(r.Context()).Error("failed to get asset", "err", err)
		http.Error(w, "failed to get asset", http.StatusInternalServerError)

		return nil, false
	}

	return asset, true
}
