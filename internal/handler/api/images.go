// Package api contains the JSON HTTP handlers for the image ingestion API.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/hollandwest/skadi/internal/domain"
	"github.com/hollandwest/skadi/internal/middleware"
)

// UserIDHeader carries the authenticated user's id, set by the auth layer in
// front of this service.
const UserIDHeader = "X-User-ID"

// SkuImageHandler serves the batch upload and image listing endpoints.
type SkuImageHandler struct {
	service  domain.SkuImageService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewSkuImageHandler creates a new SKU image handler.
func NewSkuImageHandler(service domain.SkuImageService, logger *slog.Logger) *SkuImageHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SkuImageHandler{
		service:  service,
		validate: validator.New(),
		logger:   logger,
	}
}

type imageDescriptorRequest struct {
	Source  string `json:"source" validate:"required"`
	AltText string `json:"altText"`
}

type batchEntryRequest struct {
	SkuID   string                   `json:"skuId" validate:"required,uuid"`
	SkuCode string                   `json:"skuCode" validate:"required"`
	Images  []imageDescriptorRequest `json:"images" validate:"dive"`
}

// UploadBatch handles POST /api/skus/images/batch.
//
// The endpoint always returns 200 with a per-SKU success/failure breakdown;
// only a malformed request body or a missing identity yields an error status.
func (h *SkuImageHandler) UploadBatch(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context(), h.logger)

	uploadedBy, err := uuid.Parse(r.Header.Get(UserIDHeader))
	if err != nil {
		writeError(w, domain.Unauthorized("skuimage.batch", "authenticated user id required"))
		return
	}

	var entries []batchEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&entries); err != nil {
		writeError(w, domain.Invalid("skuimage.batch", "malformed batch request body"))
		return
	}

	uploads := make([]domain.SkuImageUpload, 0, len(entries))
	for _, entry := range entries {
		if err := h.validate.Struct(entry); err != nil {
			writeError(w, domain.Invalid("skuimage.batch", "invalid batch entry: "+err.Error()))
			return
		}
		skuID, err := uuid.Parse(entry.SkuID)
		if err != nil {
			writeError(w, domain.Invalid("skuimage.batch", "invalid sku id: "+entry.SkuID))
			return
		}

		images := make([]domain.ImageDescriptor, len(entry.Images))
		for i, img := range entry.Images {
			images[i] = domain.ImageDescriptor{Source: img.Source, AltText: img.AltText}
		}
		uploads = append(uploads, domain.SkuImageUpload{
			SkuID:   skuID,
			SkuCode: entry.SkuCode,
			Images:  images,
		})
	}

	results, err := h.service.UploadBatch(r.Context(), uploads, uploadedBy)
	if err != nil {
		logger.Error("batch upload failed", "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// ListImages handles GET /api/skus/{id}/images.
func (h *SkuImageHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	logger := middleware.GetLogger(r.Context(), h.logger)

	skuID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, domain.Invalid("skuimage.list", "invalid sku id"))
		return
	}

	records, err := h.service.ListImages(r.Context(), skuID)
	if err != nil {
		logger.Error("list images failed", "sku_id", skuID, "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, records)
}

// writeJSON writes a JSON response with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to an HTTP status and JSON body.
func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFromCode(domain.ErrorCode(err)), map[string]string{
		"error": domain.ErrorMessage(err),
	})
}

func statusFromCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
