package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// SKU IMAGE DOMAIN TYPES
// =============================================================================

// ImageType identifies which derived variant of a source image a record holds.
type ImageType string

const (
	// ImageTypeMain is the full-size display variant (resized, recompressed).
	ImageTypeMain ImageType = "main"

	// ImageTypeThumbnail is the small raster derivative used in listings.
	ImageTypeThumbnail ImageType = "thumbnail"

	// ImageTypeZoom is the unmodified original, kept for zoom-in views.
	ImageTypeZoom ImageType = "zoom"
)

// ImageDescriptor describes one source image to ingest.
// Source is either an http(s) URL (fetched over the network) or a filesystem
// path (local development). There is exactly one source field; ambiguous or
// empty input is rejected at the API boundary.
type ImageDescriptor struct {
	Source  string `json:"source"`
	AltText string `json:"altText,omitempty"`
}

// ImageVariant is the pipeline's per-variant output, before persistence.
// Exactly one variant per source image carries ImageTypeMain and is the only
// one eligible to be primary.
type ImageVariant struct {
	ImageURL     string    `json:"imageUrl"`
	ImageType    ImageType `json:"imageType"`
	DisplayOrder int32     `json:"displayOrder"`
	FileSizeKB   int32     `json:"fileSizeKb,omitempty"`
	FileFormat   string    `json:"fileFormat,omitempty"`
	AltText      string    `json:"altText,omitempty"`
	IsPrimary    bool      `json:"isPrimary"`
}

// SkuImageRecord is a persisted image variant row.
// All variants derived from one source image share a GroupID, which preserves
// batch identity across re-runs. (sku_id, image_url) is the natural key.
type SkuImageRecord struct {
	ID           uuid.UUID `json:"id"`
	SkuID        uuid.UUID `json:"skuId"`
	ImageURL     string    `json:"imageUrl"`
	ImageType    ImageType `json:"imageType"`
	DisplayOrder int32     `json:"displayOrder"`
	FileSizeKB   int32     `json:"fileSizeKb,omitempty"`
	FileFormat   string    `json:"fileFormat,omitempty"`
	AltText      string    `json:"altText,omitempty"`
	IsPrimary    bool      `json:"isPrimary"`
	GroupID      uuid.UUID `json:"groupId"`
	UploadedBy   uuid.UUID `json:"uploadedBy"`
	UploadedAt   time.Time `json:"uploadedAt"`

	// UploaderName is populated on the read path via a join against users.
	// It is never written.
	UploaderName string `json:"uploaderName,omitempty"`
}

// SkuImageUpload is one batch entry: a SKU plus its set of source images.
type SkuImageUpload struct {
	SkuID   uuid.UUID
	SkuCode string
	Images  []ImageDescriptor
}

// BatchResult reports the outcome for one SKU in a batch. It is produced for
// every input entry, success or failure, so callers can render partial success.
type BatchResult struct {
	SkuID   uuid.UUID        `json:"skuId"`
	Success bool             `json:"success"`
	Count   int              `json:"count"`
	Images  []SkuImageRecord `json:"images"`
	Error   string           `json:"error,omitempty"`
}

// =============================================================================
// SERVICE AND STORE CONTRACTS
// =============================================================================

// SkuImageService ingests batches of SKU images and reads back persisted rows.
type SkuImageService interface {
	// UploadBatch processes every entry under a bounded concurrency cap, each
	// in its own transaction. One result per entry, failures isolated per SKU.
	UploadBatch(ctx context.Context, uploads []SkuImageUpload, uploadedBy uuid.UUID) ([]BatchResult, error)

	// UploadForSku runs the single-SKU transactional workflow.
	UploadForSku(ctx context.Context, upload SkuImageUpload, uploadedBy uuid.UUID) ([]SkuImageRecord, error)

	// ListImages returns a SKU's images ordered primary-first, then by
	// ascending display order.
	ListImages(ctx context.Context, skuID uuid.UUID) ([]SkuImageRecord, error)
}

// SkuImageStore is the persistence boundary for the upload workflow.
type SkuImageStore interface {
	// WithTx runs fn inside one database transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx SkuImageTx) error) error

	// ListSkuImages reads rows ordered is_primary DESC, display_order ASC,
	// joined to uploader identity.
	ListSkuImages(ctx context.Context, skuID uuid.UUID) ([]SkuImageRecord, error)
}

// SkuImageTx is the set of operations available inside an upload transaction.
type SkuImageTx interface {
	// LockSku acquires an exclusive row lock on the SKU (FOR UPDATE),
	// serializing concurrent uploads for the same SKU. Returns ENOTFOUND if
	// the SKU does not exist.
	LockSku(ctx context.Context, skuID uuid.UUID) (*Sku, error)

	// HasImages reports whether any image row exists for the SKU.
	HasImages(ctx context.Context, skuID uuid.UUID) (bool, error)

	// UpsertImages bulk-inserts records; on (sku_id, image_url) conflict the
	// mutable metadata is overwritten and uploaded_at refreshed. Returns all
	// affected rows.
	UpsertImages(ctx context.Context, records []SkuImageRecord) ([]SkuImageRecord, error)
}
