package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hollandwest/skadi/internal/domain"
	"github.com/hollandwest/skadi/internal/media"
)

// variantsPerImage is the size of the main/thumbnail/zoom triple each source
// image produces; final display order is derived from it.
const variantsPerImage = 3

// defaultBatchConcurrency caps simultaneous SKU transactions in one batch to
// bound database connection pressure.
const defaultBatchConcurrency = 3

// ImagePipeline is the per-SKU image processing dependency. Satisfied by
// *media.Pipeline; tests substitute fakes.
type ImagePipeline interface {
	ProcessSku(ctx context.Context, skuCode string, images []domain.ImageDescriptor) ([]media.ImageResult, error)
}

type skuImageService struct {
	store            domain.SkuImageStore
	pipeline         ImagePipeline
	logger           *slog.Logger
	batchConcurrency int
}

// NewSkuImageService creates the SKU image ingestion service.
// batchConcurrency <= 0 selects the default cap of 3.
func NewSkuImageService(store domain.SkuImageStore, pipeline ImagePipeline, logger *slog.Logger, batchConcurrency int) domain.SkuImageService {
	if batchConcurrency <= 0 {
		batchConcurrency = defaultBatchConcurrency
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &skuImageService{
		store:            store,
		pipeline:         pipeline,
		logger:           logger,
		batchConcurrency: batchConcurrency,
	}
}

// UploadBatch runs the per-SKU workflow for every entry under the concurrency
// cap, each in its own transaction. Results settle: one BatchResult per entry
// whether it succeeded or failed, and one SKU's failure never cancels others.
func (s *skuImageService) UploadBatch(ctx context.Context, uploads []domain.SkuImageUpload, uploadedBy uuid.UUID) ([]domain.BatchResult, error) {
	if len(uploads) == 0 {
		return []domain.BatchResult{}, nil
	}

	results := make([]domain.BatchResult, len(uploads))

	// Semaphore for concurrency control
	sem := make(chan struct{}, s.batchConcurrency)
	var wg sync.WaitGroup

	for i, upload := range uploads {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, upload domain.SkuImageUpload) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					s.logger.Error("sku upload panicked",
						"sku_id", upload.SkuID,
						"panic", r,
					)
					results[i] = domain.BatchResult{
						SkuID: upload.SkuID,
						Error: "An internal error occurred. Please try again later.",
					}
				}
			}()

			records, err := s.UploadForSku(ctx, upload, uploadedBy)
			if err != nil {
				s.logger.Warn("sku upload failed",
					"sku_id", upload.SkuID,
					"sku_code", upload.SkuCode,
					"error", err,
				)
				results[i] = domain.BatchResult{
					SkuID: upload.SkuID,
					Error: domain.ErrorMessage(err),
				}
				return
			}
			results[i] = domain.BatchResult{
				SkuID:   upload.SkuID,
				Success: true,
				Count:   len(records),
				Images:  records,
			}
		}(i, upload)
	}
	wg.Wait()

	return results, nil
}

// UploadForSku is the transactional unit for one SKU: lock the row, enforce
// the no-pre-existing-images invariant, run the pipeline, deduplicate,
// normalize, and bulk-upsert.
func (s *skuImageService) UploadForSku(ctx context.Context, upload domain.SkuImageUpload, uploadedBy uuid.UUID) ([]domain.SkuImageRecord, error) {
	const op = "skuimage.upload"

	if upload.SkuID == uuid.Nil {
		return nil, ErrMissingSkuID
	}
	if len(upload.Images) == 0 {
		return []domain.SkuImageRecord{}, nil
	}

	var saved []domain.SkuImageRecord
	err := s.store.WithTx(ctx, func(tx domain.SkuImageTx) error {
		sku, err := tx.LockSku(ctx, upload.SkuID)
		if err != nil {
			return err
		}

		hasImages, err := tx.HasImages(ctx, sku.ID)
		if err != nil {
			return err
		}
		if hasImages {
			return domain.Errorf(domain.EINVALID, op,
				"sku %s already has images; use the replace flow to change them", sku.SkuCode)
		}

		results, err := s.pipeline.ProcessSku(ctx, sku.SkuCode, upload.Images)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			saved = []domain.SkuImageRecord{}
			return nil
		}

		records := s.normalize(sku.ID, uploadedBy, results)
		saved, err = tx.UpsertImages(ctx, records)
		return err
	})
	if err != nil {
		if domain.IsDomainError(err) {
			return nil, err
		}
		return nil, domain.Internal(err, op, "sku image upload failed")
	}

	return saved, nil
}

// normalize turns pipeline output into persistable rows: dedupe by image URL
// (first occurrence wins), assign one group id per source image, derive final
// display order from input position and variant role, and restrict the
// primary flag to the first group's main variant.
func (s *skuImageService) normalize(skuID, uploadedBy uuid.UUID, results []media.ImageResult) []domain.SkuImageRecord {
	now := time.Now().UTC()
	seen := make(map[string]struct{})
	removed := 0

	records := make([]domain.SkuImageRecord, 0, len(results)*variantsPerImage)
	for gi, res := range results {
		groupID := uuid.New()
		for _, v := range res.Variants {
			if _, dup := seen[v.ImageURL]; dup {
				removed++
				continue
			}
			seen[v.ImageURL] = struct{}{}

			records = append(records, domain.SkuImageRecord{
				SkuID:        skuID,
				ImageURL:     v.ImageURL,
				ImageType:    v.ImageType,
				DisplayOrder: int32(gi*variantsPerImage) + v.DisplayOrder,
				FileSizeKB:   v.FileSizeKB,
				FileFormat:   v.FileFormat,
				AltText:      v.AltText,
				IsPrimary:    v.IsPrimary && gi == 0,
				GroupID:      groupID,
				UploadedBy:   uploadedBy,
				UploadedAt:   now,
			})
		}
	}

	if removed > 0 {
		s.logger.Info("removed duplicate image variants",
			"sku_id", skuID,
			"removed", removed,
		)
	}

	return records
}

// ListImages returns a SKU's images ordered primary-first, then by ascending
// display order.
func (s *skuImageService) ListImages(ctx context.Context, skuID uuid.UUID) ([]domain.SkuImageRecord, error) {
	const op = "skuimage.list"

	if skuID == uuid.Nil {
		return nil, ErrMissingSkuID
	}

	records, err := s.store.ListSkuImages(ctx, skuID)
	if err != nil {
		if domain.IsDomainError(err) {
			return nil, err
		}
		return nil, domain.Internal(err, op, "failed to list sku images")
	}
	return records, nil
}
