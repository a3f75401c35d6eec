package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/hollandwest/skadi/internal/domain"
	"github.com/hollandwest/skadi/internal/storage"
)

// ImageResult groups the three variants derived from one source image.
// Index preserves the position of the source descriptor in the input so the
// workflow can assign deterministic display order and group identity.
type ImageResult struct {
	Index    int
	Variants []domain.ImageVariant
}

// PipelineConfig tunes the per-SKU image pipeline.
type PipelineConfig struct {
	// Production enables the cache-reuse check against the object store.
	Production bool

	// Namespace is the first segment of every storage key.
	Namespace string

	// ScratchRoot is where per-SKU scratch directories are created.
	ScratchRoot string

	// MaxConcurrency caps simultaneous images per SKU. Zero picks an
	// adaptive default clamped between 2 and 6.
	MaxConcurrency int
}

// Pipeline orchestrates the ingestion of one SKU's image set:
// resolve -> hash -> cache-reuse check -> generate variants -> upload.
// Individual image failures are logged and dropped; siblings continue.
type Pipeline struct {
	resolver *SourceResolver
	store    storage.Storage
	config   PipelineConfig
	logger   *slog.Logger
}

// NewPipeline creates a pipeline. Resizing is CPU-bound while fetch and
// upload are I/O-bound, so the default concurrency tracks available CPUs,
// clamped between 2 and 6.
func NewPipeline(resolver *SourceResolver, store storage.Storage, config PipelineConfig, logger *slog.Logger) *Pipeline {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = clamp(runtime.GOMAXPROCS(0), 2, 6)
	}
	if config.Namespace == "" {
		config.Namespace = "products"
	}
	if config.ScratchRoot == "" {
		config.ScratchRoot = os.TempDir()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		resolver: resolver,
		store:    store,
		config:   config,
		logger:   logger,
	}
}

// ProcessSku runs every descriptor through the per-image pipeline under the
// concurrency cap and returns the surviving results in input order. The
// per-SKU scratch directory is removed on every exit path, panics included.
func (p *Pipeline) ProcessSku(ctx context.Context, skuCode string, images []domain.ImageDescriptor) ([]ImageResult, error) {
	if len(images) == 0 {
		return nil, nil
	}

	if err := os.MkdirAll(p.config.ScratchRoot, 0755); err != nil {
		return nil, fmt.Errorf("creating scratch root: %w", err)
	}
	scratchDir, err := os.MkdirTemp(p.config.ScratchRoot, "sku-"+sanitizeCode(skuCode)+"-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(scratchDir)

	results := make([]*ImageResult, len(images))

	// Semaphore for concurrency control
	sem := make(chan struct{}, p.config.MaxConcurrency)
	var wg sync.WaitGroup

	for i, desc := range images {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, desc domain.ImageDescriptor) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					p.logger.Error("image processing panicked",
						"sku_code", skuCode,
						"source", desc.Source,
						"panic", r,
					)
				}
			}()

			res, err := p.processOne(ctx, skuCode, i, desc, scratchDir)
			if err != nil {
				// A single image failure never aborts the SKU; the slot is
				// dropped and siblings continue.
				p.logger.Warn("image processing failed",
					"sku_code", skuCode,
					"source", desc.Source,
					"error", err,
				)
				return
			}
			results[i] = res
		}(i, desc)
	}
	wg.Wait()

	out := make([]ImageResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// processOne handles a single source image end to end.
func (p *Pipeline) processOne(ctx context.Context, skuCode string, index int, desc domain.ImageDescriptor, scratchDir string) (*ImageResult, error) {
	imgDir := filepath.Join(scratchDir, fmt.Sprintf("img-%d", index))
	if err := os.MkdirAll(imgDir, 0755); err != nil {
		return nil, fmt.Errorf("creating image scratch dir: %w", err)
	}

	srcPath, err := p.resolver.Resolve(ctx, desc, imgDir)
	if err != nil {
		return nil, err
	}

	hash, err := ContentHash(srcPath)
	if err != nil {
		return nil, err
	}

	zoomName, zoomFormat := zoomFileName(srcPath)
	mainKey := storage.ObjectKey(p.config.Namespace, skuCode, hash, MainFileName)
	thumbKey := storage.ObjectKey(p.config.Namespace, skuCode, hash, ThumbFileName)
	zoomKey := storage.ObjectKey(p.config.Namespace, skuCode, hash, zoomName)

	if p.config.Production {
		reused, err := p.cachedVariants(ctx, desc, mainKey, thumbKey, zoomKey, zoomFormat)
		if err == nil && reused != nil {
			p.logger.Debug("reusing stored variants",
				"sku_code", skuCode,
				"content_hash", hash,
			)
			return &ImageResult{Index: index, Variants: reused}, nil
		}
		if err != nil {
			return nil, err
		}
	}

	gen, err := GenerateVariants(srcPath, imgDir)
	if err != nil {
		return nil, err
	}

	uploads := []struct {
		localPath string
		key       string
	}{
		{gen.MainPath, mainKey},
		{gen.ThumbPath, thumbKey},
		{srcPath, zoomKey},
	}

	urls := make([]string, len(uploads))
	errs := make([]error, len(uploads))
	var wg sync.WaitGroup
	for i, u := range uploads {
		wg.Add(1)
		go func(i int, localPath, key string) {
			defer wg.Done()
			urls[i], errs[i] = p.store.Upload(ctx, localPath, key)
		}(i, u.localPath, u.key)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	variants := []domain.ImageVariant{
		{
			ImageURL:     urls[0],
			ImageType:    domain.ImageTypeMain,
			DisplayOrder: 0,
			FileSizeKB:   fileSizeKB(gen.MainPath),
			FileFormat:   "jpg",
			AltText:      desc.AltText,
			IsPrimary:    true,
		},
		{
			ImageURL:     urls[1],
			ImageType:    domain.ImageTypeThumbnail,
			DisplayOrder: 1,
			FileSizeKB:   fileSizeKB(gen.ThumbPath),
			FileFormat:   "jpg",
			AltText:      desc.AltText,
		},
		{
			ImageURL:     urls[2],
			ImageType:    domain.ImageTypeZoom,
			DisplayOrder: 2,
			FileSizeKB:   fileSizeKB(srcPath),
			FileFormat:   zoomFormat,
			AltText:      desc.AltText,
		},
	}

	return &ImageResult{Index: index, Variants: variants}, nil
}

// cachedVariants returns ready-made variant metadata when both generated
// objects already exist at the content-addressed keys, making a repeat upload
// of identical bytes a no-op beyond hashing and two existence checks.
// Returns (nil, nil) when generation is still required.
func (p *Pipeline) cachedVariants(ctx context.Context, desc domain.ImageDescriptor, mainKey, thumbKey, zoomKey, zoomFormat string) ([]domain.ImageVariant, error) {
	mainExists, err := p.store.Exists(ctx, mainKey)
	if err != nil {
		return nil, err
	}
	if !mainExists {
		return nil, nil
	}
	thumbExists, err := p.store.Exists(ctx, thumbKey)
	if err != nil {
		return nil, err
	}
	if !thumbExists {
		return nil, nil
	}

	return []domain.ImageVariant{
		{
			ImageURL:     p.store.URL(mainKey),
			ImageType:    domain.ImageTypeMain,
			DisplayOrder: 0,
			FileFormat:   "jpg",
			AltText:      desc.AltText,
			IsPrimary:    true,
		},
		{
			ImageURL:     p.store.URL(thumbKey),
			ImageType:    domain.ImageTypeThumbnail,
			DisplayOrder: 1,
			FileFormat:   "jpg",
			AltText:      desc.AltText,
		},
		{
			ImageURL:     p.store.URL(zoomKey),
			ImageType:    domain.ImageTypeZoom,
			DisplayOrder: 2,
			FileFormat:   zoomFormat,
			AltText:      desc.AltText,
		},
	}, nil
}

// zoomFileName names the untouched original in storage, keeping its format.
func zoomFileName(srcPath string) (name, format string) {
	ext := strings.ToLower(filepath.Ext(srcPath))
	if ext == "" {
		return "zoom", ""
	}
	return "zoom" + ext, strings.TrimPrefix(ext, ".")
}

func fileSizeKB(path string) int32 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return int32((info.Size() + 1023) / 1024)
}

// sanitizeCode makes a SKU code safe for use in a temp directory name.
func sanitizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, code)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
