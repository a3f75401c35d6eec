package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hollandwest/skadi/internal/domain"
)

// skuImageTx carries the image upload operations of one open transaction.
type skuImageTx struct {
	tx pgx.Tx
}

var _ domain.SkuImageTx = (*skuImageTx)(nil)

// LockSku acquires an exclusive row lock on the SKU for the duration of the
// transaction, serializing concurrent uploads for the same SKU.
func (t *skuImageTx) LockSku(ctx context.Context, skuID uuid.UUID) (*domain.Sku, error) {
	const op = "skuimage.lock"

	row := t.tx.QueryRow(ctx, `
		SELECT id, sku_code, name, created_at, updated_at
		FROM skus
		WHERE id = $1
		FOR UPDATE`,
		pgUUID(skuID),
	)

	var sku domain.Sku
	var id pgUUIDType
	if err := row.Scan(&id, &sku.SkuCode, &sku.Name, &sku.CreatedAt, &sku.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NotFound(op, "sku", skuID.String())
		}
		return nil, domain.Internal(err, op, "failed to lock sku")
	}
	sku.ID = uuidValue(id)

	return &sku, nil
}

// HasImages reports whether any image row exists for the SKU.
func (t *skuImageTx) HasImages(ctx context.Context, skuID uuid.UUID) (bool, error) {
	const op = "skuimage.exists"

	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM sku_images WHERE sku_id = $1)`,
		pgUUID(skuID),
	).Scan(&exists)
	if err != nil {
		return false, domain.Internal(err, op, "failed to check existing images")
	}
	return exists, nil
}

// skuImageColumns is the column list shared by the upsert RETURNING clause
// and the read path.
const skuImageColumns = `id, sku_id, image_url, image_type, display_order,
	file_size_kb, file_format, alt_text, is_primary, group_id, uploaded_by, uploaded_at`

// UpsertImages bulk-inserts records. On (sku_id, image_url) conflict the
// mutable metadata (alt text, display order, primary flag) is overwritten,
// uploaded_at refreshed, and the original group id preserved so re-runs keep
// their batch identity.
func (t *skuImageTx) UpsertImages(ctx context.Context, records []domain.SkuImageRecord) ([]domain.SkuImageRecord, error) {
	const op = "skuimage.upsert"

	if len(records) == 0 {
		return []domain.SkuImageRecord{}, nil
	}

	const cols = 11
	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*cols)
	for i, rec := range records {
		base := i * cols
		ph := make([]string, cols)
		for j := range ph {
			ph[j] = fmt.Sprintf("$%d", base+j+1)
		}
		placeholders = append(placeholders, "("+strings.Join(ph, ", ")+")")
		args = append(args,
			pgUUID(rec.SkuID),
			rec.ImageURL,
			string(rec.ImageType),
			rec.DisplayOrder,
			pgInt4(rec.FileSizeKB),
			pgText(rec.FileFormat),
			pgText(rec.AltText),
			rec.IsPrimary,
			pgUUID(rec.GroupID),
			pgUUIDOrNull(rec.UploadedBy),
			rec.UploadedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO sku_images
			(sku_id, image_url, image_type, display_order, file_size_kb,
			 file_format, alt_text, is_primary, group_id, uploaded_by, uploaded_at)
		VALUES %s
		ON CONFLICT (sku_id, image_url) DO UPDATE SET
			alt_text = EXCLUDED.alt_text,
			display_order = EXCLUDED.display_order,
			is_primary = EXCLUDED.is_primary,
			uploaded_at = now()
		RETURNING %s`,
		strings.Join(placeholders, ", "), skuImageColumns)

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to upsert sku images")
	}
	defer rows.Close()

	out := make([]domain.SkuImageRecord, 0, len(records))
	for rows.Next() {
		rec, err := scanSkuImage(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan upserted row")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read upserted rows")
	}

	return out, nil
}

// ListSkuImages returns a SKU's images ordered primary-first, then by
// ascending display order, joined to uploader identity for display.
func (s *Store) ListSkuImages(ctx context.Context, skuID uuid.UUID) ([]domain.SkuImageRecord, error) {
	const op = "skuimage.list"

	rows, err := s.pool.Query(ctx, `
		SELECT i.id, i.sku_id, i.image_url, i.image_type, i.display_order,
			i.file_size_kb, i.file_format, i.alt_text, i.is_primary,
			i.group_id, i.uploaded_by, i.uploaded_at,
			COALESCE(u.name, '') AS uploader_name
		FROM sku_images i
		LEFT JOIN users u ON u.id = i.uploaded_by
		WHERE i.sku_id = $1
		ORDER BY i.is_primary DESC, i.display_order ASC`,
		pgUUID(skuID),
	)
	if err != nil {
		return nil, domain.Internal(err, op, "failed to list sku images")
	}
	defer rows.Close()

	out := []domain.SkuImageRecord{}
	for rows.Next() {
		rec, err := scanSkuImageWithUploader(rows)
		if err != nil {
			return nil, domain.Internal(err, op, "failed to scan sku image row")
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, op, "failed to read sku image rows")
	}

	return out, nil
}

func scanSkuImage(rows pgx.Rows) (domain.SkuImageRecord, error) {
	var rec domain.SkuImageRecord
	var id, skuID, groupID pgUUIDType
	var uploadedBy pgUUIDType
	var imageType string
	var fileSizeKB pgInt4Type
	var fileFormat, altText pgTextType

	err := rows.Scan(&id, &skuID, &rec.ImageURL, &imageType, &rec.DisplayOrder,
		&fileSizeKB, &fileFormat, &altText, &rec.IsPrimary,
		&groupID, &uploadedBy, &rec.UploadedAt)
	if err != nil {
		return rec, err
	}

	rec.ID = uuidValue(id)
	rec.SkuID = uuidValue(skuID)
	rec.ImageType = domain.ImageType(imageType)
	rec.FileSizeKB = int4Value(fileSizeKB)
	rec.FileFormat = textValue(fileFormat)
	rec.AltText = textValue(altText)
	rec.GroupID = uuidValue(groupID)
	rec.UploadedBy = uuidValue(uploadedBy)
	return rec, nil
}

func scanSkuImageWithUploader(rows pgx.Rows) (domain.SkuImageRecord, error) {
	var rec domain.SkuImageRecord
	var id, skuID, groupID pgUUIDType
	var uploadedBy pgUUIDType
	var imageType string
	var fileSizeKB pgInt4Type
	var fileFormat, altText pgTextType

	err := rows.Scan(&id, &skuID, &rec.ImageURL, &imageType, &rec.DisplayOrder,
		&fileSizeKB, &fileFormat, &altText, &rec.IsPrimary,
		&groupID, &uploadedBy, &rec.UploadedAt, &rec.UploaderName)
	if err != nil {
		return rec, err
	}

	rec.ID = uuidValue(id)
	rec.SkuID = uuidValue(skuID)
	rec.ImageType = domain.ImageType(imageType)
	rec.FileSizeKB = int4Value(fileSizeKB)
	rec.FileFormat = textValue(fileFormat)
	rec.AltText = textValue(altText)
	rec.GroupID = uuidValue(groupID)
	rec.UploadedBy = uuidValue(uploadedBy)
	return rec, nil
}
