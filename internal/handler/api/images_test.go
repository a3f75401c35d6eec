package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollandwest/skadi/internal/domain"
)

// fakeImageService records calls and returns canned results.
type fakeImageService struct {
	batchResults []domain.BatchResult
	listRecords  []domain.SkuImageRecord
	listErr      error
	gotUploads   []domain.SkuImageUpload
	gotUser      uuid.UUID
}

func (f *fakeImageService) UploadBatch(ctx context.Context, uploads []domain.SkuImageUpload, uploadedBy uuid.UUID) ([]domain.BatchResult, error) {
	f.gotUploads = uploads
	f.gotUser = uploadedBy
	return f.batchResults, nil
}

func (f *fakeImageService) UploadForSku(ctx context.Context, upload domain.SkuImageUpload, uploadedBy uuid.UUID) ([]domain.SkuImageRecord, error) {
	return nil, nil
}

func (f *fakeImageService) ListImages(ctx context.Context, skuID uuid.UUID) ([]domain.SkuImageRecord, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listRecords, nil
}

func TestUploadBatch_Success(t *testing.T) {
	skuID := uuid.New()
	userID := uuid.New()
	svc := &fakeImageService{
		batchResults: []domain.BatchResult{
			{SkuID: skuID, Success: true, Count: 3},
		},
	}
	h := NewSkuImageHandler(svc, nil)

	body := `[{"skuId":"` + skuID.String() + `","skuCode":"AB-100","images":[{"source":"http://x/a.jpg","altText":"front"}]}]`
	req := httptest.NewRequest(http.MethodPost, "/api/skus/images/batch", strings.NewReader(body))
	req.Header.Set(UserIDHeader, userID.String())
	w := httptest.NewRecorder()

	h.UploadBatch(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var results []domain.BatchResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].Count)

	// The handler passed through the parsed request
	require.Len(t, svc.gotUploads, 1)
	assert.Equal(t, skuID, svc.gotUploads[0].SkuID)
	assert.Equal(t, "AB-100", svc.gotUploads[0].SkuCode)
	require.Len(t, svc.gotUploads[0].Images, 1)
	assert.Equal(t, "http://x/a.jpg", svc.gotUploads[0].Images[0].Source)
	assert.Equal(t, userID, svc.gotUser)
}

func TestUploadBatch_MalformedBody(t *testing.T) {
	h := NewSkuImageHandler(&fakeImageService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/skus/images/batch", strings.NewReader("{not json"))
	req.Header.Set(UserIDHeader, uuid.New().String())
	w := httptest.NewRecorder()

	h.UploadBatch(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "malformed")
}

func TestUploadBatch_MissingUser(t *testing.T) {
	h := NewSkuImageHandler(&fakeImageService{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/skus/images/batch", strings.NewReader("[]"))
	w := httptest.NewRecorder()

	h.UploadBatch(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUploadBatch_InvalidEntry(t *testing.T) {
	h := NewSkuImageHandler(&fakeImageService{}, nil)

	tests := []struct {
		name string
		body string
	}{
		{"missing sku id", `[{"skuCode":"AB-100","images":[]}]`},
		{"bad sku id", `[{"skuId":"not-a-uuid","skuCode":"AB-100","images":[]}]`},
		{"missing sku code", `[{"skuId":"` + uuid.New().String() + `","images":[]}]`},
		{"image without source", `[{"skuId":"` + uuid.New().String() + `","skuCode":"AB-100","images":[{"altText":"x"}]}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/skus/images/batch", strings.NewReader(tt.body))
			req.Header.Set(UserIDHeader, uuid.New().String())
			w := httptest.NewRecorder()

			h.UploadBatch(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestListImages(t *testing.T) {
	skuID := uuid.New()
	svc := &fakeImageService{
		listRecords: []domain.SkuImageRecord{
			{SkuID: skuID, ImageURL: "/uploads/a/main.jpg", ImageType: domain.ImageTypeMain, IsPrimary: true},
			{SkuID: skuID, ImageURL: "/uploads/a/thumb.jpg", ImageType: domain.ImageTypeThumbnail, DisplayOrder: 1},
		},
	}
	h := NewSkuImageHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/skus/"+skuID.String()+"/images", nil)
	req.SetPathValue("id", skuID.String())
	w := httptest.NewRecorder()

	h.ListImages(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var records []domain.SkuImageRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 2)
	assert.True(t, records[0].IsPrimary)
}

func TestListImages_InvalidID(t *testing.T) {
	h := NewSkuImageHandler(&fakeImageService{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/skus/nope/images", nil)
	req.SetPathValue("id", "nope")
	w := httptest.NewRecorder()

	h.ListImages(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListImages_ServiceError(t *testing.T) {
	h := NewSkuImageHandler(&fakeImageService{
		listErr: domain.NotFound("skuimage.list", "sku", "abc"),
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/skus/x/images", nil)
	req.SetPathValue("id", uuid.New().String())
	w := httptest.NewRecorder()

	h.ListImages(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
