package controllers

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/internal/pkg/middleware"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

type stubObjectStore struct {
	mu   sync.Mutex
	keys []string
}

func (s *stubObjectStore) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return "https://cdn.test/" + key, nil
}

type stubImageRepo struct {
	mu      sync.Mutex
	records []*models.ImageMetadata
}

func (s *stubImageRepo) Create(img *models.ImageMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	img.ID = uint(len(s.records) + 1)
	s.records = append(s.records, img)
	return nil
}

func (s *stubImageRepo) GetByID(id uint) (*models.ImageMetadata, error) {
	return nil, errors.New("not found")
}

func (s *stubImageRepo) GetRecentByUserID(userID string, limit int) ([]models.ImageMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ImageMetadata
	for _, r := range s.records {
		if r.UserID == userID {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (s *stubImageRepo) GetRecent(limit int) ([]models.ImageMetadata, error) { return nil, nil }

func (s *stubImageRepo) CountByUserID(userID string) (int64, error) {
	imgs, _ := s.GetRecentByUserID(userID, 0)
	return int64(len(imgs)), nil
}

func multipartBody(t *testing.T, field, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func newUploadApp(t *testing.T, api *API) *fiber.App {
	t.Helper()
	app := fiber.New()
	authed := app.Group("/",
		identityStub(usercontext.Identity{UserID: "auth0|u1", IsLoggedIn: true}),
		middleware.RequireAPIAuth,
	)
	authed.Post("/upload", api.HandleUploadImage)
	return app
}

func TestUploadImageStoresFileAndMetadata(t *testing.T) {
	store := &stubObjectStore{}
	images := &stubImageRepo{}
	api := NewAPI(nil, nil, newTestLedger(t), nil, store, images, "")
	app := newUploadApp(t, api)

	var img bytes.Buffer
	require.NoError(t, png.Encode(&img, image.NewRGBA(image.Rect(0, 0, 32, 16))))

	body, contentType := multipartBody(t, "file", "card.png", img.Bytes())
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	respBody := decodeBody(t, resp)
	assert.Contains(t, respBody["backblazeUrl"], "https://cdn.test/uploads/")

	require.Len(t, images.records, 1)
	record := images.records[0]
	assert.Equal(t, "image/png", record.ContentType)
	assert.Equal(t, models.ImageSourceUpload, record.Source)
	assert.Equal(t, "auth0|u1", record.UserID)
	assert.Equal(t, 32, record.Width)
	assert.Equal(t, 16, record.Height)

	require.Len(t, store.keys, 1)
	assert.Contains(t, store.keys[0], "uploads/")
}

func TestUploadImageRejectsUnsupportedType(t *testing.T) {
	store := &stubObjectStore{}
	images := &stubImageRepo{}
	api := NewAPI(nil, nil, newTestLedger(t), nil, store, images, "")
	app := newUploadApp(t, api)

	body, contentType := multipartBody(t, "file", "notes.txt", []byte("plain text, not an image"))
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, store.keys)
	assert.Empty(t, images.records)
}

func TestUploadImageRequiresFile(t *testing.T) {
	api := NewAPI(nil, nil, newTestLedger(t), nil, &stubObjectStore{}, &stubImageRepo{}, "")
	app := newUploadApp(t, api)

	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadImageWithoutStorageConfigured(t *testing.T) {
	api := NewAPI(nil, nil, newTestLedger(t), nil, nil, &stubImageRepo{}, "")
	app := newUploadApp(t, api)

	body, contentType := multipartBody(t, "file", "card.png", []byte{1, 2, 3})
	req := httptest.NewRequest(http.MethodPost, "/upload", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
