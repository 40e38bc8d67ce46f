package controllers

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

const maxUploadBytes = 20 << 20

var allowedUploadTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// HandleUploadImage accepts a user-supplied image, stores it durably and
// records its metadata. Uploads do not cost credits.
func (a *API) HandleUploadImage(c *fiber.Ctx) error {
	if a.uploads == nil {
		return respondError(c, fmt.Errorf("%w: object storage", apperr.ErrNotConfigured))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return respondError(c, fmt.Errorf("%w: file field is required", apperr.ErrInvalidRequest))
	}
	if fileHeader.Size > maxUploadBytes {
		return respondError(c, fmt.Errorf("%w: file exceeds %d bytes", apperr.ErrInvalidRequest, maxUploadBytes))
	}

	file, err := fileHeader.Open()
	if err != nil {
		return respondError(c, fmt.Errorf("%w: cannot read upload", apperr.ErrInvalidRequest))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return respondError(c, fmt.Errorf("%w: cannot read upload", apperr.ErrInvalidRequest))
	}
	if len(data) > maxUploadBytes {
		return respondError(c, fmt.Errorf("%w: file exceeds %d bytes", apperr.ErrInvalidRequest, maxUploadBytes))
	}

	// Trust the bytes, not the client headers.
	contentType := http.DetectContentType(data)
	ext, ok := allowedUploadTypes[contentType]
	if !ok {
		return respondError(c, fmt.Errorf("%w: unsupported file type %s", apperr.ErrInvalidRequest, contentType))
	}

	user := usercontext.Current(c)
	key := fmt.Sprintf("uploads/%s%s", uuid.NewString(), ext)

	url, err := a.uploads.Upload(c.Context(), key, data, contentType)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: object storage upload: %v", apperr.ErrUpstreamUnavailable, err))
	}

	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}

	record := &models.ImageMetadata{
		BackblazeURL: url,
		Width:        width,
		Height:       height,
		ContentType:  contentType,
		Source:       models.ImageSourceUpload,
		UserID:       user.UserID,
	}
	if err := a.images.Create(record); err != nil {
		return respondError(c, fmt.Errorf("%w: persist image metadata: %v", apperr.ErrUpstreamUnavailable, err))
	}

	return c.JSON(fiber.Map{
		"backblazeUrl": url,
		"metadataId":   record.ID,
	})
}
