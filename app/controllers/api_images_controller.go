package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

const (
	defaultImageListLimit = 20
	maxImageListLimit     = 100
)

// HandleListImages returns the authenticated user's most recent images,
// newest first.
func (a *API) HandleListImages(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", defaultImageListLimit)
	if limit < 1 || limit > maxImageListLimit {
		return respondError(c, fmt.Errorf("%w: limit must be between 1 and %d", apperr.ErrInvalidRequest, maxImageListLimit))
	}

	user := usercontext.Current(c)

	images, err := a.images.GetRecentByUserID(user.UserID, limit)
	if err != nil {
		return respondError(c, fmt.Errorf("%w: list images: %v", apperr.ErrUpstreamUnavailable, err))
	}

	items := make([]fiber.Map, 0, len(images))
	for _, img := range images {
		items = append(items, imageItem(img))
	}

	return c.JSON(fiber.Map{"images": items})
}

func imageItem(img models.ImageMetadata) fiber.Map {
	return fiber.Map{
		"id":           img.ID,
		"prompt":       img.Prompt,
		"backblazeUrl": img.BackblazeURL,
		"thumbnailUrl": img.ThumbnailURL,
		"width":        img.Width,
		"height":       img.Height,
		"source":       img.Source,
		"createdAt":    img.CreatedAt,
	}
}
