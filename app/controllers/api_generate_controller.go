package controllers

import (
	"fmt"
	"sync"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/falai"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

// GenerateRequest is the body of POST /generate-image.
type GenerateRequest struct {
	Prompt    string `json:"prompt" validate:"required,min=1,max=2000"`
	ImageSize string `json:"imageSize" validate:"omitempty,max=32"`
}

// HandleGenerateImage runs the full generation pipeline for the authenticated
// user and returns the durable image URLs together with the remaining balance.
func (a *API) HandleGenerateImage(c *fiber.Ctx) error {
	if a.generator == nil {
		return respondError(c, fmt.Errorf("%w: image generation", apperr.ErrNotConfigured))
	}

	var req GenerateRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("%w: malformed JSON body", apperr.ErrInvalidRequest))
	}
	if err := validate.Struct(req); err != nil {
		return respondError(c, fmt.Errorf("%w: prompt is required", apperr.ErrInvalidRequest))
	}

	user := usercontext.Current(c)

	var mu sync.Mutex
	var updates []falai.QueueUpdate
	onUpdate := func(u falai.QueueUpdate) {
		mu.Lock()
		updates = append(updates, u)
		mu.Unlock()
	}

	result, err := a.generator.GenerateWithRetry(c.Context(), user.UserID, req.Prompt, req.ImageSize, onUpdate)
	if err != nil {
		return respondError(c, err)
	}

	mu.Lock()
	defer mu.Unlock()
	return c.JSON(fiber.Map{
		"imageUrl":     result.ImageURL,
		"backblazeUrl": result.BackblazeURL,
		"thumbnailUrl": result.ThumbnailURL,
		"metadataId":   result.MetadataID,
		"credits":      result.CreditsLeft,
		"queueUpdates": updates,
	})
}
