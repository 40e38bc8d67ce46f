package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/app/repository"
	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/falai"
)

// GenerationCost is the number of credits one generation consumes.
const GenerationCost = 1

// DefaultImageSize is sent to the provider when the caller does not pick one.
const DefaultImageSize = "1024x576"

const maxDownloadBytes = 50 << 20

// Generator produces an image for a prompt. Implemented by falai.Client.
type Generator interface {
	Generate(ctx context.Context, input falai.GenerateInput, onUpdate func(falai.QueueUpdate)) (*falai.Result, error)
}

// ObjectStore persists a blob under a key and returns its durable public URL.
// Implemented by storage.Client.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// CreditLedger is the slice of the credit ledger the pipeline needs.
type CreditLedger interface {
	Spend(ctx context.Context, userID string, n int64) (int64, error)
	Add(ctx context.Context, userID string, n int64) (int64, error)
}

// Result is what a successful generation returns to the caller. ImageURL is
// the provider's ephemeral URL, BackblazeURL the durable copy.
type Result struct {
	ImageURL     string `json:"imageUrl"`
	BackblazeURL string `json:"backblazeUrl"`
	ThumbnailURL string `json:"thumbnailUrl,omitempty"`
	MetadataID   uint   `json:"metadataId"`
	CreditsLeft  int64  `json:"credits"`
}

// Service runs the generation pipeline: spend a credit, generate, copy the
// image to durable storage, persist provenance. Any failure aborts the whole
// operation; the metadata record is written last so no partial record exists.
type Service struct {
	generator   Generator
	store       ObjectStore
	images      repository.ImageRepository
	ledger      CreditLedger
	httpClient  *http.Client
	maxAttempts int
	backoff     time.Duration
}

// NewService creates the pipeline from injected collaborators.
func NewService(generator Generator, store ObjectStore, images repository.ImageRepository, ledger CreditLedger) *Service {
	return &Service{
		generator:   generator,
		store:       store,
		images:      images,
		ledger:      ledger,
		httpClient:  &http.Client{Timeout: 2 * time.Minute},
		maxAttempts: 3,
		backoff:     500 * time.Millisecond,
	}
}

// Generate runs one end-to-end generation for a user.
func (s *Service) Generate(ctx context.Context, userID, prompt, imageSize string, onUpdate func(falai.QueueUpdate)) (res *Result, retErr error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, fmt.Errorf("%w: prompt is required", apperr.ErrInvalidRequest)
	}
	if imageSize == "" {
		imageSize = DefaultImageSize
	}

	balance, err := s.ledger.Spend(ctx, userID, GenerationCost)
	if err != nil {
		return nil, err
	}
	defer func() {
		if retErr == nil {
			return
		}
		// The user paid for an image they did not get; put the credit back.
		// WithoutCancel so a caller abort cannot also eat the refund.
		if _, err := s.ledger.Add(context.WithoutCancel(ctx), userID, GenerationCost); err != nil {
			log.Errorf("[ImageGen] credit refund failed for user %s: %v", userID, err)
		}
	}()

	input := falai.GenerateInput{
		Prompt:              prompt,
		ImageSize:           imageSize,
		NumImages:           1,
		EnableSafetyChecker: true,
		SafetyTolerance:     "2",
	}

	result, err := s.generator.Generate(ctx, input, onUpdate)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: image generation: %v", apperr.ErrUpstreamUnavailable, err)
	}
	if len(result.Images) == 0 {
		return nil, apperr.ErrNoImageProduced
	}

	img := result.Images[0]
	data, err := s.download(ctx, img.URL)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: download generated image: %v", apperr.ErrUpstreamUnavailable, err)
	}

	contentType := img.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key := objectKey("generated", prompt, contentType)
	permanentURL, err := s.store.Upload(ctx, key, data, contentType)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: object storage upload: %v", apperr.ErrUpstreamUnavailable, err)
	}

	thumbnailURL := s.uploadThumbnail(ctx, key, data)

	nsfw, _ := json.Marshal(result.HasNsfwConcepts)
	record := &models.ImageMetadata{
		Prompt:          prompt,
		ImageURL:        img.URL,
		BackblazeURL:    permanentURL,
		ThumbnailURL:    thumbnailURL,
		Seed:            result.Seed,
		Width:           img.Width,
		Height:          img.Height,
		ContentType:     contentType,
		HasNsfwConcepts: models.JSON(nsfw),
		FullResult:      models.JSON(result.Raw),
		Source:          models.ImageSourceGenerated,
		UserID:          userID,
	}
	if err := s.images.Create(record); err != nil {
		return nil, fmt.Errorf("%w: persist image metadata: %v", apperr.ErrUpstreamUnavailable, err)
	}

	return &Result{
		ImageURL:     img.URL,
		BackblazeURL: permanentURL,
		ThumbnailURL: thumbnailURL,
		MetadataID:   record.ID,
		CreditsLeft:  balance,
	}, nil
}

// GenerateWithRetry retries the whole operation with doubling backoff for
// transient upstream failures. Cancellation and non-transient failures
// (insufficient credits, no image produced) abort immediately.
func (s *Service) GenerateWithRetry(ctx context.Context, userID, prompt, imageSize string, onUpdate func(falai.QueueUpdate)) (*Result, error) {
	backoff := s.backoff
	var lastErr error

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		result, err := s.Generate(ctx, userID, prompt, imageSize, onUpdate)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, apperr.ErrUpstreamUnavailable) || ctx.Err() != nil {
			return nil, err
		}
		lastErr = err
		log.Warnf("[ImageGen] attempt %d/%d failed for user %s: %v", attempt, s.maxAttempts, userID, err)

		if attempt == s.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

func (s *Service) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("fetch image: empty body")
	}
	return data, nil
}

// objectKey builds a unique, human-scannable storage key:
// <prefix>/<uuid>-<prompt-slug>.<ext>
func objectKey(prefix, prompt, contentType string) string {
	return fmt.Sprintf("%s/%s-%s%s", prefix, uuid.NewString(), slugify(prompt, 20), extensionFor(contentType))
}

func slugify(s string, maxLen int) string {
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
