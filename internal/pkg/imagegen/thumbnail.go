package imagegen

import (
	"bytes"
	"context"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2/log"
)

const thumbnailWidth = 320

// uploadThumbnail stores a small JPEG variant next to the full image for
// gallery views. Best-effort: undecodable bytes or a failed upload only cost
// us the thumbnail, never the generation.
func (s *Service) uploadThumbnail(ctx context.Context, key string, data []byte) string {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		log.Warnf("[ImageGen] thumbnail skipped, cannot decode image for %s: %v", key, err)
		return ""
	}

	thumb := imaging.Resize(img, thumbnailWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		log.Warnf("[ImageGen] thumbnail encode failed for %s: %v", key, err)
		return ""
	}

	thumbKey := thumbnailKey(key)
	url, err := s.store.Upload(ctx, thumbKey, buf.Bytes(), "image/jpeg")
	if err != nil {
		log.Warnf("[ImageGen] thumbnail upload failed for %s: %v", thumbKey, err)
		return ""
	}
	return url
}

func thumbnailKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx > 0 {
		key = key[:idx]
	}
	return key + "_thumb.jpg"
}
