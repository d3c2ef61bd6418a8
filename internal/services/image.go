package services

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"

	"event-marketplace/internal/models"

	"github.com/disintegration/imaging"
)

const (
	BannerWidth   = 1200
	BannerHeight  = 600
	bannerQuality = 85

	// MaxBannerBytes bounds the raw upload read into memory
	MaxBannerBytes = 10 << 20
)

var supportedBannerFormats = map[string]bool{"jpeg": true, "png": true, "gif": true}

// ProcessBanner decodes an uploaded image and returns it center-cropped to
// the banner size as JPEG.
func ProcessBanner(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxBannerBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	if len(data) > MaxBannerBytes {
		return nil, &models.ValidationError{Field: "banner", Message: "image is larger than 10MB"}
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &models.ValidationError{Field: "banner", Message: "file is not a supported image"}
	}
	if !supportedBannerFormats[format] {
		return nil, &models.ValidationError{Field: "banner", Message: fmt.Sprintf("unsupported image format: %s", format)}
	}

	banner := imaging.Fill(img, BannerWidth, BannerHeight, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, banner, &jpeg.Options{Quality: bannerQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode banner: %w", err)
	}
	return buf.Bytes(), nil
}
