package analyzer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
)

// ImageHandler accepts single JPEG/PNG images as one page.
type ImageHandler struct{}

// Inspect decodes the image header to confirm it is readable.
func (ImageHandler) Inspect(ctx context.Context, format Format, data []byte) (Inspection, error) {
	diag := newDiagnostics()

	cfg, kind, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		diag.IsCorrupted = true
		return Inspection{}, newError(KindCorruptImage, "the image could not be decoded", diag, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		diag.IsCorrupted = true
		return Inspection{}, newError(KindCorruptImage,
			fmt.Sprintf("the image reports invalid dimensions %dx%d", cfg.Width, cfg.Height), diag, nil)
	}
	diag.FormatVersion = kind

	mediaType := "image/" + kind
	return Inspection{
		PageCount:  1,
		Dimensions: &Dimensions{Width: cfg.Width, Height: cfg.Height},
		Preview: &Preview{
			Kind:      "image",
			MediaType: mediaType,
			Content:   "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data),
		},
		Diagnostics: diag,
	}, nil
}
