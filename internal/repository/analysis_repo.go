package repository

import (
	"context"
	"image"

	"github.com/user/change-analysis-service/internal/entity"
)

// TextExtractor turns a DOM string into normalized visible text.
type TextExtractor interface {
	// Extract never fails: malformed markup yields best-effort text.
	Extract(dom, pageURL string) entity.ExtractedText
}

// PageExtractor is a TextExtractor with tunable metadata collection.
type PageExtractor interface {
	TextExtractor
	ExtractPage(dom string, opts entity.ExtractOptions) entity.ExtractedText
}

// ImageDecoder resolves an image reference into pixels.
type ImageDecoder interface {
	// Decode always returns an image, substituting a blank placeholder when
	// the reference is absent or cannot be decoded. ok reports whether the
	// returned image came from the reference.
	Decode(ref entity.ImageRef) (img image.Image, ok bool)
}

// Summarizer is an optional external producer of structured change summaries.
type Summarizer interface {
	// Summarize returns a payload or an error; callers treat every error,
	// including malformed payloads, as a reason to summarize locally.
	Summarize(ctx context.Context, in entity.SummaryInput) (*entity.SummaryPayload, error)
}
