package image_decoder

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/user/change-analysis-service/internal/analysis/visual"
	"github.com/user/change-analysis-service/internal/entity"
)

var errEmptyImage = errors.New("empty image payload")

// StdDecoder decodes screenshots with the registered image codecs.
type StdDecoder struct {
	maxFileBytes int64
}

// NewStdDecoder creates a decoder. Image files larger than maxFileBytes are
// rejected; zero means no limit.
func NewStdDecoder(maxFileBytes int64) *StdDecoder {
	return &StdDecoder{maxFileBytes: maxFileBytes}
}

// Decode resolves ref to an image. Absent or undecodable references yield the
// blank placeholder and ok=false.
func (d *StdDecoder) Decode(ref entity.ImageRef) (image.Image, bool) {
	if ref.IsAbsent() {
		return visual.Placeholder(), false
	}
	raw, err := d.Bytes(ref)
	if err == nil {
		var img image.Image
		img, _, err = image.Decode(bytes.NewReader(raw))
		if err == nil {
			return img, true
		}
	}
	slog.Debug("Using placeholder for undecodable image", "kind", ref.Kind.String(), "error", err)
	return visual.Placeholder(), false
}

// Bytes returns the encoded image bytes ref points at.
func (d *StdDecoder) Bytes(ref entity.ImageRef) ([]byte, error) {
	switch ref.Kind {
	case entity.ImageRawBytes:
		if len(ref.Bytes) == 0 {
			return nil, errEmptyImage
		}
		return ref.Bytes, nil
	case entity.ImageDataURI:
		_, payload, found := strings.Cut(ref.Value, ",")
		if !found {
			return nil, errors.New("data URI without payload")
		}
		return decodeBase64(payload)
	case entity.ImageBase64:
		return decodeBase64(ref.Value)
	case entity.ImageFilePath:
		info, statErr := os.Stat(ref.Value)
		if statErr != nil {
			// Long base64 payloads are not valid paths at all.
			raw, err := decodeBase64(ref.Value)
			if err != nil {
				return nil, fmt.Errorf("neither a readable file nor base64: %w", statErr)
			}
			return raw, nil
		}
		return d.readFile(ref.Value, info)
	default:
		return nil, errEmptyImage
	}
}

func (d *StdDecoder) readFile(path string, info fs.FileInfo) ([]byte, error) {
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if d.maxFileBytes > 0 && info.Size() > d.maxFileBytes {
		return nil, fmt.Errorf("%s exceeds %d bytes", path, d.maxFileBytes)
	}
	return os.ReadFile(path)
}

// decodeBase64 accepts padded and unpadded standard encodings, ignoring
// embedded whitespace.
func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return nil, errEmptyImage
	}
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	raw, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 image: %w", err)
	}
	return raw, nil
}
