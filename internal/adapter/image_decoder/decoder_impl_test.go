package image_decoder

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/change-analysis-service/internal/analysis/visual"
	"github.com/user/change-analysis-service/internal/entity"
)

func encodedPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 6))
	for x := 0; x < 10; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecode_References(t *testing.T) {
	raw := encodedPNG(t)
	b64 := base64.StdEncoding.EncodeToString(raw)

	dir := t.TempDir()
	path := filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(path, raw, 0o600))

	tests := map[string]entity.ImageRef{
		"raw bytes":          entity.ImageFromBytes(raw),
		"data uri":           entity.ParseImageRef("data:image/png;base64,"+b64, false),
		"base64":             entity.ParseImageRef(b64, false),
		"unpadded base64":    entity.ParseImageRef(base64.RawStdEncoding.EncodeToString(raw), false),
		"file path":          entity.ParseImageRef(path, true),
		"base64 as path arg": entity.ParseImageRef(b64, true),
	}
	d := NewStdDecoder(0)
	for name, ref := range tests {
		t.Run(name, func(t *testing.T) {
			img, ok := d.Decode(ref)
			require.True(t, ok)
			assert.Equal(t, image.Rect(0, 0, 10, 6), img.Bounds())
		})
	}
}

func TestDecode_FallsBackToPlaceholder(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "big.png")
	require.NoError(t, os.WriteFile(big, encodedPNG(t), 0o600))

	tests := map[string]struct {
		decoder *StdDecoder
		ref     entity.ImageRef
	}{
		"absent":             {NewStdDecoder(0), entity.NoImage},
		"not an image":       {NewStdDecoder(0), entity.ImageFromBytes([]byte("hello"))},
		"bad base64":         {NewStdDecoder(0), entity.ParseImageRef("%%%not-base64%%%", false)},
		"data uri no comma":  {NewStdDecoder(0), entity.ParseImageRef("data:image/png;base64", false)},
		"directory":          {NewStdDecoder(0), entity.ImageFromPath(dir)},
		"file over the size": {NewStdDecoder(16), entity.ImageFromPath(big)},
	}
	placeholder := visual.Placeholder().Bounds()
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			img, ok := tc.decoder.Decode(tc.ref)
			assert.False(t, ok)
			assert.Equal(t, placeholder, img.Bounds())
		})
	}
}
