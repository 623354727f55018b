package visual

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Blend weights of the canonical similarity.
const (
	weightAverage = 0.5
	weightDiff    = 0.3
	weightRMS     = 0.2
)

// RMSSimilarity compares 64×64 grayscale thumbnails: 1 - rms/255.
func RMSSimilarity(a, b image.Image) float64 {
	if !usable(a) || !usable(b) {
		return 1.0
	}
	return rmsSimilarity(grayscale(a), grayscale(b))
}

func rmsSimilarity(a, b *image.Gray) float64 {
	ga := shrink(a, rmsSide, rmsSide)
	gb := shrink(b, rmsSide, rmsSide)

	var sum float64
	for i := range ga.Pix {
		d := float64(ga.Pix[i]) - float64(gb.Pix[i])
		sum += d * d
	}
	rms := math.Sqrt(sum / float64(len(ga.Pix)))
	return clamp01(1 - rms/255)
}

// Similarity is the canonical visual closeness of two images in [0,1]:
// 0.5·aHash + 0.3·dHash + 0.2·RMS. When either image is nil or empty it
// returns 1.0, meaning no distinguishable change.
func Similarity(a, b image.Image) float64 {
	if !usable(a) || !usable(b) {
		return 1.0
	}
	ga, gb := grayscale(a), grayscale(b)
	ah := BitSimilarity(averageHash(ga), averageHash(gb))
	dh := BitSimilarity(differenceHash(ga), differenceHash(gb))
	rm := rmsSimilarity(ga, gb)
	return clamp01(weightAverage*ah + weightDiff*dh + weightRMS*rm)
}

// HashSimilarity is the unweighted two-hash variant, rounded to 4 decimals.
func HashSimilarity(a, b image.Image) float64 {
	if !usable(a) || !usable(b) {
		return 1.0
	}
	ga, gb := grayscale(a), grayscale(b)
	aDiff := float64(averageHash(ga).Distance(averageHash(gb))) / hashBits
	dDiff := float64(differenceHash(ga).Distance(differenceHash(gb))) / hashBits
	return math.Round((1-(aDiff+dDiff)/2)*1e4) / 1e4
}

// Thumbnail downsizes img so its longest side is at most maxSide.
// Smaller images are returned as is.
func Thumbnail(img image.Image, maxSide int) image.Image {
	if !usable(img) || maxSide <= 0 {
		return img
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxSide && h <= maxSide {
		return img
	}
	if w >= h {
		h = max(1, h*maxSide/w)
		w = maxSide
	} else {
		w = max(1, w*maxSide/h)
		h = maxSide
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 1.0
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
