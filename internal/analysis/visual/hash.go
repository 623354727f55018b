// Package visual estimates how alike two screenshots look using perceptual
// hashes and a coarse pixel comparison.
package visual

import (
	"image"
	"image/color"
	"math/bits"

	"golang.org/x/image/draw"
)

const (
	hashSide = 8
	hashBits = hashSide * hashSide
	rmsSide  = 64

	// PlaceholderSide is the edge length of the blank image substituted for
	// missing or undecodable screenshots.
	PlaceholderSide = 64
)

// Hash is a 64-bit perceptual fingerprint, most significant bit first.
type Hash uint64

// Distance is the Hamming distance between two hashes.
func (h Hash) Distance(o Hash) int {
	return bits.OnesCount64(uint64(h ^ o))
}

// Placeholder returns the uniform white image used in place of an absent screenshot.
func Placeholder() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, PlaceholderSide, PlaceholderSide))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	return img
}

func usable(img image.Image) bool {
	return img != nil && !img.Bounds().Empty()
}

// grayscale converts to 8-bit luma using the ITU-R 601 weights of color.GrayModel.
// Gray input is returned as is.
func grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	g := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(g, g.Bounds(), img, b.Min, draw.Src)
	return g
}

// shrink resamples a gray image to w×h. Every comparison goes through the
// same filter so both sides of a pair are treated alike.
func shrink(g *image.Gray, w, h int) *image.Gray {
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), g, g.Bounds(), draw.Src, nil)
	return dst
}

// AverageHash thresholds an 8×8 grayscale thumbnail against its mean.
// Unusable images hash to zero.
func AverageHash(img image.Image) Hash {
	if !usable(img) {
		return 0
	}
	return averageHash(grayscale(img))
}

func averageHash(gray *image.Gray) Hash {
	g := shrink(gray, hashSide, hashSide)

	var sum int
	for _, p := range g.Pix {
		sum += int(p)
	}
	mean := float64(sum) / float64(len(g.Pix))

	var h Hash
	for _, p := range g.Pix {
		h <<= 1
		if float64(p) > mean {
			h |= 1
		}
	}
	return h
}

// DifferenceHash compares horizontal neighbours of a 9×8 grayscale thumbnail.
// Unusable images hash to zero.
func DifferenceHash(img image.Image) Hash {
	if !usable(img) {
		return 0
	}
	return differenceHash(grayscale(img))
}

func differenceHash(gray *image.Gray) Hash {
	g := shrink(gray, hashSide+1, hashSide)

	var h Hash
	for y := 0; y < hashSide; y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+hashSide+1]
		for x := 0; x < hashSide; x++ {
			h <<= 1
			if row[x] > row[x+1] {
				h |= 1
			}
		}
	}
	return h
}

// BitSimilarity is 1 - hamming/64.
func BitSimilarity(a, b Hash) float64 {
	return 1 - float64(a.Distance(b))/hashBits
}
