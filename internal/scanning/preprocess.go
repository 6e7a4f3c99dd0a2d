package scanning

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/parallel"
	"github.com/disintegration/imaging"
)

// Default resize bounds in pixels
const (
	DefaultMaxSide = 1600
	DefaultMinSide = 900
)

// Fixed enhancement parameters
const (
	bilateralDiameter  = 9
	bilateralSigmaGray = 75.0
	bilateralSigmaDist = 75.0
	thresholdBlockSize = 31
	thresholdConstant  = 10.0
)

// Preprocessor resizes and binarizes images before recognition.
// It holds no state besides its bounds and is safe for concurrent use.
type Preprocessor struct {
	MaxSide int
	MinSide int
}

// NewPreprocessor creates a Preprocessor, falling back to the default bounds for non-positive values
func NewPreprocessor(maxSide, minSide int) Preprocessor {
	if maxSide <= 0 {
		maxSide = DefaultMaxSide
	}
	if minSide <= 0 {
		minSide = DefaultMinSide
	}
	return Preprocessor{MaxSide: maxSide, MinSide: minSide}
}

// Apply resizes img and then enhances it
func (p Preprocessor) Apply(img image.Image) image.Image {
	return Enhance(p.Resize(img))
}

// Resize downscales images whose longest side exceeds MaxSide, or else
// upscales images whose shortest side is below MinSide. Other images are
// returned unchanged.
func (p Preprocessor) Resize(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return img
	}
	maxSide, minSide := max(w, h), min(w, h)

	var scale float64
	switch {
	case p.MaxSide > 0 && maxSide > p.MaxSide:
		scale = float64(p.MaxSide) / float64(maxSide)
	case p.MinSide > 0 && minSide < p.MinSide:
		scale = float64(p.MinSide) / float64(minSide)
	default:
		return img
	}

	newW := max(1, int(math.Round(float64(w)*scale)))
	newH := max(1, int(math.Round(float64(h)*scale)))
	return imaging.Resize(img, newW, newH, imaging.Lanczos)
}

// Enhance converts img to intensity, smooths it with an edge-preserving
// bilateral filter, binarizes it with a Gaussian-weighted adaptive threshold
// and expands the result back to three identical channels.
func Enhance(img image.Image) *image.NRGBA {
	gray := toGray(img)
	smoothed := bilateral(gray, bilateralDiameter, bilateralSigmaGray, bilateralSigmaDist)
	binary := adaptiveThreshold(smoothed, thresholdBlockSize, thresholdConstant)
	return toNRGBA(binary)
}

func toGray(img image.Image) *image.Gray {
	src := imaging.Grayscale(img)
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Pix[gray.PixOffset(x, y)] = src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]
		}
	}
	return gray
}

func toNRGBA(gray *image.Gray) *image.NRGBA {
	b := gray.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := gray.Pix[gray.PixOffset(x, y)]
			i := out.PixOffset(x, y)
			out.Pix[i+0] = v
			out.Pix[i+1] = v
			out.Pix[i+2] = v
			out.Pix[i+3] = 0xff
		}
	}
	return out
}

type tap struct {
	dx, dy int
	weight float64
}

// bilateral applies a bilateral filter over a circular neighborhood of the given diameter.
// Borders are handled by clamping coordinates.
func bilateral(src *image.Gray, diameter int, sigmaGray, sigmaDist float64) *image.Gray {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewGray(b)
	radius := diameter / 2

	var grayWeight [256]float64
	for i := range grayWeight {
		grayWeight[i] = math.Exp(-float64(i*i) / (2 * sigmaGray * sigmaGray))
	}

	taps := make([]tap, 0, diameter*diameter)
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			d2 := dx*dx + dy*dy
			if d2 > radius*radius {
				continue
			}
			taps = append(taps, tap{dx: dx, dy: dy, weight: math.Exp(-float64(d2) / (2 * sigmaDist * sigmaDist))})
		}
	}

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			for x := 0; x < w; x++ {
				center := src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)]
				var sum, norm float64
				for _, t := range taps {
					xx := clampInt(x+t.dx, 0, w-1)
					yy := clampInt(y+t.dy, 0, h-1)
					v := src.Pix[src.PixOffset(b.Min.X+xx, b.Min.Y+yy)]
					diff := int(v) - int(center)
					if diff < 0 {
						diff = -diff
					}
					weight := t.weight * grayWeight[diff]
					sum += weight * float64(v)
					norm += weight
				}
				dst.Pix[dst.PixOffset(b.Min.X+x, b.Min.Y+y)] = uint8(math.Round(sum / norm))
			}
		}
	})
	return dst
}

// adaptiveThreshold sets a pixel white when it is brighter than the
// Gaussian-weighted mean of its blockSize neighborhood minus c.
func adaptiveThreshold(src *image.Gray, blockSize int, c float64) *image.Gray {
	b := src.Bounds()
	local := blur.Gaussian(src, float64(blockSize/2))
	lb := local.Bounds()
	dst := image.NewGray(b)
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			v := float64(src.Pix[src.PixOffset(b.Min.X+x, b.Min.Y+y)])
			m := float64(local.Pix[local.PixOffset(lb.Min.X+x, lb.Min.Y+y)])
			if v > m-c {
				dst.Pix[dst.PixOffset(b.Min.X+x, b.Min.Y+y)] = 0xff
			}
		}
	}
	return dst
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
