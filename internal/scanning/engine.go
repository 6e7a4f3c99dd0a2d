package scanning

import (
	"image"
	"math"
)

// Point is a polygon vertex in pixel coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Region is one text detection returned by a recognition engine
type Region struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"` // 0.0 to 1.0
	// Polygon holds the region corners, usually 4, not necessarily axis-aligned.
	Polygon []Point `json:"polygon"`
}

// minXY returns the smallest x and y over the polygon
func (r Region) minXY() (float64, float64) {
	if len(r.Polygon) == 0 {
		return 0, 0
	}
	minX, minY := math.Inf(1), math.Inf(1)
	for _, p := range r.Polygon {
		minX = math.Min(minX, p.X)
		minY = math.Min(minY, p.Y)
	}
	return minX, minY
}

// RectPolygon returns the four corners of rect, clockwise from the top-left
func RectPolygon(rect image.Rectangle) []Point {
	return []Point{
		{X: float64(rect.Min.X), Y: float64(rect.Min.Y)},
		{X: float64(rect.Max.X), Y: float64(rect.Min.Y)},
		{X: float64(rect.Max.X), Y: float64(rect.Max.Y)},
		{X: float64(rect.Min.X), Y: float64(rect.Max.Y)},
	}
}

// Engine defines the recognition engine contract.
// An engine is bound to one language hint when it is loaded.
type Engine interface {
	// Recognize detects text regions in img. It is synchronous and cannot be cancelled.
	Recognize(img image.Image) ([]Region, error)
	// Close releases the engine resources
	Close() error
}

// Loader creates an engine for a language code such as "es" or "en"
type Loader func(language string) (Engine, error)
