package scanning

import (
	"fmt"
	"image"
	"math"
	"sort"
)

// DefaultMinConfidence is the per-region score a detection must reach to be kept
const DefaultMinConfidence = 0.45

// PassResult is the outcome of one recognition pass.
// Lines and Scores are co-indexed.
type PassResult struct {
	Lines      []string
	Scores     []float64
	Confidence float64
}

// SortReadingOrder sorts regions top-to-bottom, then left-to-right, using
// the minimum polygon coordinates. The sort is stable.
func SortReadingOrder(regions []Region) {
	sort.SliceStable(regions, func(i, j int) bool {
		xi, yi := regions[i].minXY()
		xj, yj := regions[j].minXY()
		if yi != yj {
			return yi < yj
		}
		return xi < xj
	})
}

// RunPass calls engine once on img and turns its detections into ordered lines.
// Regions below minConfidence are dropped unless that would drop all of them,
// in which case every region is kept.
func RunPass(engine Engine, img image.Image, minConfidence float64) (PassResult, error) {
	regions, err := engine.Recognize(img)
	if err != nil {
		return PassResult{}, fmt.Errorf("recognizing text: %w", err)
	}
	if len(regions) == 0 {
		return PassResult{Lines: []string{}, Scores: []float64{}}, nil
	}

	ordered := make([]Region, len(regions))
	copy(ordered, regions)
	SortReadingOrder(ordered)

	result := collect(ordered, minConfidence)
	if len(result.Lines) == 0 {
		result = collect(ordered, math.Inf(-1))
	}
	result.Confidence = mean(result.Scores)
	return result, nil
}

func collect(regions []Region, minConfidence float64) PassResult {
	result := PassResult{
		Lines:  make([]string, 0, len(regions)),
		Scores: make([]float64, 0, len(regions)),
	}
	for _, region := range regions {
		if region.Score < minConfidence {
			continue
		}
		result.Lines = append(result.Lines, region.Text)
		result.Scores = append(result.Scores, region.Score)
	}
	return result
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
