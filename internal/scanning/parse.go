package scanning

import (
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strings"
)

// boxScale is the normalized coordinate range vision models report boxes in
const boxScale = 1000.0

var languageNames = map[string]string{
	"es": "Spanish",
	"en": "English",
}

// regionScanPrompt is the shared prompt used by all LLM engines for reading receipt lines
func regionScanPrompt(language string) string {
	name, ok := languageNames[language]
	if !ok {
		name = language
	}
	return fmt.Sprintf(`You are reading a photographed receipt. The receipt is most likely written in %s.

Transcribe every line of printed text exactly as it appears, one entry per visual line, including prices, dates and totals.

Return ONLY valid JSON in this exact format:
{
  "lines": [
    {"text": "TOTAL 3,50", "confidence": 0.95, "box_2d": [ymin, xmin, ymax, xmax]}
  ]
}

Important:
- confidence is a number between 0 and 1 describing how sure you are of the transcription
- box_2d coordinates are integers normalized to 0-1000 relative to the image size
- Do not correct spelling or translate anything
- Do not include any text before or after the JSON
- Do not use markdown code blocks`, name)
}

type regionsResponse struct {
	Lines []struct {
		Text       string    `json:"text"`
		Confidence *float64  `json:"confidence"`
		Box        []float64 `json:"box_2d"`
	} `json:"lines"`
}

// parseRegionsJSON parses a model's line transcription into regions with
// pixel polygons scaled to bounds
func parseRegionsJSON(text string, bounds image.Rectangle) ([]Region, error) {
	// Remove markdown code blocks if present
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var resp regionsResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	regions := make([]Region, 0, len(resp.Lines))
	for i, line := range resp.Lines {
		line.Text = strings.TrimSpace(line.Text)
		if line.Text == "" {
			continue
		}

		// Models that omit confidence are trusted at the default threshold
		score := DefaultMinConfidence
		if line.Confidence != nil {
			score = clamp(*line.Confidence, 0, 1)
		}

		regions = append(regions, Region{
			Text:    line.Text,
			Score:   score,
			Polygon: scaleBox(line.Box, bounds, i),
		})
	}
	return regions, nil
}

// scaleBox converts a [ymin, xmin, ymax, xmax] box in model units to a pixel
// polygon. Missing boxes keep the model's line order by stacking on index.
func scaleBox(box []float64, bounds image.Rectangle, index int) []Point {
	if len(box) != 4 {
		return RectPolygon(image.Rect(bounds.Min.X, bounds.Min.Y+index, bounds.Max.X, bounds.Min.Y+index+1))
	}

	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	x := func(v float64) int {
		return bounds.Min.X + int(math.Round(clamp(v, 0, boxScale)/boxScale*w))
	}
	y := func(v float64) int {
		return bounds.Min.Y + int(math.Round(clamp(v, 0, boxScale)/boxScale*h))
	}
	return RectPolygon(image.Rect(x(box[1]), y(box[0]), x(box[3]), y(box[2])))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
