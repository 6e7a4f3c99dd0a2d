package receipt

import (
	"errors"

	"github.com/zombor/receipt-ocr/internal/parsing"
)

var (
	// ErrUnsupportedType is returned when an upload is not declared as an image
	ErrUnsupportedType = errors.New("file must be an image")
	// ErrInvalidImage is returned when upload bytes cannot be decoded
	ErrInvalidImage = errors.New("invalid image")
)

// Receipt is the structured result of reading one receipt photo.
// Absent fields encode as JSON null.
type Receipt struct {
	Merchant   *string        `json:"merchant"`
	Date       *string        `json:"date"`
	Total      *float64       `json:"total"`
	Items      []parsing.Item `json:"items"`
	RawText    []string       `json:"raw_text"`
	Confidence float64        `json:"confidence"` // mean score of the selected pass, 0.0 to 1.0
	Language   string         `json:"language"`
}
