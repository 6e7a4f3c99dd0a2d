package receipt

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/zombor/receipt-ocr/internal/parsing"
	"github.com/zombor/receipt-ocr/internal/scanning"
)

var (
	unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	spaceRuns       = regexp.MustCompile(`\s+`)
)

// Recognizer selects the best recognition pass for an image
type Recognizer interface {
	Select(ctx context.Context, img image.Image) (*scanning.Selection, error)
}

// IDGenerator generates unique IDs for debug artifacts
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// defaultIDGenerator generates IDs using UnixNano timestamp
type defaultIDGenerator struct{}

func (g *defaultIDGenerator) Generate() string {
	return fmt.Sprintf("%d", time.Now().UnixNano())
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service turns uploaded receipt photos into structured receipts
type Service struct {
	recognizer  Recognizer
	storage     Storage
	cache       *ResultCache
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// storage may be nil, in which case no debug artifacts are written.
func NewService(recognizer Recognizer, storage Storage) *Service {
	return &Service{
		recognizer:  recognizer,
		storage:     storage,
		idGenerator: &defaultIDGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(recognizer Recognizer, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		recognizer:  recognizer,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

// sanitizeFilename cleans up a filename base by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))

	// Keep only alphanumeric, spaces, hyphens, and underscores
	base = unsafeNameChars.ReplaceAllString(base, "")
	base = spaceRuns.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars)
	if len(base) > 50 {
		base = base[:50]
	}

	if base == "" {
		base = "receipt"
	}
	return base
}

// UseCache makes the service reuse results for repeated uploads
func (s *Service) UseCache(cache *ResultCache) {
	s.cache = cache
}

// isImageType reports whether a declared MIME type is an image type
func isImageType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// ProcessReceipt validates and decodes an upload, recognizes its text and
// extracts the receipt fields. Client mistakes are reported as
// ErrUnsupportedType or ErrInvalidImage before any recognition runs.
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	if !isImageType(contentType) {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedType, contentType)
	}

	if s.cache == nil {
		return s.process(ctx, filename, data, contentType)
	}
	return s.cache.get(cacheKey(data, contentType), func() (*Receipt, error) {
		return s.process(ctx, filename, data, contentType)
	})
}

func (s *Service) process(ctx context.Context, filename string, data []byte, contentType string) (*Receipt, error) {
	img, err := scanning.DecodeImage(data, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	start := s.timeSource.Now()
	selection, err := s.recognizer.Select(ctx, img)
	if err != nil {
		slog.Error("Failed to recognize receipt",
			"filename", filename,
			"content_type", contentType,
			"file_size", len(data),
			"error", err,
		)
		return nil, fmt.Errorf("recognizing receipt: %w", err)
	}

	if s.storage != nil && selection.Variant != nil {
		s.saveVariant(filename, selection.Variant)
	}

	fields := parsing.Extract(selection.Lines)
	slog.Info("Processed receipt",
		"filename", filename,
		"language", selection.Language,
		"preprocessed", selection.Preprocessed,
		"lines", len(fields.RawText),
		"items", len(fields.Items),
		"confidence", selection.Confidence,
		"duration", s.timeSource.Now().Sub(start),
	)

	return &Receipt{
		Merchant:   fields.Merchant,
		Date:       fields.Date,
		Total:      fields.Total,
		Items:      fields.Items,
		RawText:    fields.RawText,
		Confidence: selection.Confidence,
		Language:   selection.Language,
	}, nil
}

// saveVariant writes the preprocessed image for debugging. Failures are only logged.
func (s *Service) saveVariant(filename string, variant image.Image) {
	data, err := scanning.EncodePNG(variant)
	if err != nil {
		slog.Warn("Failed to encode preprocessed image", "filename", filename, "error", err)
		return
	}

	name := fmt.Sprintf("%s_%s_preprocessed.png", s.idGenerator.Generate(), sanitizeFilename(filename))
	path, err := s.storage.Save(name, data)
	if err != nil {
		slog.Warn("Failed to save preprocessed image", "filename", filename, "error", err)
		return
	}
	slog.Debug("Saved preprocessed image", "path", path)
}
