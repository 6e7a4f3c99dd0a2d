package scanning

import (
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// tesseractLanguages maps language hints to Tesseract traineddata names
var tesseractLanguages = map[string]string{
	"es": "spa",
	"en": "eng",
}

// TesseractOptions configures Tesseract-backed engines
type TesseractOptions struct {
	// Tessdata is the traineddata directory, empty for the system default.
	Tessdata string
	// UseAngle enables orientation detection so rotated text lines are read upright.
	UseAngle bool
	// PoolSize is the number of clients per language. gosseract clients are
	// not safe for concurrent use, so this bounds parallel passes.
	PoolSize int
}

// NewTesseractLoader returns a Loader creating a pooled Tesseract engine per language
func NewTesseractLoader(opts TesseractOptions) Loader {
	if opts.PoolSize < 1 {
		opts.PoolSize = 1
	}
	return func(language string) (Engine, error) {
		return newTesseract(language, opts)
	}
}

type tesseract struct {
	clients chan *gosseract.Client
	all     []*gosseract.Client
}

func newTesseract(language string, opts TesseractOptions) (*tesseract, error) {
	lang, ok := tesseractLanguages[language]
	if !ok {
		return nil, fmt.Errorf("unsupported language %q", language)
	}

	mode := gosseract.PSM_AUTO
	if opts.UseAngle {
		mode = gosseract.PSM_AUTO_OSD
	}

	t := &tesseract{clients: make(chan *gosseract.Client, opts.PoolSize)}
	for range opts.PoolSize {
		client := gosseract.NewClient()
		t.all = append(t.all, client)

		if opts.Tessdata != "" {
			if err := client.SetTessdataPrefix(opts.Tessdata); err != nil {
				t.Close()
				return nil, fmt.Errorf("setting tessdata path: %w", err)
			}
		}
		if err := client.SetLanguage(lang); err != nil {
			t.Close()
			return nil, fmt.Errorf("setting language: %w", err)
		}
		if err := client.SetPageSegMode(mode); err != nil {
			t.Close()
			return nil, fmt.Errorf("setting page segmentation mode: %w", err)
		}
		t.clients <- client
	}
	return t, nil
}

// Recognize blocks until a pooled client is free
func (t *tesseract) Recognize(img image.Image) ([]Region, error) {
	data, err := EncodePNG(img)
	if err != nil {
		return nil, err
	}

	client := <-t.clients
	defer func() { t.clients <- client }()

	if err := client.SetImageFromBytes(data); err != nil {
		return nil, fmt.Errorf("setting image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("reading text lines: %w", err)
	}

	regions := make([]Region, 0, len(boxes))
	for _, box := range boxes {
		text := strings.TrimSpace(box.Word)
		if text == "" {
			continue
		}
		regions = append(regions, Region{
			Text:    text,
			Score:   clamp(box.Confidence/100.0, 0, 1),
			Polygon: RectPolygon(box.Box),
		})
	}
	return regions, nil
}

func (t *tesseract) Close() error {
	var errs []error
	for _, client := range t.all {
		if err := client.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	t.all = nil
	return errors.Join(errs...)
}
