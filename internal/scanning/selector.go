package scanning

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// LanguageAuto selects between AutoLanguages by confidence
const LanguageAuto = "auto"

// AutoLanguages are tried in order when the language is automatic; the first wins ties
var AutoLanguages = []string{"es", "en"}

const (
	variantOriginal     = "original"
	variantPreprocessed = "preprocessed"
)

// ImagePreprocessor produces the enhanced image variant
type ImagePreprocessor interface {
	Apply(img image.Image) image.Image
}

// SelectorConfig configures pass selection
type SelectorConfig struct {
	// Language is LanguageAuto or a single language code.
	Language      string
	Preprocess    bool
	MinConfidence float64
}

// Selection is the pass trusted for field extraction
type Selection struct {
	Lines        []string
	Confidence   float64
	Language     string
	Preprocessed bool

	// Variant is the preprocessed image, nil when preprocessing is disabled.
	Variant image.Image
}

// Selector runs candidate recognition passes and picks the best one
type Selector struct {
	engines      *Registry
	preprocessor ImagePreprocessor
	config       SelectorConfig
}

// NewSelector creates a Selector
func NewSelector(engines *Registry, preprocessor ImagePreprocessor, config SelectorConfig) *Selector {
	if config.Language == "" {
		config.Language = LanguageAuto
	}
	return &Selector{
		engines:      engines,
		preprocessor: preprocessor,
		config:       config,
	}
}

// Languages returns the language hints a request will try
func (s *Selector) Languages() []string {
	if s.config.Language == LanguageAuto {
		return AutoLanguages
	}
	return []string{s.config.Language}
}

// ChoosePreprocessed reports whether the preprocessed pass should replace the
// original one. It must be at least as confident and have at least as many lines.
func ChoosePreprocessed(original, preprocessed PassResult) bool {
	return preprocessed.Confidence >= original.Confidence &&
		len(preprocessed.Lines) >= len(original.Lines)
}

// ChooseLanguage returns the index of the most confident candidate; earlier candidates win ties
func ChooseLanguage(candidates []PassResult) int {
	best := 0
	for i := 1; i < len(candidates); i++ {
		if candidates[i].Confidence > candidates[best].Confidence {
			best = i
		}
	}
	return best
}

type passJob struct {
	language string
	variant  string
	img      image.Image
	result   PassResult
}

// Select runs every language and image variant combination concurrently and
// returns the winning pass. Engine calls that already started always run to
// completion; ctx is only checked before a pass starts.
func (s *Selector) Select(ctx context.Context, img image.Image) (*Selection, error) {
	var variant image.Image
	if s.config.Preprocess && s.preprocessor != nil {
		variant = s.preprocessor.Apply(img)
	}

	languages := s.Languages()
	jobs := make([]*passJob, 0, 2*len(languages))
	for _, language := range languages {
		jobs = append(jobs, &passJob{language: language, variant: variantOriginal, img: img})
		if variant != nil {
			jobs = append(jobs, &passJob{language: language, variant: variantPreprocessed, img: variant})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return s.run(job)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	winners := make([]PassResult, 0, len(languages))
	preprocessed := make([]bool, 0, len(languages))
	for i := range languages {
		result, usePre := s.pick(jobs, languages[i])
		winners = append(winners, result)
		preprocessed = append(preprocessed, usePre)
	}

	best := ChooseLanguage(winners)
	selection := &Selection{
		Lines:        winners[best].Lines,
		Confidence:   winners[best].Confidence,
		Language:     languages[best],
		Preprocessed: preprocessed[best],
		Variant:      variant,
	}

	label := variantOriginal
	if selection.Preprocessed {
		label = variantPreprocessed
	}
	selections.WithLabelValues(selection.Language, label).Inc()
	slog.Debug("Selected recognition pass",
		"language", selection.Language,
		"variant", label,
		"lines", len(selection.Lines),
		"confidence", selection.Confidence,
	)
	return selection, nil
}

func (s *Selector) run(job *passJob) error {
	engine, err := s.engines.Get(job.language)
	if err != nil {
		return err
	}

	start := time.Now()
	result, err := RunPass(engine, job.img, s.config.MinConfidence)
	passDuration.WithLabelValues(job.language, job.variant).Observe(time.Since(start).Seconds())
	if err != nil {
		passErrors.WithLabelValues(job.language, job.variant).Inc()
		return fmt.Errorf("%s pass for %s: %w", job.variant, job.language, err)
	}
	job.result = result
	return nil
}

// pick applies the preprocessing rule for one language
func (s *Selector) pick(jobs []*passJob, language string) (PassResult, bool) {
	var original, preprocessed *passJob
	for _, job := range jobs {
		if job.language != language {
			continue
		}
		switch job.variant {
		case variantOriginal:
			original = job
		case variantPreprocessed:
			preprocessed = job
		}
	}
	if preprocessed != nil && ChoosePreprocessed(original.result, preprocessed.result) {
		return preprocessed.result, true
	}
	return original.result, false
}
