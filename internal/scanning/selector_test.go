package scanning

import (
	"context"
	"errors"
	"fmt"
	"image"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const (
	originalWidth     = 10
	preprocessedWidth = 20
)

var _ = Describe("ChoosePreprocessed", func() {
	It("keeps the original when the preprocessed pass is less confident", func() {
		original := PassResult{Lines: make([]string, 3), Confidence: 0.9}
		preprocessed := PassResult{Lines: make([]string, 5), Confidence: 0.8}
		Expect(ChoosePreprocessed(original, preprocessed)).To(BeFalse())
	})

	It("keeps the original when the preprocessed pass has fewer lines", func() {
		original := PassResult{Lines: make([]string, 5), Confidence: 0.8}
		preprocessed := PassResult{Lines: make([]string, 3), Confidence: 0.9}
		Expect(ChoosePreprocessed(original, preprocessed)).To(BeFalse())
	})

	It("takes the preprocessed pass when it is at least as good on both", func() {
		original := PassResult{Lines: make([]string, 3), Confidence: 0.8}
		Expect(ChoosePreprocessed(original, PassResult{Lines: make([]string, 3), Confidence: 0.8})).To(BeTrue())
		Expect(ChoosePreprocessed(original, PassResult{Lines: make([]string, 4), Confidence: 0.85})).To(BeTrue())
	})
})

var _ = Describe("ChooseLanguage", func() {
	It("picks the most confident candidate", func() {
		Expect(ChooseLanguage([]PassResult{{Confidence: 0.7}, {Confidence: 0.9}})).To(Equal(1))
	})

	It("prefers the first candidate on ties", func() {
		Expect(ChooseLanguage([]PassResult{{Confidence: 0.8}, {Confidence: 0.8}})).To(Equal(0))
	})
})

var _ = Describe("Selector", func() {
	var (
		engines      map[string]*fakeEngine
		preprocessor *fakePreprocessor
		config       SelectorConfig
		ctx          context.Context
		img          image.Image
		selection    *Selection
		err          error
	)

	BeforeEach(func() {
		engines = map[string]*fakeEngine{
			"es": {results: map[int][]Region{}},
			"en": {results: map[int][]Region{}},
		}
		preprocessor = &fakePreprocessor{width: preprocessedWidth}
		config = SelectorConfig{Language: LanguageAuto, Preprocess: true, MinConfidence: DefaultMinConfidence}
		ctx = context.Background()
		img = image.NewGray(image.Rect(0, 0, originalWidth, 10))
	})

	JustBeforeEach(func() {
		registry := NewRegistry(func(language string) (Engine, error) {
			engine, ok := engines[language]
			if !ok {
				return nil, fmt.Errorf("unsupported language %q", language)
			}
			return engine, nil
		})
		selector := NewSelector(registry, preprocessor, config)
		selection, err = selector.Select(ctx, img)
	})

	When("the original pass beats the preprocessed one on confidence", func() {
		BeforeEach(func() {
			config.Language = "es"
			engines["es"].results[originalWidth] = regionsWith("o", 0.9, 0.9, 0.9)
			engines["es"].results[preprocessedWidth] = regionsWith("p", 0.8, 0.8, 0.8, 0.8, 0.8)
		})

		It("keeps the original pass", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(selection.Preprocessed).To(BeFalse())
			Expect(selection.Lines).To(Equal([]string{"oa", "ob", "oc"}))
			Expect(selection.Confidence).To(BeNumerically("~", 0.9, 1e-9))
			Expect(selection.Language).To(Equal("es"))
		})

		It("runs both variants once", func() {
			Expect(engines["es"].calls.Load()).To(BeEquivalentTo(2))
			Expect(preprocessor.calls.Load()).To(BeEquivalentTo(1))
		})

		It("never loads the other language", func() {
			Expect(engines["en"].calls.Load()).To(BeZero())
		})

		It("exposes the preprocessed variant", func() {
			Expect(selection.Variant).NotTo(BeNil())
			Expect(selection.Variant.Bounds().Dx()).To(Equal(preprocessedWidth))
		})
	})

	When("the preprocessed pass is at least as good", func() {
		BeforeEach(func() {
			config.Language = "es"
			engines["es"].results[originalWidth] = regionsWith("o", 0.7, 0.7)
			engines["es"].results[preprocessedWidth] = regionsWith("p", 0.8, 0.8)
		})

		It("uses the preprocessed pass", func() {
			Expect(selection.Preprocessed).To(BeTrue())
			Expect(selection.Lines).To(Equal([]string{"pa", "pb"}))
		})
	})

	When("the language is automatic", func() {
		BeforeEach(func() {
			engines["es"].results[originalWidth] = regionsWith("es", 0.6)
			engines["en"].results[originalWidth] = regionsWith("en", 0.9)
		})

		It("runs every language and variant", func() {
			Expect(engines["es"].calls.Load()).To(BeEquivalentTo(2))
			Expect(engines["en"].calls.Load()).To(BeEquivalentTo(2))
			Expect(preprocessor.calls.Load()).To(BeEquivalentTo(1))
		})

		It("picks the most confident language", func() {
			Expect(selection.Language).To(Equal("en"))
			Expect(selection.Lines).To(Equal([]string{"ena"}))
		})
	})

	When("both languages tie", func() {
		BeforeEach(func() {
			engines["es"].results[originalWidth] = regionsWith("es", 0.8)
			engines["en"].results[originalWidth] = regionsWith("en", 0.8)
		})

		It("prefers Spanish", func() {
			Expect(selection.Language).To(Equal("es"))
		})
	})

	When("preprocessing is disabled", func() {
		BeforeEach(func() {
			config.Language = "en"
			config.Preprocess = false
			engines["en"].results[originalWidth] = regionsWith("en", 0.8)
		})

		It("runs only the original pass", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(engines["en"].calls.Load()).To(BeEquivalentTo(1))
			Expect(preprocessor.calls.Load()).To(BeZero())
			Expect(selection.Variant).To(BeNil())
			Expect(selection.Preprocessed).To(BeFalse())
		})
	})

	When("no pass finds text", func() {
		BeforeEach(func() {
			config.Language = "es"
		})

		It("returns an empty selection", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(selection.Lines).To(BeEmpty())
			Expect(selection.Confidence).To(BeZero())
		})
	})

	When("an engine fails", func() {
		BeforeEach(func() {
			engines["en"].err = errors.New("model unavailable")
		})

		It("fails the selection", func() {
			Expect(err).To(MatchError(ContainSubstring("model unavailable")))
			Expect(selection).To(BeNil())
		})
	})

	When("an engine cannot be loaded", func() {
		BeforeEach(func() {
			config.Language = "pt"
		})

		It("returns the load error", func() {
			Expect(err).To(MatchError(ContainSubstring(`unsupported language "pt"`)))
		})
	})

	When("the context is already cancelled", func() {
		BeforeEach(func() {
			cancelled, cancel := context.WithCancel(context.Background())
			cancel()
			ctx = cancelled
		})

		It("does not start any pass", func() {
			Expect(err).To(MatchError(context.Canceled))
			Expect(engines["es"].calls.Load()).To(BeZero())
			Expect(engines["en"].calls.Load()).To(BeZero())
		})
	})
})
