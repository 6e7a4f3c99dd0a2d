package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("CleanLine", func() {
	It("removes currency glyphs", func() {
		Expect(CleanLine("Cafe 2,50 €")).To(Equal("Cafe 2,50"))
		Expect(CleanLine("$12.00 Tea")).To(Equal("12.00 Tea"))
	})

	It("collapses whitespace runs", func() {
		Expect(CleanLine("  Pan \t integral   1.10 ")).To(Equal("Pan integral 1.10"))
	})

	It("is idempotent", func() {
		once := CleanLine(" Leche  x2   2.40 € ")
		Expect(CleanLine(once)).To(Equal(once))
	})
})

var _ = Describe("CleanLines", func() {
	It("drops lines that are empty after cleaning and keeps order", func() {
		Expect(CleanLines([]string{"A", "   ", "€", "", "B  c"})).To(Equal([]string{"A", "B c"}))
	})

	It("returns an empty slice for no input", func() {
		Expect(CleanLines(nil)).NotTo(BeNil())
		Expect(CleanLines(nil)).To(BeEmpty())
	})
})

var _ = Describe("Classify", func() {
	When("the line is shipping noise", func() {
		It("tags it as noise only", func() {
			line := Classify("Gastos de envio 4.00")
			Expect(line.Noise).To(BeTrue())
			Expect(line.TotalLike).To(BeFalse())
			Expect(line.Skippable()).To(BeTrue())
		})
	})

	When("the line states a total", func() {
		It("tags it as total-like and skippable", func() {
			line := Classify("TOTAL 3.50")
			Expect(line.Lower).To(Equal("total 3.50"))
			Expect(line.TotalLike).To(BeTrue())
			Expect(line.Noise).To(BeFalse())
			Expect(line.Skippable()).To(BeTrue())
		})
	})

	When("the line has accented hints", func() {
		It("matches case-insensitively", func() {
			Expect(Classify("POLÍTICA DE DEVOLUCIÓN").Noise).To(BeTrue())
			Expect(Classify("IVA 21%").Noise).To(BeTrue())
		})
	})

	When("the line is an ordinary item", func() {
		It("is not skippable", func() {
			Expect(Classify("Pan 1.10").Skippable()).To(BeFalse())
		})
	})
})
