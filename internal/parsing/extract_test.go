package parsing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Extract", func() {
	var (
		lines  []string
		fields *Fields
	)

	JustBeforeEach(func() {
		fields = Extract(lines)
	})

	When("extracting a supermarket receipt", func() {
		BeforeEach(func() {
			lines = []string{"SUPER MERCADO", "15/03/2024", "Leche x2 2.40", "Pan 1.10", "TOTAL 3.50"}
		})

		It("finds the merchant", func() {
			Expect(fields.Merchant).NotTo(BeNil())
			Expect(*fields.Merchant).To(Equal("SUPER MERCADO"))
		})

		It("finds the date", func() {
			Expect(fields.Date).NotTo(BeNil())
			Expect(*fields.Date).To(Equal("15/03/2024"))
		})

		It("takes the largest amount as total", func() {
			Expect(fields.Total).NotTo(BeNil())
			Expect(*fields.Total).To(BeNumerically("~", 3.50, 1e-9))
		})

		It("extracts the line items", func() {
			Expect(fields.Items).To(Equal([]Item{
				{Name: "Leche", Price: 2.40, Qty: 2},
				{Name: "Pan", Price: 1.10, Qty: 1},
			}))
		})

		It("keeps the cleaned lines", func() {
			Expect(fields.RawText).To(Equal(lines))
		})

		It("returns the same fields when run on its own raw text", func() {
			again := Extract(fields.RawText)
			Expect(again.Merchant).To(Equal(fields.Merchant))
			Expect(again.Date).To(Equal(fields.Date))
			Expect(again.Total).To(Equal(fields.Total))
			Expect(again.Items).To(Equal(fields.Items))
		})
	})

	When("a line is shipping noise", func() {
		BeforeEach(func() {
			lines = []string{"Gastos de envio 4.00", "1,50"}
		})

		It("never emits it as an item", func() {
			Expect(fields.Items).To(BeEmpty())
		})

		It("does not hold it as a pending name", func() {
			Expect(fields.Items).NotTo(ContainElement(HaveField("Name", "Gastos de envio 4.00")))
		})

		It("still counts its amount as a total candidate", func() {
			Expect(*fields.Total).To(BeNumerically("~", 4.00, 1e-9))
		})
	})

	When("no line has an amount", func() {
		BeforeEach(func() {
			lines = []string{"Tienda Central", "Gracias por su visita"}
		})

		It("has no total", func() {
			Expect(fields.Total).To(BeNil())
		})

		It("has no items", func() {
			Expect(fields.Items).NotTo(BeNil())
			Expect(fields.Items).To(BeEmpty())
		})

		It("still returns the raw text", func() {
			Expect(fields.RawText).To(Equal(lines))
		})
	})

	When("an item name and its price are on separate lines", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "Queso manchego", "x3 12,75"}
		})

		It("pairs the pending name with the price line", func() {
			Expect(fields.Items).To(ContainElement(Item{Name: "Queso manchego", Price: 12.75, Qty: 3}))
		})
	})

	When("two name-only lines precede a price line", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "Aceite", "Arroz bomba", "5,20"}
		})

		It("keeps only the most recent pending name", func() {
			Expect(fields.Items).To(Equal([]Item{{Name: "Arroz bomba", Price: 5.20, Qty: 1}}))
		})
	})

	When("a skippable line sits between a name and a price", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "Galletas", "IVA incluido", "2,00"}
		})

		It("drops the pending name", func() {
			Expect(fields.Items).To(BeEmpty())
		})
	})

	When("a numeric-only line follows a name", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "Cafe", "1234", "2,00"}
		})

		It("clears the pending name", func() {
			Expect(fields.Items).To(BeEmpty())
		})
	})

	When("digits near the price look like a quantity", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "Pixel Max 9.99", "Agua x1.50"}
		})

		It("reads them as the quantity pattern does", func() {
			Expect(fields.Items).To(Equal([]Item{
				{Name: "Pixel Max", Price: 9.99, Qty: 9},
				{Name: "Agua x", Price: 1.50, Qty: 1},
			}))
		})
	})

	When("amounts use mixed separators", func() {
		BeforeEach(func() {
			lines = []string{"Electro Hogar", "Televisor 1.234,56", "Cable 1,234.00"}
		})

		It("normalizes both conventions", func() {
			Expect(fields.Items).To(Equal([]Item{
				{Name: "Televisor", Price: 1234.56, Qty: 1},
				{Name: "Cable", Price: 1234.00, Qty: 1},
			}))
			Expect(*fields.Total).To(BeNumerically("~", 1234.56, 1e-9))
		})
	})

	When("the date uses the year-first form", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "Fecha 2024/03/15"}
		})

		It("lets the day-first pattern match inside it first", func() {
			Expect(*fields.Date).To(Equal("24/03/15"))
		})
	})

	When("several lines carry dates", func() {
		BeforeEach(func() {
			lines = []string{"Tienda", "01-02-24", "15/03/2024"}
		})

		It("keeps the first one", func() {
			Expect(*fields.Date).To(Equal("01-02-24"))
		})
	})

	When("the first lines have too few letters", func() {
		BeforeEach(func() {
			lines = []string{"#12", "A1", "--", "Kiosko Ñandú 24h"}
		})

		It("uses the first qualifying letters-only projection", func() {
			Expect(*fields.Merchant).To(Equal("Kiosko Ñandú h"))
		})
	})

	When("no qualifying merchant line is among the first six", func() {
		BeforeEach(func() {
			lines = []string{"1", "2", "3", "4", "5", "6", "Tienda"}
		})

		It("has no merchant", func() {
			Expect(fields.Merchant).To(BeNil())
		})
	})

	When("the input has blank and currency-only lines", func() {
		BeforeEach(func() {
			lines = []string{"  ", "Bar Pepe", "€", "Caña  1,80 €"}
		})

		It("drops them from the raw text", func() {
			Expect(fields.RawText).To(Equal([]string{"Bar Pepe", "Caña 1,80"}))
		})

		It("extracts the item from the cleaned line", func() {
			Expect(fields.Items).To(Equal([]Item{{Name: "Caña", Price: 1.80, Qty: 1}}))
		})
	})
})
