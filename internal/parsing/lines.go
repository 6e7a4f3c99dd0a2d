package parsing

import (
	"strings"
)

// totalHints mark lines that state a monetary total
var totalHints = []string{
	"total",
	"importe",
	"a pagar",
	"pagar",
	"subtotal",
	"sum",
	"amount",
}

// noiseHints mark shipping, order metadata, tax, discount and policy lines
var noiseHints = []string{
	"gastos de envio",
	"envio",
	"envíos",
	"entrega",
	"pedido",
	"articulo",
	"artículo",
	"uds",
	"unidad",
	"unidades",
	"iva",
	"impuesto",
	"descuento",
	"politica",
	"política",
}

var currencyGlyphs = strings.NewReplacer("€", "", "$", "")

// Line is a cleaned receipt line with its keyword tags
type Line struct {
	Text  string
	Lower string

	// Noise is set when the line matches a shipping/tax/policy hint.
	Noise bool
	// TotalLike is set when the line matches a total hint.
	TotalLike bool
}

// Skippable reports whether the line can never be a purchasable item.
// Total-like lines are skipped too, their amounts still count as total candidates.
func (l Line) Skippable() bool {
	return l.Noise || l.TotalLike
}

// CleanLine strips currency glyphs and collapses whitespace
func CleanLine(line string) string {
	line = currencyGlyphs.Replace(line)
	return strings.Join(strings.Fields(line), " ")
}

// CleanLines cleans every line and drops the ones left empty, keeping order
func CleanLines(lines []string) []string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if c := CleanLine(line); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	return cleaned
}

// Classify tags an already-cleaned line
func Classify(text string) Line {
	lower := strings.ToLower(text)
	return Line{
		Text:      text,
		Lower:     lower,
		Noise:     containsAny(lower, noiseHints),
		TotalLike: containsAny(lower, totalHints),
	}
}

func containsAny(s string, hints []string) bool {
	for _, hint := range hints {
		if strings.Contains(s, hint) {
			return true
		}
	}
	return false
}
