package parsing

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// amountPattern matches grouped amounts with exactly two decimals, e.g. 1.234,56 or 12.50
var amountPattern = regexp.MustCompile(`\d{1,3}(?:[.,]\d{3})*[.,]\d{2}`)

// NormalizeAmount parses a locale-ambiguous amount string.
// When both separators are present the later one is the decimal point.
// A lone comma is treated as the decimal point.
func NormalizeAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, " ", "")
	if cleaned == "" {
		return 0, false
	}

	lastComma := strings.LastIndex(cleaned, ",")
	lastDot := strings.LastIndex(cleaned, ".")
	switch {
	case lastComma >= 0 && lastDot >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.ReplaceAll(cleaned, ",", ".")
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	default:
		cleaned = strings.ReplaceAll(cleaned, ",", ".")
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

// FindAmounts returns every amount-like substring in line, in order
func FindAmounts(line string) []string {
	return amountPattern.FindAllString(line, -1)
}
