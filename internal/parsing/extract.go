package parsing

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const merchantSearchLines = 6

var (
	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{2}[/\-]\d{2}[/\-]\d{2,4}`),
		regexp.MustCompile(`\d{4}[/\-]\d{2}[/\-]\d{2}`),
	}

	qtyPattern     = regexp.MustCompile(`(?i)(?:x\s*(\d+)|(\d+)\s*x)`)
	nonNameChars   = regexp.MustCompile(`[^A-Za-zÁÉÍÓÚÜÑáéíóúüñ ]`)
	letterPattern  = regexp.MustCompile(`[A-Za-zÁÉÍÓÚÜÑáéíóúüñ]`)
	nameTrimCutset = " -:"
)

// Item is a purchased line item
type Item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Qty   int     `json:"qty"`
}

// Fields contains the structured data extracted from receipt lines
type Fields struct {
	Merchant *string  `json:"merchant"`
	Date     *string  `json:"date"`
	Total    *float64 `json:"total"`
	Items    []Item   `json:"items"`
	RawText  []string `json:"raw_text"`
}

// Extract converts ordered recognized lines into receipt fields.
// Unparsable dates and amounts leave the corresponding field absent.
func Extract(lines []string) *Fields {
	cleaned := CleanLines(lines)
	tagged := make([]Line, len(cleaned))
	for i, text := range cleaned {
		tagged[i] = Classify(text)
	}

	return &Fields{
		Merchant: findMerchant(cleaned),
		Date:     findDate(cleaned),
		Total:    findTotal(tagged),
		Items:    findItems(tagged),
		RawText:  cleaned,
	}
}

func findDate(lines []string) *string {
	for _, line := range lines {
		for _, pattern := range datePatterns {
			if match := pattern.FindString(line); match != "" {
				return &match
			}
		}
	}
	return nil
}

// findTotal returns the largest amount on the receipt.
// Total-like and ordinary lines feed the same candidate list.
func findTotal(lines []Line) *float64 {
	var (
		best  float64
		found bool
	)
	for _, line := range lines {
		for _, raw := range FindAmounts(line.Text) {
			value, ok := NormalizeAmount(raw)
			if !ok {
				continue
			}
			if !found || value > best {
				best = value
				found = true
			}
		}
	}
	if !found {
		return nil
	}
	return &best
}

func findMerchant(lines []string) *string {
	if len(lines) > merchantSearchLines {
		lines = lines[:merchantSearchLines]
	}
	for _, line := range lines {
		name := strings.TrimSpace(nonNameChars.ReplaceAllString(line, ""))
		if utf8.RuneCountInString(name) >= 3 {
			return &name
		}
	}
	return nil
}

// findItems walks the lines once holding at most one pending name.
// A name-only line followed by another name-only line loses the first.
func findItems(lines []Line) []Item {
	items := []Item{}
	var pending string

	for _, line := range lines {
		if line.Skippable() {
			pending = ""
			continue
		}

		qtyToken, qty := extractQty(line.Text)
		price, hasPrice := extractPrice(line.Text)

		if hasPrice {
			if name := namePart(line.Text, qtyToken); name != "" && !isNumeric(name) {
				items = append(items, Item{Name: name, Price: price, Qty: qty})
				pending = ""
				continue
			}
		}

		if pending != "" && hasPrice {
			items = append(items, Item{Name: pending, Price: price, Qty: qty})
			pending = ""
			continue
		}

		if letterPattern.MatchString(line.Text) {
			pending = line.Text
		} else {
			pending = ""
		}
	}

	return items
}

// extractQty returns the matched quantity token and its value, 1 when absent
func extractQty(line string) (string, int) {
	m := qtyPattern.FindStringSubmatch(line)
	if m == nil {
		return "", 1
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	qty, err := strconv.Atoi(raw)
	if err != nil || qty < 1 {
		return m[0], 1
	}
	return m[0], qty
}

func extractPrice(line string) (float64, bool) {
	raw := amountPattern.FindString(line)
	if raw == "" {
		return 0, false
	}
	return NormalizeAmount(raw)
}

// namePart removes amounts and the quantity token from line
func namePart(line, qtyToken string) string {
	name := amountPattern.ReplaceAllString(line, "")
	if qtyToken != "" {
		name = strings.Replace(name, qtyToken, "", 1)
	}
	name = strings.Join(strings.Fields(name), " ")
	return strings.Trim(name, nameTrimCutset)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
