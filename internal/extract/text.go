package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reMerchantCaps    = regexp.MustCompile(`^([A-Z][A-Z\s&]+)`)
	reMerchantKeyword = regexp.MustCompile(`(?i)(STORE|SHOP|MARKET|RESTAURANT|CAFE|GAS|STATION)`)

	reDateSlash = regexp.MustCompile(`(\d{1,2}/\d{1,2}/\d{2,4})`)
	reDateDash  = regexp.MustCompile(`(\d{1,2}-\d{1,2}-\d{2,4})`)
	reDateISO   = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)

	reTotalLabel  = regexp.MustCompile(`(?i)TOTAL[:\s]+\$?(\d+\.\d{2})`)
	reAmountLabel = regexp.MustCompile(`(?i)AMOUNT[:\s]+\$?(\d+\.\d{2})`)
	reTotalSuffix = regexp.MustCompile(`(?i)\$(\d+\.\d{2})\s*TOTAL`)

	reTaxLabel      = regexp.MustCompile(`(?i)TAX[:\s]+\$?(\d+\.\d{2})`)
	reSalesTaxLabel = regexp.MustCompile(`(?i)SALES\s+TAX[:\s]+\$?(\d+\.\d{2})`)
	reSubtotalLabel = regexp.MustCompile(`(?i)SUBTOTAL[:\s]+\$?(\d+\.\d{2})`)

	reItemLine    = regexp.MustCompile(`^(.+?)\s+\$?(\d+\.\d{2})`)
	reItemExclude = regexp.MustCompile(`(?i)TOTAL|TAX|SUBTOTAL|CHANGE`)

	rePayment = regexp.MustCompile(`(?i)(CASH|CREDIT|DEBIT|VISA|MASTERCARD|AMEX|DISCOVER)`)
)

// FromText heuristically derives receipt fields from a raw OCR text blob.
// This path never fails; a text with no detectable date reports a zero date
// and the caller supplies the fallback.
func FromText(text string) ExtractedData {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	out := ExtractedData{
		Merchant: parseMerchant(text, lines),
		Date:     parseTextDate(text),
		Items:    []LineItem{},
		RawText:  text,
	}

	// First pattern to match wins, for total and tax alike.
	for _, re := range []*regexp.Regexp{reTotalLabel, reAmountLabel, reTotalSuffix} {
		if m := re.FindStringSubmatch(text); m != nil {
			out.Total = mustFloat(m[1])
			break
		}
	}
	for _, re := range []*regexp.Regexp{reTaxLabel, reSalesTaxLabel} {
		if m := re.FindStringSubmatch(text); m != nil {
			out.Tax = mustFloat(m[1])
			break
		}
	}
	if m := reSubtotalLabel.FindStringSubmatch(text); m != nil {
		sub := mustFloat(m[1])
		out.Subtotal = &sub
	}

	for _, line := range lines {
		m := reItemLine.FindStringSubmatch(line)
		if m == nil || reItemExclude.MatchString(line) {
			continue
		}
		out.Items = append(out.Items, LineItem{
			Name:     strings.TrimSpace(m[1]),
			Price:    mustFloat(m[2]),
			Quantity: 1,
		})
	}

	if m := rePayment.FindStringSubmatch(text); m != nil {
		pm := strings.ToUpper(m[1])
		out.PaymentMethod = &pm
	}

	return out
}

func parseMerchant(text string, lines []string) string {
	if m := reMerchantCaps.FindStringSubmatch(text); m != nil {
		if s := strings.TrimSpace(m[1]); s != "" {
			return s
		}
	}
	if m := reMerchantKeyword.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	if len(lines) > 0 {
		return strings.TrimSpace(lines[0])
	}
	return "Unknown"
}

func parseTextDate(text string) time.Time {
	for _, re := range []*regexp.Regexp{reDateSlash, reDateDash, reDateISO} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if t := parseDate(m[1]); !t.IsZero() {
			return t
		}
	}
	return time.Time{}
}

func mustFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
