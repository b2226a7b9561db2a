package extract

import (
	"regexp"
	"strings"

	"github.com/cloo-solutions/askdocs/internal/domain"
)

var currencyCodes = []string{"USD", "EUR", "GBP", "INR", "CAD", "AUD"}

// Each field's patterns are tried in order; the first capture of the first match
// wins. Each pattern matches a whole labelled line.
var (
	shipmentIDPatterns = compileAll(
		`^\s*shipment\s*(?:id|no\.?|number)\s*[:#-]\s*(.+)$`,
		`^\s*reference\s*(?:id|no\.?|number)?\s*[:#-]\s*(.+)$`,
	)
	shipperPatterns = compileAll(
		`^\s*shipper\s*[:#-]\s*(.+)$`,
		`^\s*shipper\s*name\s*[:#-]\s*(.+)$`,
	)
	consigneePatterns = compileAll(
		`^\s*consignee\s*[:#-]\s*(.+)$`,
		`^\s*consignee\s*name\s*[:#-]\s*(.+)$`,
	)
	pickupPatterns = compileAll(
		`^\s*pickup\s*(?:date|datetime|time)\s*[:#-]\s*(.+)$`,
		`^\s*pickup\s*[:#-]\s*(.+)$`,
	)
	deliveryPatterns = compileAll(
		`^\s*delivery\s*(?:date|datetime|time)\s*[:#-]\s*(.+)$`,
		`^\s*delivery\s*[:#-]\s*(.+)$`,
	)
	equipmentPatterns = compileAll(
		`^\s*equipment\s*(?:type)?\s*[:#-]\s*(.+)$`,
		`^\s*trailer\s*(?:type)?\s*[:#-]\s*(.+)$`,
	)
	modePatterns = compileAll(
		`^\s*mode\s*[:#-]\s*(.+)$`,
		`^\s*service\s*level\s*[:#-]\s*(.+)$`,
	)
	weightPatterns = compileAll(
		`^\s*weight\s*[:#-]\s*(.+)$`,
		`^\s*total\s*weight\s*[:#-]\s*(.+)$`,
	)
	carrierPatterns = compileAll(
		`^\s*carrier\s*(?:name)?\s*[:#-]\s*(.+)$`,
	)
	ratePatterns = compileAll(
		`^\s*rate\s*[:#-]\s*(.+)$`,
		`^\s*freight\s*rate\s*[:#-]\s*(.+)$`,
	)

	amountPattern   = regexp.MustCompile(`([0-9]+(?:[.,][0-9]+)?)`)
	currencyMatcher = compileCurrencies(currencyCodes)
)

// ShipmentFields extracts freight fields from labelled lines such as
// "Shipper: Acme Corp" or "Rate: USD 1,250". Labels are matched without
// regard to case.
func ShipmentFields(text string) domain.Shipment {
	// CRLF input would otherwise leave \r in every captured value
	text = strings.ReplaceAll(text, "\r\n", "\n")

	rate, currency := rateAndCurrency(text)
	return domain.Shipment{
		ShipmentID:       firstMatch(text, shipmentIDPatterns),
		Shipper:          firstMatch(text, shipperPatterns),
		Consignee:        firstMatch(text, consigneePatterns),
		PickupDateTime:   firstMatch(text, pickupPatterns),
		DeliveryDateTime: firstMatch(text, deliveryPatterns),
		EquipmentType:    firstMatch(text, equipmentPatterns),
		Mode:             firstMatch(text, modePatterns),
		Rate:             rate,
		Currency:         currency,
		Weight:           firstMatch(text, weightPatterns),
		CarrierName:      firstMatch(text, carrierPatterns),
	}
}

func rateAndCurrency(text string) (*string, *string) {
	line := firstMatch(text, ratePatterns)
	if line == nil {
		return nil, nil
	}

	var currency *string
	for _, code := range currencyCodes {
		if currencyMatcher[code].MatchString(*line) {
			currency = strPtr(code)
			break
		}
	}
	if currency == nil {
		lower := strings.ToLower(*line)
		switch {
		case strings.Contains(*line, "$"):
			currency = strPtr("USD")
		case strings.Contains(lower, "eur"):
			currency = strPtr("EUR")
		case strings.Contains(lower, "gbp"):
			currency = strPtr("GBP")
		}
	}

	rate := *line
	if m := amountPattern.FindStringSubmatch(*line); m != nil {
		rate = m[1]
	}
	return strPtr(strings.TrimSpace(rate)), currency
}

func firstMatch(text string, patterns []*regexp.Regexp) *string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := strings.TrimSpace(m[1]); v != "" {
			return &v
		}
		return nil
	}
	return nil
}

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?im)` + p)
	}
	return out
}

func compileCurrencies(codes []string) map[string]*regexp.Regexp {
	out := make(map[string]*regexp.Regexp, len(codes))
	for _, c := range codes {
		out[c] = regexp.MustCompile(`(?i)\b` + c + `\b`)
	}
	return out
}

func strPtr(s string) *string {
	return &s
}
