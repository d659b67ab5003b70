// Package extract normalizes raw vision/OCR backend responses into canonical
// receipt data. Two backend shapes are supported: a structured JSON payload
// from a generative-vision model, and a plain text blob from a classic OCR
// engine. Both normalize to the same ExtractedData contract.
package extract

import (
	"encoding/json"
	"errors"
	"time"
)

// ErrBackendUnavailable indicates the extraction backend could not be
// reached or returned an error. The receipt must be marked FAILED; the
// normalizer never fabricates a non-zero total.
var ErrBackendUnavailable = errors.New("extraction backend unavailable")

// ErrUnparsableResponse indicates the backend responded but its payload
// could not be parsed at all.
var ErrUnparsableResponse = errors.New("unparsable extraction response")

// LineItem is one purchased item on a receipt.
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// ExtractedData is the normalized output of one extraction. It is consumed
// immediately to update a receipt and never stored standalone.
type ExtractedData struct {
	Merchant      string     `json:"merchant"`
	Date          time.Time  `json:"date"`
	Total         float64    `json:"total"`
	Tax           float64    `json:"tax"`
	Subtotal      *float64   `json:"subtotal"`
	Items         []LineItem `json:"items"`
	PaymentMethod *string    `json:"paymentMethod"`
	RawText       string     `json:"rawText"`
}

// Payload serializes the record for persistence alongside the receipt, with
// the date as an ISO-8601 string (null when absent).
func (d ExtractedData) Payload() ([]byte, error) {
	var date *string
	if !d.Date.IsZero() {
		s := d.Date.UTC().Format(time.RFC3339)
		date = &s
	}
	items := d.Items
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(map[string]any{
		"merchant":      d.Merchant,
		"date":          date,
		"total":         d.Total,
		"tax":           d.Tax,
		"subtotal":      d.Subtotal,
		"items":         items,
		"paymentMethod": d.PaymentMethod,
		"rawText":       d.RawText,
	})
}

// Defaults returns the safe all-defaults record used when no extraction
// backend is configured. Merchant and date stay empty so the merge layer
// keeps whatever the user entered at upload.
func Defaults() ExtractedData {
	return ExtractedData{Items: []LineItem{}}
}
