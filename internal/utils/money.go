package utils

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// inrPrinter formats grouped numbers for Indian English (lakh/crore style
// digit grouping, e.g. 1,23,456).
var inrPrinter = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders an amount held in paise as a rupee string for receipts
// and UI badges, e.g. 12345 → "₹123.45".
func FormatINR(paise int64) string {
	sign := ""
	if paise < 0 {
		sign = "-"
		paise = -paise
	}
	return inrPrinter.Sprintf("%s₹%d.%02d", sign, paise/100, paise%100)
}
