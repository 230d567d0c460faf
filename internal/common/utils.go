package common

import "strconv"

// NotAvailable is shown in place of values a station did not report.
const NotAvailable = "N/A"

// FormatOptional renders v without trailing zeros, or NotAvailable when nil.
func FormatOptional(v *float64) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// FormatOptionalInt renders v, or NotAvailable when nil.
func FormatOptionalInt(v *int) string {
	if v == nil {
		return NotAvailable
	}
	return strconv.Itoa(*v)
}
