package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// dateLayouts are tried in order for textual date fields. Spreadsheet
// sources mix ISO dates, full timestamps and locale exports freely.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
	"02/01/2006 15:04:05",
}

// ParseDate parses a date in any of the accepted layouts, falling back to
// 8-digit packed dates. Packed dates try YYYYMMDD first (unambiguous by
// century prefix), then DDMMYYYY, then MMDDYYYY.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}

	if len(s) == 8 && isDigits(s) {
		return parsePackedDate(s)
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parsePackedDate(s string) (time.Time, error) {
	if strings.HasPrefix(s, "19") || strings.HasPrefix(s, "20") {
		if t, err := time.Parse("20060102", s); err == nil {
			return t, nil
		}
	}
	if t, err := time.Parse("02012006", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("01022006", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized packed date %q", s)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// ParseAmount coerces a monetary field to a fixed-precision decimal.
// Thousands separators and currency symbols are stripped. Binary floating
// point never enters the pipeline.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "₦")
	s = strings.TrimPrefix(s, "NGN")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("amount %q: %w", s, err)
	}
	return d, nil
}

// ParseOptionalAmount is ParseAmount with blank treated as zero, for fee
// and commission columns that the source leaves empty.
func ParseOptionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return ParseAmount(s)
}

// MerchantID normalizes a merchant identifier for comparison. Spreadsheet
// round-trips through numeric cells leave a trailing ".0" on long IDs.
func MerchantID(s string) string {
	s = strings.TrimSpace(s)
	return strings.TrimSuffix(s, ".0")
}

// parseBool reads the reversal flag column. Absent or blank means not
// reversed.
func parseBool(s string) bool {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "Y", "YES", "1", "TRUE", "REVERSED", "RVSL":
		return true
	}
	return false
}
