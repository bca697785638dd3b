// Package core provides amount parsing and formatting utilities.
//
// Amounts are whole toman stored as int64. Chat input mixes Persian and
// Latin digits and spells out multipliers ("215 هزار", "2.5 میلیون").
package core

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// Currency is appended to every formatted amount.
const Currency = "تومان"

var multipliers = map[string]int64{
	"هزار":     1_000,
	"هزارتومن": 1_000,
	"k":        1_000,
	"thousand": 1_000,
	"میلیون":   1_000_000,
	"ملیون":    1_000_000,
	"m":        1_000_000,
	"million":  1_000_000,
	"میلیارد":  1_000_000_000,
	"billion":  1_000_000_000,
}

var amountPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(هزارتومن|هزار|میلیون|ملیون|میلیارد|(?:thousand|million|billion|k|m)\b)?`)

var digitReplacer = strings.NewReplacer(
	"۰", "0", "۱", "1", "۲", "2", "۳", "3", "۴", "4",
	"۵", "5", "۶", "6", "۷", "7", "۸", "8", "۹", "9",
	"٠", "0", "١", "1", "٢", "2", "٣", "3", "٤", "4",
	"٥", "5", "٦", "6", "٧", "7", "٨", "8", "٩", "9",
	"٫", ".", "٬", "",
)

// NormalizeDigits rewrites Persian and Arabic-Indic digits as ASCII digits.
func NormalizeDigits(s string) string {
	return digitReplacer.Replace(s)
}

// ParseAmount extracts the first amount phrase from s.
//
// Examples:
//
//	ParseAmount("215 هزار")      -> 215000
//	ParseAmount("2.5 میلیون")    -> 2500000
//	ParseAmount("۵۰,۰۰۰ تومان") -> 50000
func ParseAmount(s string) (int64, error) {
	s = NormalizeDigits(strings.TrimSpace(s))
	for {
		joined := groupSeparators.ReplaceAllString(s, "$1$2")
		if joined == s {
			break
		}
		s = joined
	}
	m := amountPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, ErrInvalidAmount
	}
	num := strings.ReplaceAll(m[1], ",", ".")
	d, err := decimal.NewFromString(num)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if mul, ok := multipliers[strings.ToLower(m[2])]; ok {
		d = d.Mul(decimal.NewFromInt(mul))
	}
	v := d.Round(0).IntPart()
	if v <= 0 {
		return 0, ErrInvalidAmount
	}
	return v, nil
}

// groupSeparators joins thousands groups such as "50,000" before parsing.
var groupSeparators = regexp.MustCompile(`(\d),(\d{3})`)

// FormatAmount renders an amount with thousands separators ("215,000").
func FormatAmount(v int64) string {
	return humanize.Comma(v)
}

// FormatToman renders an amount followed by the currency name.
func FormatToman(v int64) string {
	return humanize.Comma(v) + " " + Currency
}
