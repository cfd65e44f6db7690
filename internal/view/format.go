package view

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// NotAvailable is shown for missing values.
const NotAvailable = "N/A"

var currencySymbols = map[string]string{
	"MXN": "$",
	"USD": "$",
	"EUR": "€",
}

// Formatter renders numbers, money and dates for one locale.
type Formatter struct {
	tag      language.Tag
	printer  *message.Printer
	unit     currency.Unit
	date     string
	dateTime string
}

// NewFormatter builds a Formatter for locale (a BCP 47 tag such as
// "es-MX"). An empty code picks the locale's own currency.
func NewFormatter(locale, code string) (*Formatter, error) {
	tag, err := language.Parse(locale)
	if err != nil {
		return nil, fmt.Errorf("parsing locale %q: %w", locale, err)
	}

	var unit currency.Unit
	if code == "" {
		u, conf := currency.FromTag(tag)
		if conf == language.No {
			return nil, fmt.Errorf("no currency for locale %q", locale)
		}
		unit = u
	} else {
		unit, err = currency.ParseISO(code)
		if err != nil {
			return nil, fmt.Errorf("parsing currency %q: %w", code, err)
		}
	}

	f := &Formatter{
		tag:      tag,
		printer:  message.NewPrinter(tag),
		unit:     unit,
		date:     "2006-01-02",
		dateTime: "2006-01-02 15:04:05",
	}
	switch base, _ := tag.Base(); base.String() {
	case "es":
		f.date, f.dateTime = "2/1/2006", "2/1/2006, 15:04:05"
	case "en":
		f.date, f.dateTime = "1/2/2006", "1/2/2006, 3:04:05 PM"
	}
	return f, nil
}

// MustFormatter is NewFormatter for constant arguments.
func MustFormatter(locale, code string) *Formatter {
	f, err := NewFormatter(locale, code)
	if err != nil {
		panic(err)
	}
	return f
}

// Currency formats amount with the currency symbol and its standard
// number of decimals.
func (f *Formatter) Currency(amount float64) string {
	scale, _ := currency.Standard.Rounding(f.unit)
	sign := ""
	if amount < 0 {
		sign = "-"
	}
	symbol, ok := currencySymbols[f.unit.String()]
	if !ok {
		symbol = f.unit.String() + " "
	}
	return sign + symbol + f.printer.Sprint(number.Decimal(math.Abs(amount), number.Scale(scale)))
}

// Number formats v with locale digit grouping and no trailing zeros.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprint(number.Decimal(v))
}

// Date formats an ISO date or timestamp as a local date.
func (f *Formatter) Date(value string) string {
	t, ok := parseTime(value)
	if !ok {
		return orNA(value)
	}
	return t.Format(f.date)
}

// DateTime formats an ISO timestamp as a local date and time.
func (f *Formatter) DateTime(value string) string {
	t, ok := parseTime(value)
	if !ok {
		return orNA(value)
	}
	return t.Format(f.dateTime)
}

func parseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}
