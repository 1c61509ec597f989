package documents

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

const (
	currencySymbol = "£"
	dateLayout     = "02/01/2006"
)

// FormatCurrency renders a sterling amount rounded to pence with thousands grouping, e.g. £2,500.00.
func FormatCurrency(amount decimal.Decimal) string {
	return formatMoney(amount, 2)
}

// FormatPerShare renders a per-share amount, keeping up to four decimal places when pence are not exact.
func FormatPerShare(amount decimal.Decimal) string {
	if amount.Equal(amount.Round(2)) {
		return formatMoney(amount, 2)
	}
	return formatMoney(amount, 4)
}

// FormatDate renders t as DD/MM/YYYY.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// FormatShares renders a share count with thousands grouping.
func FormatShares(n int64) string {
	return humanize.Comma(n)
}

func formatMoney(amount decimal.Decimal, places int32) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}
	fixed := amount.StringFixed(places)
	whole, frac, _ := strings.Cut(fixed, ".")
	grouped := humanize.Comma(decimal.RequireFromString(whole).IntPart())
	return sign + currencySymbol + grouped + "." + frac
}
