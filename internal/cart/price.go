package cart

import (
	"strings"

	"github.com/shopspring/decimal"
)

const CurrencySymbol = "₹"

// ParsePrice reads a display price such as "₹1,999.00". Every character other
// than a digit or '.' is dropped first, so thousands separators vanish and
// "1.999,00" reads as 1.99900. The longest leading decimal number wins; input
// with no digits parses as zero.
func ParsePrice(display string) decimal.Decimal {
	var b strings.Builder
	for _, r := range display {
		if (r >= '0' && r <= '9') || r == '.' {
			b.WriteRune(r)
		}
	}

	num := leadingNumber(b.String())
	if num == "" {
		return decimal.Zero
	}

	d, err := decimal.NewFromString(num)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func leadingNumber(s string) string {
	end, digits, dot := 0, 0, false
	for end < len(s) {
		c := s[end]
		if c == '.' {
			if dot {
				break
			}
			dot = true
		} else {
			digits++
		}
		end++
	}
	if digits == 0 {
		return ""
	}

	num := strings.TrimSuffix(s[:end], ".")
	if strings.HasPrefix(num, ".") {
		num = "0" + num
	}
	return num
}

// FormatPrice renders v with two decimals and the currency symbol.
func FormatPrice(v float64) string {
	return CurrencySymbol + decimal.NewFromFloat(v).StringFixed(2)
}
