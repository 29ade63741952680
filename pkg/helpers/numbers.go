package helpers

import (
	"fmt"
	"strconv"
	"strings"
)

// NumberFormat formats a number with decimals (equivalent to PHP's number_format)
func NumberFormat(num float64, decimals int) string {
	format := "%." + strconv.Itoa(decimals) + "f"
	return fmt.Sprintf(format, num)
}

// NumberFormatWithSeparator formats a number with thousand separators and decimals
func NumberFormatWithSeparator(num float64, decimals int, decPoint, thousandsSep string) string {
	formatted := NumberFormat(num, decimals)

	parts := strings.Split(formatted, ".")
	intPart := parts[0]

	negative := strings.HasPrefix(intPart, "-")
	if negative {
		intPart = intPart[1:]
	}

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(thousandsSep)
		}
		b.WriteRune(r)
	}

	out := b.String()
	if negative {
		out = "-" + out
	}
	if len(parts) > 1 && decimals > 0 {
		out += decPoint + parts[1]
	}
	return out
}
