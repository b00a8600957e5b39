package types

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SompiPerKaspa is the number of base units in one KAS.
const SompiPerKaspa = 100_000_000

// kaspaDecimals is the number of fractional digits of a KAS amount.
const kaspaDecimals = 8

// KaspaToSompi parses a decimal KAS amount ("1.5", "0.00000001") into sompi.
func KaspaToSompi(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" && !hasFrac {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if len(frac) > kaspaDecimals {
		return 0, fmt.Errorf("amount %q has more than %d decimals", s, kaspaDecimals)
	}

	var w uint64
	if whole != "" {
		v, err := strconv.ParseUint(whole, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		w = v
	}
	if w > math.MaxUint64/SompiPerKaspa {
		return 0, fmt.Errorf("amount %q overflows", s)
	}

	var f uint64
	if frac != "" {
		padded := frac + strings.Repeat("0", kaspaDecimals-len(frac))
		v, err := strconv.ParseUint(padded, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
		f = v
	}

	total := w * SompiPerKaspa
	if total > math.MaxUint64-f {
		return 0, fmt.Errorf("amount %q overflows", s)
	}
	return total + f, nil
}

// SompiToKaspa formats a sompi amount as a decimal KAS string with
// trailing zeros trimmed ("150000000" -> "1.5").
func SompiToKaspa(sompi uint64) string {
	whole := sompi / SompiPerKaspa
	frac := sompi % SompiPerKaspa
	if frac == 0 {
		return strconv.FormatUint(whole, 10)
	}
	fs := fmt.Sprintf("%08d", frac)
	return strconv.FormatUint(whole, 10) + "." + strings.TrimRight(fs, "0")
}
