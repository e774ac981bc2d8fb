package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopperslink/variant-service/pkg/validator"
)

// ParseMoney converts a decimal amount such as "12.5" into minor units
// (1250). The amount must be non-negative with at most two decimals.
func ParseMoney(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if !validator.IsMoney(s) {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	whole, frac, _ := strings.Cut(s, ".")
	for len(frac) < 2 {
		frac += "0"
	}
	n, err := strconv.ParseInt(whole+frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return n, nil
}

// ParseStock converts a stock quantity.
func ParseStock(s string) (int, error) {
	s = strings.TrimSpace(s)
	if !validator.IsQuantity(s) {
		return 0, fmt.Errorf("invalid stock %q", s)
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid stock %q: %w", s, err)
	}
	return n, nil
}
