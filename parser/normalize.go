package parser

import (
	"fmt"
	"strings"
)

// NormalizeDate converts "2024/1/5" or "2024-1-5" to "2024-01-05".
func NormalizeDate(date string) (string, error) {
	date = strings.ReplaceAll(strings.TrimSpace(date), "/", "-")
	parts := strings.Split(date, "-")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return "", fmt.Errorf("invalid end date %q: want YYYY-MM-DD", date)
	}
	return fmt.Sprintf("%s-%s-%s", parts[0], padTwo(parts[1]), padTwo(parts[2])), nil
}

// NormalizePrice strips currency marks and digit grouping.
func NormalizePrice(price string) string {
	price = strings.TrimSpace(price)
	price = strings.NewReplacer("円", "", "¥", "", "￥", "", ",", "").Replace(price)
	return strings.TrimSpace(price)
}

// NormalizeRelist returns the auto-relist count when it is one the sell
// form accepts (1-3).
func NormalizeRelist(count string) (string, bool) {
	count = strings.TrimSpace(count)
	switch count {
	case "1", "2", "3":
		return count, true
	default:
		return "", false
	}
}

func padTwo(s string) string {
	if len(s) == 1 {
		return "0" + s
	}
	return s
}
