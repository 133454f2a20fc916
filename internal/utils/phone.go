package utils

import (
	"regexp"
	"strings"
)

var (
	nonDigits       = regexp.MustCompile(`[^\d]`)
	localPhoneRegex = regexp.MustCompile(`^[6-9]\d{9}$`)
)

// NormalizePhone reduces any accepted input ("+91 98765 43210", "098765-43210",
// "9876543210") to the 10-digit local subscriber number stored on contacts.
// Returns "" when the input cannot be reduced to a valid local number.
func NormalizePhone(phone string) string {
	digits := nonDigits.ReplaceAllString(phone, "")

	// Strip country code and trunk prefix.
	if len(digits) == 12 && strings.HasPrefix(digits, "91") {
		digits = digits[2:]
	}
	if len(digits) == 11 && strings.HasPrefix(digits, "0") {
		digits = digits[1:]
	}

	if !localPhoneRegex.MatchString(digits) {
		return ""
	}
	return digits
}

func IsValidPhone(phone string) bool {
	return NormalizePhone(phone) != ""
}
