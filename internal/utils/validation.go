package utils

import (
	"regexp"
	"strings"
)

// Indian vehicle registration: state code + district code + series + number,
// e.g. MH02AB1234 or KA01A1234.
var vehicleNumberRegex = regexp.MustCompile(`^[A-Z]{2}[0-9]{1,2}[A-Z]{1,2}[0-9]{4}$`)

func IsValidVehicleNumber(number string) bool {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(number), " ", ""))
	return vehicleNumberRegex.MatchString(normalized)
}

func NormalizeVehicleNumber(number string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(number), " ", ""))
}
