package obfuscator

import (
	"strconv"
	"strings"
	"unicode"

	"tiermask/internal/masking/masker"
	"tiermask/pkg/domain"
)

// Normalize maps equivalent spellings of a value to one canonical form.
// Values that do not parse for their type are trimmed and used as-is.
func Normalize(dataType, raw string) string {
	trimmed := strings.TrimSpace(raw)

	switch domain.DataType(dataType) {
	case domain.DataTypeEmail:
		return strings.ToLower(trimmed)
	case domain.DataTypePhone:
		return strings.Map(func(r rune) rune {
			if r >= '0' && r <= '9' {
				return r
			}
			return -1
		}, trimmed)
	case domain.DataTypeIBAN:
		if v, ok := masker.NormalizeIBAN(trimmed); ok {
			return v
		}
	case domain.DataTypePlate:
		if v, ok := masker.NormalizePlate(trimmed); ok {
			return v
		}
	case domain.DataTypeVIN:
		if v, ok := masker.NormalizeVIN(trimmed); ok {
			return v
		}
	case domain.DataTypeIP:
		if addr, ok := masker.ParseIP(trimmed); ok {
			return addr.String()
		}
	case domain.DataTypeName:
		return strings.Join(strings.FieldsFunc(strings.ToLower(trimmed), unicode.IsSpace), " ")
	case domain.DataTypeWallet:
		if strings.HasPrefix(trimmed, "0x") || strings.HasPrefix(trimmed, "0X") {
			return "0x" + strings.ToLower(trimmed[2:])
		}
	case domain.DataTypeAmount:
		if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return trimmed
}
