// Package masker applies a policy.RevealSpec to a raw value.
//
// Every function here is pure. Input that does not have the shape its data
// type claims degrades to the spec's whole-value mask token; nothing in this
// package returns an error or reveals more of a value than the spec allows.
package masker

import (
	"unicode/utf8"

	"tiermask/internal/masking/policy"
	"tiermask/pkg/domain"
)

// Output is the result of masking one value.
type Output struct {
	Value string
	// Revealed is true when the raw value was returned unmodified.
	Revealed bool
	// Malformed is true when the value did not parse as its data type and
	// the mask token was returned instead.
	Malformed bool
}

// Apply masks value for dt under spec. It never panics.
func Apply(value string, dt domain.DataType, spec policy.RevealSpec) (out Output) {
	defer func() {
		if r := recover(); r != nil {
			out = Output{Value: spec.MaskToken, Malformed: true}
		}
	}()

	if spec.Exact {
		return Output{Value: value, Revealed: true}
	}

	var (
		masked string
		ok     bool
	)
	switch dt {
	case domain.DataTypeEmail:
		masked, ok = maskEmail(value, spec)
	case domain.DataTypePhone:
		masked, ok = maskPhone(value, spec)
	case domain.DataTypeIBAN:
		masked, ok = maskIBAN(value, spec)
	case domain.DataTypeName:
		masked, ok = maskName(value, spec)
	case domain.DataTypeWallet:
		masked, ok = maskWallet(value, spec)
	case domain.DataTypeIP:
		masked, ok = maskIP(value, spec)
	case domain.DataTypePlate:
		masked, ok = maskPlate(value, spec)
	case domain.DataTypeVIN:
		masked, ok = maskVIN(value, spec)
	case domain.DataTypeAmount:
		masked, ok = maskAmount(value, spec)
	}
	if !ok {
		return Output{Value: spec.MaskToken, Malformed: true}
	}
	return Output{Value: masked}
}

// Partial keeps prefix runes at the start and suffix runes at the end and
// replaces the middle with fill. A value of prefix+suffix runes or fewer
// returns maskToken, so short values are never shown just because they are
// short.
func Partial(value string, prefix, suffix int, fill, maskToken string) string {
	r := []rune(value)
	if len(r) <= prefix+suffix {
		return maskToken
	}
	return string(r[:prefix]) + fill + string(r[len(r)-suffix:])
}

// reveal is Partial under spec. Values no longer than the data type's
// ShortValueLength get the mask token at every tier.
func reveal(value string, spec policy.RevealSpec) string {
	if isShort(value, spec) {
		return spec.MaskToken
	}
	return Partial(value, spec.Prefix, spec.Suffix, spec.Fill, spec.MaskToken)
}

func isShort(value string, spec policy.RevealSpec) bool {
	return utf8.RuneCountInString(value) <= spec.ShortValueLength
}
