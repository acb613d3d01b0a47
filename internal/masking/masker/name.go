package masker

import (
	"strings"
	"unicode"

	"tiermask/internal/masking/policy"
)

// maskName shows RevealTokens leading tokens in full and reduces the rest to
// their first Prefix letters plus Fill. A name with no more tokens than
// RevealTokens reveals none of them, so a single-word name is never shown.
func maskName(value string, spec policy.RevealSpec) (string, bool) {
	tokens := strings.Fields(value)
	if len(tokens) == 0 {
		return "", false
	}
	for _, t := range tokens {
		if strings.ContainsFunc(t, func(r rune) bool {
			return unicode.IsDigit(r) || unicode.IsControl(r) || r == '@'
		}) {
			return "", false
		}
	}

	reveal := spec.RevealTokens
	if len(tokens) <= reveal {
		reveal = 0
	}

	out := make([]string, len(tokens))
	for i, t := range tokens {
		if i < reveal {
			out[i] = t
			continue
		}
		if isShort(t, spec) {
			out[i] = spec.Fill
			continue
		}
		out[i] = Partial(t, spec.Prefix, 0, spec.Fill, spec.Fill)
	}
	return strings.Join(out, " "), true
}
