package masker

import (
	"net/netip"
	"strings"
	"unicode"

	"tiermask/internal/masking/policy"
)

const (
	minPhoneDigits = 6
	maxPhoneDigits = 15

	minIBANLength = 15
	maxIBANLength = 34

	minWalletLength = 20
	maxWalletLength = 128

	minPlateLength = 2
	maxPlateLength = 12

	vinLength = 17

	hiddenSegment = "***"
)

func maskEmail(value string, spec policy.RevealSpec) (string, bool) {
	local, host, found := strings.Cut(strings.TrimSpace(value), "@")
	if !found || local == "" || host == "" || strings.Contains(host, "@") {
		return "", false
	}
	if strings.ContainsFunc(local, unicode.IsSpace) || strings.ContainsFunc(host, unicode.IsSpace) {
		return "", false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return "", false
	}
	for _, l := range labels {
		if l == "" {
			return "", false
		}
	}

	maskedLocal := Partial(local, spec.Prefix, 0, spec.Fill, "")
	if maskedLocal == "" || isShort(local, spec) {
		// Local part too short to show any of it: hide the whole address.
		return spec.MaskToken, true
	}

	var maskedHost string
	switch spec.Domain {
	case policy.DomainFull:
		maskedHost = host
	case policy.DomainTLD:
		maskedHost = hiddenSegment + "." + labels[len(labels)-1]
	default:
		maskedHost = hiddenSegment + "." + hiddenSegment
	}
	return maskedLocal + "@" + maskedHost, true
}

func maskPhone(value string, spec policy.RevealSpec) (string, bool) {
	var digits strings.Builder
	for _, c := range value {
		switch {
		case c >= '0' && c <= '9':
			digits.WriteRune(c)
		case c == ' ', c == '+', c == '-', c == '(', c == ')', c == '.':
		default:
			return "", false
		}
	}
	d := digits.String()
	if len(d) < minPhoneDigits || len(d) > maxPhoneDigits {
		return "", false
	}
	return reveal(d, spec), true
}

// NormalizeIBAN strips spaces and uppercases. ok is false when the result is
// not shaped like an IBAN: two letters, two check digits, then alphanumerics.
func NormalizeIBAN(value string) (string, bool) {
	compact := strings.ToUpper(strings.Join(strings.Fields(value), ""))
	if len(compact) < minIBANLength || len(compact) > maxIBANLength {
		return "", false
	}
	for i, c := range compact {
		switch {
		case i < 2:
			if c < 'A' || c > 'Z' {
				return "", false
			}
		case i < 4:
			if c < '0' || c > '9' {
				return "", false
			}
		default:
			if !isUpperAlnum(c) {
				return "", false
			}
		}
	}
	return compact, true
}

func maskIBAN(value string, spec policy.RevealSpec) (string, bool) {
	compact, ok := NormalizeIBAN(value)
	if !ok {
		return "", false
	}
	return reveal(compact, spec), true
}

func maskWallet(value string, spec policy.RevealSpec) (string, bool) {
	v := strings.TrimSpace(value)
	body := strings.TrimPrefix(strings.TrimPrefix(v, "0x"), "0X")
	if len(body) < minWalletLength || len(v) > maxWalletLength {
		return "", false
	}
	for _, c := range body {
		if !isAlnum(c) {
			return "", false
		}
	}
	return reveal(v, spec), true
}

// NormalizePlate uppercases and drops spaces and hyphens.
func NormalizePlate(value string) (string, bool) {
	var b strings.Builder
	for _, c := range strings.ToUpper(strings.TrimSpace(value)) {
		switch {
		case c == ' ' || c == '-':
		case isUpperAlnum(c):
			b.WriteRune(c)
		default:
			return "", false
		}
	}
	p := b.String()
	if len(p) < minPlateLength || len(p) > maxPlateLength {
		return "", false
	}
	return p, true
}

func maskPlate(value string, spec policy.RevealSpec) (string, bool) {
	p, ok := NormalizePlate(value)
	if !ok {
		return "", false
	}
	return reveal(p, spec), true
}

// NormalizeVIN uppercases and checks the 17-character VIN alphabet, which
// excludes I, O and Q.
func NormalizeVIN(value string) (string, bool) {
	v := strings.ToUpper(strings.TrimSpace(value))
	if len(v) != vinLength {
		return "", false
	}
	for _, c := range v {
		if !isUpperAlnum(c) || c == 'I' || c == 'O' || c == 'Q' {
			return "", false
		}
	}
	return v, true
}

func maskVIN(value string, spec policy.RevealSpec) (string, bool) {
	v, ok := NormalizeVIN(value)
	if !ok {
		return "", false
	}
	return reveal(v, spec), true
}

// ParseIP accepts IPv4 and IPv6 literals. Zones are dropped and IPv4-mapped
// IPv6 addresses are unmapped.
func ParseIP(value string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(value))
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.WithZone("").Unmap(), true
}

// maskIP keeps Prefix leading and Suffix trailing address segments (dotted
// octets for IPv4, expanded hextets for IPv6).
func maskIP(value string, spec policy.RevealSpec) (string, bool) {
	addr, ok := ParseIP(value)
	if !ok {
		return "", false
	}

	var segments []string
	sep := "."
	if addr.Is4() {
		segments = strings.Split(addr.String(), ".")
	} else {
		sep = ":"
		segments = strings.Split(addr.StringExpanded(), ":")
	}
	if len(segments) <= max(spec.Prefix+spec.Suffix, spec.ShortValueLength) {
		return spec.MaskToken, true
	}

	out := make([]string, len(segments))
	for i, seg := range segments {
		if i < spec.Prefix || i >= len(segments)-spec.Suffix {
			out[i] = seg
		} else {
			out[i] = spec.Fill
		}
	}
	return strings.Join(out, sep), true
}

func isAlnum(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isUpperAlnum(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z')
}
