package policy

import (
	"tiermask/pkg/domain"
)

// DefaultVersion names the compiled-in policy revision.
const DefaultVersion = "builtin-2026.1"

const (
	fill        = "***"
	ellipsis    = "..."
	undisclosed = "undisclosed"
)

// Amount bucket edges. Fine refines coarse, so a gold viewer's bucket always
// sits inside the basic viewer's bucket.
var (
	coarseAmountBoundaries = []float64{0, 100, 500, 1000, 5000, 10000, 50000}
	fineAmountBoundaries   = []float64{0, 50, 100, 250, 500, 750, 1000, 2500, 5000, 7500, 10000, 25000, 50000, 100000}
)

// DefaultEntries returns the canonical rule set. Every call returns a fresh
// copy, so callers may use it as a base for their own artifacts.
func DefaultEntries() Entries {
	exact := func(maskToken string) RevealSpec {
		return RevealSpec{Exact: true, MaskToken: maskToken}
	}

	const emailMask = "***@***.***"
	const ibanMask = "****-****-****-****"
	const ipMask = "***.***.***.***"

	return Entries{
		domain.DataTypeEmail: {
			domain.TierBasic:    {Prefix: 0, Fill: fill, MaskToken: emailMask, Domain: DomainNone},
			domain.TierStandard: {Prefix: 1, Fill: fill, MaskToken: emailMask, Domain: DomainTLD},
			domain.TierGold:     {Prefix: 2, Fill: fill, MaskToken: emailMask, Domain: DomainFull},
			domain.TierAdmin:    exact(emailMask),
		},
		domain.DataTypePhone: {
			domain.TierBasic:    {Prefix: 0, Suffix: 2, Fill: fill, MaskToken: fill},
			domain.TierStandard: {Prefix: 0, Suffix: 3, Fill: fill, MaskToken: fill},
			domain.TierGold:     {Prefix: 3, Suffix: 3, Fill: fill, MaskToken: fill},
			domain.TierAdmin:    exact(fill),
		},
		domain.DataTypeIBAN: {
			domain.TierBasic:    {Prefix: 0, Suffix: 4, Fill: "****-****-****-", MaskToken: ibanMask},
			domain.TierStandard: {Prefix: 2, Suffix: 4, Fill: "**-****-****-", MaskToken: ibanMask},
			domain.TierGold:     {Prefix: 4, Suffix: 4, Fill: "-****-****-", MaskToken: ibanMask},
			domain.TierAdmin:    exact(ibanMask),
		},
		domain.DataTypeName: {
			domain.TierBasic:    {Prefix: 1, Fill: fill, MaskToken: fill},
			domain.TierStandard: {Prefix: 1, Fill: fill, MaskToken: fill},
			domain.TierGold:     {Prefix: 1, RevealTokens: 1, Fill: fill, MaskToken: fill},
			domain.TierAdmin:    exact(fill),
		},
		domain.DataTypeWallet: {
			domain.TierBasic:    {Prefix: 2, Suffix: 2, Fill: ellipsis, MaskToken: fill},
			domain.TierStandard: {Prefix: 3, Suffix: 3, Fill: ellipsis, MaskToken: fill},
			domain.TierGold:     {Prefix: 4, Suffix: 4, Fill: ellipsis, MaskToken: fill},
			domain.TierAdmin:    exact(fill),
		},
		domain.DataTypeIP: {
			domain.TierBasic:    {Prefix: 0, Fill: fill, MaskToken: ipMask},
			domain.TierStandard: {Prefix: 1, Fill: fill, MaskToken: ipMask},
			domain.TierGold:     {Prefix: 2, Fill: fill, MaskToken: ipMask},
			domain.TierAdmin:    exact(ipMask),
		},
		domain.DataTypePlate: {
			domain.TierBasic:    {Prefix: 0, Suffix: 0, Fill: fill, MaskToken: fill},
			domain.TierStandard: {Prefix: 0, Suffix: 2, Fill: fill, MaskToken: fill},
			domain.TierGold:     {Prefix: 1, Suffix: 2, Fill: fill, MaskToken: fill},
			domain.TierAdmin:    exact(fill),
		},
		domain.DataTypeVIN: {
			domain.TierBasic:    {Prefix: 0, Suffix: 2, Fill: fill, MaskToken: fill},
			domain.TierStandard: {Prefix: 3, Suffix: 3, Fill: fill, MaskToken: fill},
			domain.TierGold:     {Prefix: 4, Suffix: 4, Fill: fill, MaskToken: fill},
			domain.TierAdmin:    exact(fill),
		},
		domain.DataTypeAmount: {
			domain.TierBasic:    {Boundaries: append([]float64(nil), coarseAmountBoundaries...), MaskToken: undisclosed},
			domain.TierStandard: {Boundaries: append([]float64(nil), coarseAmountBoundaries...), MaskToken: undisclosed},
			domain.TierGold:     {Boundaries: append([]float64(nil), fineAmountBoundaries...), MaskToken: undisclosed},
			domain.TierAdmin:    exact(undisclosed),
		},
	}
}

// Default builds the compiled-in table.
func Default() (*Table, error) {
	return New(DefaultVersion, DefaultEntries())
}

// MustDefault is Default for program start-up and tests; it panics when the
// compiled-in rules are inconsistent.
func MustDefault() *Table {
	t, err := Default()
	if err != nil {
		panic(err)
	}
	return t
}
