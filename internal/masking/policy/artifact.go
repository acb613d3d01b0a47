package policy

import (
	"fmt"
	"io"
	"os"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"tiermask/pkg/domain"
)

const maxArtifactSize = 1024 * 1024 // 1MB

// artifactDoc is the on-disk shape of a versioned policy:
//
//	version: "2026-10-01"
//	rules:
//	  email:
//	    basic:    {prefix: 0, fill: "***", mask_token: "***@***.***", domain: none}
//	    ...
//	    admin:    {exact: true, mask_token: "***@***.***"}
type artifactDoc struct {
	Version string                     `koanf:"version"`
	Rules   map[string]map[string]Rule `koanf:"rules"`
}

// Rule is the external, unvalidated form of a RevealSpec, shared by policy
// artifacts and per-record overrides.
type Rule struct {
	Prefix       int       `koanf:"prefix" json:"prefix"`
	Suffix       int       `koanf:"suffix" json:"suffix"`
	Fill         string    `koanf:"fill" json:"fill"`
	MaskToken    string    `koanf:"mask_token" json:"mask_token"`
	Domain       string    `koanf:"domain" json:"domain,omitempty"`
	RevealTokens int       `koanf:"reveal_tokens" json:"reveal_tokens,omitempty"`
	Boundaries   []float64 `koanf:"boundaries" json:"boundaries,omitempty"`
	Exact        bool      `koanf:"exact" json:"exact,omitempty"`
}

func (r Rule) toSpec() RevealSpec {
	return RevealSpec{
		Prefix:       r.Prefix,
		Suffix:       r.Suffix,
		Fill:         r.Fill,
		MaskToken:    r.MaskToken,
		Domain:       DomainReveal(r.Domain),
		RevealTokens: r.RevealTokens,
		Boundaries:   append([]float64(nil), r.Boundaries...),
		Exact:        r.Exact,
	}
}

// LoadFile reads a policy artifact from disk. Files over 1MB are rejected.
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()

	content, err := io.ReadAll(io.LimitReader(f, maxArtifactSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	if len(content) > maxArtifactSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidArtifact, path, maxArtifactSize)
	}

	t, err := LoadBytes(content)
	if err != nil {
		return nil, fmt.Errorf("policy file %s: %w", path, err)
	}
	return t, nil
}

// LoadBytes parses a YAML policy artifact and validates it exactly like the
// compiled-in table. Unknown data types or tiers are errors, not ignored.
func LoadBytes(content []byte) (*Table, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}

	var doc artifactDoc
	if err := k.UnmarshalWithConf("", &doc, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if len(doc.Rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidArtifact)
	}

	entries := make(Entries, len(doc.Rules))
	for dtName, row := range doc.Rules {
		dt := domain.DataType(dtName)
		tiers := make(map[domain.ViewerTier]RevealSpec, len(row))
		for tierName, rule := range row {
			tiers[domain.ViewerTier(tierName)] = rule.toSpec()
		}
		entries[dt] = tiers
	}

	return New(doc.Version, entries)
}
