package policy

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tiermask/pkg/domain"
)

const validArtifact = `
version: "2026-10-01"
rules:
  email:
    basic:    {prefix: 0, fill: "***", mask_token: "***@***.***", domain: none}
    standard: {prefix: 1, fill: "***", mask_token: "***@***.***", domain: tld}
    gold:     {prefix: 2, fill: "***", mask_token: "***@***.***", domain: full}
    admin:    {exact: true, mask_token: "***@***.***"}
  phone:
    basic:    {suffix: 2, fill: "***", mask_token: "***"}
    standard: {suffix: 3, fill: "***", mask_token: "***"}
    gold:     {prefix: 3, suffix: 3, fill: "***", mask_token: "***"}
    admin:    {exact: true, mask_token: "***"}
  iban:
    basic:    {suffix: 4, fill: "****-****-****-", mask_token: "****-****-****-****"}
    standard: {prefix: 2, suffix: 4, fill: "**-****-****-", mask_token: "****-****-****-****"}
    gold:     {prefix: 4, suffix: 4, fill: "-****-****-", mask_token: "****-****-****-****"}
    admin:    {exact: true, mask_token: "****-****-****-****"}
  name:
    basic:    {prefix: 1, fill: "***", mask_token: "***"}
    standard: {prefix: 1, fill: "***", mask_token: "***"}
    gold:     {prefix: 1, reveal_tokens: 1, fill: "***", mask_token: "***"}
    admin:    {exact: true, mask_token: "***"}
  wallet:
    basic:    {prefix: 2, suffix: 2, fill: "...", mask_token: "***"}
    standard: {prefix: 3, suffix: 3, fill: "...", mask_token: "***"}
    gold:     {prefix: 4, suffix: 4, fill: "...", mask_token: "***"}
    admin:    {exact: true, mask_token: "***"}
  ip:
    basic:    {prefix: 0, fill: "***", mask_token: "***.***.***.***"}
    standard: {prefix: 1, fill: "***", mask_token: "***.***.***.***"}
    gold:     {prefix: 2, fill: "***", mask_token: "***.***.***.***"}
    admin:    {exact: true, mask_token: "***.***.***.***"}
  plate:
    basic:    {fill: "***", mask_token: "***"}
    standard: {suffix: 2, fill: "***", mask_token: "***"}
    gold:     {prefix: 1, suffix: 2, fill: "***", mask_token: "***"}
    admin:    {exact: true, mask_token: "***"}
  vin:
    basic:    {suffix: 2, fill: "***", mask_token: "***"}
    standard: {prefix: 3, suffix: 3, fill: "***", mask_token: "***"}
    gold:     {prefix: 4, suffix: 4, fill: "***", mask_token: "***"}
    admin:    {exact: true, mask_token: "***"}
  amount:
    basic:    {boundaries: [0, 1000, 10000], mask_token: "undisclosed"}
    standard: {boundaries: [0, 1000, 10000], mask_token: "undisclosed"}
    gold:     {boundaries: [0, 500, 1000, 5000, 10000], mask_token: "undisclosed"}
    admin:    {exact: true, mask_token: "undisclosed"}
`

func TestLoadBytes(t *testing.T) {
	t.Run("valid artifact", func(t *testing.T) {
		table, err := LoadBytes([]byte(validArtifact))
		require.NoError(t, err)
		assert.Equal(t, "2026-10-01", table.Version())

		spec, ok := table.Lookup(domain.DataTypeAmount, domain.TierGold)
		require.True(t, ok)
		assert.Equal(t, []float64{0, 500, 1000, 5000, 10000}, spec.Boundaries)

		spec, _ = table.Lookup(domain.DataTypeEmail, domain.TierStandard)
		assert.Equal(t, DomainTLD, spec.Domain)
		assert.Equal(t, "email/standard", spec.RuleID())
	})

	t.Run("non-monotonic artifact is rejected", func(t *testing.T) {
		bad := strings.Replace(validArtifact,
			`basic:    {suffix: 2, fill: "***", mask_token: "***"}`,
			`basic:    {suffix: 4, fill: "***", mask_token: "***"}`, 1)
		_, err := LoadBytes([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("unknown tier is rejected", func(t *testing.T) {
		bad := validArtifact + `    platinum: {exact: true, mask_token: "undisclosed"}` + "\n"
		_, err := LoadBytes([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("missing version is rejected", func(t *testing.T) {
		bad := strings.Replace(validArtifact, `version: "2026-10-01"`, "", 1)
		_, err := LoadBytes([]byte(bad))
		assert.ErrorIs(t, err, ErrInvalidPolicy)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadBytes([]byte("rules: [unclosed"))
		assert.ErrorIs(t, err, ErrInvalidArtifact)
	})

	t.Run("no rules", func(t *testing.T) {
		_, err := LoadBytes([]byte(`version: "1"`))
		assert.ErrorIs(t, err, ErrInvalidArtifact)
	})
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	t.Run("reads from disk", func(t *testing.T) {
		path := filepath.Join(dir, "policy.yaml")
		require.NoError(t, os.WriteFile(path, []byte(validArtifact), 0o600))

		table, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "2026-10-01", table.Version())
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(dir, "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("oversized file", func(t *testing.T) {
		path := filepath.Join(dir, "huge.yaml")
		require.NoError(t, os.WriteFile(path, make([]byte, maxArtifactSize+10), 0o600))

		_, err := LoadFile(path)
		assert.ErrorIs(t, err, ErrInvalidArtifact)
	})
}
