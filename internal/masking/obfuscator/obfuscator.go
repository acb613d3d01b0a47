// Package obfuscator derives stable correlation tags for masked values.
//
// A tag is a truncated HMAC-SHA256 of the normalized raw value under a
// process-wide salt. Equal values give equal tags for as long as the salt is
// unchanged, so a viewer can tell that two masked fields hold the same
// underlying value without seeing it. Rotating the salt changes every tag.
package obfuscator

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

const (
	// DefaultTagLength is the number of hex characters appended to output.
	DefaultTagLength = 8
	MinTagLength     = 4
	MaxTagLength     = sha256.Size * 2

	// MinSaltLength is the shortest salt accepted, in bytes.
	MinSaltLength = 16

	// Separator joins masked output and its tag.
	Separator = "#"
)

var (
	// ErrNoSalt means deterministic masking is not configured. Callers treat
	// it as "feature off", not as a startup failure.
	ErrNoSalt = errors.New("obfuscator: no salt configured")

	// ErrWeakSalt rejects salts too short to resist brute force over small
	// value spaces such as phone numbers.
	ErrWeakSalt = errors.New("obfuscator: salt too short")

	ErrInvalidTagLength = errors.New("obfuscator: invalid tag length")
)

// Obfuscator is immutable and safe for concurrent use.
type Obfuscator struct {
	key        []byte
	tagLength  int
	generation string
}

// Option configures an Obfuscator.
type Option func(*Obfuscator)

// WithTagLength sets the number of hex characters in a tag.
func WithTagLength(n int) Option {
	return func(o *Obfuscator) {
		o.tagLength = n
	}
}

// New builds an obfuscator keyed by salt. The salt is copied.
func New(salt []byte, opts ...Option) (*Obfuscator, error) {
	if len(salt) == 0 {
		return nil, ErrNoSalt
	}
	if len(salt) < MinSaltLength {
		return nil, fmt.Errorf("%w: %d bytes, need at least %d", ErrWeakSalt, len(salt), MinSaltLength)
	}

	o := &Obfuscator{
		key:       append([]byte(nil), salt...),
		tagLength: DefaultTagLength,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.tagLength < MinTagLength || o.tagLength > MaxTagLength {
		return nil, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidTagLength, o.tagLength, MinTagLength, MaxTagLength)
	}
	o.generation = fingerprint(o.key)
	return o, nil
}

// Tag returns the correlation tag for raw, which is normalized for dataType
// first so that formatting differences do not split one value into two tags.
func (o *Obfuscator) Tag(dataType, raw string) string {
	mac := hmac.New(sha256.New, o.key)
	mac.Write([]byte(dataType))
	mac.Write([]byte{0})
	mac.Write([]byte(Normalize(dataType, raw)))
	return hex.EncodeToString(mac.Sum(nil))[:o.tagLength]
}

// Apply appends tag to masked output. An empty tag leaves masked unchanged.
func (o *Obfuscator) Apply(masked, tag string) string {
	if tag == "" {
		return masked
	}
	return masked + Separator + tag
}

// Rotate returns a new obfuscator with the same options and a new salt.
// Tags issued before and after rotation do not correlate.
func (o *Obfuscator) Rotate(newSalt []byte) (*Obfuscator, error) {
	return New(newSalt, WithTagLength(o.tagLength))
}

// Generation is a short fingerprint of the salt, safe to log, that tells
// operators which salt produced a tag without revealing it.
func (o *Obfuscator) Generation() string {
	return o.generation
}

// TagLength reports the configured tag length.
func (o *Obfuscator) TagLength() int {
	return o.tagLength
}

func fingerprint(key []byte) string {
	h := sha256.New()
	h.Write([]byte("tiermask-salt-generation"))
	h.Write(key)
	return hex.EncodeToString(h.Sum(nil))[:8]
}
