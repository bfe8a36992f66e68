package crypto

import (
	"crypto/sha256"
	"math/big"
	"regexp"
)

// attributeModulus bounds the CL attribute domain. Gabi's default system
// parameters use a 256-bit attribute space (Lm); encoded values are reduced
// into that range so they fit as CL message integers regardless of encoding
// branch.
var attributeModulus = func() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), 256)
	return m
}()

var decimalInteger = regexp.MustCompile(`^[0-9]+$`)

// EncodeAttribute implements the encoding rule of spec §4.1: a raw value
// that is itself a non-negative decimal integer fitting the attribute domain
// passes through unchanged; anything else is replaced by the big-endian
// integer interpretation of SHA-256(raw) reduced mod the attribute modulus.
//
// Encoding is deterministic: calling it twice on the same raw string always
// yields the same encoded value.
func EncodeAttribute(raw string) string {
	if decimalInteger.MatchString(raw) {
		if n, ok := new(big.Int).SetString(raw, 10); ok && n.Cmp(attributeModulus) < 0 {
			return raw
		}
	}
	sum := sha256.Sum256([]byte(raw))
	n := new(big.Int).SetBytes(sum[:])
	n.Mod(n, attributeModulus)
	return n.String()
}

// EncodeAttributes applies EncodeAttribute to every value in raw, keyed by
// attribute name.
func EncodeAttributes(raw map[string]string) map[string]string {
	encoded := make(map[string]string, len(raw))
	for name, value := range raw {
		encoded[name] = EncodeAttribute(value)
	}
	return encoded
}
