package jzcrypto

import (
	"fmt"
	"io"
)

// KeyPair holds one party's deck-curve key material. The secret never
// leaves the owning process; only Public travels on-chain.
type KeyPair struct {
	Secret Scalar
	Public Point
}

// GenerateKeyPair samples a uniform non-zero secret from rand.
func GenerateKeyPair(rand io.Reader) (KeyPair, error) {
	if rand == nil {
		return KeyPair{}, fmt.Errorf("keypair: nil randomness source")
	}
	buf := make([]byte, 64)
	for attempt := 0; attempt < 256; attempt++ {
		if _, err := io.ReadFull(rand, buf); err != nil {
			return KeyPair{}, fmt.Errorf("keypair: read randomness: %w", err)
		}
		sk, err := ScalarFromUniformBytes(buf)
		if err != nil {
			return KeyPair{}, err
		}
		if sk.IsZero() {
			continue
		}
		return KeyPair{Secret: sk, Public: MulBase(sk)}, nil
	}
	return KeyPair{}, fmt.Errorf("keypair: randomness source kept yielding zero")
}

// AggregateKeys adds both parties' public keys. Decryption of anything
// encrypted under the sum requires both secrets.
func AggregateKeys(a, b Point) (Point, error) {
	if a.IsIdentity() || b.IsIdentity() {
		return Point{}, fmt.Errorf("aggregate: identity public key: %w", ErrInvalidCurvePoint)
	}
	return PointAdd(a, b), nil
}
