package jzshuffle

import (
	cryptorand "crypto/rand"
	"fmt"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

// Rng supplies shuffle randomness. Permutation unpredictability is the
// caller's obligation: the proof shows a valid re-encryption happened, not
// that the permutation was honestly sampled.
type Rng interface {
	NextScalar() (jzcrypto.Scalar, error)
	NextBytes(n int) ([]byte, error)
}

type DeterministicRng struct {
	seed    []byte
	counter uint32
}

func NewDeterministicRng(seed []byte) (*DeterministicRng, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("DeterministicRng: empty seed")
	}
	return &DeterministicRng{seed: append([]byte(nil), seed...)}, nil
}

func (r *DeterministicRng) NextScalar() (jzcrypto.Scalar, error) {
	c := make([]byte, 4)
	c[0] = byte(r.counter)
	c[1] = byte(r.counter >> 8)
	c[2] = byte(r.counter >> 16)
	c[3] = byte(r.counter >> 24)
	r.counter++
	return jzcrypto.HashToScalar("jz/v1/shuffle/rng", r.seed, c)
}

func (r *DeterministicRng) NextBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("DeterministicRng.NextBytes: invalid length")
	}
	out := make([]byte, n)
	off := 0
	for off < n {
		s, err := r.NextScalar()
		if err != nil {
			return nil, err
		}
		sb := s.Bytes()
		take := len(sb)
		if n-off < take {
			take = n - off
		}
		copy(out[off:], sb[:take])
		off += take
	}
	return out, nil
}

// SystemRng draws from crypto/rand.
type SystemRng struct{}

func (SystemRng) NextScalar() (jzcrypto.Scalar, error) {
	buf := make([]byte, 64)
	if _, err := cryptorand.Read(buf); err != nil {
		return jzcrypto.Scalar{}, fmt.Errorf("SystemRng: %w", err)
	}
	return jzcrypto.ScalarFromUniformBytes(buf)
}

func (SystemRng) NextBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("SystemRng.NextBytes: invalid length")
	}
	out := make([]byte, n)
	if _, err := cryptorand.Read(out); err != nil {
		return nil, fmt.Errorf("SystemRng: %w", err)
	}
	return out, nil
}

func nextNonzeroScalar(rng Rng) (jzcrypto.Scalar, error) {
	for attempt := 0; attempt < 256; attempt++ {
		s, err := rng.NextScalar()
		if err != nil {
			return jzcrypto.Scalar{}, err
		}
		if !s.IsZero() {
			return s, nil
		}
	}
	return jzcrypto.Scalar{}, fmt.Errorf("rng kept yielding zero scalars")
}
