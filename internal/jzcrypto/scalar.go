package jzcrypto

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

const ScalarBytes = 32

var scalarOrder = func() *big.Int {
	params := twistededwards.GetEdwardsCurve()
	return new(big.Int).Set(&params.Order)
}()

// Scalar is an element of the deck curve's prime-order scalar group
// (canonical 32-byte little-endian encoding).
type Scalar struct {
	v big.Int
}

func ScalarZero() Scalar {
	return Scalar{}
}

func ScalarFromUint64(x uint64) Scalar {
	var s Scalar
	s.v.SetUint64(x)
	s.v.Mod(&s.v, scalarOrder)
	return s
}

func ScalarFromBigInt(x *big.Int) (Scalar, error) {
	if x == nil {
		return Scalar{}, fmt.Errorf("scalar: nil big int")
	}
	if x.Sign() < 0 || x.Cmp(scalarOrder) >= 0 {
		return Scalar{}, fmt.Errorf("scalar: out of range")
	}
	var s Scalar
	s.v.Set(x)
	return s, nil
}

func ScalarFromBytesCanonical(b []byte) (Scalar, error) {
	if len(b) != ScalarBytes {
		return Scalar{}, fmt.Errorf("scalar: expected %d bytes", ScalarBytes)
	}
	be := make([]byte, ScalarBytes)
	for i := 0; i < ScalarBytes; i++ {
		be[i] = b[ScalarBytes-1-i]
	}
	var s Scalar
	s.v.SetBytes(be)
	if s.v.Cmp(scalarOrder) >= 0 {
		return Scalar{}, fmt.Errorf("scalar: non-canonical")
	}
	return s, nil
}

// ScalarFromUniformBytes reduces 64 uniform bytes modulo the group order.
func ScalarFromUniformBytes(b []byte) (Scalar, error) {
	if len(b) != 64 {
		return Scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes")
	}
	var s Scalar
	s.v.SetBytes(b)
	s.v.Mod(&s.v, scalarOrder)
	return s, nil
}

func (s Scalar) Bytes() []byte {
	be := s.v.Bytes()
	out := make([]byte, ScalarBytes)
	for i := 0; i < len(be); i++ {
		out[i] = be[len(be)-1-i]
	}
	return out
}

// BigInt returns a copy of the scalar value.
func (s Scalar) BigInt() *big.Int {
	return new(big.Int).Set(&s.v)
}

// String returns the scalar as a decimal string (proof public-input form).
func (s Scalar) String() string {
	return s.v.String()
}

func (s Scalar) IsZero() bool {
	return s.v.Sign() == 0
}

func ScalarAdd(a, b Scalar) Scalar {
	var out Scalar
	out.v.Add(&a.v, &b.v)
	out.v.Mod(&out.v, scalarOrder)
	return out
}

func ScalarSub(a, b Scalar) Scalar {
	var out Scalar
	out.v.Sub(&a.v, &b.v)
	out.v.Mod(&out.v, scalarOrder)
	return out
}

func ScalarMul(a, b Scalar) Scalar {
	var out Scalar
	out.v.Mul(&a.v, &b.v)
	out.v.Mod(&out.v, scalarOrder)
	return out
}

func ScalarNeg(a Scalar) Scalar {
	var out Scalar
	out.v.Neg(&a.v)
	out.v.Mod(&out.v, scalarOrder)
	return out
}

func ScalarInv(a Scalar) (Scalar, error) {
	if a.IsZero() {
		return Scalar{}, fmt.Errorf("scalar: inverse of zero")
	}
	var out Scalar
	out.v.ModInverse(&a.v, scalarOrder)
	return out, nil
}
