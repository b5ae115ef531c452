// Package jzcrypto implements the deck group: a twisted Edwards curve over
// the BN254 scalar field (BabyJubJub), so that every group operation used
// on-chain has a native in-circuit counterpart.
package jzcrypto

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
)

const PointBytes = 32

var ErrInvalidCurvePoint = fmt.Errorf("invalid curve point")

// Point is a point on the deck curve (compressed 32-byte encoding).
type Point struct {
	v twistededwards.PointAffine
}

// PointIdentity returns the group identity (0, 1).
func PointIdentity() Point {
	var p Point
	p.v.X.SetZero()
	p.v.Y.SetOne()
	return p
}

func basePoint() twistededwards.PointAffine {
	params := twistededwards.GetEdwardsCurve()
	return params.Base
}

var subgroupOrder = func() *big.Int {
	params := twistededwards.GetEdwardsCurve()
	return new(big.Int).Set(&params.Order)
}()

// inSubgroup reports whether p lies in the prime-order subgroup. The curve
// has cofactor 8; decoded points outside the subgroup would let a party
// inject a low-order component into key aggregation and reveal shares.
func (p Point) inSubgroup() bool {
	var q twistededwards.PointAffine
	q.ScalarMultiplication(&p.v, subgroupOrder)
	id := PointIdentity()
	return q.Equal(&id.v)
}

// MulBase computes s*G.
func MulBase(s Scalar) Point {
	base := basePoint()
	var p Point
	p.v.ScalarMultiplication(&base, s.BigInt())
	return p
}

// MulPoint computes s*P.
func MulPoint(p Point, s Scalar) Point {
	var out Point
	out.v.ScalarMultiplication(&p.v, s.BigInt())
	return out
}

func PointAdd(a, b Point) Point {
	var out Point
	out.v.Add(&a.v, &b.v)
	return out
}

func PointSub(a, b Point) Point {
	var neg twistededwards.PointAffine
	neg.Neg(&b.v)
	var out Point
	out.v.Add(&a.v, &neg)
	return out
}

func PointEq(a, b Point) bool {
	return a.v.Equal(&b.v)
}

func (p Point) IsIdentity() bool {
	id := PointIdentity()
	return p.v.Equal(&id.v)
}

func (p Point) Bytes() []byte {
	return p.v.Marshal()
}

// XY returns the affine coordinate strings (decimal, proof public-input form).
func (p Point) XY() (string, string) {
	var x, y big.Int
	p.v.X.BigInt(&x)
	p.v.Y.BigInt(&y)
	return x.String(), y.String()
}

func PointFromBytesCanonical(b []byte) (Point, error) {
	if len(b) != PointBytes {
		return Point{}, fmt.Errorf("point: expected %d bytes: %w", PointBytes, ErrInvalidCurvePoint)
	}
	var p Point
	if err := p.v.Unmarshal(b); err != nil {
		return Point{}, fmt.Errorf("point: %v: %w", err, ErrInvalidCurvePoint)
	}
	if !p.v.IsOnCurve() {
		return Point{}, fmt.Errorf("point: not on curve: %w", ErrInvalidCurvePoint)
	}
	if !p.inSubgroup() {
		return Point{}, fmt.Errorf("point: not in prime-order subgroup: %w", ErrInvalidCurvePoint)
	}
	return p, nil
}
