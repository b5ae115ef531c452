package jzcrypto

import (
	"fmt"
	"sync"
)

const DeckSize = 52

type ElGamalCiphertext struct {
	C1 Point
	C2 Point
}

// ElGamal in additive notation:
//   PK = Y = x*G
//   Enc(Y, M; r) = (r*G, M + r*Y)
func ElGamalEncrypt(pk Point, m Point, r Scalar) (ElGamalCiphertext, error) {
	if r.IsZero() {
		// Zero randomness is valid mathematically but leaks the plaintext.
		return ElGamalCiphertext{}, fmt.Errorf("elgamal: r must be non-zero")
	}
	c1 := MulBase(r)
	c2 := PointAdd(m, MulPoint(pk, r))
	return ElGamalCiphertext{C1: c1, C2: c2}, nil
}

// Dec(x, (c1,c2)) = c2 - x*c1
func ElGamalDecrypt(sk Scalar, ct ElGamalCiphertext) Point {
	return PointSub(ct.C2, MulPoint(ct.C1, sk))
}

// ElGamalRerandomize adds a fresh encryption of the identity, so the result
// decrypts to the same plaintext but is unlinkable without rho.
func ElGamalRerandomize(pk Point, ct ElGamalCiphertext, rho Scalar) ElGamalCiphertext {
	return ElGamalCiphertext{
		C1: PointAdd(ct.C1, MulBase(rho)),
		C2: PointAdd(ct.C2, MulPoint(pk, rho)),
	}
}

// Card encoding: M_c = (c+1)*G for c in 0..51. The +1 offset keeps card 0
// away from the group identity.
func EncodeCard(index uint8) (Point, error) {
	if int(index) >= DeckSize {
		return Point{}, fmt.Errorf("card index %d out of range", index)
	}
	return MulBase(ScalarFromUint64(uint64(index) + 1)), nil
}

var (
	cardTable     map[[PointBytes]byte]uint8
	cardTableOnce sync.Once
)

func initCardTable() {
	cardTable = make(map[[PointBytes]byte]uint8, DeckSize)
	for c := 0; c < DeckSize; c++ {
		p := MulBase(ScalarFromUint64(uint64(c) + 1))
		var k [PointBytes]byte
		copy(k[:], p.Bytes())
		cardTable[k] = uint8(c)
	}
}

// DecodeCard inverts EncodeCard by lookup over the 52 valid card points.
func DecodeCard(p Point) (uint8, error) {
	cardTableOnce.Do(initCardTable)
	var k [PointBytes]byte
	copy(k[:], p.Bytes())
	c, ok := cardTable[k]
	if !ok {
		return 0, fmt.Errorf("plaintext does not map to a known card")
	}
	return c, nil
}
