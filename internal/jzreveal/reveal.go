// Package jzreveal computes partial decryption shares and combines them
// into plaintext cards. A card counts as revealed only once both parties'
// shares are present and verified.
package jzreveal

import (
	"errors"
	"fmt"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

var (
	// ErrIncompleteReveal: fewer than both parties' shares were supplied.
	ErrIncompleteReveal = errors.New("incomplete reveal")
	// ErrInconsistentShare: the combined plaintext is not a valid card, so at
	// least one share was not derived from its committed secret.
	ErrInconsistentShare = errors.New("inconsistent share")
)

// SharesRequired is the number of partial decryptions needed per card.
const SharesRequired = 2

// Witness is the private side of a reveal proof: the party's secret key.
type Witness struct {
	SK jzcrypto.Scalar
}

type Result struct {
	Share        jzcrypto.Point
	Witness      Witness
	PublicInputs []string
}

// Share computes the party's contribution sk*C1 toward decrypting ct.
func Share(sk jzcrypto.Scalar, ct jzcrypto.ElGamalCiphertext) jzcrypto.Point {
	return jzcrypto.MulPoint(ct.C1, sk)
}

// RevealShare computes the share together with the proof witness and the
// public statement binding (share, c1, pk).
func RevealShare(sk jzcrypto.Scalar, ct jzcrypto.ElGamalCiphertext, pk jzcrypto.Point) (Result, error) {
	if sk.IsZero() {
		return Result{}, fmt.Errorf("reveal: zero secret key")
	}
	if !jzcrypto.PointEq(jzcrypto.MulBase(sk), pk) {
		return Result{}, fmt.Errorf("reveal: public key does not match secret")
	}
	share := Share(sk, ct)
	return Result{
		Share:        share,
		Witness:      Witness{SK: sk},
		PublicInputs: PublicInputs(share, ct.C1, pk),
	}, nil
}

// PublicInputs lays out the reveal statement in verifier order:
// share, c1, pk, as decimal affine coordinates.
func PublicInputs(share, c1, pk jzcrypto.Point) []string {
	out := make([]string, 0, 6)
	for _, p := range []jzcrypto.Point{share, c1, pk} {
		x, y := p.XY()
		out = append(out, x, y)
	}
	return out
}

// Combine subtracts both shares from c2 and decodes the card.
func Combine(ct jzcrypto.ElGamalCiphertext, shares []jzcrypto.Point) (uint8, error) {
	if len(shares) < SharesRequired {
		return 0, fmt.Errorf("have %d of %d shares: %w", len(shares), SharesRequired, ErrIncompleteReveal)
	}
	if len(shares) > SharesRequired {
		return 0, fmt.Errorf("too many shares: %d", len(shares))
	}
	m := ct.C2
	for _, s := range shares {
		m = jzcrypto.PointSub(m, s)
	}
	card, err := jzcrypto.DecodeCard(m)
	if err != nil {
		return 0, fmt.Errorf("%v: %w", err, ErrInconsistentShare)
	}
	return card, nil
}
