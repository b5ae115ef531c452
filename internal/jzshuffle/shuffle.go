package jzshuffle

import (
	"encoding/binary"
	"fmt"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

// Witness is the private side of a shuffle: the permutation, the fresh
// re-encryption randomness per output position, and the key-switch secret
// (zero for a plain re-shuffle).
type Witness struct {
	Perm      [DeckSize]int
	Rerand    [DeckSize]jzcrypto.Scalar
	KeySwitch jzcrypto.Scalar
}

type Result struct {
	Deck         Deck
	Witness      Witness
	PublicInputs []string
}

// Shuffle permutes in and re-randomizes every ciphertext under pk.
// Output position i holds input position Perm[i] plus a fresh encryption of
// the identity.
func Shuffle(rng Rng, in Deck, pk jzcrypto.Point) (Result, error) {
	return shuffle(rng, in, pk, jzcrypto.ScalarZero())
}

// ShuffleKeySwitch additionally re-keys every ciphertext by the caller's
// secret before re-randomizing: c2 += sk*c1. A party joining a session uses
// this to move the dealer's deck under the aggregated key while shuffling.
func ShuffleKeySwitch(rng Rng, in Deck, pk jzcrypto.Point, sk jzcrypto.Scalar) (Result, error) {
	if sk.IsZero() {
		return Result{}, fmt.Errorf("shuffle: key-switch secret must be non-zero")
	}
	return shuffle(rng, in, pk, sk)
}

func shuffle(rng Rng, in Deck, pk jzcrypto.Point, keySwitch jzcrypto.Scalar) (Result, error) {
	if rng == nil {
		return Result{}, fmt.Errorf("shuffle: nil rng")
	}
	if err := CheckDeck(in); err != nil {
		return Result{}, err
	}
	if pk.IsIdentity() {
		return Result{}, fmt.Errorf("shuffle: identity public key: %w", jzcrypto.ErrInvalidCurvePoint)
	}

	perm, err := randomPermutation(rng)
	if err != nil {
		return Result{}, err
	}

	var w Witness
	w.Perm = perm
	w.KeySwitch = keySwitch

	out := make(Deck, DeckSize)
	for i := 0; i < DeckSize; i++ {
		rho, err := nextNonzeroScalar(rng)
		if err != nil {
			return Result{}, err
		}
		w.Rerand[i] = rho

		ct := in[perm[i]]
		if !keySwitch.IsZero() {
			ct = jzcrypto.ElGamalCiphertext{
				C1: ct.C1,
				C2: jzcrypto.PointAdd(ct.C2, jzcrypto.MulPoint(ct.C1, keySwitch)),
			}
		}
		out[i] = jzcrypto.ElGamalRerandomize(pk, ct, rho)
	}

	pkDelta := jzcrypto.PointIdentity()
	if !keySwitch.IsZero() {
		pkDelta = jzcrypto.MulBase(keySwitch)
	}
	publics, err := PublicInputs(pk, pkDelta, in, out)
	if err != nil {
		return Result{}, err
	}

	return Result{Deck: out, Witness: w, PublicInputs: publics}, nil
}

// randomPermutation draws a uniform Fisher-Yates permutation of the 52
// positions from rng.
func randomPermutation(rng Rng) ([DeckSize]int, error) {
	var perm [DeckSize]int
	for i := range perm {
		perm[i] = i
	}
	for i := DeckSize - 1; i > 0; i-- {
		b, err := rng.NextBytes(8)
		if err != nil {
			return perm, err
		}
		j := int(binary.LittleEndian.Uint64(b) % uint64(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm, nil
}

// PublicInputs lays out the shuffle statement in the order the verifier
// expects: new key, key-switch delta, input deck, output deck, all as
// decimal affine coordinates.
func PublicInputs(pk, pkDelta jzcrypto.Point, in, out Deck) ([]string, error) {
	if err := CheckDeck(in); err != nil {
		return nil, err
	}
	if err := CheckDeck(out); err != nil {
		return nil, err
	}
	publics := make([]string, 0, 4+DeckSize*8)
	appendPoint := func(p jzcrypto.Point) {
		x, y := p.XY()
		publics = append(publics, x, y)
	}
	appendPoint(pk)
	appendPoint(pkDelta)
	for _, ct := range in {
		appendPoint(ct.C1)
		appendPoint(ct.C2)
	}
	for _, ct := range out {
		appendPoint(ct.C1)
		appendPoint(ct.C2)
	}
	return publics, nil
}
