// Package zkproof turns shuffle and reveal witnesses into Groth16 proofs
// and verifies proofs against their public statements. The proving backend
// is opaque to callers: the state machine only sees the Verifier interface.
package zkproof

import (
	"fmt"
	"math/big"

	edbn254 "github.com/consensys/gnark-crypto/ecc/bn254/twistededwards"
	ecctweds "github.com/consensys/gnark-crypto/ecc/twistededwards"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

// DeckSize is the deck length proven by the production shuffle circuit.
const DeckSize = jzcrypto.DeckSize

type CiphertextVar struct {
	C1 twistededwards.Point `gnark:",public"`
	C2 twistededwards.Point `gnark:",public"`
}

// ShuffleCircuit proves that Out is a permutation of In where every
// ciphertext has been re-keyed by KeySwitch and re-randomized under Pk:
//
//	Out[i] = (c1 + r_i*G, c2 + KeySwitch*c1 + r_i*Pk)  with (c1,c2) = In[Perm[i]]
//
// PkDelta = KeySwitch*G is public so the verifier can bind the re-keying to
// the joining party's public key (identity for a plain re-shuffle).
type ShuffleCircuit struct {
	Pk      twistededwards.Point `gnark:",public"`
	PkDelta twistededwards.Point `gnark:",public"`
	In      []CiphertextVar      `gnark:",public"`
	Out     []CiphertextVar      `gnark:",public"`

	// Private: boolean permutation matrix (Perm[i][j] = 1 iff output i takes
	// input j), per-output randomness, and the re-keying secret.
	Perm      [][]frontend.Variable
	Rand      []frontend.Variable
	KeySwitch frontend.Variable
}

// NewShuffleCircuit allocates the circuit shape for an n-card deck.
func NewShuffleCircuit(n int) *ShuffleCircuit {
	c := &ShuffleCircuit{
		In:   make([]CiphertextVar, n),
		Out:  make([]CiphertextVar, n),
		Perm: make([][]frontend.Variable, n),
		Rand: make([]frontend.Variable, n),
	}
	for i := range c.Perm {
		c.Perm[i] = make([]frontend.Variable, n)
	}
	return c
}

func circuitBasePoint() twistededwards.Point {
	params := edbn254.GetEdwardsCurve()
	var bx, by big.Int
	params.Base.X.BigInt(&bx)
	params.Base.Y.BigInt(&by)
	return twistededwards.Point{X: bx, Y: by}
}

func (c *ShuffleCircuit) Define(api frontend.API) error {
	n := len(c.In)
	if len(c.Out) != n || len(c.Perm) != n || len(c.Rand) != n {
		return fmt.Errorf("shuffle circuit: inconsistent sizes")
	}

	curve, err := twistededwards.NewEdCurve(api, ecctweds.BN254)
	if err != nil {
		return err
	}
	curve.AssertIsOnCurve(c.Pk)

	base := circuitBasePoint()

	// PkDelta binds the re-keying secret to a public key.
	delta := curve.ScalarMul(base, c.KeySwitch)
	api.AssertIsEqual(delta.X, c.PkDelta.X)
	api.AssertIsEqual(delta.Y, c.PkDelta.Y)

	// Perm is a permutation matrix: boolean entries, rows and columns sum
	// to one.
	for i := 0; i < n; i++ {
		if len(c.Perm[i]) != n {
			return fmt.Errorf("shuffle circuit: ragged permutation matrix")
		}
		rowSum := frontend.Variable(0)
		for j := 0; j < n; j++ {
			api.AssertIsBoolean(c.Perm[i][j])
			rowSum = api.Add(rowSum, c.Perm[i][j])
		}
		api.AssertIsEqual(rowSum, 1)
	}
	for j := 0; j < n; j++ {
		colSum := frontend.Variable(0)
		for i := 0; i < n; i++ {
			colSum = api.Add(colSum, c.Perm[i][j])
		}
		api.AssertIsEqual(colSum, 1)
	}

	for i := 0; i < n; i++ {
		// Select input Perm[i]: with exactly one matrix entry set per row,
		// a linear combination of coordinates selects the point.
		c1 := twistededwards.Point{X: 0, Y: 0}
		c2 := twistededwards.Point{X: 0, Y: 0}
		for j := 0; j < n; j++ {
			c1.X = api.Add(c1.X, api.Mul(c.Perm[i][j], c.In[j].C1.X))
			c1.Y = api.Add(c1.Y, api.Mul(c.Perm[i][j], c.In[j].C1.Y))
			c2.X = api.Add(c2.X, api.Mul(c.Perm[i][j], c.In[j].C2.X))
			c2.Y = api.Add(c2.Y, api.Mul(c.Perm[i][j], c.In[j].C2.Y))
		}

		// Re-key: c2 += KeySwitch*c1.
		ks := curve.ScalarMul(c1, c.KeySwitch)
		c2 = curve.Add(c2, ks)

		// Re-randomize under Pk.
		r1 := curve.ScalarMul(base, c.Rand[i])
		r2 := curve.ScalarMul(c.Pk, c.Rand[i])
		outC1 := curve.Add(c1, r1)
		outC2 := curve.Add(c2, r2)

		api.AssertIsEqual(outC1.X, c.Out[i].C1.X)
		api.AssertIsEqual(outC1.Y, c.Out[i].C1.Y)
		api.AssertIsEqual(outC2.X, c.Out[i].C2.X)
		api.AssertIsEqual(outC2.Y, c.Out[i].C2.Y)
	}
	return nil
}

// RevealCircuit proves a partial decryption share was derived from the
// secret behind Pk: Pk = Sk*G and Share = Sk*C1.
type RevealCircuit struct {
	Share twistededwards.Point `gnark:",public"`
	C1    twistededwards.Point `gnark:",public"`
	Pk    twistededwards.Point `gnark:",public"`

	Sk frontend.Variable
}

func (c *RevealCircuit) Define(api frontend.API) error {
	curve, err := twistededwards.NewEdCurve(api, ecctweds.BN254)
	if err != nil {
		return err
	}
	curve.AssertIsOnCurve(c.Pk)
	curve.AssertIsOnCurve(c.C1)

	base := circuitBasePoint()

	pk := curve.ScalarMul(base, c.Sk)
	api.AssertIsEqual(pk.X, c.Pk.X)
	api.AssertIsEqual(pk.Y, c.Pk.Y)

	share := curve.ScalarMul(c.C1, c.Sk)
	api.AssertIsEqual(share.X, c.Share.X)
	api.AssertIsEqual(share.Y, c.Share.Y)
	return nil
}
