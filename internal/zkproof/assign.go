package zkproof

import (
	"fmt"

	"github.com/consensys/gnark/std/algebra/native/twistededwards"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
	"github.com/reliqlabs/juodzekas/internal/jzreveal"
	"github.com/reliqlabs/juodzekas/internal/jzshuffle"
)

func pointVar(p jzcrypto.Point) twistededwards.Point {
	x, y := p.XY()
	return twistededwards.Point{X: x, Y: y}
}

func ciphertextVar(ct jzcrypto.ElGamalCiphertext) CiphertextVar {
	return CiphertextVar{C1: pointVar(ct.C1), C2: pointVar(ct.C2)}
}

// ShuffleAssignment builds the full witness assignment for a shuffle over
// in -> out under pk, from the private witness produced by the shuffle
// engine.
func ShuffleAssignment(pk jzcrypto.Point, in, out jzshuffle.Deck, w jzshuffle.Witness) (*ShuffleCircuit, error) {
	if len(in) != DeckSize || len(out) != DeckSize {
		return nil, fmt.Errorf("shuffle assignment: expected %d-card decks", DeckSize)
	}
	c := NewShuffleCircuit(DeckSize)
	c.Pk = pointVar(pk)
	pkDelta := jzcrypto.PointIdentity()
	if !w.KeySwitch.IsZero() {
		pkDelta = jzcrypto.MulBase(w.KeySwitch)
	}
	c.PkDelta = pointVar(pkDelta)
	for i := 0; i < DeckSize; i++ {
		c.In[i] = ciphertextVar(in[i])
		c.Out[i] = ciphertextVar(out[i])
		for j := 0; j < DeckSize; j++ {
			if w.Perm[i] == j {
				c.Perm[i][j] = 1
			} else {
				c.Perm[i][j] = 0
			}
		}
		c.Rand[i] = w.Rerand[i].String()
	}
	c.KeySwitch = w.KeySwitch.String()
	return c, nil
}

// RevealAssignment builds the witness assignment for a partial decryption
// of ct by the party holding w.SK.
func RevealAssignment(ct jzcrypto.ElGamalCiphertext, share jzcrypto.Point, pk jzcrypto.Point, w jzreveal.Witness) (*RevealCircuit, error) {
	if w.SK.IsZero() {
		return nil, fmt.Errorf("reveal assignment: zero secret")
	}
	return &RevealCircuit{
		Share: pointVar(share),
		C1:    pointVar(ct.C1),
		Pk:    pointVar(pk),
		Sk:    w.SK.String(),
	}, nil
}
