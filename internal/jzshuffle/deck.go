// Package jzshuffle permutes and re-randomizes an encrypted deck and
// produces the witness needed to prove the shuffle.
package jzshuffle

import (
	"fmt"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

const DeckSize = jzcrypto.DeckSize

// Deck is an ordered sequence of exactly 52 ciphertexts. It is only ever
// replaced wholesale by a shuffle, never edited card by card.
type Deck []jzcrypto.ElGamalCiphertext

func CheckDeck(d Deck) error {
	if len(d) != DeckSize {
		return fmt.Errorf("deck: expected %d ciphertexts, got %d", DeckSize, len(d))
	}
	return nil
}

// BaseDeck returns the canonical unshuffled deck as degenerate ciphertexts
// (C1 = identity, C2 = card point). A first shuffle re-randomizes these into
// real encryptions, so the chain can derive the input side of the first
// shuffle's public inputs on its own.
func BaseDeck() Deck {
	d := make(Deck, DeckSize)
	for c := 0; c < DeckSize; c++ {
		m, _ := jzcrypto.EncodeCard(uint8(c))
		d[c] = jzcrypto.ElGamalCiphertext{C1: jzcrypto.PointIdentity(), C2: m}
	}
	return d
}
