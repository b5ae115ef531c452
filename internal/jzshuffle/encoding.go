package jzshuffle

import (
	"fmt"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

const CiphertextBytes = 2 * jzcrypto.PointBytes

func EncodeCiphertext(ct jzcrypto.ElGamalCiphertext) []byte {
	return append(ct.C1.Bytes(), ct.C2.Bytes()...)
}

func DecodeCiphertext(b []byte) (jzcrypto.ElGamalCiphertext, error) {
	if len(b) != CiphertextBytes {
		return jzcrypto.ElGamalCiphertext{}, fmt.Errorf("decodeCiphertext: expected %d bytes", CiphertextBytes)
	}
	c1, err := jzcrypto.PointFromBytesCanonical(b[:jzcrypto.PointBytes])
	if err != nil {
		return jzcrypto.ElGamalCiphertext{}, err
	}
	c2, err := jzcrypto.PointFromBytesCanonical(b[jzcrypto.PointBytes:])
	if err != nil {
		return jzcrypto.ElGamalCiphertext{}, err
	}
	return jzcrypto.ElGamalCiphertext{C1: c1, C2: c2}, nil
}

// EncodeDeck flattens a deck into per-card 64-byte blobs (the wire form
// carried by create/join transactions).
func EncodeDeck(d Deck) ([][]byte, error) {
	if err := CheckDeck(d); err != nil {
		return nil, err
	}
	out := make([][]byte, DeckSize)
	for i, ct := range d {
		out[i] = EncodeCiphertext(ct)
	}
	return out, nil
}

func DecodeDeck(blobs [][]byte) (Deck, error) {
	if len(blobs) != DeckSize {
		return nil, fmt.Errorf("decodeDeck: expected %d ciphertexts, got %d", DeckSize, len(blobs))
	}
	d := make(Deck, DeckSize)
	for i, b := range blobs {
		ct, err := DecodeCiphertext(b)
		if err != nil {
			return nil, fmt.Errorf("decodeDeck: card %d: %w", i, err)
		}
		d[i] = ct
	}
	return d, nil
}
