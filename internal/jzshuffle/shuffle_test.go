package jzshuffle

import (
	"crypto/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

func testKeys(t *testing.T) (dealer, player jzcrypto.KeyPair, agg jzcrypto.Point) {
	t.Helper()
	dealer, err := jzcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	player, err = jzcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	agg, err = jzcrypto.AggregateKeys(dealer.Public, player.Public)
	require.NoError(t, err)
	return dealer, player, agg
}

func decryptDeck(t *testing.T, sk jzcrypto.Scalar, d Deck) []uint8 {
	t.Helper()
	cards := make([]uint8, 0, DeckSize)
	for i, ct := range d {
		c, err := jzcrypto.DecodeCard(jzcrypto.ElGamalDecrypt(sk, ct))
		require.NoError(t, err, "position %d", i)
		cards = append(cards, c)
	}
	return cards
}

func TestShufflePreservesMultiset(t *testing.T) {
	dealer, _, _ := testKeys(t)

	rng, err := NewDeterministicRng([]byte("shuffle-multiset"))
	require.NoError(t, err)

	res, err := Shuffle(rng, BaseDeck(), dealer.Public)
	require.NoError(t, err)
	require.NoError(t, CheckDeck(res.Deck))

	cards := decryptDeck(t, dealer.Secret, res.Deck)
	sorted := append([]uint8(nil), cards...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	for c := 0; c < DeckSize; c++ {
		require.Equal(t, uint8(c), sorted[c])
	}
}

func TestShuffleKeySwitchMovesDeckUnderAggregatedKey(t *testing.T) {
	dealer, player, agg := testKeys(t)

	rng1, err := NewDeterministicRng([]byte("dealer-shuffle"))
	require.NoError(t, err)
	dealerRes, err := Shuffle(rng1, BaseDeck(), dealer.Public)
	require.NoError(t, err)

	rng2, err := NewDeterministicRng([]byte("player-shuffle"))
	require.NoError(t, err)
	playerRes, err := ShuffleKeySwitch(rng2, dealerRes.Deck, agg, player.Secret)
	require.NoError(t, err)

	// After the key switch the full secret is the sum of both parties'.
	skFull := jzcrypto.ScalarAdd(dealer.Secret, player.Secret)
	cards := decryptDeck(t, skFull, playerRes.Deck)
	seen := make(map[uint8]bool, DeckSize)
	for _, c := range cards {
		require.False(t, seen[c], "card %d dealt twice", c)
		seen[c] = true
	}
	require.Len(t, seen, DeckSize)
}

func TestShuffleDeterministicWithSameSeed(t *testing.T) {
	dealer, _, _ := testKeys(t)

	rngA, err := NewDeterministicRng([]byte("seed"))
	require.NoError(t, err)
	rngB, err := NewDeterministicRng([]byte("seed"))
	require.NoError(t, err)

	a, err := Shuffle(rngA, BaseDeck(), dealer.Public)
	require.NoError(t, err)
	b, err := Shuffle(rngB, BaseDeck(), dealer.Public)
	require.NoError(t, err)

	require.Equal(t, a.Witness.Perm, b.Witness.Perm)
	for i := range a.Deck {
		require.True(t, jzcrypto.PointEq(a.Deck[i].C1, b.Deck[i].C1))
		require.True(t, jzcrypto.PointEq(a.Deck[i].C2, b.Deck[i].C2))
	}
}

func TestShuffleWitnessMatchesOutput(t *testing.T) {
	dealer, _, _ := testKeys(t)

	rng, err := NewDeterministicRng([]byte("witness"))
	require.NoError(t, err)
	in := BaseDeck()
	res, err := Shuffle(rng, in, dealer.Public)
	require.NoError(t, err)

	for i := 0; i < DeckSize; i++ {
		want := jzcrypto.ElGamalRerandomize(dealer.Public, in[res.Witness.Perm[i]], res.Witness.Rerand[i])
		require.True(t, jzcrypto.PointEq(want.C1, res.Deck[i].C1))
		require.True(t, jzcrypto.PointEq(want.C2, res.Deck[i].C2))
	}
}

func TestPublicInputsLayout(t *testing.T) {
	dealer, _, _ := testKeys(t)

	rng, err := NewDeterministicRng([]byte("publics"))
	require.NoError(t, err)
	in := BaseDeck()
	res, err := Shuffle(rng, in, dealer.Public)
	require.NoError(t, err)

	require.Len(t, res.PublicInputs, 4+DeckSize*8)

	// The chain re-derives the statement from stored data; both sides must
	// agree byte for byte.
	derived, err := PublicInputs(dealer.Public, jzcrypto.PointIdentity(), in, res.Deck)
	require.NoError(t, err)
	require.Equal(t, derived, res.PublicInputs)
}

func TestDeckCodecRoundTrip(t *testing.T) {
	dealer, _, _ := testKeys(t)
	rng, err := NewDeterministicRng([]byte("codec"))
	require.NoError(t, err)
	res, err := Shuffle(rng, BaseDeck(), dealer.Public)
	require.NoError(t, err)

	blobs, err := EncodeDeck(res.Deck)
	require.NoError(t, err)
	back, err := DecodeDeck(blobs)
	require.NoError(t, err)
	for i := range back {
		require.True(t, jzcrypto.PointEq(res.Deck[i].C2, back[i].C2))
	}

	blobs[3] = blobs[3][:10]
	_, err = DecodeDeck(blobs)
	require.Error(t, err)
}
