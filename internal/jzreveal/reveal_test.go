package jzreveal

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/reliqlabs/juodzekas/internal/jzcrypto"
)

func setupCiphertext(t *testing.T, card uint8) (dealer, player jzcrypto.KeyPair, ct jzcrypto.ElGamalCiphertext) {
	t.Helper()
	dealer, err := jzcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	player, err = jzcrypto.GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	agg, err := jzcrypto.AggregateKeys(dealer.Public, player.Public)
	require.NoError(t, err)

	m, err := jzcrypto.EncodeCard(card)
	require.NoError(t, err)
	r, err := jzcrypto.HashToScalar("test/reveal", []byte{card})
	require.NoError(t, err)
	ct, err = jzcrypto.ElGamalEncrypt(agg, m, r)
	require.NoError(t, err)
	return dealer, player, ct
}

func TestCombineRecoversCard(t *testing.T) {
	const card = uint8(37)
	dealer, player, ct := setupCiphertext(t, card)

	dRes, err := RevealShare(dealer.Secret, ct, dealer.Public)
	require.NoError(t, err)
	pRes, err := RevealShare(player.Secret, ct, player.Public)
	require.NoError(t, err)

	got, err := Combine(ct, []jzcrypto.Point{dRes.Share, pRes.Share})
	require.NoError(t, err)
	require.Equal(t, card, got)
}

func TestCombineSingleShareIsIncomplete(t *testing.T) {
	dealer, _, ct := setupCiphertext(t, 5)
	share := Share(dealer.Secret, ct)

	_, err := Combine(ct, []jzcrypto.Point{share})
	require.ErrorIs(t, err, ErrIncompleteReveal)
}

func TestCombineTamperedShareIsInconsistent(t *testing.T) {
	dealer, player, ct := setupCiphertext(t, 12)

	// Offset by 100*G: the combined plaintext lands outside the 52-card
	// table instead of shifting to an adjacent valid card.
	good := Share(dealer.Secret, ct)
	bad := jzcrypto.PointAdd(Share(player.Secret, ct), jzcrypto.MulBase(jzcrypto.ScalarFromUint64(100)))

	_, err := Combine(ct, []jzcrypto.Point{good, bad})
	require.ErrorIs(t, err, ErrInconsistentShare)
}

func TestRevealShareRejectsMismatchedKey(t *testing.T) {
	dealer, player, ct := setupCiphertext(t, 0)
	_, err := RevealShare(dealer.Secret, ct, player.Public)
	require.Error(t, err)
}

func TestPublicInputsOrder(t *testing.T) {
	dealer, _, ct := setupCiphertext(t, 9)
	res, err := RevealShare(dealer.Secret, ct, dealer.Public)
	require.NoError(t, err)
	require.Len(t, res.PublicInputs, 6)

	sx, sy := res.Share.XY()
	cx, cy := ct.C1.XY()
	px, py := dealer.Public.XY()
	require.Equal(t, []string{sx, sy, cx, cy, px, py}, res.PublicInputs)
}
