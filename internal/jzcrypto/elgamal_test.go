package jzcrypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateKeysCommutes(t *testing.T) {
	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)

	ab, err := AggregateKeys(a.Public, b.Public)
	require.NoError(t, err)
	ba, err := AggregateKeys(b.Public, a.Public)
	require.NoError(t, err)
	require.True(t, PointEq(ab, ba))
}

func TestAggregateKeysRejectsIdentity(t *testing.T) {
	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	_, err = AggregateKeys(a.Public, PointIdentity())
	require.ErrorIs(t, err, ErrInvalidCurvePoint)
}

func TestEncryptDecryptAllCards(t *testing.T) {
	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	pk, err := AggregateKeys(a.Public, b.Public)
	require.NoError(t, err)
	skFull := ScalarAdd(a.Secret, b.Secret)

	for c := uint8(0); c < DeckSize; c++ {
		m, err := EncodeCard(c)
		require.NoError(t, err)
		r, err := HashToScalar("test/enc", []byte{c})
		require.NoError(t, err)
		ct, err := ElGamalEncrypt(pk, m, r)
		require.NoError(t, err)
		got := ElGamalDecrypt(skFull, ct)
		require.True(t, PointEq(m, got), "card %d", c)
		idx, err := DecodeCard(got)
		require.NoError(t, err)
		require.Equal(t, c, idx)
	}
}

func TestEncryptRejectsZeroRandomness(t *testing.T) {
	a, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	m, err := EncodeCard(0)
	require.NoError(t, err)
	_, err = ElGamalEncrypt(a.Public, m, ScalarZero())
	require.Error(t, err)
}

func TestRerandomizePreservesPlaintext(t *testing.T) {
	kp, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	m, err := EncodeCard(17)
	require.NoError(t, err)
	r, err := HashToScalar("test/r", []byte{1})
	require.NoError(t, err)
	rho, err := HashToScalar("test/rho", []byte{2})
	require.NoError(t, err)

	ct, err := ElGamalEncrypt(kp.Public, m, r)
	require.NoError(t, err)
	ct2 := ElGamalRerandomize(kp.Public, ct, rho)

	require.False(t, PointEq(ct.C1, ct2.C1))
	require.True(t, PointEq(m, ElGamalDecrypt(kp.Secret, ct2)))
}

func TestPointCodecRoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair(rand.Reader)
	require.NoError(t, err)
	b := kp.Public.Bytes()
	require.Len(t, b, PointBytes)
	p, err := PointFromBytesCanonical(b)
	require.NoError(t, err)
	require.True(t, PointEq(kp.Public, p))

	_, err = PointFromBytesCanonical(b[:16])
	require.ErrorIs(t, err, ErrInvalidCurvePoint)
}

func TestScalarCodecRoundTrip(t *testing.T) {
	s, err := HashToScalar("test/scalar", []byte("x"))
	require.NoError(t, err)
	b := s.Bytes()
	require.Len(t, b, ScalarBytes)
	s2, err := ScalarFromBytesCanonical(b)
	require.NoError(t, err)
	require.Equal(t, s.String(), s2.String())
}
