package payment

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSignerRoundTrip(t *testing.T) {
	s, err := NewSigner("s3cr3t")
	require.NoError(t, err)

	sig := s.Sign("order_abc", "pay_123")
	require.Len(t, sig, 64)
	require.NoError(t, s.Verify("order_abc", "pay_123", sig))
}

func TestSignerKnownVector(t *testing.T) {
	s, err := NewSigner("key")
	require.NoError(t, err)
	// HMAC-SHA256("key", "The quick brown fox jumps over the lazy dog")
	require.Equal(t,
		"f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8",
		s.SignPayload([]byte("The quick brown fox jumps over the lazy dog")),
	)
}

func TestSignerRejectsSingleBitFlip(t *testing.T) {
	s, err := NewSigner("s3cr3t")
	require.NoError(t, err)
	raw, err := hex.DecodeString(s.Sign("order_abc", "pay_123"))
	require.NoError(t, err)

	for i := 0; i < len(raw)*8; i += 13 {
		mutated := append([]byte(nil), raw...)
		mutated[i/8] ^= 1 << (i % 8)
		require.ErrorIs(t, s.Verify("order_abc", "pay_123", hex.EncodeToString(mutated)), ErrInvalidSignature)
	}
}

func TestSignerRejectsWrongInputs(t *testing.T) {
	s, err := NewSigner("s3cr3t")
	require.NoError(t, err)
	sig := s.Sign("order_abc", "pay_123")

	require.ErrorIs(t, s.Verify("order_abd", "pay_123", sig), ErrInvalidSignature)
	require.ErrorIs(t, s.Verify("order_abc", "pay_124", sig), ErrInvalidSignature)
	require.ErrorIs(t, s.Verify("order_abc", "pay_123", "zz-not-hex"), ErrInvalidSignature)
	require.ErrorIs(t, s.Verify("order_abc", "pay_123", ""), ErrInvalidSignature)

	other, err := NewSigner("other")
	require.NoError(t, err)
	require.ErrorIs(t, other.Verify("order_abc", "pay_123", sig), ErrInvalidSignature)
}

func TestNewSignerRequiresSecret(t *testing.T) {
	_, err := NewSigner("")
	require.ErrorIs(t, err, ErrSecretRequired)
}
