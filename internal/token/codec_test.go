package token_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getlisted/claim-engine/internal/token"
)

const testSecret = "test-signing-key"

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRoundTrip(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c := token.NewCodec(testSecret, fixedClock(now))

	tok, err := c.Issue(token.PurposeClaim, "listing-123")
	require.NoError(t, err)
	assert.NotContains(t, tok, "|", "token must be URL-safe")

	listingID, err := c.Verify(tok, token.PurposeClaim)
	require.NoError(t, err)
	assert.Equal(t, "listing-123", listingID)
}

func TestPurposeMismatch(t *testing.T) {
	c := token.NewCodec(testSecret, nil)

	tok, err := c.Issue(token.PurposeClaim, "listing-123")
	require.NoError(t, err)

	_, err = c.Verify(tok, token.PurposeOptOut)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestExpiry(t *testing.T) {
	issued := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := issued
	c := token.NewCodec(testSecret, func() time.Time { return clock })

	tok, err := c.Issue(token.PurposeClaim, "listing-123")
	require.NoError(t, err)

	// Still valid just inside the 24h window.
	clock = issued.Add(23 * time.Hour)
	_, err = c.Verify(tok, token.PurposeClaim)
	assert.NoError(t, err)

	// Expired at 25 hours, regardless of listing state.
	clock = issued.Add(25 * time.Hour)
	_, err = c.Verify(tok, token.PurposeClaim)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestTamperedSignature(t *testing.T) {
	c := token.NewCodec(testSecret, nil)

	tok, err := c.Issue(token.PurposeOptOut, "listing-9")
	require.NoError(t, err)

	// Flip a character in the signature.
	tampered := tok[:len(tok)-1] + flip(tok[len(tok)-1])
	_, err = c.Verify(tampered, token.PurposeOptOut)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestWrongSecret(t *testing.T) {
	issuer := token.NewCodec("secret-a", nil)
	verifier := token.NewCodec("secret-b", nil)

	tok, err := issuer.Issue(token.PurposeClaim, "listing-1")
	require.NoError(t, err)

	_, err = verifier.Verify(tok, token.PurposeClaim)
	assert.ErrorIs(t, err, token.ErrInvalid)
}

func TestMalformed(t *testing.T) {
	c := token.NewCodec(testSecret, nil)

	for _, tok := range []string{"", "garbage", "a.b.c", "!!!.deadbeef", strings.Repeat("A", 512)} {
		_, err := c.Verify(tok, token.PurposeClaim)
		assert.ErrorIs(t, err, token.ErrInvalid, "token %q", tok)
	}
}

func TestBadListingID(t *testing.T) {
	c := token.NewCodec(testSecret, nil)

	_, err := c.Issue(token.PurposeClaim, "")
	assert.Error(t, err)
	_, err = c.Issue(token.PurposeClaim, "has|pipe")
	assert.Error(t, err)
}

func flip(b byte) string {
	if b == '0' {
		return "1"
	}
	return "0"
}
