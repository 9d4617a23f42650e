// Package token issues and verifies the signed, expiring tokens embedded in
// claim-verification and opt-out links.
//
// Tokens are self-contained: any process holding the signing secret can verify
// a token issued by any other, so delivery scales horizontally with no shared
// state. The wire format is base64url(purpose|listingID|issued|expires) + "."
// + hex HMAC-SHA256.
package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/getlisted/claim-engine/internal/pkg/logger"
)

// Purpose scopes a token to the single endpoint allowed to consume it.
type Purpose string

const (
	PurposeClaim  Purpose = "claim"
	PurposeOptOut Purpose = "optout"
)

// Validity windows per purpose. Opt-out links live longer because they sit in
// inboxes for the whole campaign.
const (
	ClaimTTL  = 24 * time.Hour
	OptOutTTL = 30 * 24 * time.Hour
)

// ErrInvalid is the only error Verify returns. Callers must not distinguish
// expired from tampered tokens in user-facing messaging; the precise reason
// is logged at DEBUG.
var ErrInvalid = errors.New("token invalid")

// Codec creates and validates tokens. The secret and clock are injected so
// verification stays pure and testable.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a codec. A nil now defaults to time.Now.
func NewCodec(secret string, now func() time.Time) *Codec {
	if now == nil {
		now = time.Now
	}
	return &Codec{secret: []byte(secret), now: now}
}

// Issue creates a signed token authorizing the given purpose on a listing.
// The expiry is fixed at issuance.
func (c *Codec) Issue(purpose Purpose, listingID string) (string, error) {
	if listingID == "" || strings.Contains(listingID, "|") {
		return "", fmt.Errorf("issue token: bad listing id %q", listingID)
	}
	issued := c.now().UTC()
	expires := issued.Add(ttlFor(purpose))

	data := fmt.Sprintf("%s|%s|%d|%d", purpose, listingID, issued.Unix(), expires.Unix())
	encoded := base64.RawURLEncoding.EncodeToString([]byte(data))
	return encoded + "." + c.sign(data), nil
}

// Verify recomputes the signature and checks purpose and expiry. On success
// it returns the listing id the token authorizes action on.
func (c *Codec) Verify(tok string, expected Purpose) (string, error) {
	encoded, sig, ok := strings.Cut(tok, ".")
	if !ok {
		return "", c.invalid("malformed", "")
	}
	decoded, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", c.invalid("bad encoding", "")
	}
	data := string(decoded)
	if !hmac.Equal([]byte(c.sign(data)), []byte(sig)) {
		return "", c.invalid("bad signature", "")
	}

	parts := strings.Split(data, "|")
	if len(parts) != 4 {
		return "", c.invalid("bad payload", "")
	}
	purpose, listingID := Purpose(parts[0]), parts[1]
	expires, err := strconv.ParseInt(parts[3], 10, 64)
	if err != nil {
		return "", c.invalid("bad expiry", listingID)
	}
	if purpose != expected {
		return "", c.invalid("purpose mismatch", listingID)
	}
	if c.now().UTC().After(time.Unix(expires, 0)) {
		return "", c.invalid("expired", listingID)
	}
	return listingID, nil
}

func (c *Codec) sign(data string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// invalid logs the real failure reason and returns the opaque sentinel.
func (c *Codec) invalid(reason, listingID string) error {
	logger.Debug("token rejected", "reason", reason, "listing_id", listingID)
	return ErrInvalid
}

func ttlFor(p Purpose) time.Duration {
	if p == PurposeOptOut {
		return OptOutTTL
	}
	return ClaimTTL
}
