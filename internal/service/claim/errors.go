package claim

import "errors"

// Sentinel errors for the claim service layer.
var (
	// ErrTokenInvalid covers malformed, tampered, wrong-purpose and expired
	// tokens alike; callers surface one generic message for all of them.
	ErrTokenInvalid = errors.New("claim link invalid or expired")

	// ErrAlreadyClaimed is a lost race on finalize, not a token problem. It
	// gets its own user-visible message.
	ErrAlreadyClaimed = errors.New("listing already claimed")

	ErrNotFound     = errors.New("listing not found")
	ErrNotClaimable = errors.New("listing is not open to claims")
)
