// Package claim implements the listing claim state machine: request a claim,
// verify the emailed token, and opt a listing's campaign out of outreach.
//
// All coordination lives in the ownership store's conditional update; the
// service itself is stateless and safe for concurrent use. Repository
// implementations live in repository/postgres/.
package claim
