package claim_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/getlisted/claim-engine/internal/domain"
	"github.com/getlisted/claim-engine/internal/service/claim"
	"github.com/getlisted/claim-engine/internal/token"
)

// memStore is an in-memory ownership store. ConditionalSetClaimed performs a
// real compare-and-set under a mutex, so the concurrency tests exercise the
// same exactly-once property the SQL implementation provides.
type memStore struct {
	mu       sync.Mutex
	listings map[string]*domain.Listing
}

func newMemStore(listings ...*domain.Listing) *memStore {
	m := &memStore{listings: make(map[string]*domain.Listing)}
	for _, l := range listings {
		m.listings[l.ID] = l
	}
	return m
}

func (m *memStore) GetListing(_ context.Context, id string) (*domain.Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, claim.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) ConditionalSetClaimed(_ context.Context, listingID, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[listingID]
	if !ok {
		return claim.ErrNotFound
	}
	if l.OwnershipState != domain.OwnershipUnclaimed {
		return claim.ErrAlreadyClaimed
	}
	l.OwnershipState = domain.OwnershipClaimed
	l.OwnerID = &ownerID
	return nil
}

// memCampaigns records campaign side effects.
type memCampaigns struct {
	mu        sync.Mutex
	completed map[string]int
	optedOut  map[string]int
}

func newMemCampaigns() *memCampaigns {
	return &memCampaigns{completed: make(map[string]int), optedOut: make(map[string]int)}
}

func (m *memCampaigns) CompleteForListing(_ context.Context, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed[listingID]++
	return nil
}

func (m *memCampaigns) MarkOptedOut(_ context.Context, listingID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.optedOut[listingID]++
	return nil
}

// fakeDispatcher records sends; fail makes every send error.
type fakeDispatcher struct {
	mu    sync.Mutex
	sends []sentMail
	fail  bool
}

type sentMail struct {
	template string
	to       string
	payload  map[string]interface{}
}

func (f *fakeDispatcher) Send(_ context.Context, templateID, to string, payload map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("smtp down")
	}
	f.sends = append(f.sends, sentMail{template: templateID, to: to, payload: payload})
	return nil
}

func unclaimedListing(id string) *domain.Listing {
	return &domain.Listing{
		ID:             id,
		Name:           "Riverside Bakery",
		Email:          "owner@riverside.example",
		OwnershipState: domain.OwnershipUnclaimed,
		Plan:           domain.PlanFree,
		Status:         domain.ListingLive,
	}
}

func newService(store *memStore, campaigns *memCampaigns, mail *fakeDispatcher) (*claim.Service, *token.Codec) {
	codec := token.NewCodec("test-secret", nil)
	return claim.NewService(store, campaigns, codec, mail, "https://dir.example.com"), codec
}

func TestRequestClaimNeverMutatesOwnership(t *testing.T) {
	store := newMemStore(unclaimedListing("l1"))
	mail := &fakeDispatcher{}
	svc, _ := newService(store, newMemCampaigns(), mail)

	if err := svc.RequestClaim(context.Background(), "l1", "I own this"); err != nil {
		t.Fatalf("RequestClaim: %v", err)
	}

	l, _ := store.GetListing(context.Background(), "l1")
	if l.OwnershipState != domain.OwnershipUnclaimed {
		t.Fatalf("ownership mutated to %s", l.OwnershipState)
	}
	if len(mail.sends) != 1 {
		t.Fatalf("expected 1 email, got %d", len(mail.sends))
	}
	sent := mail.sends[0]
	if sent.template != domain.TemplateClaimVerification {
		t.Fatalf("wrong template %s", sent.template)
	}
	if sent.to != "owner@riverside.example" {
		t.Fatalf("sent to %s", sent.to)
	}
	url, _ := sent.payload["verify_url"].(string)
	if !strings.HasPrefix(url, "https://dir.example.com/claim/verify/") {
		t.Fatalf("bad verify url %q", url)
	}
}

func TestRequestClaimErrors(t *testing.T) {
	claimed := unclaimedListing("l2")
	owner := "v-1"
	claimed.OwnershipState = domain.OwnershipClaimed
	claimed.OwnerID = &owner

	svc, _ := newService(newMemStore(claimed), newMemCampaigns(), &fakeDispatcher{})

	if err := svc.RequestClaim(context.Background(), "missing", ""); !errors.Is(err, claim.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
	if err := svc.RequestClaim(context.Background(), "l2", ""); !errors.Is(err, claim.ErrNotClaimable) {
		t.Fatalf("want ErrNotClaimable, got %v", err)
	}
}

func TestVerifyClaimTransfersOwnershipOnce(t *testing.T) {
	store := newMemStore(unclaimedListing("l1"))
	campaigns := newMemCampaigns()
	svc, codec := newService(store, campaigns, &fakeDispatcher{})

	tok, err := codec.Issue(token.PurposeClaim, "l1")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.VerifyClaim(context.Background(), tok, "vendor-1"); err != nil {
		t.Fatalf("first verify: %v", err)
	}

	l, _ := store.GetListing(context.Background(), "l1")
	if l.OwnershipState != domain.OwnershipClaimed || l.OwnerID == nil || *l.OwnerID != "vendor-1" {
		t.Fatalf("bad final state: %+v", l)
	}
	if campaigns.completed["l1"] != 1 {
		t.Fatalf("campaign not completed")
	}

	// Second click on the same (structurally valid) link.
	if err := svc.VerifyClaim(context.Background(), tok, "vendor-2"); !errors.Is(err, claim.ErrAlreadyClaimed) {
		t.Fatalf("want ErrAlreadyClaimed, got %v", err)
	}
	l, _ = store.GetListing(context.Background(), "l1")
	if *l.OwnerID != "vendor-1" {
		t.Fatalf("owner overwritten to %s", *l.OwnerID)
	}
}

func TestVerifyClaimConcurrent(t *testing.T) {
	store := newMemStore(unclaimedListing("l1"))
	svc, codec := newService(store, newMemCampaigns(), &fakeDispatcher{})

	tok, err := codec.Issue(token.PurposeClaim, "l1")
	if err != nil {
		t.Fatal(err)
	}

	const n = 25
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- svc.VerifyClaim(context.Background(), tok, "vendor-x")
		}()
	}
	wg.Wait()
	close(results)

	var ok, already int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, claim.ErrAlreadyClaimed):
			already++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || already != n-1 {
		t.Fatalf("want exactly one winner, got ok=%d already=%d", ok, already)
	}
}

func TestVerifyClaimExpiredToken(t *testing.T) {
	store := newMemStore(unclaimedListing("l4"))
	campaigns := newMemCampaigns()
	issued := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	clock := issued
	codec := token.NewCodec("test-secret", func() time.Time { return clock })
	svc := claim.NewService(store, campaigns, codec, &fakeDispatcher{}, "https://dir.example.com")

	tok, err := codec.Issue(token.PurposeClaim, "l4")
	if err != nil {
		t.Fatal(err)
	}

	clock = issued.Add(25 * time.Hour)
	if err := svc.VerifyClaim(context.Background(), tok, "vendor-1"); !errors.Is(err, claim.ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid, got %v", err)
	}
	l, _ := store.GetListing(context.Background(), "l4")
	if l.OwnershipState != domain.OwnershipUnclaimed {
		t.Fatalf("expired token mutated ownership")
	}
}

func TestVerifyClaimRejectsOptOutToken(t *testing.T) {
	svc, codec := newService(newMemStore(unclaimedListing("l1")), newMemCampaigns(), &fakeDispatcher{})

	tok, err := codec.Issue(token.PurposeOptOut, "l1")
	if err != nil {
		t.Fatal(err)
	}
	if err := svc.VerifyClaim(context.Background(), tok, "v"); !errors.Is(err, claim.ErrTokenInvalid) {
		t.Fatalf("want ErrTokenInvalid, got %v", err)
	}
}

func TestOptOutIdempotent(t *testing.T) {
	campaigns := newMemCampaigns()
	svc, codec := newService(newMemStore(unclaimedListing("l1")), campaigns, &fakeDispatcher{})

	tok, err := codec.Issue(token.PurposeOptOut, "l1")
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.OptOut(context.Background(), tok); err != nil {
		t.Fatalf("first opt-out: %v", err)
	}
	if err := svc.OptOut(context.Background(), tok); err != nil {
		t.Fatalf("second opt-out must be a no-op, got %v", err)
	}
	if campaigns.optedOut["l1"] != 2 {
		t.Fatalf("store should see both idempotent calls, got %d", campaigns.optedOut["l1"])
	}
}

func TestRequestClaimDispatchFailure(t *testing.T) {
	store := newMemStore(unclaimedListing("l1"))
	svc, _ := newService(store, newMemCampaigns(), &fakeDispatcher{fail: true})

	if err := svc.RequestClaim(context.Background(), "l1", ""); err == nil {
		t.Fatal("expected dispatch error")
	}
	l, _ := store.GetListing(context.Background(), "l1")
	if l.OwnershipState != domain.OwnershipUnclaimed {
		t.Fatal("ownership mutated on failed request")
	}
}
