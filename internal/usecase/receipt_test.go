package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voteguard/evote-sessions/internal/core/domain"
)

func TestReceiptPresentRequiresCompleteRecord(t *testing.T) {
	registry := NewSessionRegistry()
	receipts := NewReceiptService(registry)

	if _, err := receipts.Present(""); !errors.Is(err, ErrReceiptUnavailable) {
		t.Fatalf("expected ErrReceiptUnavailable for empty voter, got %v", err)
	}
	if _, err := receipts.Present("ABC1234567"); !errors.Is(err, ErrReceiptUnavailable) {
		t.Fatalf("expected ErrReceiptUnavailable without session, got %v", err)
	}

	session := authenticatedSession(t, registry, "ABC1234567")
	if _, err := receipts.Present("ABC1234567"); !errors.Is(err, ErrReceiptUnavailable) {
		t.Fatalf("expected ErrReceiptUnavailable without record, got %v", err)
	}

	// A record missing its transaction ref never renders.
	session.mu.Lock()
	session.record = &domain.VoteRecord{
		VoterID:     "ABC1234567",
		CandidateID: 1,
		CommittedAt: time.Now().UTC(),
	}
	session.mu.Unlock()

	if _, err := receipts.Present("ABC1234567"); !errors.Is(err, ErrReceiptUnavailable) {
		t.Fatalf("expected ErrReceiptUnavailable for partial record, got %v", err)
	}
}

func TestReceiptPresentResolvesCandidate(t *testing.T) {
	ledger := &fakeLedger{nextRef: "0xabcdef0123456789abcdef0123456789"}
	voting, registry, _ := newVotingFixture(t, ledger)
	receipts := NewReceiptService(registry)
	session := authenticatedSession(t, registry, "ABC1234567")
	ctx := context.Background()

	if _, err := voting.SelectCandidate(ctx, "ABC1234567", domain.NOTACandidateID); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := voting.RequestConfirmation("ABC1234567"); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if _, err := voting.Commit(ctx, *session.Authenticated()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	receipt, err := receipts.Present("ABC1234567")
	if err != nil {
		t.Fatalf("present: %v", err)
	}

	if receipt.Candidate.ID != domain.NOTACandidateID {
		t.Fatalf("expected NOTA candidate, got %d", receipt.Candidate.ID)
	}
	if receipt.TransactionRef != "0xabcdef0123456789abcdef0123456789" {
		t.Fatalf("unexpected transaction ref %q", receipt.TransactionRef)
	}
	if !strings.Contains(receipt.ShortRef, "...") {
		t.Fatalf("expected abbreviated ref, got %q", receipt.ShortRef)
	}
	if !strings.HasPrefix(receipt.ShortRef, receipt.TransactionRef[:10]) {
		t.Fatalf("short ref must keep the leading characters, got %q", receipt.ShortRef)
	}
}

func TestShortenRef(t *testing.T) {
	short := "0xabc"
	if got := shortenRef(short); got != short {
		t.Fatalf("short refs pass through, got %q", got)
	}

	long := "0x" + strings.Repeat("ab", 20)
	got := shortenRef(long)
	if len(got) != 23 {
		t.Fatalf("expected 23 character abbreviation, got %d (%q)", len(got), got)
	}
	if !strings.HasPrefix(got, long[:10]) || !strings.HasSuffix(got, long[len(long)-10:]) {
		t.Fatalf("abbreviation must keep both ends, got %q", got)
	}
}
