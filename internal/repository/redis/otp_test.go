package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	red "github.com/redis/go-redis/v9"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/repository"
)

func newTestRedis(t *testing.T) (*red.Client, *miniredis.Miniredis) {
	t.Helper()

	server, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}

	client := red.NewClient(&red.Options{Addr: server.Addr()})

	t.Cleanup(func() {
		_ = client.Close()
		server.Close()
	})

	return client, server
}

func testOTPState(issuedAt time.Time) domain.OTPState {
	return domain.OTPState{
		CodeHash:          "a3f1b2c4d5e6f708192a3b4c5d6e7f80a3f1b2c4d5e6f708192a3b4c5d6e7f80",
		IssuedAt:          issuedAt,
		ResendAvailableAt: issuedAt.Add(30 * time.Second),
		Attempts:          0,
	}
}

func TestOTPRepository_PutAndGet(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	ctx := context.Background()
	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	ttl := 5 * time.Minute

	if err := repo.Put(ctx, "ABC1234567", testOTPState(issuedAt), ttl); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	state, err := repo.Get(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if state.CodeHash != testOTPState(issuedAt).CodeHash {
		t.Fatalf("unexpected code hash %q", state.CodeHash)
	}
	if !state.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected issued at %v, got %v", issuedAt, state.IssuedAt)
	}
	if !state.ResendAvailableAt.Equal(issuedAt.Add(30 * time.Second)) {
		t.Fatalf("unexpected resend time %v", state.ResendAvailableAt)
	}
	if state.Attempts != 0 {
		t.Fatalf("expected 0 attempts, got %d", state.Attempts)
	}

	remaining := server.TTL("evote:otp:ABC1234567")
	if remaining <= 0 || remaining > ttl {
		t.Fatalf("expected ttl within (0, %v], got %v", ttl, remaining)
	}
}

func TestOTPRepository_PutReplacesPriorState(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	ctx := context.Background()
	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Put(ctx, "ABC1234567", testOTPState(issuedAt), 5*time.Minute); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if _, err := repo.IncrementAttempts(ctx, "ABC1234567"); err != nil {
		t.Fatalf("IncrementAttempts returned error: %v", err)
	}

	replacement := testOTPState(issuedAt.Add(time.Minute))
	replacement.CodeHash = "b4c5d6e7f80a3f1b2c4d5e6f708192a3b4c5d6e7f80a3f1b2c4d5e6f708192a3"
	if err := repo.Put(ctx, "ABC1234567", replacement, 5*time.Minute); err != nil {
		t.Fatalf("replace returned error: %v", err)
	}

	state, err := repo.Get(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if state.CodeHash != replacement.CodeHash {
		t.Fatalf("expected replacement hash, got %q", state.CodeHash)
	}
	if state.Attempts != 0 {
		t.Fatalf("expected attempts reset on reissue, got %d", state.Attempts)
	}
}

func TestOTPRepository_GetMiss(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	if _, err := repo.Get(context.Background(), "ABC1234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestOTPRepository_IncrementAttempts(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	ctx := context.Background()
	if _, err := repo.IncrementAttempts(ctx, "ABC1234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without state, got %v", err)
	}

	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.Put(ctx, "ABC1234567", testOTPState(issuedAt), 5*time.Minute); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	for want := 1; want <= 3; want++ {
		count, err := repo.IncrementAttempts(ctx, "ABC1234567")
		if err != nil {
			t.Fatalf("IncrementAttempts returned error: %v", err)
		}
		if count != want {
			t.Fatalf("expected count %d, got %d", want, count)
		}
	}

	state, err := repo.Get(ctx, "ABC1234567")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if state.Attempts != 3 {
		t.Fatalf("expected persisted attempts 3, got %d", state.Attempts)
	}
}

func TestOTPRepository_Delete(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	ctx := context.Background()
	if err := repo.Delete(ctx, "ABC1234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound deleting missing state, got %v", err)
	}

	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.Put(ctx, "ABC1234567", testOTPState(issuedAt), 5*time.Minute); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	if err := repo.Delete(ctx, "ABC1234567"); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}
	if _, err := repo.Get(ctx, "ABC1234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestOTPRepository_ExpiresWithTTL(t *testing.T) {
	client, server := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	ctx := context.Background()
	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)
	if err := repo.Put(ctx, "ABC1234567", testOTPState(issuedAt), 5*time.Minute); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}

	server.FastForward(5*time.Minute + time.Second)

	if _, err := repo.Get(ctx, "ABC1234567"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
}

func TestOTPRepository_InvalidInput(t *testing.T) {
	client, _ := newTestRedis(t)
	repo := NewOTPRepository(client, "evote:otp")

	ctx := context.Background()
	issuedAt := time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

	if err := repo.Put(ctx, "", testOTPState(issuedAt), time.Minute); err == nil {
		t.Fatalf("expected error for empty voter id")
	}
	if err := repo.Put(ctx, "ABC1234567", domain.OTPState{IssuedAt: issuedAt}, time.Minute); err == nil {
		t.Fatalf("expected error for empty code hash")
	}
	if err := repo.Put(ctx, "ABC1234567", testOTPState(issuedAt), 0); err == nil {
		t.Fatalf("expected error for non-positive ttl")
	}
}
