package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	red "github.com/redis/go-redis/v9"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/repository"
)

const (
	defaultOTPPrefix = "evote:otp"

	fieldCodeHash = "code_hash"
	fieldIssuedAt = "issued_at"
	fieldResendAt = "resend_at"
	fieldAttempts = "attempts"
)

// OTPRepository implements port.OTPStore in Redis. One hash per voter; Put
// overwrites the whole hash, which is what invalidates a previously issued
// code on reissue.
type OTPRepository struct {
	client *red.Client
	prefix string
}

// NewOTPRepository constructs an OTP store with the provided Redis client and key prefix.
func NewOTPRepository(client *red.Client, keyPrefix string) *OTPRepository {
	prefix := strings.TrimSpace(keyPrefix)
	if prefix == "" {
		prefix = defaultOTPPrefix
	}

	return &OTPRepository{client: client, prefix: prefix}
}

// Put stores the issued code state, replacing any previous one.
func (r *OTPRepository) Put(ctx context.Context, voterID string, state domain.OTPState, ttl time.Duration) error {
	voterID = strings.TrimSpace(voterID)
	switch {
	case voterID == "":
		return errors.New("voter id is required")
	case state.CodeHash == "":
		return errors.New("code hash is required")
	case ttl <= 0:
		return errors.New("ttl must be positive")
	}

	key := r.key(voterID)

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, map[string]any{
		fieldCodeHash: state.CodeHash,
		fieldIssuedAt: strconv.FormatInt(state.IssuedAt.Unix(), 10),
		fieldResendAt: strconv.FormatInt(state.ResendAvailableAt.Unix(), 10),
		fieldAttempts: strconv.Itoa(state.Attempts),
	})
	pipe.Expire(ctx, key, ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store otp: %w", err)
	}

	return nil
}

// Get retrieves the currently issued code state for the voter.
func (r *OTPRepository) Get(ctx context.Context, voterID string) (*domain.OTPState, error) {
	key := r.key(strings.TrimSpace(voterID))

	values, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall otp: %w", err)
	}
	if len(values) == 0 {
		return nil, repository.ErrNotFound
	}

	codeHash := strings.TrimSpace(values[fieldCodeHash])
	if codeHash == "" {
		return nil, repository.ErrNotFound
	}

	issuedAt, err := parseUnix(values[fieldIssuedAt])
	if err != nil {
		return nil, fmt.Errorf("parse issued_at: %w", err)
	}

	resendAt, err := parseUnix(values[fieldResendAt])
	if err != nil {
		return nil, fmt.Errorf("parse resend_at: %w", err)
	}

	attempts := 0
	if raw := values[fieldAttempts]; raw != "" {
		if v, convErr := strconv.Atoi(raw); convErr == nil {
			attempts = v
		}
	}

	return &domain.OTPState{
		CodeHash:          codeHash,
		IssuedAt:          issuedAt,
		ResendAvailableAt: resendAt,
		Attempts:          attempts,
	}, nil
}

// IncrementAttempts increments the failed validation counter and returns the new value.
func (r *OTPRepository) IncrementAttempts(ctx context.Context, voterID string) (int, error) {
	if _, err := r.Get(ctx, voterID); err != nil {
		return 0, err
	}

	key := r.key(strings.TrimSpace(voterID))
	count, err := r.client.HIncrBy(ctx, key, fieldAttempts, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("redis hincrby otp attempts: %w", err)
	}

	return int(count), nil
}

// Delete removes the code state, enforcing single-use semantics.
func (r *OTPRepository) Delete(ctx context.Context, voterID string) error {
	key := r.key(strings.TrimSpace(voterID))

	deleted, err := r.client.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis delete otp: %w", err)
	}
	if deleted == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *OTPRepository) key(voterID string) string {
	return fmt.Sprintf("%s:%s", r.prefix, voterID)
}

func parseUnix(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	seconds, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, err
	}

	return time.Unix(seconds, 0).UTC(), nil
}

var _ port.OTPStore = (*OTPRepository)(nil)
