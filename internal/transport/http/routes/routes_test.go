package routes_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/infra/config"
	"github.com/voteguard/evote-sessions/internal/infra/security"
	"github.com/voteguard/evote-sessions/internal/infra/sensor"
	"github.com/voteguard/evote-sessions/internal/repository/memory"
	httproutes "github.com/voteguard/evote-sessions/internal/transport/http/routes"
	"github.com/voteguard/evote-sessions/internal/usecase"
)

type captureDelivery struct {
	codes []string
}

func (d *captureDelivery) Send(_ context.Context, _ string, code string) error {
	d.codes = append(d.codes, code)
	return nil
}

type memoryLedger struct {
	refs map[string]string
}

func (l *memoryLedger) SubmitVote(_ context.Context, voterID string, _ int) (string, error) {
	if l.refs == nil {
		l.refs = make(map[string]string)
	}
	if _, exists := l.refs[voterID]; exists {
		return "", domain.ErrAlreadyVoted
	}
	ref, err := security.GenerateTransactionRef(32)
	if err != nil {
		return "", err
	}
	l.refs[voterID] = ref
	return ref, nil
}

func newTestRouter(t *testing.T, matched bool, delivery *captureDelivery) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := zap.NewNop()
	cfg := &config.AppConfig{App: config.AppSettings{Env: "test"}}

	tokens, err := security.NewSessionTokenIssuer("routes-test-secret-0123456789abcdef", "evote-sessions", 10*time.Minute)
	if err != nil {
		t.Fatalf("token issuer: %v", err)
	}

	registry := usecase.NewSessionRegistry()
	otp := usecase.NewOTPChallenge(usecase.OTPChallengeConfig{
		CodeLength:     6,
		TTL:            5 * time.Minute,
		ResendCooldown: 30 * time.Second,
	}, memory.NewOTPStore(), delivery)

	auth := usecase.NewAuthService(usecase.AuthConfig{
		Biometric: usecase.BiometricChallengeConfig{MaxAttempts: 3, Cooldown: 0},
	}, registry, sensor.NewStatic(matched), otp, tokens, nil, logger)

	voting := usecase.NewVotingService(registry, memory.NewCandidateCatalog(), &memoryLedger{}, nil, logger)
	receipts := usecase.NewReceiptService(registry)

	return httproutes.Register(httproutes.Dependencies{
		Config: cfg,
		Logger: logger,
		Services: httproutes.ServiceSet{
			Auth:     auth,
			Voting:   voting,
			Receipts: receipts,
		},
		Tokens: tokens,
	})
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	var body *bytes.Buffer
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewBuffer(raw)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t, true, &captureDelivery{})

	w := doJSON(t, r, http.MethodGet, "/healthz", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
}

func TestVotingFlowOverHTTP(t *testing.T) {
	delivery := &captureDelivery{}
	r := newTestRouter(t, false, delivery)

	// Identity submission.
	w := doJSON(t, r, http.MethodPost, "/api/v1/session", "", map[string]string{"voter_id": "ABC1234567"})
	if w.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	// The voter opts straight into the OTP fallback.
	w = doJSON(t, r, http.MethodPost, "/api/v1/session/otp", "", map[string]string{"voter_id": "ABC1234567"})
	if w.Code != http.StatusOK {
		t.Fatalf("request otp: expected 200, got %d (%s)", w.Code, w.Body.String())
	}
	if len(delivery.codes) != 1 {
		t.Fatalf("expected one dispatched code, got %d", len(delivery.codes))
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/session/otp/verify", "", map[string]string{
		"voter_id": "ABC1234567",
		"code":     delivery.codes[0],
	})
	if w.Code != http.StatusOK {
		t.Fatalf("verify otp: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var authResp struct {
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &authResp); err != nil {
		t.Fatalf("decode auth response: %v", err)
	}
	if authResp.SessionToken == "" {
		t.Fatal("expected a session token")
	}
	token := authResp.SessionToken

	// The voting surface requires the capability token.
	w = doJSON(t, r, http.MethodGet, "/api/v1/voting/candidates", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("candidates without token: expected 401, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/voting/candidates", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("candidates: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPut, "/api/v1/voting/selection", token, map[string]int{"candidate_id": 5})
	if w.Code != http.StatusOK {
		t.Fatalf("selection: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/voting/confirmation", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("confirmation: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/voting/commit", token, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("commit: expected 201, got %d (%s)", w.Code, w.Body.String())
	}

	var record struct {
		TransactionRef string `json:"transaction_ref"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &record); err != nil {
		t.Fatalf("decode commit response: %v", err)
	}
	if record.TransactionRef == "" {
		t.Fatal("expected a transaction ref")
	}

	// Receipt renders the committed vote.
	w = doJSON(t, r, http.MethodGet, "/api/v1/receipt", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("receipt: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var receipt struct {
		TransactionRef string `json:"transaction_ref"`
		Candidate      struct {
			ID int `json:"id"`
		} `json:"candidate"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &receipt); err != nil {
		t.Fatalf("decode receipt: %v", err)
	}
	if receipt.TransactionRef != record.TransactionRef {
		t.Fatalf("receipt ref mismatch: %q vs %q", receipt.TransactionRef, record.TransactionRef)
	}
	if receipt.Candidate.ID != 5 {
		t.Fatalf("expected candidate 5 on receipt, got %d", receipt.Candidate.ID)
	}

	// A second commit attempt is terminal.
	w = doJSON(t, r, http.MethodPost, "/api/v1/voting/commit", token, nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("second commit: expected 409, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestReceiptRedirectsWhenIncomplete(t *testing.T) {
	delivery := &captureDelivery{}
	r := newTestRouter(t, true, delivery)

	// Authenticate via biometric but never commit.
	w := doJSON(t, r, http.MethodPost, "/api/v1/session", "", map[string]string{"voter_id": "XYZ7654321"})
	if w.Code != http.StatusCreated {
		t.Fatalf("start session: expected 201, got %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/session/biometric/scan", "", map[string]string{"voter_id": "XYZ7654321"})
	if w.Code != http.StatusOK {
		t.Fatalf("scan: expected 200, got %d (%s)", w.Code, w.Body.String())
	}

	var scanResp struct {
		Verified     bool   `json:"verified"`
		SessionToken string `json:"session_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &scanResp); err != nil {
		t.Fatalf("decode scan response: %v", err)
	}
	if !scanResp.Verified || scanResp.SessionToken == "" {
		t.Fatalf("expected verified scan with token, got %+v", scanResp)
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/receipt", scanResp.SessionToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("receipt: expected 404, got %d (%s)", w.Code, w.Body.String())
	}

	var redirect struct {
		Redirect string `json:"redirect"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &redirect); err != nil {
		t.Fatalf("decode redirect: %v", err)
	}
	if redirect.Redirect != "/login" {
		t.Fatalf("expected /login redirect, got %q", redirect.Redirect)
	}
}
