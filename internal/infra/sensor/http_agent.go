package sensor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/voteguard/evote-sessions/internal/core/domain"
	"github.com/voteguard/evote-sessions/internal/core/port"
	"github.com/voteguard/evote-sessions/internal/infra/config"
	"github.com/voteguard/evote-sessions/internal/infra/logger"
)

// HTTPAgent talks to the fingerprint device agent running alongside the
// kiosk. The agent owns the capture hardware; this adapter only asks it to
// run one capture-and-match cycle and reports the outcome.
type HTTPAgent struct {
	client  *http.Client
	baseURL string
	logger  *zap.Logger
}

type scanRequest struct {
	VoterID string `json:"voter_id"`
}

type scanResponse struct {
	Matched bool   `json:"matched"`
	Quality string `json:"quality,omitempty"`
}

// NewHTTPAgent constructs a sensor adapter bound to the device agent URL.
func NewHTTPAgent(cfg config.SensorSettings, log *zap.Logger) *HTTPAgent {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &HTTPAgent{
		client:  &http.Client{Timeout: timeout},
		baseURL: cfg.AgentURL,
		logger:  log,
	}
}

// Scan runs one capture-and-match cycle on the device agent.
func (a *HTTPAgent) Scan(ctx context.Context, voterID string) (bool, error) {
	body, err := json.Marshal(scanRequest{VoterID: voterID})
	if err != nil {
		return false, fmt.Errorf("marshal scan request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/scan", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("build scan request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("device agent unreachable",
			zap.String("voter_id", logger.MaskVoterID(voterID)),
			zap.Error(err),
		)
		return false, domain.ErrSensorUnavailable
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("device agent returned error status",
			zap.String("voter_id", logger.MaskVoterID(voterID)),
			zap.Int("status", resp.StatusCode),
		)
		return false, domain.ErrSensorUnavailable
	}

	var result scanResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, domain.ErrSensorUnavailable
	}

	return result.Matched, nil
}

var _ port.BiometricSensor = (*HTTPAgent)(nil)
