package qbit

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// HealthStatus is the outcome of a single endpoint probe.
type HealthStatus string

const (
	StatusOK       HealthStatus = "OK"
	StatusFail     HealthStatus = "FAIL"
	StatusTimeout  HealthStatus = "TIMEOUT"
	StatusAuthFail HealthStatus = "AUTH_FAIL"
	StatusError    HealthStatus = "ERROR"
)

// Health is the latest probe result for one endpoint. It is recomputed on
// every check and never persisted; only the newest value matters.
type Health struct {
	Status    HealthStatus
	CheckedAt time.Time
	Detail    string
}

// OK reports whether the endpoint can currently accept submissions.
func (h Health) OK() bool {
	return h.Status == StatusOK
}

// healthFromError maps a probe error to a terminal Health value. Probes never
// propagate errors outward.
func healthFromError(err error) Health {
	h := Health{CheckedAt: time.Now()}
	if err == nil {
		h.Status = StatusOK
		return h
	}

	h.Detail = err.Error()

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.Status = StatusTimeout
	case isAuthError(err):
		h.Status = StatusAuthFail
	default:
		h.Status = StatusFail
	}
	return h
}

// isAuthError sniffs login rejections out of the client library's error
// strings. The Web API answers 403 with a body, not a typed error.
func isAuthError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{"unauthorized", "forbidden", "credential", "403", "401"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// VPNChecker reports whether the network tunnel the torrent clients route
// through appears to be up. The result is diagnostic only; it never gates
// delivery decisions.
type VPNChecker struct {
	checkURL   string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewVPNChecker creates a checker against the given indicator URL. An empty
// URL yields a checker that always reports disconnected.
func NewVPNChecker(checkURL string, timeout time.Duration, logger zerolog.Logger) *VPNChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &VPNChecker{
		checkURL:   checkURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Connected performs the indicator request. Any failure maps to false.
func (v *VPNChecker) Connected(ctx context.Context) bool {
	if v == nil || v.checkURL == "" {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.checkURL, nil)
	if err != nil {
		return false
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		v.logger.Debug().Err(err).Msg("VPN check request failed")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		v.logger.Debug().Str("status", fmt.Sprintf("%d", resp.StatusCode)).Msg("VPN check returned non-OK status")
		return false
	}

	return true
}
