package qbit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestHealthFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want HealthStatus
	}{
		{
			name: "nil error is OK",
			err:  nil,
			want: StatusOK,
		},
		{
			name: "deadline exceeded is TIMEOUT",
			err:  context.DeadlineExceeded,
			want: StatusTimeout,
		},
		{
			name: "wrapped deadline is TIMEOUT",
			err:  errors.Join(errors.New("probe"), context.DeadlineExceeded),
			want: StatusTimeout,
		},
		{
			name: "403 is AUTH_FAIL",
			err:  errors.New("login failed: 403 Forbidden"),
			want: StatusAuthFail,
		},
		{
			name: "bad credentials is AUTH_FAIL",
			err:  errors.New("invalid credentials"),
			want: StatusAuthFail,
		},
		{
			name: "connection refused is FAIL",
			err:  errors.New("dial tcp 127.0.0.1:8080: connect: connection refused"),
			want: StatusFail,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			health := healthFromError(tt.err)
			if health.Status != tt.want {
				t.Errorf("status = %s, want %s", health.Status, tt.want)
			}
			if tt.err != nil && health.Detail == "" {
				t.Errorf("expected detail for non-nil error")
			}
			if health.CheckedAt.IsZero() {
				t.Errorf("CheckedAt not set")
			}
		})
	}
}

func TestVPNCheckerConnected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewVPNChecker(srv.URL, time.Second, zerolog.Nop())
	if !checker.Connected(context.Background()) {
		t.Errorf("expected connected against healthy indicator")
	}
}

func TestVPNCheckerFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	checker := NewVPNChecker(srv.URL, time.Second, zerolog.Nop())
	if checker.Connected(context.Background()) {
		t.Errorf("non-OK status should report disconnected")
	}

	down := NewVPNChecker("http://127.0.0.1:1", time.Second, zerolog.Nop())
	if down.Connected(context.Background()) {
		t.Errorf("unreachable indicator should report disconnected")
	}

	empty := NewVPNChecker("", time.Second, zerolog.Nop())
	if empty.Connected(context.Background()) {
		t.Errorf("empty URL should report disconnected")
	}

	var nilChecker *VPNChecker
	if nilChecker.Connected(context.Background()) {
		t.Errorf("nil checker should report disconnected")
	}
}
