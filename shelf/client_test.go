package shelf

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	_, err := NewClient("", "token", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL is required")

	_, err = NewClient("http://localhost:13378", "", logger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is required")

	client, err := NewClient("http://localhost:13378/", "token", logger)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:13378", client.baseURL)
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/me", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, client.Ping(context.Background()))
}

func TestPingRejectedToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "bad-token", zerolog.Nop())
	require.NoError(t, err)

	err = client.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}

func TestTriggerScan(t *testing.T) {
	var scanned bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/libraries/lib_abc/scan", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		scanned = true
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(server.URL, "test-token", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, client.TriggerScan(context.Background(), "lib_abc"))
	assert.True(t, scanned)
}

func TestTriggerScanRequiresLibrary(t *testing.T) {
	client, err := NewClient("http://localhost:13378", "token", zerolog.Nop())
	require.NoError(t, err)

	err = client.TriggerScan(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "library id is required")
}
