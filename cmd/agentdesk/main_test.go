package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BaSui01/agentdesk/config"
	"github.com/stretchr/testify/assert"
)

func TestRunHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ready" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, runHealthCheck([]string{"--addr", srv.URL}, &stdout, &stderr))
	assert.Equal(t, "OK\n", stdout.String())

	stderr.Reset()
	assert.Equal(t, 1, runHealthCheck([]string{"--addr", srv.URL, "--ready"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "status 503")
}

func TestRunHealthCheck_Unreachable(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 1, runHealthCheck([]string{"--addr", "http://127.0.0.1:1"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Health check failed")
}

func TestPrintVersion(t *testing.T) {
	var buf bytes.Buffer
	printVersion(&buf)
	assert.Contains(t, buf.String(), "AgentDesk "+Version)
}

func TestInitLogger(t *testing.T) {
	for _, cfg := range []config.LogConfig{
		{Level: "debug", Format: "json"},
		{Level: "warn", Format: "console"},
		{Level: "bogus"},
	} {
		logger := initLogger(cfg)
		assert.NotNil(t, logger)
	}
	assert.True(t, initLogger(config.LogConfig{Level: "debug"}).Core().Enabled(-1))
	assert.False(t, initLogger(config.LogConfig{Level: "error"}).Core().Enabled(0))
}
