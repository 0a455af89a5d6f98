package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()
	t.Setenv("SHOPKIT_UPTIME_PRIMARY_URL", srv.URL)
	t.Setenv("SHOPKIT_LOG_LEVEL", "error")

	resp, err := handler(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, resp.Healthy)
	assert.Equal(t, 1, resp.Checked)
	assert.Empty(t, resp.Report)
	assert.NotEmpty(t, resp.RunID)
}

func TestHandler_PrimaryDown(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer down.Close()
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer up.Close()

	t.Setenv("SHOPKIT_UPTIME_PRIMARY_URL", down.URL)
	t.Setenv("SHOPKIT_UPTIME_SECONDARY_URLS", up.URL+", "+down.URL+"/shop")
	t.Setenv("SHOPKIT_LOG_LEVEL", "error")

	resp, err := handler(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, resp.Healthy)
	assert.Equal(t, 3, resp.Checked)
	assert.Equal(t, []string{down.URL, down.URL + "/shop"}, resp.Failing)
	assert.Contains(t, resp.Report, "[503]")
}

func TestHandler_MissingPrimary(t *testing.T) {
	t.Setenv("SHOPKIT_UPTIME_PRIMARY_URL", "")
	t.Setenv("SHOPKIT_LOG_LEVEL", "error")

	_, err := handler(context.Background(), nil)
	var cfgErr *config.ConfigError
	require.True(t, errors.As(err, &cfgErr), "error = %v", err)
	assert.Equal(t, "uptime.primary_url", cfgErr.Field)
}
