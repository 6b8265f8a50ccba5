package handlers_test

import (
	"net/http"
	"testing"

	"github.com/mbenedict/gatehouse/internal/handlers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdmin_BlacklistLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/admin/blacklist", handlers.BlacklistRequest{
		Origin:          "203.0.113.7",
		Reason:          "abuse report",
		DurationSeconds: 3600,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/blacklist/203.0.113.7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "203.0.113.7", body["origin"])
	assert.Equal(t, "abuse report", body["reason"])
	assert.Equal(t, false, body["auto"])

	rec = ts.do(t, http.MethodDelete, "/admin/blacklist/203.0.113.7", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/blacklist/203.0.113.7", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_BlacklistValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name string
		req  handlers.BlacklistRequest
	}{
		{"missing origin", handlers.BlacklistRequest{Reason: "abuse", DurationSeconds: 60}},
		{"not an ip", handlers.BlacklistRequest{Origin: "example.com", Reason: "abuse", DurationSeconds: 60}},
		{"missing reason", handlers.BlacklistRequest{Origin: "203.0.113.7", DurationSeconds: 60}},
		{"zero duration", handlers.BlacklistRequest{Origin: "203.0.113.7", Reason: "abuse"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(t, http.MethodPost, "/admin/blacklist", tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestAdmin_DeleteUnknownBlacklistEntry(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodDelete, "/admin/blacklist/203.0.113.99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_DefensiveModeLifecycle(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/admin/defensive-mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["active"])

	rec = ts.do(t, http.MethodPost, "/admin/defensive-mode", handlers.DefensiveModeRequest{
		Reason:          "scheduled drill",
		DurationSeconds: 600,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/admin/defensive-mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["active"])
	state := body["state"].(map[string]interface{})
	assert.Equal(t, "scheduled drill", state["reason"])
	assert.Equal(t, "operator", state["activated_by"])

	rec = ts.do(t, http.MethodDelete, "/admin/defensive-mode", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodDelete, "/admin/defensive-mode", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_AttackStats(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodGet, "/admin/attacks/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(0), body["current_minute_count"])
	assert.Equal(t, false, body["defensive_mode_active"])

	// A honeypot hit on the public form bumps the counter
	ts.do(t, http.MethodPost, "/forms/submit", handlers.SubmitRequest{
		Fields: map[string]string{
			"message": "hello",
			"website": "http://spam.example",
		},
	})

	rec = ts.do(t, http.MethodGet, "/admin/attacks/current", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decodeBody(t, rec)["current_minute_count"])
}
