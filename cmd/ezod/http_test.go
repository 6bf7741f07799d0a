package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-ezo/logger"
	"github.com/arloliu/go-ezo/sink"
)

func newTestHandler(t *testing.T, cfg HTTPConfig) (http.Handler, *sink.Store) {
	t.Helper()

	reg := prometheus.NewRegistry()
	gauge, err := sink.NewGauge(reg)
	require.NoError(t, err)

	store := sink.NewStore()
	for _, f := range []sink.Factory{store, gauge} {
		f.Sink("tank", "ph").PublishState(7.01)
	}

	return newHTTPHandler(cfg, 2, reg, store, sink.NewStream(1, logger.GetLogger())), store
}

func serve(h http.Handler, method, target string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func TestHTTPHandler_Routes(t *testing.T) {
	h, _ := newTestHandler(t, HTTPConfig{})

	t.Run("healthz", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "ok", body["status"])
		assert.InDelta(t, 2.0, body["devices"], 0)
	})

	t.Run("readings", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/readings?device=tank", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var readings []sink.Reading
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &readings))
		require.Len(t, readings, 1)
		assert.Equal(t, "ph", readings[0].Field)
	})

	t.Run("metrics", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/metrics", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, strings.Contains(rec.Body.String(), `ezo_reading{device="tank",field="ph"} 7.01`), rec.Body.String())
	})

	t.Run("stream without upgrade", func(t *testing.T) {
		rec := serve(h, http.MethodGet, "/readings/stream", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("wrong method", func(t *testing.T) {
		rec := serve(h, http.MethodPost, "/readings", nil)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}

func TestHTTPHandler_CORS(t *testing.T) {
	h, _ := newTestHandler(t, HTTPConfig{CORSOrigins: []string{"http://dashboard.local"}})

	rec := serve(h, http.MethodGet, "/readings", http.Header{"Origin": {"http://dashboard.local"}})
	assert.Equal(t, "http://dashboard.local", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = serve(h, http.MethodGet, "/readings", http.Header{"Origin": {"http://elsewhere"}})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	noCORS, _ := newTestHandler(t, HTTPConfig{})
	rec = serve(noCORS, http.MethodGet, "/readings", http.Header{"Origin": {"http://dashboard.local"}})
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
