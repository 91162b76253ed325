package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	service, _ := testService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := NewRouter(service, logger, prometheus.NewRegistry())
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

type apiResponse struct {
	Status string          `json:"status"`
	Type   string          `json:"type"`
	Count  int             `json:"count"`
	Data   json.RawMessage `json:"data"`
}

func get(t *testing.T, url string) (int, apiResponse) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body apiResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestGetMaster(t *testing.T) {
	server := testServer(t)

	status, body := get(t, server.URL+"/api/reports/master")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", body.Status)
	assert.Equal(t, 4, body.Count)
}

func TestGetMaster_Filtered(t *testing.T) {
	server := testServer(t)

	status, body := get(t, server.URL+"/api/reports/master?city=Boston")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Count)

	status, body = get(t, server.URL+"/api/reports/master?min_attendance=0.5&program_id=PRG-001")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Count)
}

func TestGetMaster_BadFilter(t *testing.T) {
	server := testServer(t)

	status, body := get(t, server.URL+"/api/reports/master?min_attendance=2")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, "VALIDATION", body.Type)

	status, _ = get(t, server.URL+"/api/reports/master?from=01/15/2024")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestGetParticipant(t *testing.T) {
	server := testServer(t)

	status, body := get(t, server.URL+"/api/reports/participants/P-000001")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, body.Count)

	status, body = get(t, server.URL+"/api/reports/participants/P-999999")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body.Type)
}

func TestGetPrograms(t *testing.T) {
	server := testServer(t)

	status, body := get(t, server.URL+"/api/reports/programs")
	assert.Equal(t, http.StatusOK, status)

	var programs []string
	require.NoError(t, json.Unmarshal(body.Data, &programs))
	assert.Equal(t, []string{"PRG-001", "PRG-002"}, programs)
}

func TestGetQuality(t *testing.T) {
	server := testServer(t)

	status, body := get(t, server.URL+"/api/reports/quality")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, body.Count)
}

func TestDownloadMasterCSV(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/api/reports/master.csv")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "csv")

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "participant_id")
}

func TestHealthz(t *testing.T) {
	server := testServer(t)

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	service, _ := testService(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := prometheus.NewRegistry()
	server := httptest.NewServer(NewRouter(service, logger, registry))
	defer server.Close()

	// Generate a request so the counter has a sample.
	resp, err := http.Get(server.URL + "/api/reports/master")
	require.NoError(t, err)
	resp.Body.Close()

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "impactetl_http_requests_total")
}
