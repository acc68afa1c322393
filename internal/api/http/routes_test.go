package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hkoenig/gridcarbon/internal/cache"
	"github.com/hkoenig/gridcarbon/internal/co2"
	em "github.com/hkoenig/gridcarbon/internal/electricitymaps"
)

// newTestApp wires the routes against a stubbed upstream.
func newTestApp(t *testing.T, upstream http.HandlerFunc) *fiber.App {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	client := em.NewClient(server.URL, "test-token", em.Location{Zone: "AT"}, &http.Client{}, cache.New(time.Hour), log)
	service := co2.NewService(client)

	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	RegisterRoutes(app, service)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func postJSON(t *testing.T, app *fiber.App, path, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func latestUpstream(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(`{"zone":"AT","carbonIntensity":250,"updatedAt":"2024-03-01T12:00:00Z"}`))
}

func TestLatestEndpoint(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/co2/latest", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 0.25, body["kgCO2_per_kWh"])
	raw, ok := body["raw"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 250.0, raw["carbonIntensity"])
}

func TestHistoryEndpoint(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		points := make([]em.HistoryPoint, 24)
		for i := range points {
			points[i] = em.HistoryPoint{
				Datetime:        fmt.Sprintf("2024-03-01T%02d:00:00Z", i),
				CarbonIntensity: 300,
			}
		}
		json.NewEncoder(w).Encode(em.HistoryResponse{Zone: "AT", History: points})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/co2/history?hours=24", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 24.0, body["count"])
	assert.InDelta(t, 0.3, body["avg_kgCO2_per_kWh"].(float64), 1e-9)
	assert.Len(t, body["points"], 24)
}

func TestHistoryHoursValidation(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	for _, hours := range []string{"0", "169", "-5", "abc", "12.5"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/co2/history?hours="+hours, nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "hours=%s", hours)
	}
}

func TestHeatPumpEndpoint(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	resp := postJSON(t, app, "/calc/wp", `{"kWh": 10}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 0.25, body["factor_kgCO2_per_kWh"])
	assert.Equal(t, 2.5, body["co2_kg"])
	assert.Equal(t, "2024-03-01T12:00:00Z", body["sourceUpdatedAt"])
}

func TestHeatPumpValidation(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	for _, body := range []string{`{}`, `{"kWh": 0}`, `{"kWh": -3}`, `{"kWh": "ten"}`} {
		resp := postJSON(t, app, "/calc/wp", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body=%s", body)
	}
}

func TestAlternativeEndpointDefaults(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	resp := postJSON(t, app, "/calc/alt", `{"heat_kWh": 100}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.InDelta(t, 117.647, body["requiredFuel_kWh"].(float64), 0.001)
	assert.InDelta(t, 23.647, body["co2_kg"].(float64), 0.001)

	input, ok := body["input"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 0.85, input["efficiency"])
	assert.Equal(t, 0.201, input["gasFactor_kg_per_kWh"])
}

func TestAlternativeEfficiencyBounds(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	resp := postJSON(t, app, "/calc/alt", `{"heat_kWh": 100, "efficiency": 1.2}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postJSON(t, app, "/calc/alt", `{"heat_kWh": 100, "efficiency": 1}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSavingsEndpoint(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	resp := postJSON(t, app, "/calc/savings", `{"heat_kWh": 100, "cop": 4}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, 25.0, body["elec_kWh"])
	assert.Equal(t, 6.25, body["co2_wp_kg"])
	assert.InDelta(t, 23.647, body["co2_gas_kg"].(float64), 0.001)
	assert.InDelta(t, 17.397, body["savings_kg"].(float64), 0.001)
}

func TestSavingsValidation(t *testing.T) {
	app := newTestApp(t, latestUpstream)

	for _, body := range []string{`{"heat_kWh": 100}`, `{"cop": 4}`, `{"heat_kWh": 100, "cop": -1}`} {
		resp := postJSON(t, app, "/calc/savings", body)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "body=%s", body)
	}
}

func TestUpstreamFailureSurfacesAsBadGateway(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("overloaded"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/co2/latest", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["error"])
	assert.Contains(t, body["message"], "500")
}

func TestMalformedUpstreamPayloadSurfacesAsBadGateway(t *testing.T) {
	app := newTestApp(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json at all"))
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/co2/latest", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["error"])
}
