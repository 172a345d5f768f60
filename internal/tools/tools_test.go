package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport points every outbound request at the test server.
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func testConfig(t *testing.T, handler http.HandlerFunc) Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)
	return Config{
		WeatherAPIKey: "test-key",
		HTTPClient:    &http.Client{Transport: rewriteTransport{target: target}},
	}
}

func TestSchemasFiltersAndKeepsOrder(t *testing.T) {
	assert.Empty(t, Schemas(nil))
	assert.Len(t, Schemas([]string{"search"}), 1)
	assert.Len(t, Schemas([]string{"website", "search", "nonexistent"}), 2)
	assert.Len(t, Schemas(Names()), len(Registry))
}

func TestExecuteUnknownTool(t *testing.T) {
	_, err := Execute(context.Background(), Config{}, "teleport", "{}")
	require.Error(t, err)
}

func TestExecuteSearch(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("result text"))
	})

	out, err := Execute(context.Background(), cfg, "search", `{"keywords":"go testing"}`)
	require.NoError(t, err)
	assert.Equal(t, "result text", out)
}

func TestExecuteSearchRequiresKeywords(t *testing.T) {
	_, err := Execute(context.Background(), Config{}, "search", `{}`)
	require.Error(t, err)
}

func TestExecuteWebsite(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page body"))
	})

	out, err := Execute(context.Background(), cfg, "website", `{"url":"https://example.com"}`)
	require.NoError(t, err)
	assert.Equal(t, "page body", out)
}

func TestWeatherRequiresAPIKey(t *testing.T) {
	_, err := Execute(context.Background(), Config{}, "get_current_weather", `{"location":"Paris"}`)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigMissing)
}

func TestWeatherFormatsSummary(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"main":    map[string]interface{}{"temp": 293.15},
			"weather": []map[string]interface{}{{"description": "clear sky"}},
		})
	})

	out, err := Execute(context.Background(), cfg, "get_current_weather", `{"location":"Paris"}`)
	require.NoError(t, err)
	assert.Equal(t, "The weather in Paris is 20.0°C, weather description is clear sky", out)
}

func TestWeatherDegradesToNoData(t *testing.T) {
	cfg := testConfig(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	out, err := Execute(context.Background(), cfg, "get_current_weather", `{"location":"Paris"}`)
	require.NoError(t, err)
	assert.Equal(t, "No data", out)
}

func TestSummary(t *testing.T) {
	assert.Equal(t, `Searching the web for "cats"`, Summary("search", `{"keywords":"cats"}`))
	assert.Equal(t, "Reading https://example.com", Summary("website", `{"url":"https://example.com"}`))
	assert.Equal(t, "Checking the weather in Oslo", Summary("get_current_weather", `{"location":"Oslo"}`))
	assert.Equal(t, "Running other", Summary("other", `{}`))
}
