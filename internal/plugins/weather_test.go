package plugins

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	miraerrors "mira/internal/errors"

	"github.com/stretchr/testify/require"
)

func newWeatherFixture(t *testing.T) *WeatherPlugin {
	t.Helper()

	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/search", r.URL.Path)
		require.Equal(t, "Paris", r.URL.Query().Get("name"))
		_, _ = w.Write([]byte(`{"results":[{"name":"Paris","latitude":48.85,"longitude":2.35,"admin2":"Paris","admin3":"Paris"}]}`))
	}))
	t.Cleanup(geo.Close)

	forecast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/forecast", r.URL.Path)
		_, _ = w.Write([]byte(`{"current":{"time":"2024-03-15T14:30","temperature_2m":18.4,"relative_humidity_2m":60,"apparent_temperature":17.9}}`))
	}))
	t.Cleanup(forecast.Close)

	return NewWeatherPlugin(WeatherConfig{
		GeocodingBaseURL: geo.URL,
		ForecastBaseURL:  forecast.URL,
	})
}

func TestWeatherExtractCity(t *testing.T) {
	p := NewWeatherPlugin(WeatherConfig{FallbackCity: "Bengaluru"})

	require.Equal(t, "Paris", p.ExtractCity("weather in Paris"))
	require.Equal(t, "New York", p.ExtractCity("what is the weather in New York"))
	require.Equal(t, "Tokyo", p.ExtractCity("temperature in Tokyo"))
	require.Equal(t, "Bengaluru", p.ExtractCity("12345"))
}

func TestWeatherCurrent(t *testing.T) {
	p := newWeatherFixture(t)

	report, err := p.Current(context.Background(), "weather in Paris")
	require.NoError(t, err)
	require.Equal(t, "Paris, Paris, Paris", report.City)
	require.InDelta(t, 18.4, report.TemperatureC, 0.001)
	require.InDelta(t, 60.0, report.HumidityPct, 0.001)
}

func TestWeatherUnknownCity(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[]}`))
	}))
	defer geo.Close()

	p := NewWeatherPlugin(WeatherConfig{GeocodingBaseURL: geo.URL})

	_, err := p.Current(context.Background(), "weather in Nowhereville")
	require.Error(t, err)

	var pluginErr *miraerrors.PluginError
	require.ErrorAs(t, err, &pluginErr)
	require.Equal(t, "weather", pluginErr.Plugin)
}

func TestWeatherUpstreamFailure(t *testing.T) {
	geo := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer geo.Close()

	p := NewWeatherPlugin(WeatherConfig{GeocodingBaseURL: geo.URL})

	_, err := p.Current(context.Background(), "weather in Paris")
	require.Error(t, err)
}
