package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	miraerrors "mira/internal/errors"
	"mira/internal/logging"
)

// WeatherReport is the current-conditions answer for one city.
type WeatherReport struct {
	City         string
	TemperatureC float64
	ApparentC    float64
	HumidityPct  float64
	Time         time.Time
}

// WeatherConfig points the plugin at the geocoding and forecast services.
type WeatherConfig struct {
	GeocodingBaseURL string
	ForecastBaseURL  string
	FallbackCity     string
	Timeout          time.Duration
}

// WeatherPlugin resolves a city from the query, geocodes it and fetches
// current conditions from the open-meteo API.
type WeatherPlugin struct {
	config     WeatherConfig
	httpClient *http.Client
	logger     logging.Logger
}

// NewWeatherPlugin constructs the weather plugin.
func NewWeatherPlugin(config WeatherConfig) *WeatherPlugin {
	if config.GeocodingBaseURL == "" {
		config.GeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1"
	}
	if config.ForecastBaseURL == "" {
		config.ForecastBaseURL = "https://api.open-meteo.com/v1"
	}
	if config.FallbackCity == "" {
		config.FallbackCity = "Bengaluru"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WeatherPlugin{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger("WeatherPlugin"),
	}
}

var weatherCityPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)weather\s+in\s+([a-zA-Z\s]+)`),
	regexp.MustCompile(`(?i)weather\s+of\s+([a-zA-Z\s]+)`),
	regexp.MustCompile(`(?i)what.*weather.*in\s+([a-zA-Z\s]+)`),
	regexp.MustCompile(`(?i)how.*weather.*in\s+([a-zA-Z\s]+)`),
	regexp.MustCompile(`(?i)temperature\s+in\s+([a-zA-Z\s]+)`),
	regexp.MustCompile(`(?i)climate\s+in\s+([a-zA-Z\s]+)`),
	regexp.MustCompile(`(?i)([a-zA-Z\s]+)\s+weather`),
}

// ExtractCity pulls the city name out of the query, falling back to the
// configured default when nothing matches.
func (p *WeatherPlugin) ExtractCity(query string) string {
	for _, pattern := range weatherCityPatterns {
		if match := pattern.FindStringSubmatch(query); match != nil {
			city := strings.TrimSpace(match[1])
			if city != "" {
				return city
			}
		}
	}
	return p.config.FallbackCity
}

// Current returns current conditions for the city mentioned in the query.
func (p *WeatherPlugin) Current(ctx context.Context, query string) (*WeatherReport, error) {
	city := p.ExtractCity(query)

	location, err := p.geocode(ctx, city)
	if err != nil {
		return nil, &miraerrors.PluginError{Plugin: "weather", Err: err}
	}

	report, err := p.fetchCurrent(ctx, location)
	if err != nil {
		return nil, &miraerrors.PluginError{Plugin: "weather", Err: err}
	}

	p.logger.Debug("Weather for %s: %.1f°C", report.City, report.TemperatureC)
	return report, nil
}

type coordinates struct {
	Latitude  float64
	Longitude float64
	City      string
}

func (p *WeatherPlugin) geocode(ctx context.Context, city string) (*coordinates, error) {
	endpoint := fmt.Sprintf("%s/search?name=%s&count=1&language=en&format=json",
		p.config.GeocodingBaseURL, url.QueryEscape(city))

	var payload struct {
		Results []struct {
			Name      string  `json:"name"`
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
			Admin2    string  `json:"admin2"`
			Admin3    string  `json:"admin3"`
		} `json:"results"`
	}
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("geocode %q: %w", city, err)
	}
	if len(payload.Results) == 0 {
		return nil, fmt.Errorf("no location found for %q", city)
	}

	result := payload.Results[0]
	var parts []string
	for _, part := range []string{result.Admin3, result.Admin2, result.Name} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	label := strings.Join(parts, ", ")
	if label == "" {
		label = city
	}

	return &coordinates{
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		City:      label,
	}, nil
}

func (p *WeatherPlugin) fetchCurrent(ctx context.Context, location *coordinates) (*WeatherReport, error) {
	endpoint := fmt.Sprintf(
		"%s/forecast?latitude=%f&longitude=%f&current=temperature_2m,relative_humidity_2m,apparent_temperature",
		p.config.ForecastBaseURL, location.Latitude, location.Longitude)

	var payload struct {
		Current struct {
			Time                string  `json:"time"`
			Temperature         float64 `json:"temperature_2m"`
			RelativeHumidity    float64 `json:"relative_humidity_2m"`
			ApparentTemperature float64 `json:"apparent_temperature"`
		} `json:"current"`
	}
	if err := p.getJSON(ctx, endpoint, &payload); err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}

	reportTime, err := time.Parse("2006-01-02T15:04", payload.Current.Time)
	if err != nil {
		reportTime = time.Now()
	}

	return &WeatherReport{
		City:         location.City,
		TemperatureC: payload.Current.Temperature,
		ApparentC:    payload.Current.ApparentTemperature,
		HumidityPct:  payload.Current.RelativeHumidity,
		Time:         reportTime,
	}, nil
}

func (p *WeatherPlugin) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &miraerrors.HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
