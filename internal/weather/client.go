package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL     = "http://api.openweathermap.org/data/2.5"
	defaultHTTPTimeout = 10 * time.Second
)

// Client looks up current conditions from the OpenWeatherMap API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates an OpenWeatherMap client.
func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetBaseURL overrides the API base URL (useful for testing).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

type currentWeatherResponse struct {
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Name string `json:"name"`
}

// CurrentDescription returns the human-readable description of the current
// weather in the given city. The bool is false when the API has no forecast
// for the city.
func (c *Client) CurrentDescription(ctx context.Context, city string) (string, bool, error) {
	q := url.Values{}
	q.Set("appid", c.apiKey)
	q.Set("q", city)

	u := fmt.Sprintf("%s/weather?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", false, fmt.Errorf("weather: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", false, fmt.Errorf("weather: lookup: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, fmt.Errorf("weather: lookup status %d: %s", resp.StatusCode, string(body))
	}

	var decoded currentWeatherResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", false, fmt.Errorf("weather: unmarshal response: %w", err)
	}
	if len(decoded.Weather) == 0 {
		return "", false, nil
	}
	return decoded.Weather[0].Description, true, nil
}
