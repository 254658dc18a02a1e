package nlu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL     = "https://dialogflow.googleapis.com"
	defaultHTTPTimeout = 15 * time.Second
)

// Detector resolves an utterance to a structured NLU result.
type Detector interface {
	DetectIntent(ctx context.Context, sessionID, text string, payload map[string]any) (*QueryResult, error)
}

// Client calls the Dialogflow v2 detectIntent REST endpoint.
type Client struct {
	projectID    string
	languageCode string
	accessToken  string
	baseURL      string
	httpClient   *http.Client
}

// NewClient creates a Dialogflow client for the given agent project. The
// access token is sent as a bearer credential on every call.
func NewClient(projectID, languageCode, accessToken string) *Client {
	return &Client{
		projectID:    projectID,
		languageCode: languageCode,
		accessToken:  accessToken,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetBaseURL overrides the API base URL (useful for testing).
func (c *Client) SetBaseURL(base string) {
	c.baseURL = base
}

// DetectIntent sends the utterance for the given conversation session and
// returns the decoded query result.
func (c *Client) DetectIntent(ctx context.Context, sessionID, text string, payload map[string]any) (*QueryResult, error) {
	reqBody := detectIntentRequest{
		QueryInput: queryInput{
			Text: textInput{
				Text:         text,
				LanguageCode: c.languageCode,
			},
		},
	}
	if len(payload) > 0 {
		reqBody.QueryParams = &queryParams{Payload: payload}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("nlu: marshal detect intent request: %w", err)
	}

	u := fmt.Sprintf("%s/v2/projects/%s/agent/sessions/%s:detectIntent",
		c.baseURL, url.PathEscape(c.projectID), url.PathEscape(sessionID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("nlu: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("nlu: detect intent: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("nlu: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("nlu: detect intent status %d: %s", resp.StatusCode, string(respBody))
	}

	var decoded detectIntentResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return nil, fmt.Errorf("nlu: unmarshal response: %w", err)
	}

	return &decoded.QueryResult, nil
}

var _ Detector = (*Client)(nil)
