package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v3.2"
	defaultHTTPTimeout  = 10 * time.Second
)

// Sender actions understood by the Send API.
const (
	ActionMarkSeen  = "mark_seen"
	ActionTypingOn  = "typing_on"
	ActionTypingOff = "typing_off"
)

// Quick replies always carry a text content type; selecting one echoes its
// payload back as the next inbound message.
const QuickReplyContentTypeText = "text"

// Client sends messages via the Messenger Send API and reads user profiles
// from the Graph API.
type Client struct {
	pageAccessToken string
	graphAPIBase    string
	httpClient      *http.Client
}

// NewClient creates a new Graph API client.
func NewClient(pageAccessToken string) *Client {
	return &Client{
		pageAccessToken: pageAccessToken,
		graphAPIBase:    defaultGraphAPIBase,
		httpClient:      &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (c *Client) SetGraphAPIBase(base string) {
	c.graphAPIBase = base
}

// SendText sends a plain text message to the given recipient.
func (c *Client) SendText(ctx context.Context, recipientID, text string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message:   &SendMessage{Text: text},
	})
}

// SendAttachmentURL sends a media attachment (image, audio, video or file) by URL.
func (c *Client) SendAttachmentURL(ctx context.Context, recipientID, attachmentType, mediaURL string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{
			Attachment: &SendAttachment{
				Type:    attachmentType,
				Payload: TemplatePayload{URL: mediaURL},
			},
		},
	})
}

// SendImage sends an image attachment by URL.
func (c *Client) SendImage(ctx context.Context, recipientID, imageURL string) (*SendResponse, error) {
	return c.SendAttachmentURL(ctx, recipientID, "image", imageURL)
}

// SendQuickReply sends a text message with quick-reply chips.
func (c *Client) SendQuickReply(ctx context.Context, recipientID, text string, replies []QuickReplyOption, metadata string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{
			Text:         text,
			Metadata:     metadata,
			QuickReplies: replies,
		},
	})
}

// SendButtonTemplate sends a button template message.
func (c *Client) SendButtonTemplate(ctx context.Context, recipientID, text string, buttons []Button) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{
			Attachment: &SendAttachment{
				Type: "template",
				Payload: TemplatePayload{
					TemplateType: "button",
					Text:         text,
					Buttons:      buttons,
				},
			},
		},
	})
}

// SendGenericTemplate sends a generic template (card carousel).
func (c *Client) SendGenericTemplate(ctx context.Context, recipientID string, elements []Element) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{
			Attachment: &SendAttachment{
				Type: "template",
				Payload: TemplatePayload{
					TemplateType: "generic",
					Elements:     elements,
				},
			},
		},
	})
}

// SendReceipt sends a receipt template. The Send API requires a unique order
// number, so one is generated when the payload carries none.
func (c *Client) SendReceipt(ctx context.Context, recipientID string, payload TemplatePayload) (*SendResponse, error) {
	payload.TemplateType = "receipt"
	if payload.OrderNumber == "" {
		payload.OrderNumber = fmt.Sprintf("order%d", rand.Intn(1000))
	}
	return c.send(ctx, SendRequest{
		Recipient: SendRecipient{ID: recipientID},
		Message: &SendMessage{
			Attachment: &SendAttachment{
				Type:    "template",
				Payload: payload,
			},
		},
	})
}

// SendAccountLinking sends a button template with an account-link call to action.
func (c *Client) SendAccountLinking(ctx context.Context, recipientID, text, authorizeURL string) (*SendResponse, error) {
	return c.SendButtonTemplate(ctx, recipientID, text, []Button{
		{Type: "account_link", URL: authorizeURL},
	})
}

// SendAction sends a sender action (mark_seen, typing_on, typing_off).
func (c *Client) SendAction(ctx context.Context, recipientID, action string) (*SendResponse, error) {
	return c.send(ctx, SendRequest{
		Recipient:    SendRecipient{ID: recipientID},
		SenderAction: action,
	})
}

// GetProfile reads the user profile for the given PSID from the Graph API.
func (c *Client) GetProfile(ctx context.Context, userID string) (*UserProfile, error) {
	u := fmt.Sprintf("%s/%s?access_token=%s", c.graphAPIBase, url.PathEscape(userID), url.QueryEscape(c.pageAccessToken))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("messenger: create profile request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("messenger: fetch profile: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("messenger: read profile response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("messenger: profile lookup status %d: %s", resp.StatusCode, string(body))
	}

	var profile UserProfile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, fmt.Errorf("messenger: unmarshal profile: %w", err)
	}
	return &profile, nil
}

func (c *Client) send(ctx context.Context, req SendRequest) (*SendResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("messenger: marshal send request: %w", err)
	}

	u := fmt.Sprintf("%s/me/messages?access_token=%s", c.graphAPIBase, url.QueryEscape(c.pageAccessToken))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("messenger: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("messenger: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("messenger: read response: %w", err)
	}

	var sendResp SendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return nil, fmt.Errorf("messenger: unmarshal response: %w", err)
	}

	if sendResp.Error != nil {
		return &sendResp, fmt.Errorf("messenger: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}

	if resp.StatusCode != http.StatusOK {
		return &sendResp, fmt.Errorf("messenger: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return &sendResp, nil
}
