package messenger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

type capturedRequest struct {
	path  string
	query string
	body  SendRequest
}

func newTestClient(t *testing.T, status int, response string) (*Client, *capturedRequest) {
	t.Helper()
	captured := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.path = r.URL.Path
		captured.query = r.URL.RawQuery
		if r.Method == http.MethodPost {
			body, _ := io.ReadAll(r.Body)
			_ = json.Unmarshal(body, &captured.body)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)

	client := NewClient("page-token")
	client.SetGraphAPIBase(srv.URL)
	return client, captured
}

func TestSendText(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{"recipient_id":"user-1","message_id":"m-1"}`)

	resp, err := client.SendText(context.Background(), "user-1", "hello there")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.MessageID != "m-1" {
		t.Errorf("expected message id m-1, got %q", resp.MessageID)
	}

	if captured.path != "/me/messages" {
		t.Errorf("expected POST /me/messages, got %q", captured.path)
	}
	if captured.query != "access_token=page-token" {
		t.Errorf("expected access token in query, got %q", captured.query)
	}
	if captured.body.Recipient.ID != "user-1" {
		t.Errorf("unexpected recipient: %+v", captured.body.Recipient)
	}
	if captured.body.Message == nil || captured.body.Message.Text != "hello there" {
		t.Errorf("unexpected message: %+v", captured.body.Message)
	}
}

func TestSendImage(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	if _, err := client.SendImage(context.Background(), "user-1", "https://x/pic.png"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	att := captured.body.Message.Attachment
	if att == nil || att.Type != "image" || att.Payload.URL != "https://x/pic.png" {
		t.Errorf("unexpected attachment: %+v", att)
	}
}

func TestSendQuickReply(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	replies := []QuickReplyOption{
		{ContentType: QuickReplyContentTypeText, Title: "Yes", Payload: "Yes"},
		{ContentType: QuickReplyContentTypeText, Title: "No", Payload: "No"},
	}
	if _, err := client.SendQuickReply(context.Background(), "user-1", "Buy it?", replies, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	msg := captured.body.Message
	if msg.Text != "Buy it?" || len(msg.QuickReplies) != 2 {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestSendGenericTemplate(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	elements := []Element{
		{Title: "Card A"},
		{Title: "Card B", Buttons: []Button{{Type: "postback", Title: "More", Payload: "MORE"}}},
	}
	if _, err := client.SendGenericTemplate(context.Background(), "user-1", elements); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	att := captured.body.Message.Attachment
	if att == nil || att.Type != "template" {
		t.Fatalf("expected template attachment, got %+v", att)
	}
	if att.Payload.TemplateType != "generic" || len(att.Payload.Elements) != 2 {
		t.Errorf("unexpected payload: %+v", att.Payload)
	}
}

func TestSendButtonTemplate(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	buttons := []Button{{Type: "web_url", Title: "Open", URL: "https://x"}}
	if _, err := client.SendButtonTemplate(context.Background(), "user-1", "Pick one", buttons); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := captured.body.Message.Attachment.Payload
	if payload.TemplateType != "button" || payload.Text != "Pick one" || len(payload.Buttons) != 1 {
		t.Errorf("unexpected payload: %+v", payload)
	}
}

func TestSendAccountLinking(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	if _, err := client.SendAccountLinking(context.Background(), "user-1", "Link your account", "https://x/authorize"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := captured.body.Message.Attachment.Payload
	if payload.TemplateType != "button" || payload.Text != "Link your account" {
		t.Errorf("unexpected payload: %+v", payload)
	}
	if len(payload.Buttons) != 1 || payload.Buttons[0].Type != "account_link" || payload.Buttons[0].URL != "https://x/authorize" {
		t.Errorf("unexpected button: %+v", payload.Buttons)
	}
}

func TestSendReceipt_GeneratesOrderNumber(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	payload := TemplatePayload{
		RecipientName: "Ada Lovelace",
		Currency:      "USD",
		PaymentMethod: "Visa",
		Summary:       &ReceiptSummary{TotalCost: 9.99},
	}
	if _, err := client.SendReceipt(context.Background(), "user-1", payload); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	sent := captured.body.Message.Attachment.Payload
	if sent.TemplateType != "receipt" {
		t.Errorf("expected receipt template, got %q", sent.TemplateType)
	}
	if sent.OrderNumber == "" {
		t.Error("expected a generated order number")
	}
}

func TestSendAction(t *testing.T) {
	client, captured := newTestClient(t, http.StatusOK, `{}`)

	if _, err := client.SendAction(context.Background(), "user-1", ActionTypingOn); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured.body.SenderAction != ActionTypingOn {
		t.Errorf("expected sender action, got %+v", captured.body)
	}
	if captured.body.Message != nil {
		t.Errorf("sender actions must not carry a message, got %+v", captured.body.Message)
	}
}

func TestSend_APIError(t *testing.T) {
	client, _ := newTestClient(t, http.StatusBadRequest,
		`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`)

	_, err := client.SendText(context.Background(), "user-1", "hi")
	if err == nil {
		t.Fatal("expected an error from the API")
	}
}

func TestGetProfile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user-1" {
			t.Errorf("expected /user-1, got %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"id":"user-1","first_name":"Ada","last_name":"Lovelace","gender":"female"}`))
	}))
	defer srv.Close()

	client := NewClient("page-token")
	client.SetGraphAPIBase(srv.URL)

	profile, err := client.GetProfile(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if profile.FirstName != "Ada" || profile.LastName != "Lovelace" {
		t.Errorf("unexpected profile: %+v", profile)
	}
}

func TestGetProfile_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":{"message":"Unsupported get request.","code":100}}`, http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient("page-token")
	client.SetGraphAPIBase(srv.URL)

	if _, err := client.GetProfile(context.Background(), "missing"); err == nil {
		t.Fatal("expected an error for a missing profile")
	}
}
