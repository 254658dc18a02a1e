package messenger

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"testing"
)

const testAppSecret = "test-app-secret"

func sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return "sha1=" + hex.EncodeToString(mac.Sum(nil))
}

func TestHandleVerification(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{
			"valid subscription",
			"hub.mode=subscribe&hub.verify_token=good-token&hub.challenge=challenge-123",
			http.StatusOK,
			"challenge-123",
		},
		{
			"wrong token",
			"hub.mode=subscribe&hub.verify_token=bad-token&hub.challenge=challenge-123",
			http.StatusForbidden,
			"",
		},
		{
			"wrong mode",
			"hub.mode=unsubscribe&hub.verify_token=good-token&hub.challenge=challenge-123",
			http.StatusForbidden,
			"",
		},
		{
			"missing parameters",
			"",
			http.StatusForbidden,
			"",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewWebhookHandler("good-token", testAppSecret, nil)
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tt.query, nil)
			rr := httptest.NewRecorder()

			h.HandleVerification(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if tt.wantBody != "" && rr.Body.String() != tt.wantBody {
				t.Errorf("expected body %q, got %q", tt.wantBody, rr.Body.String())
			}
		})
	}
}

func postWebhook(t *testing.T, h *WebhookHandler, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Hub-Signature", signature)
	}
	rr := httptest.NewRecorder()
	h.HandleInbound(rr, req)
	return rr
}

func TestHandleInbound_DispatchesParsedEvents(t *testing.T) {
	var received []InboundEvent
	h := NewWebhookHandler("tok", testAppSecret, func(evt InboundEvent) {
		received = append(received, evt)
	})

	body := []byte(`{
		"object": "page",
		"entry": [{
			"id": "page-1",
			"time": 1531420033000,
			"messaging": [{
				"sender": {"id": "user-1"},
				"recipient": {"id": "page-1"},
				"timestamp": 1531420033000,
				"message": {"mid": "m-1", "text": "hello"}
			}]
		}]
	}`)

	rr := postWebhook(t, h, body, sign(testAppSecret, body))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 event, got %d", len(received))
	}
	evt := received[0]
	if evt.Kind != InboundMessage || evt.SenderID != "user-1" || evt.Text != "hello" {
		t.Errorf("unexpected event: %+v", evt)
	}
}

func TestHandleInbound_RejectsBadSignature(t *testing.T) {
	called := false
	h := NewWebhookHandler("tok", testAppSecret, func(InboundEvent) { called = true })

	body := []byte(`{"object":"page","entry":[]}`)

	rr := postWebhook(t, h, body, sign("wrong-secret", body))

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
	if called {
		t.Error("events must not be dispatched for an unverified payload")
	}
}

func TestHandleInbound_RejectsMissingSignature(t *testing.T) {
	h := NewWebhookHandler("tok", testAppSecret, nil)

	rr := postWebhook(t, h, []byte(`{"object":"page"}`), "")

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rr.Code)
	}
}

func TestHandleInbound_IgnoresNonPageObjects(t *testing.T) {
	called := false
	h := NewWebhookHandler("tok", testAppSecret, func(InboundEvent) { called = true })

	body := []byte(`{"object":"instagram","entry":[]}`)

	rr := postWebhook(t, h, body, sign(testAppSecret, body))

	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	if called {
		t.Error("non-page payloads must not dispatch events")
	}
}

func TestHandleInbound_BadJSON(t *testing.T) {
	h := NewWebhookHandler("tok", testAppSecret, nil)

	body := []byte(`{not json`)

	rr := postWebhook(t, h, body, sign(testAppSecret, body))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"page"}`)

	tests := []struct {
		name      string
		secret    string
		signature string
		want      bool
	}{
		{"valid", testAppSecret, sign(testAppSecret, body), true},
		{"wrong secret", testAppSecret, sign("other", body), false},
		{"missing prefix", testAppSecret, "deadbeef", false},
		{"sha256 prefix not accepted", testAppSecret, "sha256=deadbeef", false},
		{"empty signature", testAppSecret, "", false},
		{"empty secret", "", sign(testAppSecret, body), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := VerifySignature(tt.secret, body, tt.signature); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestParseWebhookEvent(t *testing.T) {
	tests := []struct {
		name      string
		messaging Messaging
		wantKind  InboundKind
		check     func(t *testing.T, evt InboundEvent)
	}{
		{
			"plain message",
			Messaging{Message: &Message{MID: "m-1", Text: "hi"}},
			InboundMessage,
			func(t *testing.T, evt InboundEvent) {
				if evt.Text != "hi" || evt.MessageID != "m-1" {
					t.Errorf("unexpected event: %+v", evt)
				}
			},
		},
		{
			"echo",
			Messaging{Message: &Message{MID: "m-2", Text: "hi", IsEcho: true}},
			InboundEcho,
			nil,
		},
		{
			"quick reply",
			Messaging{Message: &Message{Text: "Yes", QuickReply: &QuickReply{Payload: "YES"}}},
			InboundQuickReply,
			func(t *testing.T, evt InboundEvent) {
				if evt.QuickReplyPayload != "YES" {
					t.Errorf("expected payload YES, got %q", evt.QuickReplyPayload)
				}
			},
		},
		{
			"attachment",
			Messaging{Message: &Message{Attachments: []Attachment{
				{Type: "image", Payload: AttachmentPayload{URL: "https://x/a.png"}},
			}}},
			InboundAttachment,
			func(t *testing.T, evt InboundEvent) {
				if len(evt.AttachmentURLs) != 1 || evt.AttachmentURLs[0] != "https://x/a.png" {
					t.Errorf("unexpected attachments: %v", evt.AttachmentURLs)
				}
			},
		},
		{
			"postback",
			Messaging{Postback: &Postback{Title: "Get Started", Payload: "GET_STARTED"}},
			InboundPostback,
			func(t *testing.T, evt InboundEvent) {
				if evt.PostbackPayload != "GET_STARTED" || evt.Text != "Get Started" {
					t.Errorf("unexpected postback: %+v", evt)
				}
			},
		},
		{
			"delivery",
			Messaging{Delivery: &Delivery{}},
			InboundDelivery,
			nil,
		},
		{
			"read",
			Messaging{Read: &Read{}},
			InboundRead,
			nil,
		},
		{
			"optin",
			Messaging{Optin: &Optin{}},
			InboundOptin,
			nil,
		},
		{
			"account linking",
			Messaging{AccountLinking: &AccountLinking{}},
			InboundAccountLinking,
			nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := tt.messaging
			m.Sender = Sender{ID: "user-1"}
			m.Recipient = Recipient{ID: "page-1"}

			events := ParseWebhookEvent(WebhookEvent{
				Object: "page",
				Entry:  []Entry{{Messaging: []Messaging{m}}},
			})

			if len(events) != 1 {
				t.Fatalf("expected 1 event, got %d", len(events))
			}
			evt := events[0]
			if evt.Kind != tt.wantKind {
				t.Errorf("expected kind %s, got %s", tt.wantKind, evt.Kind)
			}
			if evt.SenderID != "user-1" || evt.RecipientID != "page-1" {
				t.Errorf("ids not carried over: %+v", evt)
			}
			if tt.check != nil {
				tt.check(t, evt)
			}
		})
	}
}

func TestParseWebhookEvent_DropsUnrecognizedEntries(t *testing.T) {
	events := ParseWebhookEvent(WebhookEvent{
		Object: "page",
		Entry: []Entry{{Messaging: []Messaging{
			{Sender: Sender{ID: "user-1"}},
		}}},
	})

	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

func TestParseWebhookEvent_BatchedEntries(t *testing.T) {
	events := ParseWebhookEvent(WebhookEvent{
		Object: "page",
		Entry: []Entry{
			{Messaging: []Messaging{{Sender: Sender{ID: "a"}, Message: &Message{Text: "one"}}}},
			{Messaging: []Messaging{{Sender: Sender{ID: "b"}, Message: &Message{Text: "two"}}}},
		},
	})

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].SenderID != "a" || events[1].SenderID != "b" {
		t.Errorf("events out of order: %+v", events)
	}
}
