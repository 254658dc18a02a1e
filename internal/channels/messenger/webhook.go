package messenger

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookHandler handles Messenger webhook verification and inbound events.
type WebhookHandler struct {
	verifyToken string
	appSecret   string
	onEvent     func(evt InboundEvent)
}

// NewWebhookHandler creates a new webhook handler.
// onEvent is called for each parsed inbound messaging event.
func NewWebhookHandler(verifyToken, appSecret string, onEvent func(InboundEvent)) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		appSecret:   appSecret,
		onEvent:     onEvent,
	}
}

// HandleVerification handles the GET webhook verification challenge from Meta.
func (h *WebhookHandler) HandleVerification(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, challenge)
		return
	}

	http.Error(w, "Forbidden", http.StatusForbidden)
}

// HandleInbound handles POST webhook events. It must respond 200 within 20
// seconds or the platform retries delivery, so parsed events are handed to
// onEvent and the response is written before any downstream work completes.
func (h *WebhookHandler) HandleInbound(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	signature := r.Header.Get("X-Hub-Signature")
	if !VerifySignature(h.appSecret, body, signature) {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var event WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if event.Object != "page" {
		w.WriteHeader(http.StatusOK)
		return
	}

	w.WriteHeader(http.StatusOK)

	for _, evt := range ParseWebhookEvent(event) {
		if h.onEvent != nil {
			h.onEvent(evt)
		}
	}
}

// ParseWebhookEvent extracts normalized InboundEvents from a webhook payload.
// Messaging entries with no recognizable shape are dropped.
func ParseWebhookEvent(event WebhookEvent) []InboundEvent {
	var events []InboundEvent

	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			parsed := InboundEvent{
				SenderID:    m.Sender.ID,
				RecipientID: m.Recipient.ID,
				Timestamp:   time.UnixMilli(m.Timestamp),
			}

			switch {
			case m.Message != nil:
				msg := m.Message
				parsed.MessageID = msg.MID
				parsed.Text = msg.Text
				switch {
				case msg.IsEcho:
					parsed.Kind = InboundEcho
				case msg.QuickReply != nil:
					parsed.Kind = InboundQuickReply
					parsed.QuickReplyPayload = msg.QuickReply.Payload
				case len(msg.Attachments) > 0:
					parsed.Kind = InboundAttachment
					for _, a := range msg.Attachments {
						parsed.AttachmentURLs = append(parsed.AttachmentURLs, a.Payload.URL)
					}
				default:
					parsed.Kind = InboundMessage
				}
			case m.Postback != nil:
				parsed.Kind = InboundPostback
				parsed.Text = m.Postback.Title
				parsed.PostbackPayload = m.Postback.Payload
			case m.Delivery != nil:
				parsed.Kind = InboundDelivery
			case m.Read != nil:
				parsed.Kind = InboundRead
			case m.Optin != nil:
				parsed.Kind = InboundOptin
			case m.AccountLinking != nil:
				parsed.Kind = InboundAccountLinking
			default:
				continue
			}

			events = append(events, parsed)
		}
	}

	return events
}

// VerifySignature verifies the X-Hub-Signature header (HMAC-SHA1, the scheme
// the Messenger platform has always sent for this header).
func VerifySignature(appSecret string, body []byte, signature string) bool {
	if appSecret == "" || signature == "" {
		return false
	}

	const prefix = "sha1="
	if !strings.HasPrefix(signature, prefix) {
		return false
	}
	sigHex := signature[len(prefix):]

	mac := hmac.New(sha1.New, []byte(appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(sigHex))
}
