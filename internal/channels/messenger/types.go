package messenger

import "time"

// WebhookEvent is the top-level structure received from Meta's webhook.
type WebhookEvent struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

// Entry represents a single page entry in the webhook payload. Entries may be
// batched.
type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging"`
}

// Messaging represents a single messaging event.
type Messaging struct {
	Sender         Sender          `json:"sender"`
	Recipient      Recipient       `json:"recipient"`
	Timestamp      int64           `json:"timestamp"`
	Message        *Message        `json:"message,omitempty"`
	Postback       *Postback       `json:"postback,omitempty"`
	Delivery       *Delivery       `json:"delivery,omitempty"`
	Read           *Read           `json:"read,omitempty"`
	Optin          *Optin          `json:"optin,omitempty"`
	AccountLinking *AccountLinking `json:"account_linking,omitempty"`
}

// Sender identifies who sent the message.
type Sender struct {
	ID string `json:"id"`
}

// Recipient identifies the page the message was sent to.
type Recipient struct {
	ID string `json:"id"`
}

// Message contains the inbound message content. Text and attachments are
// mutually exclusive on the wire.
type Message struct {
	MID         string       `json:"mid"`
	Text        string       `json:"text"`
	IsEcho      bool         `json:"is_echo,omitempty"`
	AppID       int64        `json:"app_id,omitempty"`
	Metadata    string       `json:"metadata,omitempty"`
	QuickReply  *QuickReply  `json:"quick_reply,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// QuickReply is the payload echoed back when a user taps a quick reply.
type QuickReply struct {
	Payload string `json:"payload"`
}

// Attachment is an inbound media attachment.
type Attachment struct {
	Type    string            `json:"type"`
	Payload AttachmentPayload `json:"payload"`
}

// AttachmentPayload carries the media URL of an inbound attachment.
type AttachmentPayload struct {
	URL string `json:"url"`
}

// Postback represents a postback event (button tap).
type Postback struct {
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

// Delivery confirms messages delivered up to a watermark.
type Delivery struct {
	MIDs      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
	Seq       int64    `json:"seq"`
}

// Read confirms messages read up to a watermark.
type Read struct {
	Watermark int64 `json:"watermark"`
	Seq       int64 `json:"seq"`
}

// Optin is the Send-to-Messenger plugin authentication event.
type Optin struct {
	Ref string `json:"ref"`
}

// AccountLinking reports a link/unlink action.
type AccountLinking struct {
	Status            string `json:"status"`
	AuthorizationCode string `json:"authorization_code"`
}

// InboundKind classifies a normalized inbound event.
type InboundKind string

const (
	InboundMessage        InboundKind = "message"
	InboundQuickReply     InboundKind = "quick_reply"
	InboundEcho           InboundKind = "echo"
	InboundAttachment     InboundKind = "attachment"
	InboundPostback       InboundKind = "postback"
	InboundDelivery       InboundKind = "delivery"
	InboundRead           InboundKind = "read"
	InboundOptin          InboundKind = "optin"
	InboundAccountLinking InboundKind = "account_linking"
)

// InboundEvent is the normalized result of parsing one messaging event.
type InboundEvent struct {
	Kind              InboundKind
	SenderID          string
	RecipientID       string
	Timestamp         time.Time
	MessageID         string
	Text              string
	QuickReplyPayload string
	PostbackPayload   string
	AttachmentURLs    []string
}

// SendRequest is the payload sent to the Graph API to send a message.
type SendRequest struct {
	Recipient    SendRecipient `json:"recipient"`
	Message      *SendMessage  `json:"message,omitempty"`
	SenderAction string        `json:"sender_action,omitempty"`
}

// SendRecipient identifies who to send the message to.
type SendRecipient struct {
	ID string `json:"id"`
}

// SendMessage is the message content for outbound messages.
type SendMessage struct {
	Text         string            `json:"text,omitempty"`
	Metadata     string            `json:"metadata,omitempty"`
	Attachment   *SendAttachment   `json:"attachment,omitempty"`
	QuickReplies []QuickReplyOption `json:"quick_replies,omitempty"`
}

// QuickReplyOption is one tappable quick-reply chip.
type QuickReplyOption struct {
	ContentType string `json:"content_type"`
	Title       string `json:"title"`
	Payload     string `json:"payload"`
}

// SendAttachment represents a structured outbound attachment. Type is one of
// "image", "audio", "video", "file" or "template".
type SendAttachment struct {
	Type    string          `json:"type"`
	Payload TemplatePayload `json:"payload"`
}

// TemplatePayload covers every attachment payload shape the Send API accepts.
// Only the fields relevant to the chosen template type are populated.
type TemplatePayload struct {
	URL          string    `json:"url,omitempty"`
	TemplateType string    `json:"template_type,omitempty"`
	Text         string    `json:"text,omitempty"`
	Buttons      []Button  `json:"buttons,omitempty"`
	Elements     []Element `json:"elements,omitempty"`

	// Receipt template fields.
	RecipientName string              `json:"recipient_name,omitempty"`
	OrderNumber   string              `json:"order_number,omitempty"`
	Currency      string              `json:"currency,omitempty"`
	PaymentMethod string              `json:"payment_method,omitempty"`
	Timestamp     string              `json:"timestamp,omitempty"`
	Address       *ReceiptAddress     `json:"address,omitempty"`
	Summary       *ReceiptSummary     `json:"summary,omitempty"`
	Adjustments   []ReceiptAdjustment `json:"adjustments,omitempty"`
}

// Button represents a button in a button or generic template.
type Button struct {
	Type    string `json:"type"`
	Title   string `json:"title,omitempty"`
	URL     string `json:"url,omitempty"`
	Payload string `json:"payload,omitempty"`
}

// Element is one carousel card in a generic template.
type Element struct {
	Title    string   `json:"title"`
	ImageURL string   `json:"image_url,omitempty"`
	Subtitle string   `json:"subtitle,omitempty"`
	Buttons  []Button `json:"buttons,omitempty"`
}

// ReceiptAddress is the shipping address block of a receipt template.
type ReceiptAddress struct {
	Street1    string `json:"street_1"`
	Street2    string `json:"street_2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	State      string `json:"state"`
	Country    string `json:"country"`
}

// ReceiptSummary is the totals block of a receipt template.
type ReceiptSummary struct {
	Subtotal     float64 `json:"subtotal,omitempty"`
	ShippingCost float64 `json:"shipping_cost,omitempty"`
	TotalTax     float64 `json:"total_tax,omitempty"`
	TotalCost    float64 `json:"total_cost"`
}

// ReceiptAdjustment is a discount line of a receipt template.
type ReceiptAdjustment struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// SendResponse is the response from the Graph API after sending a message.
type SendResponse struct {
	RecipientID string     `json:"recipient_id"`
	MessageID   string     `json:"message_id"`
	Error       *SendError `json:"error,omitempty"`
}

// SendError represents an error returned by the Graph API.
type SendError struct {
	Message   string `json:"message"`
	Type      string `json:"type"`
	Code      int    `json:"code"`
	FBTraceID string `json:"fbtrace_id"`
}

// UserProfile is the Graph API user profile record.
type UserProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
}
