package bot

import (
	"strings"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
)

// FragmentKind tags the variant of a Fragment.
type FragmentKind string

const (
	FragmentText         FragmentKind = "text"
	FragmentQuickReplies FragmentKind = "quickReplies"
	FragmentImage        FragmentKind = "image"
	FragmentCard         FragmentKind = "card"
)

// Fragment is one unit of an NLU reply prior to pacing and merging. Exactly
// one of the payload pointers matching Kind is set.
type Fragment struct {
	Kind         FragmentKind
	Text         *TextFragment
	QuickReplies *QuickRepliesFragment
	Image        *ImageFragment
	Card         *CardFragment
}

// TextFragment carries one or more lines; each non-empty line becomes its own
// text send.
type TextFragment struct {
	Lines []string
}

// QuickRepliesFragment asks a question with tappable options.
type QuickRepliesFragment struct {
	Title   string
	Options []string
}

// ImageFragment references an image by URI.
type ImageFragment struct {
	URI string
}

// CardFragment is a single carousel element.
type CardFragment struct {
	Title    string
	ImageURI string
	Subtitle string
	Buttons  []CardButton
}

// CardButton is one card button. Target is a URL when it starts with "http",
// otherwise an opaque postback payload.
type CardButton struct {
	Label  string
	Target string
}

// IsLink reports whether the button target should be rendered as a web URL
// button rather than a postback.
func (b CardButton) IsLink() bool {
	return strings.HasPrefix(b.Target, "http")
}

// TextFragmentOf builds a single-line text fragment.
func TextFragmentOf(lines ...string) Fragment {
	return Fragment{Kind: FragmentText, Text: &TextFragment{Lines: lines}}
}

// FirstText returns the first line of the first text fragment, or "" when the
// sequence has none. Action replies compose their wording around it.
func FirstText(fragments []Fragment) string {
	for _, f := range fragments {
		if f.Kind == FragmentText && f.Text != nil && len(f.Text.Lines) > 0 {
			return f.Text.Lines[0]
		}
	}
	return ""
}

// SendKind tags the variant of an OutboundSend.
type SendKind string

const (
	SendText            SendKind = "text"
	SendImage           SendKind = "image"
	SendQuickReply      SendKind = "quick_reply"
	SendButtonTemplate  SendKind = "button_template"
	SendGenericTemplate SendKind = "generic_template"
	SendReceipt         SendKind = "receipt"
	SendTypingIndicator SendKind = "typing_indicator"
	SendReadReceipt     SendKind = "read_receipt"
)

// OutboundSend is one resolved wire-level send. It is ephemeral: produced by
// the sequencer or resolver, consumed once by a Dispatcher.
type OutboundSend struct {
	Kind SendKind

	Text         string
	ImageURL     string
	QuickReplies []messenger.QuickReplyOption
	Buttons      []messenger.Button
	Elements     []messenger.Element
	Receipt      *messenger.TemplatePayload
	TypingOn     bool
}

// TextSend builds a plain text send.
func TextSend(text string) OutboundSend {
	return OutboundSend{Kind: SendText, Text: text}
}

// QuickReplySend builds a quick-reply send where each option echoes its label
// back as both title and payload.
func QuickReplySend(title string, options []string) OutboundSend {
	replies := make([]messenger.QuickReplyOption, 0, len(options))
	for _, opt := range options {
		replies = append(replies, messenger.QuickReplyOption{
			ContentType: messenger.QuickReplyContentTypeText,
			Title:       opt,
			Payload:     opt,
		})
	}
	return OutboundSend{Kind: SendQuickReply, Text: title, QuickReplies: replies}
}

// TypingSend builds a typing indicator send.
func TypingSend(on bool) OutboundSend {
	return OutboundSend{Kind: SendTypingIndicator, TypingOn: on}
}

// cardElement maps one card fragment to a carousel element, classifying each
// button as URL or postback by its target.
func cardElement(card CardFragment) messenger.Element {
	buttons := make([]messenger.Button, 0, len(card.Buttons))
	for _, b := range card.Buttons {
		if b.IsLink() {
			buttons = append(buttons, messenger.Button{
				Type:  "web_url",
				Title: b.Label,
				URL:   b.Target,
			})
		} else {
			buttons = append(buttons, messenger.Button{
				Type:    "postback",
				Title:   b.Label,
				Payload: b.Target,
			})
		}
	}
	return messenger.Element{
		Title:    card.Title,
		ImageURL: card.ImageURI,
		Subtitle: card.Subtitle,
		Buttons:  buttons,
	}
}
