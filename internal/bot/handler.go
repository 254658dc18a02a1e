package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
	"github.com/castilh0s-archives/chatbot-example/internal/nlu"
	"github.com/castilh0s-archives/chatbot-example/internal/session"
	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// FallbackReply is sent when the NLU could not make sense of the input and
// for unidentified postback payloads.
const FallbackReply = "I'm not sure what you want. Can you be more specific?"

const (
	getStartedPayload = "GET_STARTED"

	attachmentReply = "Attachment received. Thank you."
	optinReply      = "Authentication successful"

	greetingSuffix     = "I perform job interviews. What can I help you with?"
	defaultProfileWait = 2 * time.Second
)

// PipelineMetrics records inbound events and NLU call outcomes.
type PipelineMetrics interface {
	ObserveInbound(kind, status string)
	ObserveNLULatency(status string, seconds float64)
}

// Handler is the pipeline entry point: it owns session resolution, routes
// inbound events, calls the NLU and hands results to the resolver or the
// sequencing pipeline.
type Handler struct {
	registry    *session.Registry
	detector    nlu.Detector
	dispatcher  Dispatcher
	scheduler   *Scheduler
	resolver    *Resolver
	metrics     PipelineMetrics
	interval    time.Duration
	profileWait time.Duration
	logger      *logging.Logger
}

// HandlerOption customizes handler behavior.
type HandlerOption func(*Handler)

// WithProfileWait sets how long the welcome flow waits for the profile fetch.
func WithProfileWait(wait time.Duration) HandlerOption {
	return func(h *Handler) {
		h.profileWait = wait
	}
}

// WithPacingInterval sets the delay between consecutive outbound sends.
func WithPacingInterval(interval time.Duration) HandlerOption {
	return func(h *Handler) {
		h.interval = interval
	}
}

// WithMetrics attaches pipeline metrics.
func WithMetrics(metrics PipelineMetrics) HandlerOption {
	return func(h *Handler) {
		h.metrics = metrics
	}
}

// NewHandler creates the pipeline handler.
func NewHandler(registry *session.Registry, detector nlu.Detector, dispatcher Dispatcher, scheduler *Scheduler, resolver *Resolver, logger *logging.Logger, opts ...HandlerOption) *Handler {
	if registry == nil {
		panic("bot: registry cannot be nil")
	}
	if detector == nil {
		panic("bot: detector cannot be nil")
	}
	if dispatcher == nil {
		panic("bot: dispatcher cannot be nil")
	}
	if scheduler == nil {
		panic("bot: scheduler cannot be nil")
	}
	if resolver == nil {
		panic("bot: resolver cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &Handler{
		registry:    registry,
		detector:    detector,
		dispatcher:  dispatcher,
		scheduler:   scheduler,
		resolver:    resolver,
		interval:    DefaultInterval,
		profileWait: defaultProfileWait,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle processes one normalized inbound event. It never returns an error:
// every failure is absorbed locally with a logged trace and, where a reply is
// semantically expected, a best-effort fallback message.
func (h *Handler) Handle(ctx context.Context, evt messenger.InboundEvent) {
	h.logger.Info("inbound event",
		"kind", evt.Kind,
		"sender_id", evt.SenderID,
		"recipient_id", evt.RecipientID,
		"timestamp", evt.Timestamp,
	)
	if h.metrics != nil {
		h.metrics.ObserveInbound(string(evt.Kind), "received")
	}

	if evt.SenderID == "" {
		h.logger.Warn("event without sender, skipping")
		return
	}

	sessionID, err := h.registry.Ensure(ctx, evt.SenderID)
	if err != nil {
		h.logger.Error("session resolution failed", "sender_id", evt.SenderID, "error", err)
		return
	}

	switch evt.Kind {
	case messenger.InboundEcho:
		h.logger.Info("echo received", "message_id", evt.MessageID, "sender_id", evt.SenderID)
	case messenger.InboundQuickReply:
		h.queryNLU(ctx, evt.SenderID, sessionID, evt.QuickReplyPayload)
	case messenger.InboundAttachment:
		h.send(ctx, evt.SenderID, TextSend(attachmentReply))
	case messenger.InboundMessage:
		if evt.Text == "" {
			h.logger.Warn("message without text or attachments", "sender_id", evt.SenderID)
			return
		}
		h.queryNLU(ctx, evt.SenderID, sessionID, evt.Text)
	case messenger.InboundPostback:
		h.handlePostback(ctx, evt)
	case messenger.InboundOptin:
		h.send(ctx, evt.SenderID, TextSend(optinReply))
	case messenger.InboundDelivery, messenger.InboundRead, messenger.InboundAccountLinking:
		// Terminal events: logged above, no reply.
	default:
		h.logger.Warn("unknown inbound event kind", "kind", evt.Kind)
	}
}

func (h *Handler) handlePostback(ctx context.Context, evt messenger.InboundEvent) {
	switch evt.PostbackPayload {
	case getStartedPayload:
		h.greet(ctx, evt.SenderID)
	default:
		h.send(ctx, evt.SenderID, TextSend(FallbackReply))
	}
}

// greet welcomes a new user, waiting briefly for the asynchronous profile
// fetch so the greeting can use their first name.
func (h *Handler) greet(ctx context.Context, userID string) {
	if profile, ok := h.registry.WaitProfile(ctx, userID, h.profileWait); ok && profile.FirstName != "" {
		h.send(ctx, userID, TextSend(fmt.Sprintf("Welcome %s! %s", profile.FirstName, greetingSuffix)))
		return
	}
	h.logger.Warn("profile not resolved in time, greeting generically", "user_id", userID)
	h.send(ctx, userID, TextSend(fmt.Sprintf("Welcome! %s", greetingSuffix)))
}

// queryNLU runs the utterance through the NLU with typing indicators around
// the round trip. An NLU failure is logged and produces no reply.
func (h *Handler) queryNLU(ctx context.Context, senderID, sessionID, text string) {
	h.send(ctx, senderID, TypingSend(true))

	start := time.Now()
	result, err := h.detector.DetectIntent(ctx, sessionID, text, nil)
	if err != nil {
		if h.metrics != nil {
			h.metrics.ObserveNLULatency("error", time.Since(start).Seconds())
		}
		h.logger.Error("NLU call failed", "sender_id", senderID, "error", err)
		return
	}
	if h.metrics != nil {
		h.metrics.ObserveNLULatency("ok", time.Since(start).Seconds())
	}

	h.send(ctx, senderID, TypingSend(false))
	h.handleResult(ctx, senderID, result)
}

// handleResult picks the reply strategy for one NLU result.
func (h *Handler) handleResult(ctx context.Context, senderID string, result *nlu.QueryResult) {
	fragments := fragmentsFromResult(result)

	if action, ok := DecodeAction(result); ok {
		h.resolver.Resolve(ctx, senderID, action, fragments)
		return
	}

	if len(fragments) > 0 {
		h.scheduler.Schedule(ctx, senderID, Plan(fragments, h.interval))
		return
	}

	if result.FulfillmentText == "" {
		h.send(ctx, senderID, TextSend(FallbackReply))
		return
	}

	h.send(ctx, senderID, TextSend(result.FulfillmentText))
}

func (h *Handler) send(ctx context.Context, recipientID string, out OutboundSend) {
	if err := h.dispatcher.Dispatch(ctx, recipientID, out); err != nil {
		h.logger.Error("reply failed", "recipient_id", recipientID, "kind", out.Kind, "error", err)
	}
}

// fragmentsFromResult maps NLU fulfillment messages onto the canonical
// fragment model. Unrecognized message shapes are dropped.
func fragmentsFromResult(result *nlu.QueryResult) []Fragment {
	if result == nil {
		return nil
	}

	var fragments []Fragment
	for _, m := range result.FulfillmentMessages {
		switch {
		case m.Text != nil:
			fragments = append(fragments, Fragment{
				Kind: FragmentText,
				Text: &TextFragment{Lines: m.Text.Text},
			})
		case m.QuickReplies != nil:
			fragments = append(fragments, Fragment{
				Kind: FragmentQuickReplies,
				QuickReplies: &QuickRepliesFragment{
					Title:   m.QuickReplies.Title,
					Options: m.QuickReplies.QuickReplies,
				},
			})
		case m.Image != nil:
			fragments = append(fragments, Fragment{
				Kind:  FragmentImage,
				Image: &ImageFragment{URI: m.Image.ImageURI},
			})
		case m.Card != nil:
			card := CardFragment{
				Title:    m.Card.Title,
				Subtitle: m.Card.Subtitle,
				ImageURI: m.Card.ImageURI,
			}
			for _, b := range m.Card.Buttons {
				card.Buttons = append(card.Buttons, CardButton{
					Label:  b.Text,
					Target: b.Postback,
				})
			}
			fragments = append(fragments, Fragment{Kind: FragmentCard, Card: &card})
		}
	}
	return fragments
}
