package bot

import (
	"context"
	"fmt"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
	"github.com/castilh0s-archives/chatbot-example/internal/session"
	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// SendAPI is the subset of the Messenger client the dispatch gateway drives.
type SendAPI interface {
	SendText(ctx context.Context, recipientID, text string) (*messenger.SendResponse, error)
	SendImage(ctx context.Context, recipientID, imageURL string) (*messenger.SendResponse, error)
	SendQuickReply(ctx context.Context, recipientID, text string, replies []messenger.QuickReplyOption, metadata string) (*messenger.SendResponse, error)
	SendButtonTemplate(ctx context.Context, recipientID, text string, buttons []messenger.Button) (*messenger.SendResponse, error)
	SendGenericTemplate(ctx context.Context, recipientID string, elements []messenger.Element) (*messenger.SendResponse, error)
	SendReceipt(ctx context.Context, recipientID string, payload messenger.TemplatePayload) (*messenger.SendResponse, error)
	SendAction(ctx context.Context, recipientID, action string) (*messenger.SendResponse, error)
}

// SendMetrics records the outcome of outbound sends.
type SendMetrics interface {
	ObserveOutbound(kind, status string)
}

// SendGateway adapts OutboundSend values onto the Messenger Send API. It is
// fire-and-forget from the pipeline's perspective: every outcome is logged
// and counted, and errors are returned only so callers can log context.
type SendGateway struct {
	api     SendAPI
	metrics SendMetrics
	logger  *logging.Logger
}

// NewSendGateway creates the dispatch gateway. metrics may be nil.
func NewSendGateway(api SendAPI, metrics SendMetrics, logger *logging.Logger) *SendGateway {
	if api == nil {
		panic("bot: send API cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &SendGateway{
		api:     api,
		metrics: metrics,
		logger:  logger,
	}
}

// Dispatch delivers one outbound send to the transport.
func (g *SendGateway) Dispatch(ctx context.Context, recipientID string, send OutboundSend) error {
	var err error

	switch send.Kind {
	case SendText:
		_, err = g.api.SendText(ctx, recipientID, send.Text)
	case SendImage:
		_, err = g.api.SendImage(ctx, recipientID, send.ImageURL)
	case SendQuickReply:
		_, err = g.api.SendQuickReply(ctx, recipientID, send.Text, send.QuickReplies, "")
	case SendButtonTemplate:
		_, err = g.api.SendButtonTemplate(ctx, recipientID, send.Text, send.Buttons)
	case SendGenericTemplate:
		_, err = g.api.SendGenericTemplate(ctx, recipientID, send.Elements)
	case SendReceipt:
		if send.Receipt == nil {
			err = fmt.Errorf("bot: receipt send without payload")
			break
		}
		_, err = g.api.SendReceipt(ctx, recipientID, *send.Receipt)
	case SendTypingIndicator:
		action := messenger.ActionTypingOff
		if send.TypingOn {
			action = messenger.ActionTypingOn
		}
		_, err = g.api.SendAction(ctx, recipientID, action)
	case SendReadReceipt:
		_, err = g.api.SendAction(ctx, recipientID, messenger.ActionMarkSeen)
	default:
		err = fmt.Errorf("bot: unknown send kind %q", send.Kind)
	}

	status := "ok"
	if err != nil {
		status = "error"
		g.logger.Error("send failed", "recipient_id", recipientID, "kind", send.Kind, "error", err)
	} else {
		g.logger.Debug("send delivered", "recipient_id", recipientID, "kind", send.Kind)
	}
	if g.metrics != nil {
		g.metrics.ObserveOutbound(string(send.Kind), status)
	}
	return err
}

var _ Dispatcher = (*SendGateway)(nil)

// ProfileAdapter exposes the Messenger profile lookup as a session
// ProfileSource.
type ProfileAdapter struct {
	client *messenger.Client
}

// NewProfileAdapter wraps the Graph API client.
func NewProfileAdapter(client *messenger.Client) *ProfileAdapter {
	return &ProfileAdapter{client: client}
}

// Fetch reads the user's platform profile.
func (a *ProfileAdapter) Fetch(ctx context.Context, userID string) (*session.UserProfile, error) {
	profile, err := a.client.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &session.UserProfile{
		UserID:    profile.ID,
		FirstName: profile.FirstName,
		LastName:  profile.LastName,
		Gender:    profile.Gender,
	}, nil
}

var _ session.ProfileSource = (*ProfileAdapter)(nil)
