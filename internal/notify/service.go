package notify

import (
	"context"
	"fmt"

	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// Service wraps an EmailSender with a fixed notification recipient. It is the
// side channel the conversation pipeline uses for job-application alerts.
type Service struct {
	sender EmailSender
	to     string
	toName string
	logger *logging.Logger
}

// NewService creates a notification service. Returns nil when no recipient is
// configured so callers can treat the side channel as disabled.
func NewService(sender EmailSender, to, toName string, logger *logging.Logger) *Service {
	if sender == nil || to == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender: sender,
		to:     to,
		toName: toName,
		logger: logger,
	}
}

// Notify sends a notification with the given subject and content. The content
// is delivered both as the plain text body and wrapped in a paragraph as HTML.
func (s *Service) Notify(ctx context.Context, subject, content string) error {
	err := s.sender.Send(ctx, EmailMessage{
		To:      s.to,
		ToName:  s.toName,
		Subject: subject,
		Body:    content,
		HTML:    fmt.Sprintf("<p>%s</p>", content),
	})
	if err != nil {
		return fmt.Errorf("notify: notification send failed: %w", err)
	}
	s.logger.Info("notification sent", "subject", subject, "to", s.to)
	return nil
}
