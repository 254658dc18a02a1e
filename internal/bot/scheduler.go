package bot

import (
	"context"
	"sync"
	"time"

	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

// Scheduler fires a plan of scheduled sends against a Dispatcher. Each send
// runs in its own goroutine so sends never block one another; initiation order
// follows the scheduled delays but completion order is up to the transport.
type Scheduler struct {
	dispatcher Dispatcher
	logger     *logging.Logger
	wg         sync.WaitGroup
}

// NewScheduler creates a scheduler over the given dispatcher.
func NewScheduler(dispatcher Dispatcher, logger *logging.Logger) *Scheduler {
	if dispatcher == nil {
		panic("bot: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Scheduler{
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Schedule launches every send in the plan and returns immediately. A send
// whose delay has not elapsed when ctx is cancelled is abandoned. Dispatch
// failures are logged and do not affect the other sends.
func (s *Scheduler) Schedule(ctx context.Context, recipientID string, plan []ScheduledSend) {
	for _, scheduled := range plan {
		s.wg.Add(1)
		go func(item ScheduledSend) {
			defer s.wg.Done()

			if item.Delay > 0 {
				timer := time.NewTimer(item.Delay)
				defer timer.Stop()
				select {
				case <-ctx.Done():
					s.logger.Debug("scheduled send abandoned", "recipient_id", recipientID, "kind", item.Send.Kind)
					return
				case <-timer.C:
				}
			}

			if err := s.dispatcher.Dispatch(ctx, recipientID, item.Send); err != nil {
				s.logger.Error("scheduled send failed",
					"recipient_id", recipientID,
					"kind", item.Send.Kind,
					"error", err,
				)
			}
		}(scheduled)
	}
}

// Wait blocks until every launched send has finished. Used on shutdown and in
// tests.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}
