package queue

import (
	"context"
	"sync"
	"time"

	"github.com/castilh0s-archives/chatbot-example/internal/channels/messenger"
	"github.com/castilh0s-archives/chatbot-example/pkg/logging"
)

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
)

// EventHandler processes one inbound event. It must absorb its own failures;
// the worker treats every handled message as consumed.
type EventHandler interface {
	Handle(ctx context.Context, evt messenger.InboundEvent)
}

// Worker consumes inbound events from the queue and feeds the pipeline.
type Worker struct {
	queue   Client
	handler EventHandler
	logger  *logging.Logger
	cfg     workerConfig
	wg      sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
}

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkers sets the number of consumer goroutines.
func WithWorkers(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithReceiveWait sets the long-poll wait in seconds.
func WithReceiveWait(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// WithBatchSize sets the receive batch size.
func WithBatchSize(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.receiveBatchSize = n
		}
	}
}

// NewWorker creates a worker pool over the queue.
func NewWorker(queue Client, handler EventHandler, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("queue: client cannot be nil")
	}
	if handler == nil {
		panic("queue: handler cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.receiveWaitSecs > maxWaitSeconds {
		cfg.receiveWaitSecs = maxWaitSeconds
	}
	if cfg.receiveBatchSize > maxReceiveBatchSize {
		cfg.receiveBatchSize = maxReceiveBatchSize
	}

	return &Worker{
		queue:   queue,
		handler: handler,
		logger:  logger,
		cfg:     cfg,
	}
}

// Start launches the consumer goroutines. They run until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.logger.Info("queue worker started", "worker", id)
			w.run(ctx, id)
			w.logger.Info("queue worker stopped", "worker", id)
		}(i)
	}
}

// Wait blocks until all consumer goroutines have exited.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue receive failed", "worker", id, "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			w.process(ctx, msg)
		}
	}
}

func (w *Worker) process(ctx context.Context, msg Message) {
	payload, err := decodeEvent(msg.Body)
	if err != nil {
		// A message that cannot decode will never decode; drop it.
		w.logger.Error("dropping undecodable queue message", "message_id", msg.ID, "error", err)
		w.delete(msg)
		return
	}

	w.handler.Handle(ctx, payload.Event)
	w.delete(msg)
}

func (w *Worker) delete(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), deleteTimeoutSeconds*time.Second)
	defer cancel()
	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("queue delete failed", "message_id", msg.ID, "error", err)
	}
}
