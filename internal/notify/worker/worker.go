// Package worker drains the notification queue: it renders each message,
// hands it to the mail sender, and decides between retry and dead letter.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"supplierhub/internal/notify"
	"supplierhub/internal/notify/metrics"
	"supplierhub/internal/notify/sender"
	"supplierhub/internal/notify/templates"
	"supplierhub/pkg/platform/privacy"
)

const (
	DefaultMaxAttempts = 5
	DefaultBackoff     = 2 * time.Second
	maxBackoff         = time.Minute
)

// Renderer turns a template and its data into an email body.
type Renderer interface {
	Render(name notify.Template, data map[string]string) (*templates.Rendered, error)
}

type Worker struct {
	queue       notify.Queue
	renderer    Renderer
	sender      sender.Sender
	logger      *slog.Logger
	metrics     *metrics.Metrics
	maxAttempts int
	backoff     time.Duration
	concurrency int
}

type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) {
		w.metrics = m
	}
}

func WithMaxAttempts(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.maxAttempts = n
		}
	}
}

// WithBackoff sets the base delay before a failed message is handed back.
// The delay doubles per attempt up to one minute.
func WithBackoff(d time.Duration) Option {
	return func(w *Worker) {
		w.backoff = d
	}
}

func WithConcurrency(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

func New(queue notify.Queue, renderer Renderer, s sender.Sender, opts ...Option) (*Worker, error) {
	if queue == nil {
		return nil, errors.New("notification queue is required")
	}
	if renderer == nil {
		return nil, errors.New("template renderer is required")
	}
	if s == nil {
		return nil, errors.New("email sender is required")
	}
	w := &Worker{
		queue:       queue,
		renderer:    renderer,
		sender:      s,
		logger:      slog.Default(),
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run consumes with the configured number of loops until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.InfoContext(ctx, "notification worker started", "concurrency", w.concurrency)
	g, ctx := errgroup.WithContext(ctx)
	for range w.concurrency {
		g.Go(func() error {
			return w.queue.Consume(ctx, w.Handle)
		})
	}
	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	w.logger.Info("notification worker stopped")
	return err
}

// Handle delivers one message. A nil return acknowledges it: either it was
// sent, or it can never be sent and has been dropped or dead-lettered.
func (w *Worker) Handle(ctx context.Context, msg notify.Message) error {
	log := w.logger.With(
		"message_id", msg.ID,
		"template", msg.Template,
		"recipient", privacy.RedactEmail(msg.To),
		"attempt", msg.Attempts+1,
		"request_id", msg.RequestID,
	)

	rendered, err := w.renderer.Render(msg.Template, msg.Data)
	if err != nil {
		// Rendering is deterministic, so retrying cannot help.
		log.ErrorContext(ctx, "failed to render notification", "error", err)
		w.park(ctx, log, msg, fmt.Sprintf("render: %v", err), metrics.OutcomeDropped)
		return nil
	}

	start := time.Now()
	err = w.sender.Send(ctx, sender.Email{To: msg.To, Subject: rendered.Subject, HTML: rendered.HTML})
	w.metrics.ObserveSend(time.Since(start).Seconds())
	if err == nil {
		log.InfoContext(ctx, "notification sent")
		w.metrics.IncrementDelivery(string(msg.Template), metrics.OutcomeSent)
		return nil
	}

	if msg.Attempts+1 >= w.maxAttempts {
		log.ErrorContext(ctx, "notification delivery exhausted", "error", err)
		w.park(ctx, log, msg, err.Error(), metrics.OutcomeDeadLettered)
		return nil
	}

	log.WarnContext(ctx, "notification delivery failed, will retry", "error", err)
	w.metrics.IncrementDelivery(string(msg.Template), metrics.OutcomeRetried)
	if !w.wait(ctx, w.delay(msg.Attempts)) {
		return ctx.Err()
	}
	return err
}

func (w *Worker) park(ctx context.Context, log *slog.Logger, msg notify.Message, reason, outcome string) {
	dl, ok := w.queue.(notify.DeadLetterer)
	if !ok {
		w.metrics.IncrementDelivery(string(msg.Template), metrics.OutcomeDropped)
		return
	}
	if err := dl.DeadLetter(ctx, msg, reason); err != nil {
		log.ErrorContext(ctx, "failed to dead-letter notification", "error", err)
		w.metrics.IncrementDelivery(string(msg.Template), metrics.OutcomeDropped)
		return
	}
	w.metrics.IncrementDelivery(string(msg.Template), outcome)
}

func (w *Worker) delay(attempts int) time.Duration {
	d := w.backoff
	for range attempts {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	return d
}

func (w *Worker) wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
