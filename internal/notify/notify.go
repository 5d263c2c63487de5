// Package notify queues transactional emails about contact requests and
// delivers them from a background worker.
//
// Send only enqueues. Delivery is at-least-once: a message whose send fails
// is redelivered until it succeeds or exhausts its attempts, after which it
// is dead-lettered. Callers treat Send errors as log-only so a mail outage
// never affects the contact workflow that triggered it.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"supplierhub/pkg/platform/privacy"
	"supplierhub/pkg/requestcontext"
)

// Template names one of the transactional emails.
type Template string

const (
	// TemplateContactRequestNotification tells a supplier about a new request.
	TemplateContactRequestNotification Template = "contact_request_notification"
	// TemplateContactRequestReceived confirms a submission to the buyer.
	TemplateContactRequestReceived Template = "contact_request_received"
	// TemplateContactResponse carries the supplier's reply to the buyer.
	TemplateContactResponse Template = "contact_response"
	// TemplateContactForwarded is the moderated request sent to the supplier.
	TemplateContactForwarded Template = "contact_forwarded"
	// TemplateContactApproved tells the buyer their request was forwarded.
	TemplateContactApproved Template = "contact_approved"
	// TemplateContactRejected tells the buyer their request was declined.
	TemplateContactRejected Template = "contact_rejected"
	// TemplateContactUnlocked tells the supplier the buyer's details are visible.
	TemplateContactUnlocked Template = "contact_unlocked"
)

var knownTemplates = map[Template]struct{}{
	TemplateContactRequestNotification: {},
	TemplateContactRequestReceived:     {},
	TemplateContactResponse:            {},
	TemplateContactForwarded:           {},
	TemplateContactApproved:            {},
	TemplateContactRejected:            {},
	TemplateContactUnlocked:            {},
}

func (t Template) IsValid() bool {
	_, ok := knownTemplates[t]
	return ok
}

// Message is the queued unit of work. Data holds the template fields as
// strings so every queue backend can serialize it as plain JSON.
type Message struct {
	ID        string            `json:"id"`
	Template  Template          `json:"template"`
	To        string            `json:"to"`
	Data      map[string]string `json:"data"`
	RequestID string            `json:"request_id,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	Attempts  int               `json:"attempts"`
}

// HandleFunc processes one delivered message. A non-nil error asks the
// queue to redeliver it.
type HandleFunc func(ctx context.Context, msg Message) error

// Queue transports messages from Send to the worker.
type Queue interface {
	Enqueue(ctx context.Context, msg Message) error
	// Consume delivers messages to handle until ctx is done.
	Consume(ctx context.Context, handle HandleFunc) error
}

// DeadLetterer is implemented by queues that can park undeliverable messages.
type DeadLetterer interface {
	DeadLetter(ctx context.Context, msg Message, reason string) error
}

var (
	ErrUnknownTemplate = errors.New("unknown notification template")
	ErrNoRecipient     = errors.New("notification recipient is required")
)

// Dispatcher implements Send on top of a Queue.
type Dispatcher struct {
	queue  Queue
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func NewDispatcher(queue Queue, opts ...Option) (*Dispatcher, error) {
	if queue == nil {
		return nil, errors.New("notification queue is required")
	}
	d := &Dispatcher{queue: queue, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Send queues template for recipient.
func (d *Dispatcher) Send(ctx context.Context, template Template, recipient string, data map[string]string) error {
	if !template.IsValid() {
		return fmt.Errorf("%w: %q", ErrUnknownTemplate, template)
	}
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return ErrNoRecipient
	}

	msg := Message{
		ID:        uuid.NewString(),
		Template:  template,
		To:        recipient,
		Data:      data,
		RequestID: requestcontext.RequestID(ctx),
		CreatedAt: d.now().UTC(),
	}
	if err := d.queue.Enqueue(ctx, msg); err != nil {
		d.logger.ErrorContext(ctx, "failed to queue notification",
			"template", template,
			"recipient", privacy.RedactEmail(recipient),
			"request_id", msg.RequestID,
			"error", err,
		)
		return fmt.Errorf("enqueue %s: %w", template, err)
	}

	d.logger.DebugContext(ctx, "notification queued",
		"template", template,
		"message_id", msg.ID,
		"recipient", privacy.RedactEmail(recipient),
	)
	return nil
}
