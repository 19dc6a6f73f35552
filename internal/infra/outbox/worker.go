package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// MultiProducer fans a message out to every producer; the first failure fails
// the delivery so the whole message is retried.
type MultiProducer []Producer

func (m MultiProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	for _, p := range m {
		if err := p.Publish(ctx, topic, key, payload, headers); err != nil {
			return err
		}
	}
	return nil
}

// LogProducer stands in for a broker in local runs.
type LogProducer struct {
	Logger *slog.Logger
}

func (p LogProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("outbox event", "topic", topic, "key", key, "type", headers["ce-type"], "bytes", len(payload))
	return nil
}

type Worker struct {
	Store       Store
	Producer    Producer
	Interval    time.Duration
	TopicPrefix string
	Source      string
	ID          string
	Backoff     []time.Duration
	Logger      *slog.Logger

	wake chan struct{}
}

var ErrWorkerNotConfigured = errors.New("outbox: worker missing dependencies")

// NewWorker builds a worker whose Flush can wake it early.
func NewWorker(store Store, producer Producer) *Worker {
	return &Worker{Store: store, Producer: producer, wake: make(chan struct{}, 1)}
}

// Flush wakes the worker without waiting for the next tick. It never blocks
// and is a no-op on a worker not built by NewWorker.
func (w *Worker) Flush(ctx context.Context) error {
	select {
	case w.wake <- struct{}{}:
	default:
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) error {
	if w.Store == nil || w.Producer == nil {
		return ErrWorkerNotConfigured
	}
	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		case <-w.wake:
		}
		if err := w.Drain(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			w.logger().Error("outbox relay failed", "error", err)
		}
	}
}

// Drain relays every due message and returns once the store has none left.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		processed, err := w.processOnce(ctx)
		if err != nil || !processed {
			return err
		}
	}
}

func (w *Worker) processOnce(ctx context.Context) (bool, error) {
	msg, err := w.Store.Claim(ctx, w.workerID())
	if err != nil || msg == nil {
		return false, err
	}
	topic := w.topicFor(msg.Name)
	payload, headers, err := w.formatPayload(msg)
	if err != nil {
		return true, w.fail(ctx, msg, err)
	}
	if err := w.Producer.Publish(ctx, topic, msg.Aggregate, payload, headers); err != nil {
		return true, w.fail(ctx, msg, err)
	}
	return true, w.Store.MarkSent(ctx, msg.ID)
}

func (w *Worker) fail(ctx context.Context, msg *Message, cause error) error {
	w.logger().Warn("outbox publish failed", "event_id", msg.ID, "event", msg.Name, "attempts", msg.Attempts+1, "error", cause)
	return w.Store.MarkFailed(ctx, msg.ID, w.nextRetry(msg.Attempts), cause.Error())
}

// cloudEvent is the structured-mode CloudEvents 1.0 envelope. Its id is the
// outbox record id so consumers can deduplicate redeliveries.
type cloudEvent struct {
	SpecVersion     string          `json:"specversion"`
	ID              string          `json:"id"`
	Type            string          `json:"type"`
	Source          string          `json:"source"`
	Subject         string          `json:"subject,omitempty"`
	Time            time.Time       `json:"time"`
	DataContentType string          `json:"datacontenttype"`
	TraceParent     string          `json:"traceparent,omitempty"`
	Data            json.RawMessage `json:"data"`
}

func (w *Worker) formatPayload(msg *Message) ([]byte, map[string]string, error) {
	if !json.Valid(msg.Payload) {
		return nil, nil, fmt.Errorf("event %s: payload is not json", msg.ID)
	}
	eventType := msg.Name + ".v1"
	payload, err := json.Marshal(cloudEvent{
		SpecVersion:     "1.0",
		ID:              msg.ID,
		Type:            eventType,
		Source:          w.source(),
		Subject:         msg.Aggregate,
		Time:            msg.OccurredAt.UTC(),
		DataContentType: "application/json",
		TraceParent:     msg.Headers["traceparent"],
		Data:            msg.Payload,
	})
	if err != nil {
		return nil, nil, err
	}
	headers := make(map[string]string, len(msg.Headers)+3)
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["content-type"] = "application/cloudevents+json"
	headers["ce-id"] = msg.ID
	headers["ce-type"] = eventType
	return payload, headers, nil
}

// topicFor maps "booking.requested" to "<prefix>booking.events.v1".
func (w *Worker) topicFor(name string) string {
	aggregate, _, _ := strings.Cut(name, ".")
	return w.TopicPrefix + aggregate + ".events.v1"
}

func (w *Worker) workerID() string {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return w.ID
}

func (w *Worker) interval() time.Duration {
	if w.Interval <= 0 {
		return 500 * time.Millisecond
	}
	return w.Interval
}

// nextRetry picks the delay for the given failed attempt count; past the end
// of Backoff the last step repeats.
func (w *Worker) nextRetry(attempts int) time.Time {
	delay := 5 * time.Second
	if n := len(w.Backoff); n > 0 {
		delay = w.Backoff[min(attempts, n-1)]
	}
	return time.Now().Add(delay)
}

func (w *Worker) source() string {
	if w.Source != "" {
		return w.Source
	}
	return "app://circlo"
}

func (w *Worker) logger() *slog.Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return slog.Default()
}
