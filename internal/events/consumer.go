package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event is the envelope every producer in this repo writes: a JSON object
// with a "type" discriminator and a type specific body.
type Event struct {
	Type      string          `json:"type"`
	ProductID string          `json:"product_id,omitempty"`
	Product   json.RawMessage `json:"product,omitempty"`
}

type Handler func(ctx context.Context, ev Event) error

// ErrPoison marks a handler error that no retry can fix. The consumer logs
// it and commits the message.
var ErrPoison = errors.New("poison message")

const (
	DefaultRetryBase = 200 * time.Millisecond
	DefaultRetryMax  = 30 * time.Second
)

type Consumer struct {
	reader *kafka.Reader
	log    *slog.Logger

	// RetryBase and RetryMax bound the delay between handler attempts.
	RetryBase time.Duration
	RetryMax  time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, log *slog.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		}),
		log:       log,
		RetryBase: DefaultRetryBase,
		RetryMax:  DefaultRetryMax,
	}
}

// Run fetches messages until ctx is cancelled. A message is committed only
// after the handler succeeds; a failing handler is retried with backoff and
// the partition waits for it. Envelopes that cannot be decoded, and handler
// errors wrapping ErrPoison, are logged and committed.
func (c *Consumer) Run(ctx context.Context, h Handler) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if isCancel(err) {
				return nil
			}
			return err
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Warn("event_decode_failed", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		} else {
			attempt := 0
			err := retry(ctx, c.RetryBase, c.RetryMax, func() error {
				attempt++
				err := h(ctx, ev)
				if err != nil {
					c.log.Error("event_handle_failed", "topic", msg.Topic, "offset", msg.Offset,
						"type", ev.Type, "attempt", attempt, "error", err)
				}
				return err
			})
			switch {
			case errors.Is(err, ErrPoison):
				c.log.Warn("event_skipped", "topic", msg.Topic, "offset", msg.Offset, "type", ev.Type, "error", err)
			case err != nil:
				// cancelled while retrying; the message stays uncommitted
				return nil
			}
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if isCancel(err) {
				return nil
			}
			return err
		}
	}
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// retry calls fn until it succeeds, doubling the wait after each failure up
// to ceiling. It gives up when ctx is done, returning ctx.Err(), or when fn
// fails with ErrPoison.
func retry(ctx context.Context, base, ceiling time.Duration, fn func() error) error {
	if base <= 0 {
		base = DefaultRetryBase
	}
	if ceiling < base {
		ceiling = base
	}

	delay := base
	for {
		err := fn()
		if err == nil || errors.Is(err, ErrPoison) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, ceiling)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
