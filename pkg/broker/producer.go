package broker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	queueSize    = 256
	writeTimeout = 5 * time.Second
	maxAttempts  = 5
	backoffMin   = 250 * time.Millisecond
	backoffMax   = 8 * time.Second
)

var ErrQueueFull = errors.New("broker: event queue is full")
var ErrClosed = errors.New("broker: producer is closed")

// Event is the envelope every domain event is published in.
type Event struct {
	Type      string    `json:"type"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Producer decouples event delivery from the request path. Publish only
// enqueues; a single worker goroutine owns the writer, so concurrent
// publishers never interleave on the transport. A dead broker degrades event
// delivery, never the write path that produced the event.
type Producer struct {
	writer *kafka.Writer
	log    *slog.Logger

	brokers []string
	queue   chan kafka.Message

	connectOnce sync.Once
	connectErr  error

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

func NewProducer(brokers []string, l *slog.Logger) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Producer{
		writer:  w,
		log:     l,
		brokers: brokers,
		queue:   make(chan kafka.Message, queueSize),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go p.run(ctx)
	return p
}

// Connect checks broker reachability once. Failure is reported, not fatal:
// the worker keeps retrying with backoff, so calling services still serve
// traffic while the broker is down.
func (p *Producer) Connect(ctx context.Context) error {
	p.connectOnce.Do(func() {
		if len(p.brokers) == 0 {
			p.connectErr = errors.New("broker: no brokers configured")
			return
		}
		conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
		if err != nil {
			p.connectErr = fmt.Errorf("broker: dial %s: %w", p.brokers[0], err)
			return
		}
		_ = conn.Close()
	})
	return p.connectErr
}

// Publish marshals the event and hands it to the worker without blocking.
// When the queue is full the event is dropped; the caller's write has already
// been persisted and its outcome must not change.
func (p *Producer) Publish(ctx context.Context, topic, key string, event Event) error {
	select {
	case <-p.done:
		return ErrClosed
	default:
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("broker: marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
	}

	select {
	case p.queue <- msg:
		return nil
	case <-p.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.log.Warn("event dropped, queue full", "topic", topic, "type", event.Type)
		return ErrQueueFull
	}
}

func (p *Producer) run(ctx context.Context) {
	defer close(p.done)

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-p.queue:
			p.deliver(ctx, msg)
		}
	}
}

func (p *Producer) deliver(ctx context.Context, msg kafka.Message) {
	backoff := backoffMin
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		wctx, cancel := context.WithTimeout(ctx, writeTimeout)
		err := p.writer.WriteMessages(wctx, msg)
		cancel()
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}

		p.log.Warn("event delivery failed",
			"topic", msg.Topic, "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > backoffMax {
			backoff = backoffMax
		}
	}
	p.log.Error("event dropped after retries", "topic", msg.Topic, "attempts", maxAttempts)
}

func (p *Producer) Close() error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done
	})
	return p.writer.Close()
}
