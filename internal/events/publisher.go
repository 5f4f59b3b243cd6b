// Package events delivers assignment events to RabbitMQ. Publishing is
// asynchronous: callers enqueue and a worker pool owns the broker channel.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/repairjunction/repairjunction-api/internal/models"
	"github.com/repairjunction/repairjunction-api/pkg/jobs"
)

const (
	OutcomePublished = "published"
	OutcomeDropped   = "dropped"
	OutcomeFailed    = "failed"
)

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Dialer opens a broker channel.
type Dialer func() (Channel, error)

type metricsRecorder interface {
	RecordEvent(eventType, outcome string)
}

// Config controls the delivery worker pool.
type Config struct {
	Workers      int
	MaxRetries   int
	RetryDelay   time.Duration
	DrainTimeout time.Duration
}

// Publisher sends AssignmentEvents to durable queues named after the event type.
type Publisher struct {
	dial    Dialer
	metrics metricsRecorder
	logger  *zap.Logger
	queue   *jobs.Queue

	mu       sync.Mutex
	channel  Channel
	declared map[string]bool
}

// DialURL returns a Dialer that connects to the broker at url. The connection
// is closed together with the channel.
func DialURL(url string) Dialer {
	return func() (Channel, error) {
		conn, err := amqp.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("dial broker: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open channel: %w", err)
		}
		return &connChannel{Channel: ch, conn: conn}, nil
	}
}

type connChannel struct {
	*amqp.Channel
	conn *amqp.Connection
}

func (c *connChannel) Close() error {
	_ = c.Channel.Close()
	return c.conn.Close()
}

// NewPublisher constructs a Publisher. Call Start before publishing.
func NewPublisher(dial Dialer, metrics metricsRecorder, logger *zap.Logger, cfg Config) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Publisher{
		dial:     dial,
		metrics:  metrics,
		logger:   logger,
		declared: map[string]bool{},
	}
	p.queue = jobs.NewQueue("assignment-events", p.deliver, jobs.QueueConfig{
		Workers:      cfg.Workers,
		MaxRetries:   cfg.MaxRetries,
		RetryDelay:   cfg.RetryDelay,
		DrainTimeout: cfg.DrainTimeout,
		Logger:       logger,
		DeadLetter: func(job jobs.Job, err error) {
			p.record(job.Type, OutcomeFailed)
		},
	})
	return p
}

// Start launches the delivery workers.
func (p *Publisher) Start(ctx context.Context) {
	p.queue.Start(ctx)
}

// Stop delivers the events already buffered, then closes the broker channel.
func (p *Publisher) Stop() {
	p.queue.Stop()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resetLocked()
}

// Publish hands the event to the delivery workers. It returns an error only
// when the event could not be buffered.
func (p *Publisher) Publish(ctx context.Context, event models.AssignmentEvent) error {
	err := p.queue.Enqueue(jobs.Job{ID: event.EventID, Type: string(event.Type), Payload: event})
	if err != nil {
		p.record(string(event.Type), OutcomeDropped)
		return err
	}
	return nil
}

func (p *Publisher) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(models.AssignmentEvent)
	if !ok {
		p.logger.Error("unexpected event payload", zap.String("job_id", job.ID))
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		p.logger.Error("failed to encode event", zap.String("event_id", event.EventID), zap.Error(err))
		return nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channelLocked(string(event.Type))
	if err != nil {
		return err
	}
	err = ch.PublishWithContext(ctx, "", string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.EventID,
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		p.resetLocked()
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}

	p.record(string(event.Type), OutcomePublished)
	p.logger.Debug("event published",
		zap.String("event_id", event.EventID),
		zap.String("type", string(event.Type)),
		zap.Int64("request_id", event.RequestID),
	)
	return nil
}

func (p *Publisher) channelLocked(queue string) (Channel, error) {
	if p.channel == nil {
		ch, err := p.dial()
		if err != nil {
			return nil, err
		}
		p.channel = ch
		p.declared = map[string]bool{}
	}
	if !p.declared[queue] {
		if _, err := p.channel.QueueDeclare(queue, true, false, false, false, nil); err != nil {
			p.resetLocked()
			return nil, fmt.Errorf("declare %s: %w", queue, err)
		}
		p.declared[queue] = true
	}
	return p.channel, nil
}

func (p *Publisher) resetLocked() {
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
}

func (p *Publisher) record(eventType, outcome string) {
	if p.metrics != nil {
		p.metrics.RecordEvent(eventType, outcome)
	}
}

// Noop discards events. It stands in when the broker is disabled.
type Noop struct{}

// Publish implements the publisher contract without side effects.
func (Noop) Publish(context.Context, models.AssignmentEvent) error { return nil }
