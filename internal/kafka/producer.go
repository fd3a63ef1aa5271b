package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"

	"ms-checkin/internal/config"
	"ms-checkin/internal/logger"
)

// Publisher is what the services emit domain events through.
type Publisher interface {
	PublishTicketIssued(ctx context.Context, msg TicketIssued) error
	PublishTicketSent(ctx context.Context, msg TicketSent) error
	PublishCheckinConfirmed(ctx context.Context, msg CheckinConfirmed) error
	PublishParticipantsImported(ctx context.Context, msg ParticipantsImported) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	Writer MessageWriter
	Topics config.TopicConfig
	Logger *logger.Logger
}

func NewProducer(brokers []string, topics config.TopicConfig, log *logger.Logger) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &Producer{Writer: writer, Topics: topics, Logger: log}
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload any) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", topic, err)
	}

	p.Logger.LogKafka("PUBLISH", topic, key)

	err = p.Writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("write %s message: %w", topic, err)
	}
	return nil
}

func (p *Producer) PublishTicketIssued(ctx context.Context, msg TicketIssued) error {
	return p.publish(ctx, p.Topics.TicketIssued, msg.TicketID, msg)
}

func (p *Producer) PublishTicketSent(ctx context.Context, msg TicketSent) error {
	return p.publish(ctx, p.Topics.TicketSent, msg.TicketID, msg)
}

// PublishCheckinConfirmed is keyed by event so a consumer sees one event's scans in order.
func (p *Producer) PublishCheckinConfirmed(ctx context.Context, msg CheckinConfirmed) error {
	return p.publish(ctx, p.Topics.CheckinConfirmed, msg.EventID, msg)
}

func (p *Producer) PublishParticipantsImported(ctx context.Context, msg ParticipantsImported) error {
	return p.publish(ctx, p.Topics.ParticipantsImported, msg.EventID, msg)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

// Nop drops every message. Used when Kafka is disabled.
type Nop struct{}

func (Nop) PublishTicketIssued(context.Context, TicketIssued) error                 { return nil }
func (Nop) PublishTicketSent(context.Context, TicketSent) error                     { return nil }
func (Nop) PublishCheckinConfirmed(context.Context, CheckinConfirmed) error         { return nil }
func (Nop) PublishParticipantsImported(context.Context, ParticipantsImported) error { return nil }

// Memory keeps published messages in order. Handy in tests.
type Memory struct {
	mu       sync.Mutex
	Messages []any
	Err      error
}

func (m *Memory) record(msg any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *Memory) PublishTicketIssued(_ context.Context, msg TicketIssued) error {
	return m.record(msg)
}

func (m *Memory) PublishTicketSent(_ context.Context, msg TicketSent) error {
	return m.record(msg)
}

func (m *Memory) PublishCheckinConfirmed(_ context.Context, msg CheckinConfirmed) error {
	return m.record(msg)
}

func (m *Memory) PublishParticipantsImported(_ context.Context, msg ParticipantsImported) error {
	return m.record(msg)
}

// Snapshot returns a copy of the recorded messages.
func (m *Memory) Snapshot() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]any(nil), m.Messages...)
}
