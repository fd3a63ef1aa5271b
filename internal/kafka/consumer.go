package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ms-checkin/internal/logger"
)

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader MessageReader
	logger *logger.Logger
}

// NewConsumer creates a consumer-group reader for topic.
func NewConsumer(brokers []string, topic, groupID string, log *logger.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, logger: log}
}

func NewConsumerWithReader(reader MessageReader, log *logger.Logger) *Consumer {
	return &Consumer{reader: reader, logger: log}
}

// ConsumeDeliveryReceipts reads receipts until ctx is cancelled. Malformed messages are
// committed and skipped. A handler error leaves the message uncommitted so it is redelivered.
func (c *Consumer) ConsumeDeliveryReceipts(ctx context.Context, handle func(context.Context, DeliveryReceipt) error) error {
	c.logger.Info("KAFKA", "Delivery receipt consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		var receipt DeliveryReceipt
		if err := json.Unmarshal(msg.Value, &receipt); err != nil || receipt.TicketID == "" {
			c.logger.Warn("KAFKA", fmt.Sprintf("Skipping malformed delivery receipt at offset %d", msg.Offset))
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				return fmt.Errorf("commit message: %w", err)
			}
			continue
		}

		if err := handle(ctx, receipt); err != nil {
			c.logger.Error("KAFKA", fmt.Sprintf("Delivery receipt for ticket %s failed: %v", receipt.TicketID, err))
			continue
		}
		c.logger.LogKafka("CONSUME", msg.Topic, receipt.TicketID)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			return fmt.Errorf("commit message: %w", err)
		}
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
