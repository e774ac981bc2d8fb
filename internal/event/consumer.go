package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	pkgkafka "github.com/shopperslink/variant-service/pkg/kafka"
)

// TopicProductDeleted is consumed to drop the variants of deleted products.
var TopicProductDeleted = pkgkafka.Topic("product", "deleted")

// ProductDeletedData is the payload of a product.deleted event.
type ProductDeletedData struct {
	ID string `json:"id"`
}

// ProductCleaner removes everything the service holds for a product.
type ProductCleaner interface {
	PurgeProduct(ctx context.Context, productID string) error
}

// Consumer handles product events.
type Consumer struct {
	cleaner ProductCleaner
	logger  *slog.Logger
}

// NewConsumer creates a new product event consumer.
func NewConsumer(cleaner ProductCleaner, logger *slog.Logger) *Consumer {
	return &Consumer{
		cleaner: cleaner,
		logger:  logger,
	}
}

// Handle processes a Kafka event based on its type.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	switch event.EventType {
	case TopicProductDeleted:
		return c.handleProductDeleted(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleProductDeleted(ctx context.Context, event *pkgkafka.Event) error {
	var data ProductDeletedData
	if err := json.Unmarshal(event.Data, &data); err != nil {
		return fmt.Errorf("unmarshal product.deleted data: %w", err)
	}
	if data.ID == "" {
		data.ID = event.AggregateID
	}
	if data.ID == "" {
		c.logger.WarnContext(ctx, "product.deleted event without product id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.cleaner.PurgeProduct(ctx, data.ID); err != nil {
		return fmt.Errorf("purge product %s: %w", data.ID, err)
	}

	c.logger.InfoContext(ctx, "purged variants of deleted product",
		slog.String("product_id", data.ID),
	)
	return nil
}
