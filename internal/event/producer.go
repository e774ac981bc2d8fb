package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopperslink/variant-service/internal/domain"
	pkgkafka "github.com/shopperslink/variant-service/pkg/kafka"
	"github.com/shopperslink/variant-service/pkg/logger"
)

// Kafka topics produced by the variant service.
var (
	TopicVariantCommitted = pkgkafka.Topic("variant", "committed")
	TopicAttributeUpdated = pkgkafka.Topic("attribute", "updated")
	TopicAttributeDeleted = pkgkafka.Topic("attribute", "deleted")
)

// Aggregate types.
const (
	AggregateTypeProduct   = "product"
	AggregateTypeAttribute = "attribute"
)

// SourceVariantService identifies events originating from this service.
const SourceVariantService = "variant-service"

// VariantCommittedData is the payload of a variant.committed event.
type VariantCommittedData struct {
	ProductID string           `json:"product_id"`
	DraftID   string           `json:"draft_id"`
	OwnerID   string           `json:"owner_id"`
	Variants  []domain.Variant `json:"variants"`
}

// AttributeUpdatedData is the payload of an attribute.updated event.
type AttributeUpdatedData struct {
	Attribute *domain.Attribute `json:"attribute"`
}

// AttributeDeletedData is the payload of an attribute.deleted event.
type AttributeDeletedData struct {
	ID string `json:"id"`
}

// Publisher sends an event envelope to a topic. *pkgkafka.Producer
// satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes variant domain events.
type Producer struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer for the variant service.
func NewProducer(publisher Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		publisher: publisher,
		logger:    logger,
	}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceVariantService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if uid := logger.UserIDFromContext(ctx); uid != "" {
		event.WithMetadata("user_id", uid)
	}

	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}

// PublishVariantCommitted publishes a variant.committed event carrying every
// committed variant of the product.
func (p *Producer) PublishVariantCommitted(ctx context.Context, draft *domain.Draft, variants []domain.Variant) error {
	data := VariantCommittedData{
		ProductID: draft.ProductID,
		DraftID:   draft.ID,
		OwnerID:   draft.OwnerID,
		Variants:  variants,
	}
	if err := p.publish(ctx, TopicVariantCommitted, draft.ProductID, AggregateTypeProduct, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published variant.committed event",
		slog.String("product_id", draft.ProductID),
		slog.Int("variants", len(variants)),
	)
	return nil
}

// PublishAttributeUpdated publishes an attribute.updated event.
func (p *Producer) PublishAttributeUpdated(ctx context.Context, attr *domain.Attribute) error {
	if err := p.publish(ctx, TopicAttributeUpdated, attr.ID, AggregateTypeAttribute, AttributeUpdatedData{Attribute: attr}); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published attribute.updated event",
		slog.String("attribute_id", attr.ID),
	)
	return nil
}

// PublishAttributeDeleted publishes an attribute.deleted event.
func (p *Producer) PublishAttributeDeleted(ctx context.Context, id string) error {
	if err := p.publish(ctx, TopicAttributeDeleted, id, AggregateTypeAttribute, AttributeDeletedData{ID: id}); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published attribute.deleted event",
		slog.String("attribute_id", id),
	)
	return nil
}
