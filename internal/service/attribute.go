package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/internal/event"
	"github.com/shopperslink/variant-service/internal/repository"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
	"github.com/shopperslink/variant-service/pkg/pagination"
)

// AttributeValueInput describes one canonical value.
type AttributeValueInput struct {
	Value     string `json:"value" validate:"required,max=100"`
	Status    string `json:"status" validate:"omitempty,oneof=active inactive"`
	SortOrder int    `json:"sort_order" validate:"gte=0"`
}

// CreateAttributeInput holds the parameters for creating an attribute.
type CreateAttributeInput struct {
	Name                string                `json:"name" validate:"required,max=100"`
	Status              string                `json:"status" validate:"omitempty,oneof=active inactive"`
	ExclusiveCategoryID *string               `json:"exclusive_category_id" validate:"omitempty,max=64"`
	SortOrder           int                   `json:"sort_order" validate:"gte=0"`
	Values              []AttributeValueInput `json:"values" validate:"max=200,dive"`
}

// UpdateAttributeInput holds a partial update. An empty
// ExclusiveCategoryID releases a reserved attribute.
type UpdateAttributeInput struct {
	Name                *string `json:"name" validate:"omitempty,min=1,max=100"`
	Status              *string `json:"status" validate:"omitempty,oneof=active inactive"`
	ExclusiveCategoryID *string `json:"exclusive_category_id" validate:"omitempty,max=64"`
	SortOrder           *int    `json:"sort_order" validate:"omitempty,gte=0"`
}

// AttributeService implements the business logic of the attribute catalog.
type AttributeService struct {
	repo     repository.AttributeRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewAttributeService creates a new attribute service.
func NewAttributeService(repo repository.AttributeRepository, producer *event.Producer, logger *slog.Logger) *AttributeService {
	return &AttributeService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// CreateAttribute creates an attribute together with its values.
func (s *AttributeService) CreateAttribute(ctx context.Context, input *CreateAttributeInput) (*domain.Attribute, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.InvalidInput("attribute name is required")
	}
	status := input.Status
	if status == "" {
		status = domain.StatusActive
	}

	now := time.Now().UTC()
	attr := &domain.Attribute{
		ID:                  uuid.New().String(),
		Name:                name,
		Status:              status,
		ExclusiveCategoryID: normalizeCategory(input.ExclusiveCategoryID),
		SortOrder:           input.SortOrder,
		Values:              make([]domain.AttributeValue, 0, len(input.Values)),
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	for i, in := range input.Values {
		v := strings.TrimSpace(in.Value)
		if v == "" {
			return nil, apperrors.InvalidInput(fmt.Sprintf("value %d must not be empty", i))
		}
		if _, dup := attr.FindValue(v); dup {
			return nil, apperrors.InvalidInput(fmt.Sprintf("duplicate value %q", v))
		}
		attr.Values = append(attr.Values, newValue(attr.ID, v, in.Status, in.SortOrder, now))
	}

	if err := s.repo.Create(ctx, attr); err != nil {
		return nil, fmt.Errorf("create attribute: %w", err)
	}

	s.publishUpdated(ctx, attr)

	s.logger.InfoContext(ctx, "attribute created",
		slog.String("attribute_id", attr.ID),
		slog.String("name", attr.Name),
		slog.Int("values", len(attr.Values)),
	)

	return attr, nil
}

// GetAttribute retrieves an attribute by its ID.
func (s *AttributeService) GetAttribute(ctx context.Context, id string) (*domain.Attribute, error) {
	attr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attribute by id: %w", err)
	}
	return attr, nil
}

// ListAttributes returns a filtered, paginated list of attributes.
func (s *AttributeService) ListAttributes(ctx context.Context, filter domain.AttributeFilter) ([]domain.Attribute, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PerPage <= 0 {
		filter.PerPage = pagination.DefaultPerPage
	}
	if filter.PerPage > pagination.MaxPerPage {
		filter.PerPage = pagination.MaxPerPage
	}
	if filter.Status != nil && !domain.IsValidStatus(*filter.Status) {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", *filter.Status, strings.Join(domain.ValidStatuses(), ", ")))
	}

	attrs, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list attributes: %w", err)
	}
	return attrs, total, nil
}

// ListEligible returns the active attributes usable for a product in
// categoryID, each carrying only its active values.
func (s *AttributeService) ListEligible(ctx context.Context, categoryID string) ([]domain.Attribute, error) {
	all, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list attributes: %w", err)
	}

	out := make([]domain.Attribute, 0, len(all))
	for _, a := range all {
		if !a.IsActive() || !a.EligibleFor(categoryID) {
			continue
		}
		values := make([]domain.AttributeValue, 0, len(a.Values))
		for _, v := range a.Values {
			if v.Status == domain.StatusActive {
				values = append(values, v)
			}
		}
		a.Values = values
		out = append(out, a)
	}
	return out, nil
}

// UpdateAttribute applies partial updates to an attribute.
func (s *AttributeService) UpdateAttribute(ctx context.Context, id string, input *UpdateAttributeInput) (*domain.Attribute, error) {
	attr, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get attribute for update: %w", err)
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, apperrors.InvalidInput("attribute name must not be empty")
		}
		attr.Name = name
	}
	if input.Status != nil {
		if !domain.IsValidStatus(*input.Status) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("invalid status %q, must be one of: %s", *input.Status, strings.Join(domain.ValidStatuses(), ", ")))
		}
		attr.Status = *input.Status
	}
	if input.ExclusiveCategoryID != nil {
		attr.ExclusiveCategoryID = normalizeCategory(input.ExclusiveCategoryID)
	}
	if input.SortOrder != nil {
		attr.SortOrder = *input.SortOrder
	}
	attr.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, attr); err != nil {
		return nil, fmt.Errorf("update attribute: %w", err)
	}

	s.publishUpdated(ctx, attr)

	s.logger.InfoContext(ctx, "attribute updated",
		slog.String("attribute_id", attr.ID),
	)

	return attr, nil
}

// DeleteAttribute removes an attribute and its values.
func (s *AttributeService) DeleteAttribute(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}

	if err := s.producer.PublishAttributeDeleted(ctx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish attribute.deleted event",
			slog.String("attribute_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "attribute deleted",
		slog.String("attribute_id", id),
	)

	return nil
}

// AddValue adds a canonical value to an attribute. Values are unique per
// attribute, ignoring case.
func (s *AttributeService) AddValue(ctx context.Context, attributeID string, input *AttributeValueInput) (*domain.Attribute, error) {
	value := strings.TrimSpace(input.Value)
	if value == "" {
		return nil, apperrors.InvalidInput("value must not be empty")
	}

	attr, err := s.repo.GetByID(ctx, attributeID)
	if err != nil {
		return nil, fmt.Errorf("get attribute for value: %w", err)
	}
	if existing, ok := attr.FindValue(value); ok {
		return nil, apperrors.AlreadyExists("attribute value", "value", existing.Value)
	}

	v := newValue(attr.ID, value, input.Status, input.SortOrder, time.Now().UTC())
	if err := s.repo.AddValue(ctx, &v); err != nil {
		return nil, fmt.Errorf("add attribute value: %w", err)
	}
	attr.Values = append(attr.Values, v)

	s.publishUpdated(ctx, attr)

	s.logger.InfoContext(ctx, "attribute value added",
		slog.String("attribute_id", attr.ID),
		slog.String("value_id", v.ID),
	)

	return attr, nil
}

// RemoveValue deletes a canonical value from an attribute.
func (s *AttributeService) RemoveValue(ctx context.Context, attributeID, valueID string) (*domain.Attribute, error) {
	if err := s.repo.RemoveValue(ctx, attributeID, valueID); err != nil {
		return nil, fmt.Errorf("remove attribute value: %w", err)
	}

	attr, err := s.repo.GetByID(ctx, attributeID)
	if err != nil {
		return nil, fmt.Errorf("get attribute after value removal: %w", err)
	}

	s.publishUpdated(ctx, attr)

	s.logger.InfoContext(ctx, "attribute value removed",
		slog.String("attribute_id", attributeID),
		slog.String("value_id", valueID),
	)

	return attr, nil
}

func (s *AttributeService) publishUpdated(ctx context.Context, attr *domain.Attribute) {
	if err := s.producer.PublishAttributeUpdated(ctx, attr); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish attribute.updated event",
			slog.String("attribute_id", attr.ID),
			slog.String("error", err.Error()),
		)
	}
}

func newValue(attributeID, value, status string, sortOrder int, now time.Time) domain.AttributeValue {
	if status == "" {
		status = domain.StatusActive
	}
	return domain.AttributeValue{
		ID:          uuid.New().String(),
		AttributeID: attributeID,
		Value:       value,
		Status:      status,
		SortOrder:   sortOrder,
		CreatedAt:   now,
	}
}

func normalizeCategory(id *string) *string {
	if id == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*id)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
