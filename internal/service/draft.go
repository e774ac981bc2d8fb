package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/internal/event"
	"github.com/shopperslink/variant-service/internal/matrix"
	"github.com/shopperslink/variant-service/internal/repository"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
	"github.com/shopperslink/variant-service/pkg/validator"
)

// Draft limits.
const (
	// DefaultMaxRows caps the number of combinations a draft may expand to.
	DefaultMaxRows = 1000
	// DefaultCurrency is used when a draft is created without one.
	DefaultCurrency = "USD"
)

const roleAdmin = "admin"

// Actor is the authenticated caller of a draft operation.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor may access every draft.
func (a Actor) IsAdmin() bool {
	return a.Role == roleAdmin
}

// DraftConfig tunes the draft service.
type DraftConfig struct {
	TTL time.Duration
	// PersistRowRemoval keeps removed combinations out of later
	// regenerations.
	PersistRowRemoval bool
	MaxRows           int
	DefaultCurrency   string
}

// CreateDraftInput holds the parameters for starting a draft.
type CreateDraftInput struct {
	ProductID  string `json:"product_id" validate:"required,max=64"`
	CategoryID string `json:"category_id" validate:"max=64"`
	BaseSKU    string `json:"base_sku" validate:"max=64"`
	Currency   string `json:"currency" validate:"omitempty,len=3"`
}

// commitRow is the shape a row must have to be committed.
type commitRow struct {
	SKU      string `json:"sku" validate:"required,max=64"`
	Price    string `json:"price" validate:"required,money"`
	Discount string `json:"discount" validate:"omitempty,money"`
	Stock    string `json:"stock" validate:"required,quantity"`
}

// DraftService drives variant drafts through the matrix engine.
type DraftService struct {
	drafts     repository.DraftRepository
	attributes repository.AttributeRepository
	variants   repository.VariantRepository
	producer   *event.Producer
	logger     *slog.Logger
	cfg        DraftConfig
	newID      func() string
	now        func() time.Time
}

// NewDraftService creates a new draft service.
func NewDraftService(
	drafts repository.DraftRepository,
	attributes repository.AttributeRepository,
	variants repository.VariantRepository,
	producer *event.Producer,
	logger *slog.Logger,
	cfg DraftConfig,
) *DraftService {
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = DefaultMaxRows
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = DefaultCurrency
	}
	return &DraftService{
		drafts:     drafts,
		attributes: attributes,
		variants:   variants,
		producer:   producer,
		logger:     logger,
		cfg:        cfg,
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// CreateDraft starts a draft for a product. Reserved attributes bound to
// the category are selected up front.
func (s *DraftService) CreateDraft(ctx context.Context, actor Actor, input *CreateDraftInput) (*domain.Draft, error) {
	if actor.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	productID := strings.TrimSpace(input.ProductID)
	if productID == "" {
		return nil, apperrors.InvalidInput("product id is required")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	if len(currency) != 3 {
		return nil, apperrors.InvalidInput("currency must be a 3-letter ISO code")
	}

	now := s.now()
	d := &domain.Draft{
		ID:        s.newID(),
		OwnerID:   actor.UserID,
		ProductID: productID,
		Currency:  currency,
		Meta: domain.VariantMeta{
			CategoryID: strings.TrimSpace(input.CategoryID),
			BaseSKU:    strings.TrimSpace(input.BaseSKU),
			Selection:  domain.NewSelection(),
		},
		Rows:      []domain.VariantRow{},
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.TTL),
	}

	if d.Meta.CategoryID != "" {
		catalog, err := s.attributes.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load attribute catalog: %w", err)
		}
		for i := range catalog {
			a := &catalog[i]
			if a.IsReserved() && a.IsActive() && a.EligibleFor(d.Meta.CategoryID) {
				matrix.ToggleAttribute(&d.Meta.Selection, a.ID)
			}
		}
	}

	if err := s.drafts.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("create draft: %w", err)
	}

	s.logger.InfoContext(ctx, "variant draft created",
		slog.String("draft_id", d.ID),
		slog.String("product_id", d.ProductID),
		slog.Int("auto_selected", len(d.Meta.Selection.Attributes)),
	)

	return d, nil
}

// GetDraft returns a draft the actor may access.
func (s *DraftService) GetDraft(ctx context.Context, actor Actor, id string) (*domain.Draft, error) {
	return s.load(ctx, actor, id)
}

// DeleteDraft discards a draft.
func (s *DraftService) DeleteDraft(ctx context.Context, actor Actor, id string) error {
	if _, err := s.load(ctx, actor, id); err != nil {
		return err
	}
	if err := s.drafts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}

	s.logger.InfoContext(ctx, "variant draft deleted", slog.String("draft_id", id))
	return nil
}

// SetCategory moves the draft to another category. Reserved attributes
// that stop being eligible are deselected; those bound to the new category
// are selected.
func (s *DraftService) SetCategory(ctx context.Context, actor Actor, id, categoryID string) (*domain.Draft, error) {
	categoryID = strings.TrimSpace(categoryID)
	return s.mutate(ctx, actor, id, "set_category", func(e *draftEdit) error {
		if e.draft.Meta.CategoryID == categoryID {
			return nil
		}
		e.draft.Meta.CategoryID = categoryID

		catalog, err := e.catalog()
		if err != nil {
			return err
		}
		sel := &e.draft.Meta.Selection
		for i := range catalog {
			a := &catalog[i]
			if !a.IsReserved() {
				continue
			}
			eligible := a.IsActive() && a.EligibleFor(categoryID)
			if sel.Has(a.ID) != eligible {
				matrix.ToggleAttribute(sel, a.ID)
				e.selectionChanged = true
			}
		}
		return nil
	})
}

// SetBaseSKU changes the slug SKUs are derived from.
func (s *DraftService) SetBaseSKU(ctx context.Context, actor Actor, id, base string) (*domain.Draft, error) {
	return s.mutate(ctx, actor, id, "set_base_sku", func(e *draftEdit) error {
		e.draft.Meta.BaseSKU = strings.TrimSpace(base)
		return nil
	})
}

// ToggleAttribute selects or deselects an attribute.
func (s *DraftService) ToggleAttribute(ctx context.Context, actor Actor, id, attributeID string) (*domain.Draft, error) {
	return s.mutate(ctx, actor, id, "toggle_attribute", func(e *draftEdit) error {
		sel := &e.draft.Meta.Selection
		if !sel.Has(attributeID) {
			if _, err := e.usableAttribute(attributeID); err != nil {
				return err
			}
		}
		matrix.ToggleAttribute(sel, attributeID)
		e.selectionChanged = true
		return nil
	})
}

// ToggleValue selects or deselects one value of a selected attribute. A
// value that is not selected yet must be an active canonical value.
func (s *DraftService) ToggleValue(ctx context.Context, actor Actor, id, attributeID, value string) (*domain.Draft, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, apperrors.InvalidInput("value must not be empty")
	}
	return s.mutate(ctx, actor, id, "toggle_value", func(e *draftEdit) error {
		attr, err := e.usableAttribute(attributeID)
		if err != nil {
			return err
		}

		sel := &e.draft.Meta.Selection
		if !slices.Contains(sel.Values[attributeID], value) {
			canonical, ok := attr.FindValue(value)
			if !ok || canonical.Status != domain.StatusActive {
				return apperrors.InvalidInput(fmt.Sprintf("%q is not an available value of %s", value, attr.Name))
			}
			value = canonical.Value
		}

		if _, err := matrix.ToggleValue(sel, attributeID, value); err != nil {
			return err
		}
		e.selectionChanged = true
		return nil
	})
}

// AddCustomValue adds a typed-in value to a selected attribute.
func (s *DraftService) AddCustomValue(ctx context.Context, actor Actor, id, attributeID, value string) (*domain.Draft, error) {
	return s.mutate(ctx, actor, id, "add_custom_value", func(e *draftEdit) error {
		attr, err := e.usableAttribute(attributeID)
		if err != nil {
			return err
		}
		if v, ok := attr.FindValue(strings.TrimSpace(value)); ok && v.Status != domain.StatusActive {
			return apperrors.InvalidInput(fmt.Sprintf("%q is an inactive value of %s", v.Value, attr.Name))
		}
		added, err := matrix.AddCustomValue(&e.draft.Meta.Selection, attr, value)
		if err != nil {
			return err
		}
		e.selectionChanged = added
		return nil
	})
}

// UpdateRow sets one editable field of a row.
func (s *DraftService) UpdateRow(ctx context.Context, actor Actor, id, rowID, field, value string) (*domain.Draft, error) {
	return s.mutate(ctx, actor, id, "update_row", func(e *draftEdit) error {
		return matrix.UpdateRow(e.draft.Rows, e.draft.Meta.GlobalPricing, rowID, field, strings.TrimSpace(value))
	})
}

// RemoveRow drops one combination from the matrix.
func (s *DraftService) RemoveRow(ctx context.Context, actor Actor, id, rowID string) (*domain.Draft, error) {
	return s.mutate(ctx, actor, id, "remove_row", func(e *draftEdit) error {
		rows, key, err := matrix.RemoveRow(e.draft.Rows, rowID)
		if err != nil {
			return err
		}
		e.draft.Rows = rows
		if s.cfg.PersistRowRemoval && !e.draft.IsExcluded(key) {
			e.draft.Meta.Excluded = append(e.draft.Meta.Excluded, key)
		}
		return nil
	})
}

// ApplyBulk writes the non-empty fields of in to every row. Global pricing,
// when enabled, keeps precedence over bulk prices.
func (s *DraftService) ApplyBulk(ctx context.Context, actor Actor, id string, in matrix.BulkInput) (*domain.Draft, error) {
	in.Price = strings.TrimSpace(in.Price)
	in.Discount = strings.TrimSpace(in.Discount)
	in.Stock = strings.TrimSpace(in.Stock)
	if in.IsEmpty() {
		return nil, apperrors.InvalidInput("bulk update needs a price, discount or stock")
	}
	return s.mutate(ctx, actor, id, "apply_bulk", func(e *draftEdit) error {
		matrix.ApplyBulk(e.draft.Rows, in)
		matrix.ApplyGlobalPricing(e.draft.Rows, e.draft.Meta.GlobalPricing)
		return nil
	})
}

// SetGlobalPricing enables, disables or changes the global price.
func (s *DraftService) SetGlobalPricing(ctx context.Context, actor Actor, id string, gp domain.GlobalPricing) (*domain.Draft, error) {
	gp.Price = strings.TrimSpace(gp.Price)
	gp.Discount = strings.TrimSpace(gp.Discount)
	return s.mutate(ctx, actor, id, "set_global_pricing", func(e *draftEdit) error {
		e.draft.Meta.GlobalPricing = gp
		matrix.ApplyGlobalPricing(e.draft.Rows, gp)
		return nil
	})
}

// GenerateSKUs derives SKUs from the base SKU. Without overwrite only rows
// lacking a SKU are filled.
func (s *DraftService) GenerateSKUs(ctx context.Context, actor Actor, id string, overwrite bool) (*domain.Draft, error) {
	return s.mutate(ctx, actor, id, "generate_skus", func(e *draftEdit) error {
		matrix.GenerateAllSKUs(e.draft.Rows, e.draft.Meta.BaseSKU, overwrite)
		return nil
	})
}

// CommitDraft validates the rows, replaces the product's variants with
// them and discards the draft.
func (s *DraftService) CommitDraft(ctx context.Context, actor Actor, id string) ([]domain.Variant, error) {
	d, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	variants, err := s.toVariants(d)
	if err != nil {
		return nil, err
	}

	// The draft is claimed at the validated version; a newer edit turns the
	// commit into a CONFLICT.
	claimed, err := s.drafts.DeleteIfVersion(ctx, d.ID, d.Version)
	if err != nil {
		return nil, fmt.Errorf("claim draft: %w", err)
	}
	if !claimed {
		draftConflicts.WithLabelValues("commit").Inc()
		return nil, apperrors.Conflict("draft was modified concurrently, please retry")
	}

	if err := s.variants.ReplaceForProduct(ctx, d.ProductID, variants); err != nil {
		if rErr := s.drafts.Create(ctx, d); rErr != nil {
			s.logger.ErrorContext(ctx, "failed to restore draft after commit error",
				slog.String("draft_id", d.ID),
				slog.String("error", rErr.Error()),
			)
		}
		return nil, fmt.Errorf("replace product variants: %w", err)
	}
	draftsCommitted.Inc()

	if err := s.producer.PublishVariantCommitted(ctx, d, variants); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish variant.committed event",
			slog.String("product_id", d.ProductID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "variant draft committed",
		slog.String("draft_id", d.ID),
		slog.String("product_id", d.ProductID),
		slog.Int("variants", len(variants)),
	)

	return variants, nil
}

// toVariants checks every row and converts it. Problems are reported per
// field, keyed like "rows[2].price".
func (s *DraftService) toVariants(d *domain.Draft) ([]domain.Variant, error) {
	if len(d.Rows) == 0 {
		return nil, apperrors.InvalidInput("draft has no variants to commit")
	}

	fields := map[string]string{}
	seen := make(map[string]int, len(d.Rows))
	now := s.now()
	variants := make([]domain.Variant, 0, len(d.Rows))

	for i, row := range d.Rows {
		prefix := fmt.Sprintf("rows[%d].", i)
		cr := commitRow{
			SKU:      strings.TrimSpace(row.SKU),
			Price:    strings.TrimSpace(row.Price),
			Discount: strings.TrimSpace(row.Discount),
			Stock:    strings.TrimSpace(row.Stock),
		}
		if err := validator.Validate(cr); err != nil {
			var ve *validator.ValidationError
			if !errors.As(err, &ve) {
				return nil, fmt.Errorf("validate row %d: %w", i, err)
			}
			for f, msg := range ve.Fields() {
				fields[prefix+f] = msg
			}
			continue
		}

		key := strings.ToUpper(cr.SKU)
		if first, dup := seen[key]; dup {
			fields[prefix+"sku"] = fmt.Sprintf("duplicates the sku of rows[%d]", first)
			continue
		}
		seen[key] = i

		price, err := ParseMoney(cr.Price)
		if err != nil {
			fields[prefix+"price"] = "must be a non-negative amount with at most two decimals"
			continue
		}
		var discount int64
		if cr.Discount != "" {
			if discount, err = ParseMoney(cr.Discount); err != nil {
				fields[prefix+"discount"] = "must be a non-negative amount with at most two decimals"
				continue
			}
		}
		if discount > price {
			fields[prefix+"discount"] = "must not exceed the price"
			continue
		}
		stock, err := ParseStock(cr.Stock)
		if err != nil {
			fields[prefix+"stock"] = "must be a non-negative whole number"
			continue
		}

		variants = append(variants, domain.Variant{
			ID:            uuid.New().String(),
			ProductID:     d.ProductID,
			SKU:           cr.SKU,
			Attributes:    row.Attributes,
			AttributeHash: row.Attributes.Hash(),
			Price:         price,
			Discount:      discount,
			Stock:         stock,
			Currency:      d.Currency,
			IsActive:      true,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
	}

	if len(fields) > 0 {
		return nil, apperrors.InvalidInput("draft has invalid variants").WithFields(fields)
	}
	return variants, nil
}

// Preview runs the generator on client-held state without touching any
// draft.
func (s *DraftService) Preview(columns []matrix.Column, previous []domain.VariantRow, excluded []string) ([]domain.VariantRow, error) {
	if err := s.checkSize(columns); err != nil {
		return nil, err
	}
	rows := matrix.Generate(columns, previous, matrix.Options{
		NewID:    s.newID,
		Excluded: matrix.ExcludedSet(excluded),
	})
	rowsGenerated.Observe(float64(len(rows)))
	return rows, nil
}

func (s *DraftService) checkSize(columns []matrix.Column) error {
	total := 1
	for _, c := range columns {
		total *= len(c.Values)
		if total > s.cfg.MaxRows {
			return apperrors.InvalidInput(fmt.Sprintf("selection expands to more than %d variants", s.cfg.MaxRows))
		}
	}
	return nil
}

// load fetches a draft and checks the actor may access it.
func (s *DraftService) load(ctx context.Context, actor Actor, id string) (*domain.Draft, error) {
	if actor.UserID == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	d, err := s.drafts.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	if !actor.IsAdmin() && !d.OwnedBy(actor.UserID) {
		return nil, apperrors.Forbidden("draft belongs to another user")
	}
	return d, nil
}

// draftEdit is the state handed to one mutation.
type draftEdit struct {
	ctx              context.Context
	svc              *DraftService
	draft            *domain.Draft
	selectionChanged bool

	attrs  []domain.Attribute
	loaded bool
}

func (e *draftEdit) catalog() ([]domain.Attribute, error) {
	if !e.loaded {
		attrs, err := e.svc.attributes.ListAll(e.ctx)
		if err != nil {
			return nil, fmt.Errorf("load attribute catalog: %w", err)
		}
		e.attrs = attrs
		e.loaded = true
	}
	return e.attrs, nil
}

// usableAttribute returns the attribute if it is active and eligible for
// the draft's category.
func (e *draftEdit) usableAttribute(id string) (*domain.Attribute, error) {
	catalog, err := e.catalog()
	if err != nil {
		return nil, err
	}
	i := slices.IndexFunc(catalog, func(a domain.Attribute) bool { return a.ID == id })
	if i < 0 {
		return nil, apperrors.NotFound("attribute", id)
	}
	attr := &catalog[i]
	if !attr.IsActive() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("attribute %s is inactive", attr.Name))
	}
	if !attr.EligibleFor(e.draft.Meta.CategoryID) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("attribute %s is not available for this category", attr.Name))
	}
	return attr, nil
}

// mutate loads a draft, applies fn, regenerates the rows when the
// selection changed and saves under the version check.
func (s *DraftService) mutate(ctx context.Context, actor Actor, id, action string, fn func(*draftEdit) error) (*domain.Draft, error) {
	d, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	expected := d.Version

	e := &draftEdit{ctx: ctx, svc: s, draft: d}
	if err := fn(e); err != nil {
		return nil, engineError(err)
	}

	if e.selectionChanged {
		if err := s.regenerate(e); err != nil {
			return nil, err
		}
	}

	now := s.now()
	d.UpdatedAt = now
	d.ExpiresAt = now.Add(s.cfg.TTL)

	ok, err := s.drafts.SaveIfVersion(ctx, d, expected)
	if err != nil {
		return nil, fmt.Errorf("save draft: %w", err)
	}
	if !ok {
		draftConflicts.WithLabelValues(action).Inc()
		return nil, apperrors.Conflict("draft was modified concurrently, please retry")
	}

	s.logger.DebugContext(ctx, "variant draft updated",
		slog.String("draft_id", d.ID),
		slog.String("action", action),
		slog.Int("rows", len(d.Rows)),
		slog.Int("version", d.Version),
	)

	return d, nil
}

// regenerate rebuilds the rows from the selection. Exclusions whose
// combination can no longer occur are dropped.
func (s *DraftService) regenerate(e *draftEdit) error {
	catalog, err := e.catalog()
	if err != nil {
		return err
	}
	d := e.draft
	cols := matrix.Columns(d.Meta.Selection, catalog)

	if err := s.checkSize(cols); err != nil {
		return err
	}

	if len(d.Meta.Excluded) > 0 {
		possible := make(map[string]struct{})
		for _, r := range matrix.Generate(cols, nil, matrix.Options{NewID: func() string { return "" }}) {
			possible[r.Key()] = struct{}{}
		}
		d.Meta.Excluded = slices.DeleteFunc(d.Meta.Excluded, func(k string) bool {
			_, ok := possible[k]
			return !ok
		})
		if len(d.Meta.Excluded) == 0 {
			d.Meta.Excluded = nil
		}
	}

	d.Rows = matrix.Generate(cols, d.Rows, matrix.Options{
		NewID:    s.newID,
		Excluded: matrix.ExcludedSet(d.Meta.Excluded),
	})
	matrix.ApplyGlobalPricing(d.Rows, d.Meta.GlobalPricing)
	rowsGenerated.Observe(float64(len(d.Rows)))
	return nil
}

// engineError translates matrix errors into application errors.
func engineError(err error) error {
	switch {
	case errors.Is(err, matrix.ErrRowNotFound):
		return &apperrors.AppError{Code: "NOT_FOUND", Message: err.Error(), Status: http.StatusNotFound, Err: apperrors.ErrNotFound}
	case errors.Is(err, matrix.ErrAttributeNotSelected),
		errors.Is(err, matrix.ErrEmptyValue),
		errors.Is(err, matrix.ErrUnknownField),
		errors.Is(err, matrix.ErrFieldLocked):
		return apperrors.InvalidInput(err.Error())
	default:
		return err
	}
}
