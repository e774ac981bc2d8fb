package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/internal/event"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
	pkgkafka "github.com/shopperslink/variant-service/pkg/kafka"
)

// --- Mock Repositories ---

type mockAttributeRepository struct {
	mock.Mock
}

func (m *mockAttributeRepository) Create(ctx context.Context, a *domain.Attribute) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAttributeRepository) GetByID(ctx context.Context, id string) (*domain.Attribute, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attribute), args.Error(1)
}

func (m *mockAttributeRepository) List(ctx context.Context, filter domain.AttributeFilter) ([]domain.Attribute, int, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Attribute), args.Int(1), args.Error(2)
}

func (m *mockAttributeRepository) ListAll(ctx context.Context) ([]domain.Attribute, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Attribute), args.Error(1)
}

func (m *mockAttributeRepository) Update(ctx context.Context, a *domain.Attribute) error {
	return m.Called(ctx, a).Error(0)
}

func (m *mockAttributeRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockAttributeRepository) AddValue(ctx context.Context, v *domain.AttributeValue) error {
	return m.Called(ctx, v).Error(0)
}

func (m *mockAttributeRepository) RemoveValue(ctx context.Context, attributeID, valueID string) error {
	return m.Called(ctx, attributeID, valueID).Error(0)
}

type mockVariantRepository struct {
	mock.Mock
}

func (m *mockVariantRepository) ReplaceForProduct(ctx context.Context, productID string, variants []domain.Variant) error {
	return m.Called(ctx, productID, variants).Error(0)
}

func (m *mockVariantRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Variant, error) {
	args := m.Called(ctx, productID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Variant), args.Error(1)
}

func (m *mockVariantRepository) DeleteByProduct(ctx context.Context, productID string) (int64, error) {
	args := m.Called(ctx, productID)
	return args.Get(0).(int64), args.Error(1)
}

// memDraftRepository keeps drafts as JSON, the way the Redis store does.
type memDraftRepository struct {
	mu     sync.Mutex
	drafts map[string][]byte
	// conflict makes every SaveIfVersion report a version mismatch.
	conflict bool
	// afterGet runs once a draft has been read.
	afterGet func(id string)
}

func newMemDraftRepository() *memDraftRepository {
	return &memDraftRepository{drafts: map[string][]byte{}}
}

func (r *memDraftRepository) Get(_ context.Context, id string) (*domain.Draft, error) {
	r.mu.Lock()
	raw, ok := r.drafts[id]
	r.mu.Unlock()
	if !ok {
		return nil, apperrors.NotFound("draft", id)
	}
	var d domain.Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	if r.afterGet != nil {
		r.afterGet(id)
	}
	return &d, nil
}

func (r *memDraftRepository) Create(_ context.Context, d *domain.Draft) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.drafts[d.ID]; ok {
		return apperrors.AlreadyExists("draft", "id", d.ID)
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	r.drafts[d.ID] = raw
	return nil
}

func (r *memDraftRepository) SaveIfVersion(_ context.Context, d *domain.Draft, expected int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.drafts[d.ID]
	if !ok {
		return false, apperrors.Gone("draft expired")
	}
	var stored domain.Draft
	if err := json.Unmarshal(raw, &stored); err != nil {
		return false, err
	}
	if r.conflict || stored.Version != expected {
		return false, nil
	}
	d.Version = expected + 1
	raw, err := json.Marshal(d)
	if err != nil {
		return false, err
	}
	r.drafts[d.ID] = raw
	return true, nil
}

func (r *memDraftRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.drafts, id)
	return nil
}

func (r *memDraftRepository) DeleteIfVersion(_ context.Context, id string, expected int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	raw, ok := r.drafts[id]
	if !ok {
		return false, apperrors.Gone("draft expired")
	}
	var stored domain.Draft
	if err := json.Unmarshal(raw, &stored); err != nil {
		return false, err
	}
	if r.conflict || stored.Version != expected {
		return false, nil
	}
	delete(r.drafts, id)
	return true, nil
}

// bump simulates a concurrent edit landing on the stored draft.
func (r *memDraftRepository) bump(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var stored domain.Draft
	if err := json.Unmarshal(r.drafts[id], &stored); err != nil {
		return
	}
	stored.Version++
	r.drafts[id], _ = json.Marshal(&stored)
}

func (r *memDraftRepository) ListIDsByProduct(_ context.Context, productID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, raw := range r.drafts {
		var d domain.Draft
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		if d.ProductID == productID {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *memDraftRepository) has(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.drafts[id]
	return ok
}

// --- Event publisher fake ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	events []*pkgkafka.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string {
	return &s
}

func attrValue(id, v, status string) domain.AttributeValue {
	return domain.AttributeValue{ID: id, Value: v, Status: status}
}

// testCatalog returns Color, Size, a Shoe Size reserved for cat-shoes and
// an inactive Legacy attribute.
func testCatalog() []domain.Attribute {
	return []domain.Attribute{
		{
			ID: "attr-color", Name: "Color", Status: domain.StatusActive,
			Values: []domain.AttributeValue{
				attrValue("v-red", "Red", domain.StatusActive),
				attrValue("v-blue", "Blue", domain.StatusActive),
				attrValue("v-green", "Green", domain.StatusInactive),
			},
		},
		{
			ID: "attr-size", Name: "Size", Status: domain.StatusActive,
			Values: []domain.AttributeValue{
				attrValue("v-s", "S", domain.StatusActive),
				attrValue("v-m", "M", domain.StatusActive),
				attrValue("v-l", "L", domain.StatusActive),
			},
		},
		{
			ID: "attr-shoe", Name: "Shoe Size", Status: domain.StatusActive,
			ExclusiveCategoryID: strPtr("cat-shoes"),
			Values: []domain.AttributeValue{
				attrValue("v-40", "40", domain.StatusActive),
				attrValue("v-41", "41", domain.StatusActive),
			},
		},
		{
			ID: "attr-legacy", Name: "Legacy", Status: domain.StatusInactive,
			Values: []domain.AttributeValue{attrValue("v-x", "X", domain.StatusActive)},
		},
	}
}

type draftFixture struct {
	svc       *DraftService
	drafts    *memDraftRepository
	attrs     *mockAttributeRepository
	variants  *mockVariantRepository
	publisher *recordingPublisher
}

func newDraftFixture(t *testing.T, cfg DraftConfig) *draftFixture {
	t.Helper()
	f := &draftFixture{
		drafts:    newMemDraftRepository(),
		attrs:     new(mockAttributeRepository),
		variants:  new(mockVariantRepository),
		publisher: &recordingPublisher{},
	}
	f.attrs.On("ListAll", mock.Anything).Return(testCatalog(), nil).Maybe()

	if cfg.TTL == 0 {
		cfg.TTL = time.Hour
	}
	logger := newTestLogger()
	f.svc = NewDraftService(f.drafts, f.attrs, f.variants, event.NewProducer(f.publisher, logger), logger, cfg)

	n := 0
	f.svc.newID = func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	return f
}

var (
	vendor      = Actor{UserID: "vendor-1", Role: "vendor"}
	otherVendor = Actor{UserID: "vendor-2", Role: "vendor"}
	admin       = Actor{UserID: "admin-1", Role: "admin"}
)

func (f *draftFixture) create(t *testing.T, categoryID string) *domain.Draft {
	t.Helper()
	d, err := f.svc.CreateDraft(context.Background(), vendor, &CreateDraftInput{
		ProductID:  "prod-1",
		CategoryID: categoryID,
		BaseSKU:    "Tee 01",
	})
	require.NoError(t, err)
	return d
}

// rowValues renders each row's values joined by "/".
func rowValues(d *domain.Draft) []string {
	out := make([]string, len(d.Rows))
	for i, r := range d.Rows {
		s := ""
		for j, v := range r.Attributes.Values() {
			if j > 0 {
				s += "/"
			}
			s += v
		}
		out[i] = s
	}
	return out
}

func findRow(t *testing.T, d *domain.Draft, values string) domain.VariantRow {
	t.Helper()
	for i, v := range rowValues(d) {
		if v == values {
			return d.Rows[i]
		}
	}
	t.Fatalf("row %s not found in %v", values, rowValues(d))
	return domain.VariantRow{}
}
