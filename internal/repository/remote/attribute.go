// Package remote reads the attribute catalog from an upstream catalog
// service instead of the local database.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopperslink/variant-service/internal/domain"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
	"github.com/shopperslink/variant-service/pkg/httpclient"
	"github.com/shopperslink/variant-service/pkg/pagination"
)

const maxPages = 50

// ErrReadOnly is returned by every write against the remote catalog.
var ErrReadOnly = apperrors.InvalidInput("attribute catalog is read-only")

// AttributeRepository implements repository.AttributeRepository on top of
// the catalog REST API. Reads go through a circuit breaker; while it is
// open the last successful snapshot is served.
type AttributeRepository struct {
	client   *httpclient.CircuitBreakerClient
	baseURL  string
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.RWMutex
	snapshot  []domain.Attribute
	fetchedAt time.Time
}

// NewAttributeRepository creates a remote attribute repository. Snapshots
// younger than cacheTTL are served without calling upstream.
func NewAttributeRepository(client *httpclient.Client, cbCfg httpclient.CircuitBreakerConfig, baseURL string, cacheTTL time.Duration, logger *slog.Logger) *AttributeRepository {
	r := &AttributeRepository{
		baseURL:  baseURL,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
	r.client = httpclient.NewCircuitBreakerClient(client, cbCfg, logger).WithFallback(r.snapshotFallback)
	return r
}

type snapshotKey struct{}

// snapshotUse records whether a ListAll call was answered from the snapshot.
type snapshotUse struct{ used atomic.Bool }

// snapshotFallback answers a page request from the last snapshot while the
// breaker is open.
func (r *AttributeRepository) snapshotFallback(ctx context.Context, cause error) (*http.Response, error) {
	r.mu.RLock()
	snap := r.snapshot
	r.mu.RUnlock()

	if snap == nil {
		return nil, apperrors.Unavailable("attribute catalog is unavailable")
	}
	if use, ok := ctx.Value(snapshotKey{}).(*snapshotUse); ok {
		use.used.Store(true)
	}

	r.logger.WarnContext(ctx, "serving attribute catalog snapshot",
		slog.Int("attributes", len(snap)),
		slog.String("cause", cause.Error()),
	)
	page := pagination.NewResult(snap, len(snap), pagination.Params{Page: 1, PerPage: max(len(snap), 1)})
	body, err := json.Marshal(map[string]any{"data": page})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewReader(body)),
	}, nil
}

// ListAll returns the full catalog.
func (r *AttributeRepository) ListAll(ctx context.Context) ([]domain.Attribute, error) {
	r.mu.RLock()
	fresh := r.snapshot != nil && r.now().Sub(r.fetchedAt) < r.cacheTTL
	snap := r.snapshot
	r.mu.RUnlock()
	if fresh {
		return snap, nil
	}

	use := &snapshotUse{}
	ctx = context.WithValue(ctx, snapshotKey{}, use)

	var all []domain.Attribute
	for page := 1; page <= maxPages; page++ {
		u, err := r.pageURL(page)
		if err != nil {
			return nil, err
		}
		var res pagination.Result[domain.Attribute]
		if err := r.client.GetData(ctx, u, &res); err != nil {
			return nil, fmt.Errorf("fetch attributes page %d: %w", page, err)
		}
		if use.used.Load() {
			// The snapshot is the whole catalog; pages fetched before the
			// breaker opened would only duplicate it.
			return res.Data, nil
		}
		all = append(all, res.Data...)
		if !res.HasNext {
			break
		}
	}
	if all == nil {
		all = []domain.Attribute{}
	}

	r.mu.Lock()
	r.snapshot = all
	r.fetchedAt = r.now()
	r.mu.Unlock()
	return all, nil
}

func (r *AttributeRepository) pageURL(page int) (string, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse catalog url: %w", err)
	}
	u = u.JoinPath("api", "v1", "attributes")
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(pagination.MaxPerPage))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// GetByID looks the attribute up in the catalog.
func (r *AttributeRepository) GetByID(ctx context.Context, id string) (*domain.Attribute, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ID == id {
			a := all[i]
			return &a, nil
		}
	}
	return nil, apperrors.NotFound("attribute", id)
}

// List filters and pages the catalog locally.
func (r *AttributeRepository) List(ctx context.Context, filter domain.AttributeFilter) ([]domain.Attribute, int, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, 0, err
	}

	matched := make([]domain.Attribute, 0, len(all))
	for _, a := range all {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.CategoryID != nil && !a.EligibleFor(*filter.CategoryID) {
			continue
		}
		matched = append(matched, a)
	}

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = pagination.DefaultPerPage
	}
	page := max(filter.Page, 1)
	start := min((page-1)*perPage, len(matched))
	end := min(start+perPage, len(matched))
	return matched[start:end], len(matched), nil
}

func (r *AttributeRepository) Create(context.Context, *domain.Attribute) error { return ErrReadOnly }

func (r *AttributeRepository) Update(context.Context, *domain.Attribute) error { return ErrReadOnly }

func (r *AttributeRepository) Delete(context.Context, string) error { return ErrReadOnly }

func (r *AttributeRepository) AddValue(context.Context, *domain.AttributeValue) error {
	return ErrReadOnly
}

func (r *AttributeRepository) RemoveValue(context.Context, string, string) error { return ErrReadOnly }
