package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/pkg/database"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
)

const (
	draftKeyPrefix   = "variant:draft:"
	productKeyPrefix = "variant:drafts:product:"
)

func draftKey(id string) string { return draftKeyPrefix + id }

func productKey(productID string) string { return productKeyPrefix + productID }

// DraftRepository implements repository.DraftRepository using Redis. Each
// draft is a JSON string with a TTL; a set per product indexes its drafts.
type DraftRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDraftRepository creates a new Redis-backed draft repository.
func NewDraftRepository(client *redis.Client, ttl time.Duration) *DraftRepository {
	return &DraftRepository{client: client, ttl: ttl}
}

// Get retrieves a draft by id.
func (r *DraftRepository) Get(ctx context.Context, id string) (_ *domain.Draft, err error) {
	key := draftKey(id)
	ctx, end := database.TraceCommand(ctx, "GetDraft", key)
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("draft", id)
		}
		return nil, fmt.Errorf("redis get draft: %w", err)
	}
	return decodeDraft(data)
}

// Create stores a new draft and indexes it under its product.
func (r *DraftRepository) Create(ctx context.Context, d *domain.Draft) (err error) {
	key := draftKey(d.ID)
	ctx, end := database.TraceCommand(ctx, "CreateDraft", key)
	defer func() { end(err) }()

	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}

	ok, err := r.client.SetNX(ctx, key, data, r.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis set draft: %w", err)
	}
	if !ok {
		return apperrors.AlreadyExists("draft", "id", d.ID)
	}

	if d.ProductID != "" {
		pipe := r.client.TxPipeline()
		pipe.SAdd(ctx, productKey(d.ProductID), d.ID)
		pipe.Expire(ctx, productKey(d.ProductID), r.ttl)
		if _, err = pipe.Exec(ctx); err != nil {
			return fmt.Errorf("redis index draft: %w", err)
		}
	}
	return nil
}

// SaveIfVersion writes d only when the stored draft is still at expected.
// On success d.Version is incremented and the TTL refreshed. A draft that
// expired in the meantime yields GONE.
func (r *DraftRepository) SaveIfVersion(ctx context.Context, d *domain.Draft, expected int) (saved bool, err error) {
	key := draftKey(d.ID)
	ctx, end := database.TraceCommand(ctx, "SaveDraft", key)
	defer func() { end(err) }()

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.Gone(fmt.Sprintf("draft %s has expired", d.ID))
			}
			return fmt.Errorf("redis get draft: %w", err)
		}
		current, err := decodeDraft(data)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return redis.TxFailedErr
		}

		next := *d
		next.Version = expected + 1
		payload, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("marshal draft: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, r.ttl)
			if next.ProductID != "" {
				pipe.SAdd(ctx, productKey(next.ProductID), next.ID)
				pipe.Expire(ctx, productKey(next.ProductID), r.ttl)
			}
			return nil
		})
		return err
	}

	switch err = r.client.Watch(ctx, txf, key); {
	case err == nil:
		d.Version = expected + 1
		return true, nil
	case errors.Is(err, redis.TxFailedErr):
		err = nil
		return false, nil
	default:
		return false, err
	}
}

// Delete removes a draft and its index entry. Deleting a missing draft is
// not an error.
func (r *DraftRepository) Delete(ctx context.Context, id string) (err error) {
	key := draftKey(id)
	ctx, end := database.TraceCommand(ctx, "DeleteDraft", key)
	defer func() { end(err) }()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redis get draft: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Del(ctx, key)
	if err == nil {
		if d, decErr := decodeDraft(data); decErr == nil && d.ProductID != "" {
			pipe.SRem(ctx, productKey(d.ProductID), id)
		}
	}
	if _, err = pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis del draft: %w", err)
	}
	return nil
}

// DeleteIfVersion removes the draft and its index entry only when the stored
// draft is still at expected. A draft that expired in the meantime yields
// GONE.
func (r *DraftRepository) DeleteIfVersion(ctx context.Context, id string, expected int) (deleted bool, err error) {
	key := draftKey(id)
	ctx, end := database.TraceCommand(ctx, "DeleteDraftIfVersion", key)
	defer func() { end(err) }()

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return apperrors.Gone(fmt.Sprintf("draft %s has expired", id))
			}
			return fmt.Errorf("redis get draft: %w", err)
		}
		current, err := decodeDraft(data)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return redis.TxFailedErr
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if current.ProductID != "" {
				pipe.SRem(ctx, productKey(current.ProductID), id)
			}
			return nil
		})
		return err
	}

	switch err = r.client.Watch(ctx, txf, key); {
	case err == nil:
		return true, nil
	case errors.Is(err, redis.TxFailedErr):
		err = nil
		return false, nil
	default:
		return false, err
	}
}

// ListIDsByProduct returns ids of live drafts for productID, pruning index
// entries whose draft has expired.
func (r *DraftRepository) ListIDsByProduct(ctx context.Context, productID string) (_ []string, err error) {
	key := productKey(productID)
	ctx, end := database.TraceCommand(ctx, "ListDraftsByProduct", key)
	defer func() { end(err) }()

	ids, err := r.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis smembers: %w", err)
	}

	live := make([]string, 0, len(ids))
	var stale []any
	for _, id := range ids {
		n, err := r.client.Exists(ctx, draftKey(id)).Result()
		if err != nil {
			return nil, fmt.Errorf("redis exists: %w", err)
		}
		if n == 0 {
			stale = append(stale, id)
			continue
		}
		live = append(live, id)
	}
	if len(stale) > 0 {
		if err = r.client.SRem(ctx, key, stale...).Err(); err != nil {
			return nil, fmt.Errorf("redis srem: %w", err)
		}
	}
	sort.Strings(live)
	return live, nil
}

func decodeDraft(data []byte) (*domain.Draft, error) {
	var d domain.Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unmarshal draft: %w", err)
	}
	return &d, nil
}
