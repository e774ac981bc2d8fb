package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shopperslink/variant-service/internal/domain"
	"github.com/shopperslink/variant-service/pkg/database"
	apperrors "github.com/shopperslink/variant-service/pkg/errors"
)

const attributeColumns = `id, name, status, exclusive_category_id, sort_order, created_at, updated_at`

const valueColumns = `id, attribute_id, value, status, sort_order, created_at`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// AttributeRepository implements repository.AttributeRepository using PostgreSQL.
type AttributeRepository struct {
	pool database.DBTX
}

// NewAttributeRepository creates a new PostgreSQL-backed attribute repository.
func NewAttributeRepository(pool database.DBTX) *AttributeRepository {
	return &AttributeRepository{pool: pool}
}

// Create inserts the attribute and its values in one transaction.
func (r *AttributeRepository) Create(ctx context.Context, a *domain.Attribute) (err error) {
	query := `
		INSERT INTO attributes (id, name, status, exclusive_category_id, sort_order, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "CreateAttribute", query)
	defer func() { end(err) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, query,
		a.ID,
		a.Name,
		a.Status,
		a.ExclusiveCategoryID,
		a.SortOrder,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("attribute", "name", a.Name)
		}
		return fmt.Errorf("insert attribute: %w", err)
	}

	for i := range a.Values {
		if err = insertValue(ctx, tx, &a.Values[i]); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func insertValue(ctx context.Context, db execer, v *domain.AttributeValue) error {
	query := `
		INSERT INTO attribute_values (id, attribute_id, value, status, sort_order, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := db.Exec(ctx, query, v.ID, v.AttributeID, v.Value, v.Status, v.SortOrder, v.CreatedAt)
	if err != nil {
		switch {
		case isUniqueViolation(err):
			return apperrors.AlreadyExists("attribute value", "value", v.Value)
		case isForeignKeyViolation(err):
			return apperrors.NotFound("attribute", v.AttributeID)
		}
		return fmt.Errorf("insert attribute value: %w", err)
	}
	return nil
}

// GetByID retrieves an attribute and its values.
func (r *AttributeRepository) GetByID(ctx context.Context, id string) (_ *domain.Attribute, err error) {
	query := `SELECT ` + attributeColumns + ` FROM attributes WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetAttribute", query)
	defer func() { end(err) }()

	a, err := scanAttribute(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("attribute", id)
		}
		return nil, fmt.Errorf("get attribute: %w", err)
	}

	values, err := r.loadValues(ctx, []string{a.ID})
	if err != nil {
		return nil, err
	}
	a.Values = values[a.ID]
	return a, nil
}

// List returns a page of attributes matching filter plus the total count.
func (r *AttributeRepository) List(ctx context.Context, filter domain.AttributeFilter) (_ []domain.Attribute, _ int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, *filter.Status)
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("(exclusive_category_id IS NULL OR exclusive_category_id = $%d)", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM attributes
		%s
		ORDER BY sort_order, name
		LIMIT $%d OFFSET $%d`,
		attributeColumns, whereClause, argIndex, argIndex+1)

	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)

	ctx, end := database.TraceQuery(ctx, "ListAttributes", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list attributes: %w", err)
	}
	defer rows.Close()

	var (
		attrs []domain.Attribute
		total int
	)
	for rows.Next() {
		var a domain.Attribute
		if err = rows.Scan(
			&a.ID, &a.Name, &a.Status, &a.ExclusiveCategoryID, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan attribute: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate attributes: %w", err)
	}

	if err = r.attachValues(ctx, attrs); err != nil {
		return nil, 0, err
	}
	return attrs, total, nil
}

// ListAll returns the whole catalog with values.
func (r *AttributeRepository) ListAll(ctx context.Context) (_ []domain.Attribute, err error) {
	query := `SELECT ` + attributeColumns + ` FROM attributes ORDER BY sort_order, name`

	ctx, end := database.TraceQuery(ctx, "ListAllAttributes", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list all attributes: %w", err)
	}
	defer rows.Close()

	var attrs []domain.Attribute
	for rows.Next() {
		a, err := scanAttribute(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs = append(attrs, *a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributes: %w", err)
	}

	if err = r.attachValues(ctx, attrs); err != nil {
		return nil, err
	}
	return attrs, nil
}

// Update modifies name, status, category binding and sort order.
func (r *AttributeRepository) Update(ctx context.Context, a *domain.Attribute) (err error) {
	query := `
		UPDATE attributes
		SET name = $2, status = $3, exclusive_category_id = $4, sort_order = $5, updated_at = $6
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateAttribute", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, a.ID, a.Name, a.Status, a.ExclusiveCategoryID, a.SortOrder, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("attribute", "name", a.Name)
		}
		return fmt.Errorf("update attribute: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("attribute", a.ID)
	}
	return nil
}

// Delete removes an attribute; its values go with it.
func (r *AttributeRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM attributes WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteAttribute", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete attribute: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("attribute", id)
	}
	return nil
}

// AddValue inserts a canonical value for an existing attribute.
func (r *AttributeRepository) AddValue(ctx context.Context, v *domain.AttributeValue) (err error) {
	ctx, end := database.TraceQuery(ctx, "AddAttributeValue", "INSERT INTO attribute_values")
	defer func() { end(err) }()

	return insertValue(ctx, r.pool, v)
}

// RemoveValue deletes one value of an attribute.
func (r *AttributeRepository) RemoveValue(ctx context.Context, attributeID, valueID string) (err error) {
	query := `DELETE FROM attribute_values WHERE id = $1 AND attribute_id = $2`

	ctx, end := database.TraceQuery(ctx, "RemoveAttributeValue", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, valueID, attributeID)
	if err != nil {
		return fmt.Errorf("delete attribute value: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("attribute value", valueID)
	}
	return nil
}

func (r *AttributeRepository) attachValues(ctx context.Context, attrs []domain.Attribute) error {
	if len(attrs) == 0 {
		return nil
	}
	ids := make([]string, len(attrs))
	for i := range attrs {
		ids[i] = attrs[i].ID
	}
	values, err := r.loadValues(ctx, ids)
	if err != nil {
		return err
	}
	for i := range attrs {
		attrs[i].Values = values[attrs[i].ID]
	}
	return nil
}

func (r *AttributeRepository) loadValues(ctx context.Context, attributeIDs []string) (map[string][]domain.AttributeValue, error) {
	query := `
		SELECT ` + valueColumns + `
		FROM attribute_values
		WHERE attribute_id = ANY($1)
		ORDER BY sort_order, created_at`

	rows, err := r.pool.Query(ctx, query, attributeIDs)
	if err != nil {
		return nil, fmt.Errorf("list attribute values: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]domain.AttributeValue, len(attributeIDs))
	for _, id := range attributeIDs {
		out[id] = []domain.AttributeValue{}
	}
	for rows.Next() {
		var v domain.AttributeValue
		if err := rows.Scan(&v.ID, &v.AttributeID, &v.Value, &v.Status, &v.SortOrder, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan attribute value: %w", err)
		}
		out[v.AttributeID] = append(out[v.AttributeID], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attribute values: %w", err)
	}
	return out, nil
}

func scanAttribute(row pgx.Row) (*domain.Attribute, error) {
	var a domain.Attribute
	if err := row.Scan(&a.ID, &a.Name, &a.Status, &a.ExclusiveCategoryID, &a.SortOrder, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
