package product

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"tailor-be/internal/db"
	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	GetByID(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, opts ListOptions) ([]*Product, int64, error)
	Update(ctx context.Context, p *Product) (*Product, error)
	Delete(ctx context.Context, id int64) error
}

const productColumns = `id, name, description, category, base_price, image_url, fabrics, colors, created_at, updated_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func scanProduct(row interface{ Scan(...interface{}) error }) (*Product, error) {
	var (
		p       Product
		fabrics []byte
		colors  []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.Category, &p.BasePrice, &p.ImageURL,
		&fabrics, &colors, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fabrics, &p.Fabrics); err != nil {
		return nil, fmt.Errorf("decode fabrics for product %d: %w", p.ID, err)
	}
	if err := json.Unmarshal(colors, &p.Colors); err != nil {
		return nil, fmt.Errorf("decode colors for product %d: %w", p.ID, err)
	}
	if p.Colors == nil {
		p.Colors = []ColorOption{}
	}
	return &p, nil
}

func encodeOptions(p *Product) (string, string, error) {
	colors := p.Colors
	if colors == nil {
		colors = []ColorOption{}
	}

	fabricsJSON, err := json.Marshal(p.Fabrics)
	if err != nil {
		return "", "", err
	}
	colorsJSON, err := json.Marshal(colors)
	if err != nil {
		return "", "", err
	}
	return string(fabricsJSON), string(colorsJSON), nil
}

func (r *repository) Create(ctx context.Context, p *Product) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateProduct"),
	)

	fabrics, colors, err := encodeOptions(p)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO products (name, description, category, base_price, image_url, fabrics, colors)
		VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7::jsonb)
		RETURNING `+productColumns,
		p.Name, p.Description, p.Category, p.BasePrice, p.ImageURL, fabrics, colors,
	)

	created, err := scanProduct(row)
	if err != nil {
		log.Error("failed to insert product", zap.Error(err))
		return nil, err
	}

	log.Info("product created", zap.Int64("product_id", created.ID))
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Product, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row)
}

func (r *repository) List(ctx context.Context, opts ListOptions) ([]*Product, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListProducts"),
		zap.Int("limit", opts.Limit),
		zap.Int("page", opts.Page),
	)

	// ---------- FILTERING ----------
	whereClause := ""
	args := []any{}
	argIndex := 1

	if opts.Category != "" {
		whereClause += fmt.Sprintf(" WHERE LOWER(category) = LOWER($%d)", argIndex)
		args = append(args, opts.Category)
		argIndex++
	}

	// ---------- COUNT ----------
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products"+whereClause, args...).Scan(&total); err != nil {
		log.Error("failed to count products", zap.Error(err))
		return nil, 0, err
	}

	// ---------- QUERY ----------
	query := `SELECT ` + productColumns + ` FROM products` + whereClause +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, opts.Limit, (opts.Page-1)*opts.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query products", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	items := []*Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			log.Error("failed to scan product row", zap.Error(err))
			return nil, 0, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

// Update overwrites every mutable column with the values in p.
func (r *repository) Update(ctx context.Context, p *Product) (*Product, error) {
	fabrics, colors, err := encodeOptions(p)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2,
			description = $3,
			category = $4,
			base_price = $5,
			image_url = $6,
			fabrics = $7::jsonb,
			colors = $8::jsonb,
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.Category, p.BasePrice, p.ImageURL, fabrics, colors,
	)
	return scanProduct(row)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return ErrInUse
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
