package measurement

import (
	"context"
	"database/sql"
	"errors"

	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, m *Measurement) (*Measurement, error)
	ListByUser(ctx context.Context, userID int64) ([]*Measurement, error)
	// GetByID only finds rows owned by userID.
	GetByID(ctx context.Context, userID, id int64) (*Measurement, error)
	Update(ctx context.Context, userID, id int64, p UpdateParams) (*Measurement, error)
	Delete(ctx context.Context, userID, id int64) error
}

const measurementColumns = `id, user_id, label, unit, chest, waist, hips, shoulder,
	sleeve, length, inseam, neck, notes, created_at, updated_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func scanMeasurement(row interface{ Scan(...interface{}) error }) (*Measurement, error) {
	var m Measurement
	err := row.Scan(
		&m.ID, &m.UserID, &m.Label, &m.Unit, &m.Chest, &m.Waist, &m.Hips, &m.Shoulder,
		&m.Sleeve, &m.Length, &m.Inseam, &m.Neck, &m.Notes, &m.CreatedAt, &m.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repository) Create(ctx context.Context, m *Measurement) (*Measurement, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateMeasurement"),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO measurements (user_id, label, unit, chest, waist, hips, shoulder, sleeve, length, inseam, neck, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING `+measurementColumns,
		m.UserID, m.Label, m.Unit, m.Chest, m.Waist, m.Hips, m.Shoulder, m.Sleeve, m.Length, m.Inseam, m.Neck, m.Notes,
	)

	created, err := scanMeasurement(row)
	if err != nil {
		log.Error("failed to insert measurement", zap.Error(err))
		return nil, err
	}
	return created, nil
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]*Measurement, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Measurement{}
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *repository) GetByID(ctx context.Context, userID, id int64) (*Measurement, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+measurementColumns+` FROM measurements WHERE id = $1 AND user_id = $2`,
		id, userID,
	)
	return scanMeasurement(row)
}

func (r *repository) Update(ctx context.Context, userID, id int64, p UpdateParams) (*Measurement, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE measurements
		SET label = COALESCE($3, label),
			unit = COALESCE($4, unit),
			chest = COALESCE($5, chest),
			waist = COALESCE($6, waist),
			hips = COALESCE($7, hips),
			shoulder = COALESCE($8, shoulder),
			sleeve = COALESCE($9, sleeve),
			length = COALESCE($10, length),
			inseam = COALESCE($11, inseam),
			neck = COALESCE($12, neck),
			notes = COALESCE($13, notes),
			updated_at = NOW()
		WHERE id = $1 AND user_id = $2
		RETURNING `+measurementColumns,
		id, userID, p.Label, p.Unit, p.Chest, p.Waist, p.Hips, p.Shoulder, p.Sleeve, p.Length, p.Inseam, p.Neck, p.Notes,
	)
	return scanMeasurement(row)
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM measurements WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
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
