package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, o *Order) (*Order, error)
	GetByID(ctx context.Context, id int64) (*Order, error)
	GetForUser(ctx context.Context, userID, id int64) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, int64, error)
	Update(ctx context.Context, o *Order) (*Order, error)
	Delete(ctx context.Context, userID, id int64) error
	UpdateStatus(ctx context.Context, id int64, from, to Status) (*Order, error)
	MarkPaid(ctx context.Context, id int64) error
}

// Execer is satisfied by both *sql.DB and *sql.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const orderColumns = `id, user_id, product_id, quantity, fabric_name, fabric_price, color_name,
	color_extra_price, unit_price, total_cost, delivery_date, delivery_address, measurement_id,
	notes, status, payment_status, created_at, updated_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func scanOrder(row interface{ Scan(...interface{}) error }) (*Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.UserID, &o.ProductID, &o.Quantity, &o.FabricName, &o.FabricPrice, &o.ColorName,
		&o.ColorExtraPrice, &o.UnitPrice, &o.TotalCost, &o.DeliveryDate, &o.DeliveryAddress, &o.MeasurementID,
		&o.Notes, &o.Status, &o.PaymentStatus, &o.CreatedAt, &o.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *repository) Create(ctx context.Context, o *Order) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreateOrder"),
		zap.Int64("user_id", o.UserID),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO orders (
			user_id, product_id, quantity, fabric_name, fabric_price, color_name,
			color_extra_price, unit_price, total_cost, delivery_date, delivery_address,
			measurement_id, notes, status, payment_status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING `+orderColumns,
		o.UserID, o.ProductID, o.Quantity, o.FabricName, o.FabricPrice, o.ColorName,
		o.ColorExtraPrice, o.UnitPrice, o.TotalCost, o.DeliveryDate, o.DeliveryAddress,
		o.MeasurementID, o.Notes, StatusPending, PaymentPending,
	)

	created, err := scanOrder(row)
	if err != nil {
		log.Error("failed to insert order", zap.Error(err))
		return nil, err
	}

	log.Info("order created",
		zap.Int64("order_id", created.ID),
		zap.String("total_cost", created.TotalCost.String()),
	)
	return created, nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	return scanOrder(row)
}

func (r *repository) GetForUser(ctx context.Context, userID, id int64) (*Order, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 AND user_id = $2`, id, userID)
	return scanOrder(row)
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]*Order, int64, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ListOrders"),
		zap.Int("limit", filter.Limit),
		zap.Int("page", filter.Page),
	)

	// ---------- FILTERING ----------
	conditions := ""
	args := []any{}
	argIndex := 1

	and := func(clause string, v any) {
		if conditions == "" {
			conditions = " WHERE "
		} else {
			conditions += " AND "
		}
		conditions += fmt.Sprintf(clause, argIndex)
		args = append(args, v)
		argIndex++
	}

	if filter.UserID != nil {
		and("user_id = $%d", *filter.UserID)
	}
	if filter.Status != nil {
		and("status = $%d", *filter.Status)
	}
	if filter.PaymentStatus != nil {
		and("payment_status = $%d", *filter.PaymentStatus)
	}

	// ---------- COUNT ----------
	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM orders"+conditions, args...).Scan(&total); err != nil {
		log.Error("failed to count orders", zap.Error(err))
		return nil, 0, err
	}

	// ---------- QUERY ----------
	query := `SELECT ` + orderColumns + ` FROM orders` + conditions +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, filter.Limit, (filter.Page-1)*filter.Limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query orders", zap.Error(err))
		return nil, 0, err
	}
	defer rows.Close()

	orders := []*Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			log.Error("failed to scan order", zap.Error(err))
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// Update rewrites the customer-editable fields. The row must still be pending and unpaid.
func (r *repository) Update(ctx context.Context, o *Order) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateOrder"),
		zap.Int64("order_id", o.ID),
	)

	row := r.db.QueryRowContext(ctx, `
		UPDATE orders SET
			quantity = $3, fabric_name = $4, fabric_price = $5, color_name = $6,
			color_extra_price = $7, unit_price = $8, total_cost = $9, delivery_date = $10,
			delivery_address = $11, measurement_id = $12, notes = $13, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'Pending' AND payment_status <> 'Paid'
		RETURNING `+orderColumns,
		o.ID, o.UserID,
		o.Quantity, o.FabricName, o.FabricPrice, o.ColorName,
		o.ColorExtraPrice, o.UnitPrice, o.TotalCost, o.DeliveryDate,
		o.DeliveryAddress, o.MeasurementID, o.Notes,
	)

	updated, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		// paid or advanced between read and write
		return nil, ErrNotEditable
	}
	if err != nil {
		log.Error("failed to update order", zap.Error(err))
		return nil, err
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM orders WHERE id = $1 AND user_id = $2 AND payment_status <> 'Paid'`, id, userID)
	if err != nil {
		return err
	}
	rowsAffected, _ := res.RowsAffected()
	if rowsAffected == 0 {
		return ErrAlreadyPaid
	}
	return nil
}

// UpdateStatus moves the order from one status to another, failing with
// ErrStatusChanged when the stored status is no longer from.
func (r *repository) UpdateStatus(ctx context.Context, id int64, from, to Status) (*Order, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE orders SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+orderColumns,
		id, from, to,
	)
	o, err := scanOrder(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStatusChanged
	}
	return o, err
}

func (r *repository) MarkPaid(ctx context.Context, id int64) error {
	return MarkPaid(ctx, r.db, id)
}

// MarkPaid flags the order paid and starts work on it if it was still pending.
// Calling it on an already paid order is a no-op.
func MarkPaid(ctx context.Context, exec Execer, id int64) error {
	res, err := exec.ExecContext(ctx, `
		UPDATE orders SET
			payment_status = 'Paid',
			status = CASE WHEN status = 'Pending' THEN 'In Progress' ELSE status END,
			updated_at = NOW()
		WHERE id = $1 AND payment_status <> 'Paid'`, id)
	if err != nil {
		return fmt.Errorf("mark order %d paid: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		logger.FromCtx(ctx).Debug("order already paid or missing", zap.Int64("order_id", id))
	}
	return nil
}

// SetPaymentStatus records a non-success payment outcome on the order.
// Only a refund may replace Paid.
func SetPaymentStatus(ctx context.Context, exec Execer, id int64, status PaymentStatus) error {
	query := `UPDATE orders SET payment_status = $2, updated_at = NOW() WHERE id = $1`
	if status != PaymentRefunded {
		query += ` AND payment_status <> 'Paid'`
	}
	if _, err := exec.ExecContext(ctx, query, id, status); err != nil {
		return fmt.Errorf("set order %d payment status: %w", id, err)
	}
	return nil
}
