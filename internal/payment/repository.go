package payment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tailor-be/internal/db"
	"tailor-be/internal/logger"
	"tailor-be/internal/order"

	"go.uber.org/zap"
)

type Repository interface {
	CreatePending(ctx context.Context, p *Payment) (*Payment, error)
	SetCheckout(ctx context.Context, id int64, accessCode, authorizationURL string) error
	Abort(ctx context.Context, id int64, reason string) error

	GetByReference(ctx context.Context, reference string) (*Payment, error)
	GetForUser(ctx context.Context, userID int64, reference string) (*Payment, error)
	ListByUser(ctx context.Context, userID int64) ([]*Payment, error)

	Settle(ctx context.Context, reference string, s Settlement) (*Payment, bool, error)
	MarkFailed(ctx context.Context, reference, reason string) (*Payment, error)
	MarkReversed(ctx context.Context, reference string) (*Payment, error)
	FlagDuplicate(ctx context.Context, reference, reason string) (*Payment, error)

	SaveWebhook(ctx context.Context, rec WebhookRecord) (webhookID int64, alreadyProcessed bool, err error)
	MarkWebhookProcessed(ctx context.Context, webhookID int64) error
	MarkWebhookFailed(ctx context.Context, webhookID int64, reason string) error
}

const successPerOrderIndex = "payments_one_success_per_order"

const paymentColumns = `id, user_id, order_id, email, reference, amount, currency, status, fee_estimate,
	gateway_fees, gateway_reference, access_code, authorization_url, channel, failure_reason,
	paid_at, created_at, updated_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func scanPayment(row interface{ Scan(...interface{}) error }) (*Payment, error) {
	var p Payment
	err := row.Scan(
		&p.ID, &p.UserID, &p.OrderID, &p.Email, &p.Reference, &p.Amount, &p.Currency, &p.Status, &p.FeeEstimate,
		&p.GatewayFees, &p.GatewayReference, &p.AccessCode, &p.AuthorizationURL, &p.Channel, &p.FailureReason,
		&p.PaidAt, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePending inserts a pending payment unless the order already has a
// successful one, in which case ErrAlreadyPaid is returned.
func (r *repository) CreatePending(ctx context.Context, p *Payment) (*Payment, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "CreatePendingPayment"),
		zap.Int64("order_id", p.OrderID),
	)

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO payments (user_id, order_id, email, reference, amount, currency, status, fee_estimate)
		SELECT $1, $2, $3, $4, $5, $6, 'pending', $7
		WHERE NOT EXISTS (
			SELECT 1 FROM payments WHERE order_id = $2 AND status = 'success'
		)
		RETURNING `+paymentColumns,
		p.UserID, p.OrderID, p.Email, p.Reference, p.Amount, p.Currency, p.FeeEstimate,
	)

	created, err := scanPayment(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrAlreadyPaid
	}
	if err != nil {
		log.Error("failed to insert payment", zap.Error(err))
		return nil, err
	}

	log.Info("pending payment created", zap.String("reference", created.Reference))
	return created, nil
}

func (r *repository) SetCheckout(ctx context.Context, id int64, accessCode, authorizationURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET access_code = $2, authorization_url = $3, updated_at = NOW()
		WHERE id = $1`, id, accessCode, authorizationURL)
	return err
}

// Abort fails a payment whose checkout never started. The order is untouched.
func (r *repository) Abort(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE payments SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, reason)
	return err
}

func (r *repository) GetByReference(ctx context.Context, reference string) (*Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference)
	return scanPayment(row)
}

func (r *repository) GetForUser(ctx context.Context, userID int64, reference string) (*Payment, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1 AND user_id = $2`, reference, userID)
	return scanPayment(row)
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]*Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []*Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// withLockedPayment runs fn inside a transaction holding a row lock on the payment.
func (r *repository) withLockedPayment(ctx context.Context, reference string, fn func(tx *sql.Tx, p *Payment) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	p, err := scanPayment(tx.QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE reference = $1 FOR UPDATE`, reference))
	if err != nil {
		return err
	}
	if err = fn(tx, p); err != nil {
		return err
	}
	return tx.Commit()
}

// Settle marks the payment successful and the order paid in one transaction.
// The bool reports whether this call made the change.
func (r *repository) Settle(ctx context.Context, reference string, s Settlement) (*Payment, bool, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "SettlePayment"),
		zap.String("reference", reference),
	)

	var (
		settled *Payment
		changed bool
	)
	err := r.withLockedPayment(ctx, reference, func(tx *sql.Tx, p *Payment) error {
		switch p.Status {
		case StatusSuccess:
			settled = p
			return nil
		case StatusReversed:
			return ErrNotReconcilable
		}

		updated, err := scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET
				status = 'success', gateway_reference = $2, gateway_fees = $3, channel = $4,
				paid_at = $5, failure_reason = NULL, updated_at = NOW()
			WHERE id = $1
			RETURNING `+paymentColumns,
			p.ID, s.GatewayReference, s.Fees, s.Channel, s.PaidAt,
		))
		if err != nil {
			return err
		}
		if err := order.MarkPaid(ctx, tx, p.OrderID); err != nil {
			return err
		}
		settled, changed = updated, true
		return nil
	})
	if db.IsUniqueViolation(err, successPerOrderIndex) {
		return nil, false, ErrAlreadyPaid
	}
	if err != nil {
		log.Error("failed to settle payment", zap.Error(err))
		return nil, false, err
	}

	if changed {
		log.Info("payment settled", zap.Int64("order_id", settled.OrderID))
	}
	return settled, changed, nil
}

// MarkFailed fails a pending payment and records the failure on the order.
func (r *repository) MarkFailed(ctx context.Context, reference, reason string) (*Payment, error) {
	var failed *Payment
	err := r.withLockedPayment(ctx, reference, func(tx *sql.Tx, p *Payment) error {
		if p.Status != StatusPending {
			failed = p
			return nil
		}

		updated, err := scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET status = 'failed', failure_reason = $2, updated_at = NOW()
			WHERE id = $1
			RETURNING `+paymentColumns,
			p.ID, reason,
		))
		if err != nil {
			return err
		}
		if err := order.SetPaymentStatus(ctx, tx, p.OrderID, order.PaymentFailed); err != nil {
			return err
		}
		failed = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return failed, nil
}

// MarkReversed records a refund of a successful payment.
func (r *repository) MarkReversed(ctx context.Context, reference string) (*Payment, error) {
	var reversed *Payment
	err := r.withLockedPayment(ctx, reference, func(tx *sql.Tx, p *Payment) error {
		if p.Status == StatusReversed {
			reversed = p
			return nil
		}
		if p.Status != StatusSuccess {
			return ErrNotReconcilable
		}

		updated, err := scanPayment(tx.QueryRowContext(ctx, `
			UPDATE payments SET status = 'reversed', updated_at = NOW()
			WHERE id = $1
			RETURNING `+paymentColumns,
			p.ID,
		))
		if err != nil {
			return err
		}
		if err := order.SetPaymentStatus(ctx, tx, p.OrderID, order.PaymentRefunded); err != nil {
			return err
		}
		reversed = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reversed, nil
}

// FlagDuplicate fails a charge that arrived after its order was already paid
// by another payment. The order keeps its paid state.
func (r *repository) FlagDuplicate(ctx context.Context, reference, reason string) (*Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `
		UPDATE payments SET status = 'failed', failure_reason = $2, updated_at = NOW()
		WHERE reference = $1 AND status IN ('pending', 'failed', 'abandoned')
		RETURNING `+paymentColumns,
		reference, reason,
	))
	if errors.Is(err, ErrNotFound) {
		return r.GetByReference(ctx, reference)
	}
	return p, err
}

// SaveWebhook audits a signed delivery. Redeliveries of an event that was
// already processed come back with alreadyProcessed set.
func (r *repository) SaveWebhook(ctx context.Context, rec WebhookRecord) (int64, bool, error) {
	const q = `
	INSERT INTO payment_webhooks (
		provider,
		event,
		reference,
		payload
	)
	VALUES ($1, $2, $3, $4::jsonb)
	ON CONFLICT (provider, event, reference)
	DO UPDATE SET deliveries = payment_webhooks.deliveries + 1, payload = EXCLUDED.payload
	RETURNING id, processed_at IS NOT NULL;
	`

	payload := string(rec.Payload)
	if len(rec.Payload) == 0 {
		payload = "{}"
	}

	var (
		id        int64
		processed bool
	)
	err := r.db.QueryRowContext(
		ctx,
		q,
		rec.Provider,
		rec.Event,
		rec.Reference,
		payload,
	).Scan(&id, &processed)
	if err != nil {
		return 0, false, err
	}
	return id, processed, nil
}

func (r *repository) MarkWebhookProcessed(
	ctx context.Context,
	webhookID int64,
) error {

	const q = `
	UPDATE payment_webhooks
	SET processed_at = now(), process_error = NULL
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID)
	return err
}

func (r *repository) MarkWebhookFailed(
	ctx context.Context,
	webhookID int64,
	reason string,
) error {

	const q = `
	UPDATE payment_webhooks
	SET process_error = $2
	WHERE id = $1;
	`

	_, err := r.db.ExecContext(ctx, q, webhookID, reason)
	return err
}
