package payment

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "user_id", "order_id", "email", "reference", "amount", "currency", "status", "fee_estimate",
	"gateway_fees", "gateway_reference", "access_code", "authorization_url", "channel", "failure_reason",
	"paid_at", "created_at", "updated_at",
}

func paymentRow(status Status) []driver.Value {
	now := time.Now()
	return []driver.Value{
		int64(3), int64(1), int64(11), "ada@example.com", "TLR-1", int64(20_200_000), "NGN", string(status), int64(200_000),
		nil, nil, nil, nil, nil, nil,
		nil, now, now,
	}
}

func newMockRepo(t *testing.T) (*repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &repository{db: db}, mock
}

func TestRepository_CreatePending(t *testing.T) {
	repo, mock := newMockRepo(t)
	p := &Payment{UserID: 1, OrderID: 11, Email: "ada@example.com", Reference: "TLR-1",
		Amount: 20_200_000, Currency: "NGN", FeeEstimate: 200_000}

	mock.ExpectQuery(regexp.QuoteMeta("WHERE NOT EXISTS ( SELECT 1 FROM payments WHERE order_id = $2 AND status = 'success' )")).
		WithArgs(int64(1), int64(11), "ada@example.com", "TLR-1", int64(20_200_000), "NGN", int64(200_000)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusPending)...))

	created, err := repo.CreatePending(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, created.Status)
	assert.Nil(t, created.PaidAt)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payments")).
		WillReturnRows(sqlmock.NewRows(columns))

	_, err = repo.CreatePending(context.Background(), p)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Settle(t *testing.T) {
	repo, mock := newMockRepo(t)
	paidAt := time.Date(2026, 3, 10, 12, 0, 5, 0, time.UTC)

	success := paymentRow(StatusSuccess)
	success[9], success[10], success[13], success[15] = int64(200_000), "4099", "card", paidAt

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE reference = $1 FOR UPDATE")).
		WithArgs("TLR-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusPending)...))
	mock.ExpectQuery(regexp.QuoteMeta("status = 'success'")).
		WithArgs(int64(3), "4099", int64(200_000), "card", paidAt).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(success...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET payment_status = 'Paid'")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, changed, err := repo.Settle(context.Background(), "TLR-1", Settlement{
		GatewayReference: "4099", Fees: 200_000, Channel: "card", PaidAt: paidAt, Amount: 20_200_000,
	})
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, StatusSuccess, p.Status)
	assert.Equal(t, "4099", *p.GatewayReference)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SettleIsIdempotent(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusSuccess)...))
	mock.ExpectCommit()

	p, changed, err := repo.Settle(context.Background(), "TLR-1", Settlement{})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, StatusSuccess, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SettleSecondSuccessForOrder(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusPending)...))
	mock.ExpectQuery(regexp.QuoteMeta("status = 'success'")).
		WillReturnError(&pq.Error{Code: "23505", Constraint: successPerOrderIndex})
	mock.ExpectRollback()

	_, _, err := repo.Settle(context.Background(), "TLR-1", Settlement{PaidAt: time.Now()})
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_SettleUnknownReference(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, _, err := repo.Settle(context.Background(), "TLR-X", Settlement{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_MarkFailed(t *testing.T) {
	repo, mock := newMockRepo(t)

	failed := paymentRow(StatusFailed)
	failed[14] = "Declined"

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusPending)...))
	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'failed', failure_reason = $2")).
		WithArgs(int64(3), "Declined").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(failed...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET payment_status = $2")).
		WithArgs(int64(11), "Failed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.MarkFailed(context.Background(), "TLR-1", "Declined")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, p.Status)
	assert.Equal(t, "Declined", *p.FailureReason)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkReversed(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusSuccess)...))
	mock.ExpectQuery(regexp.QuoteMeta("SET status = 'reversed'")).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusReversed)...))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE orders SET payment_status = $2")).
		WithArgs(int64(11), "Refunded").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	p, err := repo.MarkReversed(context.Background(), "TLR-1")
	require.NoError(t, err)
	assert.Equal(t, StatusReversed, p.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_MarkReversedRequiresSuccess(t *testing.T) {
	for _, status := range []Status{StatusPending, StatusFailed, StatusAbandoned} {
		t.Run(string(status), func(t *testing.T) {
			repo, mock := newMockRepo(t)

			mock.ExpectBegin()
			mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
				WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(status)...))
			mock.ExpectRollback()

			_, err := repo.MarkReversed(context.Background(), "TLR-1")
			assert.ErrorIs(t, err, ErrNotReconcilable)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestRepository_FlagDuplicate(t *testing.T) {
	t.Run("FailsOpenPayment", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'failed', 'abandoned')")).
			WithArgs("TLR-1", DuplicateChargeReason).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusFailed)...))

		p, err := repo.FlagDuplicate(context.Background(), "TLR-1", DuplicateChargeReason)
		require.NoError(t, err)
		assert.Equal(t, StatusFailed, p.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("LeavesSettledPaymentAlone", func(t *testing.T) {
		repo, mock := newMockRepo(t)

		mock.ExpectQuery(regexp.QuoteMeta("status IN ('pending', 'failed', 'abandoned')")).
			WithArgs("TLR-1", DuplicateChargeReason).
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectQuery(regexp.QuoteMeta("FROM payments WHERE reference = $1")).
			WithArgs("TLR-1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow(paymentRow(StatusSuccess)...))

		p, err := repo.FlagDuplicate(context.Background(), "TLR-1", DuplicateChargeReason)
		require.NoError(t, err)
		assert.Equal(t, StatusSuccess, p.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRepository_SaveWebhook(t *testing.T) {
	repo, mock := newMockRepo(t)
	payload := json.RawMessage(`{"event":"charge.success"}`)

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (provider, event, reference)")).
		WithArgs("paystack", "charge.success", "TLR-1", `{"event":"charge.success"}`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "processed"}).AddRow(int64(7), false))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO payment_webhooks")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "processed"}).AddRow(int64(7), true))

	rec := WebhookRecord{Provider: "paystack", Event: "charge.success", Reference: "TLR-1", Payload: payload}

	id, processed, err := repo.SaveWebhook(context.Background(), rec)
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.False(t, processed)

	_, processed, err = repo.SaveWebhook(context.Background(), rec)
	require.NoError(t, err)
	assert.True(t, processed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_WebhookOutcome(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("SET processed_at = now()")).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET process_error = $2")).
		WithArgs(int64(8), "boom").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkWebhookProcessed(context.Background(), 7))
	require.NoError(t, repo.MarkWebhookFailed(context.Background(), 8, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
