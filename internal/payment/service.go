package payment

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"tailor-be/internal/logger"
	"tailor-be/internal/notify"
	"tailor-be/internal/order"
	"tailor-be/internal/utils"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Service interface {
	Initialize(ctx context.Context, payer utils.Identity, in InitializeInput) (*InitializeResult, error)
	Verify(ctx context.Context, userID int64, reference string) (*Payment, error)
	HandleWebhook(ctx context.Context, d Delivery) error
	List(ctx context.Context, userID int64) ([]*Payment, error)
}

type OrderLookup interface {
	GetForUser(ctx context.Context, userID, id int64) (*order.Order, error)
}

type Options struct {
	MinAmount   decimal.Decimal
	MaxAmount   decimal.Decimal
	CallbackURL string
}

type service struct {
	repo      Repository
	gateway   Gateway
	orders    OrderLookup
	publisher notify.Publisher
	opts      Options
}

func NewService(repo Repository, gateway Gateway, orders OrderLookup, publisher notify.Publisher, opts Options) Service {
	return &service{
		repo:      repo,
		gateway:   gateway,
		orders:    orders,
		publisher: publisher,
		opts:      opts,
	}
}

func (s *service) Initialize(ctx context.Context, payer utils.Identity, in InitializeInput) (*InitializeResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "InitializePayment"),
		zap.Int64("order_id", in.OrderID),
	)

	o, err := s.orders.GetForUser(ctx, payer.ID, in.OrderID)
	if errors.Is(err, order.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	if o.IsPaid() {
		return nil, ErrAlreadyPaid
	}
	if o.Status != order.StatusPending {
		log.Info("order not payable", zap.String("status", string(o.Status)))
		return nil, ErrOrderNotPayable
	}

	/* ---------- AMOUNT ---------- */
	if o.TotalCost.LessThan(s.opts.MinAmount) || o.TotalCost.GreaterThan(s.opts.MaxAmount) {
		return nil, &AmountRangeError{
			Amount: o.TotalCost.String(),
			Min:    s.opts.MinAmount.String(),
			Max:    s.opts.MaxAmount.String(),
		}
	}
	kobo, err := ToKobo(o.TotalCost)
	if err != nil {
		return nil, err
	}

	p, err := s.repo.CreatePending(ctx, &Payment{
		UserID:      payer.ID,
		OrderID:     o.ID,
		Email:       payer.Email,
		Reference:   utils.GeneratePaymentReference(),
		Amount:      kobo,
		Currency:    CurrencyNGN,
		FeeEstimate: EstimateFee(kobo),
	})
	if err != nil {
		return nil, err
	}

	callback := in.CallbackURL
	if callback == "" {
		callback = s.opts.CallbackURL
	}

	checkout, err := s.gateway.Initialize(ctx, ChargeRequest{
		Email:       payer.Email,
		Amount:      p.Amount,
		Reference:   p.Reference,
		CallbackURL: callback,
		Metadata: map[string]any{
			"order_id": o.ID,
			"user_id":  payer.ID,
		},
	})
	if err != nil {
		if abortErr := s.repo.Abort(ctx, p.ID, err.Error()); abortErr != nil {
			log.Error("failed to mark payment failed", zap.Error(abortErr))
		}
		return nil, err
	}

	if err := s.repo.SetCheckout(ctx, p.ID, checkout.AccessCode, checkout.AuthorizationURL); err != nil {
		return nil, err
	}

	log.Info("payment initialized", zap.String("reference", p.Reference), zap.Int64("amount", p.Amount))
	return &InitializeResult{
		Reference:        p.Reference,
		AuthorizationURL: checkout.AuthorizationURL,
		AccessCode:       checkout.AccessCode,
		Amount:           p.Amount,
		FeeEstimate:      p.FeeEstimate,
	}, nil
}

func (s *service) Verify(ctx context.Context, userID int64, reference string) (*Payment, error) {
	p, err := s.repo.GetForUser(ctx, userID, reference)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return p, nil
	}

	txn, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		// a later charge.success can still settle a failed payment
		if _, markErr := s.repo.MarkFailed(ctx, reference, err.Error()); markErr != nil {
			logger.FromCtx(ctx).Error("failed to mark payment failed",
				zap.String("reference", reference),
				zap.Error(markErr),
			)
		}
		return nil, err
	}
	return s.reconcile(ctx, p, txn)
}

// reconcile applies the gateway's view of a charge to a stored payment.
func (s *service) reconcile(ctx context.Context, p *Payment, txn *Transaction) (*Payment, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("reference", p.Reference),
		zap.String("gateway_status", txn.Status),
	)

	if txn.Status != string(StatusSuccess) {
		reason := txn.GatewayResponse
		if reason == "" {
			reason = txn.Status
		}
		log.Warn("charge not successful", zap.String("reason", reason))
		return s.repo.MarkFailed(ctx, p.Reference, reason)
	}

	if txn.Amount != p.Amount {
		log.Error("charged amount mismatch",
			zap.Int64("expected", p.Amount),
			zap.Int64("charged", txn.Amount),
		)
		return nil, ErrAmountMismatch
	}

	settled, changed, err := s.repo.Settle(ctx, p.Reference, txn.settlement())
	if errors.Is(err, ErrAlreadyPaid) {
		log.Error("second charge for a paid order, refund required", zap.Int64("order_id", p.OrderID))
		if _, flagErr := s.repo.FlagDuplicate(ctx, p.Reference, DuplicateChargeReason); flagErr != nil {
			return nil, flagErr
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	if changed {
		s.sendReceipt(ctx, settled)
	}
	return settled, nil
}

func (s *service) sendReceipt(ctx context.Context, p *Payment) {
	if p.Email == "" {
		return
	}
	err := s.publisher.Publish(ctx, notify.Message{
		Kind: notify.KindPaymentReceipt,
		To:   p.Email,
		Data: map[string]string{
			"reference": p.Reference,
			"amount":    FromKobo(p.Amount).StringFixed(2),
			"order_id":  strconv.FormatInt(p.OrderID, 10),
		},
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		// the payment is settled either way
		logger.FromCtx(ctx).Error("failed to publish receipt", zap.String("reference", p.Reference), zap.Error(err))
	}
}

func (s *service) HandleWebhook(ctx context.Context, d Delivery) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "HandleWebhook"),
	)

	if !d.SignatureValid {
		return ErrInvalidSignature
	}

	var (
		evt  Event
		data Transaction
	)
	reference := ""
	parseErr := json.Unmarshal(d.Body, &evt)
	if parseErr == nil {
		switch evt.Event {
		case EventChargeSuccess, EventChargeFailed:
			parseErr = json.Unmarshal(evt.Data, &data)
			reference = data.Reference
		case EventRefundProcessed:
			var refund refundData
			parseErr = json.Unmarshal(evt.Data, &refund)
			reference = refund.paymentReference()
		}
	}

	payload := json.RawMessage(d.Body)
	if !json.Valid(d.Body) {
		payload, _ = json.Marshal(map[string]string{"raw": string(d.Body)})
	}

	webhookID, processed, err := s.repo.SaveWebhook(ctx, WebhookRecord{
		Provider:  ProviderPaystack,
		Event:     evt.Event,
		Reference: reference,
		Payload:   payload,
	})
	if err != nil {
		log.Error("failed to audit webhook", zap.Error(err))
		return err
	}

	if parseErr != nil {
		log.Warn("unparseable webhook body", zap.Error(parseErr))
		_ = s.repo.MarkWebhookFailed(ctx, webhookID, parseErr.Error())
		return nil
	}
	if processed {
		log.Info("duplicate webhook acknowledged",
			zap.String("event", evt.Event),
			zap.String("reference", reference),
		)
		return nil
	}

	if err := s.applyEvent(ctx, evt.Event, reference, &data); err != nil {
		log.Error("webhook processing failed",
			zap.String("event", evt.Event),
			zap.String("reference", reference),
			zap.Error(err),
		)
		_ = s.repo.MarkWebhookFailed(ctx, webhookID, err.Error())

		if isBusinessRejection(err) {
			return nil
		}
		return err
	}

	return s.repo.MarkWebhookProcessed(ctx, webhookID)
}

// isBusinessRejection reports errors that will not improve on redelivery.
func isBusinessRejection(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAmountMismatch) ||
		errors.Is(err, ErrNotReconcilable) ||
		errors.Is(err, ErrAlreadyPaid)
}

func (s *service) applyEvent(ctx context.Context, event, reference string, data *Transaction) error {
	switch event {
	case EventChargeSuccess:
		p, err := s.repo.GetByReference(ctx, reference)
		if err != nil {
			return err
		}
		data.Status = string(StatusSuccess)
		_, err = s.reconcile(ctx, p, data)
		return err

	case EventChargeFailed:
		reason := data.GatewayResponse
		if reason == "" {
			reason = "charge failed"
		}
		_, err := s.repo.MarkFailed(ctx, reference, reason)
		return err

	case EventRefundProcessed:
		_, err := s.repo.MarkReversed(ctx, reference)
		return err
	}

	logger.FromCtx(ctx).Debug("ignoring webhook event", zap.String("event", event))
	return nil
}

func (s *service) List(ctx context.Context, userID int64) ([]*Payment, error) {
	return s.repo.ListByUser(ctx, userID)
}
