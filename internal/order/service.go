package order

import (
	"context"
	"errors"
	"strings"
	"time"

	"tailor-be/internal/logger"
	"tailor-be/internal/measurement"
	"tailor-be/internal/product"

	"go.uber.org/zap"
)

type Service interface {
	Create(ctx context.Context, userID int64, in CreateInput) (*Order, *Breakdown, error)
	Get(ctx context.Context, userID, id int64) (*Order, error)
	List(ctx context.Context, userID int64, limit, page int) (*ListResult, error)
	Update(ctx context.Context, userID, id int64, in UpdateInput) (*Order, error)
	Delete(ctx context.Context, userID, id int64) error

	AdminList(ctx context.Context, filter ListFilter) (*ListResult, error)
	AdminGet(ctx context.Context, id int64) (*Order, error)
	UpdateStatus(ctx context.Context, id int64, to Status) (*Order, error)
	MarkPaid(ctx context.Context, id int64) error
}

// ProductLookup reads the authoritative product record, bypassing any cache.
type ProductLookup interface {
	GetByID(ctx context.Context, id int64) (*product.Product, error)
}

type MeasurementLookup interface {
	GetByID(ctx context.Context, userID, id int64) (*measurement.Measurement, error)
}

type service struct {
	repo         Repository
	products     ProductLookup
	measurements MeasurementLookup
	now          func() time.Time
}

func NewService(repo Repository, products ProductLookup, measurements MeasurementLookup) Service {
	return &service{
		repo:         repo,
		products:     products,
		measurements: measurements,
		now:          time.Now,
	}
}

func (s *service) quote(ctx context.Context, productID int64, fabric string, color *string, qty int) (*Quote, error) {
	p, err := s.products.GetByID(ctx, productID)
	if errors.Is(err, product.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, err
	}
	return ComputePrice(p, fabric, color, qty)
}

func (s *service) checkMeasurement(ctx context.Context, userID int64, id *int64) error {
	if id == nil {
		return nil
	}
	_, err := s.measurements.GetByID(ctx, userID, *id)
	if errors.Is(err, measurement.ErrNotFound) {
		return ErrMeasurementNotFound
	}
	return err
}

func (s *service) Create(ctx context.Context, userID int64, in CreateInput) (*Order, *Breakdown, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "CreateOrder"),
		zap.Int64("product_id", in.ProductID),
	)

	/* ---------- INPUT NORMALIZATION ---------- */
	in.Fabric = strings.TrimSpace(in.Fabric)
	in.DeliveryAddress = strings.TrimSpace(in.DeliveryAddress)
	if in.Color != nil {
		c := strings.TrimSpace(*in.Color)
		in.Color = &c
	}

	deliveryDate, err := ParseDeliveryDate(in.DeliveryDate, s.now())
	if err != nil {
		return nil, nil, err
	}
	if err := s.checkMeasurement(ctx, userID, in.MeasurementID); err != nil {
		return nil, nil, err
	}

	q, err := s.quote(ctx, in.ProductID, in.Fabric, in.Color, in.Quantity)
	if err != nil {
		log.Warn("order rejected", zap.Error(err))
		return nil, nil, err
	}

	o := &Order{
		UserID:          userID,
		ProductID:       in.ProductID,
		DeliveryDate:    deliveryDate,
		DeliveryAddress: in.DeliveryAddress,
		MeasurementID:   in.MeasurementID,
		Notes:           in.Notes,
	}
	q.apply(o)

	created, err := s.repo.Create(ctx, o)
	if err != nil {
		return nil, nil, err
	}
	return created, &q.Breakdown, nil
}

func (s *service) Get(ctx context.Context, userID, id int64) (*Order, error) {
	return s.repo.GetForUser(ctx, userID, id)
}

func (s *service) List(ctx context.Context, userID int64, limit, page int) (*ListResult, error) {
	return s.list(ctx, ListFilter{UserID: &userID, Limit: limit, Page: page})
}

func (s *service) AdminList(ctx context.Context, filter ListFilter) (*ListResult, error) {
	return s.list(ctx, filter)
}

func (s *service) list(ctx context.Context, filter ListFilter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &ListResult{Items: items, TotalCount: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *service) Update(ctx context.Context, userID, id int64, in UpdateInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateOrder"),
		zap.Int64("order_id", id),
	)

	if in.empty() {
		return nil, ErrNothingToUpdate
	}

	o, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !o.Editable() {
		return nil, ErrNotEditable
	}

	if in.DeliveryDate != nil {
		d, err := ParseDeliveryDate(*in.DeliveryDate, s.now())
		if err != nil {
			return nil, err
		}
		o.DeliveryDate = d
	}
	if in.DeliveryAddress != nil {
		o.DeliveryAddress = strings.TrimSpace(*in.DeliveryAddress)
	}
	if in.MeasurementID != nil {
		if err := s.checkMeasurement(ctx, userID, in.MeasurementID); err != nil {
			return nil, err
		}
		o.MeasurementID = in.MeasurementID
	}
	if in.Notes != nil {
		o.Notes = in.Notes
	}

	if in.reprices() {
		qty, fabric, color := o.Quantity, o.FabricName, o.ColorName
		if in.Quantity != nil {
			qty = *in.Quantity
		}
		if in.Fabric != nil {
			fabric = strings.TrimSpace(*in.Fabric)
		}
		if in.Color != nil {
			c := strings.TrimSpace(*in.Color)
			color = &c
		}

		// always against the current catalogue
		q, err := s.quote(ctx, o.ProductID, fabric, color, qty)
		if err != nil {
			log.Warn("reprice rejected", zap.Error(err))
			return nil, err
		}
		q.apply(o)
	}

	return s.repo.Update(ctx, o)
}

func (s *service) Delete(ctx context.Context, userID, id int64) error {
	o, err := s.repo.GetForUser(ctx, userID, id)
	if err != nil {
		return err
	}
	if o.IsPaid() {
		return ErrAlreadyPaid
	}
	return s.repo.Delete(ctx, userID, id)
}

func (s *service) AdminGet(ctx context.Context, id int64) (*Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) UpdateStatus(ctx context.Context, id int64, to Status) (*Order, error) {
	o, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == to {
		return o, nil
	}
	if err := checkTransition(o, to); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateStatus(ctx, id, o.Status, to)
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("order status changed",
		zap.Int64("order_id", id),
		zap.String("from", string(o.Status)),
		zap.String("to", string(to)),
	)
	return updated, nil
}

func (s *service) MarkPaid(ctx context.Context, id int64) error {
	return s.repo.MarkPaid(ctx, id)
}
