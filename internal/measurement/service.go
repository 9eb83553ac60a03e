package measurement

import (
	"context"
	"strings"

	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

type CreateInput struct {
	Label string
	Unit  Unit
	Notes *string
	Values
}

type Service interface {
	Create(ctx context.Context, userID int64, in CreateInput) (*Measurement, error)
	List(ctx context.Context, userID int64) ([]*Measurement, error)
	Get(ctx context.Context, userID, id int64) (*Measurement, error)
	Update(ctx context.Context, userID, id int64, p UpdateParams) (*Measurement, error)
	Delete(ctx context.Context, userID, id int64) error
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, userID int64, in CreateInput) (*Measurement, error) {
	unit := in.Unit
	if unit == "" {
		unit = UnitCM
	}

	m, err := s.repo.Create(ctx, &Measurement{
		UserID:   userID,
		Label:    strings.TrimSpace(in.Label),
		Unit:     unit,
		Chest:    in.Chest,
		Waist:    in.Waist,
		Hips:     in.Hips,
		Shoulder: in.Shoulder,
		Sleeve:   in.Sleeve,
		Length:   in.Length,
		Inseam:   in.Inseam,
		Neck:     in.Neck,
		Notes:    in.Notes,
	})
	if err != nil {
		return nil, err
	}

	logger.FromCtx(ctx).Info("measurement created", zap.Int64("measurement_id", m.ID))
	return m, nil
}

func (s *service) List(ctx context.Context, userID int64) ([]*Measurement, error) {
	return s.repo.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, userID, id int64) (*Measurement, error) {
	return s.repo.GetByID(ctx, userID, id)
}

func (s *service) Update(ctx context.Context, userID, id int64, p UpdateParams) (*Measurement, error) {
	return s.repo.Update(ctx, userID, id, p)
}

func (s *service) Delete(ctx context.Context, userID, id int64) error {
	return s.repo.Delete(ctx, userID, id)
}
