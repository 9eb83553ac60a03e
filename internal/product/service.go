package product

import (
	"context"
	"fmt"
	"strings"
	"time"

	"tailor-be/internal/cache"
	"tailor-be/internal/logger"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const listKeyPrefix = "products:list:"

type Service interface {
	Create(ctx context.Context, p *Product) (*Product, error)
	Get(ctx context.Context, id int64) (*Product, error)
	List(ctx context.Context, opts ListOptions) (*ListResult, error)
	Update(ctx context.Context, id int64, p UpdateParams) (*Product, error)
	Delete(ctx context.Context, id int64) error
}

type service struct {
	repo  Repository
	cache cache.Cache
	ttl   time.Duration
	group singleflight.Group
}

// NewService wraps repo with a read-through cache. A nil cache disables caching.
func NewService(repo Repository, c cache.Cache, ttl time.Duration) Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &service{repo: repo, cache: c, ttl: ttl}
}

func productKey(id int64) string {
	return fmt.Sprintf("product:%d", id)
}

func listKey(opts ListOptions) string {
	return fmt.Sprintf("%s%s:%d:%d", listKeyPrefix, strings.ToLower(opts.Category), opts.Limit, opts.Page)
}

func (s *service) Create(ctx context.Context, p *Product) (*Product, error) {
	normalize(p)
	if err := validate(p); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, 0)
	return created, nil
}

func (s *service) Get(ctx context.Context, id int64) (*Product, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "GetProduct"),
		zap.Int64("product_id", id),
	)

	key := productKey(id)

	var cached Product
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn("cache read failed", zap.Error(err))
	} else if found {
		return &cached, nil
	}

	// collapse concurrent misses for the same product into one query
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if err := s.cache.Set(ctx, key, p, s.ttl); err != nil {
			log.Warn("cache write failed", zap.Error(err))
		}
		return p, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Product), nil
}

func (s *service) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "ListProducts"),
	)

	/* ---------- INPUT NORMALIZATION ---------- */

	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.Limit <= 0 {
		opts.Limit = 20
	} else if opts.Limit > 100 {
		opts.Limit = 100
	}
	opts.Category = strings.TrimSpace(opts.Category)

	key := listKey(opts)

	var cached ListResult
	if found, err := s.cache.Get(ctx, key, &cached); err != nil {
		log.Warn("cache read failed", zap.Error(err))
	} else if found {
		return &cached, nil
	}

	/* ---------- FETCH DATA ---------- */

	start := time.Now()
	items, total, err := s.repo.List(ctx, opts)
	if err != nil {
		log.Error("failed to fetch product list", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return nil, err
	}

	result := &ListResult{Items: items, TotalCount: total, Page: opts.Page, Limit: opts.Limit}
	if err := s.cache.Set(ctx, key, result, s.ttl); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}

	log.Debug("product list fetched",
		zap.Int("count", len(items)),
		zap.Int64("total", total),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

func (s *service) Update(ctx context.Context, id int64, in UpdateParams) (*Product, error) {
	if in.empty() {
		return nil, ErrNothingToSave
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		current.Name = *in.Name
	}
	if in.Description != nil {
		current.Description = in.Description
	}
	if in.Category != nil {
		current.Category = *in.Category
	}
	if in.BasePrice != nil {
		current.BasePrice = *in.BasePrice
	}
	if in.ImageURL != nil {
		current.ImageURL = in.ImageURL
	}
	if in.Fabrics != nil {
		current.Fabrics = in.Fabrics
	}
	if in.Colors != nil {
		current.Colors = in.Colors
	}

	normalize(current)
	if err := validate(current); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, id)
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// invalidate drops the product entry (when id > 0) and every cached list page.
func (s *service) invalidate(ctx context.Context, id int64) {
	log := logger.FromCtx(ctx)
	if id > 0 {
		if err := s.cache.Delete(ctx, productKey(id)); err != nil {
			log.Warn("cache invalidation failed", zap.Int64("product_id", id), zap.Error(err))
		}
	}
	if err := s.cache.DeletePrefix(ctx, listKeyPrefix); err != nil {
		log.Warn("list cache invalidation failed", zap.Error(err))
	}
}

func normalize(p *Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	for i := range p.Fabrics {
		p.Fabrics[i].Name = strings.TrimSpace(p.Fabrics[i].Name)
	}
	for i := range p.Colors {
		p.Colors[i].Name = strings.TrimSpace(p.Colors[i].Name)
	}
}
