package product

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, p *Product) (*Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) GetByID(ctx context.Context, id int64) (*Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) List(ctx context.Context, opts ListOptions) ([]*Product, int64, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]*Product), args.Get(1).(int64), args.Error(2)
}

func (m *MockRepository) Update(ctx context.Context, p *Product) (*Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Product), args.Error(1)
}

func (m *MockRepository) Delete(ctx context.Context, id int64) error {
	return m.Called(ctx, id).Error(0)
}

// memCache is an in-process stand-in for the Redis cache.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string, dst interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (c *memCache) Set(_ context.Context, key string, v interface{}, _ time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = raw
	return nil
}

func (c *memCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func TestService_Get_ReadThrough(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	c := newMemCache()
	svc := NewService(repo, c, time.Minute)

	stored := agbada()
	stored.ID = 1
	repo.On("GetByID", ctx, int64(1)).Return(stored, nil).Once()

	first, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	second, err := svc.Get(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, first.Name, second.Name)
	assert.True(t, second.BasePrice.Equal(d("90000")))
	repo.AssertNumberOfCalls(t, "GetByID", 1)
}

func TestService_List_NormalizesAndCaches(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	c := newMemCache()
	svc := NewService(repo, c, time.Minute)

	repo.On("List", ctx, ListOptions{Category: "Traditional", Limit: 100, Page: 1}).
		Return([]*Product{agbada()}, int64(1), nil).Once()

	res, err := svc.List(ctx, ListOptions{Category: " Traditional ", Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.TotalCount)

	_, err = svc.List(ctx, ListOptions{Category: "Traditional", Limit: 500})
	require.NoError(t, err)
	repo.AssertNumberOfCalls(t, "List", 1)
}

func TestService_Create_RejectsInvalid(t *testing.T) {
	repo := new(MockRepository)
	svc := NewService(repo, nil, time.Minute)

	p := agbada()
	p.Fabrics = nil

	_, err := svc.Create(context.Background(), p)
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestService_Update_InvalidatesCache(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepository)
	c := newMemCache()
	svc := NewService(repo, c, time.Minute)

	require.NoError(t, c.Set(ctx, productKey(1), agbada(), time.Minute))
	require.NoError(t, c.Set(ctx, listKeyPrefix+":20:1", ListResult{}, time.Minute))

	current := agbada()
	current.ID = 1
	repo.On("GetByID", ctx, int64(1)).Return(current, nil)
	repo.On("Update", ctx, mock.MatchedBy(func(p *Product) bool {
		return p.BasePrice.Equal(d("95000")) && p.Name == "Agbada"
	})).Return(current, nil)

	price := d("95000")
	_, err := svc.Update(ctx, 1, UpdateParams{BasePrice: &price})
	require.NoError(t, err)

	assert.Empty(t, c.entries)
	repo.AssertExpectations(t)
}

func TestService_Update_Empty(t *testing.T) {
	svc := NewService(new(MockRepository), nil, time.Minute)
	_, err := svc.Update(context.Background(), 1, UpdateParams{})
	assert.ErrorIs(t, err, ErrNothingToSave)
}

func TestHandler_Create_JSON(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(NewService(repo, nil, time.Minute))

	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Product) bool {
		return len(p.Fabrics) == 1 && p.Fabrics[0].Available && !p.Colors[0].Available
	})).Return(&Product{ID: 1, Name: "Agbada"}, nil)

	body := `{"name":"Agbada","category":"Traditional","basePrice":90000,
		"fabrics":[{"name":"Linen","price":8000}],
		"colors":[{"name":"Gold","extraPrice":3000,"available":false}]}`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body)))

	assert.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestHandler_Create_Multipart(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(NewService(repo, nil, time.Minute))

	repo.On("Create", mock.Anything, mock.MatchedBy(func(p *Product) bool {
		return p.ImageURL != nil && *p.ImageURL == "https://cdn.example.com/agbada.jpg"
	})).Return(&Product{ID: 2, Name: "Agbada"}, nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("data",
		`{"name":"Agbada","category":"Traditional","basePrice":"90000","fabrics":[{"name":"Linen","price":"8000"}]}`))
	require.NoError(t, mw.WriteField("imageUrl", "https://cdn.example.com/agbada.jpg"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/products", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Create(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	repo.AssertExpectations(t)
}

func TestHandler_Create_MissingFabrics(t *testing.T) {
	h := NewHandler(NewService(new(MockRepository), nil, time.Minute))

	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/api/products",
		strings.NewReader(`{"name":"Agbada","category":"Traditional","basePrice":1,"fabrics":[]}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Get_NotFound(t *testing.T) {
	repo := new(MockRepository)
	h := NewHandler(NewService(repo, nil, time.Minute))
	repo.On("GetByID", mock.Anything, int64(4)).Return(nil, ErrNotFound)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{id}", h.Get)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products/4", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
