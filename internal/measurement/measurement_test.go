package measurement

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tailor-be/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var measurementRowColumns = []string{
	"id", "user_id", "label", "unit", "chest", "waist", "hips", "shoulder",
	"sleeve", "length", "inseam", "neck", "notes", "created_at", "updated_at",
}

func measurementRow(id, userID int64) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(measurementRowColumns).
		AddRow(id, userID, "Wedding", "cm", "102.5", nil, nil, nil, nil, nil, nil, nil, nil, now, now)
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestValues_Invalid(t *testing.T) {
	assert.Nil(t, Values{Chest: dec("100"), Neck: dec("38.5")}.Invalid())

	fields := Values{Chest: dec("0"), Waist: dec("-2"), Hips: dec("90")}.Invalid()
	assert.Len(t, fields, 2)
	assert.Contains(t, fields, "chest")
	assert.Contains(t, fields, "waist")
}

func TestRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(`INSERT INTO measurements`).
		WithArgs(int64(3), "Wedding", UnitCM, dec("102.5"), nil, nil, nil, nil, nil, nil, nil, nil).
		WillReturnRows(measurementRow(1, 3))

	m, err := repo.Create(context.Background(), &Measurement{UserID: 3, Label: "Wedding", Unit: UnitCM, Chest: dec("102.5")})
	require.NoError(t, err)
	require.NotNil(t, m.Chest)
	assert.True(t, m.Chest.Equal(decimal.RequireFromString("102.5")))
	assert.Nil(t, m.Waist)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetByID_ScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectQuery(`SELECT .* FROM measurements WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(1), int64(99)).
		WillReturnError(sql.ErrNoRows)

	_, err = repo.GetByID(context.Background(), 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT .* FROM measurements WHERE user_id = \$1 ORDER BY created_at DESC`).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(measurementRowColumns).
			AddRow(2, 3, "Casual", "in", nil, "32", nil, nil, nil, nil, nil, nil, nil, now, now).
			AddRow(1, 3, "Wedding", "cm", "102.5", nil, nil, nil, nil, nil, nil, nil, nil, now, now))

	list, err := repo.ListByUser(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, UnitInch, list[0].Unit)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)

	mock.ExpectExec(`DELETE FROM measurements WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(5), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.ErrorIs(t, repo.Delete(context.Background(), 3, 5), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

type fakeRepo struct {
	created *Measurement
	getErr  error
}

func (f *fakeRepo) Create(_ context.Context, m *Measurement) (*Measurement, error) {
	m.ID = 1
	f.created = m
	return m, nil
}

func (f *fakeRepo) ListByUser(context.Context, int64) ([]*Measurement, error) {
	return []*Measurement{}, nil
}

func (f *fakeRepo) GetByID(_ context.Context, userID, id int64) (*Measurement, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &Measurement{ID: id, UserID: userID}, nil
}

func (f *fakeRepo) Update(_ context.Context, userID, id int64, _ UpdateParams) (*Measurement, error) {
	return &Measurement{ID: id, UserID: userID}, nil
}

func (f *fakeRepo) Delete(context.Context, int64, int64) error { return nil }

func authed(r *http.Request) *http.Request {
	return r.WithContext(utils.SetIdentity(r.Context(), utils.Identity{ID: 3}))
}

func TestHandler_Create(t *testing.T) {
	repo := &fakeRepo{}
	h := NewHandler(NewService(repo))

	t.Run("DefaultsUnit", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/api/users/addMeasurement",
			strings.NewReader(`{"label":"Wedding","chest":"102.5","waist":88}`)))
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, UnitCM, repo.created.Unit)
		assert.Equal(t, int64(3), repo.created.UserID)
		assert.True(t, repo.created.Waist.Equal(decimal.NewFromInt(88)))
	})

	t.Run("RejectsNonPositive", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/api/users/addMeasurement",
			strings.NewReader(`{"label":"Wedding","chest":0}`)))
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body struct {
			Errors map[string]string `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Contains(t, body.Errors, "chest")
	})

	t.Run("RejectsUnknownUnit", func(t *testing.T) {
		req := authed(httptest.NewRequest(http.MethodPost, "/api/users/addMeasurement",
			strings.NewReader(`{"label":"Wedding","unit":"ft"}`)))
		rec := httptest.NewRecorder()
		h.Create(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Get_OtherUsersMeasurement(t *testing.T) {
	h := NewHandler(NewService(&fakeRepo{getErr: ErrNotFound}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/getMeasurement/{id}", h.Get)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/api/users/getMeasurement/7", nil)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
