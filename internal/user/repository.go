package user

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"tailor-be/internal/db"
	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

type Repository interface {
	Create(ctx context.Context, u *User) (*User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByRefreshToken(ctx context.Context, token string) (*User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*User, error)
	SetRefreshToken(ctx context.Context, id int64, token *string) error
	MarkVerified(ctx context.Context, email string) error
	UpdatePassword(ctx context.Context, id int64, hash string) error
	LinkGoogle(ctx context.Context, id int64, googleID string) error
	UpdateProfile(ctx context.Context, id int64, p UpdateProfileParams) (*User, error)
	Delete(ctx context.Context, id int64) error
}

const userColumns = `id, name, email, password_hash, role, is_verified, refresh_token,
	auth_provider, google_id, address, phone, preferences, created_at, updated_at`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &repository{db: db}
}

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsVerified, &u.RefreshToken,
		&u.AuthProvider, &u.GoogleID, &u.Address, &u.Phone, &u.Preferences, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *repository) Create(ctx context.Context, u *User) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "Create"),
		zap.String("email", u.Email),
	)

	prefs := u.Preferences
	if len(prefs) == 0 {
		prefs = json.RawMessage("{}")
	}

	row := r.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, is_verified, auth_provider, google_id, phone, preferences)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+userColumns,
		u.Name, u.Email, u.PasswordHash, u.Role, u.IsVerified, u.AuthProvider, u.GoogleID, u.Phone, string(prefs),
	)

	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err, "users_email_key") {
			log.Info("email already registered")
			return nil, ErrEmailExists
		}
		log.Error("db: failed to insert user", zap.Error(err))
		return nil, err
	}

	log.Info("user created", zap.Int64("user_id", created.ID))
	return created, nil
}

func (r *repository) FindByID(ctx context.Context, id int64) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	return scanUser(row)
}

func (r *repository) FindByRefreshToken(ctx context.Context, token string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE refresh_token = $1`, token)
	return scanUser(row)
}

func (r *repository) FindByGoogleID(ctx context.Context, googleID string) (*User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE google_id = $1`, googleID)
	return scanUser(row)
}

// SetRefreshToken overwrites the single session slot; nil clears it.
func (r *repository) SetRefreshToken(ctx context.Context, id int64, token *string) error {
	return r.execOne(ctx, `UPDATE users SET refresh_token = $1, updated_at = NOW() WHERE id = $2`, token, id)
}

func (r *repository) MarkVerified(ctx context.Context, email string) error {
	return r.execOne(ctx, `UPDATE users SET is_verified = TRUE, updated_at = NOW() WHERE email = $1`, email)
}

// UpdatePassword also drops the stored refresh token so every session must log in again.
func (r *repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	return r.execOne(ctx,
		`UPDATE users SET password_hash = $1, refresh_token = NULL, updated_at = NOW() WHERE id = $2`,
		hash, id,
	)
}

func (r *repository) LinkGoogle(ctx context.Context, id int64, googleID string) error {
	return r.execOne(ctx,
		`UPDATE users SET google_id = $1, is_verified = TRUE, updated_at = NOW() WHERE id = $2`,
		googleID, id,
	)
}

func (r *repository) UpdateProfile(ctx context.Context, id int64, p UpdateProfileParams) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "UpdateProfile"),
		zap.Int64("user_id", id),
	)

	var prefs interface{}
	if len(p.Preferences) > 0 {
		prefs = string(p.Preferences)
	}

	// COALESCE keeps existing values when a field is not provided
	row := r.db.QueryRowContext(ctx, `
		UPDATE users
		SET name = COALESCE($2, name),
			address = COALESCE($3, address),
			phone = COALESCE($4, phone),
			preferences = COALESCE($5::jsonb, preferences),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns,
		id, p.Name, p.Address, p.Phone, prefs,
	)

	u, err := scanUser(row)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Error("failed to update profile", zap.Error(err))
		}
		return nil, err
	}

	log.Info("profile updated successfully")
	return u, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, `DELETE FROM users WHERE id = $1`, id)
}

func (r *repository) execOne(ctx context.Context, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
