package user

import (
	"context"
	"database/sql"
	"errors"

	"tailor-be/internal/logger"

	"go.uber.org/zap"
)

type VerificationRepository interface {
	// Replace stores v and removes any older token for the same email and type.
	Replace(ctx context.Context, v *Verification) error
	FindValid(ctx context.Context, token string, typ VerificationType) (*Verification, error)
	Delete(ctx context.Context, id int64) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type verificationRepository struct {
	db *sql.DB
}

func NewVerificationRepository(db *sql.DB) VerificationRepository {
	return &verificationRepository{db: db}
}

func (r *verificationRepository) Replace(ctx context.Context, v *Verification) error {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "repository"),
		zap.String("method", "ReplaceVerification"),
		zap.String("type", string(v.Type)),
	)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM user_verifications WHERE email = $1 AND type = $2`,
		v.Email, v.Type,
	); err != nil {
		log.Error("failed to clear previous tokens", zap.Error(err))
		return err
	}

	if err := tx.QueryRowContext(ctx, `
		INSERT INTO user_verifications (email, token, type, expires_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		v.Email, v.Token, v.Type, v.ExpiresAt,
	).Scan(&v.ID, &v.CreatedAt); err != nil {
		log.Error("failed to insert verification token", zap.Error(err))
		return err
	}

	return tx.Commit()
}

func (r *verificationRepository) FindValid(ctx context.Context, token string, typ VerificationType) (*Verification, error) {
	var v Verification
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, token, type, expires_at, created_at
		FROM user_verifications
		WHERE token = $1 AND type = $2 AND expires_at > NOW()`,
		token, typ,
	).Scan(&v.ID, &v.Email, &v.Token, &v.Type, &v.ExpiresAt, &v.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrVerificationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *verificationRepository) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM user_verifications WHERE id = $1`, id)
	return err
}

func (r *verificationRepository) DeleteExpired(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM user_verifications WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
