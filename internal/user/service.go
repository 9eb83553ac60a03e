package user

import (
	"context"
	"errors"
	"strings"
	"time"

	"tailor-be/internal/auth"
	"tailor-be/internal/config"
	"tailor-be/internal/logger"
	"tailor-be/internal/notify"
	"tailor-be/internal/utils"

	"go.uber.org/zap"
)

type SignupInput struct {
	Name     string
	Email    string
	Password string
	Phone    *string
}

// GoogleProfile is the subset of the Google userinfo document we rely on.
type GoogleProfile struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

type Service interface {
	Signup(ctx context.Context, in SignupInput) (*User, error)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	Login(ctx context.Context, email, password string) (*Session, error)
	LoginWithGoogle(ctx context.Context, profile GoogleProfile) (*Session, error)
	Refresh(ctx context.Context, refreshToken string) (string, *User, error)
	Logout(ctx context.Context, refreshToken, accessToken string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetProfile(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, id int64, p UpdateProfileParams) (*User, error)
	DeleteAccount(ctx context.Context, id int64) error
	LookupIdentity(ctx context.Context, id int64) (utils.Identity, error)
}

type Options struct {
	SessionPolicy   string
	ClientURL       string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type service struct {
	repo      Repository
	verifs    VerificationRepository
	issuer    *auth.Issuer
	publisher notify.Publisher
	opts      Options
	now       func() time.Time
}

func NewService(repo Repository, verifs VerificationRepository, issuer *auth.Issuer, publisher notify.Publisher, opts Options) Service {
	if opts.VerificationTTL == 0 {
		opts.VerificationTTL = 24 * time.Hour
	}
	if opts.ResetTTL == 0 {
		opts.ResetTTL = time.Hour
	}
	if opts.SessionPolicy == "" {
		opts.SessionPolicy = config.SessionPolicySingle
	}
	return &service{
		repo:      repo,
		verifs:    verifs,
		issuer:    issuer,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *service) Signup(ctx context.Context, in SignupInput) (*User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Signup"),
	)

	hashed, err := HashPassword(in.Password)
	if err != nil {
		log.Error("failed to hash password", zap.Error(err))
		return nil, err
	}

	u, err := s.repo.Create(ctx, &User{
		Name:         strings.TrimSpace(in.Name),
		Email:        normalizeEmail(in.Email),
		PasswordHash: &hashed,
		Role:         RoleUser,
		AuthProvider: ProviderLocal,
		Phone:        in.Phone,
	})
	if err != nil {
		return nil, err
	}

	if err := s.issueVerification(ctx, u, VerificationEmail); err != nil {
		log.Error("failed to issue verification token", zap.Int64("user_id", u.ID), zap.Error(err))
		return nil, err
	}

	log.Info("signup completed", zap.Int64("user_id", u.ID))
	return u, nil
}

// issueVerification stores a fresh token (dropping older ones of the same type) and queues the email.
func (s *service) issueVerification(ctx context.Context, u *User, typ VerificationType) error {
	token, err := utils.GenerateToken(32)
	if err != nil {
		return err
	}

	ttl, kind, path := s.opts.VerificationTTL, notify.KindVerificationEmail, "/verify-email/"
	if typ == VerificationPasswordReset {
		ttl, kind, path = s.opts.ResetTTL, notify.KindPasswordResetEmail, "/reset-password/"
	}

	v := &Verification{
		Email:     u.Email,
		Token:     token,
		Type:      typ,
		ExpiresAt: s.now().Add(ttl),
	}
	if err := s.verifs.Replace(ctx, v); err != nil {
		return err
	}

	// delivery is best effort; the user can ask for a resend
	_ = s.publisher.Publish(ctx, notify.Message{
		Kind: kind,
		To:   u.Email,
		Name: u.Name,
		Link: strings.TrimRight(s.opts.ClientURL, "/") + path + token,
	})
	return nil
}

func (s *service) VerifyEmail(ctx context.Context, token string) error {
	v, err := s.verifs.FindValid(ctx, token, VerificationEmail)
	if err != nil {
		return err
	}

	if err := s.repo.MarkVerified(ctx, v.Email); err != nil {
		return err
	}

	if err := s.verifs.Delete(ctx, v.ID); err != nil {
		logger.FromCtx(ctx).Warn("failed to delete consumed verification token", zap.Int64("id", v.ID), zap.Error(err))
	}
	return nil
}

func (s *service) ResendVerification(ctx context.Context, email string) error {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if u.IsVerified {
		return ErrAlreadyVerified
	}
	return s.issueVerification(ctx, u, VerificationEmail)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Login"),
	)

	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			log.Info("login for unknown email")
		}
		return nil, err
	}

	if !u.HasPassword() {
		return nil, ErrOAuthAccount
	}

	if !CheckPasswordHash(password, *u.PasswordHash) {
		log.Info("password not match", zap.Int64("user_id", u.ID))
		return nil, ErrInvalidCredentials
	}

	if !u.IsVerified {
		return nil, ErrEmailNotVerified
	}

	return s.startSession(ctx, u)
}

// startSession applies the session policy, then issues and stores a new token pair.
func (s *service) startSession(ctx context.Context, u *User) (*Session, error) {
	if u.RefreshToken != nil && s.opts.SessionPolicy == config.SessionPolicySingle {
		// a stale stored token must not lock the account out
		if _, err := s.issuer.ParseRefreshToken(*u.RefreshToken); err == nil {
			return nil, ErrAlreadyLoggedIn
		}
	}

	subject := auth.Subject{ID: u.ID, Email: u.Email, Role: string(u.Role)}

	access, err := s.issuer.GenerateAccessToken(subject)
	if err != nil {
		return nil, err
	}
	refresh, err := s.issuer.GenerateRefreshToken(subject)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SetRefreshToken(ctx, u.ID, &refresh); err != nil {
		return nil, err
	}
	u.RefreshToken = &refresh

	logger.FromCtx(ctx).Info("session started", zap.Int64("user_id", u.ID))
	return &Session{AccessToken: access, RefreshToken: refresh, User: u}, nil
}

func (s *service) LoginWithGoogle(ctx context.Context, p GoogleProfile) (*Session, error) {
	if p.Email == "" || !p.EmailVerified {
		return nil, ErrGoogleEmailUnverified
	}

	u, err := s.repo.FindByGoogleID(ctx, p.ID)
	if errors.Is(err, ErrUserNotFound) {
		u, err = s.repo.FindByEmail(ctx, normalizeEmail(p.Email))
		switch {
		case err == nil:
			if err := s.repo.LinkGoogle(ctx, u.ID, p.ID); err != nil {
				return nil, err
			}
			u.GoogleID = &p.ID
			u.IsVerified = true
		case errors.Is(err, ErrUserNotFound):
			googleID := p.ID
			u, err = s.repo.Create(ctx, &User{
				Name:         p.Name,
				Email:        normalizeEmail(p.Email),
				Role:         RoleUser,
				IsVerified:   true,
				AuthProvider: ProviderGoogle,
				GoogleID:     &googleID,
			})
			if err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	return s.startSession(ctx, u)
}

// Refresh exchanges the stored refresh token for a new access token. Any mismatch
// clears the stored token, forcing a fresh login.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, *User, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Refresh"),
	)

	if refreshToken == "" {
		return "", nil, ErrRefreshTokenMissing
	}

	u, err := s.repo.FindByRefreshToken(ctx, refreshToken)
	if errors.Is(err, ErrUserNotFound) {
		log.Info("refresh token not on record")
		return "", nil, ErrRefreshTokenInvalid
	}
	if err != nil {
		return "", nil, err
	}

	claims, err := s.issuer.ParseRefreshToken(refreshToken)
	if err != nil || claims.UserID != u.ID {
		log.Warn("refresh token rejected, clearing session", zap.Int64("user_id", u.ID), zap.Error(err))
		if clearErr := s.repo.SetRefreshToken(ctx, u.ID, nil); clearErr != nil {
			log.Error("failed to clear refresh token", zap.Error(clearErr))
		}
		return "", nil, ErrRefreshTokenInvalid
	}

	access, err := s.issuer.GenerateAccessToken(auth.Subject{ID: u.ID, Email: u.Email, Role: string(u.Role)})
	if err != nil {
		return "", nil, err
	}
	return access, u, nil
}

// Logout clears the stored refresh token of whichever user the presented tokens identify.
func (s *service) Logout(ctx context.Context, refreshToken, accessToken string) error {
	var userID int64

	if refreshToken != "" {
		if u, err := s.repo.FindByRefreshToken(ctx, refreshToken); err == nil {
			userID = u.ID
		}
	}
	if userID == 0 && accessToken != "" {
		if claims, err := s.issuer.ParseAccessToken(accessToken); err == nil {
			userID = claims.UserID
		}
	}
	if userID == 0 {
		return nil
	}

	err := s.repo.SetRefreshToken(ctx, userID, nil)
	if errors.Is(err, ErrUserNotFound) {
		return nil
	}
	return err
}

func (s *service) ForgotPassword(ctx context.Context, email string) error {
	u, err := s.repo.FindByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, ErrUserNotFound) {
		// no account enumeration
		return nil
	}
	if err != nil {
		return err
	}
	if !u.HasPassword() {
		logger.FromCtx(ctx).Info("password reset requested for oauth account", zap.Int64("user_id", u.ID))
		return nil
	}
	return s.issueVerification(ctx, u, VerificationPasswordReset)
}

func (s *service) ResetPassword(ctx context.Context, token, newPassword string) error {
	v, err := s.verifs.FindValid(ctx, token, VerificationPasswordReset)
	if err != nil {
		return err
	}

	u, err := s.repo.FindByEmail(ctx, v.Email)
	if err != nil {
		return err
	}

	hashed, err := HashPassword(newPassword)
	if err != nil {
		return err
	}

	if err := s.repo.UpdatePassword(ctx, u.ID, hashed); err != nil {
		return err
	}

	if err := s.verifs.Delete(ctx, v.ID); err != nil {
		logger.FromCtx(ctx).Warn("failed to delete consumed reset token", zap.Int64("id", v.ID), zap.Error(err))
	}
	return nil
}

func (s *service) GetProfile(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) UpdateProfile(ctx context.Context, id int64, p UpdateProfileParams) (*User, error) {
	return s.repo.UpdateProfile(ctx, id, p)
}

func (s *service) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.FromCtx(ctx).Info("account deleted", zap.Int64("user_id", id))
	return nil
}

// LookupIdentity re-reads the user so role changes apply without waiting for token expiry.
func (s *service) LookupIdentity(ctx context.Context, id int64) (utils.Identity, error) {
	u, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return utils.Identity{}, err
	}
	return utils.Identity{ID: u.ID, Email: u.Email, Role: string(u.Role), Username: u.Name}, nil
}
