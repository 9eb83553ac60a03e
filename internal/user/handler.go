package user

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"tailor-be/internal/apperror"
	"tailor-be/internal/auth"
	"tailor-be/internal/transport"
	"tailor-be/internal/utils"
)

type Handler struct {
	svc     Service
	cookies auth.CookieWriter
}

func NewHandler(svc Service, cookies auth.CookieWriter) *Handler {
	return &Handler{svc: svc, cookies: cookies}
}

type userResponse struct {
	ID           int64           `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	Role         Role            `json:"role"`
	IsVerified   bool            `json:"isVerified"`
	AuthProvider AuthProvider    `json:"authProvider"`
	Address      *string         `json:"address,omitempty"`
	Phone        *string         `json:"phone,omitempty"`
	Preferences  json.RawMessage `json:"preferences,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func toResponse(u *User) userResponse {
	return userResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		IsVerified:   u.IsVerified,
		AuthProvider: u.AuthProvider,
		Address:      u.Address,
		Phone:        u.Phone,
		Preferences:  u.Preferences,
		CreatedAt:    u.CreatedAt,
	}
}

type signupRequest struct {
	Name     string  `json:"name" validate:"required,min=2,max=100"`
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8,max=72"`
	Phone    *string `json:"phone" validate:"omitempty,phone"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type emailRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type updateProfileRequest struct {
	Name        *string         `json:"name" validate:"omitempty,min=2,max=100"`
	Address     *string         `json:"address" validate:"omitempty,max=255"`
	Phone       *string         `json:"phone" validate:"omitempty,phone"`
	Preferences json.RawMessage `json:"preferences"`
}

// mapError translates domain errors into the HTTP taxonomy.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrUserNotFound):
		return apperror.New(http.StatusNotFound, apperror.CodeUserNotFound, "user not found", nil)
	case errors.Is(err, ErrEmailExists):
		return apperror.Conflict(apperror.CodeEmailExists, "email already registered")
	case errors.Is(err, ErrInvalidCredentials):
		return apperror.BadRequest(apperror.CodeInvalidCredentials, "invalid email or password")
	case errors.Is(err, ErrOAuthAccount):
		return apperror.BadRequest(apperror.CodeUseOAuthLogin, "this account uses Google sign-in")
	case errors.Is(err, ErrEmailNotVerified):
		return apperror.Forbidden(apperror.CodeEmailNotVerified, "please verify your email before logging in")
	case errors.Is(err, ErrAlreadyVerified):
		return apperror.BadRequest(apperror.CodeAlreadyVerified, "email already verified")
	case errors.Is(err, ErrAlreadyLoggedIn):
		return apperror.BadRequest(apperror.CodeAlreadyLoggedIn, "user already logged in on another session")
	case errors.Is(err, ErrVerificationNotFound):
		return apperror.BadRequest(apperror.CodeInvalidToken, "invalid or expired token")
	case errors.Is(err, ErrRefreshTokenMissing):
		return apperror.Unauthorized(apperror.CodeTokenMissing, "refresh token missing")
	case errors.Is(err, ErrRefreshTokenInvalid):
		return apperror.Forbidden(apperror.CodeTokenInvalid, "invalid refresh token")
	case errors.Is(err, ErrGoogleEmailUnverified):
		return apperror.BadRequest(apperror.CodeBadRequest, "google account email is not verified")
	}
	return err
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}

	u, err := h.svc.Signup(r.Context(), SignupInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}

	transport.WriteSuccess(w, http.StatusCreated, "signup successful, check your email to verify your account", toResponse(u))
}

func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyEmail(r.Context(), r.PathValue("token")); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "email verified", nil)
}

func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "verification email sent", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}

	h.writeSession(w, sess, "login successful")
}

func (h *Handler) writeSession(w http.ResponseWriter, sess *Session, msg string) {
	h.cookies.SetAccess(w, sess.AccessToken)
	h.cookies.SetRefresh(w, sess.RefreshToken)

	transport.WriteSuccess(w, http.StatusOK, msg, map[string]interface{}{
		"user":         toResponse(sess.User),
		"accessToken":  sess.AccessToken,
		"refreshToken": sess.RefreshToken,
	})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractRefreshToken(r)
	if token == "" && r.ContentLength > 0 {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			token = req.RefreshToken
		}
	}

	access, u, err := h.svc.Refresh(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrRefreshTokenInvalid) {
			h.cookies.Clear(w)
		}
		transport.WriteError(w, r, mapError(err))
		return
	}

	h.cookies.SetAccess(w, access)
	transport.WriteSuccess(w, http.StatusOK, "token refreshed", map[string]interface{}{
		"user":        toResponse(u),
		"accessToken": access,
	})
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	err := h.svc.Logout(r.Context(), auth.ExtractRefreshToken(r), auth.ExtractAccessToken(r))
	h.cookies.Clear(w)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "logged out", nil)
}

func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}

	if err := h.svc.ForgotPassword(r.Context(), req.Email); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "if the account exists, a reset link has been sent", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}

	if err := h.svc.ResetPassword(r.Context(), r.PathValue("token"), req.Password); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	h.cookies.Clear(w)
	transport.WriteSuccess(w, http.StatusOK, "password updated, please log in again", nil)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	u, err := h.svc.GetProfile(r.Context(), userID)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "profile fetched", toResponse(u))
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	var req updateProfileRequest
	if err := transport.DecodeJSON(r, &req); err != nil {
		transport.WriteError(w, r, err)
		return
	}
	if len(req.Preferences) > 0 && !bytes.HasPrefix(bytes.TrimSpace(req.Preferences), []byte("{")) {
		transport.WriteError(w, r, apperror.Validation(map[string]string{"preferences": "preferences must be a JSON object"}))
		return
	}

	u, err := h.svc.UpdateProfile(r.Context(), userID, UpdateProfileParams{
		Name:        req.Name,
		Address:     req.Address,
		Phone:       req.Phone,
		Preferences: req.Preferences,
	})
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	transport.WriteSuccess(w, http.StatusOK, "profile updated", toResponse(u))
}

func (h *Handler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		transport.WriteError(w, r, apperror.Unauthorized(apperror.CodeUnauthorized, "unauthorized"))
		return
	}

	if err := h.svc.DeleteAccount(r.Context(), userID); err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}
	h.cookies.Clear(w)
	transport.WriteSuccess(w, http.StatusOK, "account deleted", nil)
}
