package user

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"tailor-be/internal/apperror"
	"tailor-be/internal/logger"
	"tailor-be/internal/transport"
	"tailor-be/internal/utils"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	oauthStateCookie = "oauthState"
	oauthStateTTL    = 10 * time.Minute

	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// GoogleEndpoint mirrors golang.org/x/oauth2/google.Endpoint.
var GoogleEndpoint = oauth2.Endpoint{
	AuthURL:   "https://accounts.google.com/o/oauth2/auth",
	TokenURL:  "https://oauth2.googleapis.com/token",
	AuthStyle: oauth2.AuthStyleInParams,
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// StateSecret signs the state cookie.
	StateSecret string
}

type GoogleHandler struct {
	oauth       *oauth2.Config
	stateSecret []byte
	userInfoURL string
	sessions    *Handler
}

func NewGoogleHandler(cfg GoogleConfig, sessions *Handler) *GoogleHandler {
	return &GoogleHandler{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     GoogleEndpoint,
		},
		stateSecret: []byte(cfg.StateSecret),
		userInfoURL: GoogleUserInfoURL,
		sessions:    sessions,
	}
}

func (g *GoogleHandler) Enabled() bool {
	return g.oauth.ClientID != "" && g.oauth.ClientSecret != ""
}

type stateClaims struct {
	Nonce string `json:"nonce"`
	jwt.RegisteredClaims
}

// Start redirects to the Google consent screen.
func (g *GoogleHandler) Start(w http.ResponseWriter, r *http.Request) {
	if !g.Enabled() {
		transport.WriteError(w, r, apperror.NotFound("google sign-in is not configured"))
		return
	}

	nonce, err := utils.GenerateToken(16)
	if err != nil {
		transport.WriteError(w, r, apperror.Internal("failed to start google sign-in", err))
		return
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, stateClaims{
		Nonce: nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(oauthStateTTL)),
		},
	}).SignedString(g.stateSecret)
	if err != nil {
		transport.WriteError(w, r, apperror.Internal("failed to start google sign-in", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    signed,
		Path:     "/api/auth/google",
		HttpOnly: true,
		Secure:   g.sessions.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthStateTTL.Seconds()),
	})

	http.Redirect(w, r, g.oauth.AuthCodeURL(nonce, oauth2.AccessTypeOnline), http.StatusFound)
}

func (g *GoogleHandler) checkState(r *http.Request) error {
	cookie, err := r.Cookie(oauthStateCookie)
	if err != nil {
		return errors.New("missing state cookie")
	}

	var claims stateClaims
	_, err = jwt.ParseWithClaims(cookie.Value, &claims, func(t *jwt.Token) (interface{}, error) {
		return g.stateSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return fmt.Errorf("state cookie: %w", err)
	}

	if claims.Nonce == "" || claims.Nonce != r.URL.Query().Get("state") {
		return errors.New("state mismatch")
	}
	return nil
}

// Callback completes the code exchange and starts a session for the Google account.
func (g *GoogleHandler) Callback(w http.ResponseWriter, r *http.Request) {
	log := logger.FromCtx(r.Context()).With(
		zap.String("layer", "handler"),
		zap.String("method", "GoogleCallback"),
	)

	if !g.Enabled() {
		transport.WriteError(w, r, apperror.NotFound("google sign-in is not configured"))
		return
	}

	if err := g.checkState(r); err != nil {
		log.Warn("oauth state rejected", zap.Error(err))
		transport.WriteError(w, r, apperror.BadRequest(apperror.CodeInvalidToken, "invalid oauth state"))
		return
	}
	http.SetCookie(w, &http.Cookie{Name: oauthStateCookie, Value: "", Path: "/api/auth/google", MaxAge: -1})

	code := r.URL.Query().Get("code")
	if code == "" {
		transport.WriteError(w, r, apperror.BadRequest(apperror.CodeBadRequest, "missing authorization code"))
		return
	}

	tok, err := g.oauth.Exchange(r.Context(), code)
	if err != nil {
		log.Error("code exchange failed", zap.Error(err))
		transport.WriteError(w, r, apperror.New(http.StatusBadGateway, apperror.CodeInternal, "google sign-in failed", err))
		return
	}

	profile, err := g.fetchProfile(r, tok)
	if err != nil {
		log.Error("failed to fetch google profile", zap.Error(err))
		transport.WriteError(w, r, apperror.New(http.StatusBadGateway, apperror.CodeInternal, "google sign-in failed", err))
		return
	}

	sess, err := g.sessions.svc.LoginWithGoogle(r.Context(), *profile)
	if err != nil {
		transport.WriteError(w, r, mapError(err))
		return
	}

	g.sessions.writeSession(w, sess, "google sign-in successful")
}

func (g *GoogleHandler) fetchProfile(r *http.Request, tok *oauth2.Token) (*GoogleProfile, error) {
	resp, err := g.oauth.Client(r.Context(), tok).Get(g.userInfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var p GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &p, nil
}
