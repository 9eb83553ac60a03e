package auth

import (
	"net/http"
	"strings"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

func ExtractAccessToken(r *http.Request) string {
	// cookie first, Bearer header for OAuth-derived sessions
	if cookie, err := r.Cookie(AccessCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}

	return ""
}

func ExtractRefreshToken(r *http.Request) string {
	if cookie, err := r.Cookie(RefreshCookie); err == nil {
		return cookie.Value
	}
	return ""
}

// CookieWriter sets and clears the session cookies.
type CookieWriter struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func (c CookieWriter) SetAccess(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(AccessCookie, token, c.AccessTTL))
}

func (c CookieWriter) SetRefresh(w http.ResponseWriter, token string) {
	http.SetCookie(w, c.cookie(RefreshCookie, token, c.RefreshTTL))
}

func (c CookieWriter) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		ck := c.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		http.SetCookie(w, ck)
	}
}

func (c CookieWriter) cookie(name, value string, ttl time.Duration) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if c.Secure {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: sameSite,
		MaxAge:   int(ttl.Seconds()),
	}
}
