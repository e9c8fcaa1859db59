package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	// SessionCookieName is the cookie carrying the session token.
	SessionCookieName = "token"
	// sessionCookieMaxAge bounds client-side retention, not token validity.
	sessionCookieMaxAge = 365 * 24 * time.Hour
)

// CookieManager sets and clears the HTTP-only session cookie.
type CookieManager struct{}

// NewCookieManager creates a new CookieManager.
func NewCookieManager() *CookieManager {
	return &CookieManager{}
}

// Set attaches the session token as an HTTP-only cookie on the response.
func (m *CookieManager) Set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   int(sessionCookieMaxAge.Seconds()),
	})
}

// Clear removes the session cookie from the client.
func (m *CookieManager) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
