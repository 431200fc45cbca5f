package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/tenantapi/backend/internal/infrastructure/config"
)

// CookieSettings controls the refresh token cookie
type CookieSettings struct {
	Name     string
	Domain   string
	Path     string
	Secure   bool
	SameSite http.SameSite
	MaxAge   time.Duration
}

// NewCookieSettings derives cookie settings from configuration.
// Production always gets Secure cookies.
func NewCookieSettings(cfg *config.Config) CookieSettings {
	return CookieSettings{
		Name:     cfg.Refresh.CookieName,
		Domain:   cfg.Cookie.Domain,
		Path:     cfg.Cookie.Path,
		Secure:   cfg.Cookie.Secure || cfg.IsProduction(),
		SameSite: parseSameSite(cfg.Cookie.SameSite),
		MaxAge:   cfg.Refresh.Expiration,
	}
}

func parseSameSite(s string) http.SameSite {
	switch strings.ToLower(s) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

// set writes the refresh token cookie
func (s CookieSettings) set(w http.ResponseWriter, value string) {
	http.SetCookie(w, s.cookie(value, int(s.MaxAge.Seconds())))
}

// clear expires the cookie with the same attributes it was set with
func (s CookieSettings) clear(w http.ResponseWriter) {
	http.SetCookie(w, s.cookie("", -1))
}

func (s CookieSettings) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     s.Name,
		Value:    value,
		Path:     s.Path,
		Domain:   s.Domain,
		MaxAge:   maxAge,
		Secure:   s.Secure,
		HttpOnly: true,
		SameSite: s.SameSite,
	}
}
