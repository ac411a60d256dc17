package controlplane

import (
	"net/http"
	"strings"

	botticelliauth "github.com/crumplecup/botticelli/internal/auth"
)

// authorize validates the request's bearer JWT for a mutating route. It
// writes a 401 and returns ok=false itself on failure, so callers can just
// `if !h.authorize(w, r) { return }`. A Handler with no Auth service
// configured (dev mode) authorizes everything.
func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) bool {
	if h.cfg.Auth == nil {
		return true
	}

	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		h.jsonError(w, "missing bearer token", http.StatusUnauthorized)
		return false
	}

	if _, err := h.cfg.Auth.Validate(token); err != nil {
		if err == botticelliauth.ErrAuthDisabled {
			return true
		}
		h.jsonError(w, "invalid or expired token", http.StatusUnauthorized)
		return false
	}

	return true
}
