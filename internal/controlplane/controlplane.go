// Package controlplane exposes the actor operations (list, inspect, pause,
// resume, trigger, execution history) as a JSON HTTP API. It is
// deliberately thin: every operation is a direct call into an
// actor.Registry/actor.Actor; the package owns only request parsing, auth,
// and response shaping.
package controlplane

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/crumplecup/botticelli/internal/actor"
	"github.com/crumplecup/botticelli/internal/auth"
)

// maxRequestBodyBytes bounds the body of any mutating request (none of
// this API's mutations currently take a body, but a future one might).
const maxRequestBodyBytes int64 = 1 << 20

// maxQueryParamLen bounds individual query parameter length against
// unbounded user-controlled query strings.
const maxQueryParamLen = 512

// Config configures a Handler.
type Config struct {
	// Registry resolves actor names to running actors. Required.
	Registry *actor.Registry
	// Store backs list_actors/list_executions, which must see every actor
	// ever persisted, not just the ones currently hosted by this process.
	Store actor.Store
	// Auth validates bearer tokens on mutating routes. A nil Auth (or one
	// built with an empty secret) leaves the API unauthenticated, for dev.
	Auth *auth.JWTService
	// Logger receives request-handling errors.
	Logger *slog.Logger
}

// Handler is the control plane's http.Handler.
type Handler struct {
	cfg *Config
	mux *http.ServeMux
}

// NewHandler builds a Handler and registers its routes.
func NewHandler(cfg *Config) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New("controlplane: config required")
	}
	if cfg.Registry == nil {
		return nil, errors.New("controlplane: registry required")
	}
	if cfg.Store == nil {
		return nil, errors.New("controlplane: store required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	h := &Handler{cfg: cfg, mux: http.NewServeMux()}
	h.setupRoutes()
	return h, nil
}

func (h *Handler) setupRoutes() {
	h.mux.HandleFunc("/api/actors", h.apiActorList)
	h.mux.HandleFunc("/api/actors/", h.apiActorDispatch)
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// apiActorDispatch routes /api/actors/{name}[/pause|/resume|/trigger|/executions],
// splitting on a TrimPrefix+Split path-parsing idiom since the mux can't
// itself express a trailing wildcard segment.
func (h *Handler) apiActorDispatch(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/actors/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		h.jsonError(w, "actor name required", http.StatusNotFound)
		return
	}
	name := parts[0]

	switch {
	case len(parts) == 1:
		h.apiActorDetail(w, r, name)
	case len(parts) == 2 && parts[1] == "pause":
		h.apiActorPause(w, r, name)
	case len(parts) == 2 && parts[1] == "resume":
		h.apiActorResume(w, r, name)
	case len(parts) == 2 && parts[1] == "trigger":
		h.apiActorTrigger(w, r, name)
	case len(parts) == 2 && parts[1] == "executions":
		h.apiActorExecutions(w, r, name)
	default:
		h.jsonError(w, "not found", http.StatusNotFound)
	}
}

func (h *Handler) jsonResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.cfg.Logger.Error("controlplane json encode error", "error", err)
	}
}

func (h *Handler) jsonError(w http.ResponseWriter, message string, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.cfg.Logger.Error("controlplane json encode error", "error", err)
	}
}

func clampQueryParam(r *http.Request, key string) string {
	v := r.URL.Query().Get(key)
	if len(v) > maxQueryParamLen {
		return v[:maxQueryParamLen]
	}
	return v
}

func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := clampQueryParam(r, name)
	if val == "" {
		return defaultVal
	}
	n := 0
	for _, c := range val {
		if c < '0' || c > '9' {
			return defaultVal
		}
		n = n*10 + int(c-'0')
	}
	return n
}
