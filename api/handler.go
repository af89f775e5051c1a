// Package api is the HTTP dispatcher: routing, authentication,
// authorization, serialization, and persistence triggers, per spec.md
// section 4.5. It is grounded on the teacher's api.Handler (a struct
// holding every dependency a handler needs) and its CORS helper,
// generalized from the teacher's fixed pair of routes to the full route
// table in spec.md section 6.1.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"tombola/dump"
	"tombola/registry"
	"tombola/tomerrors"
)

// Handler holds every dependency the dispatcher's routes need.
type Handler struct {
	Directory *registry.ClientDirectory
	Games     *registry.GameRegistry
	GamesDir  string
	Logger    *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(dir *registry.ClientDirectory, games *registry.GameRegistry, gamesDir string, logger *slog.Logger) *Handler {
	return &Handler{Directory: dir, Games: games, GamesDir: gamesDir, Logger: logger}
}

// CORS sets permissive CORS headers on every response, per spec.md
// section 4.5. Call before writing a body; returns true if the request
// was a preflight OPTIONS and has already been fully handled.
func CORS(w http.ResponseWriter, r *http.Request) bool {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "X-Client-ID, Content-Type")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return true
	}
	return false
}

// requestID returns a per-request correlation id, attached to every
// structured log line the dispatcher emits for this request.
func requestID() string {
	return uuid.New().String()
}

// writeJSON writes v as the JSON response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// writeError maps err onto the HTTP status its tomerrors.Kind carries
// and logs it with the triggering client id when known, per spec.md
// section 7. Any error that isn't a *tomerrors.Error is treated as
// Internal.
func (h *Handler) writeError(w http.ResponseWriter, reqID, clientID string, err error) {
	te, ok := tomerrors.As(err)
	if !ok {
		te = tomerrors.Wrap(tomerrors.Internal, "internal error", err)
	}
	h.Logger.Error("request failed",
		"request_id", reqID,
		"client_id", clientID,
		"kind", te.Kind,
		"error", te.Error(),
	)
	writeJSON(w, te.Kind.StatusCode(), errorResponse{Error: te.Message})
}

// authenticate validates the caller from the X-Client-ID header against
// the directory. Returns (nil, false) if the header is missing or
// unknown.
func (h *Handler) authenticate(r *http.Request) (*registry.ClientInfo, bool) {
	id := r.Header.Get("X-Client-ID")
	if id == "" {
		return nil, false
	}
	ci, ok := h.Directory.ByID(id)
	if !ok {
		return nil, false
	}
	return ci, true
}

// dumpGame snapshots g to disk under h.GamesDir. Callers must hold g's
// lock already; dump I/O happens synchronously within that critical
// section per spec.md section 5.
func (h *Handler) dumpGame(gameID string, snapshot dump.GameDump) (string, error) {
	path, err := dump.Write(h.GamesDir, snapshot)
	if err != nil {
		return "", tomerrors.Wrap(tomerrors.Internal, "writing game dump", err)
	}
	return path, nil
}
