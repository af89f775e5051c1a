package api

import (
	"encoding/json"
	"net/http"
	"time"

	"tombola/dump"
	"tombola/registry"
	"tombola/tomerrors"
)

// handleNewGame implements POST /newgame: the caller becomes the new
// game's board owner. Before returning, every currently Active game is
// flushed to disk (best-effort; a failed flush is logged but never
// blocks the new game from being created), per spec.md section 4.5.
func (h *Handler) handleNewGame(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}

	for _, g := range h.Games.ActiveGames() {
		g.Lock()
		snapshot := dump.Snapshot(g)
		_, err := h.dumpGame(g.ID, snapshot)
		g.Unlock()
		if err != nil {
			h.Logger.Error("flushing active game before /newgame", "request_id", reqID, "game_id", g.ID, "error", err)
		}
	}

	g, err := h.Games.CreateGame(ci.ID)
	if err != nil {
		h.writeError(w, reqID, ci.ID, err)
		return
	}

	writeJSON(w, http.StatusOK, newGameResponse{
		GameID:    g.ID,
		CreatedAt: g.CreatedAt.UTC().Format(time.RFC3339Nano),
	})
}

// handleGamesList implements GET /gameslist.
func (h *Handler) handleGamesList(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	summaries := h.Games.ListGames()
	out := make([]gameSummaryResponse, len(summaries))
	for i, s := range summaries {
		out[i] = gameSummaryResponse{
			GameID:                s.GameID,
			Status:                string(s.Status),
			CreatedAt:             s.CreatedAt.UTC().Format(time.RFC3339Nano),
			ClientCount:           s.ClientCount,
			ExtractedNumbersCount: s.ExtractedNumbersCount,
			OwnerClientID:         s.OwnerClientID,
		}
	}
	writeJSON(w, http.StatusOK, gamesListResponse{Games: out})
}

// handleRegister implements POST /register: global name -> id
// registration, independent of any game.
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	var body struct {
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.BadRequest, "malformed JSON body"))
		return
	}
	if body.Name == "" {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.BadRequest, "name is required"))
		return
	}

	ci, err := h.Directory.RegisterGlobal(body.Name, body.Email)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	writeJSON(w, http.StatusOK, registerResponse{ClientID: ci.ID})
}

// handleClientInfoByName implements GET /clientinfo?name=….
func (h *Handler) handleClientInfoByName(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	name := r.URL.Query().Get("name")
	if name == "" {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.BadRequest, "name query parameter is required"))
		return
	}
	ci, ok := h.Directory.ByName(name)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.NotFound, "client not found"))
		return
	}
	writeJSON(w, http.StatusOK, toClientInfoResponse(ci))
}

// handleClientInfoByID implements GET /clientinfo/{client_id}.
func (h *Handler) handleClientInfoByID(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	id := r.PathValue("client_id")
	ci, ok := h.Directory.ByID(id)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.NotFound, "client not found"))
		return
	}
	writeJSON(w, http.StatusOK, toClientInfoResponse(ci))
}

func toClientInfoResponse(ci *registry.ClientInfo) clientInfoResponse {
	return clientInfoResponse{
		ClientID:     ci.ID,
		Name:         ci.Name,
		RegisteredAt: ci.RegisteredAt.UTC().Format(time.RFC3339Nano),
	}
}
