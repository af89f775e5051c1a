package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"tombola/dump"
	"tombola/registry"
	"tombola/tombola"
	"tombola/tomerrors"
)

const timeRFC3339Nano = time.RFC3339Nano

// levelKey renders a score level as the score_map's JSON key.
func levelKey(level int) string {
	return strconv.Itoa(level)
}

// lookupGame resolves {game_id} under the registry's short lock, per
// spec.md section 4.5's per-request discipline: look up, release, then
// the caller acquires the Game's own lock for the actual operation.
func (h *Handler) lookupGame(r *http.Request) (*tombola.Game, error) {
	id := r.PathValue("game_id")
	g, ok := h.Games.Get(id)
	if !ok {
		return nil, tomerrors.ErrGameNotFound
	}
	return g, nil
}

// handleJoin implements POST /{game_id}/join.
func (h *Handler) handleJoin(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}

	var body joinRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.BadRequest, "malformed JSON body"))
		return
	}
	if body.Name == "" {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.BadRequest, "name is required"))
		return
	}

	clientID, cardIDs, err := registry.JoinGame(h.Directory, g, body.Name, body.ClientType, body.NoCard, body.Email)
	if err != nil {
		h.writeError(w, reqID, clientID, err)
		return
	}

	writeJSON(w, http.StatusOK, joinResponse{ClientID: clientID, CardIDs: cardIDs})
}

// handleGenerateCards implements POST /{game_id}/generatecards.
func (h *Handler) handleGenerateCards(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}

	var body generateCardsRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, reqID, ci.ID, tomerrors.New(tomerrors.BadRequest, "malformed JSON body"))
			return
		}
	}

	cardIDs, err := registry.GenerateCards(g, ci.ID, body.NoCard)
	if err != nil {
		h.writeError(w, reqID, ci.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, generateCardsResponse{CardIDs: cardIDs})
}

// handleListAssignedCards implements GET /{game_id}/listassignedcards.
func (h *Handler) handleListAssignedCards(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}

	g.Lock()
	if !g.IsMember(ci.ID) {
		g.Unlock()
		h.writeError(w, reqID, ci.ID, tomerrors.ErrNotJoined)
		return
	}
	cardIDs := g.AssignedCardIDs(ci.ID)
	g.Unlock()

	writeJSON(w, http.StatusOK, listAssignedCardsResponse{CardIDs: cardIDs})
}

// handleGetAssignedCard implements GET /{game_id}/getassignedcard/{card_id}.
func (h *Handler) handleGetAssignedCard(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}
	cardID := r.PathValue("card_id")

	g.Lock()
	defer g.Unlock()

	if !g.IsMember(ci.ID) {
		h.writeError(w, reqID, ci.ID, tomerrors.ErrNotJoined)
		return
	}
	assignment, ok := g.Card(cardID)
	if !ok {
		h.writeError(w, reqID, ci.ID, tomerrors.ErrCardNotFound)
		return
	}
	if assignment.ClientID != ci.ID {
		h.writeError(w, reqID, ci.ID, tomerrors.ErrCardNotOwned)
		return
	}

	writeJSON(w, http.StatusOK, cardResponse{CardID: assignment.CardID, CardData: assignment.CardData})
}

// handleBoard implements GET /{game_id}/board.
func (h *Handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}

	g.Lock()
	numbers := append([]int(nil), g.Board.Numbers...)
	marked := append([]int(nil), g.Board.Numbers...)
	g.Unlock()

	writeJSON(w, http.StatusOK, boardResponse{Numbers: numbers, MarkedNumbers: marked})
}

// handlePouch implements GET /{game_id}/pouch.
func (h *Handler) handlePouch(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}

	g.Lock()
	numbers := g.Pouch.Numbers()
	g.Unlock()

	writeJSON(w, http.StatusOK, pouchResponse{Numbers: numbers})
}

// handleStatus implements GET /{game_id}/status.
func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}

	g.Lock()
	resp := statusResponse{
		GameID:  g.ID,
		Status:  string(g.Status()),
		Owner:   g.OwnerClientID,
		Players: len(g.Members),
		Cards:   len(g.Cards.Assignments),
		Score:   g.ScoreCard.PublishedScore,
	}
	if g.EndedAt != nil {
		resp.ClosedAt = g.EndedAt.UTC().Format(timeRFC3339Nano)
	}
	g.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// handlePlayers implements GET /{game_id}/players.
func (h *Handler) handlePlayers(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}

	g.Lock()
	if !g.IsMember(ci.ID) {
		g.Unlock()
		h.writeError(w, reqID, ci.ID, tomerrors.ErrNotJoined)
		return
	}
	var players []playerResponse
	for memberID := range g.Members {
		typ, _ := g.ClientType(memberID)
		players = append(players, playerResponse{
			ClientID:  memberID,
			Type:      typ,
			CardCount: len(g.AssignedCardIDs(memberID)),
		})
	}
	g.Unlock()

	for i, p := range players {
		if info, ok := h.Directory.ByID(p.ClientID); ok {
			players[i].Name = info.Name
		}
	}

	writeJSON(w, http.StatusOK, playersResponse{Players: players})
}

// handleScoreMap implements GET /{game_id}/scoremap.
func (h *Handler) handleScoreMap(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}

	g.Lock()
	resp := toScoreCardResponse(g.ScoreCard)
	g.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

func toScoreCardResponse(sc *tombola.ScoreCard) scoreCardResponse {
	scoreMap := make(map[string][]scoreAchievementResponse, len(sc.ScoreMap))
	for level, achievements := range sc.ScoreMap {
		out := make([]scoreAchievementResponse, len(achievements))
		for i, a := range achievements {
			out[i] = scoreAchievementResponse{ClientID: a.ClientID, CardID: a.CardID, Numbers: a.Numbers}
		}
		scoreMap[levelKey(level)] = out
	}
	return scoreCardResponse{PublishedScore: sc.PublishedScore, ScoreMap: scoreMap}
}

// handleExtract implements POST /{game_id}/extract: board-client-only.
func (h *Handler) handleExtract(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}

	g.Lock()
	defer g.Unlock()

	typ, joined := g.ClientType(ci.ID)
	if !joined || typ != tombola.BoardClientType {
		h.writeError(w, reqID, ci.ID, tomerrors.ErrNotBoardClient)
		return
	}

	n, err := g.Draw()
	if err != nil {
		h.writeError(w, reqID, ci.ID, err)
		return
	}

	if g.Status() == tombola.StatusClosed {
		snapshot := dump.Snapshot(g)
		if _, err := h.dumpGame(g.ID, snapshot); err != nil {
			h.writeError(w, reqID, ci.ID, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, extractResponse{
		Number:           n,
		NumbersDrawn:     len(g.Board.Numbers),
		NumbersRemaining: g.Pouch.Len(),
	})
}

// handleDumpGame implements POST /{game_id}/dumpgame: board-client-only,
// on-demand dump regardless of status.
func (h *Handler) handleDumpGame(w http.ResponseWriter, r *http.Request) {
	if CORS(w, r) {
		return
	}
	reqID := requestID()

	g, err := h.lookupGame(r)
	if err != nil {
		h.writeError(w, reqID, "", err)
		return
	}
	ci, ok := h.authenticate(r)
	if !ok {
		h.writeError(w, reqID, "", tomerrors.New(tomerrors.Unauthorized, "missing or unknown X-Client-ID"))
		return
	}

	g.Lock()
	typ, joined := g.ClientType(ci.ID)
	if !joined || typ != tombola.BoardClientType {
		g.Unlock()
		h.writeError(w, reqID, ci.ID, tomerrors.ErrNotBoardClient)
		return
	}
	snapshot := dump.Snapshot(g)
	path, err := h.dumpGame(g.ID, snapshot)
	g.Unlock()
	if err != nil {
		h.writeError(w, reqID, ci.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, dumpResponse{Path: path})
}
