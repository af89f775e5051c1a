package api

import "net/http"

// NewMux registers the full route table from spec.md section 6.1 on a
// stdlib http.ServeMux, using Go 1.22+'s method-and-wildcard patterns
// for the game-scoped routes instead of a hand-rolled path parser.
func NewMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /newgame", h.handleNewGame)
	mux.HandleFunc("GET /gameslist", h.handleGamesList)
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("GET /clientinfo", h.handleClientInfoByName)
	mux.HandleFunc("GET /clientinfo/{client_id}", h.handleClientInfoByID)

	mux.HandleFunc("POST /{game_id}/join", h.handleJoin)
	mux.HandleFunc("POST /{game_id}/generatecards", h.handleGenerateCards)
	mux.HandleFunc("GET /{game_id}/listassignedcards", h.handleListAssignedCards)
	mux.HandleFunc("GET /{game_id}/getassignedcard/{card_id}", h.handleGetAssignedCard)
	mux.HandleFunc("GET /{game_id}/board", h.handleBoard)
	mux.HandleFunc("GET /{game_id}/pouch", h.handlePouch)
	mux.HandleFunc("GET /{game_id}/status", h.handleStatus)
	mux.HandleFunc("GET /{game_id}/players", h.handlePlayers)
	mux.HandleFunc("GET /{game_id}/scoremap", h.handleScoreMap)
	mux.HandleFunc("POST /{game_id}/extract", h.handleExtract)
	mux.HandleFunc("POST /{game_id}/dumpgame", h.handleDumpGame)

	return mux
}
