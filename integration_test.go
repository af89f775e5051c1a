package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"tombola/api"
	"tombola/registry"
)

// discardLogger silences the handler's structured logging during tests.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// setupTestServer builds a fresh registry/handler pair and wraps them in
// an httptest.Server, mirroring the teacher's setupTestServer helper but
// driving plain net/http JSON requests instead of dialing a WebSocket.
func setupTestServer(t *testing.T) (*httptest.Server, *registry.ClientDirectory) {
	t.Helper()
	dir := registry.NewClientDirectory()
	games := registry.NewGameRegistry()
	h := api.NewHandler(dir, games, t.TempDir(), discardLogger())
	return httptest.NewServer(api.NewMux(h)), dir
}

func postJSON(t *testing.T, server *httptest.Server, path, clientID string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, server.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response for %s: %v", path, err)
	}
	return resp, out
}

func getJSON(t *testing.T, server *httptest.Server, path, clientID string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if clientID != "" {
		req.Header.Set("X-Client-ID", clientID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response for %s: %v", path, err)
	}
	return resp, out
}

var gameIDPattern = regexp.MustCompile(`^game_[0-9a-f]{8}$`)

// TestIntegration_CreateGameAndList covers scenario 1 of spec.md section 8.
func TestIntegration_CreateGameAndList(t *testing.T) {
	server, dir := setupTestServer(t)
	defer server.Close()

	alice, err := dir.RegisterGlobal("Alice", "")
	if err != nil {
		t.Fatalf("register alice: %v", err)
	}

	resp, body := postJSON(t, server, "/newgame", alice.ID, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.StatusCode, body)
	}
	gameID, _ := body["game_id"].(string)
	if !gameIDPattern.MatchString(gameID) {
		t.Fatalf("game_id %q does not match game_[0-9a-f]{8}", gameID)
	}
	if body["created_at"] == nil || body["created_at"] == "" {
		t.Fatalf("expected created_at to be set, got %v", body)
	}

	_, list := getJSON(t, server, "/gameslist", "")
	games, _ := list["games"].([]any)
	if len(games) != 1 {
		t.Fatalf("expected one game, got %d", len(games))
	}
	g := games[0].(map[string]any)
	if g["client_count"].(float64) != 1 {
		t.Errorf("expected client_count 1, got %v", g["client_count"])
	}
	if g["extracted_numbers_count"].(float64) != 0 {
		t.Errorf("expected extracted_numbers_count 0, got %v", g["extracted_numbers_count"])
	}
	if g["owner_client_id"] != alice.ID {
		t.Errorf("expected owner %q, got %v", alice.ID, g["owner_client_id"])
	}
}

// TestIntegration_JoinAssignsRequestedCards covers scenario 2.
func TestIntegration_JoinAssignsRequestedCards(t *testing.T) {
	server, dir := setupTestServer(t)
	defer server.Close()

	alice, _ := dir.RegisterGlobal("Alice", "")
	_, newGame := postJSON(t, server, "/newgame", alice.ID, nil)
	gameID := newGame["game_id"].(string)

	resp, joinResp := postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name":        "Bob",
		"client_type": "player",
		"nocard":      3,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join failed: %d %v", resp.StatusCode, joinResp)
	}
	bobID, _ := joinResp["client_id"].(string)
	if bobID == "" {
		t.Fatalf("expected client_id in join response, got %v", joinResp)
	}

	_, listResp := getJSON(t, server, "/"+gameID+"/listassignedcards", bobID)
	cardIDs, _ := listResp["card_ids"].([]any)
	if len(cardIDs) != 3 {
		t.Fatalf("expected 3 assigned cards, got %d", len(cardIDs))
	}

	for _, raw := range cardIDs {
		cardID := raw.(string)
		_, cardResp := getJSON(t, server, "/"+gameID+"/getassignedcard/"+cardID, bobID)
		data, _ := cardResp["card_data"].([]any)
		if len(data) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(data))
		}
		total := 0
		for _, rawRow := range data {
			row := rawRow.([]any)
			if len(row) != 9 {
				t.Fatalf("expected 9 columns, got %d", len(row))
			}
			count := 0
			for col, cell := range row {
				if cell == nil {
					continue
				}
				count++
				total++
				n := int(cell.(float64))
				lo, hi := columnBounds(col)
				if n < lo || n > hi {
					t.Errorf("card %s col %d value %d out of range [%d,%d]", cardID, col, n, lo, hi)
				}
			}
			if count != 5 {
				t.Errorf("card %s row has %d numbers, want 5", cardID, count)
			}
		}
		if total != 15 {
			t.Errorf("card %s has %d numbers total, want 15", cardID, total)
		}
	}
}

func columnBounds(col int) (int, int) {
	switch col {
	case 0:
		return 1, 9
	case 8:
		return 80, 90
	default:
		return col * 10, col*10 + 9
	}
}

// TestIntegration_FullGameToClosure covers scenario 3: 90 draws, monotonic
// published_score, final board/pouch sizes, status closed, and a 409 on a
// further draw from the empty pouch.
func TestIntegration_FullGameToClosure(t *testing.T) {
	server, dir := setupTestServer(t)
	defer server.Close()

	alice, _ := dir.RegisterGlobal("Alice", "")
	_, newGame := postJSON(t, server, "/newgame", alice.ID, nil)
	gameID := newGame["game_id"].(string)

	postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name": "Alice", "client_type": "board",
	})
	postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name": "Bob", "client_type": "player", "nocard": 1,
	})

	lastScore := 0
	for i := 0; i < 90; i++ {
		resp, extract := postJSON(t, server, "/"+gameID+"/extract", alice.ID, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("extract %d failed: %d %v", i, resp.StatusCode, extract)
		}
		_, sc := getJSON(t, server, "/"+gameID+"/scoremap", "")
		score := int(sc["published_score"].(float64))
		if score < lastScore {
			t.Fatalf("published_score decreased: %d -> %d", lastScore, score)
		}
		lastScore = score
	}

	_, board := getJSON(t, server, "/"+gameID+"/board", "")
	numbers, _ := board["numbers"].([]any)
	if len(numbers) != 90 {
		t.Fatalf("expected 90 drawn numbers, got %d", len(numbers))
	}

	_, pouch := getJSON(t, server, "/"+gameID+"/pouch", "")
	remaining, _ := pouch["numbers"].([]any)
	if len(remaining) != 0 {
		t.Fatalf("expected empty pouch, got %d remaining", len(remaining))
	}

	_, status := getJSON(t, server, "/"+gameID+"/status", "")
	if status["status"] != "closed" {
		t.Fatalf("expected status closed, got %v", status["status"])
	}

	resp, _ := postJSON(t, server, "/"+gameID+"/extract", alice.ID, nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on empty-pouch draw, got %d", resp.StatusCode)
	}
}

// TestIntegration_JoinAfterStartFails covers scenario 4 and the boundary
// behavior "join after first draw fails".
func TestIntegration_JoinAfterStartFails(t *testing.T) {
	server, dir := setupTestServer(t)
	defer server.Close()

	alice, _ := dir.RegisterGlobal("Alice", "")
	_, newGame := postJSON(t, server, "/newgame", alice.ID, nil)
	gameID := newGame["game_id"].(string)

	postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name": "Alice", "client_type": "board",
	})
	postJSON(t, server, "/"+gameID+"/extract", alice.ID, nil)

	resp, body := postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name": "Carol", "client_type": "player",
	})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 after game started, got %d", resp.StatusCode)
	}
	if body["error"] == nil || body["error"] == "" {
		t.Fatalf("expected an error message, got %v", body)
	}
}

// TestIntegration_SameNameAcrossGames covers scenario 5: a client
// registered once by name keeps the same id across games.
func TestIntegration_SameNameAcrossGames(t *testing.T) {
	server, dir := setupTestServer(t)
	defer server.Close()
	_ = dir

	_, reg := postJSON(t, server, "/register", "", map[string]any{"name": "Dave"})
	daveID := reg["client_id"].(string)

	alice := mustRegisterViaHTTP(t, server, "Alice")
	_, g1 := postJSON(t, server, "/newgame", alice, nil)
	_, g2 := postJSON(t, server, "/newgame", alice, nil)
	game1 := g1["game_id"].(string)
	game2 := g2["game_id"].(string)

	postJSON(t, server, "/"+game1+"/join", "", map[string]any{"name": "Dave", "client_type": "player"})
	postJSON(t, server, "/"+game2+"/join", "", map[string]any{"name": "Dave", "client_type": "player"})

	_, info := getJSON(t, server, "/clientinfo?name=Dave", "")
	if info["client_id"] != daveID {
		t.Fatalf("expected same client id %q, got %v", daveID, info["client_id"])
	}

	_, players1 := getJSON(t, server, "/"+game1+"/players", alice)
	_, players2 := getJSON(t, server, "/"+game2+"/players", alice)
	if !hasClientID(players1["players"], daveID) {
		t.Errorf("expected Dave in game1 players")
	}
	if !hasClientID(players2["players"], daveID) {
		t.Errorf("expected Dave in game2 players")
	}
}

func mustRegisterViaHTTP(t *testing.T, server *httptest.Server, name string) string {
	t.Helper()
	_, reg := postJSON(t, server, "/register", "", map[string]any{"name": name})
	return reg["client_id"].(string)
}

func hasClientID(raw any, id string) bool {
	players, _ := raw.([]any)
	for _, p := range players {
		if p.(map[string]any)["client_id"] == id {
			return true
		}
	}
	return false
}

// TestIntegration_SecondBoardJoinConflicts covers the "only one board
// client per game" rule of spec.md section 4.4.
func TestIntegration_SecondBoardJoinConflicts(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	alice := mustRegisterViaHTTP(t, server, "Alice")
	_, newGame := postJSON(t, server, "/newgame", alice, nil)
	gameID := newGame["game_id"].(string)

	postJSON(t, server, "/"+gameID+"/join", "", map[string]any{"name": "Alice", "client_type": "board"})

	resp, _ := postJSON(t, server, "/"+gameID+"/join", "", map[string]any{"name": "Carol", "client_type": "board"})
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on second board join, got %d", resp.StatusCode)
	}
}

// TestIntegration_ExtractRequiresBoardRole covers the 403 boundary for a
// non-board caller attempting /extract.
func TestIntegration_ExtractRequiresBoardRole(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	alice := mustRegisterViaHTTP(t, server, "Alice")
	_, newGame := postJSON(t, server, "/newgame", alice, nil)
	gameID := newGame["game_id"].(string)

	postJSON(t, server, "/"+gameID+"/join", "", map[string]any{"name": "Alice", "client_type": "board"})
	_, joinResp := postJSON(t, server, "/"+gameID+"/join", "", map[string]any{"name": "Bob", "client_type": "player"})
	bobID := joinResp["client_id"].(string)

	resp, _ := postJSON(t, server, "/"+gameID+"/extract", bobID, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-board extract, got %d", resp.StatusCode)
	}
}

// TestIntegration_ExtractUnknownGame covers the 404 boundary.
func TestIntegration_ExtractUnknownGame(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	alice := mustRegisterViaHTTP(t, server, "Alice")
	resp, _ := postJSON(t, server, "/game_deadbeef/extract", alice, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown game, got %d", resp.StatusCode)
	}
}

// TestIntegration_CardNotOwnedForbidden covers "request a card not owned
// by the caller -> 403, not 404".
func TestIntegration_CardNotOwnedForbidden(t *testing.T) {
	server, _ := setupTestServer(t)
	defer server.Close()

	alice := mustRegisterViaHTTP(t, server, "Alice")
	_, newGame := postJSON(t, server, "/newgame", alice, nil)
	gameID := newGame["game_id"].(string)

	_, joinBob := postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name": "Bob", "client_type": "player", "nocard": 1,
	})
	bobID := joinBob["client_id"].(string)
	_, cardsBob := getJSON(t, server, "/"+gameID+"/listassignedcards", bobID)
	bobCardID := cardsBob["card_ids"].([]any)[0].(string)

	_, joinCarol := postJSON(t, server, "/"+gameID+"/join", "", map[string]any{
		"name": "Carol", "client_type": "player", "nocard": 1,
	})
	carolID := joinCarol["client_id"].(string)

	resp, _ := getJSON(t, server, "/"+gameID+"/getassignedcard/"+bobCardID, carolID)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for card owned by someone else, got %d", resp.StatusCode)
	}
}
