package registry

import (
	"sync"
	"time"

	"tombola/tomerrors"
	"tombola/tombola"
)

// GameSummary is the snapshot shape returned by ListGames, matching the
// fields spec.md section 4.4's list_games() contract requires.
type GameSummary struct {
	GameID                string
	Status                tombola.Status
	CreatedAt             time.Time
	ClientCount           int
	ExtractedNumbersCount int
	OwnerClientID         string
}

// GameRegistry is the top-level game_id -> Game map, guarded by its own
// lock per spec.md section 5's lock-ordering rule (acquired after the
// ClientDirectory lock, before any individual Game lock).
type GameRegistry struct {
	mu    sync.RWMutex
	games map[string]*tombola.Game
}

// NewGameRegistry returns an empty registry.
func NewGameRegistry() *GameRegistry {
	return &GameRegistry{games: make(map[string]*tombola.Game)}
}

// CreateGame allocates a new Game owned by ownerClientID, records the
// owner as its first member, and inserts it.
func (r *GameRegistry) CreateGame(ownerClientID string) (*tombola.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		suffix, err := randomGameSuffix()
		if err != nil {
			return nil, tomerrors.Wrap(tomerrors.Internal, "generating game id", err)
		}
		candidate := "game_" + suffix
		if _, taken := r.games[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, tomerrors.New(tomerrors.Internal, "could not allocate a unique game id")
	}

	g := tombola.NewGame(id, ownerClientID, time.Now().UnixNano())
	g.EnsureMember(ownerClientID)
	r.games[id] = g
	return g, nil
}

// Get looks up a Game by id. The caller acquires the Game's own lock
// itself before mutating it, per spec.md section 4.5.
func (r *GameRegistry) Get(gameID string) (*tombola.Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[gameID]
	return g, ok
}

// ListGames returns a point-in-time snapshot of every known game.
func (r *GameRegistry) ListGames() []GameSummary {
	r.mu.RLock()
	games := make([]*tombola.Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	r.mu.RUnlock()

	out := make([]GameSummary, 0, len(games))
	for _, g := range games {
		g.Lock()
		out = append(out, GameSummary{
			GameID:                g.ID,
			Status:                g.Status(),
			CreatedAt:             g.CreatedAt,
			ClientCount:           len(g.Members),
			ExtractedNumbersCount: len(g.Board.Numbers),
			OwnerClientID:         g.OwnerClientID,
		})
		g.Unlock()
	}
	return out
}

// ActiveGames returns every Game currently in StatusActive, for the
// flush-on-/newgame rule in spec.md section 4.5.
func (r *GameRegistry) ActiveGames() []*tombola.Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*tombola.Game
	for _, g := range r.games {
		g.Lock()
		st := g.Status()
		g.Unlock()
		if st == tombola.StatusActive {
			out = append(out, g)
		}
	}
	return out
}
