// Package tombola holds the per-game state machine: the Pouch of
// undrawn numbers, the Board of drawn numbers, the CardRegistry of
// assigned cards, and the ScoreCard that tracks published achievements.
// A Game bundles these under a single mutex; callers (the registry and
// dispatcher packages) are responsible for acquiring Game.Lock before
// calling any method here, mirroring the way the teacher's
// matchmaking.Matchmaker holds one mutex across a multi-field mutation
// rather than locking each field independently.
package tombola

import (
	mrand "math/rand"
	"sort"
	"sync"
	"time"

	"tombola/cardgen"
	"tombola/tomerrors"
)

// BoardCardID is the reserved card id representing the synthetic card
// assigned to a game's board client.
const BoardCardID = "0000000000000000"

// BoardClientType and PlayerClientType are the two per-game role tags.
const (
	BoardClientType  = "board"
	PlayerClientType = "player"
)

// Status is a Game's derived lifecycle state.
type Status string

const (
	StatusNew    Status = "new"
	StatusActive Status = "active"
	StatusClosed Status = "closed"
)

// CardData is the JSON-facing shape of a card's 3x9 grid: a nil entry is
// an empty cell.
type CardData [3][9]*int

// Board is the ordered history of drawn numbers for one game, plus a
// membership set for O(1) containment checks.
type Board struct {
	Numbers []int
	drawn   map[int]bool
}

// NewBoard returns an empty Board.
func NewBoard() *Board {
	return &Board{drawn: make(map[int]bool, 90)}
}

// Append records n as drawn. n must not already be a member; this is an
// internal invariant violation, not a user-facing error, since the only
// caller is Game.Draw after popping n from the Pouch.
func (b *Board) Append(n int) error {
	if b.drawn[n] {
		return tomerrors.New(tomerrors.Internal, "number already drawn")
	}
	b.Numbers = append(b.Numbers, n)
	b.drawn[n] = true
	return nil
}

// Contains reports whether n has been drawn.
func (b *Board) Contains(n int) bool {
	return b.drawn[n]
}

// Pouch holds the numbers not yet drawn for one game.
type Pouch struct {
	remaining map[int]bool
}

// NewPouch returns a Pouch pre-filled with 1..90.
func NewPouch() *Pouch {
	p := &Pouch{remaining: make(map[int]bool, 90)}
	for n := 1; n <= 90; n++ {
		p.remaining[n] = true
	}
	return p
}

// Draw removes and returns a uniformly random remaining number.
func (p *Pouch) Draw(rng *mrand.Rand) (int, error) {
	if len(p.remaining) == 0 {
		return 0, tomerrors.ErrPouchEmpty
	}
	nums := make([]int, 0, len(p.remaining))
	for n := range p.remaining {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	n := nums[rng.Intn(len(nums))]
	delete(p.remaining, n)
	return n, nil
}

// Numbers returns the remaining numbers in unspecified order.
func (p *Pouch) Numbers() []int {
	out := make([]int, 0, len(p.remaining))
	for n := range p.remaining {
		out = append(out, n)
	}
	return out
}

// Len reports how many numbers remain.
func (p *Pouch) Len() int {
	return len(p.remaining)
}

// ScoreAchievement records that a card held a winning configuration of
// drawn numbers at the moment its level was first published.
type ScoreAchievement struct {
	ClientID string
	CardID   string
	Numbers  []int
}

// ScoreCard tracks the monotonically published score for one game.
type ScoreCard struct {
	PublishedScore int
	ScoreMap       map[int][]ScoreAchievement
}

// CardAssignment binds a generated card to the client it was dealt to.
type CardAssignment struct {
	CardID   string
	ClientID string
	CardData CardData
}

// CardRegistry is a game's card_id -> assignment and client_id -> owned
// card ids index.
type CardRegistry struct {
	Assignments map[string]*CardAssignment
	ClientCards map[string][]string
}

// Game is one tombola instance: its board, pouch, card registry,
// scorecard, and per-game client membership/role state, all guarded by
// a single mutex per spec.md section 5.
type Game struct {
	mu sync.Mutex

	ID            string
	CreatedAt     time.Time
	EndedAt       *time.Time
	OwnerClientID string

	Board       *Board
	Pouch       *Pouch
	ScoreCard   *ScoreCard
	Cards       *CardRegistry
	ClientTypes map[string]string
	Members     map[string]bool

	rng *mrand.Rand
}

// NewGame constructs a fresh, unstarted Game owned by ownerClientID.
func NewGame(id, ownerClientID string, seed int64) *Game {
	return &Game{
		ID:            id,
		CreatedAt:     time.Now(),
		OwnerClientID: ownerClientID,
		Board:         NewBoard(),
		Pouch:         NewPouch(),
		ScoreCard:     &ScoreCard{ScoreMap: make(map[int][]ScoreAchievement)},
		Cards: &CardRegistry{
			Assignments: make(map[string]*CardAssignment),
			ClientCards: make(map[string][]string),
		},
		ClientTypes: make(map[string]string),
		Members:     make(map[string]bool),
		rng:         mrand.New(mrand.NewSource(seed)),
	}
}

// RNG returns the Game's seeded random source, for use by callers (such
// as the registry package) that need to drive cardgen.GenerateGroup
// under the same Game lock.
func (g *Game) RNG() *mrand.Rand {
	return g.rng
}

// Lock and Unlock expose the Game's mutex directly: the dispatcher
// acquires it for the minimum critical section and releases it itself,
// per spec.md section 4.5's per-request discipline.
func (g *Game) Lock()   { g.mu.Lock() }
func (g *Game) Unlock() { g.mu.Unlock() }

// Status derives the Game's lifecycle state. Callers must hold the lock.
func (g *Game) Status() Status {
	if len(g.Board.Numbers) == 0 {
		return StatusNew
	}
	if g.ScoreCard.PublishedScore == 15 {
		return StatusClosed
	}
	return StatusActive
}

// Draw pops one number from the Pouch, appends it to the Board, and
// re-evaluates every card's achievements. Callers must hold the lock.
func (g *Game) Draw() (int, error) {
	n, err := g.Pouch.Draw(g.rng)
	if err != nil {
		return 0, err
	}
	if err := g.Board.Append(n); err != nil {
		return 0, err
	}
	g.evaluateScore()
	if g.ScoreCard.PublishedScore == 15 && g.EndedAt == nil {
		now := time.Now()
		g.EndedAt = &now
	}
	return n, nil
}

// EnsureMember marks clientID as a member of this game.
func (g *Game) EnsureMember(clientID string) {
	g.Members[clientID] = true
}

// IsMember reports whether clientID has joined this game.
func (g *Game) IsMember(clientID string) bool {
	return g.Members[clientID]
}

// AssignClientType implements first-writer-wins: if clientID already has
// a recorded type for this game, that type is kept (and returned)
// regardless of typ; otherwise typ is recorded.
func (g *Game) AssignClientType(clientID, typ string) string {
	if existing, ok := g.ClientTypes[clientID]; ok {
		return existing
	}
	g.ClientTypes[clientID] = typ
	return typ
}

// ClientType returns clientID's recorded type in this game, if any.
func (g *Game) ClientType(clientID string) (string, bool) {
	t, ok := g.ClientTypes[clientID]
	return t, ok
}

// HasBoardClient reports whether a board client has already been
// registered in this game.
func (g *Game) HasBoardClient() bool {
	_, ok := g.Cards.Assignments[BoardCardID]
	return ok
}

// AssignBoardCard records the reserved board card for clientID. Fails if
// a board client is already present.
func (g *Game) AssignBoardCard(clientID string) error {
	if g.HasBoardClient() {
		return tomerrors.ErrBoardAlreadyPresent
	}
	g.Cards.Assignments[BoardCardID] = &CardAssignment{
		CardID:   BoardCardID,
		ClientID: clientID,
	}
	g.Cards.ClientCards[clientID] = append(g.Cards.ClientCards[clientID], BoardCardID)
	return nil
}

// HasCards reports whether clientID already owns any card in this game.
func (g *Game) HasCards(clientID string) bool {
	return len(g.Cards.ClientCards[clientID]) > 0
}

// CardIDExists reports whether id is already assigned in this game,
// letting cardgen re-roll on collision.
func (g *Game) CardIDExists(id string) bool {
	_, ok := g.Cards.Assignments[id]
	return ok
}

// AssignCards records newly generated cards as owned by clientID and
// returns their ids in assignment order.
func (g *Game) AssignCards(clientID string, cards []cardgen.Card) []string {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		g.Cards.Assignments[c.ID] = &CardAssignment{
			CardID:   c.ID,
			ClientID: clientID,
			CardData: CardData(c.Data),
		}
		g.Cards.ClientCards[clientID] = append(g.Cards.ClientCards[clientID], c.ID)
		ids = append(ids, c.ID)
	}
	return ids
}

// Card looks up a card assignment by id.
func (g *Game) Card(cardID string) (*CardAssignment, bool) {
	a, ok := g.Cards.Assignments[cardID]
	return a, ok
}

// AssignedCardIDs returns clientID's owned card ids in assignment order.
func (g *Game) AssignedCardIDs(clientID string) []string {
	ids := g.Cards.ClientCards[clientID]
	out := make([]string, len(ids))
	copy(out, ids)
	return out
}
