// Package dump writes and reads the JSON snapshot of a finished or
// in-flight game, per spec.md section 6.4. It is grounded on the
// teacher's storage.Store: a single place persistence decisions are
// made (there, "is a database configured"; here, "is the games
// directory writable"), reported rather than silently skipped.
package dump

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"tombola/tombola"
)

// Timestamp mirrors the { secs_since_epoch, nanos_since_epoch } shape
// spec.md section 6.4 requires for created_at/game_ended_at.
type Timestamp struct {
	Secs  int64 `json:"secs_since_epoch"`
	Nanos int64 `json:"nanos_since_epoch"`
}

func toTimestamp(t time.Time) Timestamp {
	return Timestamp{Secs: t.Unix(), Nanos: int64(t.Nanosecond())}
}

// BoardDump and PouchDump are the JSON shapes of Board and Pouch.
type BoardDump struct {
	Numbers        []int `json:"numbers"`
	MarkedNumbers  []int `json:"marked_numbers"`
}

type PouchDump struct {
	Numbers []int `json:"numbers"`
}

// ScoreAchievementDump is the JSON shape of a ScoreAchievement.
type ScoreAchievementDump struct {
	ClientID string `json:"client_id"`
	CardID   string `json:"card_id"`
	Numbers  []int  `json:"numbers"`
}

// ScoreCardDump is the JSON shape of a ScoreCard.
type ScoreCardDump struct {
	PublishedScore int                               `json:"published_score"`
	ScoreMap       map[string][]ScoreAchievementDump `json:"score_map"`
}

// CardAssignmentDump is the JSON shape of one CardAssignment entry.
type CardAssignmentDump struct {
	CardID   string            `json:"card_id"`
	ClientID string            `json:"client_id"`
	CardData tombola.CardData  `json:"card_data"`
}

// CardManagerDump is the JSON shape of the game's CardRegistry.
type CardManagerDump struct {
	Assignments map[string]CardAssignmentDump `json:"assignments"`
	ClientCards map[string][]string           `json:"client_cards"`
}

// ClientTypeRegistryDump wraps the per-game client-type map, matching
// the nested shape in spec.md section 6.4.
type ClientTypeRegistryDump struct {
	ClientTypes map[string]string `json:"client_types"`
}

// GameDump is the full persisted shape of one game.
type GameDump struct {
	ID                 string                 `json:"id"`
	CreatedAt          Timestamp              `json:"created_at"`
	GameEndedAt        *Timestamp             `json:"game_ended_at"`
	Board              BoardDump              `json:"board"`
	Pouch              PouchDump              `json:"pouch"`
	ScoreCard          ScoreCardDump          `json:"scorecard"`
	RegisteredClients  []string               `json:"registered_clients"`
	ClientTypeRegistry ClientTypeRegistryDump `json:"client_type_registry"`
	CardManager        CardManagerDump        `json:"card_manager"`
}

// Snapshot builds a GameDump from a Game's current state. Callers must
// hold the Game's lock.
func Snapshot(g *tombola.Game) GameDump {
	marked := make([]int, 0, len(g.Board.Numbers))
	for _, n := range g.Board.Numbers {
		if g.Board.Contains(n) {
			marked = append(marked, n)
		}
	}

	scoreMap := make(map[string][]ScoreAchievementDump, len(g.ScoreCard.ScoreMap))
	for level, achievements := range g.ScoreCard.ScoreMap {
		out := make([]ScoreAchievementDump, len(achievements))
		for i, a := range achievements {
			out[i] = ScoreAchievementDump{ClientID: a.ClientID, CardID: a.CardID, Numbers: a.Numbers}
		}
		scoreMap[fmt.Sprintf("%d", level)] = out
	}

	assignments := make(map[string]CardAssignmentDump, len(g.Cards.Assignments))
	for id, a := range g.Cards.Assignments {
		assignments[id] = CardAssignmentDump{CardID: a.CardID, ClientID: a.ClientID, CardData: a.CardData}
	}
	clientCards := make(map[string][]string, len(g.Cards.ClientCards))
	for id, cards := range g.Cards.ClientCards {
		clientCards[id] = append([]string(nil), cards...)
	}

	clientTypes := make(map[string]string, len(g.ClientTypes))
	for id, typ := range g.ClientTypes {
		clientTypes[id] = typ
	}

	members := make([]string, 0, len(g.Members))
	for id := range g.Members {
		members = append(members, id)
	}

	var endedAt *Timestamp
	if g.EndedAt != nil {
		ts := toTimestamp(*g.EndedAt)
		endedAt = &ts
	}

	return GameDump{
		ID:          g.ID,
		CreatedAt:   toTimestamp(g.CreatedAt),
		GameEndedAt: endedAt,
		Board: BoardDump{
			Numbers:       append([]int(nil), g.Board.Numbers...),
			MarkedNumbers: marked,
		},
		Pouch:              PouchDump{Numbers: g.Pouch.Numbers()},
		ScoreCard:          ScoreCardDump{PublishedScore: g.ScoreCard.PublishedScore, ScoreMap: scoreMap},
		RegisteredClients:  members,
		ClientTypeRegistry: ClientTypeRegistryDump{ClientTypes: clientTypes},
		CardManager:        CardManagerDump{Assignments: assignments, ClientCards: clientCards},
	}
}

// Write picks a collision-free path under gamesDir (auto-created) and
// writes snapshot as pretty-printed JSON. It returns the path written.
// None of the dump types above carry an email field, so spec.md section
// 6.4's "email must not appear in dumps" rule holds independent of
// caller discipline.
func Write(gamesDir string, snapshot GameDump) (string, error) {
	if err := os.MkdirAll(gamesDir, 0o755); err != nil {
		return "", fmt.Errorf("dump: creating games directory: %w", err)
	}

	path := filepath.Join(gamesDir, fmt.Sprintf("%s.json", snapshot.ID))
	if _, err := os.Stat(path); err == nil {
		path = filepath.Join(gamesDir, fmt.Sprintf("%s_%d.json", snapshot.ID, time.Now().UnixNano()))
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", fmt.Errorf("dump: marshaling game dump: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("dump: writing game dump: %w", err)
	}
	return path, nil
}

// Read parses a dump file back into a GameDump, for the round-trip
// property in spec.md section 8.
func Read(path string) (GameDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GameDump{}, fmt.Errorf("dump: reading game dump: %w", err)
	}
	var gd GameDump
	if err := json.Unmarshal(data, &gd); err != nil {
		return GameDump{}, fmt.Errorf("dump: parsing game dump: %w", err)
	}
	return gd, nil
}
