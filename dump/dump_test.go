package dump

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"tombola/cardgen"
	"tombola/tombola"
)

func buildGame(t *testing.T) *tombola.Game {
	t.Helper()
	g := tombola.NewGame("game_abc123", "owner-1", 42)
	if err := g.AssignBoardCard("owner-1"); err != nil {
		t.Fatalf("AssignBoardCard: %v", err)
	}
	group, err := cardgen.GenerateGroup(g.RNG(), g.CardIDExists)
	if err != nil {
		t.Fatalf("GenerateGroup: %v", err)
	}
	g.AssignCards("alice", group[:2])
	g.EnsureMember("alice")
	g.EnsureMember("owner-1")
	for i := 0; i < 5; i++ {
		if _, err := g.Draw(); err != nil {
			t.Fatalf("Draw: %v", err)
		}
	}
	return g
}

func TestSnapshotOmitsEmail(t *testing.T) {
	g := buildGame(t)
	snapshot := Snapshot(g)

	data, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(strings.ToLower(string(data)), "email") {
		t.Fatal("snapshot JSON contains an email field")
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	g := buildGame(t)
	snapshot := Snapshot(g)

	dir := t.TempDir()
	path, err := Write(dir, snapshot)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("Write path = %s, want under %s", path, dir)
	}

	got, err := Read(path)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.ID != snapshot.ID {
		t.Fatalf("round-tripped ID = %s, want %s", got.ID, snapshot.ID)
	}
	if len(got.Board.Numbers) != len(snapshot.Board.Numbers) {
		t.Fatalf("round-tripped board has %d numbers, want %d", len(got.Board.Numbers), len(snapshot.Board.Numbers))
	}
	if len(got.CardManager.Assignments) != len(snapshot.CardManager.Assignments) {
		t.Fatalf("round-tripped card count = %d, want %d", len(got.CardManager.Assignments), len(snapshot.CardManager.Assignments))
	}
}

func TestWriteAvoidsCollision(t *testing.T) {
	g := buildGame(t)
	snapshot := Snapshot(g)
	dir := t.TempDir()

	first, err := Write(dir, snapshot)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	second, err := Write(dir, snapshot)
	if err != nil {
		t.Fatalf("Write (second): %v", err)
	}
	if first == second {
		t.Fatalf("two writes for the same game id produced the same path: %s", first)
	}
}
