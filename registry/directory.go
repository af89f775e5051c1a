// Package registry holds the two top-level maps described in spec.md
// section 4.4: the GameRegistry (game_id -> Game) and the ClientDirectory
// (name -> client id, global across games). It is grounded on the
// teacher's matchmaking.Matchmaker, generalized from a single
// activeGames/userIDToGame pairing to the registry's own
// create/list/join contract, with matcherrors' flat sentinel-error style
// promoted to the typed tomerrors package.
package registry

import (
	"sync"
	"time"

	"tombola/tomerrors"
)

// ClientInfo is a globally registered client identity. Email is
// internal-only bookkeeping and must never be serialized into a dump or
// API response, per spec.md section 6.4.
type ClientInfo struct {
	ID           string
	Name         string
	Email        string
	RegisteredAt time.Time
}

// ReservedBoardClientID and ReservedBoardClientName are the reserved
// identity from spec.md section 3, representing the abstract board
// rather than any human operator. It is pre-seeded so lookups by id
// never 404, even though no join flow ever assigns it to a caller (a
// human board operator keeps their own real client id; see DESIGN.md).
const (
	ReservedBoardClientID   = "0000000000000000"
	ReservedBoardClientName = "__BOARD__"
)

// ClientDirectory is the global name -> client-id map. One instance is
// shared across all games.
type ClientDirectory struct {
	mu     sync.RWMutex
	byName map[string]string
	byID   map[string]*ClientInfo
}

// NewClientDirectory returns a directory pre-seeded with the reserved
// board identity.
func NewClientDirectory() *ClientDirectory {
	d := &ClientDirectory{
		byName: make(map[string]string),
		byID:   make(map[string]*ClientInfo),
	}
	reserved := &ClientInfo{
		ID:           ReservedBoardClientID,
		Name:         ReservedBoardClientName,
		RegisteredAt: time.Now(),
	}
	d.byName[reserved.Name] = reserved.ID
	d.byID[reserved.ID] = reserved
	return d
}

// RegisterGlobal returns the existing ClientInfo for name if one exists,
// else allocates and stores a new one.
func (d *ClientDirectory) RegisterGlobal(name, email string) (*ClientInfo, error) {
	if name == "" {
		return nil, tomerrors.New(tomerrors.BadRequest, "name is required")
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if id, ok := d.byName[name]; ok {
		return d.byID[id], nil
	}

	var id string
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		candidate, err := randomClientID()
		if err != nil {
			return nil, tomerrors.Wrap(tomerrors.Internal, "generating client id", err)
		}
		if _, taken := d.byID[candidate]; !taken {
			id = candidate
			break
		}
	}
	if id == "" {
		return nil, tomerrors.New(tomerrors.Internal, "could not allocate a unique client id")
	}

	ci := &ClientInfo{ID: id, Name: name, Email: email, RegisteredAt: time.Now()}
	d.byName[name] = id
	d.byID[id] = ci
	return ci, nil
}

// ByID looks up a ClientInfo by id.
func (d *ClientDirectory) ByID(id string) (*ClientInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	ci, ok := d.byID[id]
	return ci, ok
}

// ByName looks up a ClientInfo by name.
func (d *ClientDirectory) ByName(name string) (*ClientInfo, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.byID[id], true
}
