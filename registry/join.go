package registry

import (
	"tombola/cardgen"
	"tombola/tomerrors"
	"tombola/tombola"
)

// JoinGame implements spec.md section 4.4's join_game operation. The
// caller is responsible for having already resolved g from the
// GameRegistry; JoinGame itself only needs the ClientDirectory and the
// target Game. It resolves the client in the directory first, then
// acquires the Game's lock for the rest of the operation.
func JoinGame(dir *ClientDirectory, g *tombola.Game, name, clientType string, requestedCards int, email string) (clientID string, cardIDs []string, err error) {
	if clientType != tombola.PlayerClientType && clientType != tombola.BoardClientType {
		return "", nil, tomerrors.New(tomerrors.BadRequest, `client_type must be "player" or "board"`)
	}

	ci, err := dir.RegisterGlobal(name, email)
	if err != nil {
		return "", nil, err
	}

	g.Lock()
	defer g.Unlock()

	if len(g.Board.Numbers) > 0 {
		return "", nil, tomerrors.ErrGameStarted
	}

	finalType := g.AssignClientType(ci.ID, clientType)
	g.EnsureMember(ci.ID)

	if finalType == tombola.BoardClientType {
		if g.HasCards(ci.ID) {
			return ci.ID, g.AssignedCardIDs(ci.ID), nil
		}
		if err := g.AssignBoardCard(ci.ID); err != nil {
			return "", nil, err
		}
		return ci.ID, []string{tombola.BoardCardID}, nil
	}

	if g.HasCards(ci.ID) {
		return ci.ID, g.AssignedCardIDs(ci.ID), nil
	}

	count := requestedCards
	if count <= 0 {
		count = 1
	}
	if count > cardgen.GroupSize {
		count = cardgen.GroupSize
	}

	group, genErr := cardgen.GenerateGroup(g.RNG(), g.CardIDExists)
	if genErr != nil {
		return "", nil, tomerrors.Wrap(tomerrors.Internal, "card generation failed", genErr)
	}

	return ci.ID, g.AssignCards(ci.ID, group[:count]), nil
}

// GenerateCards implements the POST /{game_id}/generatecards endpoint:
// it only succeeds for a player with no cards yet assigned in this game.
func GenerateCards(g *tombola.Game, clientID string, requestedCards int) ([]string, error) {
	g.Lock()
	defer g.Unlock()

	typ, joined := g.ClientType(clientID)
	if !joined {
		return nil, tomerrors.ErrNotJoined
	}
	if typ != tombola.PlayerClientType {
		return nil, tomerrors.New(tomerrors.Forbidden, "only a player client may generate cards")
	}
	if g.HasCards(clientID) {
		return nil, tomerrors.ErrAlreadyHasCards
	}

	count := requestedCards
	if count <= 0 {
		count = 1
	}
	if count > cardgen.GroupSize {
		count = cardgen.GroupSize
	}

	group, err := cardgen.GenerateGroup(g.RNG(), g.CardIDExists)
	if err != nil {
		return nil, tomerrors.Wrap(tomerrors.Internal, "card generation failed", err)
	}
	return g.AssignCards(clientID, group[:count]), nil
}
