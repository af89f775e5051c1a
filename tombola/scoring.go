package tombola

import "tombola/cardgen"

// validLevel reports whether L is one of the five levels the scorecard
// ever records (1 is never reported per spec.md section 4.3).
func validLevel(l int) bool {
	switch l {
	case 2, 3, 4, 5, 15:
		return true
	default:
		return false
	}
}

// cardState is one card's achievement state at the moment of evaluation.
type cardState struct {
	assignment   *CardAssignment
	rowLevels    [3]int
	rowNumbers   [3][]int
	bingo        bool
	bingoNumbers []int
}

// sortedAssignments returns every card assignment in this game ordered
// by the tie-break rule of spec.md section 4.3: player cards by
// client-id ascending then card-id ascending, with the synthetic board
// card (if present) always last.
func (g *Game) sortedAssignments() []*CardAssignment {
	out := make([]*CardAssignment, 0, len(g.Cards.Assignments))
	for _, a := range g.Cards.Assignments {
		out = append(out, a)
	}
	less := func(i, j int) bool {
		ai, aj := out[i], out[j]
		iBoard := ai.CardID == BoardCardID
		jBoard := aj.CardID == BoardCardID
		if iBoard != jBoard {
			return !iBoard
		}
		if ai.ClientID != aj.ClientID {
			return ai.ClientID < aj.ClientID
		}
		return ai.CardID < aj.CardID
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && less(j, j-1); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

// evaluateScore recomputes every card's current achievement level against
// the Board's drawn set and records any newly-crossed, not-yet-recorded
// levels, then advances published_score to the highest level reached.
// The synthetic board card (BoardCardID) is excluded from evaluation: its
// card_data has no 3x9 structure to score rows or BINGO against, so it
// exists purely as a CardRegistry entry letting the board client list and
// fetch it like any other assignment (see DESIGN.md Open Questions).
func (g *Game) evaluateScore() {
	states := make([]cardState, 0, len(g.Cards.Assignments))
	maxNew := 0

	for _, a := range g.sortedAssignments() {
		if a.CardID == BoardCardID {
			continue
		}
		st := cardState{assignment: a}
		allNumbers := make([]int, 0, cardgen.NumbersPerCard)
		for r := 0; r < 3; r++ {
			var rowNumbers []int
			for c := 0; c < 9; c++ {
				v := a.CardData[r][c]
				if v == nil {
					continue
				}
				allNumbers = append(allNumbers, *v)
				if g.Board.Contains(*v) {
					rowNumbers = append(rowNumbers, *v)
				}
			}
			st.rowNumbers[r] = rowNumbers
			if len(rowNumbers) >= 2 {
				st.rowLevels[r] = len(rowNumbers)
				if st.rowLevels[r] > maxNew {
					maxNew = st.rowLevels[r]
				}
			}
		}
		if len(allNumbers) == cardgen.NumbersPerCard {
			bingo := true
			for _, n := range allNumbers {
				if !g.Board.Contains(n) {
					bingo = false
					break
				}
			}
			if bingo {
				st.bingo = true
				st.bingoNumbers = allNumbers
				if 15 > maxNew {
					maxNew = 15
				}
			}
		}
		states = append(states, st)
	}

	if maxNew <= g.ScoreCard.PublishedScore {
		return
	}

	for level := g.ScoreCard.PublishedScore + 1; level <= maxNew; level++ {
		if !validLevel(level) {
			continue
		}
		if _, recorded := g.ScoreCard.ScoreMap[level]; recorded {
			continue
		}
		var achievements []ScoreAchievement
		for _, st := range states {
			if level == 15 {
				if st.bingo {
					achievements = append(achievements, ScoreAchievement{
						ClientID: st.assignment.ClientID,
						CardID:   st.assignment.CardID,
						Numbers:  append([]int(nil), st.bingoNumbers...),
					})
				}
				continue
			}
			for r := 0; r < 3; r++ {
				if st.rowLevels[r] == level {
					achievements = append(achievements, ScoreAchievement{
						ClientID: st.assignment.ClientID,
						CardID:   st.assignment.CardID,
						Numbers:  append([]int(nil), st.rowNumbers[r]...),
					})
				}
			}
		}
		if len(achievements) > 0 {
			g.ScoreCard.ScoreMap[level] = achievements
		}
	}

	g.ScoreCard.PublishedScore = maxNew
}
