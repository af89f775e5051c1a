// Package cardgen produces tombola cards in groups of six, the way a
// physical "tabellone" sheet is cut: the 90 numbers are partitioned across
// the six cards with the column ranges of spec.md section 4.1, then each
// card's numbers are placed into rows so every row holds exactly five.
//
// Number placement is a seed-driven algorithm with no knowledge of game
// state (card ids alone come from crypto/rand); it is grounded on the teacher's shuffle-then-place style in
// cellsgenerator.go (github.com/Parkreiner/bingo), generalized from a
// single 5x5 American card to a group of six 3x9 tombola cards with
// column and group-partition invariants.
package cardgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand"
)

const (
	// GroupSize is the number of cards produced by one call to GenerateGroup.
	GroupSize = 6
	// Rows is the number of rows on a card.
	Rows = 3
	// Cols is the number of columns on a card.
	Cols = 9
	// NumbersPerRow is how many of a row's nine cells carry a number.
	NumbersPerRow = 5
	// NumbersPerCard is the total count of non-empty cells on a card.
	NumbersPerCard = Rows * NumbersPerRow

	maxGroupAttempts = 200
	maxRowAttempts   = 200
	maxIDAttempts    = 64
)

// ErrGenerationFailed is returned when a valid card group could not be
// produced within the retry budget. Per spec.md section 4.1, this must
// never be papered over with an invalid card.
var ErrGenerationFailed = errors.New("cardgen: unable to produce a valid card group within the retry budget")

// Card is a single 3x9 tombola card. Data is row-major; a nil entry marks
// an empty cell.
type Card struct {
	ID   string
	Data [Rows][Cols]*int
}

// Numbers returns the card's filled numbers in row-major reading order.
func (c *Card) Numbers() []int {
	out := make([]int, 0, NumbersPerCard)
	for r := 0; r < Rows; r++ {
		for col := 0; col < Cols; col++ {
			if n := c.Data[r][col]; n != nil {
				out = append(out, *n)
			}
		}
	}
	return out
}

// columnRange returns the inclusive [lo, hi] number range for a 0-indexed
// column, per spec.md section 3: col 0 is [1,9], cols 1..7 are
// [10c, 10c+9], col 8 is [80,90].
func columnRange(col int) (lo, hi int) {
	switch col {
	case 0:
		return 1, 9
	case Cols - 1:
		return 80, 90
	default:
		return col * 10, col*10 + 9
	}
}

// GenerateGroup produces six cards whose union is exactly {1..90}, each
// number on exactly one card. idTaken is consulted to re-roll a card id on
// collision with ids already assigned elsewhere in the game.
func GenerateGroup(rng *mrand.Rand, idTaken func(id string) bool) ([GroupSize]Card, error) {
	var cards [GroupSize]Card

	for attempt := 0; attempt < maxGroupAttempts; attempt++ {
		colCounts, pools, ok := partitionColumns(rng)
		if !ok {
			continue
		}

		var grids [GroupSize][Rows][Cols]*int
		success := true
		for card := 0; card < GroupSize; card++ {
			grid, ok := placeRows(rng, colCounts[card])
			if !ok {
				success = false
				break
			}
			grids[card] = grid
		}
		if !success {
			continue
		}

		// Fill in actual numbers, column by column, consuming each
		// column's shuffled pool in card order.
		for col := 0; col < Cols; col++ {
			pool := pools[col]
			idx := 0
			for card := 0; card < GroupSize; card++ {
				count := colCounts[card][col]
				if count == 0 {
					continue
				}
				values := pool[idx : idx+count]
				idx += count
				sortInts(values)
				rows := rowsWithNumberInColumn(grids[card], col)
				for i, r := range rows {
					v := values[i]
					grids[card][r][col] = &v
				}
			}
		}

		for card := 0; card < GroupSize; card++ {
			id, err := generateCardID(idTaken)
			if err != nil {
				success = false
				break
			}
			cards[card] = Card{ID: id, Data: grids[card]}
		}
		if !success {
			continue
		}

		return cards, nil
	}

	return cards, ErrGenerationFailed
}

// partitionColumns splits each column's number pool across the six cards.
// Every column has the same base count per card (its size divided by six,
// always exactly 1 since column sizes are 9, 10, or 11), plus a balanced
// set of +1 "extra" assignments so every card ends with exactly 15 numbers.
func partitionColumns(rng *mrand.Rand) (colCounts [GroupSize][Cols]int, pools [Cols][]int, ok bool) {
	extraGiven := [GroupSize]int{}

	for col := 0; col < Cols; col++ {
		lo, hi := columnRange(col)
		size := hi - lo + 1
		pool := make([]int, size)
		for i := range pool {
			pool[i] = lo + i
		}
		rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
		pools[col] = pool

		base := size / GroupSize
		remainder := size % GroupSize

		for card := 0; card < GroupSize; card++ {
			colCounts[card][col] = base
		}

		order := rankCardsByExtra(rng, extraGiven)
		for i := 0; i < remainder; i++ {
			card := order[i]
			colCounts[card][col]++
			extraGiven[card]++
		}
	}

	for card := 0; card < GroupSize; card++ {
		total := 0
		for col := 0; col < Cols; col++ {
			total += colCounts[card][col]
		}
		if total != NumbersPerCard {
			return colCounts, pools, false
		}
	}
	return colCounts, pools, true
}

// rankCardsByExtra returns the six card indices ordered so that cards with
// fewer extras-so-far sort first (random tiebreak), implementing a greedy
// balanced distribution of the per-column remainder.
func rankCardsByExtra(rng *mrand.Rand, extraGiven [GroupSize]int) [GroupSize]int {
	order := [GroupSize]int{0, 1, 2, 3, 4, 5}
	rng.Shuffle(GroupSize, func(i, j int) { order[i], order[j] = order[j], order[i] })
	for i := 1; i < GroupSize; i++ {
		for j := i; j > 0 && extraGiven[order[j]] < extraGiven[order[j-1]]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}
	return order
}

// placeRows decides, for one card, which of its three rows each column's
// numbers land in, given how many numbers each column contributes. It
// marks filled cells with a placeholder (non-nil, value overwritten later)
// and returns false if no assignment satisfying row sums of 5 was found
// within the retry budget.
func placeRows(rng *mrand.Rand, colCount [Cols]int) ([Rows][Cols]*int, bool) {
	placeholder := 0
	for attempt := 0; attempt < maxRowAttempts; attempt++ {
		var grid [Rows][Cols]*int
		rowCapacity := [Rows]int{NumbersPerRow, NumbersPerRow, NumbersPerRow}

		colOrder := make([]int, Cols)
		for i := range colOrder {
			colOrder[i] = i
		}
		rng.Shuffle(Cols, func(i, j int) { colOrder[i], colOrder[j] = colOrder[j], colOrder[i] })

		ok := true
		for _, col := range colOrder {
			need := colCount[col]
			if need == 0 {
				continue
			}
			available := make([]int, 0, Rows)
			for r := 0; r < Rows; r++ {
				if rowCapacity[r] > 0 {
					available = append(available, r)
				}
			}
			if len(available) < need {
				ok = false
				break
			}
			rng.Shuffle(len(available), func(i, j int) { available[i], available[j] = available[j], available[i] })
			chosen := available[:need]
			for _, r := range chosen {
				grid[r][col] = &placeholder
				rowCapacity[r]--
			}
		}
		if !ok {
			continue
		}
		if rowCapacity[0] != 0 || rowCapacity[1] != 0 || rowCapacity[2] != 0 {
			continue
		}
		return grid, true
	}
	return [Rows][Cols]*int{}, false
}

// rowsWithNumberInColumn returns, in ascending order, the row indices that
// were marked as holding a number in the given column (invariant: cells
// within a column are sorted ascending top-to-bottom).
func rowsWithNumberInColumn(grid [Rows][Cols]*int, col int) []int {
	var rows []int
	for r := 0; r < Rows; r++ {
		if grid[r][col] != nil {
			rows = append(rows, r)
		}
	}
	return rows
}

func sortInts(s []int) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// generateCardID produces a 16-uppercase-hex-character id from a random
// 64-bit value, re-rolling on collision against idTaken.
func generateCardID(idTaken func(id string) bool) (string, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		n, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 64))
		if err != nil {
			return "", fmt.Errorf("cardgen: reading random id: %w", err)
		}
		id := fmt.Sprintf("%016X", n.Uint64())
		if idTaken == nil || !idTaken(id) {
			return id, nil
		}
	}
	return "", ErrGenerationFailed
}
