// Package replay walks a game's move list over a board model, surfacing the
// before/after positions of every ply played by the side under analysis.
package replay

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// Ply describes one analyzed-side move. Plies by the other side are replayed
// silently to advance board state.
type Ply struct {
	Index      int // 0-based ply index within the game
	MoveNumber int // 1-based full-move number
	SAN        string
	Color      chess.Color
	FENBefore  string
	FENAfter   string

	// Terminal is true when the post-move position ends the game
	// (checkmate, stalemate, or an automatic draw).
	Terminal bool
}

// ErrIllegalMove is returned (wrapped) when a move in the list cannot be
// applied. Plies collected before the failure are still returned.
var ErrIllegalMove = errors.New("replay: illegal or malformed move")

// Plies replays the move list from the starting position and returns the
// plies belonging to the analyzed color, in order.
func Plies(moves []string, analyzed chess.Color) ([]Ply, error) {
	g := chess.NewGame()
	notation := chess.AlgebraicNotation{}
	var out []Ply

	for i, san := range moves {
		pos := g.Position()
		mover := pos.Turn()
		fenBefore := pos.String()

		m, err := notation.Decode(pos, san)
		if err != nil {
			return out, fmt.Errorf("%w: %q at ply %d: %v", ErrIllegalMove, san, i, err)
		}
		if err := g.Move(m); err != nil {
			return out, fmt.Errorf("%w: %q at ply %d: %v", ErrIllegalMove, san, i, err)
		}

		if mover != analyzed {
			continue
		}
		out = append(out, Ply{
			Index:      i,
			MoveNumber: i/2 + 1,
			SAN:        san,
			Color:      mover,
			FENBefore:  fenBefore,
			FENAfter:   g.Position().String(),
			Terminal:   g.Outcome() != chess.NoOutcome,
		})
	}
	return out, nil
}
