package tactics

import (
	"strings"

	"github.com/notnil/chess"
)

// SynthesizeLine expands an engine principal variation (UCI moves, rooted at
// fen) into a bounded, display-ready corrective sequence in SAN:
// [ourMove, theirReply, ourMove, theirReply, ...].
//
// The first suggested move is always included. The line is extended by one
// (their-reply, our-move) pair only while both the current and the next "our"
// move are tactically forcing (capture, check, or mate), so a quiet "best
// line" the player would never be tested on is not appended.
func SynthesizeLine(fen string, pv []string, maxOurMoves int) []string {
	if maxOurMoves <= 0 || len(pv) == 0 {
		return nil
	}
	sans := sanLine(fen, pv)
	if len(sans) == 0 {
		return nil
	}

	line := []string{sans[0]}
	ourMoves := 1
	for i := 0; ourMoves < maxOurMoves && i+2 < len(sans); i += 2 {
		if !forcing(sans[i]) || !forcing(sans[i+2]) {
			break
		}
		line = append(line, sans[i+1], sans[i+2])
		ourMoves++
	}
	return line
}

// forcing reports whether a SAN move is a capture, check, or mate.
func forcing(san string) bool {
	return strings.ContainsAny(san, "x+#")
}

// sanLine converts a UCI principal variation into SAN, ply by ply. Stops at
// the first move that cannot be applied.
func sanLine(fen string, pv []string) []string {
	fenOpt, err := chess.FEN(fen)
	if err != nil {
		return nil
	}
	g := chess.NewGame(fenOpt)
	uci := chess.UCINotation{}
	alg := chess.AlgebraicNotation{}

	sans := make([]string, 0, len(pv))
	for _, mv := range pv {
		pos := g.Position()
		m, err := uci.Decode(pos, mv)
		if err != nil {
			break
		}
		san := alg.Encode(pos, m)
		if err := g.Move(m); err != nil {
			break
		}
		sans = append(sans, san)
	}
	return sans
}

// uciToSAN converts a single engine move at the given position to SAN.
// Returns "" if the move does not apply.
func uciToSAN(fen, mv string) string {
	sans := sanLine(fen, []string{mv})
	if len(sans) == 0 {
		return ""
	}
	return sans[0]
}
