package engine

import "context"

// Result is one evaluation of a position. Scores are normalized to White's
// perspective regardless of whose turn it was in the submitted FEN; callers
// re-derive the analyzed player's perspective themselves.
type Result struct {
	Depth int

	// ScoreCP is the signed score in centipawns. Ignored when Mate != 0.
	ScoreCP int

	// Mate is the signed number of moves until mate (positive: White mates),
	// or 0 when no forced mate was found.
	Mate int

	// PV is the principal variation in engine (UCI) move notation.
	PV []string

	Nodes    uint64
	BestMove string
}

// Empty reports whether the engine produced no usable output, e.g. after a
// timed-out request with no intermediate lines.
func (r *Result) Empty() bool {
	return r == nil || (r.Depth == 0 && len(r.PV) == 0 && r.BestMove == "")
}

// Evaluator is the capability the analysis pipeline needs from an evaluation
// session. *Session implements it; tests substitute scripted fakes.
type Evaluator interface {
	Evaluate(ctx context.Context, fen string, depth int) (*Result, error)
	NewGame() error
	Close() error
}
