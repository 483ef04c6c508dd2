package tactics

import (
	"math"

	"github.com/notnil/chess"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/engine"
)

const (
	// winProbK calibrates the centipawn-to-probability sigmoid.
	winProbK = 0.00368

	// clampCP bounds centipawns before the transform so mate-adjacent
	// scores don't produce saturation artifacts.
	clampCP = 1000

	// mateCP is the effective centipawn value assigned to forced mates.
	mateCP = 10000
)

// WinProbability converts a signed centipawn score into a 0-100 winning
// probability for the side the score favors. Monotonically increasing.
func WinProbability(cp float64) float64 {
	if cp > clampCP {
		cp = clampCP
	}
	if cp < -clampCP {
		cp = -clampCP
	}
	return 50 + 50*(2/(1+math.Exp(-winProbK*cp))-1)
}

// effectiveCP reduces an evaluation to a single signed centipawn figure in
// the mover's perspective. Results are White-normalized at the engine
// boundary, so Black movers flip the sign here.
func effectiveCP(res *engine.Result, mover chess.Color) float64 {
	var cp float64
	switch {
	case res.Mate > 0:
		cp = mateCP
	case res.Mate < 0:
		cp = -mateCP
	default:
		cp = float64(res.ScoreCP)
	}
	if mover == chess.Black {
		cp = -cp
	}
	return cp
}

// Classify maps a win-probability loss (0-100 scale) to a severity. The
// boundary is inclusive: a delta exactly at the blunder threshold is a
// blunder.
func Classify(delta, mistakeThreshold, blunderThreshold float64) (Severity, bool) {
	switch {
	case delta >= blunderThreshold:
		return SeverityBlunder, true
	case delta >= mistakeThreshold:
		return SeverityMistake, true
	default:
		return 0, false
	}
}
