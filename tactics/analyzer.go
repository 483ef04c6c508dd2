// Package tactics implements the tactical discovery engine: replaying games
// against an external evaluator, classifying win-probability losses, and
// synthesizing the corrective lines the player should study.
package tactics

import (
	"context"
	"fmt"
	"strings"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/engine"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/pgnio"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/replay"
)

// AnalysisConfig holds the per-game analysis knobs.
type AnalysisConfig struct {
	// Depth is the evaluator search depth per position.
	Depth int

	// Win-probability loss thresholds on the 0-100 scale.
	MistakeThreshold float64
	BlunderThreshold float64

	// MaxLineMoves caps how many "our" moves a correct line may contain.
	MaxLineMoves int
}

// DefaultAnalysisConfig returns sensible defaults.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Depth:            18,
		MistakeThreshold: 20,
		BlunderThreshold: 30,
		MaxLineMoves:     5,
	}
}

// Analyzer analyzes one game at a time against a single evaluator session.
// Analysis within a game is inherently sequential; parallelism lives in the
// pool, across games.
type Analyzer struct {
	cfg  *AnalysisConfig
	eval engine.Evaluator
}

// NewAnalyzer creates an analyzer bound to an evaluator session.
func NewAnalyzer(eval engine.Evaluator, cfg *AnalysisConfig) *Analyzer {
	if cfg == nil {
		cfg = DefaultAnalysisConfig()
	}
	return &Analyzer{cfg: cfg, eval: eval}
}

// AnalyzeGame replays the task's game and evaluates every ply by the
// analyzed side. Input and evaluator errors degrade the result (skip the
// ply or stop the replay); only cancellation abandons the game, flagged via
// GameOutcome.Err.
func (a *Analyzer) AnalyzeGame(ctx context.Context, task Task) *GameOutcome {
	out := &GameOutcome{GameID: task.Record.Identity, Index: task.Index}
	if !task.Participant {
		out.NotParticipant = true
		return out
	}

	// Reset evaluator state between unrelated games.
	if err := a.eval.NewGame(); err != nil {
		log.Warn().Err(err).Str("game", out.GameID).Msg("evaluator reset failed")
	}

	moves := pgnio.MoveTokens(task.Record.Raw)
	plies, err := replay.Plies(moves, task.Analyzed)
	if err != nil {
		// Replay stops at the offending move; plies found so far stand.
		log.Warn().Err(err).Str("game", out.GameID).Msg("replay stopped early")
	}

	for _, ply := range plies {
		select {
		case <-ctx.Done():
			out.Err = ctx.Err()
			return out
		default:
		}

		// A move that ends the game leaves nothing to evaluate and is
		// never a finding.
		if ply.Terminal {
			continue
		}

		found := a.analyzePly(ctx, task, ply)
		if found != nil {
			out.Positions = append(out.Positions, found)
		}
	}
	return out
}

// analyzePly evaluates a single ply and returns a DiscoveredPosition if it
// qualifies, nil otherwise.
func (a *Analyzer) analyzePly(ctx context.Context, task Task, ply replay.Ply) *DiscoveredPosition {
	evalBefore, err := a.eval.Evaluate(ctx, ply.FENBefore, a.cfg.Depth)
	if err != nil {
		log.Warn().Err(err).Int("ply", ply.Index).Msg("pre-move evaluation failed")
		return nil
	}
	evalAfter, err := a.eval.Evaluate(ctx, ply.FENAfter, a.cfg.Depth)
	if err != nil {
		log.Warn().Err(err).Int("ply", ply.Index).Msg("post-move evaluation failed")
		return nil
	}
	if evalBefore.Empty() || evalAfter.Empty() {
		return nil
	}

	before := WinProbability(effectiveCP(evalBefore, ply.Color))
	after := WinProbability(effectiveCP(evalAfter, ply.Color))
	delta := before - after

	severity, found := Classify(delta, a.cfg.MistakeThreshold, a.cfg.BlunderThreshold)
	if !found {
		return nil
	}

	correctLine := SynthesizeLine(ply.FENBefore, evalBefore.PV, a.cfg.MaxLineMoves)
	opponentBest := ""
	if len(evalAfter.PV) > 0 {
		opponentBest = uciToSAN(ply.FENAfter, evalAfter.PV[0])
	}

	log.Debug().
		Str("game", task.Record.Identity).
		Str("move", ply.SAN).
		Float64("before", before).
		Float64("after", after).
		Str("severity", severity.String()).
		Msg("found tactic")

	return &DiscoveredPosition{
		FEN:          ply.FENBefore,
		UserMove:     ply.SAN,
		CorrectLine:  correctLine,
		Severity:     severity,
		Analysis:     narrative(ply, before, after, severity, correctLine),
		OpponentBest: opponentBest,
		Ply:          ply.Index,
		SideToMove:   colorLetter(ply.Color),
		GameID:       task.Record.Identity,
		White:        task.Record.White,
		Black:        task.Record.Black,
		Date:         task.Record.Date,
	}
}

// narrative builds the display summary for a finding.
func narrative(ply replay.Ply, before, after float64, severity Severity, correctLine []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s dropped the win probability from %.1f%% to %.1f%% (%s).",
		numberedMove(ply), before, after, severity)
	if len(correctLine) > 0 {
		fmt.Fprintf(&b, " Better was %s.", correctLine[0])
	}
	return b.String()
}

func numberedMove(ply replay.Ply) string {
	if ply.Color == chess.Black {
		return fmt.Sprintf("%d... %s", ply.MoveNumber, ply.SAN)
	}
	return fmt.Sprintf("%d. %s", ply.MoveNumber, ply.SAN)
}

func colorLetter(c chess.Color) string {
	if c == chess.Black {
		return "b"
	}
	return "w"
}
