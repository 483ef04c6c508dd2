package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestApplyInfoLine(t *testing.T) {
	r := &Result{}
	applyInfoLine("info depth 14 seldepth 20 score cp 37 nodes 182035 nps 90000 pv e2e4 e7e5 g1f3", r)
	assert.Equal(t, 14, r.Depth)
	assert.Equal(t, 37, r.ScoreCP)
	assert.Equal(t, 0, r.Mate)
	assert.Equal(t, uint64(182035), r.Nodes)
	assert.Equal(t, []string{"e2e4", "e7e5", "g1f3"}, r.PV)
}

func TestApplyInfoLineMate(t *testing.T) {
	r := &Result{ScoreCP: 55}
	applyInfoLine("info depth 22 score mate -3 pv d8h4", r)
	assert.Equal(t, -3, r.Mate)
	assert.Equal(t, 0, r.ScoreCP, "mate score supersedes centipawns")
}

func TestApplyInfoLineLaterDepthWins(t *testing.T) {
	r := &Result{}
	applyInfoLine("info depth 10 score cp 12 pv e2e4", r)
	applyInfoLine("info depth 11 score cp -8 pv d2d4 d7d5", r)
	assert.Equal(t, 11, r.Depth)
	assert.Equal(t, -8, r.ScoreCP)
	assert.Equal(t, []string{"d2d4", "d7d5"}, r.PV)
}

func TestApplyInfoLineIgnoresSecondaryMultiPV(t *testing.T) {
	r := &Result{}
	applyInfoLine("info depth 10 multipv 2 score cp 99 pv a2a4", r)
	assert.Equal(t, 0, r.Depth)
	assert.Empty(t, r.PV)
}

func TestApplyInfoLineIgnoresNonInfo(t *testing.T) {
	r := &Result{}
	applyInfoLine("Stockfish 16 by the Stockfish developers", r)
	assert.True(t, r.Empty())
}

func TestParseBestMove(t *testing.T) {
	assert.Equal(t, "e2e4", parseBestMove("bestmove e2e4 ponder e7e5"))
	assert.Equal(t, "g1f3", parseBestMove("bestmove g1f3"))
	assert.Equal(t, "", parseBestMove("bestmove (none)"))
	assert.Equal(t, "", parseBestMove("readyok"))
}

func TestBlackToMove(t *testing.T) {
	assert.False(t, blackToMove("rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"))
	assert.True(t, blackToMove("rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"))
}
