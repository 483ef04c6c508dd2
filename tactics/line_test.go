package tactics

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position after 1.e4 e5 2.Qh5 g6, White to move. Qxe5+ forks king and rook.
const forkFEN = "rnbqkbnr/pppp1p1p/6p1/4p2Q/4P3/8/PPPP1PPP/RNB1K1NR w KQkq - 0 3"

func TestSynthesizeLineQuietFirstMove(t *testing.T) {
	// The first suggested move is always included, even when quiet, but a
	// quiet move never extends the line.
	line := SynthesizeLine(startFEN, []string{"g1f3", "g8f6", "b1c3"}, 5)
	assert.Equal(t, []string{"Nf3"}, line)
}

func TestSynthesizeLineExtendsThroughForcingMoves(t *testing.T) {
	line := SynthesizeLine(forkFEN, []string{"h5e5", "d8e7", "e5h8"}, 5)
	assert.Equal(t, []string{"Qxe5+", "Qe7", "Qxh8"}, line)
}

func TestSynthesizeLineStopsAtQuietLookahead(t *testing.T) {
	// Current move forcing, next "our" move quiet: no extension.
	line := SynthesizeLine(forkFEN, []string{"h5e5", "d8e7", "h2h3"}, 5)
	assert.Equal(t, []string{"Qxe5+"}, line)
}

func TestSynthesizeLineRespectsCap(t *testing.T) {
	line := SynthesizeLine(forkFEN, []string{"h5e5", "d8e7", "e5h8"}, 1)
	assert.Equal(t, []string{"Qxe5+"}, line)
}

func TestSynthesizeLineStopsAtUnplayablePV(t *testing.T) {
	// The second PV move is illegal; conversion stops there.
	line := SynthesizeLine(forkFEN, []string{"h5e5", "e7e5", "e5h8"}, 5)
	assert.Equal(t, []string{"Qxe5+"}, line)
}

func TestSynthesizeLineEmptyInputs(t *testing.T) {
	assert.Nil(t, SynthesizeLine(startFEN, nil, 5))
	assert.Nil(t, SynthesizeLine(startFEN, []string{"e2e4"}, 0))
	assert.Nil(t, SynthesizeLine("not a fen", []string{"e2e4"}, 5))
}

func TestUCIToSAN(t *testing.T) {
	// After 1.e4 e5 2.Qh5, Black to move.
	fen := "rnbqkbnr/pppp1ppp/8/4p2Q/4P3/8/PPPP1PPP/RNB1K1NR b KQkq - 1 2"
	assert.Equal(t, "Nf6", uciToSAN(fen, "g8f6"))
	assert.Equal(t, "", uciToSAN(fen, "e1e2"))
}

func TestForcing(t *testing.T) {
	assert.True(t, forcing("Qxe5+"))
	assert.True(t, forcing("exd5"))
	assert.True(t, forcing("Qxf7#"))
	assert.True(t, forcing("Rd8+"))
	assert.False(t, forcing("Nf3"))
	assert.False(t, forcing("O-O"))
}
