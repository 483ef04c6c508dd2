package tactics

import (
	"github.com/notnil/chess"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/pgnio"
)

// Severity classifies how much winning probability a move threw away.
type Severity int

const (
	SeverityMistake Severity = iota
	SeverityBlunder
)

// String returns a string representation of the severity.
func (s Severity) String() string {
	switch s {
	case SeverityMistake:
		return "mistake"
	case SeverityBlunder:
		return "blunder"
	default:
		return "unknown"
	}
}

// DiscoveredPosition is one qualifying ply: the position before the player's
// error, what they played, and the line they should have played instead.
// Immutable once created; owned by whatever sink the caller provides.
type DiscoveredPosition struct {
	FEN         string
	UserMove    string   // the move that was played, in SAN
	CorrectLine []string // alternating our-move/their-reply sequence, SAN
	Severity    Severity
	Analysis    string // short narrative for display

	// OpponentBest is the strongest reply to the played move, in SAN.
	OpponentBest string

	Ply        int
	SideToMove string // "w" or "b" at the pre-move position

	GameID string
	White  string
	Black  string
	Date   string
}

// GameOutcome is the atomic per-game batch a worker emits: either the
// game's discovered positions, a not-a-participant skip, or a cancellation.
// A consumer never observes a game half landed.
type GameOutcome struct {
	GameID    string
	Index     int
	Positions []*DiscoveredPosition

	// NotParticipant is set when the analyzed player sat out this game.
	// Still counts as a completed analysis for ledger purposes.
	NotParticipant bool

	// Err is set only when the game was abandoned mid-analysis
	// (cancellation); such games are never emitted to sinks.
	Err error
}

// Task is the unit of work handed to a worker.
type Task struct {
	Record      *pgnio.GameRecord
	Index       int
	Analyzed    chess.Color
	Participant bool
}

// Progress is reported after each game finishes, not per-ply.
type Progress struct {
	Completed int
	Total     int
}
