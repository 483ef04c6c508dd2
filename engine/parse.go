package engine

import (
	"strconv"
	"strings"
)

// applyInfoLine folds one "info ..." line into the result. Scores stay in
// the engine's side-to-move perspective here; the session normalizes at the
// end of the request. Lines for secondary multipv entries are ignored.
func applyInfoLine(line string, r *Result) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return
	}
	// Secondary multipv entries are ignored wholesale; check before any
	// field mutates the result.
	for i := 0; i+1 < len(fields); i++ {
		if fields[i] == "multipv" && fields[i+1] != "1" {
			return
		}
	}
	for i := 0; i < len(fields); i++ {
		switch fields[i] {
		case "depth":
			if i+1 < len(fields) {
				if d, err := strconv.Atoi(fields[i+1]); err == nil {
					r.Depth = d
				}
			}
		case "score":
			if i+2 < len(fields) {
				v, err := strconv.Atoi(fields[i+2])
				if err != nil {
					continue
				}
				switch fields[i+1] {
				case "cp":
					r.ScoreCP = v
					r.Mate = 0
				case "mate":
					r.Mate = v
					r.ScoreCP = 0
				}
			}
		case "nodes":
			if i+1 < len(fields) {
				if n, err := strconv.ParseUint(fields[i+1], 10, 64); err == nil {
					r.Nodes = n
				}
			}
		case "pv":
			if i+1 < len(fields) {
				r.PV = append(r.PV[:0], fields[i+1:]...)
				return // pv is always the last token group
			}
		}
	}
}

// parseBestMove extracts the move from a terminal "bestmove e2e4 [ponder ...]"
// line. Returns "" for "(none)".
func parseBestMove(line string) string {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "bestmove" || fields[1] == "(none)" {
		return ""
	}
	return fields[1]
}

// blackToMove reports whether the FEN's side to move is Black.
func blackToMove(fen string) bool {
	fields := strings.Fields(fen)
	return len(fields) >= 2 && fields[1] == "b"
}
