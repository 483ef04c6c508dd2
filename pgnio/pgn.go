// Package pgnio implements lightweight PGN input/output for the discovery
// engine: splitting archives into individual games, extracting the header
// fields the identity resolver and analyzer need, and injecting resolved
// identities back into the text.
package pgnio

import (
	"errors"
	"regexp"
	"strings"

	"github.com/samber/lo"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/identity"
)

// GameRecord is one raw game text plus its parsed header fields. Immutable
// once parsed.
type GameRecord struct {
	Raw    string
	White  string
	Black  string
	Date   string
	Result string
	Link   string
	Site   string

	// Identity is the resolved dedup token for this game.
	Identity string
}

var (
	headerLineRe = regexp.MustCompile(`(?m)^\[\w+\s+"[^"]*"\]\s*$`)
	commentRe    = regexp.MustCompile(`\{[^}]*\}`)
	nagRe        = regexp.MustCompile(`\$\d+`)
	moveNumRe    = regexp.MustCompile(`^\d+\.+$`)
)

// ErrNoMoves is returned for a game text with headers but no move list.
var ErrNoMoves = errors.New("pgnio: game has no moves")

// SplitGames splits a PGN archive into individual game texts. Games are
// delimited by an [Event ...] tag that follows a move section or start of
// input.
func SplitGames(archive string) []string {
	var games []string
	var cur []string
	inMoves := false
	for _, line := range strings.Split(archive, "\n") {
		trimmed := strings.TrimSpace(line)
		isTag := strings.HasPrefix(trimmed, "[") && headerLineRe.MatchString(trimmed)
		if isTag && inMoves {
			// A new game begins.
			games = append(games, strings.TrimSpace(strings.Join(cur, "\n")))
			cur = cur[:0]
			inMoves = false
		}
		if trimmed != "" && !isTag {
			inMoves = true
		}
		cur = append(cur, line)
	}
	if last := strings.TrimSpace(strings.Join(cur, "\n")); last != "" {
		games = append(games, last)
	}
	return games
}

// ParseRecord parses a single game text into a GameRecord and resolves its
// identity.
func ParseRecord(gameText string) *GameRecord {
	return &GameRecord{
		Raw:      gameText,
		White:    identity.Tag(gameText, "White"),
		Black:    identity.Tag(gameText, "Black"),
		Date:     identity.Tag(gameText, "Date"),
		Result:   identity.Tag(gameText, "Result"),
		Link:     identity.Tag(gameText, "Link"),
		Site:     identity.Tag(gameText, "Site"),
		Identity: identity.Resolve(gameText),
	}
}

// ParseArchive splits and parses every game in an archive.
func ParseArchive(archive string) []*GameRecord {
	return lo.Map(SplitGames(archive), func(text string, _ int) *GameRecord {
		return ParseRecord(text)
	})
}

// InjectIdentity writes the resolved identity into the game text as a
// ChessPrepId tag, so that future resolution is O(1). Texts that already
// carry the marker are returned unchanged.
func InjectIdentity(gameText, id string) string {
	if identity.Tag(gameText, identity.MarkerTag) != "" {
		return gameText
	}
	marker := `[` + identity.MarkerTag + ` "` + id + `"]`
	locs := headerLineRe.FindAllStringIndex(gameText, -1)
	if len(locs) == 0 {
		return marker + "\n" + gameText
	}
	end := locs[len(locs)-1][1]
	return gameText[:end] + "\n" + marker + gameText[end:]
}

// MoveTokens extracts the SAN move tokens from a game text, dropping
// headers, comments, NAGs, move numbers, and the game result marker.
// Variations are not supported and their content is dropped.
func MoveTokens(gameText string) []string {
	body := headerLineRe.ReplaceAllString(gameText, "")
	body = commentRe.ReplaceAllString(body, " ")
	body = nagRe.ReplaceAllString(body, " ")
	body = stripVariations(body)

	var moves []string
	for _, tok := range strings.Fields(body) {
		switch tok {
		case "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		if moveNumRe.MatchString(tok) {
			continue
		}
		// Handle "1.e4" style glued move numbers.
		if i := strings.LastIndex(tok, "."); i >= 0 {
			tok = tok[i+1:]
		}
		// Annotation suffixes ("Qh5?!", "e4!") are commentary, not moves.
		tok = strings.TrimRight(tok, "!?")
		if tok == "" {
			continue
		}
		moves = append(moves, tok)
	}
	return moves
}

// stripVariations removes parenthesized variations, including nested ones.
func stripVariations(s string) string {
	var b strings.Builder
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
