package tactics

import (
	"context"
	"strings"

	"github.com/notnil/chess"
	"github.com/rs/zerolog/log"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/identity"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/pgnio"
)

// Ledger is the set of game identities already analyzed. Appended to only
// after a game's analysis ran to completion (a not-a-participant skip counts
// as completion).
type Ledger interface {
	Contains(id string) bool
	Add(id string) error
}

// Selector decides which side of a game belongs to the analyzed player.
// ok is false when the player sat this game out.
type Selector func(rec *pgnio.GameRecord) (analyzed chess.Color, ok bool)

// PlayerSelector matches a username against the White and Black headers,
// case-insensitively.
func PlayerSelector(username string) Selector {
	return func(rec *pgnio.GameRecord) (chess.Color, bool) {
		switch {
		case strings.EqualFold(rec.White, username):
			return chess.White, true
		case strings.EqualFold(rec.Black, username):
			return chess.Black, true
		default:
			return chess.White, false
		}
	}
}

// Summary is the final count of a discovery run.
type Summary struct {
	NewlyAnalyzed  int
	Skipped        int
	PositionsFound int
}

// Event is one item in a discovery run's event stream: either a discovered
// position or a per-game progress tick. A game's position events always
// arrive consecutively, before its progress event.
type Event struct {
	// Position is set on finding events, nil on progress events.
	Position *DiscoveredPosition

	// Progress is set once per completed game.
	Progress *Progress
}

// Run is a discovery run in flight. The caller must drain Events before
// calling Wait.
type Run struct {
	events  chan Event
	summary *Summary
	err     error
}

// Events streams findings and progress as games complete. Closed when the
// run is over.
func (r *Run) Events() <-chan Event { return r.events }

// Wait drains any remaining events and returns the run's summary. The error
// is the context's when the run was cancelled.
func (r *Run) Wait() (*Summary, error) {
	for range r.events {
	}
	return r.summary, r.err
}

// Orchestrator is the top-level entry point: it filters already-analyzed
// games, dispatches the rest to the pool, and streams result batches to the
// caller as events.
type Orchestrator struct {
	pool         *Pool
	ledger       Ledger
	skipAnalyzed bool
}

// NewOrchestrator wires a pool to a ledger.
func NewOrchestrator(pool *Pool, ledger Ledger, skipAnalyzed bool) *Orchestrator {
	return &Orchestrator{pool: pool, ledger: ledger, skipAnalyzed: skipAnalyzed}
}

// Discover analyzes every not-yet-analyzed game in records, streaming each
// DiscoveredPosition on the returned run's event channel as its game
// completes. Games whose identity is already in the ledger (or duplicated
// within records) are skipped and counted. Every game that runs to
// completion is marked in the ledger, whether or not it produced findings.
func (o *Orchestrator) Discover(ctx context.Context, records []*pgnio.GameRecord, selector Selector) *Run {
	r := &Run{events: make(chan Event, 64)}
	go func() {
		defer close(r.events)
		r.summary, r.err = o.run(ctx, records, selector, r.events)
	}()
	return r
}

func (o *Orchestrator) run(
	ctx context.Context,
	records []*pgnio.GameRecord,
	selector Selector,
	events chan<- Event,
) (*Summary, error) {
	summary := &Summary{}

	seen := map[string]struct{}{}
	var tasks []Task
	for i, rec := range records {
		if rec.Identity == "" {
			rec.Identity = identity.Resolve(rec.Raw)
		}
		if _, dup := seen[rec.Identity]; dup {
			summary.Skipped++
			continue
		}
		seen[rec.Identity] = struct{}{}
		if o.skipAnalyzed && o.ledger.Contains(rec.Identity) {
			summary.Skipped++
			continue
		}
		color, participant := selector(rec)
		tasks = append(tasks, Task{Record: rec, Index: i, Analyzed: color, Participant: participant})
	}
	log.Info().
		Int("games", len(records)).
		Int("to-analyze", len(tasks)).
		Int("skipped", summary.Skipped).
		Msg("starting discovery run")

	err := o.pool.Run(ctx, tasks, func(out *GameOutcome) {
		for _, pos := range out.Positions {
			events <- Event{Position: pos}
		}
		summary.NewlyAnalyzed++
		summary.PositionsFound += len(out.Positions)
		if lerr := o.ledger.Add(out.GameID); lerr != nil {
			log.Error().Err(lerr).Str("game", out.GameID).Msg("ledger append failed")
		}
	}, func(p Progress) {
		events <- Event{Progress: &p}
	})

	log.Info().
		Int("newly-analyzed", summary.NewlyAnalyzed).
		Int("skipped", summary.Skipped).
		Int("positions-found", summary.PositionsFound).
		Msg("discovery run finished")
	return summary, err
}
