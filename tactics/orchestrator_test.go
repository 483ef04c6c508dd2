package tactics

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/engine"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/pgnio"
)

// memLedger counts Add calls per identity so tests can assert exactly-once.
type memLedger struct {
	mu sync.Mutex
	m  map[string]int
}

func newMemLedger() *memLedger { return &memLedger{m: map[string]int{}} }

func (l *memLedger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m[id] > 0
}

func (l *memLedger) Add(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[id]++
	return nil
}

func (l *memLedger) adds(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.m[id]
}

func fakeFactory(fake *fakeEvaluator) EvaluatorFactory {
	return func(int) (engine.Evaluator, error) { return fake, nil }
}

func testPool(factory EvaluatorFactory) *Pool {
	return NewPool(PoolConfig{
		MaxWorkers:  1, // deterministic single-worker path
		LoadCeiling: 0.75,
		Factory:     factory,
		Analysis:    DefaultAnalysisConfig(),
	})
}

// drain collects a run's events, split by kind, and returns its summary.
func drain(t *testing.T, run *Run) ([]*DiscoveredPosition, []Progress, *Summary, error) {
	t.Helper()
	var positions []*DiscoveredPosition
	var ticks []Progress
	for ev := range run.Events() {
		switch {
		case ev.Position != nil:
			positions = append(positions, ev.Position)
		case ev.Progress != nil:
			ticks = append(ticks, *ev.Progress)
		}
	}
	summary, err := run.Wait()
	return positions, ticks, summary, err
}

const quietGameText = `[Event "Live Chess"]
[White "alice"]
[Black "carol"]
[Date "2024.02.01"]
[Result "1/2-1/2"]
[Link "https://www.chess.com/game/live/40001"]

1. e4 e5 2. Nf3 Nc6 1/2-1/2`

func TestDiscoverFindsAndLedgersBlunderGame(t *testing.T) {
	fake := newFakeEvaluator()
	scriptBlunder(t, fake)

	ledger := newMemLedger()
	orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, true)

	run := orch.Discover(context.Background(),
		pgnio.ParseArchive(blunderGameText), PlayerSelector("alice"))
	found, ticks, summary, err := drain(t, run)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewlyAnalyzed)
	assert.Equal(t, 0, summary.Skipped)
	assert.Equal(t, 1, summary.PositionsFound)

	require.Len(t, found, 1)
	assert.Equal(t, "Qh5", found[0].UserMove)
	assert.Equal(t, SeverityBlunder, found[0].Severity)

	require.Len(t, ticks, 1)
	assert.Equal(t, Progress{Completed: 1, Total: 1}, ticks[0])

	assert.Equal(t, 1, ledger.adds("chesscom_31337"))
}

func TestDiscoverRerunSkipsLedgeredGames(t *testing.T) {
	fake := newFakeEvaluator()
	scriptBlunder(t, fake)

	ledger := newMemLedger()
	archive := blunderGameText + "\n\n" + quietGameText
	records := pgnio.ParseArchive(archive)
	require.Len(t, records, 2)

	runOnce := func() *Summary {
		orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, true)
		_, _, summary, err := drain(t, orch.Discover(context.Background(), records, PlayerSelector("alice")))
		require.NoError(t, err)
		return summary
	}

	first := runOnce()
	assert.Equal(t, 2, first.NewlyAnalyzed)
	assert.Equal(t, 0, first.Skipped)

	second := runOnce()
	assert.Equal(t, 0, second.NewlyAnalyzed)
	assert.Equal(t, 2, second.Skipped)
	assert.Equal(t, 0, second.PositionsFound)

	// Exactly-once semantics across runs.
	assert.Equal(t, 1, ledger.adds("chesscom_31337"))
	assert.Equal(t, 1, ledger.adds("chesscom_40001"))
}

func TestDiscoverDedupsWithinBatch(t *testing.T) {
	fake := newFakeEvaluator()
	ledger := newMemLedger()
	orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, true)

	// Same game appears twice in one archive.
	records := pgnio.ParseArchive(quietGameText + "\n\n" + quietGameText)
	require.Len(t, records, 2)

	_, _, summary, err := drain(t, orch.Discover(context.Background(), records, PlayerSelector("alice")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewlyAnalyzed)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 1, ledger.adds("chesscom_40001"))
}

func TestDiscoverSkipAnalyzedDisabled(t *testing.T) {
	fake := newFakeEvaluator()
	ledger := newMemLedger()
	require.NoError(t, ledger.Add("chesscom_40001"))

	orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, false)
	_, _, summary, err := drain(t, orch.Discover(context.Background(),
		pgnio.ParseArchive(quietGameText), PlayerSelector("alice")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewlyAnalyzed)
	assert.Equal(t, 0, summary.Skipped)
}

func TestDiscoverNonParticipantStillLedgered(t *testing.T) {
	fake := newFakeEvaluator()
	scriptBlunder(t, fake)

	ledger := newMemLedger()
	orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, true)

	_, _, summary, err := drain(t, orch.Discover(context.Background(),
		pgnio.ParseArchive(blunderGameText), PlayerSelector("nobody")))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.NewlyAnalyzed)
	assert.Equal(t, 0, summary.PositionsFound)
	assert.True(t, ledger.Contains("chesscom_31337"))
	assert.Empty(t, fake.evaluated, "non-participant games are never evaluated")
}

func TestDiscoverResolvesMissingIdentity(t *testing.T) {
	fake := newFakeEvaluator()
	ledger := newMemLedger()
	orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, true)

	rec := pgnio.ParseRecord(quietGameText)
	rec.Identity = ""
	_, _, _, err := drain(t, orch.Discover(context.Background(),
		[]*pgnio.GameRecord{rec}, PlayerSelector("alice")))
	require.NoError(t, err)

	assert.Equal(t, "chesscom_40001", rec.Identity)
	assert.True(t, ledger.Contains("chesscom_40001"))
}

func TestDiscoverCancellationAbandonsRun(t *testing.T) {
	fake := newFakeEvaluator()
	ledger := newMemLedger()
	orch := NewOrchestrator(testPool(fakeFactory(fake)), ledger, true)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, summary, err := drain(t, orch.Discover(ctx,
		pgnio.ParseArchive(quietGameText), PlayerSelector("alice")))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, summary.NewlyAnalyzed)
	assert.False(t, ledger.Contains("chesscom_40001"), "abandoned games are never ledgered")
}

func TestDiscoverEmptyArchive(t *testing.T) {
	fake := newFakeEvaluator()
	orch := NewOrchestrator(testPool(fakeFactory(fake)), newMemLedger(), true)

	_, _, summary, err := drain(t, orch.Discover(context.Background(), nil, PlayerSelector("alice")))
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, summary)
}

func TestPoolSessionSetupFailure(t *testing.T) {
	boom := errors.New("engine binary missing")
	pool := testPool(func(int) (engine.Evaluator, error) { return nil, boom })

	err := pool.Run(context.Background(),
		[]Task{whiteTask(quietGameText)},
		func(*GameOutcome) {}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestPoolStateCounters(t *testing.T) {
	fake := newFakeEvaluator()
	scriptBlunder(t, fake)
	pool := testPool(fakeFactory(fake))

	tasks := []Task{whiteTask(blunderGameText), whiteTask(quietGameText)}
	var outs []*GameOutcome
	err := pool.Run(context.Background(), tasks,
		func(out *GameOutcome) { outs = append(outs, out) }, nil)
	require.NoError(t, err)

	state := pool.State()
	assert.Equal(t, 2, state.TasksCompleted)
	assert.Equal(t, 0, state.TasksRemaining)
	assert.Equal(t, 1, state.PositionsFound)
	assert.Equal(t, 0, state.ActiveWorkers)
	assert.Len(t, outs, 2)
}

func TestPoolParallelWorkersCompleteAllGames(t *testing.T) {
	// Let the resource snapshot decide worker count; results must be
	// identical either way, just possibly reordered.
	fake := newFakeEvaluator()
	scriptBlunder(t, fake)
	pool := NewPool(PoolConfig{
		MaxWorkers:  4,
		LoadCeiling: 0.75,
		Factory:     fakeFactory(fake),
		Analysis:    DefaultAnalysisConfig(),
	})

	tasks := []Task{
		whiteTask(blunderGameText),
		whiteTask(quietGameText),
		whiteTask(blunderGameText),
	}

	var mu sync.Mutex
	byGame := map[string]int{}
	var last Progress
	err := pool.Run(context.Background(), tasks, func(out *GameOutcome) {
		mu.Lock()
		defer mu.Unlock()
		byGame[out.GameID]++
	}, func(p Progress) {
		mu.Lock()
		defer mu.Unlock()
		last = p
	})
	require.NoError(t, err)

	assert.Equal(t, 2, byGame["chesscom_31337"])
	assert.Equal(t, 1, byGame["chesscom_40001"])
	assert.Equal(t, Progress{Completed: 3, Total: 3}, last)
}
