package tactics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	retry "github.com/avast/retry-go/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/engine"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/sysres"
)

// EvaluatorFactory builds one evaluator session for a worker, given its
// share of the hash-memory budget.
type EvaluatorFactory func(hashMb int) (engine.Evaluator, error)

// PoolConfig configures a discovery run's worker pool.
type PoolConfig struct {
	// MaxWorkers caps the pool size; <= 0 means free cores decide.
	MaxWorkers int

	// LoadCeiling is the fraction of total RAM the run may claim.
	LoadCeiling float64

	Factory  EvaluatorFactory
	Analysis *AnalysisConfig
}

// PoolState is a transient view of a running pool, read by progress
// callbacks.
type PoolState struct {
	ActiveWorkers  int
	TasksRemaining int
	TasksCompleted int
	PositionsFound int
}

// Pool distributes per-game analysis across evaluator-owning workers. Each
// worker owns exactly one evaluator session for its lifetime and processes
// one game end-to-end before taking the next task.
type Pool struct {
	cfg PoolConfig

	total          int
	activeWorkers  atomic.Int32
	tasksCompleted atomic.Int64
	positionsFound atomic.Int64
	setupFailures  atomic.Int32
}

// NewPool creates a worker pool. It is sized lazily: Run takes a fresh
// resource snapshot each time.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.Analysis == nil {
		cfg.Analysis = DefaultAnalysisConfig()
	}
	if cfg.LoadCeiling <= 0 || cfg.LoadCeiling > 1 {
		cfg.LoadCeiling = 0.75
	}
	return &Pool{cfg: cfg}
}

// State returns the pool's current counters.
func (p *Pool) State() PoolState {
	completed := int(p.tasksCompleted.Load())
	return PoolState{
		ActiveWorkers:  int(p.activeWorkers.Load()),
		TasksRemaining: p.total - completed,
		TasksCompleted: completed,
		PositionsFound: int(p.positionsFound.Load()),
	}
}

// Run analyzes every task, invoking sink once per completed game with that
// game's atomic result batch, and progress after each game. Sink and
// progress calls are serialized. Cancellation is cooperative: in-flight
// evaluator requests complete, the current game is abandoned unemitted, and
// no further tasks are taken.
func (p *Pool) Run(ctx context.Context, tasks []Task, sink func(*GameOutcome), progress func(Progress)) error {
	p.total = len(tasks)
	p.tasksCompleted.Store(0)
	p.positionsFound.Store(0)
	p.setupFailures.Store(0)
	if len(tasks) == 0 {
		return nil
	}

	snap := sysres.Sample()
	budget := sysres.ComputeBudget(snap, p.cfg.MaxWorkers, p.cfg.LoadCeiling)
	log.Info().
		Float64("cpu-percent", snap.CPUPercent).
		Int("logical-cores", snap.LogicalCores).
		Int("free-ram-mb", snap.FreeRAMMb).
		Int("workers", budget.Workers).
		Int("hash-per-worker-mb", budget.HashPerWorkerMb).
		Int("games", len(tasks)).
		Msg("sized analysis pool")

	taskCh := make(chan Task, len(tasks))
	for _, t := range tasks {
		taskCh <- t
	}
	close(taskCh)

	var mu sync.Mutex
	emit := func(out *GameOutcome) {
		mu.Lock()
		defer mu.Unlock()
		sink(out)
		completed := int(p.tasksCompleted.Add(1))
		if progress != nil {
			progress(Progress{Completed: completed, Total: p.total})
		}
	}

	if budget.Workers == 1 {
		return p.runSequential(ctx, taskCh, emit, budget.HashPerWorkerMb)
	}

	g := errgroup.Group{}
	for i := 0; i < budget.Workers; i++ {
		workerID := i
		g.Go(func() error {
			return p.runWorker(ctx, workerID, budget.HashPerWorkerMb, taskCh, emit)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// If no worker managed to obtain an evaluator, the parallel setup
	// failed wholesale; fall back to a single sequential worker with
	// identical output semantics.
	if int(p.setupFailures.Load()) == budget.Workers {
		log.Warn().Msg("parallel setup failed, falling back to sequential analysis")
		return p.runSequential(ctx, taskCh, emit, budget.HashPerWorkerMb)
	}
	return ctx.Err()
}

// runWorker owns one evaluator session and drains tasks until the queue is
// empty or the run is cancelled. Session setup failures are not fatal to the
// pool; the worker just bows out.
func (p *Pool) runWorker(ctx context.Context, id, hashMb int, tasks <-chan Task, emit func(*GameOutcome)) error {
	logger := log.With().Int("worker", id).Logger()

	var eval engine.Evaluator
	err := retry.Do(
		func() error {
			var ferr error
			eval, ferr = p.cfg.Factory(hashMb)
			return ferr
		},
		retry.Attempts(3),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		logger.Error().Err(err).Msg("could not start evaluator session")
		p.setupFailures.Add(1)
		return nil
	}
	defer eval.Close()

	p.activeWorkers.Add(1)
	defer p.activeWorkers.Add(-1)
	logger.Debug().Msg("worker started")

	analyzer := NewAnalyzer(eval, p.cfg.Analysis)
	for task := range tasks {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("worker stopping on cancellation")
			return nil
		default:
		}
		p.processTask(ctx, analyzer, task, emit)
	}
	return nil
}

// runSequential is the single-worker fallback path. Same per-game algorithm,
// same emit semantics.
func (p *Pool) runSequential(ctx context.Context, tasks <-chan Task, emit func(*GameOutcome), hashMb int) error {
	eval, err := p.cfg.Factory(hashMb)
	if err != nil {
		return err
	}
	defer eval.Close()

	p.activeWorkers.Add(1)
	defer p.activeWorkers.Add(-1)

	analyzer := NewAnalyzer(eval, p.cfg.Analysis)
	for task := range tasks {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		p.processTask(ctx, analyzer, task, emit)
	}
	return ctx.Err()
}

// processTask runs one game and emits its batch, unless the game was
// abandoned mid-analysis by cancellation.
func (p *Pool) processTask(ctx context.Context, analyzer *Analyzer, task Task, emit func(*GameOutcome)) {
	out := analyzer.AnalyzeGame(ctx, task)
	if out.Err != nil {
		if errors.Is(out.Err, context.Canceled) || errors.Is(out.Err, context.DeadlineExceeded) {
			log.Debug().Str("game", out.GameID).Msg("game abandoned by cancellation")
			return
		}
	}
	p.positionsFound.Add(int64(len(out.Positions)))
	emit(out)
}
