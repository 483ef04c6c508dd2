// Command chess-auto-prep discovers tactical blunders in a PGN archive by
// replaying each game against an external evaluator, and stores the
// qualifying positions for later study.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/config"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/engine"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/pgnio"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/store"
	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/tactics"
)

var (
	pgnPath  = flag.String("pgn", "", "PGN archive to analyze")
	username = flag.String("user", "", "player whose games to analyze")
)

func main() {
	flag.Parse()

	cfg := config.DefaultConfig()
	if err := cfg.Load(flag.Args()); err != nil {
		log.Fatal().Err(err).Msg("loading config")
	}

	if cfg.GetBool(config.KeyDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	log.Info().Msgf("Loaded config: %v", cfg.AllSettings())

	if *pgnPath == "" || *username == "" {
		log.Fatal().Msg("both -pgn and -user are required")
	}

	data, err := os.ReadFile(*pgnPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *pgnPath).Msg("reading PGN archive")
	}
	records := pgnio.ParseArchive(string(data))
	log.Info().Int("games", len(records)).Msg("parsed archive")

	db, err := store.Open(cfg.GetString(config.KeyDBPath))
	if err != nil {
		log.Fatal().Err(err).Msg("opening tactics database")
	}
	defer db.Close()

	ledger, err := db.LoadLedger()
	if err != nil {
		log.Fatal().Err(err).Msg("loading analyzed-games ledger")
	}

	analysisCfg := &tactics.AnalysisConfig{
		Depth:            cfg.GetInt(config.KeyEvalDepth),
		MistakeThreshold: cfg.GetFloat64(config.KeyMistakeThreshold),
		BlunderThreshold: cfg.GetFloat64(config.KeyBlunderThreshold),
		MaxLineMoves:     cfg.GetInt(config.KeyMaxLineMoves),
	}
	pool := tactics.NewPool(tactics.PoolConfig{
		MaxWorkers:  cfg.GetInt(config.KeyMaxWorkers),
		LoadCeiling: cfg.GetFloat64(config.KeyLoadCeiling),
		Analysis:    analysisCfg,
		Factory: func(hashMb int) (engine.Evaluator, error) {
			return engine.NewProcessSession(cfg.GetString(config.KeyEnginePath), engine.Options{
				HashMb:         hashMb,
				Threads:        cfg.GetInt(config.KeyEngineThreads),
				RequestTimeout: cfg.GetDuration(config.KeyRequestTimeout),
			})
		},
	})
	orch := tactics.NewOrchestrator(pool, ledger, cfg.GetBool(config.KeySkipAnalyzed))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	run := orch.Discover(ctx, records, tactics.PlayerSelector(*username))
	for ev := range run.Events() {
		switch {
		case ev.Position != nil:
			if err := db.SaveTactic(ev.Position); err != nil {
				log.Error().Err(err).Str("game", ev.Position.GameID).Msg("saving tactic")
			}
		case ev.Progress != nil:
			log.Info().Int("completed", ev.Progress.Completed).
				Int("total", ev.Progress.Total).Msg("progress")
		}
	}
	summary, err := run.Wait()
	if err != nil && ctx.Err() == nil {
		log.Fatal().Err(err).Msg("discovery run failed")
	}

	log.Info().
		Int("newly-analyzed", summary.NewlyAnalyzed).
		Int("skipped", summary.Skipped).
		Int("positions-found", summary.PositionsFound).
		Msg("done")
}
