// Package engine implements the evaluator client: a line-oriented UCI
// session over a Transport, one in-flight request at a time, with per-request
// timeouts so a hung evaluator never stalls the pool.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options configures a session at handshake time.
type Options struct {
	// HashMb sets the engine's hash table size.
	HashMb int
	// Threads sets the engine's internal search threads. The pool runs one
	// session per worker, so this is normally 1.
	Threads int
	// RequestTimeout bounds a single Evaluate call. When it elapses, the
	// last partial result observed is returned instead of blocking.
	RequestTimeout time.Duration
}

// DefaultOptions returns the options the pool uses unless sized otherwise.
func DefaultOptions() Options {
	return Options{HashMb: 64, Threads: 1, RequestTimeout: 30 * time.Second}
}

// ErrRequestInFlight is returned when Evaluate is called while another
// request on the same session is still outstanding. The session does not
// auto-serialize concurrent calls; each worker owns exactly one session.
var ErrRequestInFlight = errors.New("engine: request already in flight")

// ErrSessionDead is returned once a session has lost protocol
// synchronization with the evaluator (a search that ignored "stop"). A dead
// session's output stream may hold lines for an earlier position, so no
// further requests are answered; the owner should close and respawn.
var ErrSessionDead = errors.New("engine: session lost synchronization with evaluator")

const handshakeTimeout = 10 * time.Second

// stopGraceCap bounds how long a timed-out search is given to acknowledge
// "stop" with its terminal bestmove line.
const stopGraceCap = 2 * time.Second

// Session is a request/response client to one long-lived evaluator process.
type Session struct {
	t    Transport
	opts Options
	log  zerolog.Logger
	busy atomic.Bool
	dead atomic.Bool
}

// NewSession performs the UCI handshake over the given transport and applies
// the engine options.
func NewSession(t Transport, opts Options) (*Session, error) {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultOptions().RequestTimeout
	}
	s := &Session{t: t, opts: opts, log: log.With().Str("component", "engine-session").Logger()}

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()
	if err := t.WaitReady(ctx); err != nil {
		return nil, fmt.Errorf("evaluator transport not ready: %w", err)
	}

	if err := t.Send("uci"); err != nil {
		return nil, err
	}
	if !s.waitFor("uciok", handshakeTimeout) {
		return nil, errors.New("engine: no uciok from evaluator")
	}
	if opts.HashMb > 0 {
		if err := t.Send(fmt.Sprintf("setoption name Hash value %d", opts.HashMb)); err != nil {
			return nil, err
		}
	}
	if opts.Threads > 0 {
		if err := t.Send(fmt.Sprintf("setoption name Threads value %d", opts.Threads)); err != nil {
			return nil, err
		}
	}
	if err := t.Send("isready"); err != nil {
		return nil, err
	}
	if !s.waitFor("readyok", handshakeTimeout) {
		return nil, errors.New("engine: no readyok from evaluator")
	}
	return s, nil
}

// NewProcessSession starts the evaluator binary at path and wraps it in a
// handshaked session.
func NewProcessSession(path string, opts Options) (*Session, error) {
	t, err := NewProcessTransport(path)
	if err != nil {
		return nil, err
	}
	s, err := NewSession(t, opts)
	if err != nil {
		_ = t.Dispose()
		return nil, err
	}
	return s, nil
}

// Evaluate requests an evaluation of the position at the given FEN and
// search depth. The returned score is normalized to White's perspective.
// If the evaluator produces no terminal bestmove line within the request
// timeout, the search is stopped and the last result observed is returned;
// the session never hands a later request the lines of an earlier one.
func (s *Session) Evaluate(ctx context.Context, fen string, depth int) (*Result, error) {
	if s.dead.Load() {
		return nil, ErrSessionDead
	}
	if !s.busy.CompareAndSwap(false, true) {
		return nil, ErrRequestInFlight
	}
	defer s.busy.Store(false)

	if err := s.t.Send("position fen " + fen); err != nil {
		return nil, err
	}
	if err := s.t.Send(fmt.Sprintf("go depth %d", depth)); err != nil {
		return nil, err
	}

	res := &Result{}
	timer := time.NewTimer(s.opts.RequestTimeout)
	defer timer.Stop()
	stopped := false

drain:
	for {
		select {
		case line, ok := <-s.t.Lines():
			if !ok {
				s.log.Warn().Str("fen", fen).Msg("evaluator stream closed mid-request")
				s.dead.Store(true)
				break drain
			}
			if strings.HasPrefix(line, "info") {
				applyInfoLine(line, res)
			} else if strings.HasPrefix(line, "bestmove") {
				res.BestMove = parseBestMove(line)
				break drain
			}
		case <-timer.C:
			if stopped {
				// The search ignored "stop"; its output will arrive at
				// some arbitrary later point, so the stream can no
				// longer be trusted to answer the request it was asked.
				s.log.Error().Str("fen", fen).
					Msg("evaluator unresponsive to stop, marking session dead")
				s.dead.Store(true)
				break drain
			}
			// Stop the search and keep draining: the engine answers
			// "stop" with a final bestmove, which both completes this
			// result and leaves the stream clean for the next request.
			s.log.Warn().Str("fen", fen).Int("depth", res.Depth).
				Msg("evaluator request timed out, stopping search")
			if err := s.t.Send("stop"); err != nil {
				s.dead.Store(true)
				break drain
			}
			stopped = true
			grace := s.opts.RequestTimeout
			if grace > stopGraceCap {
				grace = stopGraceCap
			}
			timer.Reset(grace)
		}
	}

	// Engines score from the side to move; re-normalize to White so every
	// downstream consumer shares one sign convention.
	if blackToMove(fen) {
		res.ScoreCP = -res.ScoreCP
		res.Mate = -res.Mate
	}
	return res, nil
}

// NewGame resets the evaluator's internal state between unrelated positions.
func (s *Session) NewGame() error {
	if s.dead.Load() {
		return ErrSessionDead
	}
	if err := s.t.Send("ucinewgame"); err != nil {
		return err
	}
	if err := s.t.Send("isready"); err != nil {
		return err
	}
	if !s.waitFor("readyok", handshakeTimeout) {
		return errors.New("engine: evaluator not ready after reset")
	}
	return nil
}

// Close shuts the evaluator down.
func (s *Session) Close() error {
	_ = s.t.Send("quit")
	return s.t.Dispose()
}

// waitFor drains output lines until one contains the marker, bounded by
// the timeout.
func (s *Session) waitFor(marker string, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		select {
		case line, ok := <-s.t.Lines():
			if !ok {
				return false
			}
			if strings.Contains(line, marker) {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
