// Package store provides sqlite-backed persistence for discovered tactics
// and the ledger of already-analyzed games.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Zinkelburger/Chess-Auto-Prep-sub002/tactics"
)

// DB wraps the sqlite handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS tactics (
			id INTEGER PRIMARY KEY,
			game_id TEXT NOT NULL,
			fen TEXT NOT NULL,
			user_move TEXT NOT NULL,
			correct_line TEXT NOT NULL,
			severity TEXT NOT NULL,
			analysis TEXT NOT NULL,
			opponent_best TEXT NOT NULL,
			ply INTEGER NOT NULL,
			side_to_move TEXT NOT NULL,
			white TEXT NOT NULL,
			black TEXT NOT NULL,
			date TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_tactics_game ON tactics (game_id);`,
		`CREATE TABLE IF NOT EXISTS analyzed_games (
			game_id TEXT PRIMARY KEY,
			analyzed_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range schema {
		if _, err := d.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Close closes the underlying handle.
func (d *DB) Close() error { return d.db.Close() }

// SaveTactic persists one discovered position.
func (d *DB) SaveTactic(p *tactics.DiscoveredPosition) error {
	_, err := d.db.Exec(
		`INSERT INTO tactics
		 (game_id, fen, user_move, correct_line, severity, analysis,
		  opponent_best, ply, side_to_move, white, black, date, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.GameID, p.FEN, p.UserMove, strings.Join(p.CorrectLine, " "),
		p.Severity.String(), p.Analysis, p.OpponentBest, p.Ply, p.SideToMove,
		p.White, p.Black, p.Date, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save tactic: %w", err)
	}
	return nil
}

// CountTactics returns how many tactics are stored.
func (d *DB) CountTactics() (int, error) {
	var n int
	err := d.db.QueryRow(`SELECT COUNT(*) FROM tactics`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count tactics: %w", err)
	}
	return n, nil
}

// Ledger is the persisted set of analyzed-game identities, loaded up front
// and appended to as games complete. Safe for use from the pool's emit path.
type Ledger struct {
	db *sql.DB

	mu  sync.Mutex
	ids map[string]struct{}
}

// LoadLedger reads the analyzed-games set into memory. Loading is an
// explicit initialization step, not a first-use side effect.
func (d *DB) LoadLedger() (*Ledger, error) {
	rows, err := d.db.Query(`SELECT game_id FROM analyzed_games`)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	defer rows.Close()

	ids := map[string]struct{}{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("load ledger: %w", err)
		}
		ids[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return &Ledger{db: d.db, ids: ids}, nil
}

// Contains reports whether a game identity was already analyzed.
func (l *Ledger) Contains(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.ids[id]
	return ok
}

// Add marks a game identity as analyzed, persisting immediately. Adding an
// identity twice is a no-op.
func (l *Ledger) Add(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.ids[id]; ok {
		return nil
	}
	_, err := l.db.Exec(
		`INSERT OR IGNORE INTO analyzed_games (game_id, analyzed_at) VALUES (?, ?)`,
		id, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("ledger add: %w", err)
	}
	l.ids[id] = struct{}{}
	return nil
}

// Len returns the number of analyzed games.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ids)
}
