// Package sqlite provides a SQLite-backed player store implementing the
// Ledger and Profiles collaborators. Reads go through a short-lived cache
// that every write invalidates.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nathoo/questbot/engine/progression"
	"github.com/nathoo/questbot/store/sqlite/migrations"
	"github.com/nathoo/questbot/types"
)

// DefaultCacheTTL is how long a stats snapshot is served from memory.
const DefaultCacheTTL = 5 * time.Minute

// Options tune the store.
type Options struct {
	CacheTTL time.Duration
	Logger   *zap.Logger
}

// Store persists player records in SQLite.
type Store struct {
	db     *sql.DB
	cache  *gocache.Cache
	logger *zap.Logger
}

type record struct {
	gold     int
	exp      int
	prestige int
}

// Open opens a SQLite player store and applies embedded migrations.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite has one writer; a single connection keeps transactions serial.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:     db,
		cache:  gocache.New(opts.CacheTTL, 2*opts.CacheTTL),
		logger: opts.Logger.Named("sqlite"),
	}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// ApplyReward implements types.Ledger. Failures are logged; the engine does
// not verify ledger calls.
func (s *Store) ApplyReward(o types.Outcome) {
	for _, p := range o.Players {
		err := s.update(context.Background(), p, func(r *record) {
			r.gold = progression.ClampGold(r.gold + progression.AmplifyGold(o.Gold, r.prestige))
			r.exp = max(r.exp+o.Exp, 0)
		}, o.Item, 1)
		if err != nil {
			s.logger.Error("apply reward", zap.String("player", string(p)), zap.Error(err))
		}
	}
}

// ApplyPenalty implements types.Ledger.
func (s *Store) ApplyPenalty(o types.Outcome) {
	for _, p := range o.Players {
		err := s.update(context.Background(), p, func(r *record) {
			r.gold = progression.ClampGold(r.gold - o.Gold)
			r.exp = max(r.exp-o.Exp, 0)
		}, o.Item, -1)
		if err != nil {
			s.logger.Error("apply penalty", zap.String("player", string(p)), zap.Error(err))
		}
	}
}

// PlayerLevel implements types.Ledger.
func (s *Store) PlayerLevel(p types.PlayerID) int {
	return s.Stats(p).Level
}

// Stats implements types.Profiles. Unknown players read as level 1 with
// nothing.
func (s *Store) Stats(p types.PlayerID) types.Stats {
	if v, ok := s.cache.Get(string(p)); ok {
		if st, ok := v.(types.Stats); ok {
			return withOwnItems(st)
		}
	}
	st, err := s.load(context.Background(), p)
	if err != nil {
		s.logger.Error("load stats", zap.String("player", string(p)), zap.Error(err))
		return types.Stats{Player: p, Level: progression.Level(0)}
	}
	s.cache.Set(string(p), st, gocache.DefaultExpiration)
	return withOwnItems(st)
}

// withOwnItems copies Items so callers cannot write into the cached entry.
func withOwnItems(st types.Stats) types.Stats {
	if st.Items != nil {
		st.Items = append([]string(nil), st.Items...)
	}
	return st
}

// Prestige implements types.Profiles.
func (s *Store) Prestige(p types.PlayerID) bool {
	ok := false
	err := s.update(context.Background(), p, func(r *record) {
		if !progression.CanPrestige(r.exp, r.gold) {
			return
		}
		r.exp -= progression.PrestigeExp()
		r.gold -= progression.PrestigeGold
		r.prestige++
		ok = true
	}, "", 0)
	if err != nil {
		s.logger.Error("prestige", zap.String("player", string(p)), zap.Error(err))
		return false
	}
	return ok
}

// Set overwrites p's gold and exp.
func (s *Store) Set(p types.PlayerID, gold, exp int) error {
	return s.update(context.Background(), p, func(r *record) {
		r.gold = progression.ClampGold(gold)
		r.exp = max(exp, 0)
	}, "", 0)
}

// Players lists stored players by name.
func (s *Store) Players(ctx context.Context) ([]types.PlayerID, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM players ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	defer rows.Close()
	var out []types.PlayerID
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan player: %w", err)
		}
		out = append(out, types.PlayerID(name))
	}
	return out, rows.Err()
}

// update runs fn on p's record inside a transaction and adjusts the item
// count by delta when item is set.
func (s *Store) update(ctx context.Context, p types.PlayerID, fn func(*record), item string, delta int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var r record
	err = tx.QueryRowContext(ctx,
		`SELECT gold, exp, prestige FROM players WHERE name = ?`, string(p),
	).Scan(&r.gold, &r.exp, &r.prestige)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read player: %w", err)
	}

	fn(&r)

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO players (name, gold, exp, prestige, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   gold = excluded.gold,
		   exp = excluded.exp,
		   prestige = excluded.prestige,
		   updated_at = excluded.updated_at`,
		string(p), r.gold, r.exp, r.prestige, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("write player: %w", err)
	}

	if item != "" && delta != 0 {
		if err := adjustItem(ctx, tx, p, item, delta); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	s.cache.Delete(string(p))
	return nil
}

func adjustItem(ctx context.Context, tx *sql.Tx, p types.PlayerID, item string, delta int) error {
	if delta > 0 {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO player_items (player, item, count) VALUES (?, ?, ?)
			 ON CONFLICT(player, item) DO UPDATE SET count = count + excluded.count`,
			string(p), item, delta)
		if err != nil {
			return fmt.Errorf("add item: %w", err)
		}
		return nil
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM player_items WHERE player = ? AND item = ? AND count + ? <= 0`,
		string(p), item, delta); err != nil {
		return fmt.Errorf("drop item: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE player_items SET count = count + ? WHERE player = ? AND item = ?`,
		delta, string(p), item); err != nil {
		return fmt.Errorf("take item: %w", err)
	}
	return nil
}

func (s *Store) load(ctx context.Context, p types.PlayerID) (types.Stats, error) {
	st := types.Stats{Player: p}
	err := s.db.QueryRowContext(ctx,
		`SELECT gold, exp, prestige FROM players WHERE name = ?`, string(p),
	).Scan(&st.Gold, &st.Exp, &st.Prestige)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return types.Stats{}, fmt.Errorf("read player: %w", err)
	}
	st.Level = progression.Level(st.Exp)

	rows, err := s.db.QueryContext(ctx,
		`SELECT item FROM player_items WHERE player = ? ORDER BY item`, string(p))
	if err != nil {
		return types.Stats{}, fmt.Errorf("read items: %w", err)
	}
	defer rows.Close()
	st.Items = []string{}
	for rows.Next() {
		var item string
		if err := rows.Scan(&item); err != nil {
			return types.Stats{}, fmt.Errorf("scan item: %w", err)
		}
		st.Items = append(st.Items, item)
	}
	return st, rows.Err()
}
