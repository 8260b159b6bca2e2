package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/jackpot/internal/lottery"
	"github.com/abrezinsky/jackpot/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// SQLite works best with single connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS lottery_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			admin TEXT NOT NULL,
			prize_pool INTEGER NOT NULL,
			carry_over INTEGER NOT NULL,
			last_draw_time INTEGER NOT NULL,
			base_interval INTEGER NOT NULL,
			fast_interval INTEGER NOT NULL,
			fast_mode_threshold INTEGER NOT NULL,
			fees_accumulated INTEGER NOT NULL,
			is_fast_mode BOOLEAN NOT NULL,
			is_active BOOLEAN NOT NULL,
			total_participants INTEGER NOT NULL,
			total_tickets INTEGER NOT NULL,
			draw_count INTEGER NOT NULL,
			rollover_streak INTEGER NOT NULL,
			last_seed INTEGER NOT NULL,
			ball_count INTEGER NOT NULL,
			winners TEXT NOT NULL,
			schedule TEXT NOT NULL,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS entries (
			participant TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			ticket_count INTEGER NOT NULL CHECK (ticket_count > 0),
			contribution INTEGER NOT NULL,
			entry_time INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS draws (
			id TEXT PRIMARY KEY,
			draw_number INTEGER NOT NULL,
			slot INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			ball_count INTEGER NOT NULL,
			outcome TEXT NOT NULL,
			main_winner TEXT,
			minor_winners TEXT,
			participants INTEGER NOT NULL,
			tickets INTEGER NOT NULL,
			prize_pool INTEGER NOT NULL,
			extension INTEGER NOT NULL,
			next_draw_at INTEGER NOT NULL,
			drawn_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS payouts (
			id TEXT PRIMARY KEY,
			draw_number INTEGER NOT NULL,
			seed INTEGER NOT NULL,
			schedule TEXT NOT NULL,
			distribution TEXT NOT NULL,
			payments TEXT NOT NULL,
			paid_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS contributions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			participant TEXT NOT NULL,
			amount INTEGER NOT NULL,
			tickets INTEGER NOT NULL,
			draw_number INTEGER NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_entries_position ON entries(position)`,
		`CREATE INDEX IF NOT EXISTS idx_draws_number ON draws(draw_number)`,
		`CREATE INDEX IF NOT EXISTS idx_payouts_number ON payouts(draw_number)`,
		`CREATE INDEX IF NOT EXISTS idx_contributions_participant ON contributions(participant)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// withTx runs fn in a transaction, rolling back on error
func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

// SQLite integers are signed; uint64 values are stored bit-for-bit.
func i64(v uint64) int64 { return int64(v) }
func u64(v int64) uint64 { return uint64(v) }

func nanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

// ==================== State Methods ====================

// LoadState reads the singleton state and its ledger in ledger order
func (r *Repository) LoadState(ctx context.Context) (lottery.State, error) {
	var (
		s                                      lottery.State
		admin, winners, schedule               string
		prizePool, carryOver, lastDraw         int64
		baseInterval, fastInterval, threshold  int64
		fees, participants, tickets, drawCount int64
		streak, lastSeed, ballCount            int64
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT admin, prize_pool, carry_over, last_draw_time, base_interval, fast_interval,
		       fast_mode_threshold, fees_accumulated, is_fast_mode, is_active, total_participants,
		       total_tickets, draw_count, rollover_streak, last_seed, ball_count, winners, schedule
		FROM lottery_state WHERE id = 1
	`).Scan(&admin, &prizePool, &carryOver, &lastDraw, &baseInterval, &fastInterval,
		&threshold, &fees, &s.FastMode, &s.Active, &participants,
		&tickets, &drawCount, &streak, &lastSeed, &ballCount, &winners, &schedule)
	if err == sql.ErrNoRows {
		return lottery.State{}, ErrNotFound
	}
	if err != nil {
		return lottery.State{}, err
	}

	s.Admin = lottery.Identity(admin)
	s.PrizePool = u64(prizePool)
	s.CarryOver = u64(carryOver)
	s.LastDrawTime = fromNanos(lastDraw)
	s.BaseInterval = time.Duration(baseInterval)
	s.FastInterval = time.Duration(fastInterval)
	s.FastModeThreshold = u64(threshold)
	s.FeesAccumulated = u64(fees)
	s.TotalParticipants = u64(participants)
	s.TotalTickets = u64(tickets)
	s.DrawCount = u64(drawCount)
	s.RolloverStreak = uint32(streak)
	s.LastSeed = u64(lastSeed)
	s.BallCount = uint8(ballCount)
	if err := json.Unmarshal([]byte(winners), &s.Winners); err != nil {
		return lottery.State{}, fmt.Errorf("decode winners: %w", err)
	}
	if err := json.Unmarshal([]byte(schedule), &s.Schedule); err != nil {
		return lottery.State{}, fmt.Errorf("decode schedule: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT participant, ticket_count, contribution, entry_time
		FROM entries ORDER BY position
	`)
	if err != nil {
		return lottery.State{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                   lottery.Entry
			participant         string
			count, contribution int64
			entered             int64
		)
		if err := rows.Scan(&participant, &count, &contribution, &entered); err != nil {
			return lottery.State{}, err
		}
		e.Participant = lottery.Identity(participant)
		e.Tickets = uint32(count)
		e.Contribution = u64(contribution)
		e.EnteredAt = fromNanos(entered)
		s.Entries = append(s.Entries, e)
	}
	if err := rows.Err(); err != nil {
		return lottery.State{}, err
	}

	if err := s.CheckInvariants(); err != nil {
		return lottery.State{}, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return s.Clone(), nil
}

// SaveState writes the state and replaces the stored ledger
func (r *Repository) SaveState(ctx context.Context, s lottery.State) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeState(ctx, tx, s); err != nil {
			return err
		}
		return replaceEntries(ctx, tx, s.Entries)
	})
}

// SaveEntry writes the state, the participant's updated entry and the
// contribution log row
func (r *Repository) SaveEntry(ctx context.Context, s lottery.State, c models.Contribution) error {
	pos := -1
	for i, e := range s.Entries {
		if e.Participant == c.Participant {
			pos = i
			break
		}
	}
	if pos < 0 {
		return fmt.Errorf("participant %s missing from ledger", c.Participant)
	}
	e := s.Entries[pos]

	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeState(ctx, tx, s); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO entries (participant, position, ticket_count, contribution, entry_time)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(participant) DO UPDATE SET
				ticket_count = excluded.ticket_count,
				contribution = excluded.contribution
		`, string(e.Participant), pos, int64(e.Tickets), i64(e.Contribution), nanos(e.EnteredAt))
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO contributions (participant, amount, tickets, draw_number, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, string(c.Participant), i64(c.Amount), int64(c.Tickets), i64(c.DrawNumber), nanos(c.CreatedAt))
		return err
	})
}

// SaveDraw writes the state and appends the draw record. A draw never
// changes the ledger, so entries are left untouched.
func (r *Repository) SaveDraw(ctx context.Context, s lottery.State, d models.DrawRecord) error {
	minors, err := json.Marshal(d.MinorWinners)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeState(ctx, tx, s); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO draws (id, draw_number, slot, seed, ball_count, outcome, main_winner, minor_winners,
			                   participants, tickets, prize_pool, extension, next_draw_at, drawn_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, d.ID, i64(d.DrawNumber), i64(d.Slot), i64(d.Seed), int64(d.BallCount), d.Outcome,
			string(d.MainWinner), string(minors), i64(d.Participants), i64(d.Tickets), i64(d.PrizePool),
			int64(d.Extension), nanos(d.NextDrawAt), nanos(d.DrawnAt))
		return err
	})
}

// SavePayout writes the reset state, clears the ledger and appends the
// payout record
func (r *Repository) SavePayout(ctx context.Context, s lottery.State, p models.PayoutRecord) error {
	dist, err := json.Marshal(p.Distribution)
	if err != nil {
		return err
	}
	payments, err := json.Marshal(p.Payments)
	if err != nil {
		return err
	}
	return r.withTx(ctx, func(tx *sql.Tx) error {
		if err := writeState(ctx, tx, s); err != nil {
			return err
		}
		if err := replaceEntries(ctx, tx, s.Entries); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO payouts (id, draw_number, seed, schedule, distribution, payments, paid_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, p.ID, i64(p.DrawNumber), i64(p.Seed), p.Schedule, string(dist), string(payments), nanos(p.PaidAt))
		return err
	})
}

func writeState(ctx context.Context, tx *sql.Tx, s lottery.State) error {
	winners, err := json.Marshal(s.Winners)
	if err != nil {
		return err
	}
	schedule, err := json.Marshal(s.Schedule)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO lottery_state (id, admin, prize_pool, carry_over, last_draw_time, base_interval,
			fast_interval, fast_mode_threshold, fees_accumulated, is_fast_mode, is_active,
			total_participants, total_tickets, draw_count, rollover_streak, last_seed, ball_count,
			winners, schedule, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			admin = excluded.admin,
			prize_pool = excluded.prize_pool,
			carry_over = excluded.carry_over,
			last_draw_time = excluded.last_draw_time,
			base_interval = excluded.base_interval,
			fast_interval = excluded.fast_interval,
			fast_mode_threshold = excluded.fast_mode_threshold,
			fees_accumulated = excluded.fees_accumulated,
			is_fast_mode = excluded.is_fast_mode,
			is_active = excluded.is_active,
			total_participants = excluded.total_participants,
			total_tickets = excluded.total_tickets,
			draw_count = excluded.draw_count,
			rollover_streak = excluded.rollover_streak,
			last_seed = excluded.last_seed,
			ball_count = excluded.ball_count,
			winners = excluded.winners,
			schedule = excluded.schedule,
			updated_at = CURRENT_TIMESTAMP
	`, string(s.Admin), i64(s.PrizePool), i64(s.CarryOver), nanos(s.LastDrawTime),
		int64(s.BaseInterval), int64(s.FastInterval), i64(s.FastModeThreshold), i64(s.FeesAccumulated),
		s.FastMode, s.Active, i64(s.TotalParticipants), i64(s.TotalTickets), i64(s.DrawCount),
		int64(s.RolloverStreak), i64(s.LastSeed), int64(s.BallCount), string(winners), string(schedule))
	return err
}

func replaceEntries(ctx context.Context, tx *sql.Tx, entries []lottery.Entry) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM entries`); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (participant, position, ticket_count, contribution, entry_time)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, string(e.Participant), i, int64(e.Tickets), i64(e.Contribution), nanos(e.EnteredAt)); err != nil {
			return err
		}
	}
	return nil
}

// ==================== History Methods ====================

const drawColumns = `id, draw_number, slot, seed, ball_count, outcome, main_winner, minor_winners,
	participants, tickets, prize_pool, extension, next_draw_at, drawn_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanDraw(row scanner) (models.DrawRecord, error) {
	var (
		d                                models.DrawRecord
		number, slot, seed, ball         int64
		participants, tickets, pool, ext int64
		next, drawn                      int64
		main, minors                     sql.NullString
	)
	err := row.Scan(&d.ID, &number, &slot, &seed, &ball, &d.Outcome, &main, &minors,
		&participants, &tickets, &pool, &ext, &next, &drawn)
	if err != nil {
		return d, err
	}
	d.DrawNumber = u64(number)
	d.Slot = u64(slot)
	d.Seed = u64(seed)
	d.BallCount = uint8(ball)
	d.MainWinner = lottery.Identity(main.String)
	if minors.Valid && minors.String != "" && minors.String != "null" {
		if err := json.Unmarshal([]byte(minors.String), &d.MinorWinners); err != nil {
			return d, fmt.Errorf("decode minor winners: %w", err)
		}
	}
	d.Participants = u64(participants)
	d.Tickets = u64(tickets)
	d.PrizePool = u64(pool)
	d.Extension = time.Duration(ext)
	d.NextDrawAt = fromNanos(next)
	d.DrawnAt = fromNanos(drawn)
	return d, nil
}

// ListDraws returns draws newest first
func (r *Repository) ListDraws(ctx context.Context, limit, offset int) ([]models.DrawRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+drawColumns+` FROM draws
		ORDER BY draw_number DESC, drawn_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	draws := []models.DrawRecord{}
	for rows.Next() {
		d, err := scanDraw(rows)
		if err != nil {
			return nil, err
		}
		draws = append(draws, d)
	}
	return draws, rows.Err()
}

// GetDraw returns a draw by ID
func (r *Repository) GetDraw(ctx context.Context, id string) (*models.DrawRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+drawColumns+` FROM draws WHERE id = ?`, id)
	d, err := scanDraw(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// CountDraws returns the number of recorded draws
func (r *Repository) CountDraws(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM draws`).Scan(&n)
	return n, err
}

// ListPayouts returns payouts newest first
func (r *Repository) ListPayouts(ctx context.Context, limit, offset int) ([]models.PayoutRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, draw_number, seed, schedule, distribution, payments, paid_at
		FROM payouts
		ORDER BY paid_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payouts := []models.PayoutRecord{}
	for rows.Next() {
		var (
			p                  models.PayoutRecord
			number, seed, paid int64
			dist, payments     string
		)
		if err := rows.Scan(&p.ID, &number, &seed, &p.Schedule, &dist, &payments, &paid); err != nil {
			return nil, err
		}
		p.DrawNumber = u64(number)
		p.Seed = u64(seed)
		p.PaidAt = fromNanos(paid)
		if err := json.Unmarshal([]byte(dist), &p.Distribution); err != nil {
			return nil, fmt.Errorf("decode distribution: %w", err)
		}
		if err := json.Unmarshal([]byte(payments), &p.Payments); err != nil {
			return nil, fmt.Errorf("decode payments: %w", err)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// ListContributions returns a participant's contributions newest first
func (r *Repository) ListContributions(ctx context.Context, participant lottery.Identity, limit int) ([]models.Contribution, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, participant, amount, tickets, draw_number, created_at
		FROM contributions
		WHERE participant = ?
		ORDER BY id DESC
		LIMIT ?
	`, string(participant), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Contribution{}
	for rows.Next() {
		var (
			c                                models.Contribution
			who                              string
			amount, tickets, number, created int64
		)
		if err := rows.Scan(&c.ID, &who, &amount, &tickets, &number, &created); err != nil {
			return nil, err
		}
		c.Participant = lottery.Identity(who)
		c.Amount = u64(amount)
		c.Tickets = uint32(tickets)
		c.DrawNumber = u64(number)
		c.CreatedAt = fromNanos(created)
		out = append(out, c)
	}
	return out, rows.Err()
}

// ==================== Settings Methods ====================

// GetSetting returns a setting value, or ErrNotFound
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting inserts or replaces a setting
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}
