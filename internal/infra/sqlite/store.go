package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fardannozami/focuspod/internal/domain"
)

// Store implements domain.Store on a SQLite database shared with the WhatsApp session store.
type Store struct {
	db *sql.DB
}

var _ domain.Store = (*Store)(nil)

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InitTables(ctx context.Context) error {
	for _, ddl := range schema {
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		external_id TEXT UNIQUE,
		name TEXT,
		focus_coins INTEGER NOT NULL DEFAULT 0,
		total_pomodoros INTEGER NOT NULL DEFAULT 0,
		total_focus_minutes INTEGER NOT NULL DEFAULT 0,
		completed_tasks INTEGER NOT NULL DEFAULT 0,
		current_streak INTEGER NOT NULL DEFAULT 0,
		best_streak INTEGER NOT NULL DEFAULT 0,
		last_active_date TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_achievements (
		user_id TEXT NOT NULL,
		achievement_id TEXT NOT NULL,
		unlocked_at TEXT NOT NULL,
		PRIMARY KEY (user_id, achievement_id)
	)`,
	`CREATE TABLE IF NOT EXISTS focus_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		completed INTEGER NOT NULL DEFAULT 0,
		pod_id TEXT NOT NULL DEFAULT '',
		action TEXT NOT NULL DEFAULT '',
		reward INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_focus_sessions_user_id ON focus_sessions(user_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_focus_sessions_open ON focus_sessions(user_id) WHERE end_time IS NULL`,
	`CREATE TABLE IF NOT EXISTS pods (
		id TEXT PRIMARY KEY,
		invite_code TEXT NOT NULL UNIQUE COLLATE NOCASE,
		creator_id TEXT NOT NULL,
		title TEXT NOT NULL,
		duration_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		start_time TEXT,
		end_time TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pods_creator_id ON pods(creator_id)`,
	`CREATE INDEX IF NOT EXISTS idx_pods_status ON pods(status)`,
	`CREATE TABLE IF NOT EXISTS pod_participants (
		pod_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		name TEXT,
		joined_at TEXT NOT NULL,
		is_creator INTEGER NOT NULL DEFAULT 0,
		action TEXT NOT NULL DEFAULT '',
		completed INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (pod_id, user_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pod_participants_user_id ON pod_participants(user_id)`,
	`CREATE TABLE IF NOT EXISTS user_stats (
		user_id TEXT PRIMARY KEY,
		today_pomodoros INTEGER NOT NULL DEFAULT 0,
		today_focus_minutes INTEGER NOT NULL DEFAULT 0,
		today_tasks INTEGER NOT NULL DEFAULT 0,
		today_coins INTEGER NOT NULL DEFAULT 0,
		week_pomodoros INTEGER NOT NULL DEFAULT 0,
		week_focus_minutes INTEGER NOT NULL DEFAULT 0,
		week_tasks INTEGER NOT NULL DEFAULT 0,
		week_coins INTEGER NOT NULL DEFAULT 0
	)`,
}

// ResolveLIDToPhone maps a WhatsApp LID to its phone number using the lid map
// whatsmeow keeps in the same database. Unknown LIDs are returned unchanged.
func (s *Store) ResolveLIDToPhone(ctx context.Context, lid string) string {
	var pn string
	err := s.db.QueryRowContext(ctx, `SELECT pn FROM whatsmeow_lid_map WHERE lid = ?`, lid).Scan(&pn)
	if err != nil || pn == "" {
		return lid
	}
	return pn
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func formatNullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

type scanner interface {
	Scan(dest ...any) error
}
