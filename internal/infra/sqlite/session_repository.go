package sqlite

import (
	"context"
	"database/sql"

	"github.com/fardannozami/focuspod/internal/domain"
)

const sessionColumns = `id, user_id, duration_minutes, start_time, end_time, completed, pod_id, action, reward`

func (s *Store) CreateSession(ctx context.Context, session *domain.FocusSession) error {
	query := `INSERT INTO focus_sessions (` + sessionColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.DurationMinutes,
		formatTime(session.StartTime),
		formatNullTime(session.EndTime),
		session.Completed,
		session.PodID,
		string(session.Action),
		session.Reward,
	)
	return err
}

func (s *Store) GetSession(ctx context.Context, id string) (*domain.FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE id = ?`
	fs, err := scanSession(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return fs, err
}

func (s *Store) GetActiveSession(ctx context.Context, userID string) (*domain.FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE user_id = ? AND end_time IS NULL ORDER BY start_time DESC LIMIT 1`
	fs, err := scanSession(s.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return fs, err
}

func (s *Store) ListOpenSessions(ctx context.Context) ([]*domain.FocusSession, error) {
	query := `SELECT ` + sessionColumns + ` FROM focus_sessions WHERE end_time IS NULL ORDER BY start_time`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*domain.FocusSession
	for rows.Next() {
		fs, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, fs)
	}
	return sessions, rows.Err()
}

func (s *Store) FinishSession(ctx context.Context, id string, finish domain.SessionFinish) (*domain.FocusSession, error) {
	query := `
		UPDATE focus_sessions SET end_time = ?, completed = ?, action = ?, reward = ?
		WHERE id = ? AND end_time IS NULL
	`
	res, err := s.db.ExecContext(ctx, query, formatTime(finish.EndTime), finish.Completed, string(finish.Action), finish.Reward, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return s.GetSession(ctx, id)
}

func scanSession(row scanner) (*domain.FocusSession, error) {
	var fs domain.FocusSession
	var startTime string
	var endTime sql.NullString
	var action string
	err := row.Scan(
		&fs.ID,
		&fs.UserID,
		&fs.DurationMinutes,
		&startTime,
		&endTime,
		&fs.Completed,
		&fs.PodID,
		&action,
		&fs.Reward,
	)
	if err != nil {
		return nil, err
	}
	fs.Action = domain.SessionAction(action)
	if fs.StartTime, err = parseTime(startTime); err != nil {
		return nil, err
	}
	if fs.EndTime, err = parseNullTime(endTime); err != nil {
		return nil, err
	}
	return &fs, nil
}
