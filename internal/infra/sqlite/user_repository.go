package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/fardannozami/focuspod/internal/domain"
)

const userColumns = `id, external_id, name, focus_coins, total_pomodoros, total_focus_minutes,
	completed_tasks, current_streak, best_streak, last_active_date, created_at`

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	return s.loadUser(ctx, s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetUserByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = ?`
	return s.loadUser(ctx, s.db.QueryRowContext(ctx, query, externalID))
}

func (s *Store) CreateUser(ctx context.Context, user *domain.User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	var lastActive sql.NullString
	if !user.LastActiveDate.IsZero() {
		lastActive = sql.NullString{String: formatTime(user.LastActiveDate), Valid: true}
	}
	var externalID sql.NullString
	if user.ExternalID != "" {
		externalID = sql.NullString{String: user.ExternalID, Valid: true}
	}

	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		externalID,
		user.Name,
		user.FocusCoins,
		user.TotalPomodoros,
		user.TotalFocusMinutes,
		user.CompletedTasks,
		user.CurrentStreak,
		user.BestStreak,
		lastActive,
		formatTime(user.CreatedAt),
	)
	return err
}

func (s *Store) UpdateUserName(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET name = ? WHERE id = ?`, name, id)
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]*domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, u := range users {
		if u.Achievements, err = s.achievementsOf(ctx, u.ID); err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (s *Store) IncrementUser(ctx context.Context, id string, delta domain.UserDelta) (*domain.User, error) {
	query := `
		UPDATE users SET
			focus_coins = focus_coins + ?,
			total_pomodoros = total_pomodoros + ?,
			total_focus_minutes = total_focus_minutes + ?,
			completed_tasks = completed_tasks + ?
		WHERE id = ?
	`
	res, err := s.db.ExecContext(ctx, query, delta.FocusCoins, delta.TotalPomodoros, delta.TotalFocusMinutes, delta.CompletedTasks, id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) SetStreak(ctx context.Context, id string, current, best int, lastActive time.Time) (*domain.User, error) {
	query := `UPDATE users SET current_streak = ?, best_streak = ?, last_active_date = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, query, current, best, formatTime(lastActive), id)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return s.GetUser(ctx, id)
}

func (s *Store) AddAchievement(ctx context.Context, id, achievementID string, at time.Time) (bool, error) {
	query := `
		INSERT INTO user_achievements (user_id, achievement_id, unlocked_at)
		SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM users WHERE id = ?)
		ON CONFLICT(user_id, achievement_id) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query, id, achievementID, formatTime(at), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *Store) loadUser(ctx context.Context, row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if u.Achievements, err = s.achievementsOf(ctx, u.ID); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Store) achievementsOf(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT achievement_id FROM user_achievements WHERE user_id = ? ORDER BY unlocked_at, achievement_id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanUser(row scanner) (*domain.User, error) {
	var u domain.User
	var externalID, name, lastActive sql.NullString
	var createdAt string
	err := row.Scan(
		&u.ID,
		&externalID,
		&name,
		&u.FocusCoins,
		&u.TotalPomodoros,
		&u.TotalFocusMinutes,
		&u.CompletedTasks,
		&u.CurrentStreak,
		&u.BestStreak,
		&lastActive,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	u.ExternalID = externalID.String
	u.Name = name.String
	if lastActive.Valid && lastActive.String != "" {
		if u.LastActiveDate, err = parseTime(lastActive.String); err != nil {
			return nil, err
		}
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &u, nil
}
