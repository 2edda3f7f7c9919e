package sqlite

import (
	"context"
	"database/sql"

	"github.com/fardannozami/focuspod/internal/domain"
)

func (s *Store) GetStats(ctx context.Context, userID string) (*domain.UserStats, error) {
	query := `
		SELECT user_id, today_pomodoros, today_focus_minutes, today_tasks, today_coins,
			week_pomodoros, week_focus_minutes, week_tasks, week_coins
		FROM user_stats WHERE user_id = ?
	`
	var st domain.UserStats
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&st.UserID,
		&st.TodayPomodoros,
		&st.TodayFocusMinutes,
		&st.TodayTasks,
		&st.TodayCoins,
		&st.WeekPomodoros,
		&st.WeekFocusMinutes,
		&st.WeekTasks,
		&st.WeekCoins,
	)
	if err == sql.ErrNoRows {
		return &domain.UserStats{UserID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *Store) IncrementStats(ctx context.Context, userID string, delta domain.StatsDelta) error {
	query := `
		INSERT INTO user_stats (user_id, today_pomodoros, today_focus_minutes, today_tasks, today_coins,
			week_pomodoros, week_focus_minutes, week_tasks, week_coins)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			today_pomodoros = today_pomodoros + excluded.today_pomodoros,
			today_focus_minutes = today_focus_minutes + excluded.today_focus_minutes,
			today_tasks = today_tasks + excluded.today_tasks,
			today_coins = today_coins + excluded.today_coins,
			week_pomodoros = week_pomodoros + excluded.week_pomodoros,
			week_focus_minutes = week_focus_minutes + excluded.week_focus_minutes,
			week_tasks = week_tasks + excluded.week_tasks,
			week_coins = week_coins + excluded.week_coins
	`
	_, err := s.db.ExecContext(ctx, query, userID,
		delta.Pomodoros, delta.FocusMinutes, delta.Tasks, delta.Coins,
		delta.Pomodoros, delta.FocusMinutes, delta.Tasks, delta.Coins,
	)
	return err
}

func (s *Store) ResetDailyStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE user_stats SET today_pomodoros = 0, today_focus_minutes = 0, today_tasks = 0, today_coins = 0`)
	return err
}

func (s *Store) ResetWeeklyStats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `UPDATE user_stats SET week_pomodoros = 0, week_focus_minutes = 0, week_tasks = 0, week_coins = 0`)
	return err
}
