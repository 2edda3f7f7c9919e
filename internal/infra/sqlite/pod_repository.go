package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/fardannozami/focuspod/internal/domain"
)

const podColumns = `id, invite_code, creator_id, title, duration_minutes, status, start_time, end_time, created_at`

func (s *Store) CreatePod(ctx context.Context, pod *domain.Pod) error {
	var taken int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pods WHERE invite_code = ?`, pod.InviteCode).Scan(&taken); err != nil {
		return err
	}
	if taken > 0 {
		return domain.ErrInviteCodeTaken
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO pods (` + podColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = tx.ExecContext(ctx, query,
		pod.ID,
		strings.ToUpper(pod.InviteCode),
		pod.CreatorID,
		pod.Title,
		pod.DurationMinutes,
		string(pod.Status),
		formatNullTime(pod.StartTime),
		formatNullTime(pod.EndTime),
		formatTime(pod.CreatedAt),
	)
	if err != nil {
		return err
	}
	for _, p := range pod.Participants {
		if err := insertParticipant(ctx, tx, pod.ID, p); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetPod(ctx context.Context, id string) (*domain.Pod, error) {
	query := `SELECT ` + podColumns + ` FROM pods WHERE id = ?`
	return s.loadPod(ctx, s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetPodByInviteCode(ctx context.Context, code string) (*domain.Pod, error) {
	query := `SELECT ` + podColumns + ` FROM pods WHERE invite_code = ?`
	return s.loadPod(ctx, s.db.QueryRowContext(ctx, query, strings.TrimSpace(code)))
}

func (s *Store) TransitionPod(ctx context.Context, id string, from []domain.PodStatus, to domain.PodStatus, times domain.PodTimes) (*domain.Pod, error) {
	if len(from) == 0 {
		return nil, nil
	}
	args := []any{string(to)}
	query := `UPDATE pods SET status = ?`
	if times.StartTime != nil {
		query += `, start_time = ?`
		args = append(args, formatTime(*times.StartTime))
	}
	if times.EndTime != nil {
		query += `, end_time = ?`
		args = append(args, formatTime(*times.EndTime))
	}
	query += ` WHERE id = ? AND status IN (?` + strings.Repeat(`, ?`, len(from)-1) + `)`
	args = append(args, id)
	for _, st := range from {
		args = append(args, string(st))
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	if n, err := res.RowsAffected(); err != nil || n == 0 {
		return nil, err
	}
	return s.GetPod(ctx, id)
}

func (s *Store) AddParticipant(ctx context.Context, podID string, participant domain.PodParticipant) (*domain.Pod, error) {
	pod, err := s.GetPod(ctx, podID)
	if err != nil || pod == nil {
		return nil, err
	}
	query := `
		INSERT INTO pod_participants (pod_id, user_id, name, joined_at, is_creator, action, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(pod_id, user_id) DO NOTHING
	`
	_, err = s.db.ExecContext(ctx, query,
		podID,
		participant.UserID,
		participant.Name,
		formatTime(participant.JoinedAt),
		participant.IsCreator,
		string(participant.Action),
		participant.Completed,
	)
	if err != nil {
		return nil, err
	}
	return s.GetPod(ctx, podID)
}

func (s *Store) RemoveParticipant(ctx context.Context, podID, userID string) (*domain.Pod, error) {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pod_participants WHERE pod_id = ? AND user_id = ?`, podID, userID); err != nil {
		return nil, err
	}
	return s.GetPod(ctx, podID)
}

func (s *Store) SetParticipantAction(ctx context.Context, podID, userID string, action domain.SessionAction, completed bool) (*domain.Pod, error) {
	query := `UPDATE pod_participants SET action = ?, completed = ? WHERE pod_id = ? AND user_id = ?`
	if _, err := s.db.ExecContext(ctx, query, string(action), completed, podID, userID); err != nil {
		return nil, err
	}
	return s.GetPod(ctx, podID)
}

func (s *Store) ListPodsForUser(ctx context.Context, userID string, statuses ...domain.PodStatus) ([]*domain.Pod, error) {
	query := `
		SELECT ` + prefixed("p.", podColumns) + `
		FROM pods p JOIN pod_participants pp ON pp.pod_id = p.id
		WHERE pp.user_id = ?`
	args := []any{userID}
	if len(statuses) > 0 {
		query += ` AND p.status IN (?` + strings.Repeat(`, ?`, len(statuses)-1) + `)`
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += ` ORDER BY p.created_at`
	return s.listPods(ctx, query, args...)
}

func (s *Store) ListPodsByStatus(ctx context.Context, status domain.PodStatus) ([]*domain.Pod, error) {
	query := `SELECT ` + podColumns + ` FROM pods WHERE status = ? ORDER BY created_at`
	return s.listPods(ctx, query, string(status))
}

func (s *Store) CountPodsCreatedBy(ctx context.Context, userID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pods WHERE creator_id = ?`, userID).Scan(&n)
	return n, err
}

func (s *Store) listPods(ctx context.Context, query string, args ...any) ([]*domain.Pod, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pods []*domain.Pod
	for rows.Next() {
		p, err := scanPod(rows)
		if err != nil {
			return nil, err
		}
		pods = append(pods, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, p := range pods {
		if p.Participants, err = s.participantsOf(ctx, p.ID); err != nil {
			return nil, err
		}
	}
	return pods, nil
}

func (s *Store) loadPod(ctx context.Context, row *sql.Row) (*domain.Pod, error) {
	p, err := scanPod(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if p.Participants, err = s.participantsOf(ctx, p.ID); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) participantsOf(ctx context.Context, podID string) ([]domain.PodParticipant, error) {
	query := `
		SELECT user_id, name, joined_at, is_creator, action, completed
		FROM pod_participants WHERE pod_id = ?
		ORDER BY is_creator DESC, joined_at, rowid
	`
	rows, err := s.db.QueryContext(ctx, query, podID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []domain.PodParticipant
	for rows.Next() {
		var p domain.PodParticipant
		var name sql.NullString
		var joinedAt, action string
		if err := rows.Scan(&p.UserID, &name, &joinedAt, &p.IsCreator, &action, &p.Completed); err != nil {
			return nil, err
		}
		p.Name = name.String
		p.Action = domain.SessionAction(action)
		if p.JoinedAt, err = parseTime(joinedAt); err != nil {
			return nil, err
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

func insertParticipant(ctx context.Context, tx *sql.Tx, podID string, p domain.PodParticipant) error {
	query := `
		INSERT INTO pod_participants (pod_id, user_id, name, joined_at, is_creator, action, completed)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := tx.ExecContext(ctx, query, podID, p.UserID, p.Name, formatTime(p.JoinedAt), p.IsCreator, string(p.Action), p.Completed)
	return err
}

func scanPod(row scanner) (*domain.Pod, error) {
	var p domain.Pod
	var status, createdAt string
	var startTime, endTime sql.NullString
	err := row.Scan(
		&p.ID,
		&p.InviteCode,
		&p.CreatorID,
		&p.Title,
		&p.DurationMinutes,
		&status,
		&startTime,
		&endTime,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = domain.PodStatus(status)
	if p.StartTime, err = parseNullTime(startTime); err != nil {
		return nil, err
	}
	if p.EndTime, err = parseNullTime(endTime); err != nil {
		return nil, err
	}
	if p.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, c := range parts {
		parts[i] = prefix + strings.TrimSpace(c)
	}
	return strings.Join(parts, ", ")
}
