package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/fardannozami/focuspod/internal/domain"
)

const helpText = `🍅 FocusPod commands
#focus [minutes] - start a focus session
#status - time left
#done [completed|continue|break] - finish your session
#cancel - drop your session
#pod [minutes] [title] - create a group pod
#join CODE - join a pod
#startpod - start your pod (creator)
#cancelpod - cancel your pod (creator)
#leave - leave a pod
#stats - your numbers
#leaderboard - top focusers`

var errorReplies = map[error]string{
	domain.ErrSessionAlreadyActive:    "You already have a running session. Finish it with #done or drop it with #cancel.",
	domain.ErrSessionAlreadyCompleted: "That session is already finished, no double rewards 😉",
	domain.ErrPodNotFound:             "No pod found with that code.",
	domain.ErrPodAlreadyStarted:       "That pod already started, you can't join anymore.",
	domain.ErrPodInvalidState:         "The pod can't do that right now.",
	domain.ErrNotPodCreator:           "Only the pod creator can do that.",
	domain.ErrCreatorCannotLeave:      "You created this pod, use #cancelpod instead.",
	domain.ErrInvalidDuration:         "Please pick a duration between 1 and %d minutes.",
}

type HandleMessageUsecase struct {
	store       domain.Store
	sessions    *SessionUsecase
	pods        *PodUsecase
	leaderboard *GetLeaderboardUsecase

	defaultMinutes int
	maxMinutes     int
}

func NewHandleMessageUsecase(store domain.Store, sessions *SessionUsecase, pods *PodUsecase, leaderboard *GetLeaderboardUsecase, defaultMinutes, maxMinutes int) *HandleMessageUsecase {
	return &HandleMessageUsecase{
		store:          store,
		sessions:       sessions,
		pods:           pods,
		leaderboard:    leaderboard,
		defaultMinutes: defaultMinutes,
		maxMinutes:     maxMinutes,
	}
}

// Execute routes a chat message. Anything that is not a known #command yields "".
func (uc *HandleMessageUsecase) Execute(ctx context.Context, externalID, name, msg string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(msg))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "#") {
		return "", nil
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	var handler func(ctx context.Context, user *domain.User, args []string) (string, error)
	switch cmd {
	case "#help":
		return helpText, nil
	case "#leaderboard":
		return uc.leaderboard.Execute(ctx)
	case "#focus":
		handler = uc.focus
	case "#status":
		handler = uc.status
	case "#done":
		handler = uc.done
	case "#cancel":
		handler = uc.cancel
	case "#pod":
		handler = uc.createPod
	case "#join":
		handler = uc.joinPod
	case "#startpod":
		handler = uc.startPod
	case "#cancelpod":
		handler = uc.cancelPod
	case "#leave":
		handler = uc.leavePod
	case "#stats":
		handler = uc.stats
	default:
		return "", nil
	}

	user, err := uc.ensureUser(ctx, externalID, name)
	if err != nil {
		return "", err
	}
	reply, err := handler(ctx, user, args)
	if err != nil {
		return uc.errorReply(err)
	}
	return reply, nil
}

func (uc *HandleMessageUsecase) ensureUser(ctx context.Context, externalID, name string) (*domain.User, error) {
	user, err := uc.store.GetUserByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user = &domain.User{
			ID:         uuid.NewString(),
			ExternalID: externalID,
			Name:       name,
			CreatedAt:  uc.sessions.clock.Now(),
		}
		if err := uc.store.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}
	if name != "" && user.Name != name {
		if err := uc.store.UpdateUserName(ctx, user.ID, name); err != nil {
			return nil, err
		}
		user.Name = name
	}
	return user, nil
}

// errorReply maps caller mistakes to a chat reply and passes infrastructure errors through.
func (uc *HandleMessageUsecase) errorReply(err error) (string, error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		return "", err
	}
	if reply, ok := errorReplies[de]; ok {
		if de == domain.ErrInvalidDuration {
			return fmt.Sprintf(reply, uc.maxMinutes), nil
		}
		return reply, nil
	}
	return "⚠️ " + de.Msg, nil
}

func (uc *HandleMessageUsecase) parseMinutes(args []string) (int, []string, error) {
	if len(args) == 0 {
		return uc.defaultMinutes, args, nil
	}
	m, err := strconv.Atoi(args[0])
	if err != nil {
		return uc.defaultMinutes, args, nil
	}
	if m <= 0 {
		return 0, nil, domain.ErrInvalidDuration
	}
	return m, args[1:], nil
}

func (uc *HandleMessageUsecase) focus(ctx context.Context, user *domain.User, args []string) (string, error) {
	minutes, _, err := uc.parseMinutes(args)
	if err != nil {
		return "", err
	}
	if _, err := uc.sessions.Start(ctx, user.ID, minutes, ""); err != nil {
		return "", err
	}
	return fmt.Sprintf("🍅 Focus started for %d minutes. Reply #done when finished or #cancel to stop.", minutes), nil
}

func (uc *HandleMessageUsecase) status(ctx context.Context, user *domain.User, args []string) (string, error) {
	session, err := uc.sessions.GetActive(ctx, user.ID)
	if err != nil {
		return "", err
	}
	pod, err := uc.pods.ActiveForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}

	var lines []string
	if session != nil {
		left, err := uc.sessions.Remaining(ctx, session.ID)
		if err != nil {
			return "", err
		}
		if left != nil && (left.Minutes > 0 || left.Seconds > 0) {
			lines = append(lines, fmt.Sprintf("⏳ %02d:%02d left in your %d min session.", left.Minutes, left.Seconds, session.DurationMinutes))
		} else {
			lines = append(lines, "⏰ Your session time is up. Reply #done to finish it.")
		}
	}
	if pod != nil {
		switch pod.Status {
		case domain.PodWaiting:
			lines = append(lines, fmt.Sprintf("👥 Pod \"%s\" is waiting with %d people. Code: %s", pod.Title, len(pod.Participants), pod.InviteCode))
		case domain.PodActive:
			left, err := uc.pods.Remaining(ctx, pod.ID)
			if err != nil {
				return "", err
			}
			if left != nil {
				lines = append(lines, fmt.Sprintf("👥 Pod \"%s\": %02d:%02d left.", pod.Title, left.Minutes, left.Seconds))
			}
		}
	}
	if len(lines) == 0 {
		return "Nothing running. Start with #focus or #pod.", nil
	}
	return strings.Join(lines, "\n"), nil
}

func (uc *HandleMessageUsecase) done(ctx context.Context, user *domain.User, args []string) (string, error) {
	session, err := uc.sessions.GetActive(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "No running session. Start one with #focus.", nil
	}

	action := domain.ActionCompleted
	if len(args) > 0 {
		parsed, ok := domain.ParseSessionAction(args[0])
		if !ok {
			return "Use #done completed, #done continue or #done break.", nil
		}
		action = parsed
	}

	result, err := uc.sessions.Complete(ctx, session.ID, action, uc.sessions.IsEarly(session))
	if err != nil {
		return "", err
	}
	if session.PodID != "" {
		if _, err := uc.pods.RecordParticipantAction(ctx, session.PodID, user.ID, action); err != nil && domain.KindOf(err) == domain.KindUnknown {
			return "", err
		}
	}

	sb := strings.Builder{}
	if result.Rewarded {
		sb.WriteString(fmt.Sprintf("✅ Nice! %d minutes of focus, +%d coins 🪙", result.ActualMinutes, result.Reward))
	} else {
		sb.WriteString(fmt.Sprintf("✅ Stopped after %d minutes. Finish at least 90%% of a session to earn coins.", result.ActualMinutes))
	}
	for _, id := range result.Unlocked {
		if a, ok := domain.FindAchievement(id); ok {
			sb.WriteString(fmt.Sprintf("\n%s %s unlocked!", a.Icon, a.Name))
		}
	}
	return sb.String(), nil
}

func (uc *HandleMessageUsecase) cancel(ctx context.Context, user *domain.User, args []string) (string, error) {
	session, err := uc.sessions.GetActive(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if session == nil {
		return "No running session.", nil
	}
	ok, err := uc.sessions.Cancel(ctx, session.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "No running session.", nil
	}
	return "🛑 Session cancelled. No coins this time.", nil
}

func (uc *HandleMessageUsecase) createPod(ctx context.Context, user *domain.User, args []string) (string, error) {
	existing, err := uc.pods.ActiveForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return fmt.Sprintf("You're already in pod \"%s\" (code %s).", existing.Title, existing.InviteCode), nil
	}

	minutes, rest, err := uc.parseMinutes(args)
	if err != nil {
		return "", err
	}
	pod, err := uc.pods.Create(ctx, user.ID, user.Name, minutes, strings.Join(rest, " "))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("👥 Pod \"%s\" created for %d minutes.\nInvite code: %s\nShare: %s\nStart it with #startpod when everyone is in.",
		pod.Title, pod.DurationMinutes, pod.InviteCode, pod.InviteLink), nil
}

func (uc *HandleMessageUsecase) joinPod(ctx context.Context, user *domain.User, args []string) (string, error) {
	if len(args) == 0 {
		return "Use #join CODE.", nil
	}
	current, err := uc.pods.ActiveForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if current != nil && !strings.EqualFold(current.InviteCode, args[0]) {
		return fmt.Sprintf("You're already in pod \"%s\". #leave it first.", current.Title), nil
	}

	pod, joined, err := uc.pods.JoinByCode(ctx, args[0], user.ID, user.Name)
	if err != nil {
		return "", err
	}
	if !joined {
		return fmt.Sprintf("You're already in \"%s\".", pod.Title), nil
	}
	return fmt.Sprintf("🙌 Joined \"%s\" (%d people). Waiting for the creator to start.", pod.Title, len(pod.Participants)), nil
}

func (uc *HandleMessageUsecase) startPod(ctx context.Context, user *domain.User, args []string) (string, error) {
	pod, err := uc.pods.ActiveForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if pod == nil {
		return "You're not in a pod.", nil
	}
	started, err := uc.pods.Start(ctx, pod.ID, user.ID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("🚀 \"%s\" started! %d people focusing for %d minutes.", started.Title, len(started.Participants), started.DurationMinutes), nil
}

func (uc *HandleMessageUsecase) cancelPod(ctx context.Context, user *domain.User, args []string) (string, error) {
	pod, err := uc.pods.ActiveForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if pod == nil {
		return "You're not in a pod.", nil
	}
	if _, err := uc.pods.Cancel(ctx, pod.ID, user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("❌ \"%s\" cancelled.", pod.Title), nil
}

func (uc *HandleMessageUsecase) leavePod(ctx context.Context, user *domain.User, args []string) (string, error) {
	pod, err := uc.pods.ActiveForUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if pod == nil {
		return "You're not in a pod.", nil
	}
	if _, err := uc.pods.Leave(ctx, pod.ID, user.ID); err != nil {
		return "", err
	}
	return fmt.Sprintf("👋 You left \"%s\".", pod.Title), nil
}

func (uc *HandleMessageUsecase) stats(ctx context.Context, user *domain.User, args []string) (string, error) {
	fresh, err := uc.store.GetUser(ctx, user.ID)
	if err != nil {
		return "", err
	}
	if fresh == nil {
		return "", domain.ErrUserNotFound
	}
	st, err := uc.store.GetStats(ctx, user.ID)
	if err != nil {
		return "", err
	}

	sb := strings.Builder{}
	sb.WriteString(fmt.Sprintf("📈 Stats for %s\n\n", fresh.Name))
	sb.WriteString(fmt.Sprintf("🪙 Coins: %d\n", fresh.FocusCoins))
	sb.WriteString(fmt.Sprintf("🍅 Pomodoros: %d (today %d, this week %d)\n", fresh.TotalPomodoros, st.TodayPomodoros, st.WeekPomodoros))
	sb.WriteString(fmt.Sprintf("⏱️ Focus minutes: %d (today %d)\n", fresh.TotalFocusMinutes, st.TodayFocusMinutes))
	sb.WriteString(fmt.Sprintf("✅ Tasks done: %d\n", fresh.CompletedTasks))
	sb.WriteString(fmt.Sprintf("🔥 Streak: %d days (best %d)\n", fresh.CurrentStreak, fresh.BestStreak))
	sb.WriteString(fmt.Sprintf("🏅 Achievements: %d/%d", len(fresh.Achievements), len(domain.Achievements())))
	return sb.String(), nil
}
