package wa

import (
	"fmt"
	"strings"

	"github.com/fardannozami/focuspod/internal/domain"
)

// Render turns a notification into chat text. Unknown kinds render empty.
func Render(n domain.Notification) string {
	switch n.Kind {
	case domain.NotifySessionTimeUp:
		if n.PodID != "" {
			return fmt.Sprintf("⏰ Time's up! Your %d min pod session is over.\nReply #done completed, #done continue or #done break.", n.DurationMinutes)
		}
		return fmt.Sprintf("⏰ Time's up! %d minutes of focus done.\nReply #done completed, #done continue or #done break.", n.DurationMinutes)
	case domain.NotifyAchievementUnlocked:
		if n.Achievement == nil {
			return ""
		}
		return fmt.Sprintf("%s Achievement unlocked: %s (+%d coins)", n.Achievement.Icon, n.Achievement.Name, n.Achievement.Reward)
	case domain.NotifyPodJoined:
		return fmt.Sprintf("👋 %s joined \"%s\". %d people in the pod now.", n.ParticipantName, n.PodTitle, n.Headcount)
	case domain.NotifyPodStarted:
		return fmt.Sprintf("🚀 \"%s\" started! Focus for %d minutes together with %d people.", n.PodTitle, n.DurationMinutes, n.Headcount)
	case domain.NotifyPodFinished:
		return fmt.Sprintf("🏁 \"%s\" is over. Reply #done to claim your reward.", n.PodTitle)
	case domain.NotifyPodCancelled:
		return fmt.Sprintf("❌ \"%s\" was cancelled by its creator.", n.PodTitle)
	case domain.NotifyDailyReminder:
		if n.Streak > 0 {
			return fmt.Sprintf("🍅 No focus yet today. Keep your %d day streak going with #focus.", n.Streak)
		}
		return "🍅 No focus yet today. Start one with #focus."
	case domain.NotifyStreakWarning:
		return fmt.Sprintf("🔥 Your %d day streak ends in %d hours! One #focus session saves it.", n.Streak, n.HoursLeft)
	case domain.NotifyWeeklySummary:
		return renderWeeklySummary(n)
	}
	return ""
}

func renderWeeklySummary(n domain.Notification) string {
	if n.Stats == nil {
		return ""
	}
	st := n.Stats
	sb := strings.Builder{}
	sb.WriteString("📊 Your week in focus\n\n")
	sb.WriteString(fmt.Sprintf("🍅 Pomodoros: %d\n", st.WeekPomodoros))
	sb.WriteString(fmt.Sprintf("⏱️ Focus time: %s\n", formatMinutes(st.WeekFocusMinutes)))
	sb.WriteString(fmt.Sprintf("✅ Tasks done: %d\n", st.WeekTasks))
	sb.WriteString(fmt.Sprintf("🪙 Coins earned: %d\n", st.WeekCoins))
	if n.Streak > 0 {
		sb.WriteString(fmt.Sprintf("🔥 Current streak: %d days\n", n.Streak))
	}
	sb.WriteString("\nSee you next week 💪")
	return sb.String()
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %dm", m/60, m%60)
}
