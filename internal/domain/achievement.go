package domain

// RequirementKind is the closed set of counters an achievement can be tied to.
type RequirementKind int

const (
	RequirePomodoros RequirementKind = iota + 1
	RequireTasks
	RequireStreak
	RequirePodsCreated
	RequireFocusHours
)

func (k RequirementKind) String() string {
	switch k {
	case RequirePomodoros:
		return "pomodoros"
	case RequireTasks:
		return "tasks"
	case RequireStreak:
		return "streak"
	case RequirePodsCreated:
		return "pods-created"
	case RequireFocusHours:
		return "focus-hours"
	}
	return "unknown"
}

type Requirement struct {
	Kind      RequirementKind
	Threshold int
}

// Progress is the snapshot of counters a requirement is evaluated against.
type Progress struct {
	Pomodoros    int
	Tasks        int
	Streak       int
	PodsCreated  int
	FocusMinutes int
}

// ProgressOf builds a Progress from the user record. PodsCreated is not stored on
// the user and must be filled in by the caller.
func ProgressOf(u *User) Progress {
	return Progress{
		Pomodoros:    u.TotalPomodoros,
		Tasks:        u.CompletedTasks,
		Streak:       u.CurrentStreak,
		FocusMinutes: u.TotalFocusMinutes,
	}
}

// Satisfied evaluates the requirement. Streak tiers match only on the exact
// threshold so a tier is announced on the day it is reached.
func (r Requirement) Satisfied(p Progress) bool {
	switch r.Kind {
	case RequirePomodoros:
		return p.Pomodoros >= r.Threshold
	case RequireTasks:
		return p.Tasks >= r.Threshold
	case RequireStreak:
		return p.Streak == r.Threshold
	case RequirePodsCreated:
		return p.PodsCreated >= r.Threshold
	case RequireFocusHours:
		return p.FocusMinutes/60 >= r.Threshold
	}
	return false
}

type Achievement struct {
	ID          string
	Name        string
	Icon        string
	Requirement Requirement
	Reward      int
}

var achievementCatalog = []Achievement{
	{ID: "first_focus", Name: "First Focus", Icon: "🌱", Requirement: Requirement{RequirePomodoros, 1}, Reward: 10},
	{ID: "focus_10", Name: "Getting Into It", Icon: "🍅", Requirement: Requirement{RequirePomodoros, 10}, Reward: 50},
	{ID: "focus_50", Name: "Deep Worker", Icon: "🔥", Requirement: Requirement{RequirePomodoros, 50}, Reward: 200},
	{ID: "focus_100", Name: "Focus Master", Icon: "🏆", Requirement: Requirement{RequirePomodoros, 100}, Reward: 500},
	{ID: "first_task", Name: "Done Is Better", Icon: "✅", Requirement: Requirement{RequireTasks, 1}, Reward: 10},
	{ID: "tasks_10", Name: "Finisher", Icon: "📋", Requirement: Requirement{RequireTasks, 10}, Reward: 50},
	{ID: "tasks_50", Name: "Closer", Icon: "🏅", Requirement: Requirement{RequireTasks, 50}, Reward: 200},
	{ID: "streak_3", Name: "Warming Up", Icon: "✨", Requirement: Requirement{RequireStreak, 3}, Reward: 30},
	{ID: "streak_7", Name: "One Week Strong", Icon: "📅", Requirement: Requirement{RequireStreak, 7}, Reward: 100},
	{ID: "streak_30", Name: "Unstoppable", Icon: "💎", Requirement: Requirement{RequireStreak, 30}, Reward: 500},
	{ID: "first_pod", Name: "Team Player", Icon: "🤝", Requirement: Requirement{RequirePodsCreated, 1}, Reward: 20},
	{ID: "pod_host_10", Name: "Pod Host", Icon: "🎪", Requirement: Requirement{RequirePodsCreated, 10}, Reward: 150},
	{ID: "hours_10", Name: "Ten Hours", Icon: "⏱️", Requirement: Requirement{RequireFocusHours, 10}, Reward: 100},
	{ID: "hours_50", Name: "Fifty Hours", Icon: "⏳", Requirement: Requirement{RequireFocusHours, 50}, Reward: 300},
	{ID: "hours_100", Name: "Centurion", Icon: "👑", Requirement: Requirement{RequireFocusHours, 100}, Reward: 1000},
}

// Achievements returns a copy of the static catalog.
func Achievements() []Achievement {
	out := make([]Achievement, len(achievementCatalog))
	copy(out, achievementCatalog)
	return out
}

func FindAchievement(id string) (Achievement, bool) {
	for _, a := range achievementCatalog {
		if a.ID == id {
			return a, true
		}
	}
	return Achievement{}, false
}
