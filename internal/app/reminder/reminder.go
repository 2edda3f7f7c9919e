// Package reminder runs the recurring notification and stat-reset jobs.
package reminder

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	walog "go.mau.fi/whatsmeow/util/log"

	"github.com/fardannozami/focuspod/internal/app/timer"
	"github.com/fardannozami/focuspod/internal/domain"
)

const (
	JobDailyReminder = "daily-reminder"
	JobStreakWarning = "streak-warning"
	JobWeeklySummary = "weekly-summary"
	JobDailyReset    = "daily-reset"
	JobWeeklyReset   = "weekly-reset"
)

// Schedules holds the cron spec of each job (standard 5-field syntax).
type Schedules struct {
	DailyReminder string
	StreakWarning string
	WeeklySummary string
	DailyReset    string
	WeeklyReset   string
}

func DefaultSchedules() Schedules {
	return Schedules{
		DailyReminder: "0 10 * * *",
		StreakWarning: "0 20 * * *",
		WeeklySummary: "0 19 * * 0",
		DailyReset:    "0 0 * * *",
		WeeklyReset:   "0 0 * * 1",
	}
}

// RunReport summarizes one firing of a job.
type RunReport struct {
	Job       string
	Processed int
	Notified  int
	Failed    int
}

type job struct {
	name string
	spec string
	run  func(ctx context.Context) (RunReport, error)
}

type Scheduler struct {
	store    domain.Store
	notifier domain.Notifier
	clock    timer.Clock
	log      walog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	jobs    []job
	running bool
}

// New validates every schedule up front so a bad spec fails at startup.
func New(store domain.Store, notifier domain.Notifier, clock timer.Clock, schedules Schedules, loc *time.Location, logger walog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		store:    store,
		notifier: notifier,
		clock:    clock,
		log:      logger,
	}
	s.jobs = []job{
		{name: JobDailyReminder, spec: schedules.DailyReminder, run: s.SendDailyReminders},
		{name: JobStreakWarning, spec: schedules.StreakWarning, run: s.SendStreakWarnings},
		{name: JobWeeklySummary, spec: schedules.WeeklySummary, run: s.SendWeeklySummaries},
		{name: JobDailyReset, spec: schedules.DailyReset, run: s.ResetDailyStats},
		{name: JobWeeklyReset, spec: schedules.WeeklyReset, run: s.ResetWeeklyStats},
	}

	s.cron = cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{logger}))
	for _, j := range s.jobs {
		if _, err := s.cron.AddFunc(j.spec, func() { s.fire(j) }); err != nil {
			return nil, fmt.Errorf("reminder: invalid schedule %q for %s: %w", j.spec, j.name, err)
		}
	}
	return s, nil
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for _, j := range s.jobs {
		names = append(names, j.name)
	}
	sort.Strings(names)
	return names
}

func (s *Scheduler) StartAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.cron.Start()
	s.running = true
	s.log.Infof("Started %d scheduled jobs", len(s.jobs))
}

// StopAll stops the schedule and waits for running jobs, or for ctx to end.
func (s *Scheduler) StopAll(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	done := s.cron.Stop()
	s.mu.Unlock()

	select {
	case <-done.Done():
		s.log.Infof("Scheduled jobs stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run fires a job by name outside its schedule.
func (s *Scheduler) Run(ctx context.Context, name string) (RunReport, error) {
	for _, j := range s.jobs {
		if j.name == name {
			return j.run(ctx)
		}
	}
	return RunReport{}, fmt.Errorf("reminder: unknown job %q", name)
}

func (s *Scheduler) fire(j job) {
	report, err := j.run(context.Background())
	if err != nil {
		s.log.Errorf("Job %s failed: %v", j.name, err)
		return
	}
	s.log.Infof("Job %s: processed %d, notified %d, failed %d", j.name, report.Processed, report.Notified, report.Failed)
}

// SendDailyReminders nudges every user who has not focused today.
func (s *Scheduler) SendDailyReminders(ctx context.Context) (RunReport, error) {
	report := RunReport{Job: JobDailyReminder}
	err := s.eachUser(ctx, func(u *domain.User, st *domain.UserStats) {
		report.Processed++
		if st.TodayPomodoros > 0 {
			return
		}
		s.send(ctx, &report, u.ID, domain.Notification{Kind: domain.NotifyDailyReminder, Streak: u.CurrentStreak})
	})
	return report, err
}

// SendStreakWarnings warns users whose streak ends at midnight unless they focus today.
func (s *Scheduler) SendStreakWarnings(ctx context.Context) (RunReport, error) {
	report := RunReport{Job: JobStreakWarning}
	now := s.clock.Now()
	hoursLeft := 24 - now.Hour()

	err := s.eachUser(ctx, func(u *domain.User, st *domain.UserStats) {
		report.Processed++
		if u.CurrentStreak <= 0 || activeOn(u.LastActiveDate, now) || st.TodayPomodoros > 0 {
			return
		}
		s.send(ctx, &report, u.ID, domain.Notification{
			Kind:      domain.NotifyStreakWarning,
			Streak:    u.CurrentStreak,
			HoursLeft: hoursLeft,
		})
	})
	return report, err
}

// SendWeeklySummaries reports the week to users who focused at least once. The
// counters are reset by the weekly-reset job, not here.
func (s *Scheduler) SendWeeklySummaries(ctx context.Context) (RunReport, error) {
	report := RunReport{Job: JobWeeklySummary}
	err := s.eachUser(ctx, func(u *domain.User, st *domain.UserStats) {
		report.Processed++
		if st.WeekPomodoros == 0 {
			return
		}
		s.send(ctx, &report, u.ID, domain.Notification{
			Kind:   domain.NotifyWeeklySummary,
			Streak: u.CurrentStreak,
			Stats:  st,
		})
	})
	return report, err
}

func (s *Scheduler) ResetDailyStats(ctx context.Context) (RunReport, error) {
	if err := s.store.ResetDailyStats(ctx); err != nil {
		return RunReport{Job: JobDailyReset}, fmt.Errorf("reset daily stats: %w", err)
	}
	return RunReport{Job: JobDailyReset}, nil
}

func (s *Scheduler) ResetWeeklyStats(ctx context.Context) (RunReport, error) {
	if err := s.store.ResetWeeklyStats(ctx); err != nil {
		return RunReport{Job: JobWeeklyReset}, fmt.Errorf("reset weekly stats: %w", err)
	}
	return RunReport{Job: JobWeeklyReset}, nil
}

func (s *Scheduler) eachUser(ctx context.Context, fn func(u *domain.User, st *domain.UserStats)) error {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}
	for _, u := range users {
		st, err := s.store.GetStats(ctx, u.ID)
		if err != nil {
			return fmt.Errorf("stats for %s: %w", u.ID, err)
		}
		fn(u, st)
	}
	return nil
}

func (s *Scheduler) send(ctx context.Context, report *RunReport, userID string, n domain.Notification) {
	if err := s.notifier.Notify(ctx, userID, n); err != nil {
		report.Failed++
		s.log.Warnf("Failed to deliver %s to %s: %v", n.Kind, userID, err)
		return
	}
	report.Notified++
}

func activeOn(lastActive, now time.Time) bool {
	if lastActive.IsZero() {
		return false
	}
	l := lastActive.In(now.Location())
	return l.Year() == now.Year() && l.YearDay() == now.YearDay()
}

// cronLogger adapts walog.Logger to cron.Logger.
type cronLogger struct {
	log walog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugf("cron: %s %v", msg, keysAndValues)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorf("cron: %s: %v %v", msg, err, keysAndValues)
}
