package domain_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/fardannozami/focuspod/internal/domain"
)

func TestRequirement_Satisfied(t *testing.T) {
	tests := []struct {
		req  domain.Requirement
		p    domain.Progress
		want bool
	}{
		{domain.Requirement{Kind: domain.RequirePomodoros, Threshold: 10}, domain.Progress{Pomodoros: 10}, true},
		{domain.Requirement{Kind: domain.RequirePomodoros, Threshold: 10}, domain.Progress{Pomodoros: 9}, false},
		{domain.Requirement{Kind: domain.RequireTasks, Threshold: 1}, domain.Progress{Tasks: 4}, true},
		{domain.Requirement{Kind: domain.RequireStreak, Threshold: 7}, domain.Progress{Streak: 7}, true},
		{domain.Requirement{Kind: domain.RequireStreak, Threshold: 7}, domain.Progress{Streak: 8}, false},
		{domain.Requirement{Kind: domain.RequirePodsCreated, Threshold: 1}, domain.Progress{PodsCreated: 1}, true},
		{domain.Requirement{Kind: domain.RequireFocusHours, Threshold: 10}, domain.Progress{FocusMinutes: 599}, false},
		{domain.Requirement{Kind: domain.RequireFocusHours, Threshold: 10}, domain.Progress{FocusMinutes: 600}, true},
		{domain.Requirement{Kind: 0, Threshold: 0}, domain.Progress{}, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s>=%d", tt.req.Kind, tt.req.Threshold), func(t *testing.T) {
			if got := tt.req.Satisfied(tt.p); got != tt.want {
				t.Errorf("Satisfied(%+v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}
}

func TestAchievements_Catalog(t *testing.T) {
	all := domain.Achievements()
	if len(all) != 15 {
		t.Fatalf("Expected 15 achievements, got %d", len(all))
	}

	seen := make(map[string]bool)
	for _, a := range all {
		if seen[a.ID] {
			t.Errorf("Duplicate achievement id %s", a.ID)
		}
		seen[a.ID] = true
		if a.Reward <= 0 || a.Requirement.Threshold <= 0 {
			t.Errorf("Achievement %s needs a positive reward and threshold", a.ID)
		}
	}

	all[0].Reward = 9999
	if a, _ := domain.FindAchievement(all[0].ID); a.Reward == 9999 {
		t.Error("Achievements must return a copy of the catalog")
	}
	if _, ok := domain.FindAchievement("nope"); ok {
		t.Error("Expected unknown id to be missing")
	}
}

func TestParseSessionAction(t *testing.T) {
	tests := map[string]domain.SessionAction{
		"completed": domain.ActionCompleted,
		" DONE ":    domain.ActionCompleted,
		"Continue":  domain.ActionContinue,
		"break":     domain.ActionBreak,
		"":          domain.ActionNone,
	}
	for in, want := range tests {
		got, ok := domain.ParseSessionAction(in)
		if !ok || got != want {
			t.Errorf("ParseSessionAction(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := domain.ParseSessionAction("nap"); ok {
		t.Error("Expected unknown action rejected")
	}
}

func TestRemainingUntil(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	r := domain.RemainingUntil(now.Add(14*time.Minute+30*time.Second+500*time.Millisecond), now)
	if r.Minutes != 14 || r.Seconds != 30 {
		t.Errorf("Expected 14:30, got %+v", r)
	}
	r = domain.RemainingUntil(now.Add(-time.Minute), now)
	if r.Minutes != 0 || r.Seconds != 0 {
		t.Errorf("Expected zero for a past end, got %+v", r)
	}
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("join pod: %w", domain.ErrPodAlreadyStarted)
	if domain.KindOf(wrapped) != domain.KindInvalidState {
		t.Errorf("Expected InvalidState through wrapping, got %v", domain.KindOf(wrapped))
	}
	if domain.KindOf(fmt.Errorf("disk full")) != domain.KindUnknown {
		t.Error("Expected plain errors to be KindUnknown")
	}
	if domain.KindOf(nil) != domain.KindUnknown {
		t.Error("Expected nil to be KindUnknown")
	}
}

func TestPodStatus_Terminal(t *testing.T) {
	if domain.PodWaiting.Terminal() || domain.PodActive.Terminal() {
		t.Error("Open statuses are not terminal")
	}
	if !domain.PodCompleted.Terminal() || !domain.PodCancelled.Terminal() {
		t.Error("Completed and cancelled are terminal")
	}
}
