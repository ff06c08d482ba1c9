package categorize

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/models"
)

var base = time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)

func at(d time.Duration) *time.Time {
	t := base.Add(d)
	return &t
}

func task(name string, status models.Status, priority models.Priority, deadline, completed *time.Time) models.Task {
	return models.Task{
		ID:           uuid.New(),
		Name:         name,
		TaskStatus:   status,
		TaskPriority: priority,
		DeadlineAt:   deadline,
		CompletedAt:  completed,
	}
}

func names(tasks []models.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Name
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestCategorizeScenario(t *testing.T) {
	t.Parallel()

	tasks := []models.Task{
		task("1", models.StatusPending, "", at(-time.Hour), nil),
		task("2", models.StatusPending, "", at(10*time.Hour), nil),
		task("3", models.StatusCompleted, "", nil, at(0)),
	}

	b := Categorize(tasks, base)

	checks := []struct {
		bucket string
		got    []models.Task
		want   []string
	}{
		{"overdue", b.Overdue, []string{"1"}},
		{"overdue_soon", b.OverdueSoon, []string{"2"}},
		{"completed", b.Completed, []string{"3"}},
		{"todos", b.Todos, []string{"1", "2"}},
		{"tomorrow", b.Tomorrow, []string{}},
		{"ongoing", b.Ongoing, []string{}},
		{"archived", b.Archived, []string{}},
	}
	for _, c := range checks {
		if !equal(names(c.got), c.want) {
			t.Errorf("%s = %v, want %v", c.bucket, names(c.got), c.want)
		}
	}
}

func TestCategorizeDeadlineBoundaries(t *testing.T) {
	t.Parallel()

	tomorrowMidnight := time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)
	dayAfter := time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC)
	withinSoon := base.Add(22 * time.Hour)

	tests := []struct {
		name     string
		deadline *time.Time
		want     string
	}{
		{"no deadline is ongoing", nil, "ongoing"},
		{"past is overdue", at(-time.Minute), "overdue"},
		{"exactly now is overdue soon", at(0), "overdue_soon"},
		{"22h ahead is overdue soon", &withinSoon, "overdue_soon"},
		{"23h ahead is overdue soon", at(SoonWindow), "overdue_soon"},
		{"tomorrow midnight beyond 23h is tomorrow", &tomorrowMidnight, "tomorrow"},
		{"late tomorrow is tomorrow", at(47 * time.Hour), "tomorrow"},
		{"day after tomorrow midnight is ongoing", &dayAfter, "ongoing"},
		{"next week is ongoing", at(7 * 24 * time.Hour), "ongoing"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := Categorize([]models.Task{task("x", models.StatusPending, models.PriorityLow, tt.deadline, nil)}, base)
			got := map[string]int{
				"overdue":      len(b.Overdue),
				"overdue_soon": len(b.OverdueSoon),
				"tomorrow":     len(b.Tomorrow),
				"ongoing":      len(b.Ongoing),
			}
			total := 0
			for _, n := range got {
				total += n
			}
			if total != 1 {
				t.Fatalf("Expected exactly one deadline bucket, got %v", got)
			}
			if got[tt.want] != 1 {
				t.Errorf("Expected task in %s, got %v", tt.want, got)
			}
		})
	}
}

func TestOverdueSoonWinsOverTomorrow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	deadline := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC) // 13h ahead, also tomorrow

	b := Categorize([]models.Task{task("x", models.StatusOnProcess, models.PriorityHigh, &deadline, nil)}, now)

	if len(b.OverdueSoon) != 1 || len(b.Tomorrow) != 0 {
		t.Errorf("Expected overdue_soon only, got soon=%d tomorrow=%d", len(b.OverdueSoon), len(b.Tomorrow))
	}
}

func TestTomorrowUsesNowLocation(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC+9", 9*3600)
	now := time.Date(2026, 3, 10, 0, 30, 0, 0, loc)
	// 00:00 on the 11th in UTC+9 is 15:00 on the 10th in UTC.
	deadline := time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC)

	b := Categorize([]models.Task{task("x", models.StatusPending, models.PriorityLow, &deadline, nil)}, now)

	if len(b.Tomorrow) != 1 {
		t.Errorf("Expected deadline to fall on tomorrow in now's location, got %+v", b.Counts())
	}
}

func TestCompletedTasksNeverInDeadlineBuckets(t *testing.T) {
	t.Parallel()

	deadlines := []*time.Time{nil, at(-48 * time.Hour), at(time.Hour), at(30 * time.Hour), at(100 * time.Hour)}
	statuses := []models.Status{models.StatusPending, models.StatusOnProcess, models.StatusCompleted, models.StatusArchived}

	for _, d := range deadlines {
		for _, s := range statuses {
			b := Categorize([]models.Task{task("done", s, models.PriorityUrgent, d, at(-time.Hour))}, base)
			c := b.Counts()
			if c.Completed != 1 {
				t.Errorf("status=%s: expected completed, got %+v", s, c)
			}
			if c.Overdue+c.OverdueSoon+c.Tomorrow+c.Ongoing+c.Archived+c.Todos != 0 {
				t.Errorf("status=%s: completed task leaked into %+v", s, c)
			}
			if c.UrgentPriority != 1 {
				t.Errorf("status=%s: priority bucketing should ignore completion, got %+v", s, c)
			}
		}
	}
}

func TestArchivedTasks(t *testing.T) {
	t.Parallel()

	b := Categorize([]models.Task{
		task("a", models.StatusArchived, models.PriorityMedium, at(-time.Hour), nil),
		task("b", models.StatusArchived, models.PriorityMedium, nil, nil),
	}, base)

	if !equal(names(b.Archived), []string{"a", "b"}) {
		t.Errorf("Expected both archived, got %v", names(b.Archived))
	}
	c := b.Counts()
	if c.Overdue+c.OverdueSoon+c.Tomorrow+c.Ongoing+c.Todos != 0 {
		t.Errorf("Archived tasks leaked into %+v", c)
	}
	if c.MediumPriority != 2 {
		t.Errorf("Expected 2 medium priority, got %d", c.MediumPriority)
	}
}

func TestStatusCompletedWithoutTimestampStaysTodo(t *testing.T) {
	t.Parallel()

	b := Categorize([]models.Task{task("x", models.StatusCompleted, models.PriorityLow, at(-time.Hour), nil)}, base)

	if len(b.Overdue) != 0 || len(b.Completed) != 0 {
		t.Errorf("Expected no overdue/completed placement, got %+v", b.Counts())
	}
	if len(b.Ongoing) != 1 || len(b.Todos) != 1 {
		t.Errorf("Expected catch-all ongoing and todos, got %+v", b.Counts())
	}
}

func TestPriorityPartition(t *testing.T) {
	t.Parallel()

	b := Categorize([]models.Task{
		task("l", models.StatusPending, models.PriorityLow, nil, nil),
		task("m", models.StatusPending, models.PriorityMedium, nil, nil),
		task("h", models.StatusPending, models.PriorityHigh, nil, nil),
		task("u", models.StatusPending, models.PriorityUrgent, nil, nil),
		task("u2", models.StatusArchived, models.PriorityUrgent, nil, nil),
	}, base)

	c := b.Counts()
	if c.LowPriority != 1 || c.MediumPriority != 1 || c.HighPriority != 1 || c.UrgentPriority != 2 {
		t.Errorf("Unexpected priority counts %+v", c)
	}
}

func TestEmptyInput(t *testing.T) {
	t.Parallel()

	for _, in := range [][]models.Task{nil, {}} {
		b := Categorize(in, base)
		all := [][]models.Task{
			b.Overdue, b.OverdueSoon, b.Tomorrow, b.Ongoing, b.Archived, b.Completed,
			b.Todos, b.LowPriority, b.MediumPriority, b.HighPriority, b.UrgentPriority,
		}
		for i, bucket := range all {
			if bucket == nil {
				t.Errorf("bucket %d is nil, want empty slice", i)
			}
			if len(bucket) != 0 {
				t.Errorf("bucket %d has %d tasks, want 0", i, len(bucket))
			}
		}
	}
}
