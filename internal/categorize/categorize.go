// Package categorize groups a task list into the dashboard buckets.
//
// A task lands in exactly one of overdue, overdue_soon, tomorrow and ongoing
// (ongoing also collects everything without a deadline), unless it is
// completed or archived. Independently it appears in one priority bucket,
// and in todos when it is neither completed nor archived.
package categorize

import (
	"time"

	"github.com/tusktask/tusktask/internal/models"
)

// SoonWindow is how far ahead a deadline counts as overdue soon.
const SoonWindow = 23 * time.Hour

type Buckets struct {
	Overdue        []models.Task `json:"overdue"`
	OverdueSoon    []models.Task `json:"overdue_soon"`
	Tomorrow       []models.Task `json:"tomorrow"`
	Ongoing        []models.Task `json:"ongoing"`
	Archived       []models.Task `json:"archived"`
	Completed      []models.Task `json:"completed"`
	Todos          []models.Task `json:"todos"`
	LowPriority    []models.Task `json:"low_priority"`
	MediumPriority []models.Task `json:"medium_priority"`
	HighPriority   []models.Task `json:"high_priority"`
	UrgentPriority []models.Task `json:"urgent_priority"`
}

type Counts struct {
	Overdue        int `json:"overdue"`
	OverdueSoon    int `json:"overdue_soon"`
	Tomorrow       int `json:"tomorrow"`
	Ongoing        int `json:"ongoing"`
	Archived       int `json:"archived"`
	Completed      int `json:"completed"`
	Todos          int `json:"todos"`
	LowPriority    int `json:"low_priority"`
	MediumPriority int `json:"medium_priority"`
	HighPriority   int `json:"high_priority"`
	UrgentPriority int `json:"urgent_priority"`
}

func newBuckets() Buckets {
	return Buckets{
		Overdue:        []models.Task{},
		OverdueSoon:    []models.Task{},
		Tomorrow:       []models.Task{},
		Ongoing:        []models.Task{},
		Archived:       []models.Task{},
		Completed:      []models.Task{},
		Todos:          []models.Task{},
		LowPriority:    []models.Task{},
		MediumPriority: []models.Task{},
		HighPriority:   []models.Task{},
		UrgentPriority: []models.Task{},
	}
}

// Categorize buckets tasks relative to now. Calendar days are taken in
// now's location. Input order is preserved within each bucket.
func Categorize(tasks []models.Task, now time.Time) Buckets {
	b := newBuckets()

	tomorrowStart := midnight(now).AddDate(0, 0, 1)
	tomorrowEnd := tomorrowStart.AddDate(0, 0, 1)

	for _, t := range tasks {
		completed := t.CompletedAt != nil
		archived := t.TaskStatus == models.StatusArchived && !completed

		switch {
		case completed:
			b.Completed = append(b.Completed, t)
		case archived:
			b.Archived = append(b.Archived, t)
		default:
			b.Todos = append(b.Todos, t)
			b.placeByDeadline(t, now, tomorrowStart, tomorrowEnd)
		}

		switch t.TaskPriority {
		case models.PriorityLow:
			b.LowPriority = append(b.LowPriority, t)
		case models.PriorityMedium:
			b.MediumPriority = append(b.MediumPriority, t)
		case models.PriorityHigh:
			b.HighPriority = append(b.HighPriority, t)
		case models.PriorityUrgent:
			b.UrgentPriority = append(b.UrgentPriority, t)
		}
	}
	return b
}

// placeByDeadline handles a task that is neither completed nor archived.
func (b *Buckets) placeByDeadline(t models.Task, now, tomorrowStart, tomorrowEnd time.Time) {
	if !hasDeadlineBucket(t) {
		b.Ongoing = append(b.Ongoing, t)
		return
	}

	deadline := *t.DeadlineAt
	switch {
	case deadline.Before(now):
		b.Overdue = append(b.Overdue, t)
	case deadline.Sub(now) <= SoonWindow:
		b.OverdueSoon = append(b.OverdueSoon, t)
	case !deadline.Before(tomorrowStart) && deadline.Before(tomorrowEnd):
		b.Tomorrow = append(b.Tomorrow, t)
	default:
		b.Ongoing = append(b.Ongoing, t)
	}
}

// hasDeadlineBucket reports whether t is eligible for the deadline buckets.
func hasDeadlineBucket(t models.Task) bool {
	if t.DeadlineAt == nil || t.CompletedAt != nil {
		return false
	}
	return t.TaskStatus != models.StatusArchived && t.TaskStatus != models.StatusCompleted
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func (b Buckets) Counts() Counts {
	return Counts{
		Overdue:        len(b.Overdue),
		OverdueSoon:    len(b.OverdueSoon),
		Tomorrow:       len(b.Tomorrow),
		Ongoing:        len(b.Ongoing),
		Archived:       len(b.Archived),
		Completed:      len(b.Completed),
		Todos:          len(b.Todos),
		LowPriority:    len(b.LowPriority),
		MediumPriority: len(b.MediumPriority),
		HighPriority:   len(b.HighPriority),
		UrgentPriority: len(b.UrgentPriority),
	}
}
