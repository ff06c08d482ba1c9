package services

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/categorize"
	"github.com/tusktask/tusktask/internal/models"
	"github.com/tusktask/tusktask/internal/session"
	"gorm.io/gorm"
)

const (
	DefaultStatsDays = 7
	MaxStatsDays     = 90
)

type DailyCompletion struct {
	Date      string `json:"date"`
	Completed int    `json:"completed"`
}

type Stats struct {
	Total          int               `json:"total"`
	Completed      int               `json:"completed"`
	CompletionRate float64           `json:"completion_rate"`
	Buckets        categorize.Counts `json:"buckets"`
	Daily          []DailyCompletion `json:"daily"`
	Days           int               `json:"days"`
}

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

// Summary aggregates the caller's tasks, optionally limited to one project.
// Daily holds one entry per calendar day in now's location, oldest first,
// ending today.
func (s *StatsService) Summary(ctx context.Context, ownerID uuid.UUID, projectID *uuid.UUID, days int, now time.Time) (*Stats, error) {
	if days <= 0 {
		days = DefaultStatsDays
	}
	if days > MaxStatsDays {
		return nil, apperr.Invalid("days must be at most 90")
	}

	db := s.db.WithContext(ctx)
	q := db.Scopes(session.OwnedBy(ownerID))
	if projectID != nil {
		if _, err := loadProject(db, ownerID, *projectID); err != nil {
			return nil, err
		}
		q = q.Where("project_id = ?", *projectID)
	}

	var tasks []models.Task
	if err := q.Find(&tasks).Error; err != nil {
		return nil, apperr.Database(err)
	}

	counts := categorize.Categorize(tasks, now).Counts()

	stats := &Stats{
		Total:     len(tasks),
		Completed: counts.Completed,
		Buckets:   counts,
		Days:      days,
	}
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total)
		stats.CompletionRate = math.Round(rate*100) / 100
	}

	y, m, d := now.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, now.Location()).AddDate(0, 0, -(days - 1))

	stats.Daily = make([]DailyCompletion, days)
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format(time.DateOnly)
		stats.Daily[i] = DailyCompletion{Date: date}
		index[date] = i
	}
	for _, t := range tasks {
		if t.CompletedAt == nil {
			continue
		}
		date := t.CompletedAt.In(now.Location()).Format(time.DateOnly)
		if i, ok := index[date]; ok {
			stats.Daily[i].Completed++
		}
	}

	return stats, nil
}
