package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tusktask/tusktask/internal/apperr"
	"github.com/tusktask/tusktask/internal/models"
	"gorm.io/gorm"
)

const reminderBatchSize = 200

// ReminderService mails task reminders whose time has come. Each reminder
// is sent at most once; changing reminder_at re-arms it.
type ReminderService struct {
	db     *gorm.DB
	mailer Mailer
	now    func() time.Time
}

func NewReminderService(db *gorm.DB, mailer Mailer) *ReminderService {
	return &ReminderService{db: db, mailer: mailer, now: time.Now}
}

// SendDue processes one batch of due reminders and returns how many were
// delivered. Delivery failures are logged and retried on the next sweep.
func (s *ReminderService) SendDue(ctx context.Context) (int, error) {
	db := s.db.WithContext(ctx)
	now := s.now()

	var tasks []models.Task
	if err := db.
		Where("reminder_at IS NOT NULL AND reminder_at <= ?", now).
		Where("reminder_sent_at IS NULL AND completed_at IS NULL").
		Where("task_status <> ?", models.StatusArchived).
		Order("reminder_at ASC").
		Limit(reminderBatchSize).
		Find(&tasks).Error; err != nil {
		return 0, apperr.Database(err)
	}
	if len(tasks) == 0 {
		return 0, nil
	}

	emails, err := s.ownerEmails(db, tasks)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, t := range tasks {
		email, ok := emails[t.OwnerID]
		if !ok {
			continue
		}
		if err := s.mailer.Send(ctx, reminderMessage(email, &t)); err != nil {
			slog.Error("failed to send reminder", "task_id", t.ID.String(), "error", err.Error())
			continue
		}
		if err := db.Model(&models.Task{}).
			Where("id = ?", t.ID).
			Update("reminder_sent_at", now).Error; err != nil {
			return sent, apperr.Database(err)
		}
		sent++
	}
	return sent, nil
}

func (s *ReminderService) ownerEmails(db *gorm.DB, tasks []models.Task) (map[uuid.UUID]string, error) {
	ids := make([]uuid.UUID, 0, len(tasks))
	seen := make(map[uuid.UUID]bool, len(tasks))
	for _, t := range tasks {
		if !seen[t.OwnerID] {
			seen[t.OwnerID] = true
			ids = append(ids, t.OwnerID)
		}
	}

	var users []models.User
	if err := db.Select("id", "email").Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, apperr.Database(err)
	}
	emails := make(map[uuid.UUID]string, len(users))
	for _, u := range users {
		emails[u.ID] = u.Email
	}
	return emails, nil
}

func reminderMessage(email string, t *models.Task) Message {
	body := fmt.Sprintf("Reminder: %s", t.Name)
	if t.DeadlineAt != nil {
		body += fmt.Sprintf("\nDue %s", t.DeadlineAt.UTC().Format(time.RFC1123))
	}
	if t.Description != "" {
		body += "\n\n" + t.Description
	}
	return Message{To: email, Subject: "Reminder: " + t.Name, Body: body}
}

// Job adapts SendDue for the scheduler.
func (s *ReminderService) Job(timeout time.Duration) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		sent, err := s.SendDue(ctx)
		if err != nil {
			slog.Error("reminder sweep failed", "error", err.Error())
			return
		}
		if sent > 0 {
			slog.Info("reminders sent", "count", sent)
		}
	}
}
