package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/thesisapp/thesis/core/notification"
)

type notificationRepository struct {
	db *DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(
	_ context.Context,
	n notification.Notification,
) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	n.Content = copyMap(n.Content)
	repo.db.notifications[n.ID] = n
	return n, nil
}

func (repo *notificationRepository) SetNotificationStatus(
	_ context.Context,
	id uuid.UUID,
	status notification.Status,
	updatedAt time.Time,
) (notification.Notification, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	n, ok := repo.db.notifications[id]
	if !ok {
		return notification.Notification{}, notification.ErrNotFound
	}
	if n.Status != notification.StatusPending {
		return notification.Notification{}, notification.ErrAlreadyResolved
	}
	n.Status = status
	n.UpdatedAt = updatedAt
	repo.db.notifications[id] = n
	return n, nil
}

func (repo *notificationRepository) QueryPendingNotifications(
	_ context.Context,
	before time.Time,
	limit int,
) ([]notification.Notification, error) {
	notifs := repo.query(func(n notification.Notification) bool {
		return n.Status == notification.StatusPending && n.CreatedAt.Before(before)
	})
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.Before(notifs[j].CreatedAt) })
	if limit > 0 && len(notifs) > limit {
		notifs = notifs[:limit]
	}
	return notifs, nil
}

func (repo *notificationRepository) QueryNotifications(
	_ context.Context,
	studentID string,
) ([]notification.Notification, error) {
	notifs := repo.query(func(n notification.Notification) bool { return n.StudentID == studentID })
	sort.Slice(notifs, func(i, j int) bool { return notifs[i].CreatedAt.After(notifs[j].CreatedAt) })
	return notifs, nil
}

func (repo *notificationRepository) query(match func(notification.Notification) bool) []notification.Notification {
	repo.db.RLock()
	defer repo.db.RUnlock()

	notifs := make([]notification.Notification, 0)
	for _, n := range repo.db.notifications {
		if match(n) {
			notifs = append(notifs, n)
		}
	}
	return notifs
}
