package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core/notification"
)

const notificationColumns = `id, student_id, category, subject, content, status, created_at, updated_at`

type notificationRow struct {
	ID        uuid.UUID      `db:"id"`
	StudentID string         `db:"student_id"`
	Category  string         `db:"category"`
	Subject   string         `db:"subject"`
	Content   types.JSONText `db:"content"`
	Status    string         `db:"status"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func (r notificationRow) toNotification() (notification.Notification, error) {
	content := notification.Content{}
	if len(r.Content) > 0 {
		if err := r.Content.Unmarshal(&content); err != nil {
			return notification.Notification{}, errors.Wrap(err, "decoding notification content")
		}
	}
	return notification.Notification{
		ID:        r.ID,
		StudentID: r.StudentID,
		Category:  r.Category,
		Subject:   r.Subject,
		Content:   content,
		Status:    notification.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}, nil
}

type notificationRepository struct {
	db *sqlx.DB
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *sqlx.DB) notification.Repository {
	return &notificationRepository{db: db}
}

func (repo *notificationRepository) CreateNotification(
	ctx context.Context,
	n notification.Notification,
) (notification.Notification, error) {
	content, err := json.Marshal(n.Content)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "encoding notification content")
	}
	q := `INSERT INTO student_notification (` + notificationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING ` + notificationColumns
	var row notificationRow
	err = repo.db.GetContext(ctx, &row, q,
		n.ID, n.StudentID, n.Category, n.Subject, types.JSONText(content), string(n.Status), n.CreatedAt, n.UpdatedAt)
	if err != nil {
		return notification.Notification{}, errors.Wrap(err, "inserting notification")
	}
	return row.toNotification()
}

func (repo *notificationRepository) SetNotificationStatus(
	ctx context.Context,
	id uuid.UUID,
	status notification.Status,
	updatedAt time.Time,
) (notification.Notification, error) {
	var row notificationRow
	q := `UPDATE student_notification SET status = $2, updated_at = $3
		WHERE id = $1 AND status = 'Pending' RETURNING ` + notificationColumns
	if err := repo.db.GetContext(ctx, &row, q, id, string(status), updatedAt); err != nil {
		if err != sql.ErrNoRows {
			return notification.Notification{}, errors.Wrap(err, "updating notification status")
		}
		var exists bool
		if err = repo.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM student_notification WHERE id = $1)`, id); err != nil {
			return notification.Notification{}, errors.Wrap(err, "checking notification")
		}
		if !exists {
			return notification.Notification{}, notification.ErrNotFound
		}
		return notification.Notification{}, notification.ErrAlreadyResolved
	}
	return row.toNotification()
}

func (repo *notificationRepository) QueryPendingNotifications(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]notification.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM student_notification
		WHERE status = 'Pending' AND created_at < $1 ORDER BY created_at LIMIT $2`
	return repo.selectNotifications(ctx, q, before, limit)
}

func (repo *notificationRepository) QueryNotifications(
	ctx context.Context,
	studentID string,
) ([]notification.Notification, error) {
	q := `SELECT ` + notificationColumns + ` FROM student_notification WHERE student_id = $1 ORDER BY created_at DESC`
	return repo.selectNotifications(ctx, q, studentID)
}

func (repo *notificationRepository) selectNotifications(
	ctx context.Context,
	q string,
	args ...interface{},
) ([]notification.Notification, error) {
	var rows []notificationRow
	if err := repo.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, errors.Wrap(err, "selecting notifications")
	}
	notifs := make([]notification.Notification, 0, len(rows))
	for _, row := range rows {
		n, err := row.toNotification()
		if err != nil {
			return nil, err
		}
		notifs = append(notifs, n)
	}
	return notifs, nil
}
