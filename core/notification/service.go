package notification

import (
	"context"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
)

var (
	ErrNotFound = core.NewNotFoundError("notification not found")
	// ErrAlreadyResolved is returned when updating the status of a Notification that is no longer Pending.
	ErrAlreadyResolved = core.NewConflictError("notification status already updated")

	redeliveryBatch = 100
	nowFunc         = time.Now // mockable
)

// DeliveryError reports that a recorded Notification could not be delivered.
type DeliveryError struct {
	NotificationID uuid.UUID
	Err            error
}

func (err *DeliveryError) Error() string {
	return fmt.Sprintf("notification %s not sent: %v", err.NotificationID, err.Err)
}

func IsDeliveryError(err error) bool {
	_, ok := errors.Cause(err).(*DeliveryError)
	return ok
}

type (
	Repository interface {
		CreateNotification(ctx context.Context, n Notification) (Notification, error)
		// SetNotificationStatus moves a Pending Notification to `status`.
		// It returns ErrAlreadyResolved if the Notification is not Pending anymore.
		SetNotificationStatus(ctx context.Context, id uuid.UUID, status Status, updatedAt time.Time) (Notification, error)
		// QueryPendingNotifications lists Pending notifications created before `before`, oldest first.
		QueryPendingNotifications(ctx context.Context, before time.Time, limit int) ([]Notification, error)
		QueryNotifications(ctx context.Context, studentID string) ([]Notification, error)
	}

	// AddressBook resolves the email address of a student.
	AddressBook interface {
		StudentAddress(ctx context.Context, studentID string) (mail.Address, error)
	}

	Service struct {
		repo      Repository
		mailSvc   core.EmailService
		addresses AddressBook
		logger    core.Logger
	}
)

func NewService(repo Repository, mailSvc core.EmailService, addresses AddressBook, logger core.Logger) *Service {
	return &Service{
		repo:      repo,
		mailSvc:   mailSvc,
		addresses: addresses,
		logger:    logger,
	}
}

// Notify records the notice as Pending, then attempts its delivery and records the outcome.
// A failed delivery leaves the Notification "SMTP Rejected" and returns a *DeliveryError.
func (svc *Service) Notify(ctx context.Context, req Request) (Notification, error) {
	now := nowFunc().UTC()
	n := Notification{
		ID:        uuid.New(),
		StudentID: req.StudentID,
		Category:  req.Category,
		Subject:   req.Subject,
		Content:   req.Content,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if n.Content == nil {
		n.Content = Content{}
	}

	n, err := svc.repo.CreateNotification(ctx, n)
	if err != nil {
		return Notification{}, errors.Wrap(err, "recording notification")
	}
	return svc.deliver(ctx, n)
}

// RedeliverStale delivers the notifications left Pending for longer than `olderThan`,
// e.g. when the process stopped between recording and sending them.
func (svc *Service) RedeliverStale(ctx context.Context, olderThan time.Duration) (RedeliveryReport, error) {
	var report RedeliveryReport

	pending, err := svc.repo.QueryPendingNotifications(ctx, nowFunc().UTC().Add(-olderThan), redeliveryBatch)
	if err != nil {
		return report, errors.Wrap(err, "querying pending notifications")
	}
	report.Found = len(pending)

	for _, n := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		if _, err := svc.deliver(ctx, n); err != nil {
			if errors.Cause(err) == ErrAlreadyResolved {
				continue // resolved concurrently
			}
			report.Failed++
			svc.logger.Warn(fmt.Sprintf("redelivering notification %s", n.ID), err)
			continue
		}
		report.Delivered++
	}
	return report, nil
}

func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]Notification, error) {
	return svc.repo.QueryNotifications(ctx, studentID)
}

func (svc *Service) deliver(ctx context.Context, n Notification) (Notification, error) {
	status := StatusSMTPAccepted
	sendErr := svc.send(ctx, n)
	if sendErr != nil {
		status = StatusSMTPRejected
	}

	updated, err := svc.repo.SetNotificationStatus(ctx, n.ID, status, nowFunc().UTC())
	if err != nil {
		return n, errors.Wrap(err, "updating notification status")
	}
	if sendErr != nil {
		return updated, &DeliveryError{NotificationID: n.ID, Err: sendErr}
	}
	return updated, nil
}

func (svc *Service) send(ctx context.Context, n Notification) error {
	addr, err := svc.addresses.StudentAddress(ctx, n.StudentID)
	if err != nil {
		return errors.Wrap(err, "resolving student address")
	}
	return svc.mailSvc.SendMessage(ctx, NewEmailMessage(n, addr))
}

// NewEmailMessage builds the email of a Notification from its stored subject & content.
func NewEmailMessage(n Notification, to mail.Address) *core.EmailMessage {
	msg := &core.EmailMessage{
		To:      []mail.Address{to},
		Subject: n.Subject,
	}
	if tmpl, ok := categoryTemplates[n.Category]; ok {
		msg.TemplateName = tmpl
		msg.TemplateData = map[string]string(n.Content)
	} else {
		msg.BodyStr = plainBody(n.Content)
	}
	return msg
}

// plainBody lists the content of a notification without a template, one "key: value" per line.
func plainBody(c Content) string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(k + ": " + c[k] + "\n")
	}
	return b.String()
}
