package notification

import (
	"context"
	"net/mail"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesisapp/thesis/core"
)

var ctx = context.Background()

type nopLogger struct{}

func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Fatal(string, ...interface{}) {}

type memRepo struct {
	mu     sync.Mutex
	notifs map[uuid.UUID]Notification
}

func newMemRepo() *memRepo { return &memRepo{notifs: make(map[uuid.UUID]Notification)} }

func (r *memRepo) CreateNotification(_ context.Context, n Notification) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifs[n.ID] = n
	return n, nil
}

func (r *memRepo) SetNotificationStatus(_ context.Context, id uuid.UUID, status Status, updatedAt time.Time) (Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifs[id]
	if !ok {
		return Notification{}, ErrNotFound
	}
	if n.Status != StatusPending {
		return Notification{}, ErrAlreadyResolved
	}
	n.Status = status
	n.UpdatedAt = updatedAt
	r.notifs[id] = n
	return n, nil
}

func (r *memRepo) QueryPendingNotifications(_ context.Context, before time.Time, limit int) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Notification, 0)
	for _, n := range r.notifs {
		if n.Status == StatusPending && n.CreatedAt.Before(before) {
			res = append(res, n)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].CreatedAt.Before(res[j].CreatedAt) })
	if len(res) > limit {
		res = res[:limit]
	}
	return res, nil
}

func (r *memRepo) QueryNotifications(_ context.Context, studentID string) ([]Notification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res := make([]Notification, 0)
	for _, n := range r.notifs {
		if n.StudentID == studentID {
			res = append(res, n)
		}
	}
	return res, nil
}

type fakeMailer struct {
	sent []*core.EmailMessage
	err  error
}

func (m *fakeMailer) SendMessage(_ context.Context, msg *core.EmailMessage) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type addressBook map[string]string

func (ab addressBook) StudentAddress(_ context.Context, id string) (mail.Address, error) {
	addr, ok := ab[id]
	if !ok {
		return mail.Address{}, errors.New("student not found")
	}
	return mail.Address{Name: id, Address: addr}, nil
}

func newTestService() (*Service, *memRepo, *fakeMailer) {
	repo := newMemRepo()
	mailer := &fakeMailer{}
	svc := NewService(repo, mailer, addressBook{"S001": "s001@studenti.polito.it"}, nopLogger{})
	return svc, repo, mailer
}

func decisionRequest(studentID string) Request {
	return DecisionRequest(studentID, DecisionNotice{
		ApplicationID:   "A42",
		Decision:        "Accepted",
		ProposalID:      "P019",
		ProposalTitle:   "Gossip protocols",
		ApplicationDate: time.Date(2023, 11, 6, 0, 0, 0, 0, time.UTC),
		Student:         "Rossi Anna",
		Supervisor:      "Corno Fulvio",
	})
}

func TestService_Notify(t *testing.T) {
	svc, repo, mailer := newTestService()

	n, err := svc.Notify(ctx, decisionRequest("S001"))
	require.NoError(t, err)
	assert.Equal(t, StatusSMTPAccepted, n.Status)
	assert.Len(t, repo.notifs, 1)
	assert.Equal(t, StatusSMTPAccepted, repo.notifs[n.ID].Status)

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	assert.Equal(t, "s001@studenti.polito.it", msg.To[0].Address)
	assert.Equal(t, "Your thesis application has been accepted", msg.Subject)
	assert.Equal(t, "application_decision", msg.TemplateName)
	assert.Equal(t, "Monday, 06/11/2023", msg.TemplateData.(map[string]string)[KeyApplicationDate])
}

func TestService_Notify_failures(t *testing.T) {
	tests := []struct {
		name      string
		studentID string
		mailErr   error
	}{
		{name: "relay refused", studentID: "S001", mailErr: errors.New("550 mailbox unavailable")},
		{name: "unknown address", studentID: "S404"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, mailer := newTestService()
			mailer.err = tt.mailErr

			n, err := svc.Notify(ctx, decisionRequest(tt.studentID))
			require.Error(t, err)
			assert.True(t, IsDeliveryError(err), "Notify() error = %v; want a DeliveryError", err)
			assert.Equal(t, StatusSMTPRejected, n.Status)
			assert.Equal(t, StatusSMTPRejected, repo.notifs[n.ID].Status)
			assert.Empty(t, mailer.sent)
		})
	}
}

func TestService_RedeliverStale(t *testing.T) {
	svc, repo, mailer := newTestService()
	now := time.Date(2023, 11, 6, 12, 0, 0, 0, time.UTC)
	nowFunc = func() time.Time { return now }
	defer func() { nowFunc = time.Now }()

	add := func(studentID string, status Status, age time.Duration) uuid.UUID {
		n := Notification{
			ID:        uuid.New(),
			StudentID: studentID,
			Category:  CategoryApplicationDecision,
			Subject:   "s",
			Content:   Content{},
			Status:    status,
			CreatedAt: now.Add(-age),
		}
		_, _ = repo.CreateNotification(ctx, n)
		return n.ID
	}
	stale := add("S001", StatusPending, time.Hour)
	orphan := add("S404", StatusPending, 2*time.Hour)
	fresh := add("S001", StatusPending, time.Minute)
	done := add("S001", StatusSMTPAccepted, time.Hour)

	report, err := svc.RedeliverStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, RedeliveryReport{Found: 2, Delivered: 1, Failed: 1}, report)

	assert.Equal(t, StatusSMTPAccepted, repo.notifs[stale].Status)
	assert.Equal(t, StatusSMTPRejected, repo.notifs[orphan].Status)
	assert.Equal(t, StatusPending, repo.notifs[fresh].Status)
	assert.Equal(t, StatusSMTPAccepted, repo.notifs[done].Status)
	assert.Len(t, mailer.sent, 1)

	// nothing left
	report, err = svc.RedeliverStale(ctx, 10*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, RedeliveryReport{}, report)
}

func TestNewEmailMessage_plain(t *testing.T) {
	n := Notification{
		Category: "Reminder",
		Subject:  "Proposal expiring",
		Content:  Content{"proposal_id": "P019", "expiration_date": "2024-03-01"},
	}
	msg := NewEmailMessage(n, mail.Address{Address: "s001@studenti.polito.it"})

	assert.Empty(t, msg.TemplateName)
	assert.Equal(t, "expiration_date: 2024-03-01\nproposal_id: P019\n", msg.BodyStr)
	assert.Equal(t, "Proposal expiring", msg.Subject)
}

func TestDecisionSubject(t *testing.T) {
	tests := map[string]string{
		"Accepted":  "Your thesis application has been accepted",
		"Rejected":  "Your thesis application has been rejected",
		"Cancelled": "Update on your thesis application",
	}
	for decision, want := range tests {
		if got := DecisionSubject(decision); got != want {
			t.Errorf("DecisionSubject(%q) = %q; want %q", decision, got, want)
		}
	}
}
