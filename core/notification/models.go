package notification

import (
	"time"

	"github.com/google/uuid"
)

// Status is the delivery status of a Notification.
// A Notification is created Pending and leaves that state exactly once.
type Status string

const (
	StatusPending      Status = "Pending"
	StatusSMTPAccepted Status = "SMTP Accepted"
	StatusSMTPRejected Status = "SMTP Rejected"
)

const CategoryApplicationDecision = "Application Decision"

// categoryTemplates maps categories to the email template used to render their Content.
var categoryTemplates = map[string]string{
	CategoryApplicationDecision: "application_decision",
}

// Content is the structured payload of a Notification, kept so the notice can be rendered again.
type Content map[string]string

type Notification struct {
	ID        uuid.UUID `json:"id"`
	StudentID string    `json:"student_id"`
	Category  string    `json:"category"`
	Subject   string    `json:"subject"`
	Content   Content   `json:"content"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Request describes a notice to record and deliver to a student.
type Request struct {
	StudentID string
	Category  string
	Subject   string
	Content   Content
}

// RedeliveryReport sums up a RedeliverStale run.
type RedeliveryReport struct {
	Found     int
	Delivered int
	Failed    int
}
