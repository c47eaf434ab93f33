package application

import (
	"time"

	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/student"
)

// Status of an Application. Pending is the only non-terminal status.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusAccepted  Status = "Accepted"
	StatusRejected  Status = "Rejected"
	StatusCancelled Status = "Cancelled"
)

// IsDecision reports whether a teacher may set this status.
func (s Status) IsDecision() bool {
	return s == StatusAccepted || s == StatusRejected
}

type Application struct {
	ID              string    `json:"id" db:"id"`
	ProposalID      string    `json:"proposal_id" db:"proposal_id"`
	StudentID       string    `json:"student_id" db:"student_id"`
	Status          Status    `json:"status" db:"status"`
	ApplicationDate time.Time `json:"application_date" db:"application_date"`
}

// Detail is an Application seen by the supervisor of its proposal.
type Detail struct {
	Application
	Proposal proposal.Proposal `json:"proposal"`
	Student  student.Student   `json:"student"`
}

// StudentApplication is an Application seen by the student who submitted it.
type StudentApplication struct {
	Application
	ProposalTitle  string `json:"proposal_title"`
	SupervisorID   string `json:"supervisor_id"`
	SupervisorName string `json:"supervisor_name"`
}

// ProposalApplications groups the applications received by one proposal.
type ProposalApplications struct {
	ProposalID    string      `json:"proposal_id"`
	ProposalTitle string      `json:"proposal_title"`
	Archived      bool        `json:"archived"`
	Applications  []Applicant `json:"applications"`
}

// Applicant is an Application with the student who submitted it.
type Applicant struct {
	Application
	Student student.Student `json:"student"`
}

// Decision is the outcome of a teacher's decision on an Application.
type Decision struct {
	Application           Application `json:"application"`
	EmailNotificationSent bool        `json:"emailNotificationSent"`
}

// NewApplication is a student's request to be assigned a proposal.
type NewApplication struct {
	ProposalID string `json:"proposal_id" validate:"required"`
}

// DecisionRequest is the body of a decision.
type DecisionRequest struct {
	Status Status `json:"status"`
}

// QueryFilter applies AND operation on the set fields.
type QueryFilter struct {
	StudentID   string
	ProposalIDs []string
	Statuses    []Status
}
