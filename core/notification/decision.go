package notification

import (
	"time"
)

// ApplicationDateLayout renders application dates as "Monday, 02/01/2006".
const ApplicationDateLayout = "Monday, 02/01/2006"

// Decision content keys.
const (
	KeyApplicationID       = "application_id"
	KeyApplicationDecision = "application_decision"
	KeyProposalID          = "proposal_id"
	KeyProposalTitle       = "proposal_title"
	KeyApplicationDate     = "application_date"
	KeyStudent             = "student"
	KeySupervisor          = "supervisor"
)

// DecisionNotice holds what a student is told about the decision on their application.
type DecisionNotice struct {
	ApplicationID   string
	Decision        string // Accepted | Rejected
	ProposalID      string
	ProposalTitle   string
	ApplicationDate time.Time
	Student         string // full name
	Supervisor      string // full name
}

// DecisionSubject returns the subject line of a decision notice.
func DecisionSubject(decision string) string {
	switch decision {
	case "Accepted":
		return "Your thesis application has been accepted"
	case "Rejected":
		return "Your thesis application has been rejected"
	default:
		return "Update on your thesis application"
	}
}

// DecisionContent returns the stored payload of a decision notice.
func DecisionContent(n DecisionNotice) Content {
	return Content{
		KeyApplicationID:       n.ApplicationID,
		KeyApplicationDecision: n.Decision,
		KeyProposalID:          n.ProposalID,
		KeyProposalTitle:       n.ProposalTitle,
		KeyApplicationDate:     n.ApplicationDate.Format(ApplicationDateLayout),
		KeyStudent:             n.Student,
		KeySupervisor:          n.Supervisor,
	}
}

// DecisionRequest builds the notification Request for a decision notice.
func DecisionRequest(studentID string, n DecisionNotice) Request {
	return Request{
		StudentID: studentID,
		Category:  CategoryApplicationDecision,
		Subject:   DecisionSubject(n.Decision),
		Content:   DecisionContent(n),
	}
}
