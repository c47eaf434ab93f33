package application

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/notification"
	"github.com/thesisapp/thesis/core/proposal"
)

// Decide applies the decision of a teacher on a Pending application.
//
// The new status, the cancellation of the sibling Pending applications and the archival of the
// proposal (on acceptance) are committed together. The student is then notified; a notification
// failure is logged and only reported through Decision.EmailNotificationSent.
func (svc *Service) Decide(ctx context.Context, id string, status Status, teacherID string) (Decision, error) {
	if core.CleanString(id) == "" {
		return Decision{}, core.NewValidationError(ErrInvalidID)
	}
	if !status.IsDecision() {
		return Decision{}, core.NewValidationError(
			ErrInvalidStatus,
			core.FieldError{Field: "status", Error: ErrInvalidStatus.Error()},
		)
	}

	app, prop, err := svc.getWithProposal(ctx, id, teacherID)
	if err != nil {
		return Decision{}, err
	}
	if app.Status != StatusPending {
		return Decision{}, ErrNotPending
	}

	err = svc.tx.InTx(ctx, func(exec core.DBExecutor) error {
		updated, err := svc.repo.SetApplicationStatus(ctx, app.ID, status, exec)
		if err != nil {
			return err
		}
		if updated.Status != status {
			return ErrStatusNotUpdated
		}

		if status == StatusAccepted {
			if _, err := svc.repo.CancelPendingApplications(ctx, prop.ID, app.ID, exec); err != nil {
				return errors.Wrap(err, "cancelling pending applications")
			}
			if _, err := svc.proposals.Archive(ctx, prop.ID, exec); err != nil {
				return errors.Wrap(err, "archiving proposal")
			}
		}
		app = updated
		return nil
	})
	if err != nil {
		return Decision{}, err
	}

	// the decision is committed: the notice must be recorded even if the caller goes away
	return Decision{
		Application:           app,
		EmailNotificationSent: svc.notifyDecision(context.WithoutCancel(ctx), app, prop),
	}, nil
}

// notifyDecision records & sends the decision notice. It never fails: it reports whether the email was sent.
func (svc *Service) notifyDecision(ctx context.Context, app Application, prop proposal.Proposal) bool {
	st, err := svc.students.GetByID(ctx, app.StudentID)
	if err != nil {
		svc.logger.Error("notifying decision: getting student", errors.Wrap(err, app.ID))
		return false
	}
	sup, err := svc.teachers.GetByID(ctx, prop.SupervisorID)
	if err != nil {
		svc.logger.Error("notifying decision: getting supervisor", errors.Wrap(err, app.ID))
		return false
	}

	notice := notification.DecisionNotice{
		ApplicationID:   app.ID,
		Decision:        string(app.Status),
		ProposalID:      prop.ID,
		ProposalTitle:   prop.Title,
		ApplicationDate: app.ApplicationDate,
		Student:         st.FullName(),
		Supervisor:      sup.FullName(),
	}
	if _, err = svc.notifier.Notify(ctx, notification.DecisionRequest(st.ID, notice)); err != nil {
		svc.logger.Error(fmt.Sprintf("notifying decision on application %s", app.ID), err)
		return false
	}
	return true
}
