package application

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/notification"
	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
)

var (
	ErrNotFound         = core.NewNotFoundError("application not found")
	ErrForbidden        = core.NewForbiddenError("not authorized")
	ErrAlreadyApplied   = core.NewConflictError("an application for this proposal is already open")
	ErrProposalClosed   = core.NewConflictError("proposal is not open to applications")
	ErrNotPending       = core.NewConflictError("application already decided")
	ErrAlreadyAssigned  = core.NewConflictError("proposal already assigned to another student")
	ErrInvalidID        = errors.New("invalid application id parameter")
	ErrInvalidStatus    = errors.New("invalid status field value in request body")
	ErrStatusNotUpdated = errors.New("application status not updated")
)

type (
	Repository interface {
		CreateApplication(ctx context.Context, app Application, exec ...core.DBExecutor) (Application, error)
		GetApplication(ctx context.Context, id string, exec ...core.DBExecutor) (Application, error)
		QueryApplications(ctx context.Context, filter QueryFilter, exec ...core.DBExecutor) ([]Application, error)
		// SetApplicationStatus moves a Pending Application to `status` (conditional write).
		// It returns ErrNotPending if the Application is not Pending anymore
		// and ErrAlreadyAssigned if another application of the proposal was accepted first.
		SetApplicationStatus(ctx context.Context, id string, status Status, exec ...core.DBExecutor) (Application, error)
		// CancelPendingApplications cancels the Pending applications of a proposal, except `exceptID`.
		CancelPendingApplications(ctx context.Context, proposalID, exceptID string, exec ...core.DBExecutor) (int64, error)
	}

	ProposalService interface {
		GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (proposal.Proposal, error)
		QueryBySupervisor(ctx context.Context, teacherID string) ([]proposal.Proposal, error)
		Archive(ctx context.Context, id string, exec ...core.DBExecutor) (proposal.Proposal, error)
	}

	StudentService interface {
		GetByID(ctx context.Context, id string) (student.Student, error)
	}

	TeacherService interface {
		GetByID(ctx context.Context, id string) (teacher.Teacher, error)
	}

	Clock interface {
		Today(ctx context.Context, exec ...core.DBExecutor) (time.Time, error)
	}

	Notifier interface {
		Notify(ctx context.Context, req notification.Request) (notification.Notification, error)
	}

	Deps struct {
		Repo      Repository
		Tx        core.Transactor
		Proposals ProposalService
		Students  StudentService
		Teachers  TeacherService
		Clock     Clock
		Notifier  Notifier
		Logger    core.Logger
	}

	Service struct {
		repo      Repository
		tx        core.Transactor
		proposals ProposalService
		students  StudentService
		teachers  TeacherService
		clock     Clock
		notifier  Notifier
		logger    core.Logger
	}
)

func NewService(deps Deps) *Service {
	return &Service{
		repo:      deps.Repo,
		tx:        deps.Tx,
		proposals: deps.Proposals,
		students:  deps.Students,
		teachers:  deps.Teachers,
		clock:     deps.Clock,
		notifier:  deps.Notifier,
		logger:    deps.Logger,
	}
}

// Apply submits the application of a student to an open proposal.
func (svc *Service) Apply(ctx context.Context, studentID string, na NewApplication) (Application, error) {
	prop, err := svc.proposals.GetByID(ctx, core.CleanString(na.ProposalID))
	if err != nil {
		return Application{}, err
	}
	today, err := svc.clock.Today(ctx)
	if err != nil {
		return Application{}, errors.Wrap(err, "getting virtual date")
	}
	if prop.Archived || prop.IsExpired(today) {
		return Application{}, ErrProposalClosed
	}

	open, err := svc.repo.QueryApplications(ctx, QueryFilter{
		StudentID:   studentID,
		ProposalIDs: []string{prop.ID},
		Statuses:    []Status{StatusPending, StatusAccepted},
	})
	if err != nil {
		return Application{}, errors.Wrap(err, "querying open applications")
	}
	if len(open) > 0 {
		return Application{}, ErrAlreadyApplied
	}

	return svc.repo.CreateApplication(ctx, Application{
		ID:              uuid.NewString(),
		ProposalID:      prop.ID,
		StudentID:       studentID,
		Status:          StatusPending,
		ApplicationDate: today,
	})
}

// GetDetail returns an Application to the supervisor of its proposal.
func (svc *Service) GetDetail(ctx context.Context, id, teacherID string) (Detail, error) {
	app, prop, err := svc.getWithProposal(ctx, id, teacherID)
	if err != nil {
		return Detail{}, err
	}
	st, err := svc.students.GetByID(ctx, app.StudentID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "getting applicant")
	}
	return Detail{Application: app, Proposal: prop, Student: st}, nil
}

// QueryByStudent lists the applications of a student, with their proposal & supervisor.
func (svc *Service) QueryByStudent(ctx context.Context, studentID string) ([]StudentApplication, error) {
	apps, err := svc.repo.QueryApplications(ctx, QueryFilter{StudentID: studentID})
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}

	props := make(map[string]proposal.Proposal)
	supervisors := make(map[string]teacher.Teacher)
	res := make([]StudentApplication, 0, len(apps))
	for _, app := range apps {
		prop, ok := props[app.ProposalID]
		if !ok {
			if prop, err = svc.proposals.GetByID(ctx, app.ProposalID); err != nil {
				return nil, errors.Wrap(err, "getting proposal")
			}
			props[app.ProposalID] = prop
		}
		sup, ok := supervisors[prop.SupervisorID]
		if !ok {
			if sup, err = svc.teachers.GetByID(ctx, prop.SupervisorID); err != nil {
				return nil, errors.Wrap(err, "getting supervisor")
			}
			supervisors[prop.SupervisorID] = sup
		}
		res = append(res, StudentApplication{
			Application:    app,
			ProposalTitle:  prop.Title,
			SupervisorID:   sup.ID,
			SupervisorName: sup.FullName(),
		})
	}
	return res, nil
}

// QueryByTeacher lists the applications received by the proposals of a teacher, grouped by proposal.
// Proposals without applications are left out.
func (svc *Service) QueryByTeacher(ctx context.Context, teacherID string) ([]ProposalApplications, error) {
	props, err := svc.proposals.QueryBySupervisor(ctx, teacherID)
	if err != nil {
		return nil, errors.Wrap(err, "querying supervised proposals")
	}
	res := make([]ProposalApplications, 0, len(props))
	if len(props) == 0 {
		return res, nil
	}

	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	apps, err := svc.repo.QueryApplications(ctx, QueryFilter{ProposalIDs: ids})
	if err != nil {
		return nil, errors.Wrap(err, "querying applications")
	}
	byProposal := make(map[string][]Application, len(props))
	for _, app := range apps {
		byProposal[app.ProposalID] = append(byProposal[app.ProposalID], app)
	}

	applicants := make(map[string]student.Student)
	for _, p := range props {
		group := byProposal[p.ID]
		if len(group) == 0 {
			continue
		}
		pa := ProposalApplications{
			ProposalID:    p.ID,
			ProposalTitle: p.Title,
			Archived:      p.Archived,
			Applications:  make([]Applicant, 0, len(group)),
		}
		for _, app := range group {
			st, ok := applicants[app.StudentID]
			if !ok {
				if st, err = svc.students.GetByID(ctx, app.StudentID); err != nil {
					return nil, errors.Wrap(err, "getting applicant")
				}
				applicants[app.StudentID] = st
			}
			pa.Applications = append(pa.Applications, Applicant{Application: app, Student: st})
		}
		res = append(res, pa)
	}
	return res, nil
}

// getWithProposal fetches an Application with its proposal, checking teacherID supervises it.
func (svc *Service) getWithProposal(ctx context.Context, id, teacherID string) (Application, proposal.Proposal, error) {
	id = core.CleanString(id)
	if id == "" {
		return Application{}, proposal.Proposal{}, core.NewValidationError(ErrInvalidID)
	}

	app, err := svc.repo.GetApplication(ctx, id)
	if err != nil {
		return Application{}, proposal.Proposal{}, err
	}
	prop, err := svc.proposals.GetByID(ctx, app.ProposalID)
	if err != nil {
		return Application{}, proposal.Proposal{}, errors.Wrap(err, "getting proposal")
	}
	if prop.SupervisorID != teacherID {
		return Application{}, proposal.Proposal{}, ErrForbidden
	}
	return app, prop, nil
}
