package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/application"
)

const applicationColumns = `id, proposal_id, student_id, status, application_date`

type applicationRepository struct {
	db *sqlx.DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *sqlx.DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(
	ctx context.Context,
	app application.Application,
	exec ...core.DBExecutor,
) (application.Application, error) {
	q := `INSERT INTO application (` + applicationColumns + `) VALUES ($1, $2, $3, $4, $5) RETURNING ` + applicationColumns
	var created application.Application
	err := getExec(repo.db, exec).GetContext(ctx, &created, q,
		app.ID, app.ProposalID, app.StudentID, string(app.Status), app.ApplicationDate)
	if err != nil {
		if isUniqueViolation(err) {
			return application.Application{}, application.ErrAlreadyApplied
		}
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return normalizeApplication(created), nil
}

func (repo *applicationRepository) GetApplication(
	ctx context.Context,
	id string,
	exec ...core.DBExecutor,
) (application.Application, error) {
	var app application.Application
	q := `SELECT ` + applicationColumns + ` FROM application WHERE id = $1`
	if err := getExec(repo.db, exec).GetContext(ctx, &app, q, id); err != nil {
		return application.Application{}, trapNoRowsErr(err, application.ErrNotFound)
	}
	return normalizeApplication(app), nil
}

func (repo *applicationRepository) QueryApplications(
	ctx context.Context,
	filter application.QueryFilter,
	exec ...core.DBExecutor,
) ([]application.Application, error) {
	var wb whereBuilder
	if filter.StudentID != "" {
		wb.add("student_id = $%d", filter.StudentID)
	}
	if len(filter.ProposalIDs) > 0 {
		wb.add("proposal_id = ANY($%d)", pq.Array(filter.ProposalIDs))
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, 0, len(filter.Statuses))
		for _, s := range filter.Statuses {
			statuses = append(statuses, string(s))
		}
		wb.add("status = ANY($%d)", pq.Array(statuses))
	}

	apps := make([]application.Application, 0)
	q := `SELECT ` + applicationColumns + ` FROM application` + wb.String() + ` ORDER BY application_date DESC, id`
	if err := getExec(repo.db, exec).SelectContext(ctx, &apps, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "selecting applications")
	}
	for i := range apps {
		apps[i] = normalizeApplication(apps[i])
	}
	return apps, nil
}

func (repo *applicationRepository) SetApplicationStatus(
	ctx context.Context,
	id string,
	status application.Status,
	exec ...core.DBExecutor,
) (application.Application, error) {
	var app application.Application
	q := `UPDATE application SET status = $2 WHERE id = $1 AND status = 'Pending' RETURNING ` + applicationColumns
	if err := getExec(repo.db, exec).GetContext(ctx, &app, q, id, string(status)); err != nil {
		if isUniqueViolation(err) {
			return application.Application{}, application.ErrAlreadyAssigned
		}
		if err != sql.ErrNoRows {
			return application.Application{}, errors.Wrap(err, "updating application status")
		}
		if _, err = repo.GetApplication(ctx, id, exec...); err != nil {
			return application.Application{}, err
		}
		return application.Application{}, application.ErrNotPending
	}
	return normalizeApplication(app), nil
}

func (repo *applicationRepository) CancelPendingApplications(
	ctx context.Context,
	proposalID, exceptID string,
	exec ...core.DBExecutor,
) (int64, error) {
	q := `UPDATE application SET status = 'Cancelled' WHERE proposal_id = $1 AND id <> $2 AND status = 'Pending'`
	res, err := getExec(repo.db, exec).ExecContext(ctx, q, proposalID, exceptID)
	if err != nil {
		return 0, errors.Wrap(err, "cancelling applications")
	}
	n, err := res.RowsAffected()
	return n, errors.Wrap(err, "counting cancelled applications")
}

func normalizeApplication(app application.Application) application.Application {
	app.ApplicationDate = core.TruncateDay(app.ApplicationDate)
	return app
}
