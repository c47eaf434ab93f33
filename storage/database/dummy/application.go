package dummydb

import (
	"context"
	"sort"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/application"
)

type applicationRepository struct {
	db *DB
}

var _ application.Repository = (*applicationRepository)(nil) // interface compliance check

func NewApplicationRepository(db *DB) application.Repository {
	return &applicationRepository{db: db}
}

func (repo *applicationRepository) CreateApplication(
	_ context.Context,
	app application.Application,
	_ ...core.DBExecutor,
) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, other := range repo.db.applications {
		if other.ProposalID == app.ProposalID && other.StudentID == app.StudentID && isOpen(other.Status) {
			return application.Application{}, application.ErrAlreadyApplied
		}
	}
	app.ApplicationDate = core.TruncateDay(app.ApplicationDate)
	repo.db.applications[app.ID] = app
	return app, nil
}

func (repo *applicationRepository) GetApplication(
	_ context.Context,
	id string,
	_ ...core.DBExecutor,
) (application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if app, ok := repo.db.applications[id]; ok {
		return app, nil
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) QueryApplications(
	_ context.Context,
	filter application.QueryFilter,
	_ ...core.DBExecutor,
) ([]application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	proposalIDs := make(map[string]bool, len(filter.ProposalIDs))
	for _, id := range filter.ProposalIDs {
		proposalIDs[id] = true
	}
	statuses := make(map[application.Status]bool, len(filter.Statuses))
	for _, s := range filter.Statuses {
		statuses[s] = true
	}

	apps := make([]application.Application, 0)
	for _, app := range repo.db.applications {
		if filter.StudentID != "" && app.StudentID != filter.StudentID {
			continue
		}
		if len(proposalIDs) > 0 && !proposalIDs[app.ProposalID] {
			continue
		}
		if len(statuses) > 0 && !statuses[app.Status] {
			continue
		}
		apps = append(apps, app)
	}
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].ApplicationDate.Equal(apps[j].ApplicationDate) {
			return apps[i].ApplicationDate.After(apps[j].ApplicationDate)
		}
		return apps[i].ID < apps[j].ID
	})
	return apps, nil
}

func (repo *applicationRepository) SetApplicationStatus(
	_ context.Context,
	id string,
	status application.Status,
	_ ...core.DBExecutor,
) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	app, ok := repo.db.applications[id]
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	if app.Status != application.StatusPending {
		return application.Application{}, application.ErrNotPending
	}
	for _, other := range repo.db.applications {
		if other.ID == id || other.ProposalID != app.ProposalID {
			continue
		}
		if status == application.StatusAccepted && other.Status == application.StatusAccepted {
			return application.Application{}, application.ErrAlreadyAssigned
		}
	}
	app.Status = status
	repo.db.applications[id] = app
	return app, nil
}

func (repo *applicationRepository) CancelPendingApplications(
	_ context.Context,
	proposalID, exceptID string,
	_ ...core.DBExecutor,
) (int64, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var n int64
	for id, app := range repo.db.applications {
		if app.ProposalID == proposalID && id != exceptID && app.Status == application.StatusPending {
			app.Status = application.StatusCancelled
			repo.db.applications[id] = app
			n++
		}
	}
	return n, nil
}

func isOpen(s application.Status) bool {
	return s == application.StatusPending || s == application.StatusAccepted
}
