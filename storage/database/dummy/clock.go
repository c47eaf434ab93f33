package dummydb

import (
	"context"
	"time"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/clock"
)

type clockRepository struct {
	db *DB
}

var _ clock.Repository = (*clockRepository)(nil) // interface compliance check

func NewClockRepository(db *DB) clock.Repository {
	return &clockRepository{db: db}
}

func (repo *clockRepository) GetVirtualDate(context.Context, ...core.DBExecutor) (time.Time, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.db.virtualDate, nil
}

func (repo *clockRepository) AdvanceVirtualDate(_ context.Context, date time.Time) (bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	date = core.TruncateDay(date)
	if !date.After(repo.db.virtualDate) {
		return false, nil
	}
	repo.db.virtualDate = date
	return true, nil
}

// SetVirtualDate sets the virtual date, backwards included. Meant for tests.
func (db *DB) SetVirtualDate(date time.Time) {
	db.Lock()
	defer db.Unlock()
	db.virtualDate = core.TruncateDay(date)
}
