package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/clock"
)

type clockRepository struct {
	db *sqlx.DB
}

var _ clock.Repository = (*clockRepository)(nil) // interface compliance check

func NewClockRepository(db *sqlx.DB) clock.Repository {
	return &clockRepository{db: db}
}

func (repo *clockRepository) GetVirtualDate(ctx context.Context, exec ...core.DBExecutor) (time.Time, error) {
	var date time.Time
	if err := getExec(repo.db, exec).GetContext(ctx, &date, `SELECT virtual_date FROM virtual_clock`); err != nil {
		return time.Time{}, trapNoRowsErr(err, clock.ErrNotSet)
	}
	return core.TruncateDay(date), nil
}

func (repo *clockRepository) AdvanceVirtualDate(ctx context.Context, date time.Time) (bool, error) {
	res, err := repo.db.ExecContext(ctx, `UPDATE virtual_clock SET virtual_date = $1 WHERE virtual_date < $1`, date)
	if err != nil {
		return false, errors.Wrap(err, "updating virtual date")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrap(err, "counting updated rows")
	}
	return n > 0, nil
}
