package clock

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core"
)

var (
	// ErrNotForward is returned when the new virtual date is not after the current one.
	ErrNotForward = errors.New("new virtual date can't be before the current one")
	ErrNotSet     = errors.New("virtual clock not set")
)

type (
	Repository interface {
		GetVirtualDate(ctx context.Context, exec ...core.DBExecutor) (time.Time, error)
		// AdvanceVirtualDate sets the virtual date to `date` only if it is after the current one.
		// It reports whether the date was changed.
		AdvanceVirtualDate(ctx context.Context, date time.Time) (bool, error)
	}

	// Service is the virtual clock: the date the application considers to be "today".
	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Today returns the current virtual date.
func (svc *Service) Today(ctx context.Context, exec ...core.DBExecutor) (time.Time, error) {
	date, err := svc.repo.GetVirtualDate(ctx, exec...)
	if err != nil {
		return time.Time{}, err
	}
	return core.TruncateDay(date), nil
}

// Advance moves the virtual date forward to `date` and returns the new current date.
func (svc *Service) Advance(ctx context.Context, date time.Time) (time.Time, error) {
	date = core.TruncateDay(date)
	ok, err := svc.repo.AdvanceVirtualDate(ctx, date)
	if err != nil {
		return time.Time{}, errors.Wrap(err, "advancing virtual date")
	}
	if !ok {
		return time.Time{}, core.NewValidationError(ErrNotForward, core.FieldError{Field: "virtual_date", Error: ErrNotForward.Error()})
	}
	return date, nil
}

// AdvanceRequest is the payload to move the virtual clock.
type AdvanceRequest struct {
	VirtualDate string `json:"virtual_date" validate:"required,isodate"`
}

func (r AdvanceRequest) Date() time.Time {
	date, _ := time.Parse(core.DateLayout, r.VirtualDate)
	return date
}
