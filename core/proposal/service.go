package proposal

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/thesisapp/thesis/core"
)

var (
	ErrNotFound        = core.NewNotFoundError("proposal not found")
	ErrAlreadyArchived = core.NewConflictError("proposal already archived")
	ErrNotArchived     = errors.New("proposal not archived")
	errExpirationPast  = "expiration date must be after the current date"

	// orderable fields
	orderingFields = map[string]bool{
		"id": true, "title": true, "type": true, "level": true, "expiration_date": true, "created_at": true,
	}
	defaultOrdering = []core.DBOrdering{{Field: "expiration_date", Ascending: true}, {Field: "id", Ascending: true}}
)

type (
	Repository interface {
		// CreateProposal stores a new Proposal; its ID is allocated by the storage as "P%03d".
		CreateProposal(ctx context.Context, p Proposal) (Proposal, error)
		GetProposal(ctx context.Context, id string, exec ...core.DBExecutor) (Proposal, error)
		QueryProposals(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Proposal, error)
		// ArchiveProposal archives a Proposal that is not archived yet (conditional write).
		// It returns ErrAlreadyArchived when the Proposal was archived by someone else first.
		ArchiveProposal(ctx context.Context, id string, exec ...core.DBExecutor) (Proposal, error)

		// SaveDegree creates the Degree or updates the one with the same code.
		SaveDegree(ctx context.Context, d Degree) (Degree, error)
		QueryDegrees(ctx context.Context) ([]Degree, error)
	}

	Clock interface {
		Today(ctx context.Context, exec ...core.DBExecutor) (time.Time, error)
	}

	Service struct {
		repo  Repository
		clock Clock
	}
)

func NewService(repo Repository, clock Clock) *Service {
	return &Service{repo: repo, clock: clock}
}

// Create publishes a new Proposal supervised by teacherID. np must have been validated.
func (svc *Service) Create(ctx context.Context, teacherID string, np NewProposal) (Proposal, error) {
	expiration, err := time.Parse(core.DateLayout, np.ExpirationDate)
	if err != nil {
		return Proposal{}, core.NewValidationError(err, core.FieldError{Field: "expiration_date", Error: err.Error()})
	}
	today, err := svc.clock.Today(ctx)
	if err != nil {
		return Proposal{}, errors.Wrap(err, "getting virtual date")
	}
	if !expiration.After(today) {
		return Proposal{}, core.NewValidationError(
			errors.New(errExpirationPast),
			core.FieldError{Field: "expiration_date", Error: errExpirationPast},
		)
	}

	p := Proposal{
		Title:             np.Title,
		SupervisorID:      teacherID,
		Keywords:          nonNil(np.Keywords),
		Type:              np.Type,
		Groups:            nonNil(np.Groups),
		Description:       np.Description,
		RequiredKnowledge: np.RequiredKnowledge,
		ExpirationDate:    expiration,
		Level:             np.Level,
		Programmes:        nonNil(np.Programmes),
		CreatedAt:         time.Now().UTC(),
	}
	if np.Notes != "" {
		p.Notes = null.StringFrom(np.Notes)
	}
	return svc.repo.CreateProposal(ctx, p)
}

func (svc *Service) GetByID(ctx context.Context, id string, exec ...core.DBExecutor) (Proposal, error) {
	return svc.repo.GetProposal(ctx, core.CleanString(id), exec...)
}

// Query lists the proposals matching filter.
// Unless asked otherwise, archived proposals and proposals expired on the virtual date are left out.
func (svc *Service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]Proposal, error) {
	filter.Clean()
	if !filter.IncludeExpired {
		today, err := svc.clock.Today(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "getting virtual date")
		}
		filter.ActiveOn = today
	}
	return svc.repo.QueryProposals(ctx, filter, cleanOrdering(ordering))
}

// QueryBySupervisor lists every proposal of a teacher, archived and expired ones included.
func (svc *Service) QueryBySupervisor(ctx context.Context, teacherID string) ([]Proposal, error) {
	filter := QueryFilter{SupervisorID: teacherID, IncludeArchived: true, IncludeExpired: true}
	return svc.repo.QueryProposals(ctx, filter, defaultOrdering)
}

// Archive closes a proposal to new applications.
func (svc *Service) Archive(ctx context.Context, id string, exec ...core.DBExecutor) (Proposal, error) {
	p, err := svc.repo.ArchiveProposal(ctx, id, exec...)
	if err != nil {
		return Proposal{}, err
	}
	if !p.Archived {
		return Proposal{}, ErrNotArchived
	}
	return p, nil
}

func (svc *Service) SaveDegree(ctx context.Context, d Degree) (Degree, error) {
	d.Code = core.CleanString(d.Code)
	d.Title = core.CleanString(d.Title)
	return svc.repo.SaveDegree(ctx, d)
}

func (svc *Service) QueryDegrees(ctx context.Context) ([]Degree, error) {
	return svc.repo.QueryDegrees(ctx)
}

func cleanOrdering(ordering []core.DBOrdering) []core.DBOrdering {
	cleaned := make([]core.DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if orderingFields[ord.Field] {
			cleaned = append(cleaned, ord)
		}
	}
	if len(cleaned) == 0 {
		return defaultOrdering
	}
	return cleaned
}

func nonNil(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
