package dummydb

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/proposal"
)

type proposalRepository struct {
	db *DB
}

var _ proposal.Repository = (*proposalRepository)(nil) // interface compliance check

func NewProposalRepository(db *DB) proposal.Repository {
	return &proposalRepository{db: db}
}

func (repo *proposalRepository) CreateProposal(_ context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.proposalSeq++
	p.ID = fmt.Sprintf("P%03d", repo.db.proposalSeq)
	p.ExpirationDate = core.TruncateDay(p.ExpirationDate)
	repo.db.proposals[p.ID] = p
	return p, nil
}

func (repo *proposalRepository) GetProposal(_ context.Context, id string, _ ...core.DBExecutor) (proposal.Proposal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if p, ok := repo.db.proposals[id]; ok {
		return p, nil
	}
	return proposal.Proposal{}, proposal.ErrNotFound
}

func (repo *proposalRepository) QueryProposals(
	_ context.Context,
	filter proposal.QueryFilter,
	ordering []core.DBOrdering,
) ([]proposal.Proposal, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	props := make([]proposal.Proposal, 0)
	for _, p := range repo.db.proposals {
		if matchProposal(p, filter) {
			props = append(props, p)
		}
	}
	sort.SliceStable(props, func(i, j int) bool {
		for _, ord := range ordering {
			c := compareProposals(props[i], props[j], ord.Field)
			if c == 0 {
				continue
			}
			return (c < 0) == ord.Ascending
		}
		return false
	})
	return props, nil
}

func (repo *proposalRepository) ArchiveProposal(_ context.Context, id string, _ ...core.DBExecutor) (proposal.Proposal, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p, ok := repo.db.proposals[id]
	if !ok {
		return proposal.Proposal{}, proposal.ErrNotFound
	}
	if p.Archived {
		return proposal.Proposal{}, proposal.ErrAlreadyArchived
	}
	p.Archived = true
	repo.db.proposals[id] = p
	return p, nil
}

func (repo *proposalRepository) SaveDegree(_ context.Context, d proposal.Degree) (proposal.Degree, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.degrees[d.Code] = d
	return d, nil
}

func (repo *proposalRepository) QueryDegrees(context.Context) ([]proposal.Degree, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	degrees := make([]proposal.Degree, 0, len(repo.db.degrees))
	for _, d := range repo.db.degrees {
		degrees = append(degrees, d)
	}
	sort.Slice(degrees, func(i, j int) bool { return degrees[i].Code < degrees[j].Code })
	return degrees, nil
}

func matchProposal(p proposal.Proposal, filter proposal.QueryFilter) bool {
	if p.Archived && !filter.IncludeArchived {
		return false
	}
	if !filter.ActiveOn.IsZero() && p.IsExpired(filter.ActiveOn) {
		return false
	}
	if filter.Search != "" &&
		!contains(p.Title, filter.Search) &&
		!contains(p.Description, filter.Search) &&
		!contains(p.Notes.String, filter.Search) &&
		!contains(p.RequiredKnowledge, filter.Search) &&
		!anyContains(p.Keywords, filter.Search) {
		return false
	}
	if filter.Title != "" && !contains(p.Title, filter.Title) {
		return false
	}
	if filter.SupervisorID != "" && p.SupervisorID != filter.SupervisorID {
		return false
	}
	if filter.Keyword != "" && !anyContains(p.Keywords, filter.Keyword) {
		return false
	}
	if filter.Type != "" && !contains(p.Type, filter.Type) {
		return false
	}
	if filter.Group != "" && !anyEqual(p.Groups, filter.Group) {
		return false
	}
	if filter.RequiredKnowledge != "" && !contains(p.RequiredKnowledge, filter.RequiredKnowledge) {
		return false
	}
	if filter.Level != "" && p.Level != filter.Level {
		return false
	}
	if filter.Degree != "" && !anyEqual(p.Programmes, filter.Degree) {
		return false
	}
	return true
}

func compareProposals(a, b proposal.Proposal, field string) int {
	switch field {
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "title":
		return strings.Compare(a.Title, b.Title)
	case "type":
		return strings.Compare(a.Type, b.Type)
	case "level":
		return strings.Compare(string(a.Level), string(b.Level))
	case "expiration_date":
		return a.ExpirationDate.Compare(b.ExpirationDate)
	case "created_at":
		return a.CreatedAt.Compare(b.CreatedAt)
	}
	return 0
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func anyContains(ss []string, substr string) bool {
	for _, s := range ss {
		if contains(s, substr) {
			return true
		}
	}
	return false
}

func anyEqual(ss []string, v string) bool {
	for _, s := range ss {
		if s == v {
			return true
		}
	}
	return false
}
