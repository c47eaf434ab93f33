package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/proposal"
)

const proposalColumns = `id, title, supervisor_id, keywords, type, groups, description, required_knowledge, notes,
	expiration_date, level, programmes, archived, created_at`

type proposalRow struct {
	ID                string         `db:"id"`
	Title             string         `db:"title"`
	SupervisorID      string         `db:"supervisor_id"`
	Keywords          pq.StringArray `db:"keywords"`
	Type              string         `db:"type"`
	Groups            pq.StringArray `db:"groups"`
	Description       string         `db:"description"`
	RequiredKnowledge string         `db:"required_knowledge"`
	Notes             null.String    `db:"notes"`
	ExpirationDate    time.Time      `db:"expiration_date"`
	Level             string         `db:"level"`
	Programmes        pq.StringArray `db:"programmes"`
	Archived          bool           `db:"archived"`
	CreatedAt         time.Time      `db:"created_at"`
}

func (r proposalRow) toProposal() proposal.Proposal {
	return proposal.Proposal{
		ID:                r.ID,
		Title:             r.Title,
		SupervisorID:      r.SupervisorID,
		Keywords:          nonNilStrings(r.Keywords),
		Type:              r.Type,
		Groups:            nonNilStrings(r.Groups),
		Description:       r.Description,
		RequiredKnowledge: r.RequiredKnowledge,
		Notes:             r.Notes,
		ExpirationDate:    core.TruncateDay(r.ExpirationDate),
		Level:             proposal.Level(r.Level),
		Programmes:        nonNilStrings(r.Programmes),
		Archived:          r.Archived,
		CreatedAt:         r.CreatedAt.UTC(),
	}
}

type proposalRepository struct {
	db *sqlx.DB
}

var _ proposal.Repository = (*proposalRepository)(nil) // interface compliance check

func NewProposalRepository(db *sqlx.DB) proposal.Repository {
	return &proposalRepository{db: db}
}

func (repo *proposalRepository) CreateProposal(ctx context.Context, p proposal.Proposal) (proposal.Proposal, error) {
	q := `INSERT INTO proposal (title, supervisor_id, keywords, type, groups, description, required_knowledge, notes,
			expiration_date, level, programmes, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + proposalColumns
	var row proposalRow
	err := repo.db.GetContext(ctx, &row, q,
		p.Title, p.SupervisorID, pq.Array(p.Keywords), p.Type, pq.Array(p.Groups), p.Description,
		p.RequiredKnowledge, p.Notes, p.ExpirationDate, string(p.Level), pq.Array(p.Programmes), p.Archived, p.CreatedAt)
	if err != nil {
		return proposal.Proposal{}, errors.Wrap(err, "inserting proposal")
	}
	return row.toProposal(), nil
}

func (repo *proposalRepository) GetProposal(ctx context.Context, id string, exec ...core.DBExecutor) (proposal.Proposal, error) {
	var row proposalRow
	q := `SELECT ` + proposalColumns + ` FROM proposal WHERE id = $1 AND NOT deleted`
	if err := getExec(repo.db, exec).GetContext(ctx, &row, q, id); err != nil {
		return proposal.Proposal{}, trapNoRowsErr(err, proposal.ErrNotFound)
	}
	return row.toProposal(), nil
}

func (repo *proposalRepository) QueryProposals(
	ctx context.Context,
	filter proposal.QueryFilter,
	ordering []core.DBOrdering,
) ([]proposal.Proposal, error) {
	var wb whereBuilder
	wb.addRaw("NOT deleted")
	if !filter.IncludeArchived {
		wb.addRaw("NOT archived")
	}
	if !filter.ActiveOn.IsZero() {
		wb.add("expiration_date >= $%d", filter.ActiveOn)
	}
	if filter.Search != "" {
		wb.add(`(title ILIKE $%[1]d OR description ILIKE $%[1]d OR COALESCE(notes, '') ILIKE $%[1]d
			OR required_knowledge ILIKE $%[1]d OR array_to_string(keywords, ' ') ILIKE $%[1]d)`, likePattern(filter.Search))
	}
	if filter.Title != "" {
		wb.add("title ILIKE $%d", likePattern(filter.Title))
	}
	if filter.SupervisorID != "" {
		wb.add("supervisor_id = $%d", filter.SupervisorID)
	}
	if filter.Keyword != "" {
		wb.add("EXISTS (SELECT 1 FROM unnest(keywords) kw WHERE kw ILIKE $%d)", likePattern(filter.Keyword))
	}
	if filter.Type != "" {
		wb.add("type ILIKE $%d", likePattern(filter.Type))
	}
	if filter.Group != "" {
		wb.add("$%d = ANY(groups)", filter.Group)
	}
	if filter.RequiredKnowledge != "" {
		wb.add("required_knowledge ILIKE $%d", likePattern(filter.RequiredKnowledge))
	}
	if filter.Level != "" {
		wb.add("level = $%d", string(filter.Level))
	}
	if filter.Degree != "" {
		wb.add("$%d = ANY(programmes)", filter.Degree)
	}

	var rows []proposalRow
	q := `SELECT ` + proposalColumns + ` FROM proposal` + wb.String() + orderBy(ordering)
	if err := repo.db.SelectContext(ctx, &rows, q, wb.args...); err != nil {
		return nil, errors.Wrap(err, "selecting proposals")
	}
	props := make([]proposal.Proposal, 0, len(rows))
	for _, row := range rows {
		props = append(props, row.toProposal())
	}
	return props, nil
}

func (repo *proposalRepository) ArchiveProposal(ctx context.Context, id string, exec ...core.DBExecutor) (proposal.Proposal, error) {
	var row proposalRow
	q := `UPDATE proposal SET archived = true WHERE id = $1 AND archived = false AND NOT deleted RETURNING ` + proposalColumns
	if err := getExec(repo.db, exec).GetContext(ctx, &row, q, id); err != nil {
		if err != sql.ErrNoRows {
			return proposal.Proposal{}, errors.Wrap(err, "archiving proposal")
		}
		// lost the race, or nothing to archive
		if _, err = repo.GetProposal(ctx, id, exec...); err != nil {
			return proposal.Proposal{}, err
		}
		return proposal.Proposal{}, proposal.ErrAlreadyArchived
	}
	return row.toProposal(), nil
}

func (repo *proposalRepository) SaveDegree(ctx context.Context, d proposal.Degree) (proposal.Degree, error) {
	q := `INSERT INTO degree (cod_degree, title) VALUES ($1, $2)
		ON CONFLICT (cod_degree) DO UPDATE SET title = EXCLUDED.title
		RETURNING cod_degree, title`
	var saved proposal.Degree
	if err := repo.db.GetContext(ctx, &saved, q, d.Code, d.Title); err != nil {
		return proposal.Degree{}, errors.Wrap(err, "upserting degree")
	}
	return saved, nil
}

func (repo *proposalRepository) QueryDegrees(ctx context.Context) ([]proposal.Degree, error) {
	degrees := make([]proposal.Degree, 0)
	if err := repo.db.SelectContext(ctx, &degrees, `SELECT cod_degree, title FROM degree ORDER BY cod_degree`); err != nil {
		return nil, errors.Wrap(err, "selecting degrees")
	}
	return degrees, nil
}

func nonNilStrings(ss []string) []string {
	if ss == nil {
		return []string{}
	}
	return ss
}
