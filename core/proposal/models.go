package proposal

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/volatiletech/null/v8"

	"github.com/thesisapp/thesis/core"
)

// Level of the degree a proposal is meant for.
type Level string

const (
	LevelBachelor Level = "Bachelor"
	LevelMaster   Level = "Master"
)

type Proposal struct {
	ID                string      `json:"id" db:"id"`
	Title             string      `json:"title" db:"title"`
	SupervisorID      string      `json:"supervisor_id" db:"supervisor_id"`
	Keywords          []string    `json:"keywords" db:"keywords"`
	Type              string      `json:"type" db:"type"`
	Groups            []string    `json:"groups" db:"groups"`
	Description       string      `json:"description" db:"description"`
	RequiredKnowledge string      `json:"required_knowledge" db:"required_knowledge"`
	Notes             null.String `json:"notes" db:"notes"`
	ExpirationDate    time.Time   `json:"expiration_date" db:"expiration_date"`
	Level             Level       `json:"level" db:"level"`
	Programmes        []string    `json:"programmes" db:"programmes"` // degree codes
	Archived          bool        `json:"archived" db:"archived"`
	CreatedAt         time.Time   `json:"created_at" db:"created_at"`
}

// IsExpired reports whether the proposal can no longer be applied to on `today`.
func (p Proposal) IsExpired(today time.Time) bool {
	return core.TruncateDay(p.ExpirationDate).Before(core.TruncateDay(today))
}

type Degree struct {
	Code  string `json:"cod_degree" db:"cod_degree"`
	Title string `json:"title" db:"title"`
}

// NewProposal contains information needed to publish a Proposal.
type NewProposal struct {
	Title             string   `json:"title" validate:"required,max=200"`
	Keywords          []string `json:"keywords"`
	Type              string   `json:"type" validate:"required,max=50"`
	Groups            []string `json:"groups"`
	Description       string   `json:"description" validate:"required"`
	RequiredKnowledge string   `json:"required_knowledge"`
	Notes             string   `json:"notes"`
	ExpirationDate    string   `json:"expiration_date" validate:"required,isodate"`
	Level             Level    `json:"level" validate:"required,oneof=Bachelor Master"`
	Programmes        []string `json:"programmes" validate:"required,min=1,dive,required"`
}

func (np *NewProposal) Validate(validate *validator.Validate) error {
	np.Title = core.CleanString(np.Title)
	np.Type = core.CleanString(np.Type)
	np.Description = core.CleanString(np.Description)
	np.RequiredKnowledge = core.CleanString(np.RequiredKnowledge)
	np.Notes = core.CleanString(np.Notes)
	np.ExpirationDate = core.CleanString(np.ExpirationDate)
	np.Keywords = core.CleanStrings(np.Keywords)
	np.Groups = core.CleanStrings(np.Groups)
	np.Programmes = core.CleanStrings(np.Programmes)
	return validate.Struct(np)
}

// QueryFilter applies AND operation on the set fields.
type QueryFilter struct {
	// Search does a case-insensitive match on the title, description, notes, required knowledge or keywords.
	Search            string `query:"search"`
	Title             string `query:"title"`
	SupervisorID      string `query:"supervisor"`
	Keyword           string `query:"keyword"`
	Type              string `query:"type"`
	Group             string `query:"group"`
	RequiredKnowledge string `query:"required_knowledge"`
	Level             Level  `query:"level"`
	Degree            string `query:"degree"`
	IncludeArchived   bool   `query:"include_archived"`
	IncludeExpired    bool   `query:"include_expired"`

	// ActiveOn hides proposals expired before that date; set from the virtual clock.
	ActiveOn time.Time `query:"-"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Title = core.CleanString(qf.Title)
	qf.SupervisorID = core.CleanString(qf.SupervisorID)
	qf.Keyword = core.CleanString(qf.Keyword)
	qf.Type = core.CleanString(qf.Type)
	qf.Group = core.CleanString(qf.Group)
	qf.RequiredKnowledge = core.CleanString(qf.RequiredKnowledge)
	qf.Degree = core.CleanString(qf.Degree)
}
