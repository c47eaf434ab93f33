package proposal_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/clock"
	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/storage/database/dummy"
)

var (
	ctx   = context.Background()
	today = time.Date(2023, 11, 6, 0, 0, 0, 0, time.UTC)
)

func newService(t *testing.T) *proposal.Service {
	db, err := dummydb.Open()
	require.NoError(t, err)
	db.SetVirtualDate(today)
	return proposal.NewService(dummydb.NewProposalRepository(db), clock.NewService(dummydb.NewClockRepository(db)))
}

func newProposal(expiration string) proposal.NewProposal {
	return proposal.NewProposal{
		Title:          "Gossip protocols",
		Type:           "Research",
		Description:    "Study gossip protocols.",
		ExpirationDate: expiration,
		Level:          proposal.LevelMaster,
		Programmes:     []string{"LM-32"},
	}
}

func TestService_Create(t *testing.T) {
	svc := newService(t)

	tests := []struct {
		name       string
		expiration string
		wantErr    bool
	}{
		{name: "tomorrow", expiration: "2023-11-07"},
		{name: "today", expiration: "2023-11-06", wantErr: true},
		{name: "past", expiration: "2023-01-01", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := svc.Create(ctx, "T001", newProposal(tt.expiration))
			if tt.wantErr {
				_, ok := errors.Cause(err).(*core.ValidationError)
				assert.True(t, ok, "Create() error = %v; want a validation error", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "T001", p.SupervisorID)
			assert.NotNil(t, p.Keywords)
			assert.NotNil(t, p.Groups)
			assert.False(t, p.Notes.Valid)
		})
	}
}

func TestService_Archive(t *testing.T) {
	svc := newService(t)
	p, err := svc.Create(ctx, "T001", newProposal("2024-03-01"))
	require.NoError(t, err)

	archived, err := svc.Archive(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, archived.Archived)

	_, err = svc.Archive(ctx, p.ID)
	assert.Equal(t, proposal.ErrAlreadyArchived, errors.Cause(err))
	_, err = svc.Archive(ctx, "P404")
	assert.Equal(t, proposal.ErrNotFound, errors.Cause(err))

	// archived proposals leave the listing, not the supervisor's
	props, err := svc.Query(ctx, proposal.QueryFilter{}, nil)
	require.NoError(t, err)
	assert.Empty(t, props)
	props, err = svc.QueryBySupervisor(ctx, "T001")
	require.NoError(t, err)
	assert.Len(t, props, 1)
}

func TestService_Query_ordering(t *testing.T) {
	svc := newService(t)
	for _, exp := range []string{"2024-03-01", "2024-01-01", "2024-02-01"} {
		np := newProposal(exp)
		np.Title = "Proposal " + exp
		_, err := svc.Create(ctx, "T001", np)
		require.NoError(t, err)
	}

	ids := func(ordering []core.DBOrdering) []string {
		props, err := svc.Query(ctx, proposal.QueryFilter{}, ordering)
		require.NoError(t, err)
		res := make([]string, 0, len(props))
		for _, p := range props {
			res = append(res, p.ID)
		}
		return res
	}
	assert.Equal(t, []string{"P002", "P003", "P001"}, ids(nil))
	assert.Equal(t, []string{"P003", "P002", "P001"}, ids([]core.DBOrdering{{Field: "id", Ascending: false}}))
	// unknown fields are ignored
	assert.Equal(t, []string{"P002", "P003", "P001"}, ids([]core.DBOrdering{{Field: "password", Ascending: true}}))
}

func TestNewProposal_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	np := newProposal(" 2024-03-01 ")
	np.Title = "  Gossip  "
	np.Keywords = []string{" p2p ", ""}
	require.NoError(t, np.Validate(validate))
	assert.Equal(t, "Gossip", np.Title)
	assert.Equal(t, "2024-03-01", np.ExpirationDate)

	np = newProposal("01/03/2024")
	assert.Error(t, np.Validate(validate))
	np = newProposal("2024-03-01")
	np.Level = "PhD"
	assert.Error(t, np.Validate(validate))
}
