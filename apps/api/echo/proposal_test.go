package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/user"
)

func proposalIDs(t *testing.T, body []byte) []string {
	var props []proposal.Proposal
	require.NoError(t, json.Unmarshal(body, &props))
	ids := make([]string, 0, len(props))
	for _, p := range props {
		ids = append(ids, p.ID)
	}
	return ids
}

func Test_proposalApi_query(t *testing.T) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	createTeacher(t, "T002", "Morisio", "Maurizio")
	p1 := createProposal(t, "T001", "Gossip protocols", today.AddDate(0, 2, 0))
	p2 := createProposal(t, "T002", "Compilers", today.AddDate(0, 1, 0))
	expired := createProposal(t, "T001", "Expired", today.AddDate(0, 0, -1))
	archived := createProposal(t, "T001", "Archived")
	_, err := propRepo.ArchiveProposal(ctx, archived.ID)
	require.NoError(t, err)

	token := getToken(t, account("S001", user.RoleStudent))
	tests := []struct {
		name    string
		path    string
		wantIDs []string
	}{
		{"active", "/v1/proposals", []string{p2.ID, p1.ID}},
		{"by supervisor", "/v1/proposals?supervisor=T001", []string{p1.ID}},
		{"search", "/v1/proposals?search=gossip", []string{p1.ID}},
		{"ordering", "/v1/proposals?ordering=-title", []string{p1.ID, p2.ID}},
		{"expired included", "/v1/proposals?include_expired=true", []string{expired.ID, p2.ID, p1.ID}},
		{"archived included", "/v1/proposals?include_archived=true", []string{p2.ID, p1.ID, archived.ID}},
		{"no match", "/v1/proposals?keyword=quantum", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(httpTest{path: tt.path, token: token})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantIDs, proposalIDs(t, rec.Body.Bytes()))
		})
	}

	rec := serve(httpTest{path: "/v1/proposals"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_proposalApi_create(t *testing.T) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	token := getToken(t, account("T001", user.RoleTeacher))

	body := []byte(`{
		"title": " Gossip protocols ",
		"keywords": ["networks", "p2p"],
		"type": "Research",
		"groups": ["NET"],
		"description": "Study gossip protocols.",
		"expiration_date": "2024-03-01",
		"level": "Master",
		"programmes": ["LM-32"]
	}`)
	rec := serve(httpTest{method: http.MethodPost, path: "/v1/proposals", token: token, body: body})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created proposal.Proposal
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "P001", created.ID)
	assert.Equal(t, "Gossip protocols", created.Title)
	assert.Equal(t, "T001", created.SupervisorID)
	assert.False(t, created.Archived)
	assert.False(t, created.Notes.Valid)

	tests := []httpTest{
		{
			name:     "past expiration",
			method:   http.MethodPost,
			path:     "/v1/proposals",
			body:     []byte(`{"title": "t", "type": "Research", "description": "d", "expiration_date": "2023-11-06", "level": "Master", "programmes": ["LM-32"]}`),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"expiration_date": "expiration date must be after the current date"}`),
		},
		{
			name:     "bad level",
			method:   http.MethodPost,
			path:     "/v1/proposals",
			body:     []byte(`{"title": "t", "type": "Research", "description": "d", "expiration_date": "2024-03-01", "level": "PhD", "programmes": ["LM-32"]}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "no programme",
			method:   http.MethodPost,
			path:     "/v1/proposals",
			body:     []byte(`{"title": "t", "type": "Research", "description": "d", "expiration_date": "2024-03-01", "level": "Master"}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     "/v1/proposals",
			body:     body,
			token:    getToken(t, account("S001", user.RoleStudent)),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotTeacher),
		},
	}
	runHTTPTests(t, tests)
}

func Test_proposalApi_retrieve(t *testing.T) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	p := createProposal(t, "T001", "Gossip protocols")
	token := getToken(t, account("S001", user.RoleStudent))

	tests := []httpTest{
		{
			name:     "found",
			path:     "/v1/proposals/" + p.ID,
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, p),
		},
		{
			name:     "not found",
			path:     "/v1/proposals/P404",
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "proposal not found"}),
		},
	}
	runHTTPTests(t, tests)
}

func Test_proposalApi_querySupervised(t *testing.T) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	createTeacher(t, "T002", "Morisio", "Maurizio")
	p1 := createProposal(t, "T001", "Gossip protocols")
	createProposal(t, "T002", "Compilers")
	expired := createProposal(t, "T001", "Expired", today.AddDate(0, 0, -1))

	rec := serve(httpTest{path: "/v1/proposals/supervised", token: getToken(t, account("T001", user.RoleTeacher))})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{expired.ID, p1.ID}, proposalIDs(t, rec.Body.Bytes()))

	rec = serve(httpTest{path: "/v1/proposals/supervised", token: getToken(t, account("S001", user.RoleStudent))})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_proposalApi_teachersAndDegrees(t *testing.T) {
	reset()
	t2 := createTeacher(t, "T002", "Morisio", "Maurizio")
	t1 := createTeacher(t, "T001", "Corno", "Fulvio")
	token := getToken(t, account("S001", user.RoleStudent))

	runHTTPTests(t, []httpTest{
		{
			name:     "teachers",
			path:     "/v1/teachers",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallList(t, t1, t2),
		},
		{
			name:     "no degrees",
			path:     "/v1/degrees",
			token:    token,
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
	})
}
