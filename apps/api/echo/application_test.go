package echoapi_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesisapp/thesis/core/application"
	"github.com/thesisapp/thesis/core/notification"
	"github.com/thesisapp/thesis/core/user"
)

func decisionBody(status string) []byte {
	return []byte(fmt.Sprintf(`{"status": %q}`, status))
}

// decisionFixture sets up a proposal of T001 with three applications: A1 (S001), A2 (S002) & A3 (S003, Rejected).
func decisionFixture(t *testing.T) (supervisorToken string, proposalID string) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	createTeacher(t, "T002", "Morisio", "Maurizio")
	createStudent(t, "S001", "Rossi", "Anna")
	createStudent(t, "S002", "Bianchi", "Luca")
	createStudent(t, "S003", "Verdi", "Sara")

	p := createProposal(t, "T001", "Gossip protocols")
	createApplication(t, "A1", p.ID, "S001", application.StatusPending)
	createApplication(t, "A2", p.ID, "S002", application.StatusPending)
	createApplication(t, "A3", p.ID, "S003", application.StatusRejected)
	return getToken(t, account("T001", user.RoleTeacher)), p.ID
}

func Test_applicationApi_decide_accept(t *testing.T) {
	token, propID := decisionFixture(t)

	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/A1", token, decisionBody("Accepted"))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	accepted := getApplication(t, "A1")
	assert.Equal(t, application.StatusAccepted, accepted.Status)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, application.Decision{Application: accepted, EmailNotificationSent: true}),
	}, rec)

	// siblings
	assert.Equal(t, application.StatusCancelled, getApplication(t, "A2").Status)
	assert.Equal(t, application.StatusRejected, getApplication(t, "A3").Status)
	assert.True(t, getProposal(t, propID).Archived)

	// exactly one notification, to the decided student only
	notifs := studentNotifications(t, "S001")
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.StatusSMTPAccepted, notifs[0].Status)
	assert.Equal(t, notification.CategoryApplicationDecision, notifs[0].Category)
	assert.Equal(t, "Accepted", notifs[0].Content[notification.KeyApplicationDecision])
	assert.Empty(t, studentNotifications(t, "S002"))
	assert.Empty(t, studentNotifications(t, "S003"))

	sent := mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "s001@studenti.polito.it", sent[0].To[0].Address)
}

func Test_applicationApi_decide_reject(t *testing.T) {
	token, propID := decisionFixture(t)

	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/A1", token, decisionBody("Rejected"))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rejected := getApplication(t, "A1")
	assert.Equal(t, application.StatusRejected, rejected.Status)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, application.Decision{Application: rejected, EmailNotificationSent: true}),
	}, rec)

	// no cascade on rejection
	assert.Equal(t, application.StatusPending, getApplication(t, "A2").Status)
	assert.False(t, getProposal(t, propID).Archived)

	notifs := studentNotifications(t, "S001")
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.StatusSMTPAccepted, notifs[0].Status)
	assert.Equal(t, "Rejected", notifs[0].Content[notification.KeyApplicationDecision])
}

func Test_applicationApi_decide_emailFailure(t *testing.T) {
	token, propID := decisionFixture(t)
	mailSvc.FailWith(errors.New("connection refused"))

	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/A1", token, decisionBody("Accepted"))
	app.ServeHTTP(rec, req)

	// the decision stands
	accepted := getApplication(t, "A1")
	assert.Equal(t, application.StatusAccepted, accepted.Status)
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, application.Decision{Application: accepted, EmailNotificationSent: false}),
	}, rec)
	assert.Equal(t, application.StatusCancelled, getApplication(t, "A2").Status)
	assert.True(t, getProposal(t, propID).Archived)

	notifs := studentNotifications(t, "S001")
	require.Len(t, notifs, 1)
	assert.Equal(t, notification.StatusSMTPRejected, notifs[0].Status)
}

func Test_applicationApi_decide_errors(t *testing.T) {
	token, propID := decisionFixture(t)
	otherTeacher := getToken(t, account("T002", user.RoleTeacher))
	student := getToken(t, account("S001", user.RoleStudent))

	tests := []httpTest{
		{
			name:     "no token",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     decisionBody("Accepted"),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "student",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     decisionBody("Accepted"),
			token:    student,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotTeacher),
		},
		{
			name:     "not the supervisor",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     decisionBody("Accepted"),
			token:    otherTeacher,
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "not authorized"}),
		},
		{
			name:     "unknown application",
			method:   http.MethodPost,
			path:     "/v1/applications/A404",
			body:     decisionBody("Accepted"),
			token:    token,
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "application not found"}),
		},
		{
			name:     "pending status",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     decisionBody("Pending"),
			token:    token,
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"status": "invalid status field value in request body"}`),
		},
		{
			name:     "cancelled status",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     decisionBody("Cancelled"),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "lowercase status",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     decisionBody("accepted"),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing status",
			method:   http.MethodPost,
			path:     "/v1/applications/A1",
			body:     []byte(`{}`),
			token:    token,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "already decided",
			method:   http.MethodPost,
			path:     "/v1/applications/A3",
			body:     decisionBody("Accepted"),
			token:    token,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "application already decided"}),
		},
	}
	runHTTPTests(t, tests)

	// nothing moved
	assert.Equal(t, application.StatusPending, getApplication(t, "A1").Status)
	assert.Equal(t, application.StatusPending, getApplication(t, "A2").Status)
	assert.Equal(t, application.StatusRejected, getApplication(t, "A3").Status)
	assert.False(t, getProposal(t, propID).Archived)
	assertNoNotification(t, "S001", "S002", "S003")
}

func Test_applicationApi_decide_twice(t *testing.T) {
	token, _ := decisionFixture(t)

	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/A1", token, decisionBody("Rejected"))
	app.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	req, rec = newAuthRequest(http.MethodPost, "/v1/applications/A1", token, decisionBody("Accepted"))
	app.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, application.StatusRejected, getApplication(t, "A1").Status)
	assert.Len(t, studentNotifications(t, "S001"), 1)
	assert.Len(t, mailSvc.SentMessages(), 1)
}

func Test_applicationApi_decide_concurrentAccepts(t *testing.T) {
	token, propID := decisionFixture(t)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, id := range []string{"A1", "A2"} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			req, rec := newAuthRequest(http.MethodPost, "/v1/applications/"+id, token, decisionBody("Accepted"))
			app.ServeHTTP(rec, req)
			codes[i] = rec.Code
		}(i, id)
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusOK, http.StatusConflict}, codes)

	accepted, err := appRepo.QueryApplications(ctx, application.QueryFilter{
		ProposalIDs: []string{propID},
		Statuses:    []application.Status{application.StatusAccepted},
	})
	require.NoError(t, err)
	assert.Len(t, accepted, 1)
	assert.True(t, getProposal(t, propID).Archived)
	assert.Len(t, mailSvc.SentMessages(), 1)
}

// A42 on P019 (T003) is accepted, the other applications of P019 get cancelled.
func Test_applicationApi_decide_scenario(t *testing.T) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	createTeacher(t, "T003", "Corno", "Fulvio")
	createStudent(t, "S042", "Rossi", "Anna")
	createStudent(t, "S043", "Bianchi", "Luca")
	for i := 0; i < 18; i++ {
		createProposal(t, "T001", fmt.Sprintf("Proposal %d", i+1))
	}
	p19 := createProposal(t, "T003", "Thesis on distributed systems")
	require.Equal(t, "P019", p19.ID)
	other := createProposal(t, "T003", "Thesis on compilers")

	createApplication(t, "A42", "P019", "S042", application.StatusPending)
	createApplication(t, "A43", "P019", "S043", application.StatusPending)
	createApplication(t, "A44", other.ID, "S043", application.StatusPending)

	token := getToken(t, account("T003", user.RoleTeacher))
	req, rec := newAuthRequest(http.MethodPost, "/v1/applications/A42", token, decisionBody("Accepted"))
	app.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t,
		`{"application": {"id": "A42", "proposal_id": "P019", "student_id": "S042", "status": "Accepted",
		  "application_date": "2023-11-06T00:00:00Z"}, "emailNotificationSent": true}`,
		rec.Body.String(),
	)
	assert.Equal(t, application.StatusCancelled, getApplication(t, "A43").Status)
	assert.Equal(t, application.StatusPending, getApplication(t, "A44").Status)
	assert.True(t, getProposal(t, "P019").Archived)
	assert.False(t, getProposal(t, other.ID).Archived)
	assert.Len(t, studentNotifications(t, "S042"), 1)
	assert.Empty(t, studentNotifications(t, "S043"))
}

func Test_applicationApi_retrieve(t *testing.T) {
	token, propID := decisionFixture(t)
	detail := application.Detail{
		Application: getApplication(t, "A1"),
		Proposal:    getProposal(t, propID),
		Student:     createStudent(t, "S001", "Rossi", "Anna"),
	}

	tests := []httpTest{
		{
			name:     "supervisor",
			path:     "/v1/applications/A1",
			token:    token,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]interface{}{"application": detail}),
		},
		{
			name:     "other teacher",
			path:     "/v1/applications/A1",
			token:    getToken(t, account("T002", user.RoleTeacher)),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "student",
			path:     "/v1/applications/A1",
			token:    getToken(t, account("S001", user.RoleStudent)),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotTeacher),
		},
		{
			name:     "not found",
			path:     "/v1/applications/nope",
			token:    token,
			wantCode: http.StatusNotFound,
		},
	}
	runHTTPTests(t, tests)
}

func Test_applicationApi_queryByStudent(t *testing.T) {
	_, propID := decisionFixture(t)
	s1 := getToken(t, account("S001", user.RoleStudent))

	tests := []httpTest{
		{
			name:     "own applications",
			path:     "/v1/applications/students/S001",
			token:    s1,
			wantCode: http.StatusOK,
			wantData: marchallList(t, application.StudentApplication{
				Application:    getApplication(t, "A1"),
				ProposalTitle:  getProposal(t, propID).Title,
				SupervisorID:   "T001",
				SupervisorName: "Torchiano Marco",
			}),
		},
		{
			name:     "other student",
			path:     "/v1/applications/students/S002",
			token:    s1,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, httpErr{Error: "can only list your own applications"}),
		},
		{
			name:     "teacher",
			path:     "/v1/applications/students/S001",
			token:    getToken(t, account("T001", user.RoleTeacher)),
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "no applications",
			path:     "/v1/applications/students/S009",
			token:    getToken(t, account("S009", user.RoleStudent)),
			wantCode: http.StatusOK,
			wantData: []byte(`[]`),
		},
	}
	runHTTPTests(t, tests)
}

func Test_applicationApi_queryByTeacher(t *testing.T) {
	token, propID := decisionFixture(t)
	createProposal(t, "T001", "No applicants yet")

	rec := serve(httpTest{path: "/v1/applications", token: token})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got []struct {
		ProposalID   string `json:"proposal_id"`
		Applications []struct {
			ID string `json:"id"`
		} `json:"applications"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, propID, got[0].ProposalID)
	assert.Len(t, got[0].Applications, 3)

	rec = serve(httpTest{path: "/v1/applications", token: getToken(t, account("S001", user.RoleStudent))})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func Test_applicationApi_apply(t *testing.T) {
	reset()
	createTeacher(t, "T001", "Torchiano", "Marco")
	createStudent(t, "S001", "Rossi", "Anna")
	open := createProposal(t, "T001", "Open")
	expired := createProposal(t, "T001", "Expired", today.AddDate(0, 0, -1))
	s1 := getToken(t, account("S001", user.RoleStudent))

	body := func(id string) []byte { return []byte(fmt.Sprintf(`{"proposal_id": %q}`, id)) }

	rec := serve(httpTest{method: http.MethodPost, path: "/v1/applications", token: s1, body: body(open.ID)})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	apps, err := appRepo.QueryApplications(ctx, application.QueryFilter{StudentID: "S001"})
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, application.StatusPending, apps[0].Status)
	assert.Equal(t, today, apps[0].ApplicationDate)

	tests := []httpTest{
		{
			name:     "twice",
			method:   http.MethodPost,
			path:     "/v1/applications",
			body:     body(open.ID),
			token:    s1,
			wantCode: http.StatusConflict,
		},
		{
			name:     "expired",
			method:   http.MethodPost,
			path:     "/v1/applications",
			body:     body(expired.ID),
			token:    s1,
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, httpErr{Error: "proposal is not open to applications"}),
		},
		{
			name:     "unknown proposal",
			method:   http.MethodPost,
			path:     "/v1/applications",
			body:     body("P999"),
			token:    s1,
			wantCode: http.StatusNotFound,
		},
		{
			name:     "missing proposal",
			method:   http.MethodPost,
			path:     "/v1/applications",
			body:     []byte(`{}`),
			token:    s1,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "teacher",
			method:   http.MethodPost,
			path:     "/v1/applications",
			body:     body(open.ID),
			token:    getToken(t, account("T001", user.RoleTeacher)),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errNotStudent),
		},
	}
	runHTTPTests(t, tests)
}
