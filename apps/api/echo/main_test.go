package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	. "github.com/thesisapp/thesis/apps/api/echo"
	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/application"
	"github.com/thesisapp/thesis/core/clock"
	"github.com/thesisapp/thesis/core/notification"
	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
	"github.com/thesisapp/thesis/core/user"
	"github.com/thesisapp/thesis/services/email"
	"github.com/thesisapp/thesis/services/logger"
	"github.com/thesisapp/thesis/storage/database/dummy"
	"github.com/thesisapp/thesis/tests"
)

var (
	ctx   = context.Background()
	conf  = core.NewTestConfig()
	today = time.Date(2023, 11, 6, 0, 0, 0, 0, time.UTC)

	db      *dummydb.DB
	app     Server
	mailSvc *emailsvc.MockService

	usrRepo   user.Repository
	propRepo  proposal.Repository
	appRepo   application.Repository
	notifRepo notification.Repository

	studentSvc *student.Service
	teacherSvc *teacher.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errNotTeacher   = httpErr{Error: "must be a teacher to make this request"}
	errNotStudent   = httpErr{Error: "must be a student to make this request"}
)

func TestMain(m *testing.M) {
	conf.Server.LoginRateLimit = 1
	conf.Server.LoginRateBurst = 5

	std := logrus.New()
	std.SetOutput(io.Discard)
	logger := logsvc.NewRollbarLogger(std, "test", conf)
	logger.Enable(false)

	// set up DB & repos
	db, _ = dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	propRepo = dummydb.NewProposalRepository(db)
	appRepo = dummydb.NewApplicationRepository(db)
	notifRepo = dummydb.NewNotificationRepository(db)

	// set up services
	mailSvc = emailsvc.NewMockService()
	clockSvc := clock.NewService(dummydb.NewClockRepository(db))
	studentSvc = student.NewService(dummydb.NewStudentRepository(db))
	teacherSvc = teacher.NewService(dummydb.NewTeacherRepository(db))
	propSvc := proposal.NewService(propRepo, clockSvc)
	notifSvc := notification.NewService(notifRepo, mailSvc, studentSvc, logger)
	appSvc := application.NewService(application.Deps{
		Repo:      appRepo,
		Tx:        db,
		Proposals: propSvc,
		Students:  studentSvc,
		Teachers:  teacherSvc,
		Clock:     clockSvc,
		Notifier:  notifSvc,
		Logger:    logger,
	})

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)

	// set up server
	app = NewServer(ServerDeps{
		Conf:            conf,
		Logger:          logger,
		Validate:        validate,
		Translator:      translator,
		DisableReqLogs:  true,
		UserSvc:         user.NewService(usrRepo),
		StudentSvc:      studentSvc,
		TeacherSvc:      teacherSvc,
		ProposalSvc:     propSvc,
		ApplicationSvc:  appSvc,
		NotificationSvc: notifSvc,
		ClockSvc:        clockSvc,
	})

	os.Exit(m.Run())
}

func reset() {
	db.Reset()
	db.SetVirtualDate(today)
	mailSvc.Reset()
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

// serve runs a httpTest against the app.
func serve(tt httpTest) *httptest.ResponseRecorder {
	method := tt.method
	if method == "" {
		method = http.MethodGet
	}
	req, rec := newAuthRequest(method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, serve(tt))
		})
	}
}

// fixtures

func createAccount(t *testing.T, id string, role user.Role, pwd string) user.User {
	return testutil.CreateUser(t, usrRepo, id, strings.ToLower(id)+"@polito.it", role, pwd, true, today)
}

func account(id string, role user.Role) user.User {
	return user.User{ID: id, Email: strings.ToLower(id) + "@polito.it", Role: role, IsActive: true}
}

func createTeacher(t *testing.T, id, surname, name string) teacher.Teacher {
	tch, err := teacherSvc.Save(ctx, teacher.Teacher{
		ID:            id,
		Surname:       surname,
		Name:          name,
		Email:         id + "@polito.it",
		CodGroup:      "NET",
		CodDepartment: "DAUIN",
	})
	if err != nil {
		t.Fatalf("createTeacher() failed: %v", err)
	}
	return tch
}

func createStudent(t *testing.T, id, surname, name string) student.Student {
	s, err := studentSvc.Save(ctx, student.Student{
		ID:             id,
		Surname:        surname,
		Name:           name,
		Gender:         "F",
		Nationality:    "Italian",
		Email:          id + "@studenti.polito.it",
		CodDegree:      "LM-32",
		EnrollmentYear: 2022,
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return s
}

func createProposal(t *testing.T, supervisorID, title string, expiration ...time.Time) proposal.Proposal {
	exp := today.AddDate(0, 4, 0)
	if len(expiration) > 0 {
		exp = expiration[0]
	}
	p, err := propRepo.CreateProposal(ctx, proposal.Proposal{
		Title:             title,
		SupervisorID:      supervisorID,
		Keywords:          []string{"networks"},
		Type:              "Research",
		Groups:            []string{"NET"},
		Description:       title + " description",
		RequiredKnowledge: "Go",
		ExpirationDate:    exp,
		Level:             proposal.LevelMaster,
		Programmes:        []string{"LM-32"},
		CreatedAt:         today,
	})
	if err != nil {
		t.Fatalf("createProposal() failed: %v", err)
	}
	return p
}

func createApplication(t *testing.T, id, proposalID, studentID string, status application.Status) application.Application {
	app, err := appRepo.CreateApplication(ctx, application.Application{
		ID:              id,
		ProposalID:      proposalID,
		StudentID:       studentID,
		Status:          status,
		ApplicationDate: today,
	})
	if err != nil {
		t.Fatalf("createApplication() failed: %v", err)
	}
	return app
}

func getApplication(t *testing.T, id string) application.Application {
	app, err := appRepo.GetApplication(ctx, id)
	if err != nil {
		t.Fatalf("getApplication() failed: %v", err)
	}
	return app
}

func getProposal(t *testing.T, id string) proposal.Proposal {
	p, err := propRepo.GetProposal(ctx, id)
	if err != nil {
		t.Fatalf("getProposal() failed: %v", err)
	}
	return p
}

func studentNotifications(t *testing.T, studentID string) []notification.Notification {
	notifs, err := notifRepo.QueryNotifications(ctx, studentID)
	if err != nil {
		t.Fatalf("studentNotifications() failed: %v", err)
	}
	return notifs
}

func assertNoNotification(t *testing.T, studentIDs ...string) {
	for _, id := range studentIDs {
		assert.Empty(t, studentNotifications(t, id), "notifications of %s", id)
	}
	assert.Empty(t, mailSvc.SentMessages())
}
