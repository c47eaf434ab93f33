package di

import (
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/dig"

	"github.com/thesisapp/thesis/apps/api/echo"
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
	"github.com/thesisapp/thesis/services/scheduler"
	"github.com/thesisapp/thesis/storage/database"
	"github.com/thesisapp/thesis/storage/database/dummy"
	"github.com/thesisapp/thesis/storage/database/sqlx"
)

// EngineMemory keeps every row in memory, for demos & tests.
const EngineMemory = "memory"

// CloseFunc releases the storage.
type CloseFunc func() error

type (
	Loggers struct {
		dig.Out
		API  core.Logger
		DB   core.Logger `name:"dbLogger"`
		Jobs core.Logger `name:"jobsLogger"`
	}

	DBLoggerParam struct {
		dig.In
		Logger core.Logger `name:"dbLogger"`
	}

	Storage struct {
		dig.Out
		Users         user.Repository
		Students      student.Repository
		Teachers      teacher.Repository
		Proposals     proposal.Repository
		Applications  application.Repository
		Notifications notification.Repository
		Clock         clock.Repository
		Tx            core.Transactor
		Close         CloseFunc
	}

	applicationParams struct {
		dig.In
		Repo      application.Repository
		Tx        core.Transactor
		Proposals *proposal.Service
		Students  *student.Service
		Teachers  *teacher.Service
		Clock     *clock.Service
		Notifier  *notification.Service
		Logger    core.Logger
	}

	serverParams struct {
		dig.In
		Conf            *core.Config
		Logger          core.Logger
		Validate        *validator.Validate
		Translator      ut.Translator
		UserSvc         *user.Service
		StudentSvc      *student.Service
		TeacherSvc      *teacher.Service
		ProposalSvc     *proposal.Service
		ApplicationSvc  *application.Service
		NotificationSvc *notification.Service
		ClockSvc        *clock.Service
	}

	schedulerParams struct {
		dig.In
		Conf          *core.Config
		Notifications *notification.Service
		Logger        core.Logger `name:"jobsLogger"`
	}
)

func newLoggers(std *logrus.Logger, conf *core.Config) Loggers {
	api := logsvc.NewRollbarLogger(std, "api", conf)
	api.Enable(!conf.Debug && !conf.TestMode)
	return Loggers{
		API:  api,
		DB:   logsvc.NewRollbarLogger(std, "db", conf),
		Jobs: logsvc.NewRollbarLogger(std, "jobs", conf),
	}
}

func newStorage(conf *core.Config, loggerParam DBLoggerParam) (Storage, error) {
	if conf.Database.Engine == EngineMemory {
		db, err := dummydb.Open()
		if err != nil {
			return Storage{}, err
		}
		loggerParam.Logger.Warn("using in-memory storage, data will not survive a restart")
		return Storage{
			Users:         dummydb.NewUserRepository(db),
			Students:      dummydb.NewStudentRepository(db),
			Teachers:      dummydb.NewTeacherRepository(db),
			Proposals:     dummydb.NewProposalRepository(db),
			Applications:  dummydb.NewApplicationRepository(db),
			Notifications: dummydb.NewNotificationRepository(db),
			Clock:         dummydb.NewClockRepository(db),
			Tx:            db,
			Close:         func() error { return nil },
		}, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return Storage{}, errors.Wrap(err, "setting up database")
	}
	return Storage{
		Users:         sqlxrepos.NewUserRepository(db),
		Students:      sqlxrepos.NewStudentRepository(db),
		Teachers:      sqlxrepos.NewTeacherRepository(db),
		Proposals:     sqlxrepos.NewProposalRepository(db),
		Applications:  sqlxrepos.NewApplicationRepository(db),
		Notifications: sqlxrepos.NewNotificationRepository(db),
		Clock:         sqlxrepos.NewClockRepository(db),
		Tx:            database.NewTransactor(db),
		Close:         db.Close,
	}, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db, "up"); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func newEmailService(conf *core.Config) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, os.Stdout)
	}
	return emailsvc.NewSendgridService(conf)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func newProposalService(repo proposal.Repository, clockSvc *clock.Service) *proposal.Service {
	return proposal.NewService(repo, clockSvc)
}

func newNotificationService(
	repo notification.Repository,
	mailSvc core.EmailService,
	students *student.Service,
	logger core.Logger,
) *notification.Service {
	return notification.NewService(repo, mailSvc, students, logger)
}

func newApplicationService(p applicationParams) *application.Service {
	return application.NewService(application.Deps{
		Repo:      p.Repo,
		Tx:        p.Tx,
		Proposals: p.Proposals,
		Students:  p.Students,
		Teachers:  p.Teachers,
		Clock:     p.Clock,
		Notifier:  p.Notifier,
		Logger:    p.Logger,
	})
}

func newServer(p serverParams) echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:            p.Conf,
		Logger:          p.Logger,
		Validate:        p.Validate,
		Translator:      p.Translator,
		DisableReqLogs:  p.Conf.TestMode,
		UserSvc:         p.UserSvc,
		StudentSvc:      p.StudentSvc,
		TeacherSvc:      p.TeacherSvc,
		ProposalSvc:     p.ProposalSvc,
		ApplicationSvc:  p.ApplicationSvc,
		NotificationSvc: p.NotificationSvc,
		ClockSvc:        p.ClockSvc,
	})
}

func newScheduler(p schedulerParams) *scheduler.Scheduler {
	return scheduler.New(p.Notifications, p.Conf.Jobs, p.Logger)
}

// New returns a new dependency injection dig.Container for conf.
func New(conf *core.Config) *dig.Container {
	c := dig.New()

	must(c.Provide(func() *core.Config { return conf }))
	must(c.Provide(logsvc.NewStdLogger))
	must(c.Provide(newLoggers))
	must(c.Provide(newStorage))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))

	must(c.Provide(user.NewService))
	must(c.Provide(student.NewService))
	must(c.Provide(teacher.NewService))
	must(c.Provide(clock.NewService))
	must(c.Provide(newProposalService))
	must(c.Provide(newNotificationService))
	must(c.Provide(newApplicationService))

	must(c.Provide(newServer))
	must(c.Provide(newScheduler))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
