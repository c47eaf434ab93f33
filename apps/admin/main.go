package main

import (
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/thesisapp/thesis/core"
	"github.com/thesisapp/thesis/core/clock"
	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
	"github.com/thesisapp/thesis/core/user"
	"github.com/thesisapp/thesis/services/logger"
	"github.com/thesisapp/thesis/storage/database"
	"github.com/thesisapp/thesis/storage/database/sqlx"
)

func main() {
	os.Exit(run())
}

func run() int {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(logsvc.NewStdLogger(conf), "admin", conf)
	logger.Enable(false)

	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Error("creating database", err)
		return 1
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Error("opening database", err)
		return 1
	}
	//goland:noinspection GoUnhandledErrorResult
	defer db.Close()

	translator := core.NewTranslator()
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	user.LoadCommonPasswords(logger)

	clockSvc := clock.NewService(sqlxrepos.NewClockRepository(db))
	cli := commandLine{
		db:          db,
		usrSvc:      user.NewService(sqlxrepos.NewUserRepository(db)),
		studentSvc:  student.NewService(sqlxrepos.NewStudentRepository(db)),
		teacherSvc:  teacher.NewService(sqlxrepos.NewTeacherRepository(db)),
		proposalSvc: proposal.NewService(sqlxrepos.NewProposalRepository(db), clockSvc),
		validate:    validate,
		logger:      logger,
		out:         os.Stdout,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(os.Args[1], err)
		}
		return 1
	}
	return 0
}
