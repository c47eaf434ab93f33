package main

import (
	"context"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/thesisapp/thesis/core/proposal"
	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
)

type (
	fixtures struct {
		Degrees   []degreeFixture   `yaml:"degrees"`
		Teachers  []teacherFixture  `yaml:"teachers"`
		Students  []studentFixture  `yaml:"students"`
		Proposals []proposalFixture `yaml:"proposals"`
	}

	degreeFixture struct {
		Code  string `yaml:"cod_degree"`
		Title string `yaml:"title"`
	}

	teacherFixture struct {
		ID            string `yaml:"id"`
		Surname       string `yaml:"surname"`
		Name          string `yaml:"name"`
		Email         string `yaml:"email"`
		CodGroup      string `yaml:"cod_group"`
		CodDepartment string `yaml:"cod_department"`
	}

	studentFixture struct {
		ID             string `yaml:"id"`
		Surname        string `yaml:"surname"`
		Name           string `yaml:"name"`
		Gender         string `yaml:"gender"`
		Nationality    string `yaml:"nationality"`
		Email          string `yaml:"email"`
		CodDegree      string `yaml:"cod_degree"`
		EnrollmentYear int    `yaml:"enrollment_year"`
	}

	proposalFixture struct {
		Title             string   `yaml:"title"`
		Supervisor        string   `yaml:"supervisor"`
		Keywords          []string `yaml:"keywords"`
		Type              string   `yaml:"type"`
		Groups            []string `yaml:"groups"`
		Description       string   `yaml:"description"`
		RequiredKnowledge string   `yaml:"required_knowledge"`
		Notes             string   `yaml:"notes"`
		ExpirationDate    string   `yaml:"expiration_date"`
		Level             string   `yaml:"level"`
		Programmes        []string `yaml:"programmes"`
	}
)

// seed loads reference data from a YAML file.
// Degrees & people are upserted; a proposal is skipped if its supervisor already has one with the same title.
func (cli *commandLine) seed(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var fx fixtures
	if err = yaml.Unmarshal(data, &fx); err != nil {
		return errors.Wrap(err, "parsing fixtures")
	}

	ctx := context.Background()
	for _, d := range fx.Degrees {
		if _, err = cli.proposalSvc.SaveDegree(ctx, proposal.Degree{Code: d.Code, Title: d.Title}); err != nil {
			return errors.Wrapf(err, "saving degree %s", d.Code)
		}
	}
	for _, t := range fx.Teachers {
		if _, err = cli.teacherSvc.Save(ctx, teacher.Teacher(t)); err != nil {
			return errors.Wrapf(err, "saving teacher %s", t.ID)
		}
	}
	for _, s := range fx.Students {
		if _, err = cli.studentSvc.Save(ctx, student.Student(s)); err != nil {
			return errors.Wrapf(err, "saving student %s", s.ID)
		}
	}

	created := 0
	for i, p := range fx.Proposals {
		ok, err := cli.seedProposal(ctx, p)
		if err != nil {
			return errors.Wrapf(err, "proposal #%d (%q)", i+1, p.Title)
		}
		if ok {
			created++
		}
	}

	cli.logger.Info(fmt.Sprintf(
		"seeded %d degrees, %d teachers, %d students, %d proposals",
		len(fx.Degrees), len(fx.Teachers), len(fx.Students), created,
	))
	return nil
}

func (cli *commandLine) seedProposal(ctx context.Context, p proposalFixture) (bool, error) {
	sup, err := cli.teacherSvc.GetByID(ctx, p.Supervisor)
	if err != nil {
		return false, err
	}
	existing, err := cli.proposalSvc.QueryBySupervisor(ctx, sup.ID)
	if err != nil {
		return false, err
	}
	for _, e := range existing {
		if e.Title == p.Title {
			return false, nil
		}
	}

	np := proposal.NewProposal{
		Title:             p.Title,
		Keywords:          p.Keywords,
		Type:              p.Type,
		Groups:            p.Groups,
		Description:       p.Description,
		RequiredKnowledge: p.RequiredKnowledge,
		Notes:             p.Notes,
		ExpirationDate:    p.ExpirationDate,
		Level:             proposal.Level(p.Level),
		Programmes:        p.Programmes,
	}
	if err = np.Validate(cli.validate); err != nil {
		return false, err
	}
	if _, err = cli.proposalSvc.Create(ctx, sup.ID, np); err != nil {
		return false, err
	}
	return true, nil
}
