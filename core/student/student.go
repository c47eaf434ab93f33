package student

import (
	"context"
	"net/mail"

	"github.com/thesisapp/thesis/core"
)

var ErrNotFound = core.NewNotFoundError("student not found")

type Student struct {
	ID             string `json:"id" db:"id"`
	Surname        string `json:"surname" db:"surname"`
	Name           string `json:"name" db:"name"`
	Gender         string `json:"gender" db:"gender"`
	Nationality    string `json:"nationality" db:"nationality"`
	Email          string `json:"email" db:"email"`
	CodDegree      string `json:"cod_degree" db:"cod_degree"`
	EnrollmentYear int    `json:"enrollment_year" db:"enrollment_year"`
}

// FullName is "surname name", the way students are addressed in notices.
func (s Student) FullName() string {
	return s.Surname + " " + s.Name
}

func (s Student) Address() mail.Address {
	return mail.Address{Name: s.FullName(), Address: s.Email}
}

type (
	Repository interface {
		// SaveStudent creates the Student or updates the one with the same ID.
		SaveStudent(ctx context.Context, s Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Save(ctx context.Context, s Student) (Student, error) {
	s.ID = core.CleanString(s.ID)
	s.Email = core.CleanString(s.Email, true /* lower */)
	return svc.repo.SaveStudent(ctx, s)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, core.CleanString(id))
}

// StudentAddress resolves where the notices of a student are delivered.
func (svc *Service) StudentAddress(ctx context.Context, id string) (mail.Address, error) {
	s, err := svc.GetByID(ctx, id)
	if err != nil {
		return mail.Address{}, err
	}
	return s.Address(), nil
}
