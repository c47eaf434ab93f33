package teacher

import (
	"context"

	"github.com/thesisapp/thesis/core"
)

var ErrNotFound = core.NewNotFoundError("teacher not found")

type Teacher struct {
	ID            string `json:"id" db:"id"`
	Surname       string `json:"surname" db:"surname"`
	Name          string `json:"name" db:"name"`
	Email         string `json:"email" db:"email"`
	CodGroup      string `json:"cod_group" db:"cod_group"`
	CodDepartment string `json:"cod_department" db:"cod_department"`
}

// FullName is "surname name", the way supervisors are named in notices.
func (t Teacher) FullName() string {
	return t.Surname + " " + t.Name
}

type (
	Repository interface {
		// SaveTeacher creates the Teacher or updates the one with the same ID.
		SaveTeacher(ctx context.Context, t Teacher) (Teacher, error)
		GetTeacher(ctx context.Context, id string) (Teacher, error)
		QueryTeachers(ctx context.Context) ([]Teacher, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Save(ctx context.Context, t Teacher) (Teacher, error) {
	t.ID = core.CleanString(t.ID)
	t.Email = core.CleanString(t.Email, true /* lower */)
	return svc.repo.SaveTeacher(ctx, t)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Teacher, error) {
	return svc.repo.GetTeacher(ctx, core.CleanString(id))
}

// Query lists all teachers, ordered by surname then name.
func (svc *Service) Query(ctx context.Context) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx)
}
