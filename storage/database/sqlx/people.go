package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/thesisapp/thesis/core/student"
	"github.com/thesisapp/thesis/core/teacher"
)

const (
	studentColumns = `id, surname, name, gender, nationality, email, COALESCE(cod_degree, '') AS cod_degree, enrollment_year`
	teacherColumns = `id, surname, name, email, cod_group, cod_department`
)

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) SaveStudent(ctx context.Context, s student.Student) (student.Student, error) {
	q := `INSERT INTO student (id, surname, name, gender, nationality, email, cod_degree, enrollment_year)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
		ON CONFLICT (id) DO UPDATE SET
			surname = EXCLUDED.surname, name = EXCLUDED.name, gender = EXCLUDED.gender,
			nationality = EXCLUDED.nationality, email = EXCLUDED.email,
			cod_degree = EXCLUDED.cod_degree, enrollment_year = EXCLUDED.enrollment_year
		RETURNING ` + studentColumns
	var saved student.Student
	err := repo.db.GetContext(ctx, &saved, q,
		s.ID, s.Surname, s.Name, s.Gender, s.Nationality, s.Email, s.CodDegree, s.EnrollmentYear)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "upserting student")
	}
	return saved, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	var s student.Student
	if err := repo.db.GetContext(ctx, &s, `SELECT `+studentColumns+` FROM student WHERE id = $1`, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound)
	}
	return s, nil
}

type teacherRepository struct {
	db *sqlx.DB
}

var _ teacher.Repository = (*teacherRepository)(nil) // interface compliance check

func NewTeacherRepository(db *sqlx.DB) teacher.Repository {
	return &teacherRepository{db: db}
}

func (repo *teacherRepository) SaveTeacher(ctx context.Context, t teacher.Teacher) (teacher.Teacher, error) {
	q := `INSERT INTO teacher (id, surname, name, email, cod_group, cod_department)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			surname = EXCLUDED.surname, name = EXCLUDED.name, email = EXCLUDED.email,
			cod_group = EXCLUDED.cod_group, cod_department = EXCLUDED.cod_department
		RETURNING ` + teacherColumns
	var saved teacher.Teacher
	err := repo.db.GetContext(ctx, &saved, q, t.ID, t.Surname, t.Name, t.Email, t.CodGroup, t.CodDepartment)
	if err != nil {
		return teacher.Teacher{}, errors.Wrap(err, "upserting teacher")
	}
	return saved, nil
}

func (repo *teacherRepository) GetTeacher(ctx context.Context, id string) (teacher.Teacher, error) {
	var t teacher.Teacher
	if err := repo.db.GetContext(ctx, &t, `SELECT `+teacherColumns+` FROM teacher WHERE id = $1`, id); err != nil {
		return teacher.Teacher{}, trapNoRowsErr(err, teacher.ErrNotFound)
	}
	return t, nil
}

func (repo *teacherRepository) QueryTeachers(ctx context.Context) ([]teacher.Teacher, error) {
	teachers := make([]teacher.Teacher, 0)
	q := `SELECT ` + teacherColumns + ` FROM teacher ORDER BY surname, name`
	if err := repo.db.SelectContext(ctx, &teachers, q); err != nil {
		return nil, errors.Wrap(err, "selecting teachers")
	}
	return teachers, nil
}
