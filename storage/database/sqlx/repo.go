package sqlxrepos

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/thesisapp/thesis/core"
)

const uniqueViolation = "23505"

// getExec returns the transaction in `exec` if any, db otherwise.
func getExec(db core.DBExecutor, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

// trapNoRowsErr replaces sql.ErrNoRows by `notFound`.
func trapNoRowsErr(err, notFound error) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	pqErr, ok := err.(*pq.Error)
	return ok && pqErr.Code == uniqueViolation
}

// whereBuilder accumulates AND-ed conditions with positional arguments.
type whereBuilder struct {
	clauses []string
	args    []interface{}
}

// add appends a clause; every `$%[1]d` in it refers to `arg`.
func (wb *whereBuilder) add(clause string, arg interface{}) {
	wb.args = append(wb.args, arg)
	wb.clauses = append(wb.clauses, fmt.Sprintf(clause, len(wb.args)))
}

// addRaw appends a clause without argument.
func (wb *whereBuilder) addRaw(clause string) {
	wb.clauses = append(wb.clauses, clause)
}

func (wb *whereBuilder) String() string {
	if len(wb.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(wb.clauses, " AND ")
}

func orderBy(ordering []core.DBOrdering) string {
	if len(ordering) == 0 {
		return ""
	}
	fields := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		fields = append(fields, ord.String())
	}
	return " ORDER BY " + strings.Join(fields, ", ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
