package repository

import (
	"fmt"
	"strings"
)

// whereBuilder collects equality conditions with positional placeholders
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{}
}

func (w *whereBuilder) add(column string, value interface{}) {
	w.args = append(w.args, value)
	w.conditions = append(w.conditions, fmt.Sprintf("%s = $%d", column, len(w.args)))
}

func (w *whereBuilder) sql() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conditions, " AND ")
}

// setBuilder collects column assignments for an UPDATE
type setBuilder struct {
	columns []string
	args    []interface{}
}

func newSetBuilder() *setBuilder {
	return &setBuilder{}
}

func (s *setBuilder) add(column string, value interface{}) {
	s.args = append(s.args, value)
	s.columns = append(s.columns, fmt.Sprintf("%s = $%d", column, len(s.args)))
}
