package postgres

import (
	"fmt"
	"strings"
	"time"
)

// whereBuilder assembles a parameterised WHERE clause. Empty values are
// skipped so optional filters can be added unconditionally.
type whereBuilder struct {
	conditions []string
	args       []any
	argIndex   int
}

func newWhereBuilder() *whereBuilder {
	return &whereBuilder{argIndex: 1}
}

func (wb *whereBuilder) bind(v any) string {
	wb.args = append(wb.args, v)
	p := fmt.Sprintf("$%d", wb.argIndex)
	wb.argIndex++
	return p
}

// Add adds "expr = value" when value is non-empty.
func (wb *whereBuilder) Add(expr, value string) {
	if value == "" {
		return
	}
	wb.conditions = append(wb.conditions, expr+" = "+wb.bind(value))
}

// AddIn adds "expr = ANY(values)" when values is non-empty.
func (wb *whereBuilder) AddIn(expr string, values []string) {
	if len(values) == 0 {
		return
	}
	wb.conditions = append(wb.conditions, expr+" = ANY("+wb.bind(values)+")")
}

// AddTimestampRange bounds expr inclusively. Zero times leave that side open.
func (wb *whereBuilder) AddTimestampRange(expr string, from, to time.Time) {
	if !from.IsZero() {
		wb.conditions = append(wb.conditions, expr+" >= "+wb.bind(from.UTC()))
	}
	if !to.IsZero() {
		wb.conditions = append(wb.conditions, expr+" <= "+wb.bind(to.UTC()))
	}
}

// Build returns the clause with a leading space, or "" and nil args.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}
