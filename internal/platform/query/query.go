// Package query builds the filter/sort/pagination SQL shared by every list
// endpoint. It extends a plain WHERE-clause builder with two things the
// workflow domain needs: computed select expressions (so a derived status
// behaves exactly like a stored column in filters and sorts) and a uniform
// hidden-row scope so no repository hand-writes its own "hidden = false".
package query

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"
)

// ParamType defines how a filter parameter is translated to SQL.
type ParamType int

const (
	Token   ParamType = iota // exact match on a column
	Date                     // date column, value may carry an op prefix (ge2026-01-01)
	Number                   // numeric column, value may carry an op prefix (gt2)
	Text                     // case-insensitive prefix match
	Ref                      // uuid equality
	Derived                  // computed expression with its own bound argument
)

// Config maps a filter/sort parameter name to its database representation.
// Derived params render Expr with the index their Arg is bound at; Column
// then names the select alias used for sorting.
type Config struct {
	Type   ParamType
	Column string
	Expr   func(argIdx int) string
	Arg    interface{}
}

type selectExpr struct {
	name   string
	render func(firstIdx int) string
	args   []interface{}
}

// Builder accumulates WHERE fragments with positional args, computed select
// expressions, and an ORDER BY, then renders count and data queries that
// share the same filter semantics.
type Builder struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
	selects []selectExpr
}

func New(table, cols string) *Builder {
	return &Builder{table: table, cols: cols, idx: 1}
}

// Idx returns the next available parameter index for hand-written clauses.
func (b *Builder) Idx() int { return b.idx }

// And appends a raw WHERE fragment. The caller formats placeholders using
// Idx() before calling.
func (b *Builder) And(clause string, args ...interface{}) {
	b.where += " AND " + clause
	b.args = append(b.args, args...)
	b.idx += len(args)
}

// ExcludeHidden scopes the query to visible rows. Every list and read
// repository applies this unless it is deliberately resurfacing a hidden
// record (toggle-active).
func (b *Builder) ExcludeHidden(alias string) *Builder {
	b.where += fmt.Sprintf(" AND %s.hidden = FALSE", alias)
	return b
}

// Select adds a computed column to the data query as "expr AS name". Its
// arguments are bound after all WHERE arguments, so the count query stays
// free of unused parameters.
func (b *Builder) Select(name string, render func(firstIdx int) string, args ...interface{}) {
	b.selects = append(b.selects, selectExpr{name: name, render: render, args: args})
}

// opPrefix splits a FHIR-style comparison prefix off a filter value.
func opPrefix(v string) (string, string) {
	if len(v) > 2 {
		switch v[:2] {
		case "eq", "ne", "gt", "ge", "lt", "le":
			return v[:2], v[2:]
		}
	}
	return "eq", v
}

var sqlOps = map[string]string{
	"eq": "=", "ne": "<>", "gt": ">", "ge": ">=", "lt": "<", "le": "<=",
}

// likeEscaper neutralizes LIKE wildcards so a literal % or _ in a text
// filter value matches itself instead of everything.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ApplyParam translates one filter parameter into a WHERE fragment.
func (b *Builder) ApplyParam(cfg Config, value string) {
	switch cfg.Type {
	case Token, Ref:
		b.where += fmt.Sprintf(" AND %s = $%d", cfg.Column, b.idx)
		b.args = append(b.args, value)
		b.idx++
	case Date:
		op, rest := opPrefix(value)
		b.where += fmt.Sprintf(" AND %s %s $%d::date", cfg.Column, sqlOps[op], b.idx)
		b.args = append(b.args, rest)
		b.idx++
	case Number:
		op, rest := opPrefix(value)
		b.where += fmt.Sprintf(" AND %s %s $%d", cfg.Column, sqlOps[op], b.idx)
		b.args = append(b.args, rest)
		b.idx++
	case Text:
		b.where += fmt.Sprintf(" AND %s ILIKE $%d", cfg.Column, b.idx)
		b.args = append(b.args, likeEscaper.Replace(value)+"%")
		b.idx++
	case Derived:
		op, rest := opPrefix(value)
		cmp := sqlOps[op]
		if op != "eq" && op != "ne" {
			cmp = "="
			rest = value
		}
		expr := cfg.Expr(b.idx)
		b.where += fmt.Sprintf(" AND (%s) %s $%d", expr, cmp, b.idx+1)
		b.args = append(b.args, cfg.Arg, rest)
		b.idx += 2
	}
}

// ApplyParams applies every known filter parameter from the request map;
// parameters without a config entry are ignored.
func (b *Builder) ApplyParams(params map[string]string, configs map[string]Config) {
	for name, value := range params {
		if cfg, ok := configs[name]; ok {
			b.ApplyParam(cfg, value)
		}
	}
}

// OrderBy sets the ORDER BY clause (without the keyword).
func (b *Builder) OrderBy(orderBy string) { b.orderBy = orderBy }

// ApplySort processes a comma-separated sort parameter ("-" prefix for
// descending) against the config's column mappings, falling back to
// defaultOrder. Derived params sort on their select alias.
func (b *Builder) ApplySort(sortParam, defaultOrder string, configs map[string]Config) {
	if sortParam == "" {
		b.orderBy = defaultOrder
		return
	}
	var parts []string
	for _, field := range strings.Split(sortParam, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		if desc {
			field = field[1:]
		}
		cfg, ok := configs[field]
		if !ok {
			continue
		}
		col := cfg.Column
		if desc {
			parts = append(parts, col+" DESC")
		} else {
			parts = append(parts, col+" ASC")
		}
	}
	if len(parts) > 0 {
		b.orderBy = strings.Join(parts, ", ")
	} else {
		b.orderBy = defaultOrder
	}
}

// CountSQL returns the count query. Computed select expressions are not
// rendered here, so their arguments are excluded from CountArgs.
func (b *Builder) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", b.table, b.where)
}

func (b *Builder) CountArgs() []interface{} { return b.args }

// DataSQL returns the data query with computed columns, ORDER BY, and
// LIMIT/OFFSET. Computed-column arguments are bound after the WHERE
// arguments; LIMIT and OFFSET come last.
func (b *Builder) DataSQL(limit, offset int) string {
	cols := b.cols
	idx := b.idx
	for _, s := range b.selects {
		cols += ", " + s.render(idx) + " AS " + s.name
		idx += len(s.args)
	}
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", cols, b.table, b.where)
	if b.orderBy != "" {
		sql += " ORDER BY " + b.orderBy
	}
	sql += fmt.Sprintf(" LIMIT $%d OFFSET $%d", idx, idx+1)
	return sql
}

func (b *Builder) DataArgs(limit, offset int) []interface{} {
	out := make([]interface{}, 0, len(b.args)+4)
	out = append(out, b.args...)
	for _, s := range b.selects {
		out = append(out, s.args...)
	}
	return append(out, limit, offset)
}

// ExtractParams collects filter parameters from the query string, skipping
// control parameters (limit, offset, sort) and anything underscored.
// Unknown names are harmless — ApplyParams drops them.
func ExtractParams(c echo.Context) map[string]string {
	params := map[string]string{}
	for k, v := range c.QueryParams() {
		if len(v) == 0 || strings.HasPrefix(k, "_") {
			continue
		}
		switch k {
		case "limit", "offset", "sort":
			continue
		}
		params[k] = v[0]
	}
	return params
}
