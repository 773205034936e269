// Package query composes SQL statements from fragments whose values travel
// only as named parameters (pgx "@name" syntax).
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Params binds placeholder names to values.
type Params map[string]interface{}

// Statement is rendered SQL plus exactly the parameters it references.
type Statement struct {
	SQL    string
	Params Params
}

func (s Statement) NamedArgs() pgx.NamedArgs {
	return pgx.NamedArgs(s.Params)
}

type join struct {
	key    string
	clause string
}

// Builder accumulates a single SELECT. Predicates are ANDed in the order
// they were added; callers parenthesise predicates that contain OR.
type Builder struct {
	from     string
	columns  []string
	distinct bool
	joins    []join
	where    []string
	params   Params
	orderBy  []string
	paged    bool
}

func New(from string) *Builder {
	return &Builder{from: from, params: Params{}}
}

func (b *Builder) Select(columns ...string) *Builder {
	b.columns = append(b.columns, columns...)
	return b
}

func (b *Builder) Distinct() *Builder {
	b.distinct = true
	return b
}

// Join adds clause once per key; later calls with the same key are ignored.
func (b *Builder) Join(key, clause string) *Builder {
	if b.HasJoin(key) {
		return b
	}
	b.joins = append(b.joins, join{key: key, clause: clause})
	return b
}

func (b *Builder) HasJoin(key string) bool {
	for _, j := range b.joins {
		if j.key == key {
			return true
		}
	}
	return false
}

// Where adds a predicate together with the values of the placeholders it uses.
func (b *Builder) Where(predicate string, params Params) *Builder {
	b.where = append(b.where, predicate)
	for k, v := range params {
		b.params[k] = v
	}
	return b
}

// Bind sets a parameter used by a select column or join clause.
func (b *Builder) Bind(name string, value interface{}) *Builder {
	b.params[name] = value
	return b
}

func (b *Builder) OrderBy(exprs ...string) *Builder {
	b.orderBy = append(b.orderBy, exprs...)
	return b
}

// Page appends LIMIT @limit OFFSET @offset to the rendered select.
func (b *Builder) Page(limit, offset int) *Builder {
	b.paged = true
	b.params["limit"] = limit
	b.params["offset"] = offset
	return b
}

// Build renders the full select. Every placeholder must be bound and every
// bound parameter must be used.
func (b *Builder) Build() (Statement, error) {
	if len(b.columns) == 0 {
		return Statement{}, fmt.Errorf("query: no columns selected from %s", b.from)
	}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	if b.distinct {
		sb.WriteString("DISTINCT ")
	}
	sb.WriteString(strings.Join(b.columns, ",\n       "))
	b.writeBody(&sb)
	if len(b.orderBy) > 0 {
		sb.WriteString("\nORDER BY ")
		sb.WriteString(strings.Join(b.orderBy, ", "))
	}
	if b.paged {
		sb.WriteString("\nLIMIT @limit OFFSET @offset")
	}

	stmt, unused, err := b.render(sb.String())
	if err != nil {
		return Statement{}, err
	}
	if len(unused) > 0 {
		return Statement{}, fmt.Errorf("query: bound parameters never referenced: %s", strings.Join(unused, ", "))
	}
	return stmt, nil
}

// BuildCount renders SELECT count(expr) over the same source, joins and
// predicates. Ordering, paging and parameters only they use are dropped.
func (b *Builder) BuildCount(expr string) (Statement, error) {
	var sb strings.Builder
	sb.WriteString("SELECT count(")
	sb.WriteString(expr)
	sb.WriteString(")")
	b.writeBody(&sb)

	stmt, _, err := b.render(sb.String())
	return stmt, err
}

func (b *Builder) writeBody(sb *strings.Builder) {
	sb.WriteString("\nFROM ")
	sb.WriteString(b.from)
	for _, j := range b.joins {
		sb.WriteString("\n")
		sb.WriteString(j.clause)
	}
	if len(b.where) > 0 {
		sb.WriteString("\nWHERE ")
		sb.WriteString(strings.Join(b.where, "\n  AND "))
	}
}

func (b *Builder) render(sql string) (Statement, []string, error) {
	names := Placeholders(sql)
	params := make(Params, len(names))
	var missing []string
	for _, n := range names {
		v, ok := b.params[n]
		if !ok {
			missing = append(missing, n)
			continue
		}
		params[n] = v
	}
	if len(missing) > 0 {
		return Statement{}, nil, fmt.Errorf("query: unbound placeholders: %s", strings.Join(missing, ", "))
	}

	var unused []string
	for k := range b.params {
		if _, ok := params[k]; !ok {
			unused = append(unused, k)
		}
	}
	sort.Strings(unused)
	return Statement{SQL: sql, Params: params}, unused, nil
}

// Placeholders returns the distinct @name placeholders in sql in order of
// first appearance. Text inside single-quoted literals and double-quoted
// identifiers is ignored.
func Placeholders(sql string) []string {
	var (
		names []string
		seen  = map[string]bool{}
		quote byte
	)
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '@' && i+1 < len(sql) && isNameStart(sql[i+1]):
			j := i + 1
			for j < len(sql) && isNamePart(sql[j]) {
				j++
			}
			name := sql[i+1 : j]
			if !seen[name] {
				seen[name] = true
				names = append(names, name)
			}
			i = j - 1
		}
	}
	return names
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNamePart(c byte) bool {
	return isNameStart(c) || (c >= '0' && c <= '9')
}

// Literal quotes a trusted catalog string as a SQL string literal.
func Literal(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Ident quotes an identifier such as a column alias.
func Ident(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
