package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/starford/folio/internal/query"
)

var articleColumns = map[query.Field]string{
	query.FieldTitle:  "a.title",
	query.FieldBody:   "a.body",
	query.FieldAuthor: "a.author",
}

// Columns holding sanitized rich text. They are stored entity-escaped and
// compared in decoded form.
var escapedColumns = map[string]bool{
	"a.body":  true,
	"cm.text": true,
}

// compiler renders predicates in one SQL dialect. fold names the case
// folding function applied to both sides of case-insensitive comparisons.
type compiler struct {
	fold string
}

func (c conn) compiler() compiler {
	if c.postgres {
		return compiler{fold: "LOWER"}
	}
	return compiler{fold: sqliteFoldFunc}
}

// compileWhere translates a predicate tree into a WHERE expression over the
// articles table aliased as "a". Relation fields become EXISTS subqueries so
// an article is returned once no matter how many related rows match.
func (cp compiler) compileWhere(p query.Predicate) (string, []any, error) {
	switch p.Kind {
	case query.KindCond:
		return cp.compileCond(p)
	case query.KindAnd, query.KindOr:
		joiner := " AND "
		if p.Kind == query.KindOr {
			joiner = " OR "
		}
		parts := make([]string, 0, len(p.Children))
		var args []any
		for _, c := range p.Children {
			sql, a, err := cp.compileWhere(c)
			if err != nil {
				return "", nil, err
			}
			parts = append(parts, sql)
			args = append(args, a...)
		}
		if len(parts) == 0 {
			return "1=1", nil, nil
		}
		return "(" + strings.Join(parts, joiner) + ")", args, nil
	case query.KindAll, "":
		return "1=1", nil, nil
	}
	return "", nil, fmt.Errorf("store: unknown predicate kind %q", p.Kind)
}

func (cp compiler) compileCond(p query.Predicate) (string, []any, error) {
	if col, ok := articleColumns[p.Field]; ok {
		return cp.comparison(col, p.Op, p.Value)
	}

	switch p.Field {
	case query.FieldTagID:
		id, err := strconv.ParseInt(p.Value, 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("store: tag id %q: %w", p.Value, err)
		}
		return `EXISTS (SELECT 1 FROM article_tags tl WHERE tl.article_id = a.id AND tl.tag_id = ?)`,
			[]any{id}, nil
	case query.FieldTagName:
		cmp, args, err := cp.comparison("t.name", p.Op, p.Value)
		if err != nil {
			return "", nil, err
		}
		return `EXISTS (SELECT 1 FROM article_tags tl JOIN tags t ON t.id = tl.tag_id WHERE tl.article_id = a.id AND ` +
			cmp + `)`, args, nil
	case query.FieldCommentText, query.FieldCommentAuthor:
		col := "cm.text"
		if p.Field == query.FieldCommentAuthor {
			col = "cm.author"
		}
		cmp, args, err := cp.comparison(col, p.Op, p.Value)
		if err != nil {
			return "", nil, err
		}
		return `EXISTS (SELECT 1 FROM comments cm WHERE cm.article_id = a.id AND ` + cmp + `)`, args, nil
	}
	return "", nil, fmt.Errorf("store: unknown field %q", p.Field)
}

func (cp compiler) comparison(col string, op query.Op, value string) (string, []any, error) {
	if escapedColumns[col] {
		col = decodeEntities(col)
	}
	switch op {
	case query.OpContains:
		return cp.fold + "(" + col + ") LIKE " + cp.fold + "(CAST(? AS TEXT)) ESCAPE '\\'",
			[]any{"%" + escapeLike(value) + "%"}, nil
	case query.OpIEquals:
		return cp.fold + "(" + col + ") = " + cp.fold + "(CAST(? AS TEXT))", []any{value}, nil
	case query.OpEquals:
		return col + " = ?", []any{value}, nil
	}
	return "", nil, fmt.Errorf("store: unknown operator %q", op)
}

// decodeEntities wraps col in REPLACE calls undoing sanitizer escapes, the
// SQL counterpart of query.UnescapeText.
func decodeEntities(col string) string {
	expr := col
	for _, r := range query.TextEntities {
		expr = "REPLACE(" + expr + ", '" + r[0] + "', '" + strings.ReplaceAll(r[1], "'", "''") + "')"
	}
	return expr
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
