package query

import (
	"strconv"

	"github.com/starford/folio/internal/criteria"
)

// Build turns validated criteria into a predicate. Text disjuncts come before
// author disjuncts; scopes whose value is empty are omitted, and a search
// with no applicable scope matches everything. A tag filter is ANDed on top.
func Build(c criteria.Criteria) Predicate {
	var match Predicate
	if c.IsFull() {
		match = buildFull(c)
	} else {
		match = buildSimple(c.Search)
	}
	if c.TagFilter > 0 {
		return And(match, Cond(FieldTagID, OpEquals, strconv.FormatInt(c.TagFilter, 10)))
	}
	return match
}

func buildSimple(search string) Predicate {
	if search == "" {
		return All()
	}
	return Or(
		Cond(FieldTitle, OpContains, search),
		Cond(FieldAuthor, OpContains, search),
		Cond(FieldTagName, OpIEquals, search),
	)
}

func buildFull(c criteria.Criteria) Predicate {
	var terms []Predicate
	if c.Text != "" {
		if c.InTitle {
			terms = append(terms, Cond(FieldTitle, OpContains, c.Text))
		}
		if c.InText {
			terms = append(terms, Cond(FieldBody, OpContains, c.Text))
		}
		if c.InTags {
			terms = append(terms, Cond(FieldTagName, OpIEquals, c.Text))
		}
		if c.InCommentText {
			terms = append(terms, Cond(FieldCommentText, OpContains, c.Text))
		}
	}
	if c.Author != "" {
		if c.InArticleAuthor {
			terms = append(terms, Cond(FieldAuthor, OpContains, c.Author))
		}
		if c.InCommentAuthor {
			terms = append(terms, Cond(FieldCommentAuthor, OpContains, c.Author))
		}
	}
	if len(terms) == 0 {
		return All()
	}
	return Or(terms...)
}
