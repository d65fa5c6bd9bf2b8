package query

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"

	"github.com/starford/folio/internal/models"
)

// TextEntities are the escapes the rich text sanitizer leaves in stored body
// and comment text, in the order a sequential decoder must undo them.
var TextEntities = [][2]string{
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&#34;", `"`},
	{"&#39;", "'"},
	{"&amp;", "&"},
}

var textUnescaper = func() *strings.Replacer {
	pairs := make([]string, 0, 2*len(TextEntities))
	for _, e := range TextEntities {
		pairs = append(pairs, e[0], e[1])
	}
	return strings.NewReplacer(pairs...)
}()

// UnescapeText decodes the entities listed in TextEntities.
func UnescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// Record is the in-memory view of an article that Match evaluates against.
type Record struct {
	Title    string
	Body     string
	Author   string
	Tags     []models.Tag
	Comments []models.Comment
}

// NewRecord assembles a Record from an article and its comments.
func NewRecord(a models.Article, comments []models.Comment) Record {
	return Record{
		Title:    a.Title,
		Body:     a.Body,
		Author:   a.Author,
		Tags:     a.Tags,
		Comments: comments,
	}
}

// Match evaluates p against r.
func Match(p Predicate, r Record) bool {
	fold := cases.Fold()
	return match(p, r, fold)
}

func match(p Predicate, r Record, fold cases.Caser) bool {
	switch p.Kind {
	case KindCond:
		return matchCond(p, r, fold)
	case KindAnd:
		for _, c := range p.Children {
			if !match(c, r, fold) {
				return false
			}
		}
		return true
	case KindOr:
		for _, c := range p.Children {
			if match(c, r, fold) {
				return true
			}
		}
		return false
	default:
		return true
	}
}

func matchCond(p Predicate, r Record, fold cases.Caser) bool {
	switch p.Field {
	case FieldTitle:
		return compare(p.Op, r.Title, p.Value, fold)
	case FieldBody:
		return compare(p.Op, UnescapeText(r.Body), p.Value, fold)
	case FieldAuthor:
		return compare(p.Op, r.Author, p.Value, fold)
	case FieldTagName:
		for _, t := range r.Tags {
			if compare(p.Op, t.Name, p.Value, fold) {
				return true
			}
		}
	case FieldTagID:
		for _, t := range r.Tags {
			if compare(p.Op, strconv.FormatInt(t.ID, 10), p.Value, fold) {
				return true
			}
		}
	case FieldCommentText:
		for _, c := range r.Comments {
			if compare(p.Op, UnescapeText(c.Text), p.Value, fold) {
				return true
			}
		}
	case FieldCommentAuthor:
		for _, c := range r.Comments {
			if compare(p.Op, c.Author, p.Value, fold) {
				return true
			}
		}
	}
	return false
}

func compare(op Op, have, want string, fold cases.Caser) bool {
	switch op {
	case OpContains:
		return strings.Contains(fold.String(have), fold.String(want))
	case OpIEquals:
		return fold.String(have) == fold.String(want)
	case OpEquals:
		return have == want
	}
	return false
}
