// Package criteria parses and validates article search parameters.
//
// Two mutually exclusive shapes are accepted. Simple mode takes a single
// "search" token matched against title, author and exact tag name. Full mode
// takes "text" and "author" values, each with per-field scope flags. A "tag"
// filter may accompany either mode.
//
// Without a "mode" parameter the shape is inferred from the parameters
// present and absent scope flags keep their defaults. "mode=full" marks an
// HTML form submission: browsers omit unchecked boxes, so every absent flag
// is off.
package criteria

import (
	"net/url"
	"strconv"
	"strings"
)

// Mode selects the search shape.
type Mode string

const (
	ModeSimple Mode = "simple"
	ModeFull   Mode = "full"
)

// Query parameter names.
const (
	ParamSearch        = "search"
	ParamTag           = "tag"
	ParamText          = "text"
	ParamInTitle       = "in_title"
	ParamInText        = "in_text"
	ParamInTags        = "in_tags"
	ParamInCommentText = "in_comment_text"
	ParamAuthor        = "author"
	ParamArticleAuthor = "article_author"
	ParamCommentAuthor = "comment_author"
	ParamPage          = "page"
	ParamMode          = "mode"
)

// MaxQueryLength bounds search, text and author values.
const MaxQueryLength = 100

// Criteria is a parsed search request. The zero value is an empty simple
// search that matches everything.
type Criteria struct {
	Mode Mode `json:"mode"`

	Search string `json:"search,omitempty"`

	Text          string `json:"text,omitempty"`
	InTitle       bool   `json:"in_title"`
	InText        bool   `json:"in_text"`
	InTags        bool   `json:"in_tags"`
	InCommentText bool   `json:"in_comment_text"`

	Author          string `json:"author,omitempty"`
	InArticleAuthor bool   `json:"article_author"`
	InCommentAuthor bool   `json:"comment_author"`

	// TagFilter is a tag id; zero means no filter.
	TagFilter int64 `json:"tag,omitempty"`
}

// Defaults returns the unbound full-form state shown before any submission.
func Defaults() Criteria {
	return Criteria{
		Mode:            ModeFull,
		InTitle:         true,
		InText:          true,
		InTags:          true,
		InCommentText:   false,
		InArticleAuthor: true,
		InCommentAuthor: false,
	}
}

// IsFull reports whether c is a full-mode search.
func (c Criteria) IsFull() bool { return c.Mode == ModeFull }

// Key is a canonical representation: equal criteria produce equal keys.
func (c Criteria) Key() string {
	var b strings.Builder
	b.WriteString(string(c.mode()))
	b.WriteByte('|')
	if c.IsFull() {
		b.WriteString(strconv.Quote(c.Text))
		b.WriteString(flags(c.InTitle, c.InText, c.InTags, c.InCommentText))
		b.WriteByte('|')
		b.WriteString(strconv.Quote(c.Author))
		b.WriteString(flags(c.InArticleAuthor, c.InCommentAuthor))
	} else {
		b.WriteString(strconv.Quote(c.Search))
	}
	b.WriteString("|tag=")
	b.WriteString(strconv.FormatInt(c.TagFilter, 10))
	return b.String()
}

// Values renders c back into query parameters, e.g. for pagination links.
// Simple searches with an empty token and no tag produce no parameters.
func (c Criteria) Values() url.Values {
	v := url.Values{}
	if c.IsFull() {
		v.Set(ParamMode, string(ModeFull))
		v.Set(ParamText, c.Text)
		v.Set(ParamInTitle, strconv.FormatBool(c.InTitle))
		v.Set(ParamInText, strconv.FormatBool(c.InText))
		v.Set(ParamInTags, strconv.FormatBool(c.InTags))
		v.Set(ParamInCommentText, strconv.FormatBool(c.InCommentText))
		v.Set(ParamAuthor, c.Author)
		v.Set(ParamArticleAuthor, strconv.FormatBool(c.InArticleAuthor))
		v.Set(ParamCommentAuthor, strconv.FormatBool(c.InCommentAuthor))
	} else if c.Search != "" {
		v.Set(ParamSearch, c.Search)
	}
	if c.TagFilter > 0 {
		v.Set(ParamTag, strconv.FormatInt(c.TagFilter, 10))
	}
	return v
}

func (c Criteria) mode() Mode {
	if c.Mode == "" {
		return ModeSimple
	}
	return c.Mode
}

func flags(bs ...bool) string {
	out := make([]byte, len(bs))
	for i, b := range bs {
		out[i] = '0'
		if b {
			out[i] = '1'
		}
	}
	return "[" + string(out) + "]"
}
