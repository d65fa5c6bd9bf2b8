package articles

import (
	"errors"
	"fmt"
	"sort"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
)

// Field limits.
const (
	MaxTitleLength  = 200
	MaxAuthorLength = 40
)

// ArticleInput is the create/update payload. A nil Tags on update keeps the
// article's current tags; a non-nil empty string clears them.
type ArticleInput struct {
	Title  string  `json:"title"`
	Author string  `json:"author"`
	Body   string  `json:"body"`
	Tags   *string `json:"tags"`
}

// CommentInput is the payload for a new comment.
type CommentInput struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

// ImportedArticle is an article read from the import folder.
type ImportedArticle struct {
	Path      string
	Checksum  string
	Title     string
	Author    string
	Body      string
	Tags      string
	CreatedAt time.Time
}

func required(field string) validation.Rule {
	return validation.Required.ErrorObject(
		validation.NewError(field+"_required", field+" is required"))
}

func maxRunes(field string, n int) validation.Rule {
	return validation.RuneLength(0, n).ErrorObject(
		validation.NewError(field+"_too_long", fmt.Sprintf("%s must be at most %d characters", field, n)))
}

func (in ArticleInput) validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, required("title"), maxRunes("title", MaxTitleLength)),
		validation.Field(&in.Author, required("author"), maxRunes("author", MaxAuthorLength)),
		validation.Field(&in.Body, required("body")),
	)
}

func (in CommentInput) validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Author, required("author"), maxRunes("author", MaxAuthorLength)),
		validation.Field(&in.Text, required("text")),
	)
}

// collect converts ozzo field errors into apperr.ValidationErrors ordered by
// field, appending extra errors. It returns nil when there is nothing to report.
func collect(err error, extra ...apperr.ValidationError) error {
	var out apperr.ValidationErrors
	var fields validation.Errors
	if errors.As(err, &fields) {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ve := apperr.ValidationError{Field: k, Code: "invalid", Message: fields[k].Error()}
			var coded validation.Error
			if errors.As(fields[k], &coded) {
				ve.Code = coded.Code()
				ve.Message = coded.Message()
			}
			out = append(out, ve)
		}
	} else if err != nil {
		return err
	}
	out = append(out, extra...)
	if len(out) == 0 {
		return nil
	}
	return out
}
