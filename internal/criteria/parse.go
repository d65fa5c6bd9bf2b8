package criteria

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
)

// Validation codes.
const (
	CodeTextScopeEmpty = "text_search_criteria_empty"

	// Emitted only by the strict historical revision, which folio does not
	// implement. Kept so UI message tables stay complete.
	CodeAuthorScopeEmpty        = "author_search_criteria_empty"
	CodeAuthorTextCriteriaEmpty = "author_text_search_criteria_empty"

	CodeSearchTooLong    = "search_too_long"
	CodeTextTooLong      = "text_too_long"
	CodeAuthorTooLong    = "author_too_long"
	CodeInvalidFlag      = "invalid_flag"
	CodeInvalidTagFilter = "invalid_tag_filter"
	CodeModeConflict     = "search_mode_conflict"
	CodeInvalidMode      = "invalid_mode"
)

var fullModeParams = []string{
	ParamText, ParamInTitle, ParamInText, ParamInTags, ParamInCommentText,
	ParamAuthor, ParamArticleAuthor, ParamCommentAuthor,
}

// Parse builds Criteria from raw request parameters. Field-level problems are
// all reported together; if there are none, Validate runs and its first
// failing rule is returned. The error, when non-nil, is apperr.ValidationErrors.
func Parse(values url.Values) (Criteria, error) {
	var errs apperr.ValidationErrors

	tag, tagErr := parseTag(values.Get(ParamTag))
	if tagErr != nil {
		errs = append(errs, *tagErr)
	}

	full, form, modeErr := resolveMode(values)
	if modeErr != nil {
		errs = append(errs, *modeErr)
	}

	var c Criteria
	if full {
		c = Defaults()
		c.TagFilter = tag
		c.Text = strings.TrimSpace(values.Get(ParamText))
		c.Author = strings.TrimSpace(values.Get(ParamAuthor))

		if strings.TrimSpace(values.Get(ParamSearch)) != "" {
			errs = append(errs, apperr.ValidationError{
				Field:   ParamSearch,
				Code:    CodeModeConflict,
				Message: "search cannot be combined with text or author criteria",
			})
		}
		errs = appendErr(errs, ParamText, checkLength(c.Text, CodeTextTooLong))
		errs = appendErr(errs, ParamAuthor, checkLength(c.Author, CodeAuthorTooLong))

		for _, f := range []struct {
			param string
			dst   *bool
		}{
			{ParamInTitle, &c.InTitle},
			{ParamInText, &c.InText},
			{ParamInTags, &c.InTags},
			{ParamInCommentText, &c.InCommentText},
			{ParamArticleAuthor, &c.InArticleAuthor},
			{ParamCommentAuthor, &c.InCommentAuthor},
		} {
			if e := parseFlag(values, f.param, f.dst, form); e != nil {
				errs = append(errs, *e)
			}
		}
	} else {
		c = Criteria{
			Mode:      ModeSimple,
			Search:    strings.TrimSpace(values.Get(ParamSearch)),
			TagFilter: tag,
		}
		errs = appendErr(errs, ParamSearch, checkLength(c.Search, CodeSearchTooLong))
	}

	if len(errs) > 0 {
		return c, errs
	}
	if err := Validate(c); err != nil {
		return c, err
	}
	return c, nil
}

// Validate checks cross-field consistency. Rules run in a fixed order and the
// first failure is returned as apperr.ValidationErrors.
//
// Author scope flags are advisory: an author with no enabled scope is simply
// not searched, and a full search with neither text nor author matches all
// articles.
func Validate(c Criteria) error {
	if !c.IsFull() {
		return nil
	}
	if c.Text != "" && !(c.InTitle || c.InText || c.InTags || c.InCommentText) {
		return apperr.Invalid(ParamText, CodeTextScopeEmpty,
			"select at least one place to search the text in")
	}
	return nil
}

// resolveMode decides the search shape. form is set for explicit full-form
// submissions, where absent checkboxes mean off.
func resolveMode(values url.Values) (full, form bool, verr *apperr.ValidationError) {
	switch Mode(strings.ToLower(strings.TrimSpace(values.Get(ParamMode)))) {
	case "":
		return isFullMode(values), false, nil
	case ModeFull:
		return true, true, nil
	case ModeSimple:
		if isFullMode(values) {
			return false, false, &apperr.ValidationError{
				Field:   ParamMode,
				Code:    CodeModeConflict,
				Message: "simple mode cannot be combined with text or author criteria",
			}
		}
		return false, false, nil
	}
	return isFullMode(values), false, &apperr.ValidationError{
		Field:   ParamMode,
		Code:    CodeInvalidMode,
		Message: "mode must be simple or full",
	}
}

func isFullMode(values url.Values) bool {
	for _, p := range fullModeParams {
		if _, ok := values[p]; ok {
			return true
		}
	}
	return false
}

var flagValues = []interface{}{"on", "off", "true", "false", "1", "0", "yes", "no"}

// parseFlag leaves *dst at its default when the parameter is absent, or
// clears it when absentOff is set.
func parseFlag(values url.Values, param string, dst *bool, absentOff bool) *apperr.ValidationError {
	raw, ok := values[param]
	if !ok || len(raw) == 0 {
		if absentOff {
			*dst = false
		}
		return nil
	}
	v := strings.ToLower(strings.TrimSpace(raw[len(raw)-1]))
	err := validation.Validate(v,
		validation.In(flagValues...).ErrorObject(
			validation.NewError(CodeInvalidFlag, fmt.Sprintf("%s must be a checkbox value", param))),
	)
	if err != nil {
		return toValidationError(param, err)
	}
	switch v {
	case "on", "true", "1", "yes":
		*dst = true
	default:
		*dst = false
	}
	return nil
}

func parseTag(raw string) (int64, *apperr.ValidationError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	var id int64
	err := validation.Validate(raw, validation.By(func(value interface{}) error {
		n, err := strconv.ParseInt(value.(string), 10, 64)
		if err != nil || n <= 0 {
			return validation.NewError(CodeInvalidTagFilter, "tag must be a tag id")
		}
		id = n
		return nil
	}))
	if err != nil {
		return 0, toValidationError(ParamTag, err)
	}
	return id, nil
}

func checkLength(value, code string) error {
	return validation.Validate(value,
		validation.RuneLength(0, MaxQueryLength).ErrorObject(
			validation.NewError(code, fmt.Sprintf("must be at most %d characters", MaxQueryLength))),
	)
}

func appendErr(errs apperr.ValidationErrors, field string, err error) apperr.ValidationErrors {
	if err == nil {
		return errs
	}
	return append(errs, *toValidationError(field, err))
}

func toValidationError(field string, err error) *apperr.ValidationError {
	var ve validation.Error
	if errors.As(err, &ve) {
		return &apperr.ValidationError{Field: field, Code: ve.Code(), Message: ve.Message()}
	}
	return &apperr.ValidationError{Field: field, Code: "invalid", Message: err.Error()}
}
