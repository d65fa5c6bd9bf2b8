// Package tagging normalizes comma-separated tag input into stored tags.
package tagging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/metrics"
	"github.com/starford/folio/internal/models"
)

// Validation codes.
const (
	CodeTooShort = "tag_too_short"
	CodeTooLong  = "tag_too_long"
)

// DefaultMaxLength is the tag field limit used when none is configured.
const DefaultMaxLength = 100

// TagStore is the storage primitive the registry needs. UpsertTag must be
// an atomic get-or-create on the exact name.
type TagStore interface {
	UpsertTag(ctx context.Context, name string) (models.Tag, error)
}

// Registry turns raw tag strings into tag references.
type Registry struct {
	store     TagStore
	maxLength int
	logger    *slog.Logger
}

// NewRegistry creates a registry backed by store. A non-positive maxLength
// falls back to DefaultMaxLength.
func NewRegistry(store TagStore, maxLength int, logger *slog.Logger) *Registry {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{store: store, maxLength: maxLength, logger: logger}
}

// With returns a copy of the registry bound to ts, typically a transaction.
func (r *Registry) With(ts TagStore) *Registry {
	cp := *r
	cp.store = ts
	return &cp
}

// MaxLength returns the configured tag field limit.
func (r *Registry) MaxLength() int { return r.maxLength }

// Split validates raw and returns its distinct trimmed tokens in first-seen
// order. A blank input yields no tokens.
func (r *Registry) Split(raw string) ([]string, error) {
	err := validation.Validate(raw,
		validation.RuneLength(0, r.maxLength).ErrorObject(
			validation.NewError(CodeTooLong, fmt.Sprintf("tags must be at most %d characters", r.maxLength))),
	)
	if err != nil {
		return nil, apperr.Invalid("tags", CodeTooLong, err.Error())
	}
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		name := strings.TrimSpace(p)
		if name == "" {
			return nil, apperr.Invalid("tags", CodeTooShort, "tags must not be empty")
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

// Normalize validates raw and upserts every distinct tag it names. Nothing is
// written when validation fails.
func (r *Registry) Normalize(ctx context.Context, raw string) ([]models.Tag, error) {
	names, err := r.Split(raw)
	if err != nil {
		return nil, err
	}
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		t, err := r.getOrCreate(ctx, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}

// getOrCreate retries the upsert once when the store reports a conflict.
func (r *Registry) getOrCreate(ctx context.Context, name string) (models.Tag, error) {
	t, err := r.store.UpsertTag(ctx, name)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, apperr.ErrConflict) {
		return models.Tag{}, fmt.Errorf("tagging: upsert %q: %w", name, err)
	}

	metrics.RecordTagConflict()
	r.logger.Debug("tag upsert conflict, retrying", slog.String("tag", name))

	t, err = r.store.UpsertTag(ctx, name)
	if err != nil {
		return models.Tag{}, fmt.Errorf("tagging: upsert %q after retry: %w", name, err)
	}
	return t, nil
}

// Line renders tags as the comma-separated form value.
func Line(tags []models.Tag) string {
	names := make([]string, len(tags))
	for i, t := range tags {
		names[i] = t.Name
	}
	return strings.Join(names, ", ")
}
