package tagging

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
)

// memStore is an in-memory TagStore. conflicts makes the next N upserts
// fail with ErrConflict.
type memStore struct {
	mu        sync.Mutex
	byName    map[string]models.Tag
	nextID    int64
	calls     int
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{byName: make(map[string]models.Tag)}
}

func (m *memStore) UpsertTag(_ context.Context, name string) (models.Tag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.conflicts > 0 {
		m.conflicts--
		return models.Tag{}, fmt.Errorf("unique violation: %w", apperr.ErrConflict)
	}
	if t, ok := m.byName[name]; ok {
		return t, nil
	}
	m.nextID++
	t := models.Tag{ID: m.nextID, Name: name}
	m.byName[name] = t
	return t, nil
}

func names(tags []models.Tag) []string {
	out := make([]string, len(tags))
	for i, t := range tags {
		out[i] = t.Name
	}
	return out
}

func TestNormalize_TrimsTokens(t *testing.T) {
	r := NewRegistry(newMemStore(), 100, nil)
	tags, err := r.Normalize(context.Background(), "a, b ,c")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, names(tags))
}

func TestNormalize_EmptyTokenFails(t *testing.T) {
	store := newMemStore()
	r := NewRegistry(store, 100, nil)

	_, err := r.Normalize(context.Background(), "a,, b")
	require.Error(t, err)
	verrs, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.True(t, verrs.Has(CodeTooShort))
	assert.Zero(t, store.calls, "registry must not be mutated on invalid input")
}

func TestNormalize_WhitespaceOnlyTokenFails(t *testing.T) {
	r := NewRegistry(newMemStore(), 100, nil)
	_, err := r.Normalize(context.Background(), "a,   ")
	verrs, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeTooShort, verrs[0].Code)
}

func TestNormalize_BlankMeansNoTags(t *testing.T) {
	store := newMemStore()
	r := NewRegistry(store, 100, nil)
	tags, err := r.Normalize(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, tags)
	assert.Zero(t, store.calls)
}

func TestNormalize_TooLong(t *testing.T) {
	r := NewRegistry(newMemStore(), 20, nil)
	_, err := r.Normalize(context.Background(), "abcdefghij, klmnopqrstu")
	verrs, ok := apperr.AsValidation(err)
	require.True(t, ok)
	assert.Equal(t, CodeTooLong, verrs[0].Code)
}

func TestNormalize_CollapsesDuplicates(t *testing.T) {
	r := NewRegistry(newMemStore(), 100, nil)
	tags, err := r.Normalize(context.Background(), "go, go ,Go")
	require.NoError(t, err)
	assert.Equal(t, []string{"go", "Go"}, names(tags))
}

func TestNormalize_Idempotent(t *testing.T) {
	r := NewRegistry(newMemStore(), 100, nil)
	ctx := context.Background()
	first, err := r.Normalize(ctx, "x, y, z")
	require.NoError(t, err)
	second, err := r.Normalize(ctx, "x, y, z")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestNormalize_RetriesConflictOnce(t *testing.T) {
	store := newMemStore()
	store.conflicts = 1
	r := NewRegistry(store, 100, nil)

	tags, err := r.Normalize(context.Background(), "race")
	require.NoError(t, err)
	assert.Equal(t, []string{"race"}, names(tags))
	assert.Equal(t, 2, store.calls)
}

func TestNormalize_ConflictAfterRetrySurfaces(t *testing.T) {
	store := newMemStore()
	store.conflicts = 2
	r := NewRegistry(store, 100, nil)

	_, err := r.Normalize(context.Background(), "race")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.Equal(t, 2, store.calls)
}

func TestNormalize_ConcurrentFirstUse(t *testing.T) {
	store := newMemStore()
	r := NewRegistry(store, 100, nil)

	var wg sync.WaitGroup
	results := make([][]models.Tag, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tags, err := r.Normalize(context.Background(), "shared")
			assert.NoError(t, err)
			results[i] = tags
		}(i)
	}
	wg.Wait()

	for _, tags := range results {
		require.Len(t, tags, 1)
		assert.Equal(t, results[0][0].ID, tags[0].ID)
	}
	assert.Len(t, store.byName, 1)
}

func TestLine(t *testing.T) {
	assert.Equal(t, "bar, baz", Line([]models.Tag{{Name: "bar"}, {Name: "baz"}}))
	assert.Equal(t, "", Line(nil))
}
