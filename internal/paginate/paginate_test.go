package paginate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i + 1
	}
	return out
}

func TestOrphanAbsorbed(t *testing.T) {
	p := New(5, 1)
	page := Slice(p, seq(6), 1)
	assert.Equal(t, 1, page.NumPages)
	assert.Len(t, page.Items, 6)
	assert.False(t, page.HasNext)
}

func TestSevenItemsTwoPages(t *testing.T) {
	p := New(5, 1)
	first := Slice(p, seq(7), 1)
	second := Slice(p, seq(7), 2)
	assert.Equal(t, 2, first.NumPages)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, first.Items)
	assert.True(t, first.HasNext)
	assert.Equal(t, []int{6, 7}, second.Items)
	assert.True(t, second.HasPrevious)
}

func TestStrictPagesForComments(t *testing.T) {
	p := New(3, 0)
	assert.Equal(t, 3, p.NumPages(7))
	last := Slice(p, seq(7), 3)
	assert.Equal(t, []int{7}, last.Items)
}

func TestEmptyHasOnePage(t *testing.T) {
	p := New(5, 1)
	page := Slice(p, []int{}, 1)
	assert.Equal(t, 1, page.NumPages)
	assert.Equal(t, 1, page.Number)
	assert.Empty(t, page.Items)
	assert.NotNil(t, page.Items)
}

func TestOutOfRangeClampsToLast(t *testing.T) {
	p := New(5, 1)
	w := p.Window(99, 11)
	assert.Equal(t, 2, w.Number)
	assert.Equal(t, 5, w.Offset)
	assert.Equal(t, 6, w.Limit)
}

func TestFewerThanOrphans(t *testing.T) {
	p := New(5, 3)
	assert.Equal(t, 1, p.NumPages(2))
	assert.Equal(t, 2, p.Window(1, 2).Limit)
}

func TestParseNumber(t *testing.T) {
	assert.Equal(t, 1, ParseNumber(""))
	assert.Equal(t, 1, ParseNumber("abc"))
	assert.Equal(t, 1, ParseNumber("-3"))
	assert.Equal(t, 4, ParseNumber(" 4 "))
	assert.Equal(t, 3, New(5, 1).Window(ParseNumber("last"), 14).Number)
}
