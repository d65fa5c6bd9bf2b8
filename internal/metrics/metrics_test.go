package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordWrite(t *testing.T) {
	ok := testutil.ToFloat64(ArticleWritesTotal.WithLabelValues("test", "ok"))
	failed := testutil.ToFloat64(ArticleWritesTotal.WithLabelValues("test", "error"))

	RecordWrite("test", nil)
	RecordWrite("test", errors.New("boom"))
	RecordWrite("test", errors.New("boom"))

	assert.Equal(t, ok+1, testutil.ToFloat64(ArticleWritesTotal.WithLabelValues("test", "ok")))
	assert.Equal(t, failed+2, testutil.ToFloat64(ArticleWritesTotal.WithLabelValues("test", "error")))
}

func TestRecordCache(t *testing.T) {
	hits := testutil.ToFloat64(PredicateCacheTotal.WithLabelValues("hit"))
	misses := testutil.ToFloat64(PredicateCacheTotal.WithLabelValues("miss"))

	RecordCache(true)
	RecordCache(false)

	assert.Equal(t, hits+1, testutil.ToFloat64(PredicateCacheTotal.WithLabelValues("hit")))
	assert.Equal(t, misses+1, testutil.ToFloat64(PredicateCacheTotal.WithLabelValues("miss")))
}

func TestHandlerExposesFolioMetrics(t *testing.T) {
	RecordSearch("simple", "ok", 0.01)
	RecordTagConflict()

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	for _, name := range []string{"folio_search_total", "folio_search_duration_seconds", "folio_tag_conflicts_total"} {
		assert.True(t, strings.Contains(body, name), "missing %s", name)
	}
}
