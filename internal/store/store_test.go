package store

import (
	"context"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/query"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "folio-store-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() { os.Remove(f.Name()) })

	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: f.Name()})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func seed(t *testing.T, db *DB, title, author string, at time.Time, tags ...string) *models.Article {
	t.Helper()
	ctx := context.Background()
	a := &models.Article{Title: title, Author: author, Body: title + " body", CreatedAt: at}
	if err := db.CreateArticle(ctx, a); err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	var linked []models.Tag
	for _, name := range tags {
		tag, err := db.UpsertTag(ctx, name)
		if err != nil {
			t.Fatalf("UpsertTag: %v", err)
		}
		linked = append(linked, tag)
	}
	if err := db.ReplaceArticleTags(ctx, a.ID, linked); err != nil {
		t.Fatalf("ReplaceArticleTags: %v", err)
	}
	return a
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"articles", "tags", "article_tags", "comments"} {
		var n int
		if err := db.sql.QueryRow(`SELECT count(*) FROM ` + table).Scan(&n); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertTagIsIdempotent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	first, err := db.UpsertTag(ctx, "go")
	if err != nil {
		t.Fatalf("UpsertTag: %v", err)
	}
	second, err := db.UpsertTag(ctx, "go")
	if err != nil {
		t.Fatalf("UpsertTag again: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("ids differ: %d vs %d", first.ID, second.ID)
	}
	other, _ := db.UpsertTag(ctx, "Go")
	if other.ID == first.ID {
		t.Error("tag names should be case-sensitive")
	}
}

func TestGetArticleWithTags(t *testing.T) {
	db := testDB(t)
	a := seed(t, db, "Hello", "ann", time.Now(), "zeta", "alpha")

	got, err := db.GetArticle(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("GetArticle: %v", err)
	}
	if got.Title != "Hello" || got.Author != "ann" {
		t.Errorf("got %+v", got)
	}
	names := got.TagNames()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("tags = %v, want [alpha zeta]", names)
	}
	if !got.CreatedAt.Equal(a.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, a.CreatedAt)
	}
}

func TestGetMissingArticle(t *testing.T) {
	db := testDB(t)
	_, err := db.GetArticle(context.Background(), 42)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := db.DeleteArticle(context.Background(), 42); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("delete err = %v, want ErrNotFound", err)
	}
}

func TestReplaceArticleTagsKeepsRegistry(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := seed(t, db, "Post", "ann", time.Now(), "foo", "bar")

	bar, _ := db.TagByName(ctx, "bar")
	baz, _ := db.UpsertTag(ctx, "baz")
	if err := db.ReplaceArticleTags(ctx, a.ID, []models.Tag{bar, baz}); err != nil {
		t.Fatalf("ReplaceArticleTags: %v", err)
	}

	got, _ := db.GetArticle(ctx, a.ID)
	if names := got.TagNames(); len(names) != 2 || names[0] != "bar" || names[1] != "baz" {
		t.Errorf("tags = %v, want [bar baz]", names)
	}
	if _, err := db.TagByName(ctx, "foo"); err != nil {
		t.Errorf("foo should remain in the registry: %v", err)
	}

	counts, err := db.ListTags(ctx)
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	want := map[string]int{"bar": 1, "baz": 1, "foo": 0}
	if len(counts) != len(want) {
		t.Fatalf("ListTags = %+v", counts)
	}
	for _, tc := range counts {
		if want[tc.Name] != tc.Articles {
			t.Errorf("%s count = %d, want %d", tc.Name, tc.Articles, want[tc.Name])
		}
	}
}

func TestFindArticlesOrderAndWindow(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"one", "two", "three", "four"} {
		seed(t, db, title, "ann", base.Add(time.Duration(i)*time.Hour))
	}

	got, err := db.FindArticles(ctx, query.All(), 2, 1)
	if err != nil {
		t.Fatalf("FindArticles: %v", err)
	}
	if len(got) != 2 || got[0].Title != "three" || got[1].Title != "two" {
		t.Fatalf("window = %v", titles(got))
	}

	n, err := db.CountArticles(ctx, query.All())
	if err != nil || n != 4 {
		t.Fatalf("CountArticles = %d, %v", n, err)
	}
}

func TestFindArticlesSameTimestampOrdersByID(t *testing.T) {
	db := testDB(t)
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	first := seed(t, db, "first", "ann", at)
	second := seed(t, db, "second", "ann", at)

	got, _ := db.FindArticles(context.Background(), query.All(), 10, 0)
	if len(got) != 2 || got[0].ID != second.ID || got[1].ID != first.ID {
		t.Fatalf("order = %v", titles(got))
	}
}

func TestFindArticlesByPredicate(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	now := time.Now()
	seed(t, db, "Foo Bar", "ann", now, "go")
	seed(t, db, "Other", "foobar", now.Add(time.Second), "misc")
	a3 := seed(t, db, "Plain", "bob", now.Add(2*time.Second), "FOO")
	if err := db.AddComment(ctx, &models.Comment{ArticleID: a3.ID, Author: "zed", Text: "a foo remark"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}
	goTag, _ := db.TagByName(ctx, "go")

	cases := []struct {
		name string
		p    query.Predicate
		want int
	}{
		{"title contains, case-insensitive", query.Cond(query.FieldTitle, query.OpContains, "foo"), 1},
		{"author contains", query.Cond(query.FieldAuthor, query.OpContains, "OOB"), 1},
		{"tag iequals", query.Cond(query.FieldTagName, query.OpIEquals, "foo"), 1},
		{"tag iequals is not contains", query.Cond(query.FieldTagName, query.OpIEquals, "fo"), 0},
		{"comment text", query.Cond(query.FieldCommentText, query.OpContains, "remark"), 1},
		{"comment author", query.Cond(query.FieldCommentAuthor, query.OpContains, "ze"), 1},
		{"tag id", query.Cond(query.FieldTagID, query.OpEquals, itoa(goTag.ID)), 1},
		{"or", query.Or(
			query.Cond(query.FieldTitle, query.OpContains, "foo"),
			query.Cond(query.FieldAuthor, query.OpContains, "foo"),
		), 2},
		{"and", query.And(
			query.Cond(query.FieldTitle, query.OpContains, "foo"),
			query.Cond(query.FieldTagID, query.OpEquals, itoa(goTag.ID)),
		), 1},
		{"like wildcards are literal", query.Cond(query.FieldTitle, query.OpContains, "%"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := db.CountArticles(ctx, tc.p)
			if err != nil {
				t.Fatalf("CountArticles: %v", err)
			}
			if n != tc.want {
				t.Errorf("count = %d, want %d", n, tc.want)
			}
		})
	}
}

func TestFindArticlesFoldsUnicodeCase(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	seed(t, db, "Привет мир", "Ёжик", time.Now(), "новости")

	cases := []struct {
		name string
		p    query.Predicate
	}{
		{"title contains", query.Cond(query.FieldTitle, query.OpContains, "ПРИВЕТ")},
		{"author contains", query.Cond(query.FieldAuthor, query.OpContains, "ёЖИК")},
		{"tag iequals", query.Cond(query.FieldTagName, query.OpIEquals, "Новости")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := db.CountArticles(ctx, tc.p)
			if err != nil {
				t.Fatalf("CountArticles: %v", err)
			}
			if n != 1 {
				t.Errorf("count = %d, want 1", n)
			}
		})
	}
}

func TestFindArticlesDecodesEscapedText(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := &models.Article{Title: "Telecom", Author: "ann", Body: "AT&amp;T rocks, 1 &lt; 2", CreatedAt: time.Now()}
	if err := db.CreateArticle(ctx, a); err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	if err := db.AddComment(ctx, &models.Comment{ArticleID: a.ID, Author: "bob", Text: "&#34;it&#39;s&#34; &amp;lt;ok&amp;gt;"}); err != nil {
		t.Fatalf("AddComment: %v", err)
	}

	cases := []struct {
		name string
		p    query.Predicate
		want int
	}{
		{"ampersand", query.Cond(query.FieldBody, query.OpContains, "AT&T"), 1},
		{"less than", query.Cond(query.FieldBody, query.OpContains, "1 < 2"), 1},
		{"entity name is not text", query.Cond(query.FieldBody, query.OpContains, "amp"), 0},
		{"comment quotes", query.Cond(query.FieldCommentText, query.OpContains, `"it's"`), 1},
		{"double escape decodes once", query.Cond(query.FieldCommentText, query.OpContains, "&lt;ok&gt;"), 1},
		{"double escape stays escaped", query.Cond(query.FieldCommentText, query.OpContains, "<ok>"), 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := db.CountArticles(ctx, tc.p)
			if err != nil {
				t.Fatalf("CountArticles: %v", err)
			}
			if n != tc.want {
				t.Errorf("count = %d, want %d", n, tc.want)
			}
			rec := query.NewRecord(*a, []models.Comment{{Text: "&#34;it&#39;s&#34; &amp;lt;ok&amp;gt;"}})
			if got := query.Match(tc.p, rec); got != (tc.want == 1) {
				t.Errorf("Match = %v, want %v", got, tc.want == 1)
			}
		})
	}
}

func TestCompileWhereDialects(t *testing.T) {
	p := query.Cond(query.FieldTitle, query.OpContains, "x")
	pg, _, err := conn{postgres: true}.compiler().compileWhere(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(pg, "LOWER(a.title)") {
		t.Errorf("postgres where = %q", pg)
	}
	lite, _, err := conn{}.compiler().compileWhere(p)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(lite, sqliteFoldFunc+"(a.title)") {
		t.Errorf("sqlite where = %q", lite)
	}
}

func TestMultipleMatchingCommentsCountOnce(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := seed(t, db, "Post", "ann", time.Now())
	for i := 0; i < 3; i++ {
		_ = db.AddComment(ctx, &models.Comment{ArticleID: a.ID, Author: "x", Text: "same words"})
	}
	n, _ := db.CountArticles(ctx, query.Cond(query.FieldCommentText, query.OpContains, "words"))
	if n != 1 {
		t.Errorf("count = %d, want 1", n)
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := seed(t, db, "Post", "ann", time.Now())
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"c1", "c2", "c3", "c4"} {
		cm := &models.Comment{ArticleID: a.ID, Author: "x", Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := db.AddComment(ctx, cm); err != nil {
			t.Fatalf("AddComment: %v", err)
		}
	}
	got, err := db.ListComments(ctx, a.ID, 3, 0)
	if err != nil {
		t.Fatalf("ListComments: %v", err)
	}
	if len(got) != 3 || got[0].Text != "c4" || got[2].Text != "c2" {
		t.Fatalf("comments = %+v", got)
	}
	n, _ := db.CountComments(ctx, a.ID)
	if n != 4 {
		t.Errorf("CountComments = %d, want 4", n)
	}
}

func TestCommentOnMissingArticle(t *testing.T) {
	db := testDB(t)
	err := db.AddComment(context.Background(), &models.Comment{ArticleID: 99, Author: "x", Text: "y"})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a := seed(t, db, "Post", "ann", time.Now(), "go")
	_ = db.AddComment(ctx, &models.Comment{ArticleID: a.ID, Author: "x", Text: "y"})

	if err := db.DeleteArticle(ctx, a.ID); err != nil {
		t.Fatalf("DeleteArticle: %v", err)
	}
	var links, comments int
	_ = db.sql.QueryRow(`SELECT count(*) FROM article_tags`).Scan(&links)
	_ = db.sql.QueryRow(`SELECT count(*) FROM comments`).Scan(&comments)
	if links != 0 || comments != 0 {
		t.Errorf("links=%d comments=%d after delete", links, comments)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	boom := errors.New("boom")
	err := db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.UpsertTag(ctx, "temp"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if _, err := db.TagByName(ctx, "temp"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("tag survived rollback: %v", err)
	}
}

func TestSourceChecksums(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	imported := &models.Article{Title: "T", Author: "a", Body: "b", SourcePath: "x.md", SourceChecksum: "abc"}
	if err := db.CreateArticle(ctx, imported); err != nil {
		t.Fatalf("CreateArticle: %v", err)
	}
	seed(t, db, "manual", "ann", time.Now())

	sums, err := db.SourceChecksums(ctx)
	if err != nil {
		t.Fatalf("SourceChecksums: %v", err)
	}
	if len(sums) != 1 || sums["x.md"] != "abc" {
		t.Errorf("sums = %v", sums)
	}
	got, err := db.ArticleBySource(ctx, "x.md")
	if err != nil || got.ID != imported.ID {
		t.Errorf("ArticleBySource = %v, %v", got, err)
	}
}

func TestRebind(t *testing.T) {
	c := conn{postgres: true}
	got := c.rebind(`SELECT ? WHERE a = ? AND b = ?`)
	if got != `SELECT $1 WHERE a = $2 AND b = $3` {
		t.Errorf("rebind = %q", got)
	}
	if plain := (conn{}).rebind(`?`); plain != `?` {
		t.Errorf("sqlite rebind = %q", plain)
	}
}

func titles(as []models.Article) []string {
	out := make([]string, len(as))
	for i, a := range as {
		out[i] = a.Title
	}
	return out
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
