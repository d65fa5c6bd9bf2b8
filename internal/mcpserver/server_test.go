package mcpserver

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/folio/internal/articles"
	"github.com/starford/folio/internal/search"
	"github.com/starford/folio/internal/tagging"
	"github.com/starford/folio/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	db := testutil.TestDB(t)
	searcher, err := search.NewService(db, search.Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return New(searcher, articles.NewService(db, tagging.NewRegistry(db, 0, nil), nil))
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var (
		result *mcp.CallToolResult
		err    error
	)
	switch name {
	case "search_articles":
		result, err = srv.searchArticles(ctx, req)
	case "read_article":
		result, err = srv.readArticle(ctx, req)
	case "explain_match":
		result, err = srv.explainMatch(ctx, req)
	case "create_article":
		result, err = srv.createArticle(ctx, req)
	case "list_tags":
		result, err = srv.listTags(ctx, req)
	case "get_import_contract":
		result, err = srv.getImportContract(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func create(t *testing.T, srv *Server, title, tags string) int64 {
	t.Helper()
	r := callTool(t, srv, "create_article", map[string]any{
		"title": title, "author": "ann", "body": "body of " + title, "tags": tags,
	})
	if r.IsError {
		t.Fatalf("create_article failed: %s", resultText(r))
	}
	var out struct {
		ID int64 `json:"id"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out.ID
}

func TestCreateAndReadArticle(t *testing.T) {
	srv := testServer(t)
	id := create(t, srv, "Hello", "go, web")

	r := callTool(t, srv, "read_article", map[string]any{"id": float64(id)})
	if r.IsError {
		t.Fatalf("read_article failed: %s", resultText(r))
	}
	var out struct {
		Article struct {
			Title string `json:"title"`
		} `json:"article"`
		TagsLine string `json:"tags_line"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Article.Title != "Hello" || out.TagsLine != "go, web" {
		t.Errorf("read = %+v", out)
	}
}

func TestCreateArticleValidation(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "create_article", map[string]any{
		"title": "T", "author": "ann", "body": "b", "tags": "a,,b",
	})
	if !r.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(resultText(r), "tag_too_short") {
		t.Errorf("result = %q", resultText(r))
	}
}

func TestReadArticleMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_article", map[string]any{"id": float64(404)})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
}

func TestSearchArticles(t *testing.T) {
	srv := testServer(t)
	create(t, srv, "Gophers unite", "")
	create(t, srv, "Unrelated", "gophers")
	create(t, srv, "Nothing", "misc")

	r := callTool(t, srv, "search_articles", map[string]any{"search": "gophers"})
	var res struct {
		Errors []any `json:"errors"`
		Page   struct {
			Count int `json:"count"`
		} `json:"page"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(res.Errors) != 0 || res.Page.Count != 2 {
		t.Errorf("search = %+v", res)
	}

	r = callTool(t, srv, "search_articles", map[string]any{"text": "gophers", "in_title": false, "in_text": false, "in_tags": false})
	if !strings.Contains(resultText(r), "text_search_criteria_empty") {
		t.Errorf("expected scope error, got %s", resultText(r))
	}
}

func TestSearchValues(t *testing.T) {
	v := searchValues(map[string]any{
		"text": "go", "in_title": false, "tag": float64(3), "ignored": "x",
	})
	if v.Get("text") != "go" || v.Get("in_title") != "false" || v.Get("tag") != "3" {
		t.Errorf("values = %v", v)
	}
	if _, ok := v["ignored"]; ok {
		t.Error("unknown argument should be dropped")
	}
	if _, ok := v["in_text"]; ok {
		t.Error("absent flags must stay absent")
	}
}

func TestListTags(t *testing.T) {
	srv := testServer(t)
	create(t, srv, "A", "go")
	r := callTool(t, srv, "list_tags", map[string]any{})
	if !strings.Contains(resultText(r), `"name": "go"`) {
		t.Errorf("list_tags = %s", resultText(r))
	}
}

func TestListTagsPaged(t *testing.T) {
	srv := testServer(t)
	var names []string
	for i := 0; i < tagsPerPage+2; i++ {
		names = append(names, "t"+strconv.Itoa(i))
		if len(names) == 10 || i == tagsPerPage+1 {
			create(t, srv, "Many", strings.Join(names, ","))
			names = names[:0]
		}
	}

	var page struct {
		NumPages int `json:"num_pages"`
		Items    []struct {
			Name string `json:"name"`
		} `json:"items"`
	}
	r := callTool(t, srv, "list_tags", map[string]any{"page": "last"})
	if err := json.Unmarshal([]byte(resultText(r)), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.NumPages != 2 || len(page.Items) != 2 {
		t.Errorf("last page = %+v", page)
	}
}

func TestExplainMatch(t *testing.T) {
	srv := testServer(t)
	id := create(t, srv, "Gophers unite", "")

	var ex struct {
		Matches bool `json:"matches"`
	}
	r := callTool(t, srv, "explain_match", map[string]any{"id": float64(id), "search": "gopher", "page": "9"})
	if err := json.Unmarshal([]byte(resultText(r)), &ex); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ex.Matches {
		t.Error("expected match")
	}

	r = callTool(t, srv, "explain_match", map[string]any{"id": float64(id), "search": "badger"})
	_ = json.Unmarshal([]byte(resultText(r)), &ex)
	if ex.Matches {
		t.Error("expected no match")
	}

	r = callTool(t, srv, "explain_match", map[string]any{"id": float64(404)})
	if !r.IsError {
		t.Error("expected error for missing article")
	}
}

func TestImportContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_import_contract", nil)
	if resultText(r) != ImportFormatContract {
		t.Error("contract text mismatch")
	}
	contents, err := srv.readImportFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil || len(contents) != 1 {
		t.Fatalf("resource = %v, %v", contents, err)
	}
}
