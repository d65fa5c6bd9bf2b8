// Package mcpserver exposes Folio search and authoring as MCP tools over
// stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/articles"
	"github.com/starford/folio/internal/criteria"
	"github.com/starford/folio/internal/paginate"
	"github.com/starford/folio/internal/search"
)

const importFormatURI = "folio://import-format"

// tagsPerPage bounds list_tags responses.
const tagsPerPage = 50

// Server wraps the MCP server with Folio tools.
type Server struct {
	mcp      *server.MCPServer
	search   *search.Service
	articles *articles.Service
}

// New creates an MCP server with every Folio tool registered.
func New(searcher *search.Service, articleSvc *articles.Service) *Server {
	s := &Server{search: searcher, articles: articleSvc}

	s.mcp = server.NewMCPServer(
		"Folio",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_articles",
		mcp.WithDescription("Search articles. Use either the simple 'search' argument "+
			"(matches title, author, and exact tag name) or the full form "+
			"('text' with in_* scopes, 'author' with article_author/comment_author). "+
			"Results are newest first, five per page."),
		mcp.WithString(criteria.ParamSearch, mcp.Description("Simple search token (max 100 characters)")),
		mcp.WithString(criteria.ParamText, mcp.Description("Full-form text to look for")),
		mcp.WithBoolean(criteria.ParamInTitle, mcp.Description("Search text in titles (default true)")),
		mcp.WithBoolean(criteria.ParamInText, mcp.Description("Search text in bodies (default true)")),
		mcp.WithBoolean(criteria.ParamInTags, mcp.Description("Match text as an exact tag name (default true)")),
		mcp.WithBoolean(criteria.ParamInCommentText, mcp.Description("Search text in comments (default false)")),
		mcp.WithString(criteria.ParamAuthor, mcp.Description("Full-form author to look for")),
		mcp.WithBoolean(criteria.ParamArticleAuthor, mcp.Description("Match article authors (default true)")),
		mcp.WithBoolean(criteria.ParamCommentAuthor, mcp.Description("Match comment authors (default false)")),
		mcp.WithNumber(criteria.ParamTag, mcp.Description("Restrict to this tag id (see list_tags)")),
		mcp.WithString(criteria.ParamPage, mcp.Description("Page number or 'last'")),
	), s.searchArticles)

	s.mcp.AddTool(mcp.NewTool("explain_match",
		mcp.WithDescription("Report whether one article would appear in a search_articles "+
			"result. Accepts the same search arguments (page is ignored)."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString(criteria.ParamSearch, mcp.Description("Simple search token")),
		mcp.WithString(criteria.ParamText, mcp.Description("Full-form text")),
		mcp.WithBoolean(criteria.ParamInTitle, mcp.Description("Search text in titles")),
		mcp.WithBoolean(criteria.ParamInText, mcp.Description("Search text in bodies")),
		mcp.WithBoolean(criteria.ParamInTags, mcp.Description("Match text as an exact tag name")),
		mcp.WithBoolean(criteria.ParamInCommentText, mcp.Description("Search text in comments")),
		mcp.WithString(criteria.ParamAuthor, mcp.Description("Full-form author")),
		mcp.WithBoolean(criteria.ParamArticleAuthor, mcp.Description("Match article authors")),
		mcp.WithBoolean(criteria.ParamCommentAuthor, mcp.Description("Match comment authors")),
		mcp.WithNumber(criteria.ParamTag, mcp.Description("Tag id filter")),
	), s.explainMatch)

	s.mcp.AddTool(mcp.NewTool("read_article",
		mcp.WithDescription("Read one article with its tags and a page of comments."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Article id")),
		mcp.WithString("comment_page", mcp.Description("Comment page number or 'last'")),
	), s.readArticle)

	s.mcp.AddTool(mcp.NewTool("create_article",
		mcp.WithDescription("Create an article. Tags are one comma-separated string "+
			"such as \"go, databases\"; empty entries are rejected."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Title (max 200 characters)")),
		mcp.WithString("author", mcp.Required(), mcp.Description("Author name (max 40 characters)")),
		mcp.WithString("body", mcp.Required(), mcp.Description("Article body")),
		mcp.WithString("tags", mcp.Description("Comma-separated tag names")),
	), s.createArticle)

	s.mcp.AddTool(mcp.NewTool("list_tags",
		mcp.WithDescription("List tags with their ids and article counts, by name, 50 per page."),
		mcp.WithString("page", mcp.Description("Page number or 'last'")),
	), s.listTags)

	s.mcp.AddTool(mcp.NewTool("get_import_contract",
		mcp.WithDescription("Returns the Markdown format accepted by the import folder."),
	), s.getImportContract)

	s.mcp.AddResource(
		mcp.NewResource(importFormatURI, "Import Format Contract",
			mcp.WithResourceDescription("Markdown format for files in the import folder."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readImportFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

var searchParams = []string{
	criteria.ParamSearch, criteria.ParamText,
	criteria.ParamInTitle, criteria.ParamInText, criteria.ParamInTags, criteria.ParamInCommentText,
	criteria.ParamAuthor, criteria.ParamArticleAuthor, criteria.ParamCommentAuthor,
	criteria.ParamTag, criteria.ParamPage,
}

// searchValues turns tool arguments into request parameters. Only supplied
// arguments are set, since presence selects the full form.
func searchValues(args map[string]any) url.Values {
	v := url.Values{}
	for _, name := range searchParams {
		raw, ok := args[name]
		if !ok || raw == nil {
			continue
		}
		switch x := raw.(type) {
		case string:
			v.Set(name, x)
		case bool:
			v.Set(name, strconv.FormatBool(x))
		case float64:
			v.Set(name, strconv.FormatFloat(x, 'f', -1, 64))
		default:
			v.Set(name, fmt.Sprint(x))
		}
	}
	return v
}

func (s *Server) searchArticles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	res, err := s.search.Search(ctx, searchValues(req.GetArguments()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) explainMatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	values := searchValues(req.GetArguments())
	values.Del(criteria.ParamPage)
	ex, err := s.search.Explain(ctx, values, int64(id))
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("article %d not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(ex)
}

func (s *Server) readArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	a, err := s.articles.Get(ctx, int64(id))
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("article %d not found", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	comments, err := s.search.Comments(ctx, a.ID, req.GetString("comment_page", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"article":   a,
		"tags_line": articles.TagsLine(a),
		"comments":  comments,
	})
}

func (s *Server) createArticle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	author, err := req.RequireString("author")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	body, err := req.RequireString("body")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tags := req.GetString("tags", "")

	a, err := s.articles.Create(ctx, articles.ArticleInput{Title: title, Author: author, Body: body, Tags: &tags})
	if verrs, ok := apperr.AsValidation(err); ok {
		out, _ := json.MarshalIndent(map[string]any{"errors": verrs}, "", "  ")
		return mcp.NewToolResultError(string(out)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(a)
}

func (s *Server) listTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := s.articles.ListTags(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page := paginate.Slice(paginate.New(tagsPerPage, 0), tags, paginate.ParseNumber(req.GetString("page", "")))
	return jsonResult(page)
}

func (s *Server) getImportContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(ImportFormatContract), nil
}

func (s *Server) readImportFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      importFormatURI,
			MIMEType: "text/markdown",
			Text:     ImportFormatContract,
		},
	}, nil
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
