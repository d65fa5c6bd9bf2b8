// Package models defines the domain types for Folio.
package models

import "time"

// Article is a short text post with free-form tags and comments.
type Article struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Tags      []Tag     `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Set only for articles ingested from the import folder.
	SourcePath     string `json:"source_path,omitempty"`
	SourceChecksum string `json:"-"`
}

// TagNames returns the names of the article's tags in stored order.
func (a *Article) TagNames() []string {
	out := make([]string, len(a.Tags))
	for i, t := range a.Tags {
		out[i] = t.Name
	}
	return out
}

// Tag is a label shared by many articles.
type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// TagCount pairs a tag with the number of articles carrying it.
type TagCount struct {
	Tag
	Articles int `json:"articles"`
}

// Comment belongs to exactly one article.
type Comment struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ImportFile is lightweight metadata about a file in the import folder.
type ImportFile struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
