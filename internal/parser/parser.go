// Package parser reads importable articles: Markdown with optional YAML
// frontmatter carrying title, author, tags and creation time.
package parser

import (
	"bytes"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Article is the parsed form of one import file.
type Article struct {
	Title   string
	Author  string
	Tags    []string
	Created time.Time
	Body    string
}

// TagList accepts either a YAML sequence or a single comma-separated string.
type TagList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (t *TagList) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.SequenceNode:
		var items []string
		if err := n.Decode(&items); err != nil {
			return err
		}
		*t = items
	case yaml.ScalarNode:
		*t = strings.Split(n.Value, ",")
	}
	return nil
}

type frontmatter struct {
	Title   string  `yaml:"title"`
	Author  string  `yaml:"author"`
	Tags    TagList `yaml:"tags"`
	Created string  `yaml:"created"`
}

var createdLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// Parse splits data into frontmatter and body. Files without frontmatter, or
// with frontmatter that is not valid YAML, are treated as all body.
func Parse(data []byte) (*Article, error) {
	block, body, ok := splitFrontmatter(data)
	var fm frontmatter
	if ok {
		if err := yaml.Unmarshal(block, &fm); err != nil {
			fm, body = frontmatter{}, string(data)
		}
	}

	a := &Article{
		Title:   strings.TrimSpace(fm.Title),
		Author:  strings.TrimSpace(fm.Author),
		Tags:    cleanTags(fm.Tags),
		Created: parseCreated(fm.Created),
		Body:    body,
	}
	if a.Title == "" {
		a.Title = firstHeading(body)
	}
	return a, nil
}

// TagsField joins the tags into the comma-separated form the tag registry
// accepts.
func (a *Article) TagsField() string {
	return strings.Join(a.Tags, ", ")
}

// splitFrontmatter returns the YAML between a leading pair of --- lines and
// the remaining body.
func splitFrontmatter(data []byte) ([]byte, string, bool) {
	const delim = "---"
	trimmed := bytes.TrimLeft(data, "\r\n")
	if !bytes.HasPrefix(trimmed, []byte(delim)) {
		return nil, string(data), false
	}
	rest := trimmed[len(delim):]
	end := bytes.Index(rest, []byte("\n"+delim))
	if end < 0 {
		return nil, string(data), false
	}
	after := rest[end+1+len(delim):]
	return rest[:end], strings.TrimLeft(string(after), "\r\n"), true
}

func cleanTags(in []string) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func parseCreated(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}
