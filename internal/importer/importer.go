// Package importer keeps articles in sync with a folder of Markdown files.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/articles"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/parser"
	"github.com/starford/folio/internal/storage"
)

// Writer applies imported files to the article store.
type Writer interface {
	Import(ctx context.Context, imp articles.ImportedArticle) (*models.Article, error)
	DeleteSource(ctx context.Context, path string) error
}

// Sources reports what has already been imported.
type Sources interface {
	SourceChecksums(ctx context.Context) (map[string]string, error)
	ArticleBySource(ctx context.Context, path string) (*models.Article, error)
}

// Stats summarizes one Sync pass.
type Stats struct {
	Imported  int `json:"imported"`
	Unchanged int `json:"unchanged"`
	Removed   int `json:"removed"`
	Failed    int `json:"failed"`
}

// Importer imports files from a storage.Provider.
type Importer struct {
	files         storage.Provider
	writer        Writer
	sources       Sources
	defaultAuthor string
	logger        *slog.Logger
}

// New creates an importer. defaultAuthor is used for files whose
// frontmatter names no author.
func New(files storage.Provider, writer Writer, sources Sources, defaultAuthor string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		files:         files,
		writer:        writer,
		sources:       sources,
		defaultAuthor: defaultAuthor,
		logger:        logger,
	}
}

// Sync imports new and changed files and removes articles whose file is
// gone. Per-file failures are logged and counted, not returned.
func (im *Importer) Sync(ctx context.Context) (Stats, error) {
	var st Stats
	files, err := im.files.List("")
	if err != nil {
		return st, fmt.Errorf("importer: list: %w", err)
	}
	known, err := im.sources.SourceChecksums(ctx)
	if err != nil {
		return st, fmt.Errorf("importer: checksums: %w", err)
	}

	onDisk := make(map[string]struct{}, len(files))
	for _, f := range files {
		onDisk[f.Path] = struct{}{}
		if known[f.Path] == f.Checksum {
			st.Unchanged++
			continue
		}
		if err := im.importPath(ctx, f.Path); err != nil {
			st.Failed++
			im.logger.Warn("import: file failed", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}
		st.Imported++
	}

	for path := range known {
		if _, ok := onDisk[path]; ok {
			continue
		}
		if err := im.writer.DeleteSource(ctx, path); err != nil {
			st.Failed++
			im.logger.Warn("import: remove failed", slog.String("path", path), slog.String("error", err.Error()))
			continue
		}
		st.Removed++
	}

	im.logger.Info("import: sync done",
		slog.Int("imported", st.Imported),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("removed", st.Removed),
		slog.Int("failed", st.Failed))
	return st, nil
}

// ImportFile imports one file by its folder-relative path, skipping it when
// the content is unchanged since the last import.
func (im *Importer) ImportFile(ctx context.Context, path string) error {
	return im.importPath(ctx, path)
}

func (im *Importer) importPath(ctx context.Context, path string) error {
	data, err := im.files.Read(path)
	if err != nil {
		return err
	}
	sum := storage.Checksum(data)

	existing, err := im.sources.ArticleBySource(ctx, path)
	switch {
	case err == nil && existing.SourceChecksum == sum:
		return nil
	case err != nil && !errors.Is(err, apperr.ErrNotFound):
		return err
	}

	doc, err := parser.Parse(data)
	if err != nil {
		return err
	}
	author := doc.Author
	if author == "" {
		author = im.defaultAuthor
	}
	_, err = im.writer.Import(ctx, articles.ImportedArticle{
		Path:      path,
		Checksum:  sum,
		Title:     doc.Title,
		Author:    author,
		Body:      doc.Body,
		Tags:      doc.TagsField(),
		CreatedAt: doc.Created,
	})
	return err
}
