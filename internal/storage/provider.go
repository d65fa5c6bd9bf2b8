// Package storage gives read-only access to the import folder.
package storage

import "github.com/starford/folio/internal/models"

// Provider lists and reads importable Markdown files. Paths are relative to
// the folder root and use forward slashes.
type Provider interface {
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.ImportFile, error)
	// Read returns the raw bytes of the file at path.
	Read(path string) ([]byte, error)
	// Root returns the absolute folder path, for watching.
	Root() string
}
