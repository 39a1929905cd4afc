package ports

import (
	"github.com/tejashwikalptaru/offtune/internal/domain"
)

// FolderRoot resolves download destinations under the user-chosen root folder.
type FolderRoot interface {
	// Validate parses uri and checks it is an existing, readable, writable directory.
	// Returns the local directory path, or domain.ErrRootInvalid wrapped with detail.
	Validate(uri string) (string, error)

	// Resolve returns the destination directory for content under root, creating
	// the grouping subfolders on demand. Existing folders with the exact name are reused.
	Resolve(root string, grouping domain.FolderGrouping, content domain.AudioContent) (string, error)

	// Exists reports whether a file exists at path.
	Exists(path string) bool
}

// TagReader reads embedded tags from a downloaded audio file.
type TagReader interface {
	// ReadTags returns the tags of the file at path.
	ReadTags(path string) (*domain.FileTags, error)
}
