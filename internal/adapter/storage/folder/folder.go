// Package folder resolves download destinations under the user-chosen root folder.
package folder

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2/storage"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

const (
	// DirPermissions is used for every folder created under the root
	DirPermissions = 0o755

	unknownArtist = "Unknown Artist"
	unknownAlbum  = "Unknown Album"
)

// Root implements ports.FolderRoot on the local filesystem.
// Root URIs are fyne storage URIs; only the file scheme is accepted.
type Root struct {
	logger *slog.Logger
}

// NewRoot creates a root folder adapter.
func NewRoot(logger *slog.Logger) *Root {
	return &Root{logger: logger.With(slog.String("component", "folder-root"))}
}

// Validate parses uri and checks it names an existing, readable, writable directory.
// Bare filesystem paths are accepted and treated as file URIs.
func (r *Root) Validate(uri string) (string, error) {
	if strings.TrimSpace(uri) == "" {
		return "", domain.ErrRootNotSet
	}

	dir, err := LocalPath(uri)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRootInvalid, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", domain.ErrRootInvalid, dir)
	}
	if _, err := os.ReadDir(dir); err != nil {
		return "", fmt.Errorf("%w: not readable: %v", domain.ErrRootInvalid, err)
	}

	scratch, err := os.CreateTemp(dir, ".offtune-write-*")
	if err != nil {
		return "", fmt.Errorf("%w: not writable: %v", domain.ErrRootInvalid, err)
	}
	name := scratch.Name()
	_ = scratch.Close()
	_ = os.Remove(name)

	return dir, nil
}

// LocalPath converts a root URI (or bare path) to a local directory path.
func LocalPath(uri string) (string, error) {
	if !strings.Contains(uri, "://") {
		abs, err := filepath.Abs(uri)
		if err != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrRootInvalid, err)
		}
		return storage.NewFileURI(abs).Path(), nil
	}

	parsed, err := storage.ParseURI(uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRootInvalid, err)
	}
	if parsed.Scheme() != "file" {
		return "", fmt.Errorf("%w: unsupported scheme %q", domain.ErrRootInvalid, parsed.Scheme())
	}
	return filepath.FromSlash(parsed.Path()), nil
}

// ToURI returns the canonical file URI for a local path or URI.
func ToURI(pathOrURI string) (string, error) {
	dir, err := LocalPath(pathOrURI)
	if err != nil {
		return "", err
	}
	return storage.NewFileURI(dir).String(), nil
}

// Resolve returns the destination directory for content, creating grouping folders on demand.
// An existing folder with the exact name is reused.
func (r *Root) Resolve(root string, grouping domain.FolderGrouping, content domain.AudioContent) (string, error) {
	if root == "" {
		return "", domain.ErrRootNotSet
	}

	if _, err := os.Stat(root); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrRootInvalid, err)
	}

	dir := root
	switch grouping {
	case domain.GroupingArtist:
		dir = filepath.Join(root, SanitizeName(content.Artist, unknownArtist))
	case domain.GroupingArtistAlbum:
		dir = filepath.Join(root,
			SanitizeName(content.Artist, unknownArtist),
			SanitizeName(content.Album, unknownAlbum))
	}

	if dir == root {
		return dir, nil
	}

	if err := os.MkdirAll(dir, DirPermissions); err != nil {
		if errors.Is(err, os.ErrNotExist) || errors.Is(err, os.ErrPermission) {
			return "", fmt.Errorf("%w: %v", domain.ErrRootInvalid, err)
		}
		return "", fmt.Errorf("create %s: %w", dir, err)
	}
	r.logger.Debug("destination resolved", slog.String("dir", dir), slog.String("grouping", string(grouping)))
	return dir, nil
}

// Exists reports whether a regular file exists at path.
func (r *Root) Exists(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

var nameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	"\x00", "",
)

// SanitizeName makes s safe as a single path element. Empty results become fallback.
func SanitizeName(s, fallback string) string {
	clean := nameReplacer.Replace(s)
	clean = strings.TrimSpace(clean)
	clean = strings.Trim(clean, ". ")
	if clean == "" {
		return fallback
	}
	return clean
}

var _ ports.FolderRoot = (*Root)(nil)
