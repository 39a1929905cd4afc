// Package metadata reads embedded tags back from downloaded audio files.
package metadata

import (
	"fmt"
	"os"
	"strings"

	"github.com/dhowden/tag"

	"github.com/tejashwikalptaru/offtune/internal/domain"
	"github.com/tejashwikalptaru/offtune/internal/ports"
)

// TagReader implements ports.TagReader with dhowden/tag.
type TagReader struct{}

// NewTagReader creates a tag reader.
func NewTagReader() *TagReader {
	return &TagReader{}
}

// ReadTags returns the tags of the file at path.
// Files without a recognised tag block return tag.ErrNoTagsFound wrapped.
func (r *TagReader) ReadTags(path string) (*domain.FileTags, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	m, err := tag.ReadFrom(file)
	if err != nil {
		return nil, fmt.Errorf("read tags of %s: %w", path, err)
	}

	track, _ := m.Track()
	tags := &domain.FileTags{
		Title:  strings.TrimSpace(m.Title()),
		Artist: strings.TrimSpace(m.Artist()),
		Album:  strings.TrimSpace(m.Album()),
		Genre:  strings.TrimSpace(m.Genre()),
		Year:   m.Year(),
		Track:  track,
	}
	if m.Format() != tag.UnknownFormat {
		tags.Format = string(m.Format())
	}
	return tags, nil
}

var _ ports.TagReader = (*TagReader)(nil)
