package memory

import (
	"log/slog"
	"slices"
	"sync"

	"fyne.io/fyne/v2"

	"github.com/tejashwikalptaru/offtune/internal/ports"
)

const keyGrants = "grants.folders"

// GrantStore implements ports.PermissionStore by remembering granted folder URIs
// in Fyne preferences, so grants survive restarts.
type GrantStore struct {
	prefs  fyne.Preferences
	logger *slog.Logger
	mu     sync.Mutex
}

// NewGrantStore creates a grant store.
func NewGrantStore(prefs fyne.Preferences, logger *slog.Logger) *GrantStore {
	return &GrantStore{prefs: prefs, logger: logger}
}

// Take records a grant for uri.
func (s *GrantStore) Take(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	granted := s.prefs.StringList(keyGrants)
	if slices.Contains(granted, uri) {
		return nil
	}
	s.prefs.SetStringList(keyGrants, append(granted, uri))
	s.logger.Info("folder grant taken", slog.String("uri", uri))
	return nil
}

// Release drops the grant for uri.
func (s *GrantStore) Release(uri string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	granted := s.prefs.StringList(keyGrants)
	i := slices.Index(granted, uri)
	if i < 0 {
		return nil
	}
	s.prefs.SetStringList(keyGrants, slices.Delete(granted, i, i+1))
	s.logger.Info("folder grant released", slog.String("uri", uri))
	return nil
}

// Granted lists the URIs currently held.
func (s *GrantStore) Granted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.prefs.StringList(keyGrants))
}

var _ ports.PermissionStore = (*GrantStore)(nil)
