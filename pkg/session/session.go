// Package session persists per-user state: which algorithm a session
// uses, its trained model blob, and the last-used form settings.
package session

import "github.com/driftline/driftline/pkg/algorithm"

// Session is one user's stored state. Sessions are identified by an
// opaque cookie token and created lazily on first contact.
type Session struct {
	// ID is the opaque session token.
	ID string

	// Name is an optional user-facing label.
	Name string

	// Spec records the selected algorithm and its training parameters.
	// Nil means no algorithm has been chosen yet.
	Spec *algorithm.Spec

	// Model is the serialized trained model, nil before the first train.
	Model []byte

	// UISettings are the last-submitted form values, keyed by field name.
	UISettings map[string]string

	// Settings are this session's provider model overrides.
	Settings algorithm.ProviderSettings
}

// HasModel reports whether this session has a trained model to restore.
func (s *Session) HasModel() bool {
	return s != nil && s.Spec != nil && len(s.Model) > 0
}
