package history

import "github.com/strandline/quality-controller/internal/controller"

// #region session-sink
// SessionSink records a controller's transitions into one session.
type SessionSink struct {
	store     *Store
	sessionID string
}

// NewSessionSink binds a store to a session.
func NewSessionSink(store *Store, sessionID string) *SessionSink {
	return &SessionSink{store: store, sessionID: sessionID}
}

// Record implements controller.Sink.
func (s *SessionSink) Record(t controller.Transition) error {
	_, err := s.store.Record(s.sessionID, t)
	return err
}

// SessionID returns the bound session.
func (s *SessionSink) SessionID() string { return s.sessionID }

// #endregion session-sink
