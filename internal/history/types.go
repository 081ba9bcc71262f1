package history

import (
	"time"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/device"
	"github.com/strandline/quality-controller/internal/perf"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region session
// Session is one mounted rendering surface.
type Session struct {
	ID        string
	Profile   device.DeviceProfile
	StartedAt time.Time
	EndedAt   time.Time // zero while open
}

// Open reports whether the session has not been closed.
func (s Session) Open() bool { return s.EndedAt.IsZero() }

// #endregion session

// #region transition-record
// TransitionRecord is one committed tier change, chained to the previous
// change of the same session through ParentID.
type TransitionRecord struct {
	VersionID string
	SessionID string
	ParentID  string // empty for the first change of a session
	From      quality.Level
	To        quality.Level
	Trigger   controller.Trigger
	Metrics   perf.Metrics
	Reason    string
	CreatedAt time.Time
}

// #endregion transition-record
