package bridge

import (
	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region message-types
// Inbound message types sent by a browser surface.
const (
	TypeHello      = "hello"
	TypeFrame      = "frame"
	TypeVisibility = "visibility"
	TypeResize     = "resize"
	TypeSetLevel   = "set_level"
)

// Outbound message types.
const (
	TypeSettings = "settings"
	TypeError    = "error"
)

// #endregion message-types

// #region hello
// Battery is the browser battery reading, absent when the API is missing.
type Battery struct {
	Level    float64 `json:"level"`
	Charging bool    `json:"charging"`
}

// Hello carries the sensor readings the browser collected on load.
type Hello struct {
	Touch         bool     `json:"touch"`
	UserAgent     string   `json:"user_agent"`
	Width         int      `json:"width"`
	Battery       *Battery `json:"battery,omitempty"`
	SaveData      bool     `json:"save_data"`
	ReducedMotion bool     `json:"reduced_motion"`
	HasContext    bool     `json:"has_context"`
	Renderer      string   `json:"renderer,omitempty"` // empty when the debug extension is missing
	ShaderOK      bool     `json:"shader_ok"`
	Hidden        bool     `json:"hidden"`
}

// #endregion hello

// #region envelopes
// Inbound is the envelope of every browser message. Only the fields of the
// named type are read.
type Inbound struct {
	Type      string  `json:"type"`
	Hello     *Hello  `json:"hello,omitempty"`
	Timestamp float64 `json:"ts,omitempty"` // performance.now() in ms
	Hidden    bool    `json:"hidden,omitempty"`
	Width     int     `json:"width,omitempty"`
	Level     string  `json:"level,omitempty"`
}

// Outbound is the envelope of every message pushed to the browser.
type Outbound struct {
	Type     string             `json:"type"`
	Session  string             `json:"session,omitempty"`
	Level    quality.Level      `json:"level,omitempty"`
	Settings *quality.Settings  `json:"settings,omitempty"`
	Trigger  controller.Trigger `json:"trigger,omitempty"`
	Error    string             `json:"error,omitempty"`
}

func settingsMessage(session string, level quality.Level, trigger controller.Trigger) Outbound {
	s := quality.SettingsFor(level)
	return Outbound{Type: TypeSettings, Session: session, Level: level, Settings: &s, Trigger: trigger}
}

func errorMessage(err error) Outbound {
	return Outbound{Type: TypeError, Error: err.Error()}
}

// #endregion envelopes
