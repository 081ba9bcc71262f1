package quality

import "errors"

// #region level

// Level is one of four discrete rendering-fidelity presets.
type Level string

const (
	LevelHigh    Level = "high"
	LevelMedium  Level = "medium"
	LevelLow     Level = "low"
	LevelMinimal Level = "minimal"
)

// Levels lists every level from lowest to highest.
var Levels = []Level{LevelMinimal, LevelLow, LevelMedium, LevelHigh}

// ErrUnknownLevel is returned when text does not name a Level.
var ErrUnknownLevel = errors.New("unknown quality level")

// #endregion level

// #region detail

// Detail is the coarse geometry detail label carried by a settings bundle.
type Detail string

const (
	DetailHigh   Detail = "high"
	DetailMedium Detail = "medium"
	DetailLow    Detail = "low"
)

// #endregion detail

// #region settings

// PixelRatio is the device-pixel-ratio clamp range applied by the surface.
type PixelRatio struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Settings is the immutable bundle of rendering switches for one Level.
type Settings struct {
	Shadows        bool       `json:"shadows"`
	Particles      bool       `json:"particles"`
	PostProcessing bool       `json:"post_processing"`
	Wireframe      bool       `json:"wireframe"`
	Antialias      bool       `json:"antialias"`
	PixelRatio     PixelRatio `json:"pixel_ratio"`
	ParticleCount  int        `json:"particle_count"`
	Detail         Detail     `json:"detail"`
}

// #endregion settings
