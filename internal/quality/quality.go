package quality

import (
	"fmt"
	"strings"
)

// #region bundles

// bundles is static configuration; only the selected level changes at runtime.
var bundles = map[Level]Settings{
	LevelHigh: {
		Shadows:        true,
		Particles:      true,
		PostProcessing: true,
		Wireframe:      false,
		Antialias:      true,
		PixelRatio:     PixelRatio{Min: 1, Max: 2},
		ParticleCount:  1000,
		Detail:         DetailHigh,
	},
	LevelMedium: {
		Shadows:        true,
		Particles:      true,
		PostProcessing: false,
		Wireframe:      false,
		Antialias:      true,
		PixelRatio:     PixelRatio{Min: 1, Max: 1.5},
		ParticleCount:  500,
		Detail:         DetailMedium,
	},
	LevelLow: {
		Shadows:        false,
		Particles:      true,
		PostProcessing: false,
		Wireframe:      false,
		Antialias:      false,
		PixelRatio:     PixelRatio{Min: 1, Max: 1},
		ParticleCount:  200,
		Detail:         DetailLow,
	},
	LevelMinimal: {
		Shadows:        false,
		Particles:      false,
		PostProcessing: false,
		Wireframe:      true,
		Antialias:      false,
		PixelRatio:     PixelRatio{Min: 0.5, Max: 1},
		ParticleCount:  0,
		Detail:         DetailLow,
	},
}

// SettingsFor returns the bundle for l. Unknown levels get the minimal bundle.
func SettingsFor(l Level) Settings {
	if s, ok := bundles[l]; ok {
		return s
	}
	return bundles[LevelMinimal]
}

// #endregion bundles

// #region ordering

// Rank orders levels: minimal=0 ... high=3. Unknown levels rank -1.
func (l Level) Rank() int {
	for i, v := range Levels {
		if v == l {
			return i
		}
	}
	return -1
}

// Valid reports whether l is one of the four levels.
func (l Level) Valid() bool {
	return l.Rank() >= 0
}

// Up returns the next level up, or l itself at the top.
func (l Level) Up() Level {
	r := l.Rank()
	if r < 0 || r == len(Levels)-1 {
		return l
	}
	return Levels[r+1]
}

// Down returns the next level down, or l itself at the bottom.
func (l Level) Down() Level {
	r := l.Rank()
	if r <= 0 {
		return l
	}
	return Levels[r-1]
}

func (l Level) String() string {
	return string(l)
}

// #endregion ordering

// #region parse

// Parse converts text into a Level, case-insensitively.
func Parse(s string) (Level, error) {
	l := Level(strings.ToLower(strings.TrimSpace(s)))
	if !l.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
	}
	return l, nil
}

// #endregion parse
