package surface

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"

	"github.com/strandline/quality-controller/internal/controller"
	"github.com/strandline/quality-controller/internal/quality"
)

// #region glyphs
const (
	glyphFill      = '█'
	glyphWire      = '*'
	glyphShadow    = '░'
	glyphParticle  = '.'
	glyphVignette  = '▒'
	ridgeAmplitude = 0.25 // fraction of scene height
)

// ridgeEighths are the partial-block glyphs an antialiased ridge top uses.
var ridgeEighths = []rune("▁▂▃▄▅▆▇█")

var (
	styleGround   = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	styleShadow   = tcell.StyleDefault.Foreground(tcell.ColorDarkGray)
	styleParticle = tcell.StyleDefault.Foreground(tcell.ColorYellow)
	styleVignette = tcell.StyleDefault.Foreground(tcell.ColorDarkSlateGray)
	styleStatus   = tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorWhite)
)

// #endregion glyphs

// #region renderer
type particle struct {
	x, y   float64 // fractions of the sky area
	vx, vy float64 // fractions per second
}

// Renderer draws a small terrain scene whose cost follows the applied
// settings bundle: particle pool size, wireframe, shadows, ridge detail,
// antialiased ridge tops and a post-processing vignette.
type Renderer struct {
	screen tcell.Screen

	mu        sync.Mutex
	level     quality.Level
	settings  quality.Settings
	particles []particle
	rng       *rand.Rand
	phase     float64
}

// NewRenderer creates a renderer on screen. It starts on the minimal bundle
// until Apply is called.
func NewRenderer(screen tcell.Screen, seed int64) *Renderer {
	return &Renderer{
		screen:   screen,
		level:    quality.LevelMinimal,
		settings: quality.SettingsFor(quality.LevelMinimal),
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// Apply switches to a settings bundle as given. The particle pool is
// resized to exactly ParticleCount, or emptied when particles are off.
func (r *Renderer) Apply(level quality.Level, s quality.Settings) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.level = level
	r.settings = s

	n := s.ParticleCount
	if !s.Particles {
		n = 0
	}
	switch {
	case n < len(r.particles):
		r.particles = r.particles[:n]
	case n > len(r.particles):
		for len(r.particles) < n {
			r.particles = append(r.particles, particle{
				x:  r.rng.Float64(),
				y:  r.rng.Float64(),
				vx: (r.rng.Float64() - 0.5) * 0.2,
				vy: r.rng.Float64()*0.3 + 0.05,
			})
		}
	}
}

func (r *Renderer) Level() quality.Level {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.level
}

func (r *Renderer) Settings() quality.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// Particles returns the live pool size.
func (r *Renderer) Particles() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.particles)
}

// Step advances the ridge scroll and the particles by dt.
func (r *Renderer) Step(dt time.Duration) {
	sec := dt.Seconds()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase += sec * 0.8
	for i := range r.particles {
		p := &r.particles[i]
		p.x = wrap(p.x + p.vx*sec)
		p.y = wrap(p.y + p.vy*sec)
	}
}

func wrap(v float64) float64 {
	v = math.Mod(v, 1)
	if v < 0 {
		v++
	}
	if v >= 1 {
		return 0
	}
	return v
}

// #endregion renderer

// #region draw
// Draw renders one frame with snap on the status line.
func (r *Renderer) Draw(snap controller.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.screen.Clear()
	w, h := r.screen.Size()
	if w <= 0 || h <= 1 {
		r.screen.Show()
		return
	}
	scene := h - 1

	r.drawGround(w, scene)
	r.drawParticles(w, scene)
	if r.settings.PostProcessing {
		drawVignette(r.screen, w, scene)
	}
	drawText(r.screen, 0, scene, w, statusLine(snap), styleStatus)
	r.screen.Show()
}

// ridge returns the top of the ground at column x as a fractional row.
func (r *Renderer) ridge(x, scene int) float64 {
	base := float64(scene) * 0.65
	return base + math.Sin(float64(x)*0.15+r.phase)*float64(scene)*ridgeAmplitude
}

func (r *Renderer) drawGround(w, scene int) {
	step := detailStep(r.settings.Detail)
	for x := 0; x < w; x++ {
		top := r.ridge(x-x%step, scene)
		row := int(top)
		if row < 0 {
			row = 0
		}
		if row >= scene {
			continue
		}

		if r.settings.Wireframe {
			r.screen.SetContent(x, row, glyphWire, nil, styleGround)
			continue
		}

		glyph := glyphFill
		if r.settings.Antialias {
			frac := 1 - (top - float64(row))
			glyph = ridgeEighths[int(frac*float64(len(ridgeEighths)-1))]
		}
		r.screen.SetContent(x, row, glyph, nil, styleGround)
		for y := row + 1; y < scene; y++ {
			r.screen.SetContent(x, y, glyphFill, nil, styleGround)
		}
		if r.settings.Shadows && row > 0 && x+1 < w {
			r.screen.SetContent(x+1, row-1, glyphShadow, nil, styleShadow)
		}
	}
}

func (r *Renderer) drawParticles(w, scene int) {
	style := styleParticle
	if r.settings.PostProcessing {
		style = style.Bold(true)
	}
	for _, p := range r.particles {
		x := int(p.x * float64(w))
		y := int(p.y * float64(scene))
		if x >= w || y >= scene || float64(y) >= r.ridge(x, scene) {
			continue
		}
		r.screen.SetContent(x, y, glyphParticle, nil, style)
	}
}

func detailStep(d quality.Detail) int {
	switch d {
	case quality.DetailHigh:
		return 1
	case quality.DetailMedium:
		return 2
	default:
		return 4
	}
}

func drawVignette(s tcell.Screen, w, scene int) {
	for x := 0; x < w; x++ {
		s.SetContent(x, 0, glyphVignette, nil, styleVignette)
	}
	for y := 0; y < scene; y++ {
		s.SetContent(0, y, glyphVignette, nil, styleVignette)
		s.SetContent(w-1, y, glyphVignette, nil, styleVignette)
	}
}

func drawText(s tcell.Screen, x, y, w int, text string, style tcell.Style) {
	col := x
	for _, ch := range text {
		if col >= w {
			return
		}
		s.SetContent(col, y, ch, nil, style)
		col++
	}
	for ; col < w; col++ {
		s.SetContent(col, y, ' ', nil, style)
	}
}

func statusLine(snap controller.Snapshot) string {
	line := fmt.Sprintf(" quality=%s fps=%d frame=%.2fms mem=%dMB %s",
		snap.Level, snap.Metrics.FPS, snap.Metrics.FrameTime, snap.Metrics.MemoryMB, snap.Rating)
	if snap.Adapting {
		line += " adapting->" + string(snap.Target)
	}
	return line + "  [1-4] level [0] auto [h] hide [+/-] load [q] quit"
}

// #endregion draw
