// Package demo runs every engine of a registry once on the same image and
// lays the results out side by side with the engine names underneath.
package demo

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/imageio"
	"github.com/hupe1980/kmeansbench/quality"
	"github.com/pkg/browser"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Canvas layout in pixels.
const (
	// Margin separates neighboring panes; half of it pads the outer edges.
	Margin = 10
	// LabelBand is the height of the strip below the panes holding the labels.
	LabelBand = 50
	// LabelBaseline is the distance from the bottom of the panes to the
	// label baseline.
	LabelBaseline = 30
)

// Viewer shows a written image file.
type Viewer interface {
	Show(path string) error
}

// ViewerFunc adapts a function to Viewer.
type ViewerFunc func(path string) error

// Show implements Viewer.
func (f ViewerFunc) Show(path string) error { return f(path) }

// BrowserViewer opens files with the platform's default handler.
var BrowserViewer Viewer = ViewerFunc(browser.OpenFile)

// Pane is one engine's result on the canvas.
type Pane struct {
	Name     string
	Bounds   image.Rectangle
	ExecTime time.Duration
	Quality  quality.Report
}

// Composite is the rendered comparison.
type Composite struct {
	Canvas *image.RGBA
	Panes  []Pane
}

type options struct {
	logger     *kmeansbench.Logger
	viewer     Viewer
	display    bool
	face       font.Face
	labelColor color.Color
}

// Option configures the demo.
type Option func(*options)

// WithLogger sets the logger. Default: NoopLogger.
func WithLogger(l *kmeansbench.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithDisplay enables showing the written file. Default: false.
func WithDisplay(enabled bool) Option {
	return func(o *options) {
		o.display = enabled
	}
}

// WithViewer replaces BrowserViewer.
func WithViewer(v Viewer) Option {
	return func(o *options) {
		o.viewer = v
	}
}

// WithFont sets the label font. Default: basicfont.Face7x13.
func WithFont(face font.Face) Option {
	return func(o *options) {
		o.face = face
	}
}

// WithLabelColor sets the label color. Default: white.
func WithLabelColor(c color.Color) Option {
	return func(o *options) {
		o.labelColor = c
	}
}

func applyOptions(opts []Option) options {
	o := options{
		logger:     kmeansbench.NoopLogger(),
		viewer:     BrowserViewer,
		face:       basicfont.Face7x13,
		labelColor: color.White,
	}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// PaneRect returns the bounds of pane i for w×h results.
func PaneRect(i, w, h int) image.Rectangle {
	x := Margin/2 + i*(w+Margin)
	return image.Rect(x, 0, x+w, h)
}

// CanvasSize returns the canvas size for n panes of w×h results.
func CanvasSize(n, w, h int) image.Point {
	return image.Pt((w+Margin)*n, h+LabelBand)
}

// Compose runs every engine of reg on img with k clusters and renders the
// results. The first engine failure aborts the composition.
func Compose(ctx context.Context, reg *engine.Registry, img image.Image, k int, opts ...Option) (Composite, error) {
	o := applyOptions(opts)

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	size := CanvasSize(reg.Len(), w, h)

	canvas := image.NewRGBA(image.Rectangle{Max: size})
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	comp := Composite{Canvas: canvas}
	i := 0
	for name, e := range reg.All() {
		log := o.logger.WithEngine(name).WithK(k)

		if err := e.Exec(ctx, img, k); err != nil {
			log.ErrorContext(ctx, "exec failed", "error", err)
			return Composite{}, asEngineError(name, err)
		}
		res, err := e.Result()
		if err != nil {
			return Composite{}, kmeansbench.NewEngineError(name, 0, 0, err)
		}
		d, err := e.ExecTime()
		if err != nil {
			return Composite{}, kmeansbench.NewEngineError(name, 0, 0, err)
		}

		rect := PaneRect(i, w, h)
		draw.Draw(canvas, rect, res, res.Bounds().Min, draw.Src)
		drawLabel(canvas, o, name, image.Pt(rect.Min.X+Margin, h+LabelBaseline))

		q, err := quality.Evaluate(img, res)
		if err != nil {
			return Composite{}, kmeansbench.NewEngineError(name, 0, 0, err)
		}
		log.InfoContext(ctx, "engine done",
			"seconds", d.Seconds(),
			"colors", q.Colors,
			"psnr", q.PSNR,
			"delta_e", q.MeanDeltaE,
		)

		comp.Panes = append(comp.Panes, Pane{Name: name, Bounds: rect, ExecTime: d, Quality: q})
		i++
	}
	return comp, nil
}

// Run composes the comparison, writes it to outPath and, when display is
// enabled, opens the written file. Viewer errors are logged, not returned.
func Run(ctx context.Context, reg *engine.Registry, img image.Image, k int, outPath string, opts ...Option) (Composite, error) {
	comp, err := Compose(ctx, reg, img, k, opts...)
	if err != nil {
		return Composite{}, err
	}

	if err := imageio.Save(outPath, comp.Canvas); err != nil {
		return comp, fmt.Errorf("write %s: %w", outPath, err)
	}

	o := applyOptions(opts)
	o.logger.InfoContext(ctx, "composite written", "file", outPath, "panes", len(comp.Panes))

	if o.display {
		if err := o.viewer.Show(outPath); err != nil {
			o.logger.WarnContext(ctx, "display failed", "file", outPath, "error", err)
		}
	}
	return comp, nil
}

func drawLabel(dst draw.Image, o options, text string, baseline image.Point) {
	d := font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(o.labelColor),
		Face: o.face,
		Dot:  fixed.P(baseline.X, baseline.Y),
	}
	d.DrawString(text)
}

func asEngineError(name string, err error) error {
	var ee *kmeansbench.EngineError
	if errors.As(err, &ee) {
		return err
	}
	return kmeansbench.NewEngineError(name, 0, 0, err)
}
