// Package reference implements the baseline engine on github.com/muesli/kmeans.
//
// muesli/kmeans seeds its centers uniformly in the unit cube, so channels are
// scaled to [0, 1] before partitioning and back to 0–255 afterwards. The
// library draws from the global math/rand source, so results vary between
// runs even with the same engine seed.
package reference

import (
	"context"
	"image"
	"image/color"
	"math"
	"time"

	"github.com/hupe1980/kmeansbench"
	"github.com/hupe1980/kmeansbench/engine"
	"github.com/hupe1980/kmeansbench/internal/kmeans"
	"github.com/muesli/clusters"
	mkmeans "github.com/muesli/kmeans"
)

// Name is the registry name of this engine.
const Name = "Reference"

// Engine delegates clustering to muesli/kmeans.
type Engine struct {
	engine.ResultBuffer
	opts engine.Options
}

var _ engine.Engine = (*Engine)(nil)

// New creates a reference engine. muesli/kmeans manages its own random
// source and iteration bound, so the seed and WithMaxIterations are recorded
// but have no effect.
func New(opts ...engine.Option) *Engine {
	return &Engine{opts: engine.ApplyOptions(opts...)}
}

// Exec implements engine.Engine.
func (e *Engine) Exec(ctx context.Context, img image.Image, k int) error {
	pixels, w, h := kmeans.Stage(img)
	n := w * h
	if err := kmeans.ValidateK(k, n); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	obs := make(clusters.Observations, n)
	for i := range obs {
		p := pixels[i*kmeans.Channels : (i+1)*kmeans.Channels]
		obs[i] = clusters.Coordinates{float64(p[0]) / 255, float64(p[1]) / 255, float64(p[2]) / 255}
	}

	start := time.Now()
	cc, err := mkmeans.New().Partition(obs, k)
	elapsed := time.Since(start)
	if err != nil {
		return kmeansbench.NewEngineError(Name, 0, 0, err)
	}

	e.Store(paint(cc, obs, w, h), elapsed)
	return nil
}

// paint colors every pixel with the center nearest to it.
func paint(cc clusters.Clusters, obs clusters.Observations, w, h int) *image.RGBA {
	palette := make([]color.RGBA, len(cc))
	for j, c := range cc {
		palette[j] = color.RGBA{
			R: unit8(c.Center[0]),
			G: unit8(c.Center[1]),
			B: unit8(c.Center[2]),
			A: 0xff,
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for i, o := range obs {
		c := palette[cc.Nearest(o)]
		p := out.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, c.A
	}
	return out
}

// unit8 maps a [0, 1] channel to 0–255.
func unit8(v float64) uint8 {
	return kmeans.ToUint8(float32(math.Round(v * 255)))
}
