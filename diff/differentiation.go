package diff

import (
	"fmt"
	"path/filepath"

	"github.com/lumenray/lumenray/imageio"
	"github.com/lumenray/lumenray/vecmath"
)

// Differentiation ties the catalog, materialized buffers and
// optimizer together, matching the `Differentiation` class's public
// surface: `parameter`/`materialize`/`accumulate`/`apply_gradients`/
// `step`/`dump`.
type Differentiation struct {
	Catalog   *Catalog
	Buffers   *Buffers
	Optimizer Optimizer
}

// New creates a Differentiation engine around an empty catalog. Call
// Catalog.Parameter* to register parameters, then Materialize before
// any Accumulate/Step call.
func New(collisionBlockSize int, optimizer Optimizer) *Differentiation {
	return &Differentiation{
		Catalog:   NewCatalog(collisionBlockSize),
		Optimizer: optimizer,
	}
}

// Materialize allocates buffers from the catalog's registered
// parameters and initializes the optimizer's per-parameter state,
// matching `Differentiation::materialize`.
func (d *Differentiation) Materialize() {
	d.Buffers = Materialize(d.Catalog)
	d.Optimizer.Initialize(len(d.Buffers.ParamBuffer))
}

// AccumulateConstant routes a backward-pass gradient into a constant
// parameter's collision-avoided slots.
func (d *Differentiation) AccumulateConstant(h Handle, grad [4]float64, slotSeed uint32) {
	d.Buffers.AccumulateConstant(h, grad, slotSeed, d.Catalog.CollisionBlockSize)
}

// AccumulateTextured routes a backward-pass gradient into a textured
// parameter's texel.
func (d *Differentiation) AccumulateTextured(h TexturedHandle, uv vecmath.Vec2, grad []float64) {
	d.Buffers.AccumulateTextured(h, uv, grad)
}

// ApplyGradients reduces the raw gradient buffers, applies one
// optimizer step, and writes updated textured parameters back into
// their source images, matching `Differentiation::apply_gradients`.
func (d *Differentiation) ApplyGradients() {
	d.Buffers.ReduceConstants(d.Catalog)
	d.Buffers.ReduceTextured(d.Catalog)
	d.Optimizer.Step(d.Buffers.ParamBuffer, d.Buffers.ParamGradBuffer, d.Buffers.ParamRangeBuffer)
	d.writeBackTextures()
}

func (d *Differentiation) writeBackTextures() {
	for _, p := range d.Catalog.texturedParams {
		length := p.Image.Width * p.Image.Height * p.Channels
		copy(p.Image.Data, d.Buffers.ParamBuffer[p.ParamOffset:p.ParamOffset+length])
	}
}

// Step runs ApplyGradients then clears the raw accumulators for the
// next iteration, matching `Differentiation::step`.
func (d *Differentiation) Step() {
	d.ApplyGradients()
	d.Buffers.ClearGradients()
}

// Decode reads back a constant parameter's current value.
func (d *Differentiation) Decode(h Handle) [4]float64 {
	return d.Buffers.Decode(h)
}

// Dump writes every textured parameter's current image to folder as
// an indexed EXR file, matching `Differentiation::dump`.
func (d *Differentiation) Dump(folder string) error {
	for i, p := range d.Catalog.texturedParams {
		path := filepath.Join(folder, fmt.Sprintf("dump-%05d.exr", i))
		if err := imageio.Save(path, p.Image); err != nil {
			return fmt.Errorf("diff: dump parameter %d: %w", i, err)
		}
	}
	return nil
}
