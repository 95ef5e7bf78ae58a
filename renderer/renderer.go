// Package renderer drives a pool of tracers through progressive passes over
// a frame and tone-maps the accumulated samples.
package renderer

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/achilleasa/sahtrace/integrator"
	"github.com/achilleasa/sahtrace/log"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/achilleasa/sahtrace/tracer"
)

type Renderer interface {
	// Render frame. Rendering stops between passes if ctx is cancelled.
	Render(ctx context.Context) (*image.RGBA, error)

	// Shutdown renderer and any attached tracer.
	Close()

	// Get render statistics.
	Stats() FrameStats
}

type defaultRenderer struct {
	logger log.Logger

	options   Options
	scheduler tracer.BlockScheduler

	// The attached tracers and their row assignment for the last pass.
	tracers          []tracer.Tracer
	blockAssignments []uint32

	// RGB sums of all samples traced so far.
	accumBuffer []float32

	stats FrameStats
}

// Create a renderer for the scene using the supplied tracers, block
// scheduler and shader. The renderer takes ownership of the tracers and
// closes them when it is closed.
func NewDefault(sc *scene.Scene, tracers []tracer.Tracer, scheduler tracer.BlockScheduler, shader integrator.Shader, opts Options) (Renderer, error) {
	switch {
	case sc == nil || sc.Mesh == nil:
		return nil, ErrSceneNotDefined
	case sc.Camera == nil:
		return nil, ErrCameraNotDefined
	case sc.Accel() == nil:
		return nil, ErrAccelNotDefined
	case len(tracers) == 0:
		return nil, ErrNoTracers
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	r := &defaultRenderer{
		logger:      log.New("renderer"),
		options:     opts,
		scheduler:   scheduler,
		accumBuffer: make([]float32, opts.FrameW*opts.FrameH*3),
	}

	// Each tracer gets its own camera copy
	camera := *sc.Camera
	camera.Setup(opts.FrameW, opts.FrameH)
	for _, tr := range tracers {
		if err := tr.Init(opts.FrameW, opts.FrameH, r.accumBuffer); err != nil {
			r.Close()
			return nil, fmt.Errorf("renderer: could not init tracer %s: %w", tr.Id(), err)
		}
		r.tracers = append(r.tracers, tr)

		tracerCamera := camera
		tr.Update(tracer.UpdateScene, sc)
		tr.Update(tracer.UpdateCamera, &tracerCamera)
		tr.Update(tracer.UpdateShader, shader)
	}

	return r, nil
}

// Shutdown renderer and any attached tracer.
func (r *defaultRenderer) Close() {
	for _, tr := range r.tracers {
		tr.Close()
	}
	r.tracers = nil
}

// Get render statistics.
func (r *defaultRenderer) Stats() FrameStats {
	return r.stats
}

// Render all passes and return the tone-mapped frame. If ctx is cancelled,
// the pass in progress is completed and ErrInterrupted is returned.
func (r *defaultRenderer) Render(ctx context.Context) (*image.RGBA, error) {
	if len(r.tracers) == 0 {
		return nil, ErrNoTracers
	}

	start := time.Now()
	for i := range r.accumBuffer {
		r.accumBuffer[i] = 0
	}
	r.stats = FrameStats{}

	for pass := uint32(0); pass < r.options.NumPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w after %d of %d passes: %v", ErrInterrupted, pass, r.options.NumPasses, err)
		}

		if err := r.renderPass(pass); err != nil {
			return nil, err
		}
		r.stats.Passes++
		r.stats.SamplesPerPixel += r.options.SamplesPerPixel
		r.logger.Infof("completed pass %d/%d", pass+1, r.options.NumPasses)
	}

	r.stats.RenderTime = time.Since(start)
	r.logger.Noticef("rendered %d passes in %d ms", r.stats.Passes, r.stats.RenderTime.Nanoseconds()/1e6)

	return Tonemap(r.accumBuffer, r.options.FrameW, r.options.FrameH, r.stats.SamplesPerPixel, r.options.Exposure), nil
}

// Split the frame between the tracers and wait for all blocks to complete.
func (r *defaultRenderer) renderPass(pass uint32) error {
	r.blockAssignments = r.scheduler.Schedule(r.tracers, r.options.FrameH)

	doneChan := make(chan uint32, len(r.tracers))
	errChan := make(chan error, len(r.tracers))

	var blockY uint32
	pending := 0
	for idx, tr := range r.tracers {
		blockH := r.blockAssignments[idx]
		if blockH == 0 {
			continue
		}

		tr.Enqueue(tracer.BlockRequest{
			BlockY:          blockY,
			BlockH:          blockH,
			SamplesPerPixel: r.options.SamplesPerPixel,
			Seed:            r.options.Seed + pass*r.options.FrameH + blockY,
			DoneChan:        doneChan,
			ErrChan:         errChan,
		})
		blockY += blockH
		pending++
	}

	// Tracers write into the shared accumulation buffer so we always wait
	// for all pending blocks even if one of them fails.
	var err error
	for ; pending > 0; pending-- {
		select {
		case <-doneChan:
		case blockErr := <-errChan:
			if err == nil {
				err = blockErr
			}
		}
	}
	if err != nil {
		return err
	}

	r.updateStats()
	return nil
}

func (r *defaultRenderer) updateStats() {
	r.stats.Tracers = make([]TracerStat, len(r.tracers))
	for idx, tr := range r.tracers {
		trStats := tr.Stats()
		stat := TracerStat{
			Id:           tr.Id(),
			BlockH:       r.blockAssignments[idx],
			FramePercent: 100.0 * float32(r.blockAssignments[idx]) / float32(r.options.FrameH),
		}
		if stat.BlockH != 0 {
			stat.RenderTime = trStats.RenderTime
			stat.PrimaryRays = trStats.PrimaryRays
			stat.NodesVisited = trStats.NodesVisited
		}
		r.stats.Tracers[idx] = stat
	}
}
