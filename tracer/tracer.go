// Package tracer defines the workers that render blocks of frame rows and
// the schedulers that split a frame between them.
package tracer

import "time"

type UpdateType uint8

// The supported update types.
const (
	UpdateScene UpdateType = iota
	UpdateCamera
	UpdateShader
)

// A unit of work that is processed by a tracer.
type BlockRequest struct {
	// Block start row and height.
	BlockY uint32
	BlockH uint32

	// The number of emitted rays per traced pixel.
	SamplesPerPixel uint32

	// A random seed value for the tracer's random number generator.
	Seed uint32

	// A channel to signal on block completion with the number of completed rows.
	DoneChan chan<- uint32

	// A channel to signal if an error occurs.
	ErrChan chan<- error
}

// Tracer statistics.
type Stats struct {
	// The rendered block height
	BlockH uint32

	// The time for rendering the last block.
	RenderTime time.Duration

	// Traversal counters for the last block.
	PrimaryRays  uint64
	NodesVisited uint64
}

type Tracer interface {
	// Get tracer id.
	Id() string

	// Get the tracer's computation speed estimate compared to a single
	// cpu core.
	Speed() uint32

	// Attach the tracer to a frame. Rendered samples are added to the
	// RGB accumulation buffer which must hold frameW * frameH * 3 floats.
	Init(frameW, frameH uint32, accumBuffer []float32) error

	// Shutdown and cleanup tracer.
	Close()

	// Enqueue block request.
	Enqueue(BlockRequest)

	// Append a change to the tracer's update buffer. Changes are applied
	// before the next block is rendered.
	Update(UpdateType, interface{})

	// Retrieve last block statistics.
	Stats() *Stats
}
