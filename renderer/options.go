package renderer

import "fmt"

type Options struct {
	// Frame dims.
	FrameW uint32
	FrameH uint32

	// Number of progressive passes. Each pass adds SamplesPerPixel
	// samples to every pixel.
	NumPasses uint32

	// Number of samples per pass.
	SamplesPerPixel uint32

	// Exposure for tonemapping.
	Exposure float32

	// Base seed for the tracer random number generators.
	Seed uint32
}

// Validate render options.
func (opts Options) Validate() error {
	switch {
	case opts.FrameW == 0 || opts.FrameH == 0:
		return fmt.Errorf("%w: invalid frame size %dx%d", ErrInvalidOptions, opts.FrameW, opts.FrameH)
	case opts.NumPasses == 0:
		return fmt.Errorf("%w: at least one pass is required", ErrInvalidOptions)
	case opts.SamplesPerPixel == 0:
		return fmt.Errorf("%w: at least one sample per pixel is required", ErrInvalidOptions)
	case !(opts.Exposure > 0):
		return fmt.Errorf("%w: exposure must be positive", ErrInvalidOptions)
	}
	return nil
}
