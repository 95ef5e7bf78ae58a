package cpu

import "errors"

var (
	ErrNotInitialized = errors.New("cpu tracer: tracer not initialized")
	ErrNoSceneData    = errors.New("cpu tracer: no scene data")
	ErrNoCamera       = errors.New("cpu tracer: no camera")
	ErrNoShader       = errors.New("cpu tracer: no shader")
	ErrNoAccel        = errors.New("cpu tracer: scene has no BVH")
	ErrBusy           = errors.New("cpu tracer: worker busy")
	ErrFrameSize      = errors.New("cpu tracer: accumulation buffer does not match frame size")
)
