// Package config loads render configurations from JSON files.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/integrator"
	"github.com/achilleasa/sahtrace/renderer"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/achilleasa/sahtrace/types"
)

var (
	ErrInvalidConfig = errors.New("config: invalid configuration")
)

// Config describes a render job. Keys missing from a loaded file keep the
// values returned by Default.
type Config struct {
	// The scene to render. May be overridden on the command line.
	ObjFilename string `json:"obj_filename"`

	// Uniform scale applied to the scene vertices after loading.
	SceneScale float32 `json:"scene_scale"`

	// Camera overrides. Unset values keep the scene camera settings.
	Eye    *types.Vec3 `json:"eye,omitempty"`
	LookAt *types.Vec3 `json:"lookat,omitempty"`
	Up     *types.Vec3 `json:"up,omitempty"`
	FOV    *float32    `json:"fov,omitempty"`

	// Frame width and height.
	Resolution [2]uint32 `json:"resolution"`

	NumPasses       uint32  `json:"num_passes"`
	SamplesPerPixel uint32  `json:"spp"`
	MaxPathLength   int     `json:"max_path_length"`
	MinPathLength   int     `json:"min_path_length"`
	Exposure        float32 `json:"exposure"`
	DomeFalloff     bool    `json:"dome_falloff"`
	Seed            uint32  `json:"seed"`

	// Either "path" or "normal".
	Shader string `json:"shader"`

	// If set, the BVH is loaded from this file when it exists and
	// written to it after a build otherwise.
	BVHCache string `json:"bvh_cache"`

	// BVH build options.
	BVH accel.Options `json:"bvh"`
}

// Get the default configuration.
func Default() *Config {
	return &Config{
		SceneScale:      1,
		Resolution:      [2]uint32{512, 512},
		NumPasses:       10,
		SamplesPerPixel: 1,
		MaxPathLength:   integrator.DefaultMaxPathLength,
		MinPathLength:   integrator.DefaultMinPathLength,
		Exposure:        1,
		Shader:          "path",
		BVH:             accel.DefaultOptions(),
	}
}

// Load a configuration file and validate it.
func Load(path string) (*Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err = json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: could not parse %s: %w", path, err)
	}

	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate the configuration.
func (cfg *Config) Validate() error {
	switch {
	case !(cfg.SceneScale > 0):
		return fmt.Errorf("%w: scene_scale must be positive", ErrInvalidConfig)
	case cfg.Resolution[0] == 0 || cfg.Resolution[1] == 0:
		return fmt.Errorf("%w: invalid resolution %dx%d", ErrInvalidConfig, cfg.Resolution[0], cfg.Resolution[1])
	case cfg.NumPasses == 0:
		return fmt.Errorf("%w: num_passes must be at least 1", ErrInvalidConfig)
	case cfg.SamplesPerPixel == 0:
		return fmt.Errorf("%w: spp must be at least 1", ErrInvalidConfig)
	case cfg.MaxPathLength < 1:
		return fmt.Errorf("%w: max_path_length must be at least 1", ErrInvalidConfig)
	case cfg.MinPathLength < 1 || cfg.MinPathLength > cfg.MaxPathLength:
		return fmt.Errorf("%w: min_path_length must be in [1, max_path_length]", ErrInvalidConfig)
	case !(cfg.Exposure > 0):
		return fmt.Errorf("%w: exposure must be positive", ErrInvalidConfig)
	case cfg.FOV != nil && !(*cfg.FOV > 0 && *cfg.FOV < 180):
		return fmt.Errorf("%w: fov must be in (0, 180)", ErrInvalidConfig)
	}

	if _, err := cfg.NewShader(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.BVH.Validate(); err != nil {
		return fmt.Errorf("%w: bvh: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Create the configured shader.
func (cfg *Config) NewShader() (integrator.Shader, error) {
	shader, err := integrator.ShaderByName(cfg.Shader, cfg.MaxPathLength, cfg.MinPathLength)
	if err != nil {
		return nil, err
	}
	if pt, ok := shader.(*integrator.PathTracer); ok {
		pt.DomeFalloff = cfg.DomeFalloff
	}
	return shader, nil
}

// Get renderer options for this configuration.
func (cfg *Config) RenderOptions() renderer.Options {
	return renderer.Options{
		FrameW:          cfg.Resolution[0],
		FrameH:          cfg.Resolution[1],
		NumPasses:       cfg.NumPasses,
		SamplesPerPixel: cfg.SamplesPerPixel,
		Exposure:        cfg.Exposure,
		Seed:            cfg.Seed,
	}
}

// Apply the camera overrides. If the scene has no camera a new one is
// created from the overrides and the defaults.
func (cfg *Config) ApplyCamera(sc *scene.Scene) {
	if sc.Camera == nil {
		sc.Camera = scene.NewCamera(types.Vec3{0, 0, -5}, types.Vec3{}, types.Vec3{0, 1, 0}, 45)
	}

	if cfg.Eye != nil {
		sc.Camera.Eye = *cfg.Eye
	}
	if cfg.LookAt != nil {
		sc.Camera.LookAt = *cfg.LookAt
	}
	if cfg.Up != nil {
		sc.Camera.Up = *cfg.Up
	}
	if cfg.FOV != nil {
		sc.Camera.FOV = *cfg.FOV
	}
}
