// Package integrator estimates the radiance arriving at the camera along
// primary rays.
package integrator

import (
	"errors"
	"fmt"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/scene"
	"github.com/achilleasa/sahtrace/types"
)

const (
	// Path length limits for the path tracer.
	DefaultMaxPathLength = 16
	DefaultMinPathLength = 2

	// Offset applied to bounce ray origins to avoid self intersections.
	RayOffset float32 = 1e-3
)

// Radiance collected by paths escaping the scene.
var DefaultDomeRadiance = types.Splat3(0.75)

var (
	ErrUnknownShader = errors.New("integrator: unknown shader")
)

// Sampler bundles the per-worker state needed for evaluating samples. The
// BVH is captured once so all samples in a block see the same tree even if a
// new one is published meanwhile.
type Sampler struct {
	Scene *scene.Scene
	BVH   *accel.BVH
	Stack *accel.Stack
	Rand  *Random
}

// Create a sampler for the BVH currently published by the scene. Returns
// nil if no BVH is available.
func NewSampler(sc *scene.Scene, rng *Random) *Sampler {
	bvh := sc.Accel()
	if bvh == nil {
		return nil
	}
	return &Sampler{
		Scene: sc,
		BVH:   bvh,
		Stack: bvh.NewStack(),
		Rand:  rng,
	}
}

func (s *Sampler) trace(ray accel.Ray, isect *accel.Intersection) bool {
	return s.BVH.Traverse(ray, s.Scene.Mesh, s.Stack, isect)
}

// The Shader interface is implemented by all radiance estimators.
type Shader interface {
	// Estimate the radiance arriving along a primary ray.
	Radiance(s *Sampler, ray accel.Ray) types.Vec3
}

// Select a shader by name. Supported names are "path" and "normal".
func ShaderByName(name string, maxPathLength, minPathLength int) (Shader, error) {
	switch name {
	case "path":
		return &PathTracer{
			MaxPathLength: maxPathLength,
			MinPathLength: minPathLength,
			DomeRadiance:  DefaultDomeRadiance,
		}, nil
	case "normal":
		return NormalShader{}, nil
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownShader, name)
}

// PathTracer is a unidirectional path tracer for diffuse surfaces lit by a
// constant dome.
//
// A path ends at its first miss. The escaped ray collects DomeRadiance scaled
// by the path throughput only, so deep bounces are not darkened by their
// segment count. Setting DomeFalloff switches to the 1/pathLength background
// weighting, which further darkens light that reaches the camera after many
// bounces.
type PathTracer struct {
	// Paths are terminated after this many segments.
	MaxPathLength int

	// Paths shorter than this do not collect dome radiance. With the
	// default of 2, camera rays that miss the scene are black.
	MinPathLength int

	DomeRadiance types.Vec3

	// Divide the dome contribution by the path length.
	DomeFalloff bool
}

func (pt *PathTracer) Radiance(s *Sampler, ray accel.Ray) types.Vec3 {
	var isect accel.Intersection
	var radiance types.Vec3
	throughput := types.Splat3(1)

	for pathLength := 1; ; pathLength++ {
		if !s.trace(ray, &isect) {
			if pathLength >= pt.MinPathLength {
				dome := throughput.MulVec(pt.DomeRadiance)
				if pt.DomeFalloff {
					dome = dome.Mul(1 / float32(pathLength))
				}
				radiance = radiance.Add(dome)
			}
			break
		}

		if pathLength >= pt.MaxPathLength {
			break
		}

		// Face-forward the normal and bounce
		n := isect.Normal
		if n.Dot(ray.Dir) > 0 {
			n = n.Neg()
		}
		dir, _ := SampleDiffuse(s.Rand, n)
		throughput = throughput.MulVec(s.Scene.Material(&isect).Diffuse)

		ray = accel.Ray{
			Origin: isect.Position.Add(dir.Mul(RayOffset)),
			Dir:    dir,
		}
	}

	return radiance
}

// NormalShader maps the normal of the first hit to a color.
type NormalShader struct{}

func (NormalShader) Radiance(s *Sampler, ray accel.Ray) types.Vec3 {
	var isect accel.Intersection
	if !s.trace(ray, &isect) {
		return types.Vec3{}
	}
	return isect.Normal.Mul(0.5).Add(types.Splat3(0.5))
}
