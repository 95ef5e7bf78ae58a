package scene

import "github.com/achilleasa/sahtrace/types"

// Defines a diffuse scene material.
type Material struct {
	Name string

	// Diffuse reflectance.
	Diffuse types.Vec3
}

// The material used for faces without a valid material assignment.
func DefaultMaterial() Material {
	return Material{
		Name:    "default",
		Diffuse: types.Splat3(0.5),
	}
}
