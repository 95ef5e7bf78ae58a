package integrator

import (
	"github.com/achilleasa/sahtrace/types"
	"github.com/chewxy/math32"
)

// Build an orthonormal basis around the unit vector n. The tangent is
// perpendicular to the axis where n has its smallest component.
func basis(n types.Vec3) (tangent, binormal types.Vec3) {
	switch n.MinAbsAxis() {
	case 0:
		tangent = types.Vec3{0, -n[2], n[1]}
	case 1:
		tangent = types.Vec3{-n[2], 0, n[0]}
	default:
		tangent = types.Vec3{-n[1], n[0], 0}
	}
	tangent = tangent.Normalize()
	binormal = tangent.Cross(n).Normalize()
	return tangent, binormal
}

// SampleDiffuse picks a direction in the hemisphere around n with a cosine
// weighted distribution. It returns the direction and its pdf weight which
// equals the cosine between the direction and n.
func SampleDiffuse(rng *Random, n types.Vec3) (types.Vec3, float32) {
	tangent, binormal := basis(n)

	r := rng.Float32()
	cosTheta := math32.Sqrt(1 - r)
	sinTheta := math32.Sqrt(r)
	sinPhi, cosPhi := math32.Sincos(2 * math32.Pi * rng.Float32())

	dir := tangent.Mul(cosPhi * sinTheta).
		Add(binormal.Mul(sinPhi * sinTheta)).
		Add(n.Mul(cosTheta))
	return dir, cosTheta
}
