package scene

import (
	"fmt"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/types"
	"github.com/chewxy/math32"
)

// Stores the ray directions at the four corners of the camera frustrum. It is
// used as a shortcut for generating per pixel rays via interpolation of the
// corner rays.
type Frustrum [4]types.Vec3

func (fr Frustrum) String() string {
	return fmt.Sprintf(
		"Frustrum Rays:\nTL : (%3.3f, %3.3f, %3.3f)\nTR : (%3.3f, %3.3f, %3.3f)\nBL : (%3.3f, %3.3f, %3.3f)\nBR : (%3.3f, %3.3f, %3.3f)",
		fr[0][0], fr[0][1], fr[0][2],
		fr[1][0], fr[1][1], fr[1][2],
		fr[2][0], fr[2][1], fr[2][2],
		fr[3][0], fr[3][1], fr[3][2],
	)
}

// The camera type controls the scene camera.
type Camera struct {
	Eye    types.Vec3
	LookAt types.Vec3
	Up     types.Vec3

	// Vertical field of view in degrees.
	FOV float32

	Frustrum Frustrum

	frameW float32
	frameH float32
}

// Create a camera at eye looking at lookAt.
func NewCamera(eye, lookAt, up types.Vec3, fov float32) *Camera {
	return &Camera{
		Eye:    eye,
		LookAt: lookAt,
		Up:     up,
		FOV:    fov,
	}
}

// Orbit the camera eye around the look at point. Yaw rotates around the up
// vector and pitch around the camera right vector; both angles are in
// radians. Setup must be called afterwards to refresh the frustrum.
func (c *Camera) Orbit(yaw, pitch float32) {
	offset := c.Eye.Sub(c.LookAt)
	right := offset.Neg().Cross(c.Up)

	yawQuat := types.QuatFromAxisAngle(c.Up, yaw)
	pitchQuat := types.QuatFromAxisAngle(right, pitch)
	orientQuat := yawQuat.Mul(pitchQuat).Normalize()

	c.Eye = c.LookAt.Add(orientQuat.Rotate(offset))
}

// Setup the frustrum corner rays for a frame with the given dimensions.
func (c *Camera) Setup(frameW, frameH uint32) {
	c.frameW = float32(frameW)
	c.frameH = float32(frameH)

	dir := c.LookAt.Sub(c.Eye).Normalize()
	right := dir.Cross(c.Up).Normalize()
	up := right.Cross(dir)

	halfH := math32.Tan(0.5 * c.FOV * math32.Pi / 180.0)
	halfW := halfH * c.frameW / c.frameH

	right = right.Mul(halfW)
	up = up.Mul(halfH)
	c.Frustrum[0] = dir.Sub(right).Add(up)
	c.Frustrum[1] = dir.Add(right).Add(up)
	c.Frustrum[2] = dir.Sub(right).Sub(up)
	c.Frustrum[3] = dir.Add(right).Sub(up)
}

// Generate a primary ray through frame position (x, y). Pixel (0, 0) is the
// top-left corner of the frame. Setup must be called before generating rays.
func (c *Camera) GenerateRay(x, y float32) accel.Ray {
	tx := x / c.frameW
	ty := y / c.frameH

	top := c.Frustrum[0].Lerp(c.Frustrum[1], tx)
	bottom := c.Frustrum[2].Lerp(c.Frustrum[3], tx)
	return accel.Ray{
		Origin: c.Eye,
		Dir:    top.Lerp(bottom, ty).Normalize(),
	}
}
