package accel

import (
	"github.com/achilleasa/sahtrace/mesh"
	"github.com/achilleasa/sahtrace/types"
	"github.com/chewxy/math32"
)

// Tolerance used for bbox growing, degenerate axis detection and the
// ray/triangle determinant test.
const epsilon float32 = 1024 * 1.1920929e-07

// A per-axis histogram of the bins where triangle bounding boxes begin and
// end. Bins are laid out as (min, max) * xyz * binCount.
type binBuffer struct {
	binCount int
	bins     []uint32
}

func newBinBuffer(binCount int) *binBuffer {
	return &binBuffer{
		binCount: binCount,
		bins:     make([]uint32, 2*3*binCount),
	}
}

func (b *binBuffer) clear() {
	for i := range b.bins {
		b.bins[i] = 0
	}
}

func (b *binBuffer) minBin(axis, bin int) uint32 {
	return b.bins[axis*b.binCount+bin]
}

func (b *binBuffer) maxBin(axis, bin int) uint32 {
	return b.bins[3*b.binCount+axis*b.binCount+bin]
}

// Quantize the bbox of each triangle in indices into the histogram. The
// histogram covers the [bmin, bmax] range.
func (b *binBuffer) fill(m *mesh.Mesh, indices []uint32, bmin, bmax types.Vec3) {
	b.clear()

	binCount := float32(b.binCount)
	var invSize types.Vec3
	for axis := 0; axis < 3; axis++ {
		if size := bmax[axis] - bmin[axis]; size > epsilon {
			invSize[axis] = binCount / size
		}
	}

	for _, face := range indices {
		triBBox := m.TriangleBBox(face)
		for axis := 0; axis < 3; axis++ {
			minIdx := b.quantize((triBBox[0][axis] - bmin[axis]) * invSize[axis])
			maxIdx := b.quantize((triBBox[1][axis] - bmin[axis]) * invSize[axis])
			b.bins[axis*b.binCount+minIdx]++
			b.bins[3*b.binCount+axis*b.binCount+maxIdx]++
		}
	}
}

// Map a scaled position to a bin index in [0, binCount).
func (b *binBuffer) quantize(v float32) int {
	v = math32.Floor(v)
	switch {
	case !(v > 0):
		return 0
	case v >= float32(b.binCount):
		return b.binCount - 1
	}
	return int(v)
}

// Evaluate the SAH cost at every inner bin center on each axis and return
// the axis with the lowest cost together with the best cut position on each
// axis. The cost of a cut is:
//
// 2 * Taabb + (leftArea / area) * leftCount * Ttri + (rightArea / area) * rightCount * Ttri
func (b *binBuffer) findCut(bmin, bmax types.Vec3, numTriangles int, costTaabb float32) (axis int, cutPos types.Vec3) {
	costTtri := 1.0 - costTaabb
	step := bmax.Sub(bmin).Mul(1.0 / float32(b.binCount))

	var invSaTotal float32
	if saTotal := types.SurfaceArea(bmin, bmax); saTotal > epsilon {
		invSaTotal = 1.0 / saTotal
	}

	var minCost [3]float32
	for j := 0; j < 3; j++ {
		minCost[j] = math32.MaxFloat32
		cutPos[j] = bmin[j] + 0.5*step[j]

		left, right := 0, numTriangles
		minLeft, maxLeft := bmin, bmax
		minRight, maxRight := bmin, bmax

		// Skip both extremes of the bbox
		for i := 0; i < b.binCount-1; i++ {
			left += int(b.minBin(j, i))
			right -= int(b.maxBin(j, i))

			pos := bmin[j] + (float32(i)+0.5)*step[j]
			maxLeft[j] = pos
			minRight[j] = pos

			saLeft := types.SurfaceArea(minLeft, maxLeft)
			saRight := types.SurfaceArea(minRight, maxRight)
			cost := 2.0*costTaabb +
				(saLeft*invSaTotal)*float32(left)*costTtri +
				(saRight*invSaTotal)*float32(right)*costTtri

			if cost < minCost[j] {
				minCost[j] = cost
				cutPos[j] = pos
			}
		}
	}

	// Ties resolve to the lowest axis index
	cost := minCost[0]
	if cost > minCost[1] {
		axis = 1
		cost = minCost[1]
	}
	if cost > minCost[2] {
		axis = 2
	}
	return axis, cutPos
}
