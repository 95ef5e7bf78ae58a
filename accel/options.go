package accel

import "github.com/chewxy/math32"

// Options controls how the BVH builder partitions the mesh.
type Options struct {
	// Relative cost of traversing an internal node. The cost of a
	// triangle test is 1 - CostTaabb. Must be in [0, 1].
	CostTaabb float32 `json:"cost_taabb"`

	// Ranges with fewer triangles than this become leafs.
	MinLeafPrimitives int `json:"min_leaf_primitives"`

	// Hard recursion cap; nodes at this depth are always leafs.
	MaxTreeDepth int `json:"max_tree_depth"`

	// Number of SAH histogram bins per axis. Must be > 1.
	BinCount int `json:"bin_count"`
}

// DefaultOptions returns the default build options.
func DefaultOptions() Options {
	return Options{
		CostTaabb:         0.2,
		MinLeafPrimitives: 16,
		MaxTreeDepth:      256,
		BinCount:          64,
	}
}

// Validate reports the first option that is out of range.
func (o Options) Validate() error {
	switch {
	case o.BinCount <= 1:
		return &ConfigurationError{Option: "BinCount", Value: o.BinCount, Reason: "must be greater than 1"}
	case o.MinLeafPrimitives < 1:
		return &ConfigurationError{Option: "MinLeafPrimitives", Value: o.MinLeafPrimitives, Reason: "must be at least 1"}
	case o.MaxTreeDepth < 1:
		return &ConfigurationError{Option: "MaxTreeDepth", Value: o.MaxTreeDepth, Reason: "must be at least 1"}
	case math32.IsNaN(o.CostTaabb) || o.CostTaabb < 0 || o.CostTaabb > 1:
		return &ConfigurationError{Option: "CostTaabb", Value: o.CostTaabb, Reason: "must be in [0, 1]"}
	}
	return nil
}

// The capacity a traversal stack needs for a tree of the given depth.
func (o Options) stackCapacity(treeDepth int) int {
	capacity := 2 * o.MaxTreeDepth
	if minCap := 2 * (treeDepth + 1); minCap > capacity {
		capacity = minCap
	}
	return capacity
}
