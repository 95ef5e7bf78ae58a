package accel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

// Stats contains the counters collected while building a BVH.
type Stats struct {
	// Deepest recursion level reached by the builder. Depth is tracked
	// even when MaxTreeDepth forces a leaf.
	MaxDepth int

	Leaves   int
	Branches int

	// Number of partitioned triangles.
	Triangles int

	// Total time spent building the tree. Zero for loaded trees.
	BuildTime time.Duration
}

// Nodes returns the total number of tree nodes.
func (s Stats) Nodes() int {
	return s.Leaves + s.Branches
}

// Build a tabular representation of the build statistics.
func (s Stats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"BVH", "Value"})
	table.Append([]string{"Triangles", fmt.Sprintf("%d", s.Triangles)})
	table.Append([]string{"Branches", fmt.Sprintf("%d", s.Branches)})
	table.Append([]string{"Leaves", fmt.Sprintf("%d", s.Leaves)})
	table.Append([]string{"Max depth", fmt.Sprintf("%d", s.MaxDepth)})
	table.Append([]string{"Size", fmtSize(int64(s.Nodes())*nodeRecordSize + int64(s.Triangles)*4 + 16)})
	table.SetFooter([]string{"Build time", fmt.Sprintf("%d ms", s.BuildTime.Nanoseconds()/1e6)})
	table.Render()
	return buf.String()
}

// Format a byte count with the appropriate byte/kb/mb unit.
func fmtSize(totalBytes int64) string {
	if totalBytes < 1e3 {
		return fmt.Sprintf("%3d bytes", totalBytes)
	} else if totalBytes < 1e6 {
		return fmt.Sprintf("%3.1f kb", float64(totalBytes)/1e3)
	}
	return fmt.Sprintf("%3.1f mb", float64(totalBytes)/1e6)
}
