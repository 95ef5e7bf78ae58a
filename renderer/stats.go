package renderer

import (
	"bytes"
	"fmt"
	"time"

	"github.com/olekukonko/tablewriter"
)

type TracerStat struct {
	// The tracer id.
	Id string

	// The block height and the percentage of total frame area it represents.
	BlockH       uint32
	FramePercent float32

	// Render time for assigned block in the last pass.
	RenderTime time.Duration

	// Primary rays traced in the last pass and the BVH nodes they visited.
	PrimaryRays  uint64
	NodesVisited uint64
}

type FrameStats struct {
	// Individual tracer stats.
	Tracers []TracerStat

	// Completed passes and the accumulated samples per pixel.
	Passes          uint32
	SamplesPerPixel uint32

	// Total render time for entire frame.
	RenderTime time.Duration
}

// Render frame statistics as a table.
func (stats FrameStats) String() string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Tracer", "Block height", "% of frame", "Rays", "Nodes/ray", "Pass time"})
	for _, stat := range stats.Tracers {
		var nodesPerRay float64
		if stat.PrimaryRays != 0 {
			nodesPerRay = float64(stat.NodesVisited) / float64(stat.PrimaryRays)
		}
		table.Append([]string{
			stat.Id,
			fmt.Sprintf("%d", stat.BlockH),
			fmt.Sprintf("%02.1f %%", stat.FramePercent),
			fmt.Sprintf("%d", stat.PrimaryRays),
			fmt.Sprintf("%.1f", nodesPerRay),
			fmt.Sprintf("%s", stat.RenderTime),
		})
	}
	table.SetFooter([]string{"", "", "", fmt.Sprintf("%d passes", stats.Passes), fmt.Sprintf("%d spp", stats.SamplesPerPixel), fmt.Sprintf("%s", stats.RenderTime)})

	table.Render()
	return buf.String()
}
