package cmd

import (
	"bytes"
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/urfave/cli"
)

// List the cpus that can be used as tracers.
func ListCPUs(ctx *cli.Context) error {
	setupLogging(ctx)

	cpuInfo, err := cpu.Info()
	if err != nil {
		return err
	}
	logical, err := cpu.Counts(true)
	if err != nil {
		return err
	}
	physical, err := cpu.Counts(false)
	if err != nil {
		return err
	}
	memInfo, err := mem.VirtualMemory()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"CPU", "Model", "Cores", "Clock"})
	for idx, info := range cpuInfo {
		table.Append([]string{
			fmt.Sprintf("%d", idx),
			info.ModelName,
			fmt.Sprintf("%d", info.Cores),
			fmt.Sprintf("%.2f GHz", info.Mhz/1000),
		})
	}
	table.SetFooter([]string{"", fmt.Sprintf("%d physical / %d logical", physical, logical), "RAM", fmt.Sprintf("%d GB", memInfo.Total/(1024*1024*1024))})
	table.Render()

	logger.Noticef("system provides %d cpu tracer(s):\n%s", logical, buf.String())
	return nil
}
