package cmd

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/achilleasa/sahtrace/accel"
	"github.com/achilleasa/sahtrace/types"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
)

// Trace a single ray through a scene and display the closest hit.
func TraceRay(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	if ctx.NArg() != 1 {
		return errors.New("missing scene file argument")
	}

	origin, err := parseVec3Flag(ctx.String("origin"))
	if err != nil {
		return fmt.Errorf("invalid origin: %w", err)
	}
	dir, err := parseVec3Flag(ctx.String("dir"))
	if err != nil {
		return fmt.Errorf("invalid direction: %w", err)
	}

	sc, err := loadScene(ctx.Args().First(), cfg)
	if err != nil {
		return err
	}

	ray := accel.Ray{Origin: origin, Dir: dir, MaxT: float32(ctx.Float64("max-t"))}
	stack := sc.Accel().NewStack()
	var isect accel.Intersection
	hit := sc.Trace(ray, stack, &isect)

	logger.Noticef("ray query result:\n%s", formatIntersection(hit, &isect, stack, sc.Material(&isect).Name))
	return nil
}

func formatIntersection(hit bool, isect *accel.Intersection, stack *accel.Stack, material string) string {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetAutoFormatHeaders(false)
	table.SetHeader([]string{"Field", "Value"})
	table.Append([]string{"Hit", fmt.Sprintf("%t", hit)})
	if hit {
		table.Append([]string{"Distance", fmt.Sprintf("%f", isect.T)})
		table.Append([]string{"Barycentric (u, v)", fmt.Sprintf("(%f, %f)", isect.U, isect.V)})
		table.Append([]string{"Face", fmt.Sprintf("%d [%d %d %d]", isect.FaceID, isect.F0, isect.F1, isect.F2)})
		table.Append([]string{"Position", fmtVec3(isect.Position)})
		table.Append([]string{"Normal", fmtVec3(isect.Normal)})
		table.Append([]string{"Material", fmt.Sprintf("%d (%s)", isect.MaterialID, material)})
	}
	table.SetFooter([]string{
		fmt.Sprintf("Nodes %d", stack.NodesVisited),
		fmt.Sprintf("Leafs %d / Triangles %d", stack.LeavesTested, stack.TrianglesTested),
	})
	table.Render()
	return buf.String()
}

func fmtVec3(v types.Vec3) string {
	return fmt.Sprintf("(%f, %f, %f)", v[0], v[1], v[2])
}

// Parse a comma separated "x,y,z" triplet.
func parseVec3Flag(val string) (types.Vec3, error) {
	var v types.Vec3
	tokens := strings.Split(val, ",")
	if len(tokens) != 3 {
		return v, fmt.Errorf("expected 3 comma separated values; got %q", val)
	}

	for i, token := range tokens {
		f, err := strconv.ParseFloat(strings.TrimSpace(token), 32)
		if err != nil {
			return v, err
		}
		v[i] = float32(f)
	}
	return v, nil
}
