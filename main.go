package main

import (
	"os"

	"github.com/achilleasa/sahtrace/cmd"
	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "sahtrace"
	app.Usage = "build SAH bounding volume hierarchies and path trace triangle meshes"
	app.Version = "0.0.1"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
		cli.BoolFlag{
			Name:  "q",
			Usage: "only log warnings and errors",
		},
		cli.StringFlag{
			Name:  "log-file",
			Usage: "append log output to this file instead of stdout",
		},
		cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, notice, warning or error); overrides -v, -vv and -q",
		},
		cli.StringSliceFlag{
			Name:  "module-level",
			Usage: `set the level of a single logger, e.g. "bvh builder=debug"; may be repeated`,
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "compile",
			Usage: "compile text scene representation into a binary compressed format",
			Description: `
Parse a scene definition from a wavefront obj file and build a BVH tree to
optimize ray intersection tests.

The mesh, its materials, the camera and the BVH are then written to a zip
archive which can be supplied as an argument to the other commands.`,
			ArgsUsage: "scene_file1.obj scene_file2.obj ...",
			Flags:     cmd.SceneFlags,
			Action:    cmd.CompileScene,
		},
		{
			Name:      "info",
			Usage:     "print scene and BVH statistics",
			ArgsUsage: "scene_file",
			Flags:     cmd.SceneFlags,
			Action:    cmd.ShowSceneInfo,
		},
		{
			Name:  "trace",
			Usage: "trace a single ray and print the closest hit",
			Description: `
Load a scene, build or load its BVH and report the closest triangle hit by the
ray together with the number of nodes and triangles visited.`,
			ArgsUsage: "scene_file",
			Flags: append([]cli.Flag{
				cli.StringFlag{
					Name:  "origin",
					Value: "0,0,0",
					Usage: "ray origin as x,y,z",
				},
				cli.StringFlag{
					Name:  "dir",
					Value: "0,0,-1",
					Usage: "ray direction as x,y,z",
				},
				cli.Float64Flag{
					Name:  "max-t",
					Usage: "ignore hits further than this distance; 0 disables the limit",
				},
			}, cmd.SceneFlags...),
			Action: cmd.TraceRay,
		},
		{
			Name:        "render",
			Usage:       "render scene",
			Description: `Render a single frame using one or more cpu tracers.`,
			ArgsUsage:   "[scene_file]",
			Flags:       append(append([]cli.Flag{}, cmd.RenderFlags...), cmd.SceneFlags...),
			Action:      cmd.RenderFrame,
		},
		{
			Name:   "list-cpus",
			Usage:  "list available cpus",
			Action: cmd.ListCPUs,
		},
	}

	app.Run(os.Args)
}
